package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/attendanceconsole/internal/attendanceapi"
	"github.com/attendanceconsole/internal/camera"
	"github.com/attendanceconsole/internal/capture"
	httpx "github.com/attendanceconsole/internal/http"
	"github.com/attendanceconsole/internal/http/static"
	"github.com/attendanceconsole/internal/http/templates"
	"github.com/attendanceconsole/internal/recognitions"
	"github.com/attendanceconsole/internal/reports"
	"github.com/attendanceconsole/internal/telegram"
	"github.com/attendanceconsole/internal/viewers"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

func main() {
	// .env is optional, the environment always wins
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("[ERROR] load .env: %s", err)
	}

	addr := flag.String("address", ":http", "http address to listen to")
	backendURL := flag.String("backend-url", "http://localhost:5000", "attendance and recognition backend url")
	cameraURL := flag.String("camera-url", "", "camera snapshot url")
	captureInterval := flag.Duration("capture-interval", capture.DefaultInterval, "how often frames are sent for recognition")
	orderedResults := flag.Bool("ordered-results", true, "if true, recognition results older than the displayed one are discarded")
	telegramToken := flag.String("telegram-token", "", "telegram bot token, warnings are sent to telegram if set")
	telegramChats := flag.String("telegram-chats", "", "comma separated telegram chat ids to send warnings to")
	watch := flag.Bool("watch", false, "if true, will serve from filesystem")
	debug := flag.Bool("debug", false, "if true, will log debug messages")
	flag.Parse()

	overrideFromEnv(backendURL, "BACKEND_URL")
	overrideFromEnv(cameraURL, "CAMERA_URL")
	overrideFromEnv(telegramToken, "TELEGRAM_TOKEN")
	overrideFromEnv(telegramChats, "TELEGRAM_CHATS")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	level := new(slog.LevelVar)
	if *debug {
		level.Set(slog.LevelDebug)
	}
	textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(textHandler)

	// nothing outlives the process
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		log.Fatalf("[ERROR] db: %s", err)
	}
	defer db.Close()

	if *telegramToken != "" {
		chatIDs, err := parseChatIDs(*telegramChats)
		if err != nil {
			log.Fatalf("[ERROR] telegram-chats: %s", err)
		}
		bot, err := telegram.NewBot(telegram.NewStore(db), *telegramToken)
		if err != nil {
			log.Fatalf("[ERROR] telegram: %s", err)
		}
		if err := bot.Subscribe(ctx, chatIDs...); err != nil {
			log.Fatalf("[ERROR] telegram subscribe: %s", err)
		}
		telegramHandler := telegram.NewSlogHandler(bot, textHandler)
		go telegramHandler.Run(ctx)
		logger = slog.New(telegramHandler)
		go func() {
			if err := bot.Listen(ctx); err != nil {
				logger.Error("listen for telegram updates", "error", err)
			}
		}()
	}
	slog.SetDefault(logger)

	var renderer templates.Renderer
	var staticHandler http.Handler
	if *watch {
		renderer = templates.NewFilesystemTemplates("./internal/http/templates")
		staticHandler = static.NewFilesystemHandler("./internal/http/static/files")
	} else {
		renderer = templates.NewEmbedTemplates()
		staticHandler = static.NewEmbedHandler()
	}

	if *cameraURL == "" {
		logger.Warn("camera url is not set, capture will not start")
	}

	apiClient := attendanceapi.NewAPIClient(logger, *backendURL)
	model := reports.NewModel(logger, apiClient)
	viewersStore := viewers.NewStore(db)
	register := recognitions.NewRegister(*orderedResults)
	logStore := recognitions.NewLogStore(db)
	sink := camera.NewLatestFrameSink()
	session := capture.NewSession(
		logger,
		camera.NewSnapshotSource(logger, *cameraURL),
		sink,
		apiClient,
		register,
		capture.WithInterval(*captureInterval),
	)
	session.OnApplied(func(ctx context.Context, events []recognitions.Event) {
		added, err := logStore.Record(ctx, events)
		if err != nil {
			logger.Error("record recognitions", "error", err)
			return
		}
		if added > 0 {
			logger.Info("recorded recognitions", "added", added)
		}
	})

	htmlHandler := httpx.Handler(
		logger,
		renderer,
		staticHandler,
		model,
		viewersStore,
		apiClient,
		session,
		register,
		sink,
		logStore,
	)

	httpServer := http.Server{
		Handler: htmlHandler,
	}

	// Wait for shut down in a separate goroutine.
	errCh := make(chan error)
	go func() {
		shutdownCh := make(chan os.Signal, 1)
		signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)
		sig := <-shutdownCh

		log.Printf("[INFO] received %s, shutting down", sig)

		shutdownTimeout := 15 * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		errCh <- httpServer.Shutdown(shutdownCtx)
	}()

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("[ERROR] tcp: %s", err)
	}
	log.Printf("[INFO] listening on %s", ln.Addr())

	if err := httpServer.Serve(ln); err != http.ErrServerClosed {
		log.Printf("[ERROR] http serve: %s", err)
	}

	if err := <-errCh; err != nil {
		log.Printf("[ERROR] error during shutdown: %s", err)
	}

	session.Close()

	log.Printf("[INFO] application stopped")
}

func overrideFromEnv(value *string, name string) {
	if env := os.Getenv(name); env != "" {
		*value = env
	}
}

func parseChatIDs(value string) ([]int64, error) {
	ids := []int64{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
