package http

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/attendanceconsole/internal/capture"
	"github.com/attendanceconsole/internal/recognitions"
	"github.com/gorilla/websocket"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// captureWatchers counts open capture pages. Navigating away from the last one
// tears the capture session down, the same as closing the camera tab would.
type captureWatchers struct {
	guard sync.Mutex
	count int
}

func (w *captureWatchers) join() {
	w.guard.Lock()
	defer w.guard.Unlock()
	w.count++
}

func (w *captureWatchers) leave(logger *slog.Logger, session *capture.Session) {
	w.guard.Lock()
	defer w.guard.Unlock()
	w.count--
	if w.count > 0 {
		return
	}
	if session.Status().State == capture.StateActive {
		logger.Info("last capture page left, stopping capture")
	}
	session.Stop()
}

// handleCaptureFeed pushes the register content to the browser every time a
// recognition result is applied.
func handleCaptureFeed(
	logger *slog.Logger,
	register *recognitions.Register,
	session *capture.Session,
	watchers *captureWatchers,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("upgrade connection to websocket", "error", err)
			return
		}
		defer conn.Close()

		watchers.join()
		defer watchers.leave(logger, session)

		snapshots, unsubscribe := register.Subscribe()
		defer unsubscribe()

		// the browser never sends anything, reading only detects the close
		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
						logger.Warn("unexpected websocket close", "error", err)
					}
					return
				}
			}
		}()

		send := func(snapshot recognitions.Snapshot) bool {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(snapshot); err != nil {
				logger.Error("write snapshot to websocket", "error", err)
				return false
			}
			return true
		}

		if !send(register.Snapshot()) {
			return
		}
		for {
			select {
			case <-closed:
				return
			case snapshot, ok := <-snapshots:
				if !ok || !send(snapshot) {
					return
				}
			}
		}
	}
}
