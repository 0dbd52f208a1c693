package capture

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/attendanceconsole/internal/attendanceapi"
	"github.com/attendanceconsole/internal/camera"
	"github.com/attendanceconsole/internal/recognitions"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const DefaultInterval = time.Second

type ID string

func NewID() ID {
	return ID(gonanoid.Must())
}

type State uint

const (
	StateIdle State = iota
	StateActive
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

type Recognizer interface {
	Recognize(context.Context, attendanceapi.RecognizeInput) (*attendanceapi.RecognizeResponse, error)
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.Ticker.C
}

type Option func(*Session)

func WithInterval(interval time.Duration) Option {
	return func(s *Session) {
		s.interval = interval
	}
}

// WithRequestTimeout bounds every frame capture and recognition request.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(s *Session) {
		s.requestTimeout = timeout
	}
}

func WithTickerFactory(newTicker func(time.Duration) Ticker) Option {
	return func(s *Session) {
		s.newTicker = newTicker
	}
}

type Status struct {
	ID        ID            `json:"id,omitempty"`
	State     State         `json:"state"`
	StartedAt time.Time     `json:"started_at"`
	Interval  time.Duration `json:"interval"`
	Frames    uint64        `json:"frames"`
}

// lease owns everything acquired by Start. The camera stream and the ticker
// are always released together.
type lease struct {
	id        ID
	stream    camera.Stream
	ticker    Ticker
	startedAt time.Time
	done      chan struct{}
	loopDone  chan struct{}
}

// Session periodically sends camera frames to the recognizer and applies the
// results to the register.
type Session struct {
	logger     *slog.Logger
	source     camera.Source
	sink       camera.Sink
	recognizer Recognizer
	register   *recognitions.Register

	interval       time.Duration
	requestTimeout time.Duration
	newTicker      func(time.Duration) Ticker

	guard sync.Mutex
	lease *lease

	seq      atomic.Uint64
	inflight sync.WaitGroup

	appliedCallbacks []func(context.Context, []recognitions.Event)
}

func NewSession(
	logger *slog.Logger,
	source camera.Source,
	sink camera.Sink,
	recognizer Recognizer,
	register *recognitions.Register,
	opts ...Option,
) *Session {
	s := &Session{
		logger:         logger,
		source:         source,
		sink:           sink,
		recognizer:     recognizer,
		register:       register,
		interval:       DefaultInterval,
		requestTimeout: 10 * time.Second,
		newTicker: func(d time.Duration) Ticker {
			return timeTicker{time.NewTicker(d)}
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnApplied registers a callback invoked with every result applied to the register.
func (s *Session) OnApplied(cb func(context.Context, []recognitions.Event)) {
	s.appliedCallbacks = append(s.appliedCallbacks, cb)
}

// Start acquires the camera and starts polling. ctx bounds only the camera
// access request. Starting an active session does nothing.
func (s *Session) Start(ctx context.Context) error {
	s.guard.Lock()
	defer s.guard.Unlock()
	if s.lease != nil {
		return nil
	}

	stream, err := s.source.Open(ctx)
	if err != nil {
		s.logger.Error("failed to open camera", "error", err)
		return fmt.Errorf("open camera: %w", err)
	}
	s.sink.Attach(stream)

	l := &lease{
		id:        NewID(),
		stream:    stream,
		ticker:    s.newTicker(s.interval),
		startedAt: time.Now(),
		done:      make(chan struct{}),
		loopDone:  make(chan struct{}),
	}
	s.lease = l

	go s.loop(l)

	s.logger.Info("capture started", "session_id", l.id, "interval", s.interval)
	return nil
}

// Stop releases the camera and the ticker. Requests already sent still
// deliver their results. Stopping an idle session does nothing.
func (s *Session) Stop() {
	s.guard.Lock()
	defer s.guard.Unlock()
	l := s.lease
	if l == nil {
		return
	}
	s.lease = nil

	close(l.done)
	<-l.loopDone
	l.ticker.Stop()
	for _, track := range l.stream.Tracks() {
		track.Stop()
	}
	s.sink.Detach()

	s.logger.Info("capture stopped", "session_id", l.id, "duration", time.Since(l.startedAt))
}

// Close stops the session and waits for in-flight requests to settle.
func (s *Session) Close() {
	s.Stop()
	s.inflight.Wait()
}

func (s *Session) Status() Status {
	s.guard.Lock()
	defer s.guard.Unlock()
	status := Status{
		State:    StateIdle,
		Interval: s.interval,
		Frames:   s.seq.Load(),
	}
	if s.lease != nil {
		status.ID = s.lease.id
		status.State = StateActive
		status.StartedAt = s.lease.startedAt
	}
	return status
}

func (s *Session) loop(l *lease) {
	defer close(l.loopDone)
	for {
		select {
		case <-l.done:
			return
		case <-l.ticker.C():
			seq := s.seq.Add(1)
			s.inflight.Add(1)
			go func() {
				defer s.inflight.Done()
				s.recognize(l.id, seq)
			}()
		}
	}
}

func (s *Session) recognize(id ID, seq uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()

	logger := s.logger.With("session_id", id, "seq", seq)

	frame, err := s.sink.Frame(ctx)
	if err != nil {
		logger.Error("failed to capture frame", "error", err)
		return
	}

	response, err := s.recognizer.Recognize(ctx, attendanceapi.RecognizeInput{
		Image: base64.StdEncoding.EncodeToString(frame),
	})
	if err != nil {
		logger.Error("failed to recognize faces", "error", err)
		return
	}

	events := make([]recognitions.Event, 0, len(response.RecognizedFaces))
	for _, face := range response.RecognizedFaces {
		events = append(events, recognitions.Event{
			StudentID: face.StudentID,
			Time:      face.Time,
		})
	}

	if !s.register.Apply(seq, events) {
		logger.Debug("discarded stale result", "faces", len(events))
		return
	}
	logger.Debug("applied result", "faces", len(events))
	for _, cb := range s.appliedCallbacks {
		cb(ctx, events)
	}
}
