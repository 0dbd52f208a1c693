package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/attendanceconsole/internal/attendanceapi"
	"github.com/attendanceconsole/internal/camera"
	"github.com/attendanceconsole/internal/recognitions"
)

type fakeTrack struct {
	stopped atomic.Bool
}

func (t *fakeTrack) Kind() string { return "video" }
func (t *fakeTrack) Stop()        { t.stopped.Store(true) }

type fakeStream struct {
	track *fakeTrack
}

func (s *fakeStream) Frame(context.Context) ([]byte, error) {
	if s.track.stopped.Load() {
		return nil, camera.ErrStreamStopped
	}
	return []byte("frame"), nil
}

func (s *fakeStream) Tracks() []camera.Track {
	return []camera.Track{s.track}
}

type fakeSource struct {
	err     error
	streams []*fakeStream
}

func (s *fakeSource) Open(context.Context) (camera.Stream, error) {
	if s.err != nil {
		return nil, s.err
	}
	stream := &fakeStream{track: &fakeTrack{}}
	s.streams = append(s.streams, stream)
	return stream, nil
}

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               { t.stopped.Store(true) }

type fakeResult struct {
	gate  chan struct{}
	faces []attendanceapi.RecognizedFace
	err   error
}

// fakeRecognizer answers the n-th call with results[n].
type fakeRecognizer struct {
	guard   sync.Mutex
	calls   int
	images  []string
	results []fakeResult
}

func (r *fakeRecognizer) Recognize(_ context.Context, input attendanceapi.RecognizeInput) (*attendanceapi.RecognizeResponse, error) {
	r.guard.Lock()
	result := r.results[r.calls]
	r.calls++
	r.images = append(r.images, input.Image)
	r.guard.Unlock()

	if result.gate != nil {
		<-result.gate
	}
	if result.err != nil {
		return nil, result.err
	}
	return &attendanceapi.RecognizeResponse{RecognizedFaces: result.faces}, nil
}

func (r *fakeRecognizer) Calls() int {
	r.guard.Lock()
	defer r.guard.Unlock()
	return r.calls
}

type fixture struct {
	source     *fakeSource
	sink       *camera.LatestFrameSink
	recognizer *fakeRecognizer
	register   *recognitions.Register
	tickers    []*fakeTicker
	session    *Session
}

func newFixture(t *testing.T, results ...fakeResult) *fixture {
	t.Helper()
	f := &fixture{
		source:     &fakeSource{},
		sink:       camera.NewLatestFrameSink(),
		recognizer: &fakeRecognizer{results: results},
		register:   recognitions.NewRegister(true),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.session = NewSession(logger, f.source, f.sink, f.recognizer, f.register,
		WithTickerFactory(func(time.Duration) Ticker {
			ticker := &fakeTicker{ch: make(chan time.Time)}
			f.tickers = append(f.tickers, ticker)
			return ticker
		}),
	)
	t.Cleanup(f.session.Close)
	return f
}

func (f *fixture) tick() {
	f.tickers[len(f.tickers)-1].ch <- time.Now()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func faces(ids ...string) []attendanceapi.RecognizedFace {
	out := make([]attendanceapi.RecognizedFace, 0, len(ids))
	for _, id := range ids {
		out = append(out, attendanceapi.RecognizedFace{StudentID: id, Time: "2024-01-05 09:00:00"})
	}
	return out
}

func TestStartStopReleasesTogether(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.session.Start(ctx); err != nil {
		t.Fatal(err)
	}
	// starting twice keeps the first stream
	if err := f.session.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if len(f.source.streams) != 1 || len(f.tickers) != 1 {
		t.Fatalf("expected 1 stream and 1 ticker, got %d and %d", len(f.source.streams), len(f.tickers))
	}
	if status := f.session.Status(); status.State != StateActive || status.ID == "" {
		t.Fatalf("expected active status with id, got %+v", status)
	}
	if !f.sink.Attached() {
		t.Fatal("expected sink attached")
	}

	f.session.Stop()
	f.session.Stop()

	if !f.source.streams[0].track.stopped.Load() {
		t.Fatal("expected track stopped")
	}
	if !f.tickers[0].stopped.Load() {
		t.Fatal("expected ticker stopped")
	}
	if f.sink.Attached() {
		t.Fatal("expected sink detached")
	}
	if status := f.session.Status(); status.State != StateIdle {
		t.Fatalf("expected idle, got %s", status.State)
	}

	// a stopped session can be started again with fresh resources
	if err := f.session.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if len(f.source.streams) != 2 || len(f.tickers) != 2 {
		t.Fatalf("expected 2 streams and 2 tickers, got %d and %d", len(f.source.streams), len(f.tickers))
	}
	f.session.Close()
	if !f.source.streams[1].track.stopped.Load() || !f.tickers[1].stopped.Load() {
		t.Fatal("expected close to release stream and ticker")
	}
}

func TestStartDenied(t *testing.T) {
	f := newFixture(t)
	f.source.err = camera.ErrPermissionDenied

	if err := f.session.Start(context.Background()); !errors.Is(err, camera.ErrPermissionDenied) {
		t.Fatalf("expected %q, got %v", camera.ErrPermissionDenied, err)
	}
	if status := f.session.Status(); status.State != StateIdle {
		t.Fatalf("expected idle, got %s", status.State)
	}
	if len(f.tickers) != 0 {
		t.Fatalf("expected no ticker, got %d", len(f.tickers))
	}
	f.session.Stop()
}

func TestTickReplacesRegister(t *testing.T) {
	f := newFixture(t,
		fakeResult{faces: faces("s1", "s2")},
		fakeResult{faces: faces("s3")},
	)
	if err := f.session.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	var applied atomic.Int32
	f.session.OnApplied(func(context.Context, []recognitions.Event) {
		applied.Add(1)
	})

	f.tick()
	waitFor(t, "first result", func() bool { return len(f.register.Snapshot().Events) == 2 })
	if f.recognizer.images[0] != "ZnJhbWU=" {
		t.Fatalf("expected base64 frame, got %q", f.recognizer.images[0])
	}

	f.tick()
	waitFor(t, "second result", func() bool { return f.register.Snapshot().Seq == 2 })
	snapshot := f.register.Snapshot()
	if len(snapshot.Events) != 1 || snapshot.Events[0].StudentID != "s3" {
		t.Fatalf("expected only s3, got %+v", snapshot.Events)
	}
	waitFor(t, "callbacks", func() bool { return applied.Load() == 2 })
}

func TestFailureLeavesRegister(t *testing.T) {
	f := newFixture(t,
		fakeResult{faces: faces("s1")},
		fakeResult{err: attendanceapi.ErrUnexpectedStatus},
	)
	if err := f.session.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	f.tick()
	waitFor(t, "first result", func() bool { return f.register.Snapshot().Seq == 1 })
	f.tick()
	waitFor(t, "second call", func() bool { return f.recognizer.Calls() == 2 })
	f.session.Close()

	snapshot := f.register.Snapshot()
	if snapshot.Seq != 1 || len(snapshot.Events) != 1 || snapshot.Events[0].StudentID != "s1" {
		t.Fatalf("expected register unchanged, got %+v", snapshot)
	}
}

func TestStaleResultDiscarded(t *testing.T) {
	slow := make(chan struct{})
	f := newFixture(t,
		fakeResult{gate: slow, faces: faces("old")},
		fakeResult{faces: faces("new")},
	)
	if err := f.session.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	f.tick()
	waitFor(t, "first call", func() bool { return f.recognizer.Calls() == 1 })
	f.tick()
	waitFor(t, "second result", func() bool { return f.register.Snapshot().Seq == 2 })

	// the first request completes after stop and after the newer result
	f.session.Stop()
	close(slow)
	f.session.Close()

	snapshot := f.register.Snapshot()
	if len(snapshot.Events) != 1 || snapshot.Events[0].StudentID != "new" {
		t.Fatalf("expected newer result kept, got %+v", snapshot.Events)
	}
}

func TestInFlightResultDeliveredAfterStop(t *testing.T) {
	slow := make(chan struct{})
	f := newFixture(t, fakeResult{gate: slow, faces: faces("s1")})
	if err := f.session.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	f.tick()
	waitFor(t, "call", func() bool { return f.recognizer.Calls() == 1 })
	f.session.Stop()
	close(slow)
	f.session.Close()

	if snapshot := f.register.Snapshot(); len(snapshot.Events) != 1 {
		t.Fatalf("expected in-flight result applied, got %+v", snapshot.Events)
	}
}
