package camera

import (
	"context"
	"slices"
	"sync"
	"time"
)

// LatestFrameSink shows the attached stream and remembers the last frame
// captured through it for previews.
type LatestFrameSink struct {
	guard    sync.Mutex
	stream   Stream
	frame    []byte
	frameAt  time.Time
	attached bool
}

func NewLatestFrameSink() *LatestFrameSink {
	return &LatestFrameSink{}
}

func (s *LatestFrameSink) Attach(stream Stream) {
	s.guard.Lock()
	defer s.guard.Unlock()
	s.stream = stream
	s.attached = true
}

func (s *LatestFrameSink) Detach() {
	s.guard.Lock()
	defer s.guard.Unlock()
	s.stream = nil
	s.attached = false
	s.frame = nil
	s.frameAt = time.Time{}
}

func (s *LatestFrameSink) Attached() bool {
	s.guard.Lock()
	defer s.guard.Unlock()
	return s.attached
}

func (s *LatestFrameSink) Frame(ctx context.Context) ([]byte, error) {
	s.guard.Lock()
	stream := s.stream
	s.guard.Unlock()
	if stream == nil {
		return nil, ErrNoStream
	}

	frame, err := stream.Frame(ctx)
	if err != nil {
		return nil, err
	}

	s.guard.Lock()
	// the stream may have been detached while the frame was read
	if s.stream == stream {
		s.frame = frame
		s.frameAt = time.Now()
	}
	s.guard.Unlock()
	return frame, nil
}

// Latest returns the last captured frame, if any.
func (s *LatestFrameSink) Latest() ([]byte, time.Time, bool) {
	s.guard.Lock()
	defer s.guard.Unlock()
	if s.frame == nil {
		return nil, time.Time{}, false
	}
	return slices.Clone(s.frame), s.frameAt, true
}
