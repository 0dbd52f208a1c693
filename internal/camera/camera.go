package camera

import (
	"context"
	"errors"
)

var (
	ErrPermissionDenied = errors.New("camera permission denied")
	ErrStreamStopped    = errors.New("stream stopped")
	ErrNoStream         = errors.New("no stream attached")
)

// Source grants access to a camera.
type Source interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an acquired camera. It is released by stopping all of its tracks.
type Stream interface {
	Frame(ctx context.Context) ([]byte, error)
	Tracks() []Track
}

type Track interface {
	Kind() string
	Stop()
}

// Sink displays a stream. Frames are captured from what the sink shows.
type Sink interface {
	Attach(Stream)
	Detach()
	Frame(ctx context.Context) ([]byte, error)
}
