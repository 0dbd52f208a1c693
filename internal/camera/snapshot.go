package camera

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// SnapshotSource is a network camera serving the current picture as a JPEG on
// every GET of its snapshot URL.
type SnapshotSource struct {
	logger     *slog.Logger
	httpClient http.Client
	url        string
}

func NewSnapshotSource(logger *slog.Logger, url string) *SnapshotSource {
	return &SnapshotSource{
		logger: logger,
		httpClient: http.Client{
			Timeout: 5 * time.Second,
		},
		url: url,
	}
}

func (s *SnapshotSource) Open(ctx context.Context) (Stream, error) {
	stream := &snapshotStream{
		source: s,
		track:  &videoTrack{},
	}
	// the first frame proves access
	if _, err := stream.fetch(ctx); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "camera opened", "url", s.url)
	return stream, nil
}

type snapshotStream struct {
	source *SnapshotSource
	track  *videoTrack
}

func (s *snapshotStream) Tracks() []Track {
	return []Track{s.track}
}

func (s *snapshotStream) Frame(ctx context.Context) ([]byte, error) {
	if s.track.stopped.Load() {
		return nil, ErrStreamStopped
	}
	return s.fetch(ctx)
}

func (s *snapshotStream) fetch(ctx context.Context) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, s.source.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Accept", "image/jpeg")

	resp, err := s.source.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("snapshot: unexpected status: %s", resp.Status)
	}

	frame, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return frame, nil
}

type videoTrack struct {
	stopped atomic.Bool
}

func (t *videoTrack) Kind() string {
	return "video"
}

func (t *videoTrack) Stop() {
	t.stopped.Store(true)
}
