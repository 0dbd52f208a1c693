package camera

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newSnapshotServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte("jpeg"))
	}))
	t.Cleanup(server.Close)
	return server
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSnapshotSource(t *testing.T) {
	server := newSnapshotServer(t, http.StatusOK)
	ctx := context.Background()

	stream, err := NewSnapshotSource(discardLogger(), server.URL).Open(ctx)
	if err != nil {
		t.Fatal(err)
	}

	sink := NewLatestFrameSink()
	if _, _, ok := sink.Latest(); ok {
		t.Fatal("expected no frame before capture")
	}
	if _, err := sink.Frame(ctx); !errors.Is(err, ErrNoStream) {
		t.Fatalf("expected %q, got %v", ErrNoStream, err)
	}

	sink.Attach(stream)
	frame, err := sink.Frame(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if string(frame) != "jpeg" {
		t.Fatalf("expected \"jpeg\", got %q", frame)
	}
	if latest, _, ok := sink.Latest(); !ok || string(latest) != "jpeg" {
		t.Fatalf("expected latest frame, got %q (%v)", latest, ok)
	}

	for _, track := range stream.Tracks() {
		track.Stop()
	}
	if _, err := stream.Frame(ctx); !errors.Is(err, ErrStreamStopped) {
		t.Fatalf("expected %q, got %v", ErrStreamStopped, err)
	}

	sink.Detach()
	if sink.Attached() {
		t.Fatal("expected sink detached")
	}
	if _, _, ok := sink.Latest(); ok {
		t.Fatal("expected no frame after detach")
	}
}

func TestSnapshotSourceDenied(t *testing.T) {
	server := newSnapshotServer(t, http.StatusForbidden)
	if _, err := NewSnapshotSource(discardLogger(), server.URL).Open(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected %q, got %v", ErrPermissionDenied, err)
	}
}
