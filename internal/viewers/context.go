package viewers

import "context"

type key struct{}

var viewerKey key

func NewContext(ctx context.Context, viewer *Viewer) context.Context {
	return context.WithValue(ctx, viewerKey, viewer)
}

func FromContext(ctx context.Context) (*Viewer, bool) {
	v, ok := ctx.Value(viewerKey).(*Viewer)
	return v, ok
}
