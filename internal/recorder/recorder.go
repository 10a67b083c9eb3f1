package recorder

import "context"

// Delivery kinds stored alongside each key.
const (
	KindNews  = "news"
	KindVideo = "video"
)

// Journal remembers which alerts were already delivered so overlapping
// polling windows do not repeat them. It stores delivery keys only.
type Journal interface {
	WasSent(ctx context.Context, key string) (bool, error)
	MarkSent(ctx context.Context, key, kind string) error
	Close() error
}
