package livequery

import (
	"context"
	"time"

	"github.com/pulsewire/pulse/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
)

// WatchCollection feeds hub invalidations from a MongoDB change stream so
// writes from other processes are observed too. Runs until ctx ends,
// reopening the stream with backoff on failure. Requires the server to be a
// replica set; when Watch is unsupported the watcher logs and gives up,
// leaving local-mutation invalidation in place.
func WatchCollection(ctx context.Context, col *mongo.Collection, h *Hub, name string) {
	go func() {
		backoff := time.Second
		for {
			stream, err := col.Watch(ctx, mongo.Pipeline{})
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warnf("change stream %s: open failed: %v", name, err)
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				if backoff < time.Minute {
					backoff *= 2
				}
				continue
			}
			backoff = time.Second
			for stream.Next(ctx) {
				h.Invalidate(name)
			}
			if err := stream.Err(); err != nil && ctx.Err() == nil {
				logger.Warnf("change stream %s: %v", name, err)
			}
			stream.Close(context.Background())
			if ctx.Err() != nil {
				return
			}
		}
	}()
}
