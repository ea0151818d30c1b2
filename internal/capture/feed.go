// Package capture bridges the external capture front-end to the scan
// classifier. The front-end is an unreliable producer: it may emit the
// same decoded credential repeatedly within milliseconds and may switch
// decode backends; everything here exists to absorb that.
package capture

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Detection is one decoded credential from the capture source.
type Detection struct {
	Credential string
	At         time.Time
}

// Feed is the abstraction over capture transports.
type Feed interface {
	Publish(ctx context.Context, det Detection) error
	Consume(ctx context.Context) (<-chan Detection, error)
}

// InMemory is a bounded channel-backed feed for single-process devices
// and tests.
type InMemory struct {
	ch chan Detection
}

// NewInMemory creates a bounded in-memory feed.
func NewInMemory(size int) *InMemory {
	return &InMemory{ch: make(chan Detection, size)}
}

// Publish enqueues a detection.
func (f *InMemory) Publish(ctx context.Context, det Detection) error {
	select {
	case f.ch <- det:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume returns a channel for the scan loop.
func (f *InMemory) Consume(ctx context.Context) (<-chan Detection, error) {
	out := make(chan Detection)
	go func() {
		defer close(out)
		for {
			select {
			case det := <-f.ch:
				select {
				case out <- det:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// RedisFeed carries detections over a Redis list for kiosk setups where
// the camera decoder runs as a separate process from the engine.
type RedisFeed struct {
	client *redis.Client
	key    string
}

// NewRedisFeed builds a feed using LPUSH/BRPOP semantics.
func NewRedisFeed(client *redis.Client, key string) *RedisFeed {
	if key == "" {
		key = "scanengine:detections"
	}
	return &RedisFeed{client: client, key: key}
}

// Publish enqueues a detection.
func (f *RedisFeed) Publish(ctx context.Context, det Detection) error {
	return f.client.LPush(ctx, f.key, serialize(det)).Err()
}

// Consume streams detections using BRPOP.
func (f *RedisFeed) Consume(ctx context.Context) (<-chan Detection, error) {
	out := make(chan Detection)
	go func() {
		defer close(out)
		for {
			res, err := f.client.BRPop(ctx, 5*time.Second, f.key).Result()
			if err != nil {
				if err == redis.Nil {
					continue
				}
				if ctx.Err() != nil {
					return
				}
				continue
			}
			if len(res) == 2 {
				if det, ok := deserialize(res[1]); ok {
					select {
					case out <- det:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out, nil
}

// serialize frames a detection as unixnano|credential.
func serialize(det Detection) string {
	at := det.At
	if at.IsZero() {
		at = time.Now()
	}
	return strconv.FormatInt(at.UnixNano(), 10) + "|" + det.Credential
}

func deserialize(s string) (Detection, bool) {
	i := strings.IndexByte(s, '|')
	if i < 0 {
		return Detection{}, false
	}
	nanos, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return Detection{}, false
	}
	return Detection{Credential: s[i+1:], At: time.Unix(0, nanos)}, true
}
