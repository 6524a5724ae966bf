package portraitserver

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultRateLimitMax    = 10
	DefaultRateLimitWindow = 300 * time.Second
)

// RecordStore holds, per hashed client key, the epoch seconds of accepted requests.
type RecordStore interface {
	Get(ctx context.Context, key string) ([]int64, error)
	Put(ctx context.Context, key string, stamps []int64) error
}

// Limiter is a sliding-window request counter per client.
//
// The read-modify-write on a record is not locked: two concurrent requests
// from one client may both be admitted at the cap.
type Limiter struct {
	store       RecordStore
	maxRequests int
	window      time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

func NewLimiter(store RecordStore, maxRequests int, window time.Duration, logger *zap.Logger) *Limiter {
	if maxRequests <= 0 {
		maxRequests = DefaultRateLimitMax
	}
	if window <= 0 {
		window = DefaultRateLimitWindow
	}
	return &Limiter{store: store, maxRequests: maxRequests, window: window, logger: logger, now: time.Now}
}

// Admit records and accepts the request unless the client already has
// maxRequests accepted requests inside the window. Store failures admit.
func (l *Limiter) Admit(ctx context.Context, clientID string) bool {
	key := clientKey(clientID)
	now := l.now().Unix()

	stamps, err := l.store.Get(ctx, key)
	if err != nil {
		l.logger.Warn("read rate limit record", zap.String("key", key), zap.Error(err))
		stamps = nil
	}

	windowSecs := int64(l.window / time.Second)
	recent := make([]int64, 0, len(stamps)+1)
	for _, ts := range stamps {
		if now-ts < windowSecs {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.maxRequests {
		return false
	}

	recent = append(recent, now)
	if err := l.store.Put(ctx, key, recent); err != nil {
		l.logger.Warn("write rate limit record", zap.String("key", key), zap.Error(err))
	}
	return true
}

// RetryAfter is the hint, in seconds, sent with a rejection.
func (l *Limiter) RetryAfter() int {
	return int(l.window / time.Second)
}

func clientKey(clientID string) string {
	sum := md5.Sum([]byte(clientID))
	return hex.EncodeToString(sum[:])
}
