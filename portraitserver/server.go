package portraitserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

type RateLimitConfig struct {
	Enabled     bool
	MaxRequests int
	Window      time.Duration
	// Backend is "file" or "redis".
	Backend string
	Redis   RedisConfig
}

type Config struct {
	Listen     string
	APIKey     string
	UploadsDir string
	// Storage is "disk" or "minio".
	Storage           string
	MinIO             MinIOConfig
	RateLimit         RateLimitConfig
	CORS              CORSConfig
	TrustProxyHeaders bool
	MaxBodyBytes      int64
}

const (
	StorageDisk  = "disk"
	StorageMinIO = "minio"

	RateLimitBackendFile  = "file"
	RateLimitBackendRedis = "redis"

	rateLimitDir = ".rate-limits"

	shutdownTimeout = 30 * time.Second
)

// NewHandler wires the upload endpoint, the portrait reader and health
// behind CORS, request-id and logging middleware. A nil limiter disables
// rate limiting.
func NewHandler(cfg Config, store PortraitStore, limiter *Limiter, logger *zap.Logger) http.Handler {
	upload := Chain(
		rateLimitMiddleware(limiter, cfg.TrustProxyHeaders),
		allowMethod(http.MethodPost),
		apiKeyMiddleware(cfg.APIKey),
	)(uploadPortrait(store, logger, uploadOptions{
		maxBodyBytes: cfg.MaxBodyBytes,
		trustProxy:   cfg.TrustProxyHeaders,
	}))

	mux := http.NewServeMux()
	mux.Handle("/{$}", upload)
	mux.Handle("/api/upload-portrait", upload)
	mux.HandleFunc("/", notFoundHandler)
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/uploads/", portraitReader(store, logger))

	return Chain(requestIDMiddleware, logMiddleware(logger), corsMiddleware(cfg.CORS))(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg Config, logger *zap.Logger) error {
	store, err := newPortraitStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	var limiter *Limiter
	if cfg.RateLimit.Enabled {
		records, closeRecords, err := newRecordStore(cfg)
		if err != nil {
			return err
		}
		defer closeRecords()
		limiter = NewLimiter(records, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, logger)
		logger.Info("rate limiting enabled",
			zap.String("backend", cfg.RateLimit.Backend),
			zap.Int("max_requests", limiter.maxRequests),
			zap.Duration("window", limiter.window))
	}

	srv := &http.Server{
		Addr:         cfg.Listen,
		Handler:      NewHandler(cfg, store, limiter, logger),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("portrait upload server listening",
			zap.String("addr", cfg.Listen),
			zap.String("storage", cfg.Storage))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func newPortraitStore(ctx context.Context, cfg Config, logger *zap.Logger) (PortraitStore, error) {
	switch cfg.Storage {
	case StorageDisk, "":
		return NewDiskStore(cfg.UploadsDir, logger), nil
	case StorageMinIO:
		return NewMinIOStore(ctx, cfg.MinIO, logger)
	default:
		return nil, fmt.Errorf("unknown portrait storage %q", cfg.Storage)
	}
}

func newRecordStore(cfg Config) (RecordStore, func(), error) {
	switch cfg.RateLimit.Backend {
	case RateLimitBackendFile, "":
		return NewFileRecordStore(filepath.Join(cfg.UploadsDir, rateLimitDir)), func() {}, nil
	case RateLimitBackendRedis:
		client := NewRedisClient(cfg.RateLimit.Redis)
		return NewRedisRecordStore(client, cfg.RateLimit.Window), func() { client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown rate limit backend %q", cfg.RateLimit.Backend)
	}
}
