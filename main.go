package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"portrait-upload/golib"
	"portrait-upload/portraitserver"
)

var defaultAllowedOrigins = []string{
	"https://www.owlbear.rodeo",
	"https://owlbear.rodeo",
	"http://localhost:5173",
	"http://localhost:3000",
}

func main() {
	_ = godotenv.Load()

	logger, err := golib.NewLogger(golib.LogConfig{
		Level:      golib.GetEnv("LOG_LEVEL", "info"),
		Path:       golib.GetEnv("LOG_PATH", ""),
		MaxSizeMB:  golib.GetEnvInt("LOG_MAX_SIZE_MB", 100),
		MaxBackups: golib.GetEnvInt("LOG_MAX_BACKUPS", 3),
		MaxAgeDays: golib.GetEnvInt("LOG_MAX_AGE_DAYS", 7),
		Compress:   golib.GetEnvBool("LOG_COMPRESS", false),
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	rateWindow := golib.GetEnvDuration("RATE_LIMIT_WINDOW", portraitserver.DefaultRateLimitWindow)
	cfg := portraitserver.Config{
		Listen:     golib.GetEnv("LISTEN_ADDR", ":8080"),
		APIKey:     golib.GetEnv("PORTRAIT_UPLOAD_API_KEY", ""),
		UploadsDir: golib.GetEnv("UPLOADS_DIR", "uploads"),
		Storage:    golib.GetEnv("PORTRAIT_STORAGE", portraitserver.StorageDisk),
		MinIO: portraitserver.MinIOConfig{
			Endpoint:  golib.GetEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: golib.GetEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: golib.GetEnv("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    golib.GetEnv("MINIO_BUCKET", "portraits"),
			UseSSL:    golib.GetEnvBool("MINIO_USE_SSL", false),
		},
		RateLimit: portraitserver.RateLimitConfig{
			Enabled:     golib.GetEnvBool("RATE_LIMIT_ENABLED", true),
			MaxRequests: golib.GetEnvInt("RATE_LIMIT_MAX_REQUESTS", portraitserver.DefaultRateLimitMax),
			Window:      rateWindow,
			Backend:     golib.GetEnv("RATE_LIMIT_BACKEND", portraitserver.RateLimitBackendFile),
			Redis: portraitserver.RedisConfig{
				Addr:     golib.GetEnv("REDIS_ADDR", "127.0.0.1:6379"),
				Password: golib.GetEnv("REDIS_PASSWORD", ""),
				DB:       golib.GetEnvInt("REDIS_DB", 0),
			},
		},
		CORS: portraitserver.CORSConfig{
			AllowAny:       golib.GetEnvBool("CORS_ALLOW_ANY", false),
			AllowedOrigins: golib.GetEnvList("CORS_ALLOWED_ORIGINS", defaultAllowedOrigins),
			DefaultOrigin:  golib.GetEnv("CORS_DEFAULT_ORIGIN", defaultAllowedOrigins[0]),
		},
		TrustProxyHeaders: golib.GetEnvBool("TRUST_PROXY_HEADERS", false),
		MaxBodyBytes:      int64(golib.GetEnvInt("MAX_BODY_BYTES", 20<<20)),
	}

	if cfg.APIKey == "" {
		logger.Fatal("PORTRAIT_UPLOAD_API_KEY must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if err := portraitserver.Run(ctx, cfg, logger); err != nil {
		logger.Fatal("server", zap.Error(err))
	}
	logger.Info("server stopped", zap.Duration("uptime", time.Since(start)))
}
