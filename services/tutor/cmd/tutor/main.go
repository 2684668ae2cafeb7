package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"tutorcore/internal/identity"
	"tutorcore/internal/ratelimit"
	"tutorcore/internal/util"
	"tutorcore/pkg/ledger"
	"tutorcore/pkg/storage"
	"tutorcore/pkg/store"
	"tutorcore/services/tutor/internal/app"
	"tutorcore/services/tutor/internal/config"
	"tutorcore/services/tutor/internal/server"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)
	jwtLeeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
	if err != nil {
		log.Fatalf("failed to parse jwt leeway: %v", err)
	}
	trustedProxies, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		log.Fatalf("failed to parse trusted proxies: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	profiles, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init profile store: %v", err)
	}
	defer profiles.Close()

	buckets := cfg.Buckets
	if !slices.Contains(buckets, cfg.DefaultBucket) {
		buckets = append(buckets, cfg.DefaultBucket)
	}
	blobs, err := storage.NewMinioStore(storage.MinioConfig{
		Endpoint:      cfg.MinioEndpoint,
		AccessKey:     cfg.MinioAccessKey,
		SecretKey:     cfg.MinioSecretKey,
		UseSSL:        cfg.MinioUseSSL,
		Buckets:       buckets,
		PublicBaseURL: cfg.PublicBaseURL,
	})
	if err != nil {
		log.Fatalf("failed to init blob store: %v", err)
	}

	uploadLedger, err := ledger.NewRedisLedger(ledger.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		Stream:   cfg.LedgerStream,
	})
	if err != nil {
		log.Fatalf("failed to init upload ledger: %v", err)
	}
	defer uploadLedger.Close()

	var uploadLimiter ratelimit.Limiter = ratelimit.Unlimited{}
	if cfg.UploadRateLimitPerMinute > 0 {
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "tutor:ratelimit:upload", cfg.UploadRateLimitPerMinute, time.Minute)
		if err != nil {
			log.Fatalf("failed to init upload rate limiter: %v", err)
		}
		defer limiter.Close()
		uploadLimiter = limiter
	}

	revoker := identity.NewRedisRevoker(cfg.RedisAddr, cfg.RedisPassword, "tutor:revoked")
	defer revoker.Close()
	tokenVerifier, err := identity.NewVerifier(ctx, identity.Config{
		JWKSURL:    cfg.AuthJWKSURL,
		Issuer:     cfg.JWTIssuer,
		Audience:   cfg.JWTAudience,
		Leeway:     jwtLeeway,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		Revoker:    revoker,
	})
	if err != nil {
		log.Fatalf("failed to init jwks verifier: %v", err)
	}

	appCore, err := app.New(app.Config{
		Profiles:      profiles,
		Blobs:         blobs,
		Ledger:        uploadLedger,
		UploadLimiter: uploadLimiter,
		Buckets:       buckets,
		DefaultBucket: cfg.DefaultBucket,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:             appCore,
		TokenVerifier:   tokenVerifier,
		TrustedProxies:  trustedProxies,
		MaxRequestBytes: cfg.MaxRequestBytes,
		Pinger:          profiles,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("tutor server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
	slog.Info("tutor server stopped")
}
