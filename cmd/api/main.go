package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"example.com/fieldactivity/internal/api"
	"example.com/fieldactivity/internal/auth"
	"example.com/fieldactivity/internal/config"
	"example.com/fieldactivity/internal/domain"
	"example.com/fieldactivity/internal/logger"
	"example.com/fieldactivity/internal/outbox"
	memrepo "example.com/fieldactivity/internal/persistence/memory"
	persistence "example.com/fieldactivity/internal/persistence/postgres"
	memstore "example.com/fieldactivity/internal/storage/memory"
	miniostore "example.com/fieldactivity/internal/storage/minio"
	httptransport "example.com/fieldactivity/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "field-activity: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	mux := http.NewServeMux()

	var (
		repo        domain.ActivityRepository
		store       domain.AttachmentStore
		publicPaths []string
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		repo = memrepo.NewRepository()
		files := memstore.NewStore(cfg.AttachmentBaseURL)
		mux.Handle("GET /files/{path...}", files)
		publicPaths = append(publicPaths, "/files/")
		store = files
		log.Warn("using in-memory store; data is lost on restart")
	default:
		if cfg.AutoMigrate {
			if err := persistence.Migrate(cfg.PostgresURL); err != nil {
				return err
			}
		}
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		repo = persistence.NewRepository(pool, persistence.WithTopic(cfg.OutboxTopic))

		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		bucket, err := miniostore.New(ctx, miniostore.Config{
			Endpoint:      cfg.Minio.Endpoint,
			AccessKey:     cfg.Minio.AccessKey,
			SecretKey:     cfg.Minio.SecretKey,
			Bucket:        cfg.Minio.Bucket,
			UseSSL:        cfg.Minio.UseSSL,
			PublicURL:     cfg.Minio.PublicURL,
			PresignExpiry: cfg.Minio.PresignExpiry,
		}, log)
		if err != nil {
			return fmt.Errorf("attachment store: %w", err)
		}
		store = bucket

		dispatcher := outbox.NewDispatcher(pool, producer, log, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
		g.Go(func() error {
			dispatcher.Start(gctx)
			return nil
		})
	}

	service := domain.NewService(repo, store,
		domain.WithCalendar(cfg.Calendar()),
		domain.WithMaxAttachmentSize(cfg.MaxAttachmentSize),
		domain.WithLogger(log),
	)
	maxRequestBytes := 32 * cfg.MaxAttachmentSize
	api.NewHandler(service,
		api.WithLogger(log),
		api.WithMaxRequestBytes(maxRequestBytes),
	).RegisterRoutes(mux)

	limiter := httptransport.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	g.Go(func() error {
		limiter.Run(gctx, time.Minute)
		return nil
	})

	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}, publicPaths...)
	handler := httptransport.Chain(mux,
		httptransport.RequestID,
		httptransport.AccessLog(log),
		httptransport.CORS(cfg.CORSAllowedOrigins),
		limiter.Middleware,
		authMiddleware.Wrap,
		httptransport.CaptureRoute,
	)

	// The write deadline starts when the request is read, so it covers the
	// upload as well as the response.
	bodyTimeout := httptransport.BodyReadTimeout(maxRequestBytes)
	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:           cfg.HTTPAddress,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       bodyTimeout,
		WriteTimeout:      bodyTimeout + 60*time.Second,
		IdleTimeout:       60 * time.Second,
	}, handler)

	g.Go(func() error {
		log.Info("field-activity listening", "address", cfg.HTTPAddress, "store_driver", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
