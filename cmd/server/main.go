// Command server runs the watchpost API: sighting submission, community
// validation, trust escalation, and the operator surface.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"

	"watchpost/internal/audit"
	authzhandler "watchpost/internal/authz/handler"
	authzservice "watchpost/internal/authz/service"
	authzstore "watchpost/internal/authz/store"
	"watchpost/internal/device"
	"watchpost/internal/ingest"
	"watchpost/internal/media"
	"watchpost/internal/platform/config"
	"watchpost/internal/platform/httpserver"
	"watchpost/internal/platform/logger"
	"watchpost/internal/platform/postgres"
	platformredis "watchpost/internal/platform/redis"
	"watchpost/internal/platform/token"
	sightinghandler "watchpost/internal/sighting/handler"
	sightingmetrics "watchpost/internal/sighting/metrics"
	sightingservice "watchpost/internal/sighting/service"
	sightingstore "watchpost/internal/sighting/store"
	httptransport "watchpost/internal/transport/http"
	validationhandler "watchpost/internal/validation/handler"
	validationmetrics "watchpost/internal/validation/metrics"
	validationservice "watchpost/internal/validation/service"
	validationstore "watchpost/internal/validation/store"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when configured, in-memory otherwise.
	var (
		sightings   sightingstore.Store   = sightingstore.NewInMemoryStore()
		validations validationstore.Store = validationstore.NewInMemoryStore()
		principals  authzstore.PrincipalStore
		invites     authzstore.InviteStore
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		sightings = sightingstore.NewPostgres(pool)
		validations = validationstore.NewPostgres(pool)
		principals = authzstore.NewPostgresPrincipalStore(pool)
		invites = authzstore.NewPostgresInviteStore(pool)
		log.Info("using postgres stores")
	} else {
		principals = authzstore.NewInMemoryPrincipalStore()
		invites = authzstore.NewInMemoryInviteStore()
		log.Warn("DATABASE_URL not set, using in-memory stores")
	}

	// Redis, when present, takes over invite storage so TTL expiry is free.
	redisClient, err := platformredis.New(ctx, cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		invites = authzstore.NewRedisInviteStore(redisClient.Client)
		log.Info("using redis invite store")
	}

	// Audit sink: kafka when brokers are configured, structured log otherwise.
	var auditPublisher audit.Publisher = audit.NewLogPublisher(log)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := audit.NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafkaPublisher.Close()
		auditPublisher = kafkaPublisher
		log.Info("audit events go to kafka", "topic", cfg.KafkaTopic)
	}

	// Services.
	sightingSvc, err := sightingservice.New(sightings, validations,
		sightingservice.WithLogger(log),
		sightingservice.WithMetrics(sightingmetrics.New()),
		sightingservice.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		return fmt.Errorf("build sighting service: %w", err)
	}

	validationSvc, err := validationservice.New(validations, sightingSvc,
		validationservice.WithLogger(log),
		validationservice.WithMetrics(validationmetrics.New()),
		validationservice.WithAuditPublisher(auditPublisher),
		validationservice.WithProximityRadius(cfg.ProximityRadiusMeters),
		validationservice.WithLocateTimeout(cfg.GeolocationTimeout),
	)
	if err != nil {
		return fmt.Errorf("build validation service: %w", err)
	}

	jwtSvc := token.NewJWTService(cfg.JWTSigningKey, "watchpost")
	authzSvc, err := authzservice.New(principals, invites, sightingSvc, jwtSvc,
		authzservice.WithLogger(log),
		authzservice.WithAuditPublisher(auditPublisher),
	)
	if err != nil {
		return fmt.Errorf("build authz service: %w", err)
	}

	if email := os.Getenv("BOOTSTRAP_ADMIN_EMAIL"); email != "" {
		if _, err := authzSvc.Bootstrap(ctx, email); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
		log.Info("bootstrap admin ensured")
	}

	ingestSvc, err := ingest.New(sightingSvc, ingest.WithLogger(log))
	if err != nil {
		return fmt.Errorf("build ingest service: %w", err)
	}

	// Media uploads need a bucket; without one the routes stay unmounted.
	var mediaHandler *media.Handler
	if cfg.MediaBucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.MediaRegion))
		if err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
		presigner := s3.NewPresignClient(s3.NewFromConfig(awsCfg))
		mediaSvc, err := media.New(presigner, sightingSvc, cfg.MediaBucket, media.WithLogger(log))
		if err != nil {
			return fmt.Errorf("build media service: %w", err)
		}
		mediaHandler = media.NewHandler(mediaSvc, log)
		log.Info("media uploads enabled", "bucket", cfg.MediaBucket)
	}

	router := httptransport.New(httptransport.Deps{
		Logger:       log,
		JWTValidator: jwtSvc,
		Device:       device.NewService(true),
		AdminToken:   cfg.AdminToken,
		Sightings:    sightinghandler.New(sightingSvc, log),
		Validations:  validationhandler.New(validationSvc, log),
		Authz:        authzhandler.New(authzSvc, log),
		Media:        mediaHandler,
		Ingest:       ingest.NewHandler(ingestSvc, log),
	})

	srv := httpserver.New(cfg.Addr, router, httpserver.Timeouts{
		Write: cfg.HTTPWriteTimeout,
		Idle:  cfg.HTTPIdleTimeout,
	})

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting watchpost", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
