package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/campuskit/iam-service/internal/core/port"
	"github.com/campuskit/iam-service/internal/infra/config"
	"github.com/campuskit/iam-service/internal/infra/database"
	kafkainfra "github.com/campuskit/iam-service/internal/infra/kafka"
	"github.com/campuskit/iam-service/internal/infra/logger"
	redisinfra "github.com/campuskit/iam-service/internal/infra/redis"
	"github.com/campuskit/iam-service/internal/infra/security"
	postgresrepo "github.com/campuskit/iam-service/internal/repository/postgres"
	redisrepo "github.com/campuskit/iam-service/internal/repository/redis"
	"github.com/campuskit/iam-service/internal/transport/http/middleware"
	"github.com/campuskit/iam-service/internal/transport/http/routes"
	"github.com/campuskit/iam-service/internal/usecase"
)

type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
	events port.EventPublisher
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	argonCfg := security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	}
	if err := security.ConfigureArgon2(argonCfg); err != nil {
		return nil, fmt.Errorf("configure argon2: %w", err)
	}

	issuer, err := security.NewTokenIssuer(cfg.Token.Secret, cfg.Token.Issuer, cfg.Token.AccessTokenTTL, cfg.Token.RefreshGrace)
	if err != nil {
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	revocationStore := redisrepo.NewRevocationRepository(redisClient.Client(), cfg.Redis.RevocationPrefix)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	rateLimitStore := redisrepo.NewRateLimitRepository(redisClient.Client(), redisrepo.SlidingWindowConfig{
		KeyPrefix: cfg.Redis.RateLimitPrefix,
		TTL:       rateLimitWindow * 2,
	})

	rateLimiter := middleware.NewRateLimiter(rateLimitStore, log)

	repos := postgresrepo.NewRepositories(pool)

	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer, err := kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(kafkaProducer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	credentialStore := security.NewPasswordCredentialStore(repos.Subjects)
	passwordValidator := security.DefaultPasswordValidator()

	sessionService := usecase.NewSessionService(
		cfg,
		credentialStore,
		repos.Subjects,
		repos.Roles,
		repos.Permissions,
		revocationStore,
		rateLimitStore,
		issuer,
		eventPublisher,
	)
	invitationService := usecase.NewInvitationService(cfg, repos.Invitations, repos.Subjects, repos.Roles, repos, passwordValidator, eventPublisher)
	roleService := usecase.NewRoleService(repos.Roles, repos.Permissions, repos.Subjects)
	permissionService := usecase.NewPermissionService(repos.Permissions)
	subjectService := usecase.NewSubjectService(repos.Subjects, repos.Roles, eventPublisher)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Sessions:    sessionService,
			Invitations: invitationService,
			Roles:       roleService,
			Permissions: permissionService,
			Subjects:    subjectService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
		events: eventPublisher,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.events != nil {
			if err := a.events.Close(); err != nil {
				a.logger.Warn("failed to close event publisher", zap.Error(err))
			}
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting IAM API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
