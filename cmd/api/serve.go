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

	"retail-bank/config"
	httpHandler "retail-bank/internal/adapter/http/handler"
	"retail-bank/internal/adapter/messaging/rabbitmq"
	"retail-bank/internal/adapter/storage/memory"
	pgStorage "retail-bank/internal/adapter/storage/postgres"
	redisStorage "retail-bank/internal/adapter/storage/redis"
	"retail-bank/internal/core/ports"
	"retail-bank/internal/service"
	"retail-bank/migrations"
	"retail-bank/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

func serveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve()
		},
	}
}

// repositories groups the storage adapters chosen by database.driver.
type repositories struct {
	users      ports.UserRepository
	accounts   ports.AccountRepository
	kyc        ports.KYCRepository
	ledger     ports.TransactionRepository
	audit      ports.AuditRepository
	transactor ports.DBTransactor
	health     ports.HealthChecker
	close      func()
}

func (a *app) openStorage(ctx context.Context) (*repositories, error) {
	if a.cfg.Database.Driver == config.DriverMemory {
		a.log.Warn().Msg("Using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		return &repositories{
			users:      memory.NewUserRepo(store),
			accounts:   memory.NewAccountRepo(store),
			kyc:        memory.NewKYCRepo(store),
			ledger:     memory.NewTransactionRepo(store),
			audit:      memory.NewAuditRepo(store),
			transactor: store,
			health:     store,
			close:      func() {},
		}, nil
	}

	pool, err := pgStorage.NewPool(ctx, a.cfg.Database, a.log)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if a.cfg.Database.AutoMigrate {
		n, err := migrations.RunOnPool(pool, migrations.Up)
		if err != nil {
			pool.Close()
			return nil, err
		}
		a.log.Info().Int("applied", n).Msg("Migrations applied")
	}
	return &repositories{
		users:      pgStorage.NewUserRepo(pool),
		accounts:   pgStorage.NewAccountRepo(pool),
		kyc:        pgStorage.NewKYCRepo(pool),
		ledger:     pgStorage.NewTransactionRepo(pool),
		audit:      pgStorage.NewAuditRepo(pool),
		transactor: pgStorage.NewTransactor(pool),
		health:     pgStorage.NewHealthCheck(pool),
		close:      pool.Close,
	}, nil
}

func (a *app) openPublisher() (ports.EventPublisher, error) {
	log := logger.Component(a.log, "events")
	if !a.cfg.RabbitMQ.Enabled {
		return rabbitmq.NewNopPublisher(log), nil
	}
	pub, err := rabbitmq.Dial(a.cfg.RabbitMQ.URL, a.cfg.RabbitMQ.Exchange, log)
	if err != nil {
		return nil, err
	}
	a.log.Info().Str("exchange", a.cfg.RabbitMQ.Exchange).Msg("RabbitMQ connected")
	return pub, nil
}

func (a *app) serve() error {
	cfg := a.cfg
	log := a.log

	if cfg.JWT.Secret == "" {
		return errors.New("jwt.secret must be set (RBK_JWT_SECRET)")
	}

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("driver", cfg.Database.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting retail bank API")

	ctx := context.Background()

	repos, err := a.openStorage(ctx)
	if err != nil {
		return err
	}
	defer repos.close()

	checkers := []ports.HealthChecker{repos.health}

	var rateLimitStore ports.RateLimitStore
	if cfg.RateLimit.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		checkers = append(checkers, redisStorage.NewHealthCheck(rdb))
	}

	publisher, err := a.openPublisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	hashSvc := service.NewBcryptHashService(bcrypt.DefaultCost)
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)

	authSvc := service.NewAuthService(repos.users, hashSvc, tokenSvc, logger.Component(log, "auth"))
	accountSvc := service.NewAccountService(
		repos.accounts,
		repos.kyc,
		repos.users,
		repos.transactor,
		service.NewRandomAccountNumbers(),
		cfg.Account.NumberAttempts,
		logger.Component(log, "accounts"),
	)
	approvalSvc := service.NewApprovalService(repos.accounts, publisher, cfg.Approval.AllowReversal, logger.Component(log, "approval"))
	engine := service.NewTransactionEngine(repos.accounts, repos.ledger, repos.transactor, publisher, logger.Component(log, "engine"))
	ledgerSvc := service.NewLedgerService(repos.accounts, repos.ledger, logger.Component(log, "ledger"))
	auditSvc := service.NewAuditService(repos.audit, logger.Component(log, "audit"))

	tracingService := ""
	if cfg.Tracing.Enabled {
		tracingService = cfg.Tracing.ServiceName
	}

	gin.SetMode(cfg.Server.Mode)
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		AuthSvc:        authSvc,
		AccountSvc:     accountSvc,
		ApprovalSvc:    approvalSvc,
		Engine:         engine,
		LedgerSvc:      ledgerSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		AuthPerMin:     cfg.RateLimit.AuthPerMin,
		AccountPerMin:  cfg.RateLimit.AccountPerMin,
		HealthCheckers: checkers,
		AuditSvc:       auditSvc,
		Logger:         log,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		TracingService: tracingService,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
	}
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
