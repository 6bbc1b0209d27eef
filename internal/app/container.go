// Package app wires configuration, storage, messaging and handlers into a
// single container shared by the API server, the worker and the CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	calendarCommands "github.com/marfateam/rcalendar/internal/calendar/application/commands"
	calendarQueries "github.com/marfateam/rcalendar/internal/calendar/application/queries"
	calendarDomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	calendarPersistence "github.com/marfateam/rcalendar/internal/calendar/infrastructure/persistence"
	directoryCommands "github.com/marfateam/rcalendar/internal/directory/application/commands"
	directoryQueries "github.com/marfateam/rcalendar/internal/directory/application/queries"
	directoryDomain "github.com/marfateam/rcalendar/internal/directory/domain"
	directoryPersistence "github.com/marfateam/rcalendar/internal/directory/infrastructure/persistence"
	sharedApplication "github.com/marfateam/rcalendar/internal/shared/application"
	"github.com/marfateam/rcalendar/internal/shared/infrastructure/eventbus"
	"github.com/marfateam/rcalendar/internal/shared/infrastructure/migrations"
	"github.com/marfateam/rcalendar/internal/shared/infrastructure/outbox"
	sharedPersistence "github.com/marfateam/rcalendar/internal/shared/infrastructure/persistence"
	"github.com/marfateam/rcalendar/pkg/config"
	"github.com/marfateam/rcalendar/pkg/observability"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Container holds all application dependencies.
type Container struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics observability.Metrics

	// Database
	DB *pgxpool.Pool

	// Redis (api-key cache, optional)
	RedisClient *redis.Client

	// Repositories
	IntervalRepo     calendarDomain.IntervalRepository
	MembershipRepo   calendarDomain.MembershipRepository
	OrganizationRepo directoryDomain.OrganizationRepository
	ManagerRepo      directoryDomain.ManagerRepository
	ResourceRepo     directoryDomain.ResourceRepository
	APIKeyRepo       directoryDomain.APIKeyRepository
	OutboxRepo       outbox.Repository

	// Publishers
	EventPublisher eventbus.Publisher

	// Unit of Work
	UnitOfWork sharedApplication.UnitOfWork

	// Interval command handlers
	CreateIntervalHandler   *calendarCommands.CreateIntervalHandler
	UpdateIntervalHandler   *calendarCommands.UpdateIntervalHandler
	DeleteIntervalHandler   *calendarCommands.DeleteIntervalHandler
	DeleteManyHandler       *calendarCommands.DeleteManyHandler
	ClearUnavailableHandler *calendarCommands.ClearUnavailableHandler

	// Schedule command handlers
	ApplyScheduleHandler  *calendarCommands.ApplyScheduleHandler
	ExtendScheduleHandler *calendarCommands.ExtendScheduleHandler

	// Membership command handlers
	JoinMembershipHandler    *calendarCommands.JoinMembershipHandler
	DismissMembershipHandler *calendarCommands.DismissMembershipHandler

	// Calendar query handlers
	ResourceIntervalsHandler     *calendarQueries.ResourceIntervalsHandler
	OrganizationIntervalsHandler *calendarQueries.OrganizationIntervalsHandler
	OrganizationViewHandler      *calendarQueries.OrganizationViewHandler
	MembershipViewHandler        *calendarQueries.MembershipViewHandler

	// Directory command handlers
	RegisterOrganizationHandler *directoryCommands.RegisterOrganizationHandler
	RegisterManagerHandler      *directoryCommands.RegisterManagerHandler
	RegisterResourceHandler     *directoryCommands.RegisterResourceHandler
	AddManagersHandler          *directoryCommands.AddManagersHandler
	AddResourcesHandler         *directoryCommands.AddResourcesHandler
	DeleteOrganizationHandler   *directoryCommands.DeleteOrganizationHandler
	DeleteManagerHandler        *directoryCommands.DeleteManagerHandler
	DeleteResourceHandler       *directoryCommands.DeleteResourceHandler
	CreateAPIKeyHandler         *directoryCommands.CreateAPIKeyHandler
	RevokeAPIKeyHandler         *directoryCommands.RevokeAPIKeyHandler
	WipeAppHandler              *directoryCommands.WipeAppHandler

	// Directory query handlers
	ListAPIKeysHandler *directoryQueries.ListAPIKeysHandler

	// Outbox processor
	OutboxProcessor *outbox.Processor

	// Health checks
	Health *observability.HealthRegistry
}

// NewContainer creates and wires all dependencies.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
		// Noop until a metrics backend is configured.
		Metrics: observability.NoopMetrics{},
	}

	// Connect to PostgreSQL
	pool, err := sharedPersistence.NewPool(ctx, cfg.DatabaseURL, int32(cfg.DatabaseMaxConns))
	if err != nil {
		return nil, err
	}
	c.DB = pool
	logger.Info("connected to database")

	if cfg.AutoMigrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		logger.Info("database migrations applied")
	}

	// Connect to Redis (optional in development)
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			if !cfg.IsDevelopment() {
				pool.Close()
				return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
			}
			logger.Warn("invalid Redis URL, api-key lookups go straight to the database", "error", err)
		} else {
			redisClient := redis.NewClient(opt)
			if err := redisClient.Ping(ctx).Err(); err != nil {
				if !cfg.IsDevelopment() {
					pool.Close()
					return nil, fmt.Errorf("failed to connect to Redis: %w", err)
				}
				logger.Warn("Redis not available, api-key lookups go straight to the database", "error", err)
			} else {
				c.RedisClient = redisClient
				logger.Info("connected to Redis")
			}
		}
	}

	// Create repositories
	c.IntervalRepo = calendarPersistence.NewPostgresIntervalRepository(pool)
	c.MembershipRepo = calendarPersistence.NewPostgresMembershipRepository(pool)
	c.OrganizationRepo = directoryPersistence.NewPostgresOrganizationRepository(pool)
	c.ManagerRepo = directoryPersistence.NewPostgresManagerRepository(pool)
	c.ResourceRepo = directoryPersistence.NewPostgresResourceRepository(pool)

	apiKeyRepo := directoryPersistence.NewPostgresAPIKeyRepository(pool)
	if c.RedisClient != nil {
		c.APIKeyRepo = directoryPersistence.NewCachedAPIKeyRepository(apiKeyRepo, c.RedisClient, cfg.APIKeyCacheTTL, logger)
	} else {
		c.APIKeyRepo = apiKeyRepo
	}

	c.OutboxRepo = outbox.NewPostgresRepository(pool)
	c.UnitOfWork = sharedPersistence.NewPostgresUnitOfWork(pool)

	// Create event publisher
	if cfg.RabbitMQURL == "" {
		if cfg.IsProduction() {
			pool.Close()
			return nil, fmt.Errorf("RABBITMQ_URL is required in production")
		}
		logger.Warn("RabbitMQ not configured, using noop publisher")
		c.EventPublisher = eventbus.NewNoopPublisher(logger)
	} else {
		publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			// Fall back to noop publisher in development
			if cfg.IsDevelopment() {
				logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
				c.EventPublisher = eventbus.NewNoopPublisher(logger)
			} else {
				pool.Close()
				return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
		} else {
			c.EventPublisher = publisher
		}
	}

	// Create interval command handlers
	c.CreateIntervalHandler = calendarCommands.NewCreateIntervalHandler(
		c.IntervalRepo, c.MembershipRepo, c.ResourceRepo, c.OrganizationRepo, c.ManagerRepo, c.OutboxRepo, c.UnitOfWork)
	c.UpdateIntervalHandler = calendarCommands.NewUpdateIntervalHandler(
		c.IntervalRepo, c.MembershipRepo, c.ResourceRepo, c.OrganizationRepo, c.ManagerRepo, c.OutboxRepo, c.UnitOfWork)
	c.DeleteIntervalHandler = calendarCommands.NewDeleteIntervalHandler(
		c.IntervalRepo, c.MembershipRepo, c.ResourceRepo, c.OrganizationRepo, c.ManagerRepo, c.OutboxRepo, c.UnitOfWork)
	c.DeleteManyHandler = calendarCommands.NewDeleteManyHandler(c.DeleteIntervalHandler)
	c.ClearUnavailableHandler = calendarCommands.NewClearUnavailableHandler(
		c.IntervalRepo, c.MembershipRepo, c.ResourceRepo, c.OrganizationRepo, c.ManagerRepo, c.OutboxRepo, c.UnitOfWork)

	// Create schedule command handlers
	c.ApplyScheduleHandler = calendarCommands.NewApplyScheduleHandler(
		c.IntervalRepo, c.MembershipRepo, c.ResourceRepo, c.OrganizationRepo, c.OutboxRepo, c.UnitOfWork)
	c.ExtendScheduleHandler = calendarCommands.NewExtendScheduleHandler(
		c.IntervalRepo, c.MembershipRepo, c.ResourceRepo, c.OrganizationRepo, c.OutboxRepo, c.UnitOfWork)

	// Create membership command handlers
	c.JoinMembershipHandler = calendarCommands.NewJoinMembershipHandler(
		c.MembershipRepo, c.ResourceRepo, c.OrganizationRepo, c.UnitOfWork)
	c.DismissMembershipHandler = calendarCommands.NewDismissMembershipHandler(
		c.IntervalRepo, c.MembershipRepo, c.ResourceRepo, c.OrganizationRepo, c.UnitOfWork)

	// Create calendar query handlers
	c.ResourceIntervalsHandler = calendarQueries.NewResourceIntervalsHandler(
		c.IntervalRepo, c.ResourceRepo, c.OrganizationRepo, c.ManagerRepo)
	c.OrganizationIntervalsHandler = calendarQueries.NewOrganizationIntervalsHandler(
		c.IntervalRepo, c.MembershipRepo, c.ResourceRepo, c.OrganizationRepo, c.ManagerRepo)
	c.OrganizationViewHandler = calendarQueries.NewOrganizationViewHandler(c.MembershipRepo, c.OrganizationRepo)
	c.MembershipViewHandler = calendarQueries.NewMembershipViewHandler(c.MembershipRepo, c.ResourceRepo, c.OrganizationRepo)

	// Create directory command handlers
	c.RegisterOrganizationHandler = directoryCommands.NewRegisterOrganizationHandler(c.OrganizationRepo)
	c.RegisterManagerHandler = directoryCommands.NewRegisterManagerHandler(c.ManagerRepo)
	c.RegisterResourceHandler = directoryCommands.NewRegisterResourceHandler(c.ResourceRepo)
	c.AddManagersHandler = directoryCommands.NewAddManagersHandler(c.ManagerRepo, c.OrganizationRepo, c.UnitOfWork)
	c.AddResourcesHandler = directoryCommands.NewAddResourcesHandler(c.ResourceRepo, c.OrganizationRepo, c.MembershipRepo, c.UnitOfWork)
	c.DeleteOrganizationHandler = directoryCommands.NewDeleteOrganizationHandler(c.OrganizationRepo)
	c.DeleteManagerHandler = directoryCommands.NewDeleteManagerHandler(c.ManagerRepo, c.OrganizationRepo)
	c.DeleteResourceHandler = directoryCommands.NewDeleteResourceHandler(c.ResourceRepo)
	c.CreateAPIKeyHandler = directoryCommands.NewCreateAPIKeyHandler(c.APIKeyRepo)
	c.RevokeAPIKeyHandler = directoryCommands.NewRevokeAPIKeyHandler(c.APIKeyRepo)
	c.WipeAppHandler = directoryCommands.NewWipeAppHandler(c.OrganizationRepo, c.ManagerRepo, c.ResourceRepo, c.UnitOfWork)

	// Create directory query handlers
	c.ListAPIKeysHandler = directoryQueries.NewListAPIKeysHandler(c.APIKeyRepo)

	// Create outbox processor
	processorConfig := outbox.ProcessorConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxRetries:   cfg.OutboxMaxRetries,
	}
	c.OutboxProcessor = outbox.NewProcessor(c.OutboxRepo, c.EventPublisher, processorConfig, logger)

	// Register health checks
	c.Health = observability.NewHealthRegistry()
	c.Health.Register("postgres", observability.DatabaseHealthChecker(pool.Ping))
	if c.RedisClient != nil {
		redisClient := c.RedisClient
		c.Health.Register("redis", observability.RedisHealthChecker(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
	}
	if rabbit, ok := c.EventPublisher.(*eventbus.RabbitMQPublisher); ok {
		c.Health.Register("rabbitmq", observability.RabbitMQHealthChecker(rabbit.Ping))
	}

	return c, nil
}

// ExtendSchedules rolls every scheduled membership forward so reserved
// time reaches now plus horizon. It returns how many memberships moved.
// A membership that fails to extend is logged and skipped; the rest
// still roll forward.
func (c *Container) ExtendSchedules(ctx context.Context, horizon time.Duration) (int, error) {
	return observability.TimeOperationResult(ctx, c.Logger, c.Metrics, "schedules.extend", func() (int, error) {
		memberships, err := c.MembershipRepo.ListScheduled(ctx)
		if err != nil {
			return 0, err
		}

		until := time.Now().UTC().Add(horizon)
		extended := 0
		for _, m := range memberships {
			result, err := c.ExtendScheduleHandler.Handle(ctx, calendarCommands.ExtendScheduleCommand{
				Resource:     m.Resource,
				Organization: m.Organization,
				End:          until,
			})
			if err != nil {
				c.Logger.Error("failed to extend schedule",
					"membership", m.ID,
					"error", err)
				continue
			}
			if result.Applied {
				extended++
			}
		}

		if extended > 0 {
			c.Metrics.Counter(observability.MetricSchedulesExtended, int64(extended))
		}
		return extended, nil
	})
}

// Close cleans up all resources.
func (c *Container) Close() {
	if c.OutboxProcessor != nil {
		c.OutboxProcessor.Stop()
	}

	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			c.Logger.Warn("error closing event publisher", "error", err)
		}
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Warn("error closing Redis connection", "error", err)
		}
	}

	if c.DB != nil {
		c.DB.Close()
		c.Logger.Info("PostgreSQL connection closed")
	}
}
