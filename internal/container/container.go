// Package container wires the application components together and manages
// their lifecycle.
package container

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aflo-dev/aflo/internal/application/broker"
	"github.com/aflo-dev/aflo/internal/application/dispatcher"
	"github.com/aflo-dev/aflo/internal/application/port"
	"github.com/aflo-dev/aflo/internal/application/service"
	"github.com/aflo-dev/aflo/internal/application/workflow"
	"github.com/aflo-dev/aflo/internal/config"
	"github.com/aflo-dev/aflo/internal/domain/entity"
	"github.com/aflo-dev/aflo/internal/domain/task"
	"github.com/aflo-dev/aflo/internal/infrastructure/mq"
	"github.com/aflo-dev/aflo/internal/infrastructure/persistence/repository"
	"github.com/aflo-dev/aflo/internal/notification"
	"github.com/aflo-dev/aflo/internal/observability"
	"github.com/aflo-dev/aflo/internal/worker"
	"github.com/aflo-dev/aflo/pkg/database"
	"github.com/aflo-dev/aflo/pkg/utils"
)

// Role selects which parts of the system a process runs
type Role string

// Process roles
const (
	RoleAPI    Role = "api"
	RoleWorker Role = "worker"
	RoleAll    Role = "all"
)

// ParseRole validates a role name
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAPI, RoleWorker, RoleAll:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q (want api, worker or all)", s)
}

func (r Role) servesAPI() bool { return r == RoleAPI || r == RoleAll }
func (r Role) runsWorker() bool { return r == RoleWorker || r == RoleAll }

// Container manages all application dependencies and lifecycle. Components
// are initialized in dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	role   Role
	logger *zap.Logger

	// Infrastructure
	db           *database.DB
	repositories *RepositoryBundle
	redisClient  *redis.Client
	cache        port.DefinitionCache
	mailer       *notification.Mailer
	metrics      *observability.Metrics

	// Application
	registry *broker.Registry
	engine   workflow.Engine
	queues   *QueueBundle
	executor *worker.TaskExecutor
	services *ServiceBundle

	// Workers
	workers *worker.Manager

	// Lifecycle
	mu     sync.Mutex
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Tickets   *repository.TicketRepository
	Patterns  *repository.PatternRepository
	Templates *repository.TemplateRepository

	Catalogs        *repository.ResourceRepository[entity.Catalog]
	Goods           *repository.ResourceRepository[entity.Goods]
	CatalogContents *repository.ResourceRepository[entity.CatalogContents]
	CatalogScopes   *repository.ResourceRepository[entity.CatalogScope]
	Prices          *repository.ResourceRepository[entity.Price]
	Contracts       *repository.ResourceRepository[entity.Contract]
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Tickets     service.TicketService
	Definitions service.DefinitionService

	Catalogs        service.ResourceService[entity.Catalog]
	Goods           service.ResourceService[entity.Goods]
	CatalogContents service.ResourceService[entity.CatalogContents]
	CatalogScopes   service.ResourceService[entity.CatalogScope]
	Prices          service.ResourceService[entity.Price]
	Contracts       service.ResourceService[entity.Contract]
}

// ServiceDeps are the inputs of ProvideServices.
type ServiceDeps struct {
	Config      *config.Config
	Repos       *RepositoryBundle
	Engine      workflow.Engine
	Definitions service.DefinitionService
	Queue       port.TaskQueue
	Logger      *zap.Logger
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, role Role, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if role == RoleWorker && cfg.Queue.Mode != config.QueueModeAMQP {
		return nil, fmt.Errorf("role %s requires queue.mode %s", role, config.QueueModeAMQP)
	}

	return &Container{
		config: cfg,
		role:   role,
		logger: logger,
	}, nil
}

// Start initializes all components and begins processing:
// 1. Database and repositories
// 2. Definition cache, mailer and metrics
// 3. Brokers, definitions and the engine
// 4. Task queue and application services
// 5. Definition seeds
// 6. Workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return errors.New("container has been closed")
	}
	if c.ready.Load() {
		return errors.New("container already started")
	}

	ctx, c.cancel = context.WithCancel(ctx)
	c.logger.Info("Starting container initialization", zap.String("role", string(c.role)))

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"database", c.initDatabase},
		{"infrastructure", c.initInfrastructure},
		{"engine", c.initEngine},
		{"services", c.initServices},
		{"definitions", c.seedDefinitions},
		{"workers", c.initWorkers},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			c.closed.Store(true)
			_ = c.teardown()
			return fmt.Errorf("failed to initialize %s: %w", step.name, err)
		}
		c.logger.Info("Initialized", zap.String("step", step.name))
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Swap(true) {
		return errors.New("container already closed")
	}

	c.logger.Info("Closing container")
	c.ready.Store(false)

	if err := c.teardown(); err != nil {
		c.logger.Error("Container closed with errors", zap.Error(err))
		return err
	}
	c.logger.Info("Container closed successfully")
	return nil
}

// teardown releases whatever has been initialized so far
func (c *Container) teardown() error {
	var errs []error

	if c.cancel != nil {
		c.cancel()
	}

	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
	}

	if c.queues != nil {
		if err := c.queues.Dispatcher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close dispatcher: %w", err))
		}
		if c.queues.Publisher != nil {
			if err := c.queues.Publisher.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close publisher: %w", err))
			}
		}
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}

	return errors.Join(errs...)
}

func (c *Container) initDatabase(ctx context.Context) error {
	bundle, err := ProvideDatabase(&c.config.Database, c.logger.Named("database"))
	if err != nil {
		return err
	}
	c.db = bundle.DB

	repos, err := ProvideRepositories(bundle.Tx, c.logger.Named("repository"))
	if err != nil {
		return err
	}
	c.repositories = repos
	return nil
}

func (c *Container) initInfrastructure(ctx context.Context) error {
	definitionCache, client, err := ProvideCache(ctx, &c.config.Cache, c.logger.Named("cache"))
	if err != nil {
		return err
	}
	c.cache, c.redisClient = definitionCache, client

	mailer, err := ProvideMailer(&c.config.Notification, c.logger.Named("notification"))
	if err != nil {
		return err
	}
	c.mailer = mailer

	c.metrics = observability.InitMetrics(prometheus.NewRegistry())
	return nil
}

func (c *Container) initEngine(ctx context.Context) error {
	registry, err := ProvideBrokers(c.repositories, c.mailer, c.logger)
	if err != nil {
		return err
	}
	c.registry = registry

	definitions := service.NewDefinitionService(
		c.repositories.Patterns,
		c.repositories.Templates,
		c.repositories.Tickets,
		registry,
		c.cache,
		c.config.Cache.TTL,
		utils.NewSugaredAdapter(c.logger, "definitions"),
	)
	c.services = &ServiceBundle{Definitions: definitions}

	c.engine = workflow.NewEngine(
		c.repositories.Tickets,
		definitions,
		registry,
		workflow.Config{
			ErrorStatusCode: c.config.Engine.ErrorStatusCode,
			SystemUserID:    c.config.Engine.SystemUserID,
			SystemUserName:  c.config.Engine.SystemUserName,
		},
		c.logger.Named("engine"),
		workflow.WithRecorder(c.metrics),
	)
	c.executor = worker.NewTaskExecutor(c.engine, c.metrics, utils.NewSugaredAdapter(c.logger, "executor"))
	return nil
}

func (c *Container) initServices(ctx context.Context) error {
	queues, err := ProvideQueue(&c.config.Queue, c.role.servesAPI(), c.logger)
	if err != nil {
		return err
	}
	c.queues = queues

	for _, op := range []task.Operation{task.OperationCreate, task.OperationUpdate, task.OperationDelete} {
		queues.Dispatcher.SubscribeNamed(op, "engine", c.executor.Execute)
	}

	c.services = ProvideServices(&ServiceDeps{
		Config:      c.config,
		Repos:       c.repositories,
		Engine:      c.engine,
		Definitions: c.services.Definitions,
		Queue:       queues.Queue,
		Logger:      c.logger,
	})
	return nil
}

func (c *Container) seedDefinitions(ctx context.Context) error {
	return SeedDefinitions(ctx, c.config.Definitions.SeedDirs, c.services.Definitions, c.logger.Named("definitions"))
}

func (c *Container) initWorkers(ctx context.Context) error {
	c.workers = worker.NewManager(utils.NewSugaredAdapter(c.logger, "workers"))

	if c.role.runsWorker() && c.config.Queue.Mode == config.QueueModeAMQP {
		consumer, err := mq.NewConsumer(mqConfig(&c.config.Queue), c.logger.Named("mq"))
		if err != nil {
			return fmt.Errorf("failed to connect consumer: %w", err)
		}
		c.workers.Register(worker.NewTaskWorker(consumer, c.executor, utils.NewSugaredAdapter(c.logger, "task-worker")))
	}

	return c.workers.StartAll(ctx)
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health reports overall health and a status line per component. Cache
// failures degrade to repository reads and do not make the process unhealthy.
func (c *Container) Health(ctx context.Context) (bool, map[string]string) {
	healthy := true
	components := make(map[string]string)

	switch {
	case c.db == nil:
		components["database"] = "not initialized"
		healthy = false
	default:
		if err := c.db.Ping(ctx); err != nil {
			components["database"] = fmt.Sprintf("ping failed: %v", err)
			healthy = false
		} else {
			components["database"] = "ok"
		}
	}

	if c.redisClient != nil {
		if err := c.redisClient.Ping(ctx).Err(); err != nil {
			components["cache"] = fmt.Sprintf("degraded: %v", err)
		} else {
			components["cache"] = "ok"
		}
	} else {
		components["cache"] = "disabled"
	}

	if c.queues != nil {
		components["dispatcher"] = fmt.Sprintf("ok (mode %s, pending %d)", c.config.Queue.Mode, c.queues.Dispatcher.Pending())
	} else {
		components["dispatcher"] = "not initialized"
		healthy = false
	}

	if c.workers != nil && c.workers.Count() > 0 {
		if c.workers.IsRunning() {
			components["workers"] = fmt.Sprintf("running (%d)", c.workers.Count())
		} else {
			components["workers"] = "stopped"
			healthy = false
		}
	}

	return healthy, components
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Metrics returns the Prometheus instruments.
func (c *Container) Metrics() *observability.Metrics {
	return c.metrics
}

// Dispatcher returns the in-process task dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	if c.queues == nil {
		return nil
	}
	return c.queues.Dispatcher
}

// Role returns the process role.
func (c *Container) Role() Role {
	return c.role
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}
