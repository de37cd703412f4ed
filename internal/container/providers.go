package container

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aflo-dev/aflo/internal/application/broker"
	"github.com/aflo-dev/aflo/internal/application/dispatcher"
	"github.com/aflo-dev/aflo/internal/application/port"
	"github.com/aflo-dev/aflo/internal/application/service"
	"github.com/aflo-dev/aflo/internal/config"
	"github.com/aflo-dev/aflo/internal/definition"
	"github.com/aflo-dev/aflo/internal/domain/entity"
	"github.com/aflo-dev/aflo/internal/infrastructure/cache"
	"github.com/aflo-dev/aflo/internal/infrastructure/external/lark"
	"github.com/aflo-dev/aflo/internal/infrastructure/mq"
	"github.com/aflo-dev/aflo/internal/infrastructure/persistence/repository"
	"github.com/aflo-dev/aflo/internal/infrastructure/persistence/txn"
	"github.com/aflo-dev/aflo/internal/notification"
	"github.com/aflo-dev/aflo/pkg/database"
	"github.com/aflo-dev/aflo/pkg/utils"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB *database.DB
	Tx *txn.Manager
}

// ProvideDatabase opens the configured database, migrates the schema and
// wraps it in a transaction manager.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}

	db, err := database.New(database.Config{
		Driver:          cfg.Driver,
		DSN:             cfg.DSN,
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		LogSQL:          cfg.LogSQL,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db.DB, logger).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{DB: db, Tx: txn.NewManager(db.DB, logger)}, nil
}

// ProvideRepositories creates all repositories on top of the transaction manager.
func ProvideRepositories(tx *txn.Manager, logger *zap.Logger) (*RepositoryBundle, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}

	return &RepositoryBundle{
		Tickets:   repository.NewTicketRepository(tx, logger),
		Patterns:  repository.NewPatternRepository(tx, logger),
		Templates: repository.NewTemplateRepository(tx, logger),

		Catalogs:        repository.NewResourceRepository[entity.Catalog](tx, logger, "catalog", "region"),
		Goods:           repository.NewResourceRepository[entity.Goods](tx, logger, "goods", "region"),
		CatalogContents: repository.NewResourceRepository[entity.CatalogContents](tx, logger, "catalog_contents", "catalog_id", "goods_id"),
		CatalogScopes:   repository.NewResourceRepository[entity.CatalogScope](tx, logger, "catalog_scope", "catalog_id", "scope"),
		Prices:          repository.NewResourceRepository[entity.Price](tx, logger, "price", "catalog_id", "scope", "currency"),
		Contracts:       repository.NewResourceRepository[entity.Contract](tx, logger, "contract", "project_id", "catalog_id", "application_id", "region"),
	}, nil
}

// ProvideCache connects to Redis when a URL is configured. The returned
// client is nil for the pass-through cache.
func ProvideCache(ctx context.Context, cfg *config.CacheConfig, logger *zap.Logger) (port.DefinitionCache, *redis.Client, error) {
	if cfg.RedisURL == "" {
		logger.Info("Definition cache disabled")
		return cache.Nop{}, nil, nil
	}

	client, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("Definition cache connected", zap.Duration("ttl", cfg.TTL))
	return cache.NewRedisCache(client, cfg.Prefix, logger), client, nil
}

// ProvideMailer delivers through Lark when credentials are configured and
// logs messages otherwise.
func ProvideMailer(cfg *config.NotificationConfig, logger *zap.Logger) (*notification.Mailer, error) {
	var sender port.MessageSender
	larkCfg := lark.Config{AppID: cfg.LarkAppID, AppSecret: cfg.LarkAppSecret}
	if larkCfg.Enabled() {
		sender = lark.NewMessenger(lark.NewSDKClient(larkCfg, logger), logger)
	} else {
		logger.Info("Lark credentials not configured, notifications are logged only")
		sender = notification.NewLogSender(logger)
	}

	var extra map[string]notification.MessageTemplate
	if cfg.TemplatesPath != "" {
		templates, err := notification.LoadTemplates(cfg.TemplatesPath)
		if err != nil {
			return nil, err
		}
		extra = templates
	}

	return notification.NewMailer(sender, extra, logger)
}

// ProvideBrokers registers the built-in brokers.
func ProvideBrokers(repos *RepositoryBundle, mailer port.Mailer, logger *zap.Logger) (*broker.Registry, error) {
	return broker.NewRegistry(
		broker.NewContractBroker(repos.Goods, repos.Catalogs, repos.Contracts, logger.Named("broker.contract")),
		broker.NewNotificationBroker(mailer, logger.Named("broker.notification")),
	)
}

// QueueBundle holds the task queue and what backs it.
type QueueBundle struct {
	Queue      port.TaskQueue
	Dispatcher dispatcher.Dispatcher
	Publisher  *mq.Publisher
}

// ProvideQueue builds the task queue for the configured mode. The in-process
// dispatcher is always created so inline and async modes can run tasks.
func ProvideQueue(cfg *config.QueueConfig, publish bool, logger *zap.Logger) (*QueueBundle, error) {
	d := dispatcher.NewDispatcher(dispatcher.WithLogger(utils.NewSugaredAdapter(logger, "dispatcher")))
	bundle := &QueueBundle{Dispatcher: d}

	switch cfg.Mode {
	case config.QueueModeAsync:
		bundle.Queue = dispatcher.NewAsyncQueue(d)
	case config.QueueModeAMQP:
		if !publish {
			bundle.Queue = dispatcher.NewInlineQueue(d)
			break
		}
		publisher, err := mq.NewPublisher(mqConfig(cfg), logger.Named("mq"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect publisher: %w", err)
		}
		bundle.Publisher = publisher
		bundle.Queue = publisher
	default:
		bundle.Queue = dispatcher.NewInlineQueue(d)
	}
	return bundle, nil
}

// ProvideServices creates the application services.
func ProvideServices(deps *ServiceDeps) *ServiceBundle {
	pagination := service.PaginationConfig{
		DefaultLimit: deps.Config.Pagination.DefaultLimit,
		MaxLimit:     deps.Config.Pagination.MaxLimit,
	}
	repos := deps.Repos
	log := func(component string) service.Logger {
		return utils.NewSugaredAdapter(deps.Logger, component)
	}

	return &ServiceBundle{
		Tickets:     service.NewTicketService(deps.Engine, repos.Tickets, deps.Queue, pagination, log("tickets")),
		Definitions: deps.Definitions,

		Catalogs:        service.NewResourceService[entity.Catalog, *entity.Catalog](repos.Catalogs, "catalog", pagination, log("catalogs")),
		Goods:           service.NewResourceService[entity.Goods, *entity.Goods](repos.Goods, "goods", pagination, log("goods")),
		CatalogContents: service.NewResourceService[entity.CatalogContents, *entity.CatalogContents](repos.CatalogContents, "catalog_contents", pagination, log("catalog_contents")),
		CatalogScopes:   service.NewResourceService[entity.CatalogScope, *entity.CatalogScope](repos.CatalogScopes, "catalog_scope", pagination, log("catalog_scopes")),
		Prices:          service.NewResourceService[entity.Price, *entity.Price](repos.Prices, "price", pagination, log("prices")),
		Contracts:       service.NewResourceService[entity.Contract, *entity.Contract](repos.Contracts, "contract", pagination, log("contracts")),
	}
}

// SeedDefinitions loads the seed directories and creates missing definitions.
func SeedDefinitions(ctx context.Context, dirs []string, defs service.DefinitionService, logger *zap.Logger) error {
	set, err := definition.NewLoader().LoadAll(dirs)
	if err != nil {
		return err
	}
	created, err := defs.Seed(ctx, set.Patterns, set.Templates)
	if err != nil {
		return fmt.Errorf("failed to seed definitions: %w", err)
	}
	logger.Info("Definitions seeded",
		zap.Int("files", len(set.Files)),
		zap.Int("created", created))
	return nil
}

func mqConfig(cfg *config.QueueConfig) mq.Config {
	return mq.Config{
		URL:      cfg.AMQPURL,
		Exchange: cfg.Exchange,
		Queue:    cfg.Queue,
		Prefetch: cfg.Prefetch,
	}
}
