package di

import (
	"context"
	"fmt"
	"time"

	"emotion-character-demo/backend/ai"
	"emotion-character-demo/backend/internal/repository"
	"emotion-character-demo/backend/internal/service"
	"emotion-character-demo/backend/internal/ws"
	"emotion-character-demo/backend/pkg/config"
	"emotion-character-demo/backend/pkg/health"
	"emotion-character-demo/backend/pkg/jwt"
	"emotion-character-demo/backend/pkg/lock"
	"emotion-character-demo/backend/pkg/logger"
	"emotion-character-demo/backend/pkg/middleware"
	"emotion-character-demo/backend/pkg/resilience"
	"emotion-character-demo/backend/pkg/secrets"
	sharedredis "emotion-character-demo/backend/shared/redis"

	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

const jwtIssuer = "emotion-character-backend"

// Container holds all the dependencies for the application
type Container struct {
	Config *config.Config
	DB     *gorm.DB
	Logger *logger.Logger

	JWTService *jwt.Service
	Repos      *repository.Repositories
	Secrets    secrets.Manager
	Generator  ai.Generator
	Locker     lock.Locker
	Redis      *sharedredis.RedisClient

	CharacterService      *service.CharacterService
	ConversationService   *service.ConversationService
	EmotionService        *service.EmotionService
	CreditService         *service.CreditService
	RecommendationService *service.RecommendationService
	Orchestrator          *service.ChatOrchestrator

	Hub         *ws.Hub
	Health      *health.Checker
	RateLimiter *middleware.RateLimiter
}

// Option overrides a dependency before the services are wired, mainly for tests
type Option func(*Container)

// WithGenerator replaces the Gemini client
func WithGenerator(g ai.Generator) Option {
	return func(c *Container) { c.Generator = g }
}

// New creates a new dependency injection container
func New(cfg *config.Config, db *gorm.DB, log *logger.Logger, opts ...Option) (*Container, error) {
	if log == nil {
		log = logger.GetGlobal()
	}

	c := &Container{
		Config: cfg,
		DB:     db,
		Logger: log,
	}
	for _, opt := range opts {
		opt(c)
	}

	jwtService, err := jwt.NewService(cfg.JWT.Secret, cfg.JWT.ExpiryHours, jwtIssuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT service: %w", err)
	}
	c.JWTService = jwtService

	if c.Secrets, err = newSecrets(cfg, log); err != nil {
		return nil, err
	}

	if c.Generator == nil {
		c.Generator = newGenerator(cfg, c.Secrets, log)
	}

	if err := c.setupLocker(); err != nil {
		return nil, err
	}

	c.Repos = repository.New(db, cfg.Credits.InitialGrant)

	c.CharacterService = service.NewCharacterService(c.Repos, log)
	c.ConversationService = service.NewConversationService(c.Repos, c.CharacterService, log)
	c.EmotionService = service.NewEmotionService(c.Repos, log)
	c.CreditService = service.NewCreditService(c.Repos.Credits, cfg.Credits.TurnCost)
	c.RecommendationService = service.NewRecommendationService(
		c.Repos,
		cfg.Recommendation.KeywordCacheTTL,
		cfg.Recommendation.KeywordCacheSize,
		log,
	)
	c.Orchestrator = service.NewChatOrchestrator(c.Repos, c.Generator, c.Locker, service.OrchestratorConfig{
		TurnCost:      cfg.Credits.TurnCost,
		MaxMessageLen: cfg.Credits.MaxMessageLen,
		MaxAttempts:   cfg.Generation.MaxAttempts,
		BackoffBase:   cfg.Generation.BackoffBase,
		BackoffMax:    cfg.Generation.BackoffMax,
	}, log)

	c.Hub = ws.NewHub()
	c.RateLimiter = middleware.NewRateLimiter(log, middleware.RateLimiterOptions{
		Limit:          rate.Limit(cfg.Security.RateLimit),
		Burst:          cfg.Security.RateLimitBurst,
		ExpiryDuration: time.Hour,
		KeyFunc:        middleware.UserOrIPKey,
	})
	c.Health = c.newHealthChecker()

	log.Info("Dependency container initialized",
		"model", cfg.Generation.Model,
		"lock_backend", cfg.Lock.Backend,
		"vault", cfg.Vault.Enabled,
	)
	return c, nil
}

func newSecrets(cfg *config.Config, log *logger.Logger) (secrets.Manager, error) {
	if !cfg.Vault.Enabled {
		return secrets.StaticManager{}, nil
	}
	vm, err := secrets.NewVaultManager(secrets.VaultConfig{
		Enabled:     true,
		Address:     cfg.Vault.Address,
		Token:       cfg.Vault.Token,
		Namespace:   cfg.Vault.Namespace,
		Mount:       cfg.Vault.Mount,
		SecretsPath: cfg.Vault.SecretsPath,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault manager: %w", err)
	}
	return vm, nil
}

func newGenerator(cfg *config.Config, sm secrets.Manager, log *logger.Logger) ai.Generator {
	gc := ai.DefaultGeminiConfig()
	gc.Model = cfg.Generation.Model
	gc.APIKeyName = cfg.Generation.APIKeyName
	gc.Temperature = float32(cfg.Generation.Temperature)
	gc.TopP = float32(cfg.Generation.TopP)
	gc.TopK = float32(cfg.Generation.TopK)
	gc.MaxOutputTokens = int32(cfg.Generation.MaxOutputTokens)
	gc.CallTimeout = cfg.Generation.CallTimeout

	var gen ai.Generator = ai.NewGeminiGenerator(gc, sm, log)
	if cfg.Generation.BreakerEnabled {
		gen = ai.NewBreakerGenerator(gen, cfg.Generation.BreakerTimeout, log)
	}
	return gen
}

func (c *Container) setupLocker() error {
	switch c.Config.Lock.Backend {
	case "", "memory":
		c.Locker = lock.NewKeyedMutex()
	case "redis":
		client := sharedredis.NewRedisClient(sharedredis.Options{
			Addr:     c.Config.Redis.Addr,
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		c.Redis = client
		c.Locker = lock.NewRedisLocker(client, c.Config.Lock.TTL, c.Config.Lock.Wait)
	default:
		return fmt.Errorf("unknown lock backend %q", c.Config.Lock.Backend)
	}
	return nil
}

func (c *Container) newHealthChecker() *health.Checker {
	checker := health.NewChecker(c.Logger, 30*time.Second)

	checker.RegisterPing("database", true, func(ctx context.Context) error {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	})

	if c.Redis != nil {
		checker.RegisterPing("redis", true, c.Redis.Ping)
	}

	if b, ok := c.Generator.(*ai.BreakerGenerator); ok {
		checker.RegisterCheck("generator", false, func(context.Context) (health.Status, string, error) {
			counts := b.Counts()
			detail := fmt.Sprintf("%v consecutive failures", counts["consecutive_failures"])
			switch b.State() {
			case resilience.StateOpen:
				return health.StatusDown, "circuit open, " + detail, nil
			case resilience.StateHalfOpen:
				return health.StatusDegraded, "circuit half-open, " + detail, nil
			default:
				return health.StatusUp, "closed, " + detail, nil
			}
		})
	}

	checker.RegisterCheck("websocket", false, func(context.Context) (health.Status, string, error) {
		return health.StatusUp, fmt.Sprintf("%d open connections", c.Hub.Count()), nil
	})

	return checker
}

// Close releases background resources. The database is closed by the caller.
func (c *Container) Close() {
	if c.Hub != nil {
		c.Hub.CloseAll()
	}
	if c.RateLimiter != nil {
		c.RateLimiter.Close()
	}
	if c.RecommendationService != nil {
		c.RecommendationService.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.LogError(err, "Failed to close redis client")
		}
	}
}
