package server

import (
	"context"
	"fmt"
	"os"
	"storefront/config"
	"storefront/libs"
	"storefront/metrics"
	"storefront/middleware"
	"storefront/repositories"
	"storefront/routes"
	"storefront/services"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	evictionInterval = time.Minute
	purgeInterval    = time.Hour
)

// App is the assembled storefront service.
type App struct {
	Router   *gin.Engine
	Registry *services.SessionRegistry

	logger  *zap.Logger
	closers []func()
}

// New builds every collaborator from cfg and starts the background loops.
// They stop when ctx is cancelled.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app := &App{logger: logger}

	storage, err := app.storage(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	geocoder := libs.NewNominatimClient(libs.NominatimConfig{
		BaseURL:           cfg.GeocoderURL,
		UserAgent:         cfg.GeocoderUserAgent,
		Language:          cfg.GeocoderLanguage,
		RequestsPerSecond: cfg.GeocoderRPS,
		Timeout:           cfg.GeocoderTimeout,
	})
	resolver := services.NewAddressResolver(geocoder, services.AddressDefaults{
		Province:    cfg.DefaultProvince,
		Country:     cfg.DefaultCountry,
		CountryCode: cfg.ExpectedCountryCode,
	}, logger)

	store := libs.NewStoreClient(cfg.StoreAPIURL, 0)

	receipts, err := app.receiptStore(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	var notifier services.OrderNotifier
	if cfg.SMTPEnabled() {
		notifier = libs.NewOrderMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.OrderNotifyTo)
	} else {
		logger.Info("SMTP not configured, order notifications disabled")
	}

	app.Registry = services.NewSessionRegistry(storage, resolver, cfg.SessionIdleTTL, logger)
	go app.Registry.Run(ctx, evictionInterval)

	limiter := middleware.NewIPRateLimiter(2, 5)
	go limiter.Run(ctx, evictionInterval, cfg.SessionIdleTTL)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.MaxMultipartMemory = cfg.MaxUploadSize + 1<<20
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(metrics.Middleware())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORSMiddleware(cfg.OriginURL))

	uploadDir := ""
	if _, local := receipts.(*libs.LocalReceiptStore); local {
		uploadDir = cfg.UploadDir
	}

	routes.SetupRoutes(router, routes.Dependencies{
		Registry: app.Registry,
		Session: middleware.SessionConfig{
			Secret: cfg.SessionSecret,
			TTL:    cfg.StorageTTL,
			Secure: cfg.IsProduction(),
		},
		Products:      services.NewProductService(store, logger),
		Auth:          services.NewAuthService(store, logger),
		Checkout:      services.NewCheckoutService(store, receipts, notifier, cfg.MaxUploadSize, logger),
		Logger:        logger,
		LookupLimiter: limiter,
		UploadDir:     uploadDir,
		MaxUploadSize: cfg.MaxUploadSize,
	})
	app.Router = router

	return app, nil
}

// storage picks the slot backend. An unreachable Redis or Postgres falls
// back to memory so the shop keeps serving.
func (a *App) storage(ctx context.Context, cfg *config.Config) (repositories.StorageFactory, error) {
	switch cfg.StorageBackend {
	case "redis":
		client, err := config.ConnectRedis(ctx, cfg)
		if err != nil {
			a.logger.Warn("redis unavailable, running with in-memory storage", zap.Error(err))
			return repositories.NewMemoryStore(), nil
		}
		a.closers = append(a.closers, func() { client.Close() })
		a.logger.Info("session storage: redis", zap.String("addr", client.Options().Addr))
		return repositories.NewRedisStore(client, cfg.StorageTTL), nil

	case "postgres":
		pool, err := config.ConnectDB(ctx, cfg)
		if err != nil {
			a.logger.Warn("database unavailable, running with in-memory storage", zap.Error(err))
			return repositories.NewMemoryStore(), nil
		}
		a.closers = append(a.closers, pool.Close)
		store := repositories.NewPostgresStore(pool)
		go a.purge(ctx, store, cfg.StorageTTL)
		a.logger.Info("session storage: postgres")
		return store, nil

	case "memory", "":
		a.logger.Info("session storage: memory")
		return repositories.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func (a *App) purge(ctx context.Context, store *repositories.PostgresStore, ttl time.Duration) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeBefore(ctx, time.Now().Add(-ttl))
			if err != nil {
				a.logger.Warn("failed to purge expired slots", zap.Error(err))
				continue
			}
			if n > 0 {
				a.logger.Info("purged expired slots", zap.Int64("rows", n))
			}
		}
	}
}

func (a *App) receiptStore(cfg *config.Config) (services.ReceiptStore, error) {
	if cfg.CloudinaryEnabled() {
		store, err := libs.NewCloudinaryReceiptStore(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		if err != nil {
			return nil, err
		}
		a.logger.Info("receipts: cloudinary", zap.String("folder", cfg.CloudinaryFolder))
		return store, nil
	}

	if err := os.MkdirAll(cfg.UploadDir, os.ModePerm); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	a.logger.Info("receipts: local disk", zap.String("dir", cfg.UploadDir))
	return libs.NewLocalReceiptStore(cfg.UploadDir), nil
}

// Close releases storage connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
