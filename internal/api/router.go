package api

import (
	"context"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/kinfolk/internal/api/handlers"
	"github.com/your-org/kinfolk/internal/catalog"
	"github.com/your-org/kinfolk/internal/family"
	"github.com/your-org/kinfolk/internal/media"
	"github.com/your-org/kinfolk/internal/signing"
	"github.com/your-org/kinfolk/internal/storage"
	"github.com/your-org/kinfolk/internal/upload"
)

// ObjectStorage is what the API needs from the bucket holding media.
type ObjectStorage interface {
	upload.ObjectStore
	signing.Signer
	Ping(ctx context.Context) error
}

// EventBus publishes domain events and reports its connection state.
type EventBus interface {
	handlers.EventPublisher
	Ping() error
}

type RouterConfig struct {
	CORSOrigins    []string
	MaxUploadBytes int64
	MaxFiles       int
	MaxAttempts    int
	PublicBaseURL  string
	Store          storage.PersonStore
	Objects        ObjectStorage
	Events         EventBus
	Stager         *upload.Stager
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	// System endpoints
	var eventsPing handlers.Pinger
	if cfg.Events != nil {
		eventsPing = handlers.PingerFunc(func(context.Context) error { return cfg.Events.Ping() })
	}
	systemH := handlers.NewSystemHandler(cfg.Store, cfg.Objects, eventsPing)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")

	factory := media.NewFactory()
	factory.PublicBaseURL = cfg.PublicBaseURL

	deps := handlers.PersonDeps{
		Store:        cfg.Store,
		Resolver:     family.NewResolver(cfg.Store),
		Catalog:      catalog.NewService(cfg.Store, cfg.MaxAttempts),
		Materializer: signing.NewMaterializer(cfg.Objects),
		Factory:      factory,
		Stager:       cfg.Stager,
		Relocator:    upload.NewRelocator(cfg.Objects),
		MaxFiles:     cfg.MaxFiles,
	}
	if cfg.Events != nil {
		deps.Events = cfg.Events
	}
	personH := handlers.NewPersonHandler(deps)

	// Persons
	v1.POST("/persons", BodyLimitMiddleware(cfg.MaxUploadBytes), personH.Create)
	v1.GET("/persons", personH.List)
	v1.GET("/persons/:id", personH.Get)
	v1.GET("/persons/:id/with-children", personH.WithChildren)
	v1.GET("/persons/:id/children", personH.Children)
	v1.GET("/persons/:id/cousins", personH.Cousins)

	// Media
	v1.POST("/persons/:id/media", BodyLimitMiddleware(cfg.MaxUploadBytes), personH.UploadMedia)
	v1.POST("/persons/:id/media/batch", BodyLimitMiddleware(cfg.MaxUploadBytes*int64(max(cfg.MaxFiles, 1))), personH.UploadMediaBatch)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Length", "Content-Type", "X-Category", "X-Mediatype"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
