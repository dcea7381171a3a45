package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/auction-archive/api/controllers"
	"github.com/angelmondragon/auction-archive/api/middleware"
	"github.com/angelmondragon/auction-archive/internal/artworks"
	"github.com/angelmondragon/auction-archive/internal/sessions"
	"github.com/angelmondragon/auction-archive/pkg/config"
	"github.com/angelmondragon/auction-archive/pkg/logger"
	"github.com/angelmondragon/auction-archive/pkg/metrics"
)

// Dependencies bundles what the router needs from cmd/api.
type Dependencies struct {
	Config      *config.Config
	Logger      *logger.Logger
	Sessions    sessions.Service
	Artworks    artworks.Service
	Metrics     *metrics.PipelineMetrics
	Gatherer    prometheus.Gatherer
	RateCounter middleware.RateLimiterStore
	Health      map[string]controllers.Pinger
	// MediaDir and MediaPrefix serve locally stored images; empty disables it.
	MediaDir    string
	MediaPrefix string
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger
	maxBytes := cfg.Media.MaxUploadBytes()

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.Metrics),
		middleware.Recoverer(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Health, logg))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	if deps.MediaDir != "" && deps.MediaPrefix != "" {
		prefix := "/" + trimSlashes(deps.MediaPrefix)
		r.Handle(prefix+"/*", http.StripPrefix(prefix+"/", http.FileServer(http.Dir(deps.MediaDir))))
	}

	sessionStartPolicy := middleware.RateLimitPolicy{
		Name:   "sessions",
		Window: time.Minute,
		Limit:  cfg.Session.StartRateLimitPerMinute,
	}
	extractionPolicy := middleware.RateLimitPolicy{
		Name:   "extraction",
		Window: time.Minute,
		Limit:  cfg.Vision.RateLimitPerMinute,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.RateLimit(sessionStartPolicy, deps.RateCounter, logg)).
			Post("/sessions", controllers.SessionStart(deps.Sessions, cfg, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionAuth(deps.Sessions, cfg.Session.CookieName, logg))

			r.Get("/session", controllers.SessionCurrent(logg))

			r.Route("/extractions", func(r chi.Router) {
				r.With(middleware.RateLimit(extractionPolicy, deps.RateCounter, logg)).
					Post("/", controllers.ExtractionCreate(deps.Sessions, maxBytes, logg))
				r.Get("/pending", controllers.ExtractionPending(deps.Sessions, logg))
				r.Delete("/pending", controllers.ExtractionCancel(deps.Sessions, logg))
			})

			r.Route("/artworks", func(r chi.Router) {
				r.Get("/", controllers.ArtworkList(deps.Artworks, logg))
				r.Post("/", controllers.ArtworkCreate(deps.Sessions, maxBytes, logg))
				r.Get("/authors", controllers.ArtworkAuthors(deps.Artworks, logg))
				r.Get("/{artworkId}", controllers.ArtworkGet(deps.Artworks, logg))
				r.Delete("/{artworkId}", controllers.ArtworkDelete(deps.Artworks, logg))
			})
		})
	})

	return r
}

func trimSlashes(s string) string {
	return strings.Trim(strings.TrimSpace(s), "/")
}
