package server

import (
	"fmt"
	"net/http"
	"time"

	httpLogger "github.com/chi-middleware/logrus-logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/tonekit/tonekit/internal"
	"github.com/tonekit/tonekit/pkg/models"
)

var log = internal.GetLogger()

const ReadHeaderTimeout = 5 * time.Second

// Create creates a new HTTP server with the given app state
func Create(appState *models.AppState) *http.Server {
	cfg := appState.Config.Server
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           setupRouter(appState),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
}

func setupRouter(appState *models.AppState) *chi.Mux {
	router := chi.NewRouter()
	router.Use(httpLogger.Logger("router", log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(SendVersion)
	router.Use(middleware.Heartbeat("/healthz"))

	if appState.Config.OTel.Enabled {
		router.Use(
			otelchi.Middleware(
				appState.Config.OTel.ServiceName,
				otelchi.WithChiRoutes(router),
				otelchi.WithRequestMethodInSpanName(true),
			),
		)
	}

	router.Get("/", WelcomeHandler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/convert", ConvertHandler(appState))

		r.Get("/vector-store:search", SearchHandler(appState))
		r.Get("/vector-store/collections", ListCollectionsHandler(appState))
		r.Post("/vector-store/collections", CreateCollectionHandler(appState))
		r.Delete("/vector-store/collections", DropCollectionHandler(appState))
		r.Get("/vector-store/collections:loaded", LoadedCollectionHandler(appState))
		r.Post("/vector-store/collections:load", LoadCollectionHandler(appState))
		r.Post("/vector-store/collections/vectors:load", LoadVectorsHandler(appState))
		r.Get("/vector-store/collections/vectors:count", CountVectorsHandler(appState))
	})

	return router
}

// WelcomeHandler answers the service root.
func WelcomeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		renderJSON(w, map[string]string{"message": "Welcome to tonekit"})
	}
}
