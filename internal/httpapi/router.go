package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mixer/internal/httpapi/handlers"
	"mixer/internal/httpkit"
	"mixer/internal/pkg/logger"
	"mixer/internal/pkg/middleware"
)

type Deps struct {
	Handlers           handlers.Deps
	Log                *logger.Logger
	CORSAllowedOrigins []string
	// MaxUploadBytes caps POST /mixes bodies.
	MaxUploadBytes int64
}

func NewRouter(d Deps) http.Handler {
	log := d.Log
	if log == nil {
		log = logger.NewDefault()
	}
	if d.Handlers.Log == nil {
		d.Handlers.Log = log
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log))
	r.Use(middleware.Recovery(log))
	r.Use(httpkit.CORS(httpkit.CORSOptions{
		AllowedOrigins: d.CORSAllowedOrigins,
		MaxAgeSeconds:  600,
	}))

	h := handlers.New(d.Handlers)
	wrap := func(fn middleware.ErrorHandlerFunc) http.HandlerFunc {
		return middleware.WrapHandler(log, fn)
	}

	// ---- HEALTH ----
	r.Get("/health", h.Health)

	// ---- MIXES ----
	r.With(middleware.MaxBodySize(d.MaxUploadBytes)).Post("/mixes", wrap(h.PostMix))
	r.Get("/mixes/{mixId}", wrap(h.GetMix))
	r.Get("/mixes/{mixId}/archive", wrap(h.GetArchive))
	r.Get("/mixes/{mixId}/videos/{index}", wrap(h.GetVideo))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpkit.WriteErr(w, http.StatusNotFound, "NOT_FOUND", "route not found", map[string]any{"path": r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpkit.WriteErr(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	return r
}
