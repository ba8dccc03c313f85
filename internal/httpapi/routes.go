package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-server/internal/data"
	"github.com/DoyleJ11/arena-server/internal/lobby"
	"github.com/DoyleJ11/arena-server/internal/ws"
)

type Deps struct {
	Lobby   *lobby.Lobby
	Catalog *data.Catalog
	Matches MatchHistory // nil when the archive is disabled
	WS      ws.Options
	Log     *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	base := d.Log
	if base == nil {
		base = zap.NewNop()
	}
	d.Log = base.Named("http")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(d.Lobby, d.WS, base))

	r.Group(func(r chi.Router) {
		r.Use(requestLogger(d.Log))
		r.Post("/rooms", CreateRoom(d))
		r.Get("/rooms", ListRooms(d))
		if d.Catalog != nil {
			r.Get("/catalog", Catalog(d))
		}
		if d.Matches != nil {
			r.Get("/matches", RecentMatches(d))
		}
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
