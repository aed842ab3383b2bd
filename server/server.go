// Package server wires the HTTP handlers into a ServeMux and an http.Server.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ecotrace/carbon-tracker/app/activities"
	"github.com/ecotrace/carbon-tracker/app/dashboard"
	"github.com/ecotrace/carbon-tracker/app/factors"
	"github.com/ecotrace/carbon-tracker/app/httpio"
	appstats "github.com/ecotrace/carbon-tracker/app/stats"
	"github.com/ecotrace/carbon-tracker/app/users"
	"github.com/ecotrace/carbon-tracker/auth"
	"github.com/ecotrace/carbon-tracker/catalog"
	"github.com/ecotrace/carbon-tracker/config"
	"github.com/ecotrace/carbon-tracker/footprint"
	"github.com/ecotrace/carbon-tracker/models"
	"github.com/ecotrace/carbon-tracker/stats"
)

// ServerConfig contains tunables for the HTTP server.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// NewServer creates *http.Server with provided handler.
func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// Handlers groups every route handler.
type Handlers struct {
	Users      *users.UserHandler
	Factors    *factors.FactorHandler
	Activities *activities.ActivityHandler
	Dashboard  *dashboard.DashboardHandler
	Stats      *appstats.StatsHandler
	Health     func(ctx context.Context) error
}

// NewHandlers builds the handlers over a gorm connection.
func NewHandlers(db *gorm.DB, cat *catalog.Catalog, cfg config.Config) Handlers {
	usersRepo := models.NewUsersRepository(db)
	factorsRepo := models.NewEmissionFactorsRepository(db)
	activitiesRepo := models.NewActivitiesRepository(db)
	store := footprint.Join(activitiesRepo, factorsRepo)

	return Handlers{
		Users:      users.NewUserHandler(usersRepo, AuthConfig(cfg)),
		Factors:    factors.NewFactorHandler(factorsRepo),
		Activities: activities.NewActivityHandler(activitiesRepo, factorsRepo, cfg.HistoryLimit),
		Dashboard:  dashboard.NewDashboardHandler(store, activitiesRepo, cat),
		Stats:      appstats.NewStatsHandler(stats.NewService(usersRepo, activitiesRepo, stats.NewFormatter(cfg.Locale))),
		Health: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
}

// AuthConfig extracts token settings from cfg.
func AuthConfig(cfg config.Config) auth.Config {
	return auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, TTL: cfg.JWTTTL}
}

// publicPaths are served without a bearer token.
var publicPaths = map[string]bool{
	"/auth/register":    true,
	"/auth/login":       true,
	"/stats":            true,
	"/emission-factors": true,
	"/healthz":          true,
	"/metrics":          true,
}

func isPublic(r *http.Request) bool {
	return publicPaths[r.URL.Path]
}

// NewRouter registers every route and wraps the mux with authentication and
// request logging.
func NewRouter(h Handlers, authCfg auth.Config) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/register", h.Users.HandleRegister)
	mux.HandleFunc("POST /auth/login", h.Users.HandleLogin)
	mux.HandleFunc("GET /me", h.Users.HandleMe)

	mux.HandleFunc("GET /emission-factors", h.Factors.HandleList)

	mux.HandleFunc("POST /activities", h.Activities.HandleCreate)
	mux.HandleFunc("GET /activities", h.Activities.HandleHistory)
	mux.HandleFunc("DELETE /activities/{id}", h.Activities.HandleDelete)

	mux.HandleFunc("GET /footprint/daily", h.Dashboard.HandleDaily)
	mux.HandleFunc("GET /footprint/weekly", h.Dashboard.HandleWeekly)
	mux.HandleFunc("GET /footprint/monthly", h.Dashboard.HandleMonthly)
	mux.HandleFunc("GET /footprint/comparison", h.Dashboard.HandleComparison)
	mux.HandleFunc("GET /recommendations", h.Dashboard.HandleRecommendations)
	mux.HandleFunc("GET /dashboard", h.Dashboard.HandleDashboard)

	mux.HandleFunc("GET /stats", h.Stats.HandleGet)
	mux.HandleFunc("GET /healthz", healthHandler(h.Health))
	mux.Handle("GET /metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(authCfg, isPublic)
	return requestLogger(authMiddleware.Wrap(mux))
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				log.Error().Err(err).Msg("health check failed")
				httpio.WriteError(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		httpio.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
