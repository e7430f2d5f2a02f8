package api

import (
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/campusflow/server/internal/api/handlers"
	"github.com/campusflow/server/internal/api/middleware"
	"github.com/campusflow/server/internal/auth"
	"github.com/campusflow/server/internal/config"
	"github.com/campusflow/server/internal/domain/approvals"
	"github.com/campusflow/server/internal/domain/events"
	"github.com/campusflow/server/internal/domain/notifications"
	"github.com/campusflow/server/internal/domain/users"
	"github.com/campusflow/server/internal/email"
	"github.com/campusflow/server/internal/jobs"
	"github.com/campusflow/server/internal/metrics"
	"github.com/campusflow/server/internal/storage/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/riverqueue/river"
	"github.com/rs/zerolog"
)

// Router bundles the HTTP handler with the background-job client so
// the serve command can start and stop the workers alongside the
// server.
type Router struct {
	Handler     http.Handler
	RiverClient *river.Client[pgx.Tx]
}

// NewRouter wires the full request path: repositories, the workflow
// engine, services, the river client and every route with its
// middleware chain.
func NewRouter(cfg config.Config, logger zerolog.Logger, pool *pgxpool.Pool, version, gitCommit, buildDate string) (*Router, error) {
	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return nil, err
	}

	emailService, err := email.NewService(cfg.Email, logger)
	if err != nil {
		return nil, err
	}

	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	workers := jobs.NewWorkers(emailService, repo.Users(), slogLogger)
	riverClient, err := jobs.NewClient(pool, workers, slogLogger)
	if err != nil {
		return nil, err
	}

	notificationService := notifications.NewService(
		repo.Notifications(),
		&jobs.EmailEnqueuer{Client: riverClient},
		logger,
	)
	engine := approvals.NewEngine(repo.Approvals(), notificationService, logger)
	userService := users.NewService(repo.Users(), repo.Tenants(), notificationService, logger)
	eventService := events.NewService(repo.Events(), engine, userService, logger)

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.Issuer)
	env := cfg.Environment

	authHandler := handlers.NewAuthHandler(userService, jwtManager, env)
	eventsHandler := handlers.NewEventsHandler(eventService, env)
	approvalsHandler := handlers.NewApprovalsHandler(engine, env)
	usersHandler := handlers.NewUsersHandler(userService, env)
	notificationsHandler := handlers.NewNotificationsHandler(notificationService, env)
	tenantsHandler := handlers.NewTenantsHandler(repo.Tenants(), env)
	auditHandler := handlers.NewAuditHandler(repo.AuditTrail(), eventService, env)
	health := handlers.NewHealthChecker(pool, riverClient, version, gitCommit)

	limit := middleware.RateLimit(cfg.RateLimit)
	authn := middleware.Authenticate(jwtManager, env)
	adminOnly := middleware.RequireRoles(env, string(users.RoleAdmin))
	reporting := middleware.RequireRoles(env, string(users.RoleAdmin), string(users.RoleManagement))
	tenant := middleware.ResolveTenant(repo.Tenants(), env)

	// public: anonymous, default rate tier, resolves the institution
	// from the X-Institution-Code header when present.
	public := func(h http.Handler) http.Handler {
		return limit(tenant(middleware.PublicRequestSize()(h)))
	}
	// login: anonymous but behind the aggressive credential tier.
	login := func(h http.Handler) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierLogin)(limit(middleware.PublicRequestSize()(h)))
	}
	// authed: bearer token required, generous tier.
	authed := func(h http.Handler) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierAuth)(limit(authn(middleware.PublicRequestSize()(h))))
	}
	admin := func(h http.Handler) http.Handler {
		return middleware.WithRateLimitTierHandler(middleware.TierAuth)(limit(authn(adminOnly(middleware.AdminRequestSize()(h)))))
	}

	mux := http.NewServeMux()
	mux.Handle("/healthz", health.Healthz())
	mux.Handle("/readyz", health.Readyz())
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/version", VersionHandler(version, gitCommit, buildDate))
	mux.Handle("/api/v1/health", health.Health())
	mux.Handle("/api/v1/openapi.json", methodMux(map[string]http.Handler{
		http.MethodGet: public(OpenAPIHandler()),
	}))

	mux.Handle("/api/v1/auth/register", methodMux(map[string]http.Handler{
		http.MethodPost: public(http.HandlerFunc(authHandler.Register)),
	}))
	mux.Handle("/api/v1/auth/login", methodMux(map[string]http.Handler{
		http.MethodPost: login(http.HandlerFunc(authHandler.Login)),
	}))

	mux.Handle("/api/v1/institutions", methodMux(map[string]http.Handler{
		http.MethodGet: public(http.HandlerFunc(tenantsHandler.ListInstitutions)),
	}))
	mux.Handle("/api/v1/departments", methodMux(map[string]http.Handler{
		http.MethodGet: public(http.HandlerFunc(tenantsHandler.ListDepartments)),
	}))

	mux.Handle("/api/v1/events", methodMux(map[string]http.Handler{
		http.MethodGet:  authed(http.HandlerFunc(eventsHandler.List)),
		http.MethodPost: authed(http.HandlerFunc(eventsHandler.Create)),
	}))
	mux.Handle("/api/v1/events/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    authed(http.HandlerFunc(eventsHandler.Get)),
		http.MethodPatch:  authed(http.HandlerFunc(eventsHandler.Update)),
		http.MethodDelete: authed(http.HandlerFunc(eventsHandler.Delete)),
	}))
	mux.Handle("/api/v1/events/{id}/audit", methodMux(map[string]http.Handler{
		http.MethodGet: admin(http.HandlerFunc(auditHandler.EventTrail)),
	}))

	mux.Handle("/api/v1/approvals/mine", methodMux(map[string]http.Handler{
		http.MethodGet: authed(http.HandlerFunc(approvalsHandler.Mine)),
	}))
	mux.Handle("/api/v1/approvals/{id}/approve", methodMux(map[string]http.Handler{
		http.MethodPost: authed(http.HandlerFunc(approvalsHandler.Approve)),
	}))
	mux.Handle("/api/v1/approvals/{id}/reject", methodMux(map[string]http.Handler{
		http.MethodPost: authed(http.HandlerFunc(approvalsHandler.Reject)),
	}))

	mux.Handle("/api/v1/users", methodMux(map[string]http.Handler{
		http.MethodGet:  admin(http.HandlerFunc(usersHandler.List)),
		http.MethodPost: admin(http.HandlerFunc(usersHandler.Create)),
	}))
	mux.Handle("/api/v1/users/{id}", methodMux(map[string]http.Handler{
		http.MethodPatch: admin(http.HandlerFunc(usersHandler.Update)),
	}))

	mux.Handle("/api/v1/notifications", methodMux(map[string]http.Handler{
		http.MethodGet: authed(http.HandlerFunc(notificationsHandler.List)),
	}))
	mux.Handle("/api/v1/notifications/{id}/read", methodMux(map[string]http.Handler{
		http.MethodPost: authed(http.HandlerFunc(notificationsHandler.MarkRead)),
	}))

	mux.Handle("/api/v1/reports/events", methodMux(map[string]http.Handler{
		http.MethodGet: middleware.WithRateLimitTierHandler(middleware.TierAuth)(
			limit(authn(reporting(http.HandlerFunc(eventsHandler.Report))))),
	}))

	handler := middleware.CorrelationID(logger)(
		middleware.RequestLogging(logger)(
			middleware.SecurityHeaders(env == "production")(
				middleware.CORS(cfg.CORS, logger)(
					metrics.HTTPMiddleware(mux)))))

	return &Router{Handler: handler, RiverClient: riverClient}, nil
}

func methodMux(routes map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := routes[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(routes))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(routes map[string]http.Handler) string {
	methods := make([]string, 0, len(routes))
	for method := range routes {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
