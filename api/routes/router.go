package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plotvista/plotvista-backend/api/controllers"
	webhookcontrollers "github.com/plotvista/plotvista-backend/api/controllers/webhooks"
	"github.com/plotvista/plotvista-backend/api/middleware"
	camerasvc "github.com/plotvista/plotvista-backend/internal/cameras"
	leavesvc "github.com/plotvista/plotvista-backend/internal/leaverequests"
	notifsvc "github.com/plotvista/plotvista-backend/internal/notifications"
	plotsvc "github.com/plotvista/plotvista-backend/internal/plots"
	projectsvc "github.com/plotvista/plotvista-backend/internal/projects"
	usersvc "github.com/plotvista/plotvista-backend/internal/users"
	visitsvc "github.com/plotvista/plotvista-backend/internal/visitrequests"
	"github.com/plotvista/plotvista-backend/pkg/config"
	"github.com/plotvista/plotvista-backend/pkg/enums"
	"github.com/plotvista/plotvista-backend/pkg/logger"
	"github.com/plotvista/plotvista-backend/pkg/metrics"
	"github.com/plotvista/plotvista-backend/pkg/redis"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	database pinger,
	redisClient *redis.Client,
	httpMetrics *metrics.HTTPMetrics,
	userService usersvc.Service,
	projectService projectsvc.Service,
	plotService plotsvc.Service,
	visitService visitsvc.Service,
	leaveService leavesvc.Service,
	cameraService camerasvc.Service,
	notificationService notifsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(),
	)

	// A nil client must stay a nil interface so the middleware can skip it.
	var idempotencyStore middleware.IdempotencyStore
	var bookingLimiter middleware.RateLimiterStore
	var cachePinger pinger
	if redisClient != nil {
		idempotencyStore = redisClient
		bookingLimiter = redisClient
		cachePinger = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, database, cachePinger, logg))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/identity", webhookcontrollers.IdentityWebhook(userService, cfg.IdentityWebhook, redisClient, logg))
	})

	// Public surface: browsing inventory and submitting a visit request need
	// no account. The submit path still honors an identity header when the
	// caller has one.
	r.Group(func(r chi.Router) {
		r.Get("/api/v1/projects", controllers.ListProjects(projectService, logg))
		r.Get("/api/v1/projects/{id}", controllers.GetProject(projectService, logg))
		r.Get("/api/v1/plots", controllers.ListPlots(plotService, logg))
		r.Get("/api/v1/plots/{id}", controllers.GetPlot(plotService, logg))

		r.With(
			middleware.OptionalIdentity(userService, logg),
			middleware.BookingRateLimit(bookingLimiter, cfg.BookingRate, logg),
			middleware.Idempotency(idempotencyStore, logg),
		).Post("/api/v1/visit-requests", controllers.SubmitVisitRequest(visitService, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Identity(userService, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/api/v1/visit-requests", func(r chi.Router) {
			r.Get("/", controllers.ListVisitRequests(visitService, logg))
			r.Get("/{id}", controllers.GetVisitRequest(visitService, logg))
			r.With(middleware.RequireRole(logg, enums.RoleAdmin.String())).
				Patch("/{id}/assign", controllers.AssignVisitRequest(visitService, logg))
			r.With(middleware.RequireRole(logg, enums.RoleManager.String())).
				Post("/{id}/accept", controllers.AcceptVisitRequest(visitService, logg))
			r.With(middleware.RequireRole(logg, enums.RoleManager.String())).
				Post("/{id}/reject", controllers.RejectVisitRequest(visitService, logg))
		})

		r.Route("/api/v1/leave-requests", func(r chi.Router) {
			r.With(middleware.RequireRole(logg, enums.RoleManager.String())).
				Post("/", controllers.SubmitLeaveRequest(leaveService, logg))
			r.Get("/", controllers.ListLeaveRequests(leaveService, logg))
			r.Get("/{id}", controllers.GetLeaveRequest(leaveService, logg))
			r.With(middleware.RequireRole(logg, enums.RoleAdmin.String())).
				Post("/{id}/approve", controllers.ApproveLeaveRequest(leaveService, logg))
			r.With(middleware.RequireRole(logg, enums.RoleAdmin.String())).
				Post("/{id}/reject", controllers.RejectLeaveRequest(leaveService, logg))
		})

		r.Route("/api/v1/cameras", func(r chi.Router) {
			r.Get("/", controllers.ListCameras(cameraService, logg))
			r.Get("/{id}", controllers.GetCamera(cameraService, logg))
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.RoleAdmin.String()))
				r.Post("/", controllers.CreateCamera(cameraService, logg))
				r.Patch("/{id}", controllers.UpdateCamera(cameraService, logg))
				r.Delete("/{id}", controllers.DeleteCamera(cameraService, logg))
			})
		})

		r.Route("/api/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationService, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(notificationService, logg))
			r.Post("/{id}/read", controllers.MarkNotificationRead(notificationService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.RoleAdmin.String()))
			r.Get("/api/v1/managers", controllers.ListManagers(userService, logg))
			r.Post("/api/v1/projects", controllers.CreateProject(projectService, logg))
			r.Post("/api/v1/plots", controllers.CreatePlot(plotService, logg))
			r.Patch("/api/v1/plots/{id}", controllers.UpdatePlot(plotService, logg))
			r.Delete("/api/v1/plots/{id}", controllers.DeletePlot(plotService, logg))
		})
	})

	return r
}
