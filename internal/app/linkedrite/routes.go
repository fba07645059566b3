package linkedrite

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/linkedrite/linkedrite/internal/config"
	"github.com/linkedrite/linkedrite/internal/http-server/handlers/login"
	"github.com/linkedrite/linkedrite/internal/http-server/handlers/register"
	"github.com/linkedrite/linkedrite/internal/http-server/handlers/resendverification"
	"github.com/linkedrite/linkedrite/internal/http-server/handlers/resetconfirm"
	"github.com/linkedrite/linkedrite/internal/http-server/handlers/resetrequest"
	"github.com/linkedrite/linkedrite/internal/http-server/handlers/rewrite"
	"github.com/linkedrite/linkedrite/internal/http-server/handlers/setplan"
	"github.com/linkedrite/linkedrite/internal/http-server/handlers/usagehistory"
	"github.com/linkedrite/linkedrite/internal/http-server/handlers/usagestatus"
	"github.com/linkedrite/linkedrite/internal/http-server/handlers/verifyemail"
	"github.com/linkedrite/linkedrite/internal/http-server/mware"
	"github.com/linkedrite/linkedrite/internal/lib/jwt"
	authservice "github.com/linkedrite/linkedrite/internal/services/auth"
	rewriteservice "github.com/linkedrite/linkedrite/internal/services/rewrite"
	subscriptionservice "github.com/linkedrite/linkedrite/internal/services/subscription"
	usageservice "github.com/linkedrite/linkedrite/internal/services/usage"
	"github.com/linkedrite/linkedrite/internal/storage"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, cfg *config.Config, jwtMaker jwt.Maker,
	db *storage.Storage,
	authService *authservice.Service,
	subscriptionService *subscriptionservice.Service,
	usageService *usageservice.Service,
	rewriteService *rewriteservice.Service,
) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Post("/register", register.New(logger, authService).ServeHTTP)
		r.Post("/login", login.New(logger, authService).ServeHTTP)
		r.Get("/verify-email", verifyemail.New(logger, authService).ServeHTTP)
		r.Post("/password-reset", resetrequest.New(logger, authService).ServeHTTP)
		r.Post("/password-reset/confirm", resetconfirm.New(logger, authService).ServeHTTP)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(mware.JWTMiddleware(jwtMaker, logger))
			r.Use(mware.RateLimitMiddleware(rate.Limit(2), 5))
			r.Post("/rewrite", rewrite.New(logger, db, rewriteService, cfg.MinPostLength).ServeHTTP)
			r.Get("/usage", usagestatus.New(logger, db, usageService).ServeHTTP)
			r.Get("/usage/history", usagehistory.New(logger, usageService).ServeHTTP)
			r.Post("/resend-verification", resendverification.New(logger, authService).ServeHTTP)
		})

		// Административные конечные точки
		r.Group(func(r chi.Router) {
			r.Use(mware.JWTMiddleware(jwtMaker, logger))
			r.Use(mware.AdminOnly(logger))
			r.Put("/admin/users/{uid}/plan", setplan.New(logger, subscriptionService).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
