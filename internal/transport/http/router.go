package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-verify-api/internal/application/auth"
	"github.com/go-verify-api/internal/application/verification"
	"github.com/go-verify-api/internal/config"
	"github.com/go-verify-api/internal/domain"
	"github.com/go-verify-api/internal/transport/http/handler"
	appmiddleware "github.com/go-verify-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds background
// work started for the router's lifetime.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// 5 requests/second, burst of 10, on public endpoints that accept codes or send mail.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	verifySvc := verification.NewService(verification.ServiceDeps{
		Codes:   deps.Codes,
		Records: deps.Users,
		CodeTTL: cfg.Verification.CodeTTL,
	})
	authDeps := auth.ServiceDeps{
		Users:        deps.Users,
		Verification: verifySvc,
		Cooldowns:    deps.Cooldowns,
		Mailer:       deps.Mailer,
		SMSSender:    deps.SMSSender,
		BaseURL:      cfg.AppBaseURL,
		SMSEnabled:   cfg.SMSEnabled,
	}
	// A nil *Provider must not become a non-nil interface value.
	if deps.JWTProvider != nil {
		authDeps.JWTProvider = deps.JWTProvider
	}
	authSvc := auth.NewService(authDeps)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Get("/auth/cooldown", authH.CooldownStatus)

		r.Group(func(r chi.Router) {
			r.Use(sensitiveRL.Limit)

			r.Post("/auth/register", authH.Register)
			r.Post("/auth/login", authH.Login)
			r.Post("/auth/verify-email", authH.VerifyEmail)
			r.Get("/auth/verify-email/link", authH.VerifyEmailLink)
			r.Post("/auth/resend-verification", authH.ResendVerification)
			r.Post("/auth/forgot-password", authH.ForgotPassword)
			r.Post("/auth/reset-password", authH.ResetPassword)
		})

		// ── Admin routes ─────────────────────────────────────────────────────
		if deps.JWTProvider != nil {
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.Auth(deps.JWTProvider))
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Delete("/admin/cooldowns/{purpose}/{identifier}", authH.ClearCooldown)
			})
		}
	})

	return r
}
