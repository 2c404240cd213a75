package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/tutoring-platform/internal/auth"
	"github.com/frahmantamala/tutoring-platform/internal/booking"
	"github.com/frahmantamala/tutoring-platform/internal/payment"
	"github.com/frahmantamala/tutoring-platform/internal/paymentmethod"
	"github.com/frahmantamala/tutoring-platform/internal/session"
	"github.com/frahmantamala/tutoring-platform/internal/transport/middleware"
	"github.com/frahmantamala/tutoring-platform/internal/transport/swagger"
	"github.com/frahmantamala/tutoring-platform/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

type Handlers struct {
	Auth          *auth.Handler
	User          *user.Handler
	PaymentMethod *paymentmethod.Handler
	Payment       *payment.Handler
	Webhook       *payment.WebhookHandler
	Session       *session.Handler
	Booking       *booking.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Webhook != nil {
			r.Post("/webhooks/yookassa", h.Webhook.HandleGatewayWebhook)
			r.Get("/payments/callback", h.Webhook.HandlePaymentCallback)
		}

		// Auth routes
		if h.Auth != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/register", h.Auth.Register)
				sr.Post("/login", h.Auth.Login)
				sr.Post("/refresh", h.Auth.RefreshToken)
				sr.Post("/logout", h.Auth.Logout)
			})
		}

		// Public slot listing (no auth required)
		if h.Booking != nil {
			r.Get("/tutors/{id}/slots", h.Booking.ListSlots)
		}

		if h.Auth != nil {
			// Protected routes that require authentication
			r.Group(func(pr chi.Router) {
				pr.Use(h.Auth.AuthMiddleware)

				// Current user
				if h.User != nil {
					pr.Get("/users/me", h.User.GetProfile)
					pr.Patch("/users/me", h.User.UpdateProfile)
				}

				// Card binding and management, students only
				if h.PaymentMethod != nil {
					pr.Route("/payment-methods", func(cr chi.Router) {
						cr.Use(h.Auth.RequireRole("student"))
						cr.Post("/", h.PaymentMethod.AttachCard)
						cr.Get("/", h.PaymentMethod.ListCards)
						cr.Get("/default", h.PaymentMethod.GetDefaultCard)
						cr.Put("/default", h.PaymentMethod.SetDefaultCard)
						cr.Delete("/{id}", h.PaymentMethod.DeleteCard)
					})
				}

				// Session payments, students only
				if h.Payment != nil {
					pr.Group(func(sr chi.Router) {
						sr.Use(h.Auth.RequireRole("student"))
						sr.Post("/payments/session", h.Payment.PaySession)
						sr.Get("/payments/{id}", h.Payment.GetPaymentStatus)
					})
				}

				// Tutoring sessions
				if h.Session != nil {
					pr.Route("/sessions", func(sr chi.Router) {
						sr.Get("/", h.Session.ListSessions)
						sr.Get("/{id}", h.Session.GetSession)
						sr.Post("/{id}/cancel", h.Session.CancelSession)

						// Tutor-only routes
						sr.Group(func(tr chi.Router) {
							tr.Use(h.Auth.RequireRole("tutor"))
							tr.Post("/", h.Session.CreateSession)
							tr.Post("/{id}/complete", h.Session.CompleteSession)
						})
					})
				}

				// Slots and bookings
				if h.Booking != nil {
					pr.Group(func(tr chi.Router) {
						tr.Use(h.Auth.RequireRole("tutor"))
						tr.Post("/slots", h.Booking.CreateSlot)
					})

					pr.Route("/bookings", func(br chi.Router) {
						br.Use(h.Auth.RequireRole("student"))
						br.Post("/", h.Booking.BookSlot)
						br.Get("/", h.Booking.ListBookings)
						br.Delete("/{id}", h.Booking.CancelBooking)
					})
				}
			})
		}
	})
}
