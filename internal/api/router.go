// Package api exposes the booking services over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Freeeeeet/medbook/internal/service"
)

type Config struct {
	Bookings *service.BookingService
	Schedule *service.ScheduleService
	Doctors  *service.DoctorService
	Logger   *zap.Logger

	// MetricsHandler serves /metrics when set
	MetricsHandler http.Handler
}

// NewRouter creates a chi router with all routes configured
func NewRouter(cfg Config) http.Handler {
	h := &Handler{
		bookings: cfg.Bookings,
		schedule: cfg.Schedule,
		doctors:  cfg.Doctors,
		logger:   cfg.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(requestLogger(cfg.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/doctors", func(r chi.Router) {
			r.Post("/", h.CreateDoctor)
			r.Get("/", h.ListDoctors)

			r.Route("/{doctorID}", func(r chi.Router) {
				r.Get("/", h.GetDoctor)
				r.Put("/", h.UpdateDoctor)
				r.Get("/slots", h.ListSlots)
				r.Post("/reservations", h.Reserve)

				r.Post("/rules", h.CreateRuleGroup)
				r.Get("/rules", h.ListRules)
				r.Post("/rules/{ruleID}/deactivate", h.DeactivateRule)
				r.Delete("/rules/{ruleID}", h.DeleteRule)
				r.Delete("/rule-groups/{groupID}", h.DeleteRuleGroup)

				r.Post("/overrides", h.CreateOverride)
				r.Get("/overrides", h.ListOverrides)
				r.Delete("/overrides/{overrideID}", h.DeleteOverride)
			})
		})

		r.Get("/patients/{patientID}/bookings", h.ListPatientBookings)

		r.Route("/bookings/{bookingID}", func(r chi.Router) {
			r.Get("/", h.GetBooking)
			r.Post("/cancel", h.CancelBooking)
			r.Post("/approve", h.ApproveBooking)
			r.Post("/reject", h.RejectBooking)
			r.Post("/complete", h.CompleteBooking)
			r.Post("/no-show", h.MarkNoShow)
		})

		r.Post("/payments/events", h.PaymentEvent)
		r.Get("/refunds/quote", h.RefundQuote)
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("Request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Int("status", ww.Status()),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}
