package api

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Freeeeeet/medbook/internal/model"
	"github.com/Freeeeeet/medbook/internal/refund"
	"github.com/Freeeeeet/medbook/internal/service"
)

// Handler serves the booking HTTP API
type Handler struct {
	bookings *service.BookingService
	schedule *service.ScheduleService
	doctors  *service.DoctorService
	logger   *zap.Logger
}

type reserveRequest struct {
	PatientID        int64                  `json:"patient_id"`
	Date             string                 `json:"date"`
	Start            model.TimeOfDay        `json:"start"`
	End              model.TimeOfDay        `json:"end"`
	ConsultationType model.ConsultationType `json:"consultation_type"`
}

type cancelRequest struct {
	Actor   service.Actor `json:"actor"`
	ActorID int64         `json:"actor_id"`
}

type doctorActionRequest struct {
	DoctorID int64 `json:"doctor_id"`
}

type paymentEventRequest struct {
	BookingID int64  `json:"booking_id"`
	Status    string `json:"status"`
}

// ListSlots handles GET /v1/doctors/{doctorID}/slots
func (h *Handler) ListSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := idParam(r, "doctorID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	q := r.URL.Query()
	date, err := model.ParseDate(q.Get("date"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	consultationType := model.ConsultationType(q.Get("consultation_type"))
	if consultationType == "" {
		consultationType = model.ConsultationBoth
	}
	includeUnavailable, _ := strconv.ParseBool(q.Get("include_unavailable"))

	slots, err := h.bookings.ComputeAvailableSlots(r.Context(), doctorID, date, consultationType, includeUnavailable)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if slots == nil {
		slots = []model.Slot{}
	}

	writeJSON(w, http.StatusOK, slots)
}

// Reserve handles POST /v1/doctors/{doctorID}/reservations
func (h *Handler) Reserve(w http.ResponseWriter, r *http.Request) {
	doctorID, err := idParam(r, "doctorID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	var req reserveRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	if req.PatientID <= 0 {
		jsonError(w, http.StatusBadRequest, "validation", "patient_id is required")
		return
	}
	if req.End <= req.Start {
		jsonError(w, http.StatusBadRequest, "validation", "end must be after start")
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	booking, err := h.bookings.ValidateAndReserve(r.Context(), service.ReserveRequest{
		DoctorID:         doctorID,
		PatientID:        req.PatientID,
		Date:             date,
		Start:            req.Start,
		End:              req.End,
		ConsultationType: req.ConsultationType,
		IdempotencyKey:   strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

// GetBooking handles GET /v1/bookings/{bookingID}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := idParam(r, "bookingID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	booking, err := h.bookings.GetBooking(r.Context(), bookingID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// ListPatientBookings handles GET /v1/patients/{patientID}/bookings
func (h *Handler) ListPatientBookings(w http.ResponseWriter, r *http.Request) {
	patientID, err := idParam(r, "patientID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	bookings, err := h.bookings.ListPatientBookings(r.Context(), patientID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}

// CancelBooking handles POST /v1/bookings/{bookingID}/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, err := idParam(r, "bookingID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	var req cancelRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	if req.Actor != service.ActorPatient && req.Actor != service.ActorDoctor {
		jsonError(w, http.StatusBadRequest, "validation", `actor must be "patient" or "doctor"`)
		return
	}

	cancellation, err := h.bookings.CancelBooking(r.Context(), bookingID, req.Actor, req.ActorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cancellation)
}

// ApproveBooking handles POST /v1/bookings/{bookingID}/approve
func (h *Handler) ApproveBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, doctorID, ok := h.doctorAction(w, r)
	if !ok {
		return
	}

	booking, err := h.bookings.ApproveBooking(r.Context(), bookingID, doctorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// RejectBooking handles POST /v1/bookings/{bookingID}/reject
func (h *Handler) RejectBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, doctorID, ok := h.doctorAction(w, r)
	if !ok {
		return
	}

	cancellation, err := h.bookings.RejectBooking(r.Context(), bookingID, doctorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cancellation)
}

// CompleteBooking handles POST /v1/bookings/{bookingID}/complete
func (h *Handler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, doctorID, ok := h.doctorAction(w, r)
	if !ok {
		return
	}

	booking, err := h.bookings.CompleteBooking(r.Context(), bookingID, doctorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// MarkNoShow handles POST /v1/bookings/{bookingID}/no-show
func (h *Handler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	bookingID, doctorID, ok := h.doctorAction(w, r)
	if !ok {
		return
	}

	booking, err := h.bookings.MarkNoShow(r.Context(), bookingID, doctorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handler) doctorAction(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	bookingID, err := idParam(r, "bookingID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return 0, 0, false
	}

	var req doctorActionRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return 0, 0, false
	}
	if req.DoctorID <= 0 {
		jsonError(w, http.StatusBadRequest, "validation", "doctor_id is required")
		return 0, 0, false
	}

	return bookingID, req.DoctorID, true
}

// PaymentEvent handles POST /v1/payments/events sent by the payment collaborator
func (h *Handler) PaymentEvent(w http.ResponseWriter, r *http.Request) {
	var req paymentEventRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	if req.BookingID <= 0 {
		jsonError(w, http.StatusBadRequest, "validation", "booking_id is required")
		return
	}

	var succeeded bool
	switch req.Status {
	case "succeeded":
		succeeded = true
	case "failed":
	default:
		jsonError(w, http.StatusBadRequest, "validation", `status must be "succeeded" or "failed"`)
		return
	}

	booking, err := h.bookings.HandlePaymentEvent(r.Context(), req.BookingID, succeeded)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// RefundQuote handles GET /v1/refunds/quote
func (h *Handler) RefundQuote(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	policy := model.CancellationPolicy(q.Get("policy"))
	if !policy.Valid() {
		jsonError(w, http.StatusBadRequest, "validation", "unknown cancellation policy")
		return
	}
	hours, err := strconv.ParseFloat(q.Get("hours"), 64)
	if err != nil || math.IsNaN(hours) || math.IsInf(hours, 0) {
		jsonError(w, http.StatusBadRequest, "validation", "hours must be a number")
		return
	}
	total, err := strconv.ParseInt(q.Get("total_cents"), 10, 64)
	if err != nil || total < 0 {
		jsonError(w, http.StatusBadRequest, "validation", "total_cents must be a non-negative integer")
		return
	}

	writeJSON(w, http.StatusOK, refund.NewQuote(policy, hours, total))
}
