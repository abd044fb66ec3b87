package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Freeeeeet/medbook/internal/model"
	"github.com/Freeeeeet/medbook/internal/service"
)

type doctorRequest struct {
	FullName                string                   `json:"full_name"`
	CancellationPolicy      model.CancellationPolicy `json:"cancellation_policy"`
	DefaultSlotMinutes      int                      `json:"default_slot_minutes"`
	ConsultationFeeCents    int64                    `json:"consultation_fee_cents"`
	RequiresBookingApproval bool                     `json:"requires_booking_approval"`
	Timezone                string                   `json:"timezone"`
	TelegramChatID          *int64                   `json:"telegram_chat_id"`
}

func (req doctorRequest) toModel() *model.Doctor {
	return &model.Doctor{
		FullName:                strings.TrimSpace(req.FullName),
		CancellationPolicy:      req.CancellationPolicy,
		DefaultSlotMinutes:      req.DefaultSlotMinutes,
		ConsultationFeeCents:    req.ConsultationFeeCents,
		RequiresBookingApproval: req.RequiresBookingApproval,
		Timezone:                req.Timezone,
		TelegramChatID:          req.TelegramChatID,
	}
}

type ruleGroupRequest struct {
	Weekdays            []int                  `json:"weekdays"`
	StartTime           model.TimeOfDay        `json:"start_time"`
	EndTime             model.TimeOfDay        `json:"end_time"`
	SlotDurationMinutes int                    `json:"slot_duration_minutes"`
	ConsultationType    model.ConsultationType `json:"consultation_type"`
}

type ruleGroupResponse struct {
	GroupID uuid.UUID             `json:"group_id"`
	Rules   []*model.ScheduleRule `json:"rules"`
}

type overrideRequest struct {
	Date      string           `json:"date"`
	IsBlocked bool             `json:"is_blocked"`
	StartTime *model.TimeOfDay `json:"start_time"`
	EndTime   *model.TimeOfDay `json:"end_time"`
	Reason    string           `json:"reason"`
}

// CreateDoctor handles POST /v1/doctors
func (h *Handler) CreateDoctor(w http.ResponseWriter, r *http.Request) {
	var req doctorRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	doctor, err := h.doctors.RegisterDoctor(r.Context(), req.toModel())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, doctor)
}

// ListDoctors handles GET /v1/doctors
func (h *Handler) ListDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := h.doctors.ListDoctors(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if doctors == nil {
		doctors = []*model.Doctor{}
	}
	writeJSON(w, http.StatusOK, doctors)
}

// GetDoctor handles GET /v1/doctors/{doctorID}
func (h *Handler) GetDoctor(w http.ResponseWriter, r *http.Request) {
	doctorID, err := idParam(r, "doctorID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	doctor, err := h.doctors.GetDoctor(r.Context(), doctorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doctor)
}

// UpdateDoctor handles PUT /v1/doctors/{doctorID}
func (h *Handler) UpdateDoctor(w http.ResponseWriter, r *http.Request) {
	doctorID, err := idParam(r, "doctorID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	var req doctorRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	doctor := req.toModel()
	doctor.ID = doctorID
	if err := h.doctors.UpdateDoctor(r.Context(), doctor); err != nil {
		h.writeError(w, r, err)
		return
	}

	updated, err := h.doctors.GetDoctor(r.Context(), doctorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// CreateRuleGroup handles POST /v1/doctors/{doctorID}/rules
func (h *Handler) CreateRuleGroup(w http.ResponseWriter, r *http.Request) {
	doctorID, err := idParam(r, "doctorID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	var req ruleGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	groupID, rules, err := h.schedule.CreateRuleGroup(r.Context(), service.RuleGroupRequest{
		DoctorID:            doctorID,
		Weekdays:            req.Weekdays,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		SlotDurationMinutes: req.SlotDurationMinutes,
		ConsultationType:    req.ConsultationType,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ruleGroupResponse{GroupID: groupID, Rules: rules})
}

// ListRules handles GET /v1/doctors/{doctorID}/rules
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	doctorID, err := idParam(r, "doctorID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	rules, err := h.schedule.ListRules(r.Context(), doctorID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if rules == nil {
		rules = []*model.ScheduleRule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

// DeactivateRule handles POST /v1/doctors/{doctorID}/rules/{ruleID}/deactivate
func (h *Handler) DeactivateRule(w http.ResponseWriter, r *http.Request) {
	doctorID, ruleID, ok := twoIDs(w, r, "doctorID", "ruleID")
	if !ok {
		return
	}

	if err := h.schedule.DeactivateRule(r.Context(), doctorID, ruleID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteRule handles DELETE /v1/doctors/{doctorID}/rules/{ruleID}
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	doctorID, ruleID, ok := twoIDs(w, r, "doctorID", "ruleID")
	if !ok {
		return
	}

	if err := h.schedule.DeleteRule(r.Context(), doctorID, ruleID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteRuleGroup handles DELETE /v1/doctors/{doctorID}/rule-groups/{groupID}
func (h *Handler) DeleteRuleGroup(w http.ResponseWriter, r *http.Request) {
	doctorID, err := idParam(r, "doctorID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	groupID, err := uuid.Parse(chi.URLParam(r, "groupID"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", "invalid group id")
		return
	}

	if err := h.schedule.DeleteRuleGroup(r.Context(), doctorID, groupID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateOverride handles POST /v1/doctors/{doctorID}/overrides
func (h *Handler) CreateOverride(w http.ResponseWriter, r *http.Request) {
	doctorID, err := idParam(r, "doctorID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	var req overrideRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	override, err := h.schedule.CreateOverride(r.Context(), service.OverrideRequest{
		DoctorID:  doctorID,
		Date:      date,
		IsBlocked: req.IsBlocked,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Reason:    strings.TrimSpace(req.Reason),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, override)
}

// ListOverrides handles GET /v1/doctors/{doctorID}/overrides?from=&to=.
// A single date= narrows the range to one day.
func (h *Handler) ListOverrides(w http.ResponseWriter, r *http.Request) {
	doctorID, err := idParam(r, "doctorID")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	q := r.URL.Query()
	fromRaw, toRaw := q.Get("from"), q.Get("to")
	if date := q.Get("date"); date != "" {
		fromRaw, toRaw = date, date
	}
	from, err := model.ParseDate(fromRaw)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}
	to, err := model.ParseDate(toRaw)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return
	}

	overrides, err := h.schedule.ListOverrides(r.Context(), doctorID, from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if overrides == nil {
		overrides = []*model.AvailabilityOverride{}
	}
	writeJSON(w, http.StatusOK, overrides)
}

// DeleteOverride handles DELETE /v1/doctors/{doctorID}/overrides/{overrideID}
func (h *Handler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	doctorID, overrideID, ok := twoIDs(w, r, "doctorID", "overrideID")
	if !ok {
		return
	}

	if err := h.schedule.DeleteOverride(r.Context(), doctorID, overrideID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func twoIDs(w http.ResponseWriter, r *http.Request, first, second string) (int64, int64, bool) {
	a, err := idParam(r, first)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return 0, 0, false
	}
	b, err := idParam(r, second)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "validation", err.Error())
		return 0, 0, false
	}
	return a, b, true
}
