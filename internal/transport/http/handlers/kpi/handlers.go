package kpihandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"kpitrack/internal/domain/audit"
	"kpitrack/internal/domain/auth"
	"kpitrack/internal/domain/kpi"
	"kpitrack/internal/transport/http/api"
	"kpitrack/internal/transport/http/middleware"
	"kpitrack/internal/transport/http/shared"
)

// ReportObserver counts served reports by category.
type ReportObserver interface {
	RecordReport(category string)
}

type Handler struct {
	Service *kpi.Service
	Perms   middleware.PermissionStore
	Audit   audit.Recorder
	Metrics ReportObserver
}

func NewHandler(service *kpi.Service, perms middleware.PermissionStore, auditSvc audit.Recorder, observer ReportObserver) *Handler {
	return &Handler{Service: service, Perms: perms, Audit: auditSvc, Metrics: observer}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	read := middleware.RequirePermission(auth.PermKPIRead, h.Perms)

	r.Route("/members", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermMembersRead, h.Perms)).Get("/", h.handleListMembers)
		r.With(middleware.RequirePermission(auth.PermMembersWrite, h.Perms)).Post("/", h.handleSaveMember)
		r.Route("/{memberID}", func(r chi.Router) {
			r.With(middleware.RequirePermission(auth.PermMembersRead, h.Perms)).Get("/", h.handleGetMember)
			r.With(middleware.RequirePermission(auth.PermMembersWrite, h.Perms)).Post("/archive", h.handleArchiveMember)
			r.With(read).Get("/targets", h.handleListUserTargets)
			r.With(middleware.RequirePermission(auth.PermTargetsWrite, h.Perms)).Put("/targets/{kpiKey}", h.handleSetUserTarget)
			r.With(middleware.RequirePermission(auth.PermTargetsWrite, h.Perms)).Delete("/targets/{kpiKey}", h.handleDeactivateUserTarget)
			r.With(read).Get("/effective-targets", h.handleEffectiveTargets)
			r.With(read).Get("/records", h.handleListRecords)
			r.With(middleware.RequirePermission(auth.PermRecordsWrite, h.Perms)).Put("/records", h.handleSaveRecord)
			r.With(read).Get("/aggregate", h.handleAggregate)
			r.With(read).Get("/achievements", h.handleAchievements)
			r.With(middleware.RequirePermission(auth.PermReportsRead, h.Perms)).Get("/report", h.handleReport)
		})
	})
	r.With(read).Get("/kpis", h.handleListDefinitions)
	r.With(middleware.RequirePermission(auth.PermKPIWrite, h.Perms)).Post("/kpis", h.handleSaveDefinition)
	r.With(read).Get("/designation-targets", h.handleListDesignationTargets)
	r.With(middleware.RequirePermission(auth.PermTargetsWrite, h.Perms)).Put("/designation-targets", h.handleSetDesignationTarget)
	r.With(read).Get("/categories/classify", h.handleClassify)
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	v := shared.NewValidator()
	v.Enum("status", status, []string{kpi.MemberStatusActive, kpi.MemberStatusArchived}, "must be active or archived")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	members, err := h.Service.ListMembers(r.Context(), status)
	if err != nil {
		h.fail(w, r, err, "member_list_failed", "failed to list members")
		return
	}
	api.Success(w, members, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetMember(w http.ResponseWriter, r *http.Request) {
	memberID, ok := h.memberScope(w, r)
	if !ok {
		return
	}
	member, err := h.Service.GetMember(r.Context(), memberID)
	if err != nil {
		h.fail(w, r, err, "member_get_failed", "failed to load member")
		return
	}
	api.Success(w, member, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSaveMember(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Designation string `json:"designation"`
		Role        string `json:"role"`
		Status      string `json:"status"`
	}
	if !decode(w, r, &payload) {
		return
	}

	member, err := h.Service.SaveMember(r.Context(), kpi.TeamMember{
		ID:          payload.ID,
		Name:        payload.Name,
		Designation: kpi.CanonicalDesignation(payload.Designation, payload.Role),
		Status:      payload.Status,
	})
	if err != nil {
		h.fail(w, r, err, "member_save_failed", "failed to save member")
		return
	}
	h.record(r, "kpi.member.save", audit.EntityMember, member.ID, member)
	api.Success(w, member, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleArchiveMember(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")
	if err := h.Service.ArchiveMember(r.Context(), memberID); err != nil {
		h.fail(w, r, err, "member_archive_failed", "failed to archive member")
		return
	}
	h.record(r, "kpi.member.archive", audit.EntityMember, memberID, map[string]string{"status": kpi.MemberStatusArchived})
	api.Success(w, map[string]string{"id": memberID, "status": kpi.MemberStatusArchived}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := h.Service.ListDefinitions(r.Context())
	if err != nil {
		h.fail(w, r, err, "kpi_list_failed", "failed to list kpis")
		return
	}
	api.Success(w, defs, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSaveDefinition(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Key    string `json:"key"`
		Label  string `json:"label"`
		Kind   string `json:"kind"`
		Active *bool  `json:"active"`
	}
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	v.Required("key", payload.Key, "is required")
	v.Enum("kind", payload.Kind, kpi.Kinds, "must be count or delivered")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	active := true
	if payload.Active != nil {
		active = *payload.Active
	}
	def, err := h.Service.SaveDefinition(r.Context(), kpi.Definition{
		Key:    payload.Key,
		Label:  payload.Label,
		Kind:   payload.Kind,
		Active: active,
	})
	if err != nil {
		h.fail(w, r, err, "kpi_save_failed", "failed to save kpi")
		return
	}
	h.record(r, "kpi.definition.save", audit.EntityKPI, def.Key, def)
	api.Success(w, def, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListDesignationTargets(w http.ResponseWriter, r *http.Request) {
	designation := kpi.CanonicalDesignation(r.URL.Query().Get("designation"), r.URL.Query().Get("role"))
	targets, err := h.Service.ListDesignationTargets(r.Context(), designation)
	if err != nil {
		h.fail(w, r, err, "target_list_failed", "failed to list designation targets")
		return
	}
	api.Success(w, targets, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSetDesignationTarget(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Designation string `json:"designation"`
		Role        string `json:"role"`
		kpi.TargetInput
	}
	if !decode(w, r, &payload) {
		return
	}
	designation := kpi.CanonicalDesignation(payload.Designation, payload.Role)
	v := shared.NewValidator()
	v.Required("designation", designation, "is required")
	v.Required("kpiKey", payload.KPIKey, "is required")
	v.NonNegative("monthlyTarget", payload.MonthlyTarget)
	if payload.AnnualTarget != nil {
		v.NonNegative("annualTarget", *payload.AnnualTarget)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	target, err := h.Service.SetDesignationTarget(r.Context(), designation, payload.TargetInput)
	if err != nil {
		h.fail(w, r, err, "target_save_failed", "failed to save designation target")
		return
	}
	h.record(r, "kpi.designation_target.set", audit.EntityDesignationTarget, designation+"/"+target.KPIKey, target)
	api.Success(w, target, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListUserTargets(w http.ResponseWriter, r *http.Request) {
	memberID, ok := h.memberScope(w, r)
	if !ok {
		return
	}
	targets, err := h.Service.ListUserTargets(r.Context(), memberID)
	if err != nil {
		h.fail(w, r, err, "target_list_failed", "failed to list user targets")
		return
	}
	api.Success(w, targets, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSetUserTarget(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")
	var payload kpi.TargetInput
	if !decode(w, r, &payload) {
		return
	}
	payload.KPIKey = chi.URLParam(r, "kpiKey")
	v := shared.NewValidator()
	v.NonNegative("monthlyTarget", payload.MonthlyTarget)
	if payload.AnnualTarget != nil {
		v.NonNegative("annualTarget", *payload.AnnualTarget)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	target, err := h.Service.SetUserTarget(r.Context(), memberID, payload)
	if err != nil {
		h.fail(w, r, err, "target_save_failed", "failed to save user target")
		return
	}
	h.record(r, "kpi.user_target.set", audit.EntityUserTarget, memberID+"/"+target.KPIKey, target)
	api.Success(w, target, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeactivateUserTarget(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")
	kpiKey := chi.URLParam(r, "kpiKey")
	changed, err := h.Service.DeactivateUserTarget(r.Context(), memberID, kpiKey)
	if err != nil {
		h.fail(w, r, err, "target_deactivate_failed", "failed to deactivate user target")
		return
	}
	if !changed {
		api.Fail(w, http.StatusNotFound, "target_not_found", "no active user target", middleware.GetRequestID(r.Context()))
		return
	}
	h.record(r, "kpi.user_target.deactivate", audit.EntityUserTarget, memberID+"/"+kpiKey, map[string]bool{"active": false})
	api.Success(w, map[string]any{"memberId": memberID, "kpiKey": kpiKey, "active": false}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleEffectiveTargets(w http.ResponseWriter, r *http.Request) {
	memberID, ok := h.memberScope(w, r)
	if !ok {
		return
	}
	targets, err := h.Service.EffectiveTargets(r.Context(), memberID, r.URL.Query().Get("kpi"))
	if err != nil {
		h.fail(w, r, err, "target_resolve_failed", "failed to resolve targets")
		return
	}
	api.Success(w, targets, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	memberID, ok := h.memberScope(w, r)
	if !ok {
		return
	}
	records, err := h.Service.ListRecords(r.Context(), memberID)
	if err != nil {
		h.fail(w, r, err, "record_list_failed", "failed to list records")
		return
	}
	api.Success(w, records, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleSaveRecord(w http.ResponseWriter, r *http.Request) {
	memberID := chi.URLParam(r, "memberID")
	var payload struct {
		Month  int                `json:"month"`
		Year   int                `json:"year"`
		Values map[string]float64 `json:"values"`
	}
	if !decode(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	if payload.Month < 1 || payload.Month > 12 {
		v.Add("month", "must be between 1 and 12")
	}
	if payload.Year <= 0 {
		v.Add("year", "must be positive")
	}
	for key, value := range payload.Values {
		v.NonNegative("values."+key, value)
	}
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	record, err := h.Service.SaveRecord(r.Context(), kpi.PerformanceRecord{
		MemberID: memberID,
		Month:    payload.Month,
		Year:     payload.Year,
		Values:   payload.Values,
	})
	if err != nil {
		h.fail(w, r, err, "record_save_failed", "failed to save record")
		return
	}
	h.record(r, "kpi.record.save", audit.EntityRecord, record.ID, record)
	api.Success(w, record, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAggregate(w http.ResponseWriter, r *http.Request) {
	memberID, window, ok := h.windowScope(w, r)
	if !ok {
		return
	}
	agg, err := h.Service.Aggregate(r.Context(), memberID, window)
	if err != nil {
		h.fail(w, r, err, "aggregate_failed", "failed to aggregate records")
		return
	}
	api.Success(w, agg, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleAchievements(w http.ResponseWriter, r *http.Request) {
	memberID, window, ok := h.windowScope(w, r)
	if !ok {
		return
	}
	report, err := h.Service.Achievements(r.Context(), memberID, window)
	if err != nil {
		h.fail(w, r, err, "achievement_failed", "failed to compute achievements")
		return
	}
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	memberID, window, ok := h.windowScope(w, r)
	if !ok {
		return
	}
	report, err := h.Service.MemberReport(r.Context(), memberID, window)
	if err != nil {
		h.fail(w, r, err, "report_failed", "failed to build report")
		return
	}
	if h.Metrics != nil {
		h.Metrics.RecordReport(string(report.Category))
	}
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("percent")
	percent, err := strconv.Atoi(raw)
	if err != nil {
		shared.FailValidation(w, middleware.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "percent", Reason: "must be an integer"}})
		return
	}
	api.Success(w, kpi.Classify(percent).Info(), middleware.GetRequestID(r.Context()))
}

// memberScope returns the member in the URL when the caller may see it.
func (h *Handler) memberScope(w http.ResponseWriter, r *http.Request) (string, bool) {
	memberID := chi.URLParam(r, "memberID")
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return "", false
	}
	if !auth.CanViewMember(user, memberID) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to view this member", middleware.GetRequestID(r.Context()))
		return "", false
	}
	return memberID, true
}

func (h *Handler) windowScope(w http.ResponseWriter, r *http.Request) (string, kpi.PeriodWindow, bool) {
	memberID, ok := h.memberScope(w, r)
	if !ok {
		return "", kpi.PeriodWindow{}, false
	}
	v := shared.NewValidator()
	window := v.Window(r.URL.Query())
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return "", kpi.PeriodWindow{}, false
	}
	return memberID, window, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	reqID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	switch {
	case v.WindowError(err):
		v.Reject(w, reqID)
	case errors.Is(err, kpi.ErrInvalidWindow):
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "window", Reason: err.Error()}})
	case errors.Is(err, kpi.ErrNoPerformanceData):
		api.Fail(w, http.StatusNotFound, "no_performance_data", "no performance data in the selected period", reqID)
	case errors.Is(err, kpi.ErrMemberNotFound):
		api.Fail(w, http.StatusNotFound, "member_not_found", "member not found", reqID)
	case errors.Is(err, kpi.ErrKPINotFound):
		api.Fail(w, http.StatusNotFound, "kpi_not_found", "kpi not found", reqID)
	case errors.Is(err, kpi.ErrInvalidTarget),
		errors.Is(err, kpi.ErrInvalidRecord),
		errors.Is(err, kpi.ErrInvalidMember),
		errors.Is(err, kpi.ErrInvalidDefinition):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), reqID)
	default:
		log.Error().Err(err).Str("requestId", reqID).Msg(message)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}

func (h *Handler) record(r *http.Request, action, entityType, entityID string, after any) {
	if h.Audit == nil {
		return
	}
	user, _ := middleware.GetUser(r.Context())
	err := h.Audit.Record(r.Context(), audit.Entry{
		ActorID:    user.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		RequestID:  middleware.GetRequestID(r.Context()),
		IP:         shared.ClientIP(r),
		After:      after,
	})
	if err != nil {
		log.Warn().Err(err).Str("action", action).Msg("audit record failed")
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return false
	}
	return true
}
