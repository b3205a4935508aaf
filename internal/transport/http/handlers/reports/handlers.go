package reportshandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"kpitrack/internal/domain/auth"
	"kpitrack/internal/domain/kpi"
	"kpitrack/internal/platform/jobs"
	"kpitrack/internal/transport/http/api"
	"kpitrack/internal/transport/http/middleware"
	"kpitrack/internal/transport/http/shared"
)

type Handler struct {
	Service *kpi.Service
	Jobs    *jobs.Service
	Perms   middleware.PermissionStore
}

func NewHandler(service *kpi.Service, jobSvc *jobs.Service, perms middleware.PermissionStore) *Handler {
	return &Handler{Service: service, Jobs: jobSvc, Perms: perms}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.With(middleware.RequirePermission(auth.PermReportsRun, h.Perms)).Post("/team", h.handleTeamReport)
		r.With(middleware.RequirePermission(auth.PermJobsRead, h.Perms)).Get("/jobs", h.handleListJobs)
		r.With(middleware.RequirePermission(auth.PermJobsRead, h.Perms)).Get("/jobs/{runID}", h.handleGetJob)
	})
}

func (h *Handler) handleTeamReport(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.GetUser(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", middleware.GetRequestID(r.Context()))
		return
	}

	var payload struct {
		kpi.PeriodWindow
		Async bool `json:"async"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", middleware.GetRequestID(r.Context()))
		return
	}
	window := payload.PeriodWindow
	v := shared.NewValidator()
	v.WindowError(window.Validate())
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	run := func(ctx context.Context) (any, error) {
		return h.Service.TeamReport(ctx, window)
	}

	if payload.Async {
		runID, err := h.Jobs.Enqueue(r.Context(), jobs.JobTeamReport, user.UserID, run)
		if errors.Is(err, jobs.ErrQueueFull) {
			api.Fail(w, http.StatusServiceUnavailable, "queue_full", "report queue is full, retry later", middleware.GetRequestID(r.Context()))
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("team report enqueue failed")
			api.Fail(w, http.StatusInternalServerError, "report_enqueue_failed", "failed to queue team report", middleware.GetRequestID(r.Context()))
			return
		}
		api.Accepted(w, map[string]string{"runId": runID, "status": jobs.StatusQueued}, middleware.GetRequestID(r.Context()))
		return
	}

	report, err := h.Jobs.RunNow(r.Context(), jobs.JobTeamReport, user.UserID, run)
	if err != nil {
		log.Error().Err(err).Str("window", window.String()).Msg("team report failed")
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to build team report", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, report, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 25, 100)
	runs, total, err := h.Jobs.Store.List(r.Context(), r.URL.Query().Get("jobType"), page.Limit, page.Offset)
	if err != nil {
		log.Error().Err(err).Msg("job run list failed")
		api.Fail(w, http.StatusInternalServerError, "job_list_failed", "failed to list job runs", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, shared.NewPage(runs, total, page), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetJob(w http.ResponseWriter, r *http.Request) {
	run, err := h.Jobs.Store.Get(r.Context(), chi.URLParam(r, "runID"))
	if errors.Is(err, jobs.ErrRunNotFound) {
		api.Fail(w, http.StatusNotFound, "job_not_found", "job run not found", middleware.GetRequestID(r.Context()))
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("job run lookup failed")
		api.Fail(w, http.StatusInternalServerError, "job_get_failed", "failed to load job run", middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, run, middleware.GetRequestID(r.Context()))
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
