package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/seantiz/warp/internal/backend"
	"github.com/seantiz/warp/internal/engine"
	"github.com/seantiz/warp/internal/kernels"
	"github.com/seantiz/warp/internal/model"
	"github.com/seantiz/warp/internal/store"
	"github.com/seantiz/warp/internal/workgroup"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxBodySize      = 1 << 20 // 1 MB
)

// createRunRequest is the JSON body for POST /v1/runs.
type createRunRequest struct {
	kernels.Spec
	Name        string `json:"name"`
	Policy      string `json:"policy"`
	TimeoutS    *int   `json:"timeout_s"`
	OrderByCost bool   `json:"order_by_cost"`
}

// listRunsResponse wraps the paginated list response.
type listRunsResponse struct {
	Runs   []*model.Run `json:"runs"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.recordSubmission(req.Kernel, req.Policy, outcomeRejected)
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Policy == "" {
		req.Policy = model.PolicyAuto
	}
	target, ok := s.policyTarget(req.Policy)
	if !ok {
		s.recordSubmission(req.Kernel, req.Policy, outcomeRejected)
		s.writeError(w, http.StatusBadRequest, "unknown policy "+strconv.Quote(req.Policy))
		return
	}
	if req.TimeoutS != nil && *req.TimeoutS <= 0 {
		s.recordSubmission(req.Kernel, req.Policy, outcomeRejected)
		s.writeError(w, http.StatusBadRequest, "timeout_s must be positive")
		return
	}

	var opts []workgroup.Option
	if target == backend.TargetDevice {
		opts = append(opts, workgroup.RequireDevice())
	}
	if req.OrderByCost {
		opts = append(opts, workgroup.OrderByCost())
	}

	job, err := kernels.Build(req.Spec, opts...)
	switch {
	case errors.Is(err, kernels.ErrUnknownKernel), errors.Is(err, kernels.ErrInvalidSpec):
		s.recordSubmission(req.Kernel, req.Policy, outcomeRejected)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, workgroup.ErrCapabilityMismatch):
		s.recordSubmission(req.Kernel, req.Policy, outcomeRejected)
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		s.recordSubmission(req.Kernel, req.Policy, outcomeError)
		s.logger.Error("build kernel", "kernel", req.Kernel, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to build kernel")
		return
	}

	name := req.Name
	if name == "" {
		name = job.Spec().Kernel
	}

	run, err := s.engine.Submit(r.Context(), engine.Request{
		Name:     name,
		Policy:   req.Policy,
		TimeoutS: req.TimeoutS,
		Job:      job,
	})
	if err != nil {
		if rerr := job.Release(); rerr != nil {
			s.logger.Error("release unsubmitted job", "error", rerr)
		}
		s.recordSubmission(req.Kernel, req.Policy, outcomeError)
		s.logger.Error("submit run", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to submit run")
		return
	}

	s.recordSubmission(req.Kernel, req.Policy, outcomeAccepted)
	s.writeJSON(w, http.StatusAccepted, run)
}

// policyTarget returns the dispatch target of the backend a policy names.
// "auto" has no fixed target and reports an empty one. ok is false for an
// unregistered backend.
func (s *Server) policyTarget(policy string) (target backend.Target, ok bool) {
	if policy == model.PolicyAuto {
		return "", true
	}
	b, err := s.registry.Resolve(policy, true)
	if err != nil {
		return "", false
	}
	return b.Capabilities().Target, true
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.logger.Error("get run", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}

	s.writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	offset := parseIntQuery(r, "offset", 0)

	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}

	runs, total, err := s.store.ListRuns(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list runs", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	if runs == nil {
		runs = []*model.Run{}
	}

	s.writeJSON(w, http.StatusOK, listRunsResponse{
		Runs:   runs,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// writeJSON writes a JSON response with the given status code.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
