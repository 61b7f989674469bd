// Package api provides the admin HTTP API for async query records.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"asyncq/internal/domain"
	"asyncq/internal/middleware"
)

const maxBodyBytes = 4 << 20

// Lifecycle is the subset of the lifecycle manager the API drives.
// Implemented by asyncquery.Manager.
type Lifecycle interface {
	GetQuery(ctx context.Context, id string) (*domain.AsyncQuery, error)
	GetResult(ctx context.Context, queryID string) (*domain.AsyncQueryResult, error)
	UpdateStatus(ctx context.Context, q *domain.AsyncQuery, status domain.QueryStatus) (*domain.AsyncQuery, error)
	UpdateStatusCollection(ctx context.Context, filter string, status domain.QueryStatus) (int, error)
	DeleteCollection(ctx context.Context, filter string) (int, error)
	CreateResult(ctx context.Context, httpStatus int, body string, owner *domain.AsyncQuery, id string) (*domain.AsyncQueryResult, error)
}

// Handler serves the /v1/async-queries endpoints.
type Handler struct {
	svc    Lifecycle
	logger *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(svc Lifecycle, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.With("component", "api")}
}

// === Wire types ===

// AsyncQuery is the JSON form of an async query record.
type AsyncQuery struct {
	ID            string            `json:"id"`
	Query         string            `json:"query"`
	QueryType     string            `json:"queryType"`
	PrincipalName string            `json:"principalName,omitempty"`
	Status        string            `json:"status"`
	CreatedOn     time.Time         `json:"createdOn"`
	UpdatedOn     time.Time         `json:"updatedOn"`
	Result        *AsyncQueryResult `json:"result,omitempty"`
}

// AsyncQueryResult is the JSON form of a result. The body is omitted when the
// result is embedded in its query.
type AsyncQueryResult struct {
	ID            string    `json:"id"`
	QueryID       string    `json:"queryId"`
	HTTPStatus    int       `json:"httpStatus"`
	ResponseBody  *string   `json:"responseBody,omitempty"`
	ContentLength int64     `json:"contentLength"`
	CreatedOn     time.Time `json:"createdOn"`
}

// UpdateStatusRequest is the body of PUT /async-queries/{id}/status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// CreateResultRequest is the body of POST /async-queries/{id}/result.
type CreateResultRequest struct {
	ID           string `json:"id,omitempty"`
	HTTPStatus   int    `json:"httpStatus"`
	ResponseBody string `json:"responseBody"`
}

// BulkUpdateRequest is the body of POST /async-queries:update-status.
type BulkUpdateRequest struct {
	Filter string `json:"filter"`
	Status string `json:"status"`
}

// CleanupRequest is the body of POST /async-queries:cleanup.
type CleanupRequest struct {
	Filter string `json:"filter"`
}

// CountResponse reports how many records a bulk operation touched.
type CountResponse struct {
	Count int `json:"count"`
}

// QueryFromDomain converts a record to its JSON form.
func QueryFromDomain(q *domain.AsyncQuery) AsyncQuery {
	out := AsyncQuery{
		ID:            q.ID,
		Query:         q.Query,
		QueryType:     string(q.QueryType),
		PrincipalName: q.PrincipalName,
		Status:        string(q.Status),
		CreatedOn:     q.CreatedOn,
		UpdatedOn:     q.UpdatedOn,
	}
	if q.Result != nil {
		r := ResultFromDomain(q.Result, false)
		out.Result = &r
	}
	return out
}

// ResultFromDomain converts a result to its JSON form, including the body
// only when withBody is set.
func ResultFromDomain(r *domain.AsyncQueryResult, withBody bool) AsyncQueryResult {
	out := AsyncQueryResult{
		ID:            r.ID,
		QueryID:       r.QueryID,
		HTTPStatus:    r.HTTPStatus,
		ContentLength: r.ContentLength,
		CreatedOn:     r.CreatedOn,
	}
	if withBody {
		body := r.ResponseBody
		out.ResponseBody = &body
	}
	return out
}

// decodeBody decodes a JSON request body into dst, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.ErrValidation("request body is required")
		}
		return domain.ErrValidation("invalid request body: %v", err)
	}
	return nil
}

// audit logs a mutating call together with the authenticated principal.
func (h *Handler) audit(r *http.Request, action string, args ...any) {
	principal, _ := middleware.PrincipalFromContext(r.Context())
	args = append([]any{"action", action, "principal", principal, "request_id", middleware.RequestIDFromContext(r.Context())}, args...)
	h.logger.InfoContext(r.Context(), "admin action", args...)
}

// === Handlers ===

// GetQuery handles GET /v1/async-queries/{id}.
func (h *Handler) GetQuery(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.GetQuery(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, QueryFromDomain(q))
}

// GetResult handles GET /v1/async-queries/{id}/result.
func (h *Handler) GetResult(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetResult(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ResultFromDomain(res, true))
}

// UpdateStatus handles PUT /v1/async-queries/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	status, err := domain.ParseQueryStatus(req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	q, err := h.svc.GetQuery(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if _, err := h.svc.UpdateStatus(r.Context(), q, status); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.audit(r, "update_status", "id", q.ID, "status", status)
	writeJSON(w, http.StatusOK, QueryFromDomain(q))
}

// CreateResult handles POST /v1/async-queries/{id}/result. A result id is
// generated when the request has none.
func (h *Handler) CreateResult(w http.ResponseWriter, r *http.Request) {
	var req CreateResultRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.HTTPStatus < 100 || req.HTTPStatus > 599 {
		h.writeError(w, r, domain.ErrValidation("httpStatus must be between 100 and 599, got %d", req.HTTPStatus))
		return
	}
	if req.ID == "" {
		req.ID = domain.NewID()
	}

	owner, err := h.svc.GetQuery(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.CreateResult(r.Context(), req.HTTPStatus, req.ResponseBody, owner, req.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.audit(r, "create_result", "id", owner.ID, "result_id", res.ID)
	writeJSON(w, http.StatusCreated, ResultFromDomain(res, true))
}

// BulkUpdateStatus handles POST /v1/async-queries:update-status.
func (h *Handler) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req BulkUpdateRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	status, err := domain.ParseQueryStatus(req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	n, err := h.svc.UpdateStatusCollection(r.Context(), req.Filter, status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.audit(r, "bulk_update_status", "filter", req.Filter, "status", status, "count", n)
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

// Cleanup handles POST /v1/async-queries:cleanup.
func (h *Handler) Cleanup(w http.ResponseWriter, r *http.Request) {
	var req CleanupRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	n, err := h.svc.DeleteCollection(r.Context(), req.Filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.audit(r, "cleanup", "filter", req.Filter, "count", n)
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}
