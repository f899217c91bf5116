package httptransport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"docket/internal/transport/httputil"
	"docket/internal/workqueue"
	dErrors "docket/pkg/domain-errors"
)

// Queue items cross the admin wire with their numeric scope and status codes
// plus the readable names, so operator tooling can filter on either.
type queueItem struct {
	ID          int64     `json:"id"`
	ExternalID  string    `json:"external_id"`
	TenantID    string    `json:"tenant_id"`
	Scope       int       `json:"scope"`
	ScopeName   string    `json:"scope_name"`
	Status      int       `json:"status"`
	StatusName  string    `json:"status_name"`
	TargetID    int64     `json:"target_id,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (h *Handler) handleListQueue(w http.ResponseWriter, r *http.Request) {
	f := workqueue.Filter{TenantID: r.URL.Query().Get("tenant")}

	if raw := r.URL.Query().Get("scope"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "scope must be numeric"))
			return
		}
		scope := workqueue.Scope(n)
		f.Scope = &scope
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "status must be numeric"))
			return
		}
		status := workqueue.Status(n)
		f.Status = &status
	}

	items, err := h.ops.ListItems(r.Context(), f)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := make([]queueItem, 0, len(items))
	for _, item := range items {
		out = append(out, queueItem{
			ID:          item.ID,
			ExternalID:  item.ExternalID.String(),
			TenantID:    item.TenantID,
			Scope:       int(item.Scope),
			ScopeName:   item.Scope.String(),
			Status:      int(item.Status),
			StatusName:  item.Status.String(),
			TargetID:    item.TargetID,
			Description: item.Description,
			CreatedAt:   item.CreatedAt,
			UpdatedAt:   item.UpdatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": out})
}

func (h *Handler) handleRetryItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.ops.RetryItem(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "status": int(workqueue.StatusPending)})
}

func (h *Handler) handleRetryLineage(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	olderThan, err := durationParam(r, "older_than", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	retried, err := h.ops.RetryLineage(r.Context(), id, olderThan)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"root_id": id, "retried": retried})
}

func (h *Handler) handleDependentsReady(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ready, err := h.ops.DependentsReady(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "ready": ready})
}

func (h *Handler) handlePurgeItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.ops.PurgeItem(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"id": id, "purged": true})
}

func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	age, err := durationParam(r, "age", h.retentionAge)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	removed, err := h.ops.RetentionSweep(r.Context(), age)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func itemID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid item id")
	}
	return id, nil
}

func durationParam(r *http.Request, name string, fallback time.Duration) (time.Duration, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, name+" must be a duration")
	}
	return d, nil
}
