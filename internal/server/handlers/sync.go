package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/agentstation/quotesync/internal/server/metrics"
	"github.com/agentstation/quotesync/internal/server/response"
	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/reconcile"
	pkgsync "github.com/agentstation/quotesync/pkg/sync"
)

// resolveRequest is the body of POST /conflicts/{key}/resolve.
type resolveRequest struct {
	Choice string `json:"choice"`
}

// HandleSync handles POST /api/v1/sync[?limit=N&dry_run=true].
// A pass already running yields 409; an unreachable remote yields 502.
func (h *Handlers) HandleSync(w http.ResponseWriter, r *http.Request) {
	var opts []pkgsync.Option
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			response.BadRequest(w, "Invalid limit", err.Error())
			return
		}
		opts = append(opts, pkgsync.WithLimit(limit))
	}
	if v := q.Get("dry_run"); v != "" {
		dryRun, err := strconv.ParseBool(v)
		if err != nil {
			response.BadRequest(w, "Invalid dry_run", err.Error())
			return
		}
		opts = append(opts, pkgsync.WithDryRun(dryRun))
	}

	result, err := h.client.Sync(r.Context(), opts...)
	if err != nil {
		if errors.IsSyncInProgress(err) {
			h.metrics.ObservePass(metrics.OutcomeRejected, 0, time.Now())
		}
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, map[string]any{
		"result":  result,
		"summary": result.Summary(),
	})
}

// HandleSyncStatus handles GET /api/v1/sync/status.
func (h *Handlers) HandleSyncStatus(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, h.client.Status())
}

// HandleConflicts handles GET /api/v1/conflicts.
func (h *Handlers) HandleConflicts(w http.ResponseWriter, _ *http.Request) {
	conflicts := h.client.Conflicts()
	response.OK(w, map[string]any{
		"conflicts": conflicts,
		"count":     len(conflicts),
	})
}

// HandleResolve handles POST /api/v1/conflicts/{key}/resolve.
func (h *Handlers) HandleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := decodeJSON(r, &req); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	choice, err := reconcile.ParseChoice(req.Choice)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	ok, err := persisted(h.client.Resolve(r.Context(), keyParam(r), choice))
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, map[string]any{
		"choice":    choice,
		"remaining": len(h.client.Conflicts()),
		"persisted": ok,
	})
}

// HandleUndo handles POST /api/v1/undo.
func (h *Handlers) HandleUndo(w http.ResponseWriter, r *http.Request) {
	ok, err := persisted(h.client.Undo(r.Context()))
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, map[string]any{
		"records":   h.client.All(),
		"persisted": ok,
	})
}
