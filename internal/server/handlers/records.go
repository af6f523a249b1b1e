package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/agentstation/quotesync/internal/server/cache"
	"github.com/agentstation/quotesync/internal/server/response"
	"github.com/agentstation/quotesync/pkg/constants"
	"github.com/agentstation/quotesync/pkg/errors"
	"github.com/agentstation/quotesync/pkg/logging"
	"github.com/agentstation/quotesync/pkg/records"
)

// createRequest is the body of POST /records.
type createRequest struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// filterRequest is the body of PUT /filter.
type filterRequest struct {
	Category string `json:"category"`
}

// HandleListRecords handles GET /api/v1/records[?category=].
// Without a category the selected filter applies.
func (h *Handlers) HandleListRecords(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category == "" {
		category = h.client.Filter()
	}

	data, err := h.cache.Remember(cache.RecordsKey(category), func() (any, error) {
		list := h.client.All().InCategory(category)
		return map[string]any{
			"category": category,
			"records":  list,
			"count":    len(list),
		}, nil
	})
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, data)
}

// HandleGetRecord handles GET /api/v1/records/{key}.
func (h *Handlers) HandleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.client.Get(keyParam(r))
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, rec)
}

// HandleCreateRecord handles POST /api/v1/records.
func (h *Handlers) HandleCreateRecord(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		response.ErrorFromType(w, err)
		return
	}

	result, err := h.client.Add(r.Context(), req.Text, req.Category)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	if result.Created {
		response.Created(w, result)
		return
	}
	response.OK(w, result)
}

// HandleDeleteRecord handles DELETE /api/v1/records/{key}.
func (h *Handlers) HandleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	key := keyParam(r)
	ok, err := persisted(h.client.Remove(key))
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, map[string]any{
		"removed":   records.Key(key),
		"persisted": ok,
	})
}

// HandleCurrent handles GET /api/v1/records/current.
func (h *Handlers) HandleCurrent(w http.ResponseWriter, _ *http.Request) {
	rec, err := h.client.Current()
	if err != nil {
		if errors.IsNotFound(err) {
			response.NotFound(w, constants.MsgEmpty, "")
			return
		}
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, rec)
}

// HandleNext handles POST /api/v1/records/next.
func (h *Handlers) HandleNext(w http.ResponseWriter, _ *http.Request) {
	rec, err := h.client.Next()
	if err != nil {
		if errors.IsNotFound(err) {
			response.NotFound(w, constants.MsgEmpty, "")
			return
		}
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, rec)
}

// HandleCategories handles GET /api/v1/categories.
func (h *Handlers) HandleCategories(w http.ResponseWriter, _ *http.Request) {
	data, _ := h.cache.Remember(cache.KeyCategories, func() (any, error) {
		return map[string]any{"categories": h.client.Categories()}, nil
	})
	response.OK(w, data)
}

// HandleGetFilter handles GET /api/v1/filter.
func (h *Handlers) HandleGetFilter(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{"category": h.client.Filter()})
}

// HandleSetFilter handles PUT /api/v1/filter.
func (h *Handlers) HandleSetFilter(w http.ResponseWriter, r *http.Request) {
	var req filterRequest
	if err := decodeJSON(r, &req); err != nil {
		response.ErrorFromType(w, err)
		return
	}
	ok, err := persisted(h.client.SetFilter(req.Category))
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	response.OK(w, map[string]any{"category": h.client.Filter(), "persisted": ok})
}

// HandleImport handles POST /api/v1/import[?format=json|yaml].
// A malformed body rejects the whole import.
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	format, err := formatParam(r)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, constants.MaxImportBytes+1))
	if err != nil {
		response.ErrorFromType(w, errors.WrapIO("read", "request body", err))
		return
	}

	result, err := h.client.Import(body, format)
	ok, err := persisted(err)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}
	logging.FromContext(r.Context()).Info().
		Int("added", result.Added).
		Int("updated", result.Updated).
		Msg("Import applied")
	response.OK(w, map[string]any{
		"result":    result,
		"persisted": ok,
	})
}

// HandleExport handles GET /api/v1/export[?format=json|yaml].
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	format, err := formatParam(r)
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	data, err := h.cache.Remember(cache.ExportKey(string(format)), func() (any, error) {
		return h.client.Export(format)
	})
	if err != nil {
		response.ErrorFromType(w, err)
		return
	}

	contentType := "application/json"
	if format == records.FormatYAML {
		contentType = "application/yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="quotes.`+string(format)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data.([]byte))
}

func formatParam(r *http.Request) (records.Format, error) {
	return records.ParseFormat(r.URL.Query().Get("format"))
}
