package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/harunnryd/hubblepad/internal/logger"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
	}

	if s.health != nil {
		components := make(map[string]any)
		for name, err := range s.health() {
			entry := map[string]any{"healthy": err == nil}
			if err != nil {
				entry["error"] = err.Error()
				resp["status"] = "degraded"
			}
			components[name] = entry
		}
		resp["components"] = components
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHooksList(w http.ResponseWriter, r *http.Request) {
	raw, err := s.registry.Raw()
	if err != nil {
		logger.From(r.Context()).Error("Failed to read hook registry", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": err.Error()})
		return
	}
	writeRaw(w, raw)
}

func (s *Server) handleHooksSave(w http.ResponseWriter, r *http.Request) {
	entries, err := decodeArray(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": err.Error()})
		return
	}

	hooks, err := s.registry.Replace(r.Context(), entries)
	if err != nil {
		writeError(w, r, "message", err)
		return
	}

	logger.From(r.Context()).Info("Hook registry replaced", "count", len(hooks))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(hooks)})
}

func (s *Server) handleRunOne(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("ref")

	report, err := s.hooks.RunOne(r.Context(), ref)
	if err != nil {
		writeError(w, r, "error", err)
		return
	}

	if !report.OK {
		resp := map[string]any{"ok": false, "error": report.Error}
		if report.Stderr != "" {
			resp["stderr"] = report.Stderr
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}

	resp := map[string]any{
		"ok":     true,
		"merged": report.Merged,
		"count":  report.Count,
	}
	if report.Merged {
		resp["added"] = report.Added
		resp["updated"] = report.Updated
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRunAll(w http.ResponseWriter, r *http.Request) {
	batch, err := s.hooks.RunAll(r.Context())
	if err != nil {
		writeError(w, r, "error", err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (s *Server) handleItemsGet(w http.ResponseWriter, r *http.Request) {
	raw, err := s.items.Raw()
	if err != nil {
		logger.From(r.Context()).Error("Failed to read item store", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": err.Error()})
		return
	}
	writeRaw(w, raw)
}

func (s *Server) handleItemsSave(w http.ResponseWriter, r *http.Request) {
	entries, err := decodeArray(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": err.Error()})
		return
	}

	items, err := s.items.Replace(r.Context(), entries)
	if err != nil {
		writeError(w, r, "message", err)
		return
	}

	logger.From(r.Context()).Info("Item store replaced", "count", len(items))
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": len(items)})
}

type clientLog struct {
	Level   string          `json:"level"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Time    string          `json:"time"`
}

func (s *Server) handleClientLog(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var entry clientLog
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": "invalid log payload"})
		return
	}

	attrs := []any{"source", "client"}
	if entry.Time != "" {
		attrs = append(attrs, "client_time", entry.Time)
	}
	if len(entry.Data) > 0 && string(entry.Data) != "null" {
		attrs = append(attrs, "data", string(entry.Data))
	}
	logger.From(r.Context()).Log(r.Context(), logger.ParseLevel(entry.Level), entry.Message, attrs...)

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// decodeArray reads a whole-document replacement body, which must be a JSON array.
func decodeArray(w http.ResponseWriter, r *http.Request) ([]json.RawMessage, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var entries []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return nil, fmt.Errorf("body must be a JSON array: %w", err)
	}
	if entries == nil {
		return nil, fmt.Errorf("body must be a JSON array")
	}
	return entries, nil
}
