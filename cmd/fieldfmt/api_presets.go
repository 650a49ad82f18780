package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/CTAG07/fieldfmt/pkg/presets"
)

// PresetsAPI holds the dependencies for the preset handlers.
type PresetsAPI struct {
	store  *presets.Store
	logger *slog.Logger
}

func NewPresetsAPI(store *presets.Store, logger *slog.Logger) *PresetsAPI {
	return &PresetsAPI{store: store, logger: logger}
}

// RegisterRoutes sets up the routing for all /api/presets endpoints. The
// export and import paths shadow presets named "export" and "import".
func (p *PresetsAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/presets", p.handleCollection)
	mux.HandleFunc("/api/presets/export", p.handleExport)
	mux.HandleFunc("/api/presets/import", p.handleImport)
	mux.HandleFunc("/api/presets/", p.handlePreset)
}

func (p *PresetsAPI) handleCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if !requireScope(w, r, scopePresetsRead) {
			return
		}
		list, err := p.store.List(r.Context())
		if err != nil {
			respondWithErr(w, p.logger, "Failed to list presets", err)
			return
		}
		if list == nil {
			list = []presets.Preset{}
		}
		respondWithJSON(w, http.StatusOK, list)

	case http.MethodPost:
		if !requireScope(w, r, scopePresetsWrite) {
			return
		}
		var preset presets.Preset
		if err := json.NewDecoder(r.Body).Decode(&preset); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		if _, err := p.store.Get(r.Context(), preset.Name); err == nil {
			respondWithError(w, http.StatusConflict, "Preset already exists; use PUT to replace it")
			return
		}
		if err := p.store.Put(r.Context(), preset); err != nil {
			respondWithErr(w, p.logger, "Failed to create preset", err)
			return
		}
		respondWithJSON(w, http.StatusCreated, preset)

	default:
		w.Header().Set("Allow", "GET, POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (p *PresetsAPI) handlePreset(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/presets/")
	if name == "" || strings.Contains(name, "/") {
		respondWithError(w, http.StatusNotFound, "Not Found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !requireScope(w, r, scopePresetsRead) {
			return
		}
		preset, err := p.store.Get(r.Context(), name)
		if errors.Is(err, presets.ErrNotFound) {
			p.respondNotFound(w, r, name, err)
			return
		}
		if err != nil {
			respondWithErr(w, p.logger, "Failed to get preset", err)
			return
		}
		respondWithJSON(w, http.StatusOK, preset)

	case http.MethodPut:
		if !requireScope(w, r, scopePresetsWrite) {
			return
		}
		var preset presets.Preset
		if err := json.NewDecoder(r.Body).Decode(&preset); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		preset.Name = name
		if err := p.store.Put(r.Context(), preset); err != nil {
			respondWithErr(w, p.logger, "Failed to save preset", err)
			return
		}
		respondWithJSON(w, http.StatusOK, preset)

	case http.MethodDelete:
		if !requireScope(w, r, scopePresetsWrite) {
			return
		}
		if err := p.store.Delete(r.Context(), name); err != nil {
			respondWithErr(w, p.logger, "Failed to delete preset", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// respondNotFound answers a lookup miss with the closest preset names.
func (p *PresetsAPI) respondNotFound(w http.ResponseWriter, r *http.Request, name string, err error) {
	suggestions, suggestErr := p.store.Suggest(r.Context(), name, 3)
	if suggestErr != nil {
		p.logger.Warn("Failed to suggest presets", "preset", name, "error", suggestErr)
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	respondWithJSON(w, http.StatusNotFound, map[string]any{
		"error":       err.Error(),
		"suggestions": suggestions,
	})
}

func (p *PresetsAPI) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !requireScope(w, r, scopePresetsRead) {
		return
	}

	var buf bytes.Buffer
	if err := p.store.Export(r.Context(), &buf); err != nil {
		respondWithErr(w, p.logger, "Failed to export presets", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="presets.json"`)
	_, _ = buf.WriteTo(w)
}

func (p *PresetsAPI) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !requireScope(w, r, scopePresetsWrite) {
		return
	}

	count, err := p.store.Import(r.Context(), r.Body)
	if err != nil {
		if isDecodeError(err) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondWithErr(w, p.logger, "Failed to import presets", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]int{"imported": count})
}

// isDecodeError reports whether err came from reading malformed JSON.
func isDecodeError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || strings.Contains(err.Error(), "unexpected EOF")
}
