package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/CTAG07/fieldfmt/pkg/fieldfmt"
	"github.com/CTAG07/fieldfmt/pkg/presets"
	"github.com/CTAG07/fieldfmt/pkg/templating"
)

// FormatRequest is the body of POST /api/format. Exactly one of Directive
// and Preset selects the directive; Kind names how Value is read.
type FormatRequest struct {
	Kind      string `json:"kind"`
	Value     string `json:"value"`
	Directive string `json:"directive"`
	Preset    string `json:"preset,omitempty"`
}

// FormatResponse carries the formatted field.
type FormatResponse struct {
	Result string `json:"result"`
}

// maxFormatBody caps the size of a POST /api/format request.
const maxFormatBody = 64 << 10

// FormatAPI formats single values through the template manager, so the
// configured location, locale and field length limit apply.
type FormatAPI struct {
	tm      *templating.TemplateManager
	presets *presets.Store
	logger  *slog.Logger
}

func NewFormatAPI(tm *templating.TemplateManager, store *presets.Store, logger *slog.Logger) *FormatAPI {
	return &FormatAPI{tm: tm, presets: store, logger: logger}
}

// RegisterRoutes sets up the routing for /api/format.
func (f *FormatAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/format", f.handleFormat)
}

func (f *FormatAPI) handleFormat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if !requireScope(w, r, scopeFormat) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormatBody)
	var req FormatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", maxFormatBody))
			return
		}
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	kind, err := fieldfmt.ParseKind(req.Kind)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	value, err := fieldfmt.Coerce(kind, req.Value)
	if err != nil {
		respondWithErr(w, f.logger, "Failed to read value", err)
		return
	}

	directive, err := f.directive(r, req)
	if err != nil {
		respondWithErr(w, f.logger, "Failed to resolve directive", err)
		return
	}

	result, err := f.tm.Apply(value, directive)
	if err != nil {
		respondWithErr(w, f.logger, "Failed to format value", err)
		return
	}
	f.logger.Debug("Formatted value", "kind", kind, "length", directive.Length)
	respondWithJSON(w, http.StatusOK, FormatResponse{Result: result})
}

func (f *FormatAPI) directive(r *http.Request, req FormatRequest) (fieldfmt.Directive, error) {
	if req.Preset == "" {
		return fieldfmt.Parse(req.Directive)
	}
	if req.Directive != "" {
		return fieldfmt.Directive{}, fmt.Errorf("%w: give either a directive or a preset, not both", fieldfmt.ErrDirectiveSyntax)
	}
	if f.presets == nil {
		return fieldfmt.Directive{}, fmt.Errorf("%w: %q", presets.ErrNotFound, req.Preset)
	}
	return f.presets.Directive(r.Context(), req.Preset)
}
