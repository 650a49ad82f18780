package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/CTAG07/fieldfmt/pkg/presets"
	"github.com/google/go-cmp/cmp"
)

type testServer struct {
	*Server
	configPath string
	actionChan chan string
}

// setupTestServer builds a Server over a temporary data directory and
// database, with templates rendered in UTC.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	if err := os.MkdirAll(filepath.Join(dataDir, "templates"), 0755); err != nil {
		t.Fatalf("failed to create templates dir: %v", err)
	}

	config := DefaultConfig()
	config.Server.DataDir = dataDir
	config.Server.DatabasePath = filepath.Join(dir, "test.db")
	config.Templates.Location = "UTC"
	configPath := filepath.Join(dir, "config.json")
	if err := writeConfig(configPath, config); err != nil {
		t.Fatalf("writeConfig failed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cm, err := NewConfigManager(configPath, logger)
	if err != nil {
		t.Fatalf("NewConfigManager failed: %v", err)
	}

	db, err := initDB(config.Server.DatabasePath)
	if err != nil {
		t.Fatalf("initDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	actionChan := make(chan string, 1)
	server, err := NewServer(cm, logger, db, actionChan)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(server.Close)

	return &testServer{Server: server, configPath: configPath, actionChan: actionChan}
}

// do sends a request through the full handler chain. A non-string body is
// encoded as JSON.
func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func TestFormatAPI(t *testing.T) {
	s := setupTestServer(t)

	tests := []struct {
		name string
		req  FormatRequest
		code int
		want string
	}{
		{"Number", FormatRequest{Kind: "number", Value: "2.5", Directive: "l=10&t=_&a=1&f=0.00"}, http.StatusOK, "______2.50"},
		{"Text", FormatRequest{Value: "foo value", Directive: "l=11&t=_&a=0"}, http.StatusOK, "foo value__"},
		{"TimestampInConfiguredZone", FormatRequest{Kind: "timestamp", Value: "1527159959", Directive: "l=16&t=_&a=2&f=yyyyMMddHHmmss"}, http.StatusOK, "_20180524110559_"},
		{"Date", FormatRequest{Kind: "date", Value: "2018-05-24", Directive: "l=12&a=1&f=dd MMM yyyy"}, http.StatusOK, " 24 May 2018"},
		{"BadDirective", FormatRequest{Value: "x", Directive: "l=3&oops"}, http.StatusBadRequest, ""},
		{"NegativeLength", FormatRequest{Value: "x", Directive: "l=-1"}, http.StatusBadRequest, ""},
		{"PatternForMissingField", FormatRequest{Kind: "date", Value: "2018-05-24", Directive: "l=5&f=HH:mm"}, http.StatusBadRequest, ""},
		{"BadValue", FormatRequest{Kind: "number", Value: "two", Directive: "l=3"}, http.StatusBadRequest, ""},
		{"UnknownKind", FormatRequest{Kind: "money", Value: "1", Directive: "l=3"}, http.StatusBadRequest, ""},
		{"UnknownPreset", FormatRequest{Value: "1", Preset: "missing"}, http.StatusNotFound, ""},
		{"DirectiveAndPreset", FormatRequest{Value: "1", Directive: "l=1", Preset: "missing"}, http.StatusBadRequest, ""},
		{"NumberWithSuffix", FormatRequest{Kind: "number", Value: "2.5", Directive: "l=10&a=1&f=0.00 USD"}, http.StatusOK, "  2.50 USD"},
		{"OverFieldLimit", FormatRequest{Value: "x", Directive: "l=5000000&t=ab"}, http.StatusBadRequest, ""},
		{"HugeFieldLength", FormatRequest{Value: "x", Directive: "l=2000000000&t=ab"}, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/format", tt.req)
			expectStatus(t, rec, tt.code)
			if tt.code != http.StatusOK {
				return
			}
			if got := decodeBody[FormatResponse](t, rec).Result; got != tt.want {
				t.Errorf("result = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("PresetOverFieldLimit", func(t *testing.T) {
		wide := presets.Preset{Directive: "l=5000&t=-"}
		expectStatus(t, s.do(t, http.MethodPut, "/api/presets/wide", wide), http.StatusOK)
		rec := s.do(t, http.MethodPost, "/api/format", FormatRequest{Value: "x", Preset: "wide"})
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("BodyTooLarge", func(t *testing.T) {
		body := `{"value": "` + strings.Repeat("x", maxFormatBody) + `", "directive": "l=1"}`
		expectStatus(t, s.do(t, http.MethodPost, "/api/format", body), http.StatusRequestEntityTooLarge)
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/format", nil)
		expectStatus(t, rec, http.StatusMethodNotAllowed)
		if rec.Header().Get("Allow") != "POST" {
			t.Errorf("Allow = %q, want POST", rec.Header().Get("Allow"))
		}
	})
}

func TestPresetsAPI(t *testing.T) {
	s := setupTestServer(t)
	money := presets.Preset{Name: "money", Directive: "l=10&t=_&a=1&f=0.00", Description: "right-aligned amount"}

	expectStatus(t, s.do(t, http.MethodPost, "/api/presets", money), http.StatusCreated)
	expectStatus(t, s.do(t, http.MethodPost, "/api/presets", money), http.StatusConflict)
	expectStatus(t, s.do(t, http.MethodPost, "/api/presets", presets.Preset{Name: "bad", Directive: "l=x"}), http.StatusBadRequest)
	expectStatus(t, s.do(t, http.MethodPost, "/api/presets", presets.Preset{Name: " ", Directive: "l=1"}), http.StatusBadRequest)

	rec := s.do(t, http.MethodGet, "/api/presets/money", nil)
	expectStatus(t, rec, http.StatusOK)
	if diff := cmp.Diff(money, decodeBody[presets.Preset](t, rec)); diff != "" {
		t.Errorf("GET preset mismatch (-want +got):\n%s", diff)
	}

	rec = s.do(t, http.MethodPost, "/api/format", FormatRequest{Kind: "number", Value: "2.5", Preset: "money"})
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[FormatResponse](t, rec).Result; got != "______2.50" {
		t.Errorf("format with preset = %q", got)
	}

	code := presets.Preset{Directive: "l=4&t=0&a=1"}
	expectStatus(t, s.do(t, http.MethodPut, "/api/presets/code", code), http.StatusOK)

	rec = s.do(t, http.MethodGet, "/api/presets", nil)
	expectStatus(t, rec, http.StatusOK)
	var names []string
	for _, p := range decodeBody[[]presets.Preset](t, rec) {
		names = append(names, p.Name)
	}
	if diff := cmp.Diff([]string{"code", "money"}, names); diff != "" {
		t.Errorf("preset list mismatch (-want +got):\n%s", diff)
	}

	t.Run("NotFoundSuggests", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/api/presets/mony", nil)
		expectStatus(t, rec, http.StatusNotFound)
		body := decodeBody[struct {
			Suggestions []string `json:"suggestions"`
		}](t, rec)
		if len(body.Suggestions) == 0 || body.Suggestions[0] != "money" {
			t.Errorf("suggestions = %v, want money first", body.Suggestions)
		}
	})

	expectStatus(t, s.do(t, http.MethodDelete, "/api/presets/code", nil), http.StatusNoContent)
	expectStatus(t, s.do(t, http.MethodDelete, "/api/presets/code", nil), http.StatusNotFound)
	expectStatus(t, s.do(t, http.MethodPatch, "/api/presets/money", nil), http.StatusMethodNotAllowed)
}

func TestPresetsExportImport(t *testing.T) {
	src := setupTestServer(t)
	expectStatus(t, src.do(t, http.MethodPut, "/api/presets/money", presets.Preset{Directive: "l=10&a=1&f=0.00"}), http.StatusOK)
	expectStatus(t, src.do(t, http.MethodPut, "/api/presets/code", presets.Preset{Directive: "l=4&t=0&a=1"}), http.StatusOK)

	rec := src.do(t, http.MethodGet, "/api/presets/export", nil)
	expectStatus(t, rec, http.StatusOK)
	exported := rec.Body.String()

	dst := setupTestServer(t)
	rec = dst.do(t, http.MethodPost, "/api/presets/import", exported)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[map[string]int](t, rec)["imported"]; got != 2 {
		t.Errorf("imported = %d, want 2", got)
	}
	expectStatus(t, dst.do(t, http.MethodGet, "/api/presets/code", nil), http.StatusOK)

	expectStatus(t, dst.do(t, http.MethodPost, "/api/presets/import", "not json"), http.StatusBadRequest)
	expectStatus(t, dst.do(t, http.MethodPost, "/api/presets/import", `[{"name":"x","directive":"l=oops"}]`), http.StatusBadRequest)
}

func TestTemplateAPI(t *testing.T) {
	s := setupTestServer(t)
	expectStatus(t, s.do(t, http.MethodPut, "/api/presets/money", presets.Preset{Directive: "l=10&t=_&a=1&f=0.00"}), http.StatusOK)

	invoice := `{{range .Items}}{{.Name | field "l=8"}}{{.Price | preset "money"}}
{{end}}`
	expectStatus(t, s.do(t, http.MethodPut, "/api/templates/invoice.tmpl", invoice), http.StatusNoContent)

	rec := s.do(t, http.MethodGet, "/api/templates", nil)
	expectStatus(t, rec, http.StatusOK)
	if diff := cmp.Diff([]string{"invoice.tmpl"}, decodeBody[[]string](t, rec)); diff != "" {
		t.Errorf("template list mismatch (-want +got):\n%s", diff)
	}

	rec = s.do(t, http.MethodGet, "/api/templates/invoice.tmpl", nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Body.String() != invoice {
		t.Errorf("GET template = %q, want the uploaded content", rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/templates/preview?name=invoice.tmpl", `{"Items":[{"Name":"bolt","Price":1.5},{"Name":"washer","Price":12}]}`)
	expectStatus(t, rec, http.StatusOK)
	want := "bolt    ______1.50\nwasher  _____12.00\n"
	if rec.Body.String() != want {
		t.Errorf("preview = %q, want %q", rec.Body.String(), want)
	}

	t.Run("PreviewUnknown", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/templates/preview?name=invoce.tmpl", nil)
		expectStatus(t, rec, http.StatusNotFound)
		if !strings.Contains(rec.Body.String(), "invoice.tmpl") {
			t.Errorf("error %s should suggest invoice.tmpl", rec.Body.String())
		}
	})

	t.Run("Test", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/templates/test", TestTemplateRequest{
			Template: `{{.N | field "l=6&a=1&f=#0.0"}}`,
			Data:     map[string]any{"N": 3.14159},
		})
		expectStatus(t, rec, http.StatusOK)
		if rec.Body.String() != "   3.1" {
			t.Errorf("test output = %q", rec.Body.String())
		}
		rec = s.do(t, http.MethodPost, "/api/templates/test", TestTemplateRequest{Template: `{{"x" | field "l=1&bad"}}`})
		expectStatus(t, rec, http.StatusBadRequest)
	})

	t.Run("BrokenUploadIsRolledBack", func(t *testing.T) {
		expectStatus(t, s.do(t, http.MethodPut, "/api/templates/invoice.tmpl", `{{ .Items `), http.StatusBadRequest)
		rec := s.do(t, http.MethodGet, "/api/templates/invoice.tmpl", nil)
		expectStatus(t, rec, http.StatusOK)
		if rec.Body.String() != invoice {
			t.Errorf("a rejected upload replaced the template with %q", rec.Body.String())
		}
		expectStatus(t, s.do(t, http.MethodPut, "/api/templates/new.tmpl", `{{ end }}`), http.StatusBadRequest)
		expectStatus(t, s.do(t, http.MethodGet, "/api/templates/new.tmpl", nil), http.StatusNotFound)
	})

	t.Run("InvalidNames", func(t *testing.T) {
		for _, path := range []string{
			"/api/templates/notes.txt",
			"/api/templates/a..tmpl",
			"/api/templates/report.tmpl.bak",
		} {
			expectStatus(t, s.do(t, http.MethodGet, path, nil), http.StatusBadRequest)
		}
	})

	t.Run("TooLarge", func(t *testing.T) {
		config := s.cm.Get()
		config.Templates.MaxTemplateBytes = 8
		if err := s.cm.Update(config); err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		rec := s.do(t, http.MethodPut, "/api/templates/big.tmpl", "0123456789")
		expectStatus(t, rec, http.StatusRequestEntityTooLarge)
	})

	expectStatus(t, s.do(t, http.MethodDelete, "/api/templates/invoice.tmpl", nil), http.StatusNoContent)
	expectStatus(t, s.do(t, http.MethodDelete, "/api/templates/invoice.tmpl", nil), http.StatusNotFound)
	expectStatus(t, s.do(t, http.MethodPost, "/api/templates/refresh", nil), http.StatusNoContent)
}

func TestAuthentication(t *testing.T) {
	s := setupTestServer(t)

	// Open until the first key exists.
	expectStatus(t, s.do(t, http.MethodGet, "/api/presets", nil), http.StatusOK)

	rec := s.do(t, http.MethodPost, "/api/auth/keys", CreateKeyRequest{Scopes: []string{"format"}, Description: "owner"})
	expectStatus(t, rec, http.StatusCreated)
	master := decodeBody[CreateKeyResponse](t, rec)
	if !strings.HasPrefix(master.RawKey, "ffk_") {
		t.Errorf("raw key %q lacks the ffk_ prefix", master.RawKey)
	}
	if diff := cmp.Diff([]string{"*"}, master.Scopes); diff != "" {
		t.Errorf("first key scopes mismatch (-want +got):\n%s", diff)
	}

	expectStatus(t, s.do(t, http.MethodGet, "/api/presets", nil), http.StatusUnauthorized)
	expectStatus(t, s.do(t, http.MethodGet, "/api/presets", nil, authHeader, "ffk_wrong"), http.StatusUnauthorized)
	expectStatus(t, s.do(t, http.MethodGet, "/api/presets", nil, authHeader, master.RawKey), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodGet, "/api/health", nil), http.StatusOK)

	rec = s.do(t, http.MethodPost, "/api/auth/keys", CreateKeyRequest{Scopes: []string{"presets:read"}, Description: "reader"}, authHeader, master.RawKey)
	expectStatus(t, rec, http.StatusCreated)
	reader := decodeBody[CreateKeyResponse](t, rec)

	expectStatus(t, s.do(t, http.MethodGet, "/api/presets", nil, authHeader, reader.RawKey), http.StatusOK)
	expectStatus(t, s.do(t, http.MethodPut, "/api/presets/x", presets.Preset{Directive: "l=1"}, authHeader, reader.RawKey), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodPost, "/api/format", FormatRequest{Directive: "l=1"}, authHeader, reader.RawKey), http.StatusForbidden)
	expectStatus(t, s.do(t, http.MethodPost, "/api/auth/keys", CreateKeyRequest{Scopes: []string{"*"}}, authHeader, reader.RawKey), http.StatusForbidden)

	rec = s.do(t, http.MethodGet, "/api/auth/me", nil, authHeader, reader.RawKey)
	expectStatus(t, rec, http.StatusOK)
	if diff := cmp.Diff(map[string][]string{"scopes": {"presets:read"}}, decodeBody[map[string][]string](t, rec)); diff != "" {
		t.Errorf("auth/me mismatch (-want +got):\n%s", diff)
	}

	rec = s.do(t, http.MethodGet, "/api/auth/keys", nil, authHeader, master.RawKey)
	expectStatus(t, rec, http.StatusOK)
	if keys := decodeBody[[]APIKeyInfo](t, rec); len(keys) != 2 {
		t.Errorf("listed %d keys, want 2", len(keys))
	}

	expectStatus(t, s.do(t, http.MethodDelete, "/api/auth/keys/1", nil, authHeader, master.RawKey), http.StatusBadRequest)
	expectStatus(t, s.do(t, http.MethodDelete, "/api/auth/keys/2", nil, authHeader, master.RawKey), http.StatusNoContent)
	expectStatus(t, s.do(t, http.MethodGet, "/api/presets", nil, authHeader, reader.RawKey), http.StatusUnauthorized)
}

func TestServerAPI(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/server/version", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeBody[VersionInfo](t, rec); got.Version != Version {
		t.Errorf("version = %q, want %q", got.Version, Version)
	}

	rec = s.do(t, http.MethodGet, "/api/server/config", nil)
	expectStatus(t, rec, http.StatusOK)
	config := decodeBody[Config](t, rec)
	if config.Templates.Location != "UTC" {
		t.Fatalf("config location = %q, want UTC", config.Templates.Location)
	}

	t.Run("UpdateAppliesLocale", func(t *testing.T) {
		config.Templates.Locale = "de"
		expectStatus(t, s.do(t, http.MethodPut, "/api/server/config", config), http.StatusOK)

		rec := s.do(t, http.MethodPost, "/api/format", FormatRequest{Kind: "number", Value: "1234.5", Directive: "l=7&f=0.00"})
		expectStatus(t, rec, http.StatusOK)
		if got := decodeBody[FormatResponse](t, rec).Result; got != "1234,50" {
			t.Errorf("format after locale change = %q, want 1234,50", got)
		}

		saved, err := LoadConfig(s.configPath, slog.New(slog.NewTextHandler(io.Discard, nil)))
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if saved.Templates.Locale != "de" {
			t.Errorf("saved locale = %q, want de", saved.Templates.Locale)
		}
	})

	t.Run("UpdateRejectsInvalid", func(t *testing.T) {
		bad := config
		templates := *config.Templates
		templates.Location = "Nowhere/Special"
		bad.Templates = &templates
		expectStatus(t, s.do(t, http.MethodPut, "/api/server/config", bad), http.StatusBadRequest)
		expectStatus(t, s.do(t, http.MethodPut, "/api/server/config", `{"server_config":null}`), http.StatusBadRequest)
		if got := s.cm.Get().Templates.Location; got != "UTC" {
			t.Errorf("location after rejected update = %q, want UTC", got)
		}
	})

	t.Run("Restart", func(t *testing.T) {
		expectStatus(t, s.do(t, http.MethodPost, "/api/server/restart", nil), http.StatusAccepted)
		select {
		case action := <-s.actionChan:
			if action != actionRestart {
				t.Errorf("action = %q, want %q", action, actionRestart)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("restart action was not sent")
		}
		expectStatus(t, s.do(t, http.MethodGet, "/api/server/shutdown", nil), http.StatusMethodNotAllowed)
	})
}
