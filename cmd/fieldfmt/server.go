package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/CTAG07/fieldfmt/pkg/presets"
	"github.com/CTAG07/fieldfmt/pkg/templating"
)

// Server wires the preset store, template manager and API handlers
// together for one run of the serve loop.
type Server struct {
	cm          *ConfigManager
	db          *sql.DB
	logger      *slog.Logger
	store       *presets.Store
	tm          *templating.TemplateManager
	authAPI     *AuthAPI
	formatAPI   *FormatAPI
	presetsAPI  *PresetsAPI
	templateAPI *TemplateAPI
	serverAPI   *ServerAPI
	apiMux      *http.ServeMux
}

func NewServer(cm *ConfigManager, logger *slog.Logger, db *sql.DB, actionChan chan string) (*Server, error) {
	config := cm.Get()

	store, err := presets.NewStore(db)
	if err != nil {
		return nil, fmt.Errorf("failed to create preset store: %w", err)
	}
	store.SetLogger(logger.With("component", "presets"))

	tm, err := templating.NewTemplateManager(logger.With("component", "templating"), store, config.Templates, config.Server.DataDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create template manager: %w", err)
	}
	if err = cm.SetTemplateManager(tm); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to apply template config: %w", err)
	}

	server := &Server{
		cm:          cm,
		db:          db,
		logger:      logger,
		store:       store,
		tm:          tm,
		authAPI:     NewAuthAPI(db, logger),
		formatAPI:   NewFormatAPI(tm, store, logger),
		presetsAPI:  NewPresetsAPI(store, logger),
		templateAPI: NewTemplateAPI(tm, logger),
		serverAPI:   NewServerAPI(cm, actionChan, logger),
		apiMux:      http.NewServeMux(),
	}

	apiMux := http.NewServeMux()
	server.authAPI.RegisterRoutes(apiMux)
	server.formatAPI.RegisterRoutes(apiMux)
	server.presetsAPI.RegisterRoutes(apiMux)
	server.templateAPI.RegisterRoutes(apiMux)
	server.serverAPI.RegisterRoutes(apiMux)

	// Every API route passes through authentication except the health check.
	server.apiMux.HandleFunc("/api/health", server.serverAPI.handleHealthCheck)
	server.apiMux.Handle("/api/", server.authAPI.Authenticate(apiMux))

	return server, nil
}

// Handler returns the root HTTP handler with request logging.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.apiMux)
}

// Close releases the preset store's statements. The database is owned by the caller.
func (s *Server) Close() {
	_ = s.cm.SetTemplateManager(nil)
	s.store.Close()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("API request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Microsecond))
	})
}
