package templating

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/CTAG07/fieldfmt/pkg/fieldfmt"
	"github.com/CTAG07/fieldfmt/pkg/presets"
)

const (
	// TemplateExt marks full templates, which can be executed by name.
	TemplateExt = ".tmpl"
	// PartialExt marks partials, which only provide {{define}} blocks.
	PartialExt = ".part"
)

// ErrTemplateNotFound is returned by Execute for a name that is not loaded.
var ErrTemplateNotFound = errors.New("templating: template not found")

// ErrLimitExceeded is returned when a field length or repeat count is larger
// than the configured limit.
var ErrLimitExceeded = errors.New("templating: limit exceeded")

// PresetSource resolves preset names to directives. *presets.Store satisfies it.
type PresetSource interface {
	Directive(ctx context.Context, name string) (fieldfmt.Directive, error)
	Names(ctx context.Context) ([]string, error)
}

// TemplateManager is the central controller for the templating engine.
// It manages the template set, configuration, function map and the
// formatter the field functions use. It is responsible for loading,
// parsing, and executing templates in a concurrent-safe manner.
// All methods are concurrent-safe.
type TemplateManager struct {
	logger         *slog.Logger
	config         *TemplateConfig
	formatter      *fieldfmt.Formatter
	presets        PresetSource
	templates      *template.Template
	cleanTemplates *template.Template
	templateNames  []string
	funcMap        template.FuncMap
	templateDir    string
	mu             sync.RWMutex
}

// NewTemplateManager creates, initializes, and returns a new TemplateManager.
// presets may be nil, in which case the preset function always fails. The
// data directory must contain a "templates" subdirectory. It performs an
// initial Refresh to load all templates.
func NewTemplateManager(logger *slog.Logger, presets PresetSource, config *TemplateConfig, dataDir string) (*TemplateManager, error) {
	if config == nil {
		config = DefaultConfig()
	}
	opts, err := config.FormatterOptions()
	if err != nil {
		return nil, err
	}

	tm := &TemplateManager{
		logger:      logger,
		presets:     presets,
		templateDir: filepath.Join(dataDir, "templates"),
		config:      config,
		formatter:   fieldfmt.New(opts...),
	}
	tm.funcMap = tm.makeFuncMap()

	if err := tm.Refresh(); err != nil {
		return nil, err
	}

	logger.Info("Template manager initialized", "template_dir", tm.templateDir)
	return tm, nil
}

func (tm *TemplateManager) makeFuncMap() template.FuncMap {
	return template.FuncMap{
		// Field formatting (from funcs_format.go)
		"field":    tm.field,
		"preset":   tm.preset,
		"pad":      tm.pad,
		"truncate": tm.truncate,
		"numberf":  tm.numberf,
		"datef":    tm.datef,

		// Value coercion (from funcs_format.go)
		"asTimestamp": asTimestamp,
		"asDate":      asDate,
		"asDateTime":  asDateTime,
		"asTime":      asTime,
		"asZoned":     asZoned,
		"asDecimal":   asDecimal,

		// Data helpers (from funcs_data.go)
		"repeat": tm.repeat,
		"list":   list,
		"sum":    sum,
		"add":    add,
		"sub":    sub,
		"mul":    mul,
	}
}

// SetConfig applies a new configuration to the TemplateManager. The
// formatter is rebuilt, so location and locale changes take effect on the
// next execution. An invalid location or locale leaves the old config in place.
func (tm *TemplateManager) SetConfig(config *TemplateConfig) error {
	opts, err := config.FormatterOptions()
	if err != nil {
		return err
	}
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.config = config
	tm.formatter = fieldfmt.New(opts...)
	return nil
}

// Refresh reloads all templates and partials from the filesystem. This allows
// templates to be updated without restarting the application.
func (tm *TemplateManager) Refresh() error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	filePattern := filepath.Join(tm.templateDir, "*"+TemplateExt)
	tm.logger.Info("Loading template files...")

	parsedFiles, err := template.New("").Funcs(tm.funcMap).ParseGlob(filePattern)
	var names []string
	if err != nil {
		if !strings.Contains(err.Error(), "pattern matches no files") {
			tm.logger.Error("failed to parse template files", "error", err)
			return err
		}
		// No template files, so we have to create the object without any
		parsedFiles = template.New("").Funcs(tm.funcMap)
		names = []string{}
	} else {
		for _, t := range parsedFiles.Templates() {
			// The unnamed root template is never executed
			if strings.HasSuffix(t.Name(), TemplateExt) {
				names = append(names, t.Name())
			}
		}
	}

	filePattern = filepath.Join(tm.templateDir, "*"+PartialExt)
	tm.logger.Info("Loading partial files...")

	withPartials, err := parsedFiles.ParseGlob(filePattern)
	if err != nil {
		if !strings.Contains(err.Error(), "pattern matches no files") {
			tm.logger.Error("failed to parse partial files", "error", err)
			return err
		}
		withPartials = parsedFiles
	}

	if len(names) == 0 {
		tm.logger.Warn("No template files found", "dir", tm.templateDir)
	}

	tm.templates = withPartials
	tm.templateNames = names
	tm.logger.Info("Loaded template and partial files", "count", len(withPartials.Templates())-1) // Subtract one for the root template

	// Create a clean clone for string executions after all parsing is complete.
	tm.cleanTemplates, err = tm.templates.Clone()
	if err != nil {
		tm.logger.Error("failed to create a clean clone of templates", "error", err)
		return err
	}
	return nil
}

// Execute renders a specific template by name, writing the output to w. An
// unknown name yields ErrTemplateNotFound with the closest loaded names.
func (tm *TemplateManager) Execute(w io.Writer, name string, data any) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	if tm.templates.Lookup(name) == nil {
		return notFound(ErrTemplateNotFound, name, tm.templateNames)
	}
	return tm.templates.ExecuteTemplate(w, name, data)
}

// ExecuteTemplateString parses and executes a raw template string using the manager's function map.
// This is ideal for testing or previewing templates without saving them to disk.
func (tm *TemplateManager) ExecuteTemplateString(w io.Writer, content string, data any) error {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	if limit := tm.config.MaxTemplateBytes; limit > 0 && int64(len(content)) > limit {
		return fmt.Errorf("template is %d bytes, limit is %d", len(content), limit)
	}

	// Clone the clean, unexecuted template set to avoid race conditions and execution state issues.
	tempSet, err := tm.cleanTemplates.Clone()
	if err != nil {
		return fmt.Errorf("failed to clone clean templates for string execution: %w", err)
	}

	t, err := tempSet.Parse(content)
	if err != nil {
		return fmt.Errorf("failed to parse string template: %w", err)
	}
	return t.Execute(w, data)
}

// GetConfig returns a copy of the current configuration.
func (tm *TemplateManager) GetConfig() TemplateConfig {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return *tm.config
}

// Apply formats value with d using the configured formatter. It enforces
// MaxFieldLength the same way the template functions do.
func (tm *TemplateManager) Apply(value any, d fieldfmt.Directive) (string, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.apply(value, d)
}

// Formatter returns the formatter the field functions currently use.
func (tm *TemplateManager) Formatter() *fieldfmt.Formatter {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.formatter
}

// GetTemplateNames returns the names of the loaded templates and partials.
func (tm *TemplateManager) GetTemplateNames() []string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	var names []string
	for _, t := range tm.templates.Templates() {
		if strings.HasSuffix(t.Name(), TemplateExt) || strings.HasSuffix(t.Name(), PartialExt) {
			names = append(names, t.Name())
		}
	}
	return names
}

// GetTemplateDir returns the template dir that the TemplateManager uses.
func (tm *TemplateManager) GetTemplateDir() string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.templateDir
}

// notFound wraps sentinel with name and, when there are close matches among
// candidates, a hint naming them.
func notFound(sentinel error, name string, candidates []string) error {
	if hints := presets.Closest(name, candidates, 3); len(hints) > 0 {
		return fmt.Errorf("%w: %q (did you mean %s?)", sentinel, name, strings.Join(hints, ", "))
	}
	return fmt.Errorf("%w: %q", sentinel, name)
}
