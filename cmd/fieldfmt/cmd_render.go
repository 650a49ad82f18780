package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/CTAG07/fieldfmt/pkg/presets"
	"github.com/CTAG07/fieldfmt/pkg/templating"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// renderOptions holds the flags of the render command.
type renderOptions struct {
	dataPath string
	template string
	dataDir  string
	dbPath   string
	output   string
	location string
	locale   string
}

func newRenderCmd(root *rootOptions) *cobra.Command {
	opts := &renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a template with data from a JSON, YAML or TOML file",
		Long: `Render executes a template against a data file. --template is either the name of a
template in <data-dir>/templates or a path to a template file; partials from the
data directory are available in both cases. With --db, the preset function reads
presets from that database.`,
		Example: `  fieldfmt render --data invoice.yaml --template invoice.tmpl
  fieldfmt render --data rows.json --template ./report.tmpl --db ./data/fieldfmt.db -o report.txt`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var buf bytes.Buffer
			if opts.output != "" {
				out = &buf
			}
			if err := render(root, opts, out); err != nil {
				return err
			}
			if opts.output == "" {
				return nil
			}
			if err := atomic.WriteFile(opts.output, &buf); err != nil {
				return fmt.Errorf("failed to write %s: %w", opts.output, err)
			}
			root.logger.Info("Rendered report", "output", opts.output, "bytes", buf.Len())
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.dataPath, "data", "d", "", "data file (.json, .yaml, .yml or .toml)")
	cmd.Flags().StringVarP(&opts.template, "template", "t", "", "template name or path")
	cmd.Flags().StringVar(&opts.dataDir, "data-dir", "./data", "directory holding the templates folder")
	cmd.Flags().StringVar(&opts.dbPath, "db", "", "SQLite database with presets")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the result to a file instead of stdout")
	cmd.Flags().StringVar(&opts.location, "location", "Local", "IANA zone timestamps are rendered in")
	cmd.Flags().StringVar(&opts.locale, "locale", "", "BCP 47 locale for number symbols")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

func render(root *rootOptions, opts *renderOptions, w io.Writer) error {
	data, err := loadData(opts.dataPath)
	if err != nil {
		return err
	}

	config := templating.DefaultConfig()
	config.Location = opts.location
	config.Locale = opts.locale

	var source templating.PresetSource
	if opts.dbPath != "" {
		db, err := initDB(opts.dbPath)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
		store, err := presets.NewStore(db)
		if err != nil {
			return fmt.Errorf("failed to open presets: %w", err)
		}
		defer store.Close()
		store.SetLogger(root.logger)
		source = store
	}

	tm, err := templating.NewTemplateManager(root.logger, source, config, opts.dataDir)
	if err != nil {
		return err
	}

	if isTemplateFile(opts.template) {
		content, err := os.ReadFile(opts.template)
		if err != nil {
			return fmt.Errorf("failed to read template: %w", err)
		}
		return tm.ExecuteTemplateString(w, string(content), data)
	}
	return tm.Execute(w, opts.template, data)
}

// isTemplateFile reports whether name points at a file on disk rather than a
// template loaded from the data directory.
func isTemplateFile(name string) bool {
	if strings.ContainsAny(name, `/\`) {
		return true
	}
	info, err := os.Stat(name)
	return err == nil && !info.IsDir()
}

// loadData decodes a data file by extension. JSON numbers stay json.Number
// so they format as exact decimals.
func loadData(path string) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}

	var data any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = decodeJSONNumbers(bytes.NewReader(raw), &data)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &data)
	case ".toml":
		var table map[string]any
		err = toml.Unmarshal(raw, &table)
		data = table
	default:
		return nil, fmt.Errorf("unsupported data file extension %q (want .json, .yaml, .yml or .toml)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse data file %s: %w", path, err)
	}
	return data, nil
}
