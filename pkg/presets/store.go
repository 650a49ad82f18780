package presets

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/CTAG07/fieldfmt/pkg/fieldfmt"
	"github.com/sahilm/fuzzy"
)

var (
	// ErrNotFound is returned when no preset has the requested name.
	ErrNotFound = errors.New("presets: preset not found")
	// ErrInvalidName is returned for an empty or whitespace-only name.
	ErrInvalidName = errors.New("presets: invalid preset name")
	// ErrInvalidDirective is returned when a directive does not parse.
	ErrInvalidDirective = errors.New("presets: invalid directive")
)

// Preset is a named directive.
type Preset struct {
	Name        string `json:"name"`
	Directive   string `json:"directive"`
	Description string `json:"description,omitempty"`
}

// SetupSchema creates the preset table. It is idempotent.
func SetupSchema(db *sql.DB) error {
	const schemaPresets = `
CREATE TABLE IF NOT EXISTS field_presets (
    preset_id INTEGER PRIMARY KEY,
    preset_name TEXT NOT NULL UNIQUE,
    directive TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT ''
);
`
	if _, err := db.Exec(schemaPresets); err != nil {
		return fmt.Errorf("could not create presets schema: %w", err)
	}
	return nil
}

// Store reads and writes presets using prepared statements.
type Store struct {
	db         *sql.DB
	stmtGet    *sql.Stmt
	stmtList   *sql.Stmt
	stmtNames  *sql.Stmt
	stmtUpsert *sql.Stmt
	stmtDelete *sql.Stmt
	logger     *slog.Logger
}

// NewStore prepares the store's statements against db. SetupSchema must have
// been run first.
func NewStore(db *sql.DB) (*Store, error) {
	var stmts stmtSet
	fail := func(err error) (*Store, error) {
		stmts.close()
		return nil, err
	}

	stmtGet, err := stmts.prepare(db, `SELECT preset_name, directive, description FROM field_presets WHERE preset_name = ?;`)
	if err != nil {
		return fail(err)
	}

	stmtList, err := stmts.prepare(db, `SELECT preset_name, directive, description FROM field_presets ORDER BY preset_name;`)
	if err != nil {
		return fail(err)
	}

	stmtNames, err := stmts.prepare(db, `SELECT preset_name FROM field_presets ORDER BY preset_name;`)
	if err != nil {
		return fail(err)
	}

	stmtUpsert, err := stmts.prepare(db, `INSERT INTO field_presets (preset_name, directive, description) VALUES (?, ?, ?)
ON CONFLICT(preset_name) DO UPDATE SET directive = excluded.directive, description = excluded.description;`)
	if err != nil {
		return fail(err)
	}

	stmtDelete, err := stmts.prepare(db, `DELETE FROM field_presets WHERE preset_name = ?;`)
	if err != nil {
		return fail(err)
	}

	return &Store{
		db:         db,
		stmtGet:    stmtGet,
		stmtList:   stmtList,
		stmtNames:  stmtNames,
		stmtUpsert: stmtUpsert,
		stmtDelete: stmtDelete,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// stmtSet tracks statements prepared so far so a failed constructor can
// release them.
type stmtSet []*sql.Stmt

func (ss *stmtSet) prepare(db *sql.DB, query string) (*sql.Stmt, error) {
	stmt, err := db.Prepare(query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	*ss = append(*ss, stmt)
	return stmt, nil
}

func (ss stmtSet) close() {
	for _, stmt := range ss {
		_ = stmt.Close()
	}
}

// Close releases the prepared statements.
func (s *Store) Close() {
	_ = s.stmtGet.Close()
	_ = s.stmtList.Close()
	_ = s.stmtNames.Close()
	_ = s.stmtUpsert.Close()
	_ = s.stmtDelete.Close()
}

// SetLogger sets the logger for the store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Get returns the preset with the given name, or ErrNotFound.
func (s *Store) Get(ctx context.Context, name string) (Preset, error) {
	name = strings.TrimSpace(name)
	var p Preset
	err := s.stmtGet.QueryRowContext(ctx, name).Scan(&p.Name, &p.Directive, &p.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return Preset{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return Preset{}, fmt.Errorf("failed to get preset %q: %w", name, err)
	}
	return p, nil
}

// Directive returns the parsed directive of the named preset.
func (s *Store) Directive(ctx context.Context, name string) (fieldfmt.Directive, error) {
	p, err := s.Get(ctx, name)
	if err != nil {
		return fieldfmt.Directive{}, err
	}
	return fieldfmt.Parse(p.Directive)
}

// List returns every preset ordered by name.
func (s *Store) List(ctx context.Context) ([]Preset, error) {
	rows, err := s.stmtList.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	presets := make([]Preset, 0)
	for rows.Next() {
		var p Preset
		if err = rows.Scan(&p.Name, &p.Directive, &p.Description); err != nil {
			return nil, err
		}
		presets = append(presets, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return presets, nil
}

// Names returns the names of every preset in order.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	rows, err := s.stmtNames.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list preset names: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var names []string
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Put creates or replaces a preset after checking that its directive parses.
// Names are stored without surrounding whitespace; Get and Delete trim the
// names they are given the same way.
func (s *Store) Put(ctx context.Context, p Preset) error {
	if err := validate(p); err != nil {
		return err
	}
	p.Name = strings.TrimSpace(p.Name)
	if _, err := s.stmtUpsert.ExecContext(ctx, p.Name, p.Directive, p.Description); err != nil {
		return fmt.Errorf("failed to save preset %q: %w", p.Name, err)
	}
	s.logger.InfoContext(ctx, "Preset saved", slog.String("preset", p.Name), slog.String("directive", p.Directive))
	return nil
}

// Delete removes the named preset. It returns ErrNotFound if nothing was removed.
func (s *Store) Delete(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	res, err := s.stmtDelete.ExecContext(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to delete preset %q: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	s.logger.InfoContext(ctx, "Preset deleted", slog.String("preset", name))
	return nil
}

// Suggest returns up to limit preset names that fuzzily match name, best first.
func (s *Store) Suggest(ctx context.Context, name string, limit int) ([]string, error) {
	names, err := s.Names(ctx)
	if err != nil {
		return nil, err
	}
	return Closest(name, names, limit), nil
}

// Closest ranks candidates against name with a fuzzy match and returns at most
// limit of them, best first.
func Closest(name string, candidates []string, limit int) []string {
	matches := fuzzy.Find(name, candidates)
	out := make([]string, 0, min(limit, len(matches)))
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, m.Str)
	}
	return out
}

// Export writes every preset to w as indented JSON.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	presets, err := s.List(ctx)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Presets exported", slog.Int("count", len(presets)))

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(presets)
}

// Import reads a JSON array of presets from r and saves them in a single
// transaction. Existing presets with the same name are replaced. Nothing is
// written if any preset is invalid.
func (s *Store) Import(ctx context.Context, r io.Reader) (int, error) {
	var imported []Preset
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return 0, fmt.Errorf("failed to decode json presets: %w", err)
	}
	for _, p := range imported {
		if err := validate(p); err != nil {
			return 0, err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("could not begin transaction for import: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	stmtUpsert := tx.StmtContext(ctx, s.stmtUpsert)
	for _, p := range imported {
		if _, err := stmtUpsert.ExecContext(ctx, strings.TrimSpace(p.Name), p.Directive, p.Description); err != nil {
			return 0, fmt.Errorf("failed to import preset %q: %w", p.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("could not commit import: %w", err)
	}

	s.logger.InfoContext(ctx, "Presets imported", slog.Int("count", len(imported)))
	return len(imported), nil
}

func validate(p Preset) error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrInvalidName
	}
	if _, err := fieldfmt.Parse(p.Directive); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidDirective, p.Name, err)
	}
	return nil
}
