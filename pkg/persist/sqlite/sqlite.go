// Package sqlite implements persist.Store on a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/stagehand/pkg/geom"
	"github.com/chazu/stagehand/pkg/persist"
	"github.com/chazu/stagehand/pkg/placement"
	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DuplicateOffset is how far a duplicate is moved from its source.
var DuplicateOffset = geom.Vec3{X: 0.5, Z: 0.5}

const schema = `
CREATE TABLE IF NOT EXISTS placements (
    seq       INTEGER PRIMARY KEY AUTOINCREMENT,
    id        TEXT NOT NULL UNIQUE,
    x         REAL NOT NULL DEFAULT 0,
    y         REAL NOT NULL DEFAULT 0,
    z         REAL NOT NULL DEFAULT 0,
    rotation  REAL NOT NULL DEFAULT 0,
    locked    INTEGER NOT NULL DEFAULT 0,
    parent_id TEXT,
    group_id  TEXT NOT NULL DEFAULT '',
    meta      TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS placements_parent ON placements(parent_id);
CREATE INDEX IF NOT EXISTS placements_group ON placements(group_id);
`

const selectColumns = `SELECT id, x, y, z, rotation, locked, parent_id, meta FROM placements`

// ============================================================
// Store
// ============================================================

// Store keeps placements in SQLite.
type Store struct {
	db *sql.DB
}

var _ persist.Store = (*Store)(nil)

// New wraps an open database. Call Init before use.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := OpenSQLite(path)
	if err != nil {
		return nil, err
	}
	s := New(db)
	if err := s.Init(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenSQLite opens the sqlite database at dbPath.
func OpenSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir db dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// Init applies the schema.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert stores new placements. Parents must be inserted before children.
func (s *Store) Insert(ctx context.Context, ps ...placement.Placement) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for i := range ps {
			if err := insert(ctx, tx, &ps[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Seed inserts the placements whose ids are not stored yet and returns
// everything stored afterwards. Stored placements win over seeds, so edits
// survive reloading the same scene. Parents must come before children.
func (s *Store) Seed(ctx context.Context, ps ...placement.Placement) ([]placement.Placement, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for i := range ps {
			_, err := get(ctx, tx, ps[i].ID)
			if err == nil {
				continue
			}
			if !errors.Is(err, persist.ErrNotFound) {
				return err
			}
			if err := insert(ctx, tx, &ps[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed placements: %w", err)
	}
	return s.List(ctx)
}

// List returns every placement in insertion order.
func (s *Store) List(ctx context.Context) ([]placement.Placement, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list placements: %w", err)
	}
	defer rows.Close()
	var out []placement.Placement
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// Get returns one placement.
func (s *Store) Get(ctx context.Context, id placement.ID) (*placement.Placement, error) {
	return get(ctx, s.db, id)
}

// ============================================================
// persist.Store
// ============================================================

func (s *Store) UpdatePlacement(ctx context.Context, id placement.ID, patch persist.Patch) (*placement.Placement, error) {
	var out *placement.Placement
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		p, err := get(ctx, tx, id)
		if err != nil {
			return err
		}
		patch.Apply(p)
		if err := checkParent(ctx, tx, p.ID, p.ParentID); err != nil {
			return err
		}
		if err := update(ctx, tx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update placement %s: %w", id, err)
	}
	return out, nil
}

func (s *Store) RemovePlacement(ctx context.Context, id placement.ID, scope persist.Scope) ([]placement.ID, error) {
	var removed []placement.ID
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		p, err := get(ctx, tx, id)
		if err != nil {
			return err
		}
		targets := []placement.ID{id}
		switch scope {
		case persist.ScopeSingle, "":
		case persist.ScopeWithChildren:
			children, err := queryIDs(ctx, tx, `SELECT id FROM placements WHERE parent_id = ? ORDER BY seq`, id)
			if err != nil {
				return err
			}
			targets = append(targets, children...)
		case persist.ScopeGroup:
			if p.Meta.GroupID != "" {
				targets, err = queryIDs(ctx, tx, `SELECT id FROM placements WHERE group_id = ? ORDER BY seq`, p.Meta.GroupID)
				if err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("%q: %w", scope, persist.ErrInvalidScope)
		}
		for _, t := range targets {
			if _, err := tx.ExecContext(ctx, `UPDATE placements SET parent_id = NULL WHERE parent_id = ?`, t); err != nil {
				return fmt.Errorf("clear children of %s: %w", t, err)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM placements WHERE id = ?`, t); err != nil {
				return fmt.Errorf("delete %s: %w", t, err)
			}
		}
		removed = targets
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("remove placement %s: %w", id, err)
	}
	return removed, nil
}

func (s *Store) DuplicatePlacement(ctx context.Context, id placement.ID) ([]placement.Placement, error) {
	var out []placement.Placement
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		src, err := get(ctx, tx, id)
		if err != nil {
			return err
		}
		children, err := queryIDs(ctx, tx, `SELECT id FROM placements WHERE parent_id = ? ORDER BY seq`, id)
		if err != nil {
			return err
		}
		root := *src
		root.ID = placement.ID(uuid.NewString())
		root.Position = root.Position.Add(DuplicateOffset)
		root.Locked = false
		if err := insert(ctx, tx, &root); err != nil {
			return err
		}
		out = append(out, root)
		for _, cid := range children {
			c, err := get(ctx, tx, cid)
			if err != nil {
				return err
			}
			c.ID = placement.ID(uuid.NewString())
			c.ParentID = root.ID
			c.Position = c.Position.Add(DuplicateOffset)
			c.Locked = false
			if err := insert(ctx, tx, c); err != nil {
				return err
			}
			out = append(out, *c)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("duplicate placement %s: %w", id, err)
	}
	return out, nil
}

func (s *Store) SetLocked(ctx context.Context, id placement.ID, locked bool) (*placement.Placement, error) {
	var out *placement.Placement
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		p, err := get(ctx, tx, id)
		if err != nil {
			return err
		}
		p.Locked = locked
		if err := update(ctx, tx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("set locked %s: %w", id, err)
	}
	return out, nil
}

// ============================================================
// Helpers
// ============================================================

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func get(ctx context.Context, q queryer, id placement.ID) (*placement.Placement, error) {
	p, err := scan(q.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, persist.ErrNotFound)
	}
	return p, err
}

func scan(row scanner) (*placement.Placement, error) {
	var (
		p      placement.Placement
		parent sql.NullString
		meta   string
	)
	if err := row.Scan(&p.ID, &p.Position.X, &p.Position.Y, &p.Position.Z, &p.Rotation, &p.Locked, &parent, &meta); err != nil {
		return nil, err
	}
	p.ParentID = placement.ID(parent.String)
	if err := json.Unmarshal([]byte(meta), &p.Meta); err != nil {
		return nil, fmt.Errorf("decode meta of %s: %w", p.ID, err)
	}
	return &p, nil
}

func queryIDs(ctx context.Context, q queryer, query string, args ...any) ([]placement.ID, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []placement.ID
	for rows.Next() {
		var id placement.ID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func checkParent(ctx context.Context, q queryer, id, parent placement.ID) error {
	if parent.IsZero() {
		return nil
	}
	if parent == id {
		return placement.ErrSelfParent
	}
	pp, err := get(ctx, q, parent)
	if errors.Is(err, persist.ErrNotFound) {
		return placement.ErrDanglingParent
	}
	if err != nil {
		return err
	}
	if pp.HasParent() {
		return placement.ErrNestedParent
	}
	children, err := queryIDs(ctx, q, `SELECT id FROM placements WHERE parent_id = ?`, id)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return placement.ErrNestedParent
	}
	return nil
}

func nullable(id placement.ID) sql.NullString {
	return sql.NullString{String: string(id), Valid: !id.IsZero()}
}

func insert(ctx context.Context, tx *sql.Tx, p *placement.Placement) error {
	if err := checkParent(ctx, tx, p.ID, p.ParentID); err != nil {
		return fmt.Errorf("insert %s: %w", p.ID, err)
	}
	meta, err := json.Marshal(p.Meta)
	if err != nil {
		return fmt.Errorf("encode meta of %s: %w", p.ID, err)
	}
	_, err = tx.ExecContext(ctx, `
        INSERT INTO placements (id, x, y, z, rotation, locked, parent_id, group_id, meta)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, p.ID, p.Position.X, p.Position.Y, p.Position.Z, p.Rotation, p.Locked, nullable(p.ParentID), p.Meta.GroupID, string(meta))
	if err != nil {
		return fmt.Errorf("insert %s: %w", p.ID, err)
	}
	return nil
}

func update(ctx context.Context, tx *sql.Tx, p *placement.Placement) error {
	_, err := tx.ExecContext(ctx, `
        UPDATE placements
        SET x = ?, y = ?, z = ?, rotation = ?, locked = ?, parent_id = ?
        WHERE id = ?
    `, p.Position.X, p.Position.Y, p.Position.Z, p.Rotation, p.Locked, nullable(p.ParentID), p.ID)
	if err != nil {
		return fmt.Errorf("write %s: %w", p.ID, err)
	}
	return nil
}
