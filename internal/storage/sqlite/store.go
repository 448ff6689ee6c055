// Package sqlite provides a SQLite-backed macro store.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"warchief/server/internal/macro"
	"warchief/server/internal/storage"
	"warchief/server/internal/storage/sqlite/migrations"
	"warchief/server/internal/storage/sqlitemigrate"
)

// Store persists macro definitions in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens the database at path and applies the embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) List(ctx context.Context, characterID string) ([]macro.Definition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT macro_id FROM macros WHERE character_id = ? ORDER BY macro_id`, characterID)
	if err != nil {
		return nil, fmt.Errorf("list macros: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan macro id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("list macros: %w", err)
	}
	rows.Close()

	defs := make([]macro.Definition, 0, len(ids))
	for _, id := range ids {
		def, err := s.Get(ctx, characterID, id)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

func (s *Store) Get(ctx context.Context, characterID, macroID string) (macro.Definition, error) {
	if err := ctx.Err(); err != nil {
		return macro.Definition{}, err
	}
	rec := storage.Record{ID: macroID}
	var loopCount sql.NullInt64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT name, loop, loop_count FROM macros WHERE character_id = ? AND macro_id = ?`,
		characterID, macroID,
	).Scan(&rec.Name, &rec.Loop, &loopCount)
	if errors.Is(err, sql.ErrNoRows) {
		return macro.Definition{}, storage.ErrNotFound
	}
	if err != nil {
		return macro.Definition{}, fmt.Errorf("get macro %s: %w", macroID, err)
	}
	if loopCount.Valid {
		count := int(loopCount.Int64)
		rec.LoopCount = &count
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT kind, ability, delay, duration, condition
		   FROM macro_steps
		  WHERE character_id = ? AND macro_id = ?
		  ORDER BY position`,
		characterID, macroID,
	)
	if err != nil {
		return macro.Definition{}, fmt.Errorf("get macro steps %s: %w", macroID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var step storage.StepRecord
		if err := rows.Scan(&step.Kind, &step.Ability, &step.Delay, &step.Duration, &step.Condition); err != nil {
			return macro.Definition{}, fmt.Errorf("scan macro step: %w", err)
		}
		rec.Steps = append(rec.Steps, step)
	}
	if err := rows.Err(); err != nil {
		return macro.Definition{}, fmt.Errorf("get macro steps %s: %w", macroID, err)
	}
	return storage.Decode(rec)
}

// Save replaces the macro and its steps in one transaction.
func (s *Store) Save(ctx context.Context, characterID string, def macro.Definition) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.CheckID(characterID); err != nil {
		return fmt.Errorf("character: %w", err)
	}
	if err := storage.CheckID(def.ID); err != nil {
		return fmt.Errorf("macro: %w", err)
	}
	rec := storage.Encode(def)
	var loopCount any
	if rec.LoopCount != nil {
		loopCount = *rec.LoopCount
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO macros (character_id, macro_id, name, loop, loop_count, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (character_id, macro_id) DO UPDATE SET
		   name = excluded.name,
		   loop = excluded.loop,
		   loop_count = excluded.loop_count,
		   updated_at = excluded.updated_at`,
		characterID, rec.ID, rec.Name, rec.Loop, loopCount, s.now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("save macro %s: %w", rec.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM macro_steps WHERE character_id = ? AND macro_id = ?`, characterID, rec.ID,
	); err != nil {
		return fmt.Errorf("clear macro steps %s: %w", rec.ID, err)
	}
	for i, step := range rec.Steps {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO macro_steps (character_id, macro_id, position, kind, ability, delay, duration, condition)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			characterID, rec.ID, i, step.Kind, step.Ability, step.Delay, step.Duration, step.Condition,
		); err != nil {
			return fmt.Errorf("save macro step %s/%d: %w", rec.ID, i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit macro %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, characterID, macroID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM macro_steps WHERE character_id = ? AND macro_id = ?`, characterID, macroID,
	); err != nil {
		return fmt.Errorf("delete macro steps %s: %w", macroID, err)
	}
	res, err := tx.ExecContext(ctx,
		`DELETE FROM macros WHERE character_id = ? AND macro_id = ?`, characterID, macroID)
	if err != nil {
		return fmt.Errorf("delete macro %s: %w", macroID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete macro %s: %w", macroID, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return tx.Commit()
}

var _ storage.Store = (*Store)(nil)
