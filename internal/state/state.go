// Package state persists the last watched position of each channel in a
// small SQLite database so a later session can report where viewing left off.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/snapetech/pseudotv/internal/schedule"
)

// Position is how far into an airing a channel was when last observed.
type Position struct {
	Channel   string
	ItemPath  string
	Fraction  float64
	RunID     uuid.UUID
	UpdatedAt time.Time
}

// Store is a handle on the positions database. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

const schema = `CREATE TABLE IF NOT EXISTS positions (
	channel    TEXT PRIMARY KEY,
	item_path  TEXT NOT NULL,
	fraction   REAL NOT NULL,
	run_id     TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state DB: %w", err)
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init state DB %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Remember upserts one row per channel. Fractions are clamped to [0, 1].
func (s *Store) Remember(ctx context.Context, positions []Position) error {
	if len(positions) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO positions (channel, item_path, fraction, run_id, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(channel) DO UPDATE SET
			item_path = excluded.item_path,
			fraction = excluded.fraction,
			run_id = excluded.run_id,
			updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range positions {
		if p.Channel == "" {
			return fmt.Errorf("remember position: empty channel name")
		}
		f := min(max(p.Fraction, 0), 1)
		if _, err := stmt.ExecContext(ctx, p.Channel, p.ItemPath, f, p.RunID.String(), p.UpdatedAt.UnixMilli()); err != nil {
			return fmt.Errorf("remember %q: %w", p.Channel, err)
		}
	}
	return tx.Commit()
}

// Positions returns every stored position keyed by channel name.
func (s *Store) Positions(ctx context.Context) (map[string]Position, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT channel, item_path, fraction, run_id, updated_at FROM positions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]Position)
	for rows.Next() {
		var (
			p     Position
			runID string
			ms    int64
		)
		if err := rows.Scan(&p.Channel, &p.ItemPath, &p.Fraction, &runID, &ms); err != nil {
			return nil, err
		}
		if id, err := uuid.Parse(runID); err == nil {
			p.RunID = id
		} else {
			log.Debug().Err(err).Str("channel", p.Channel).Msg("unparseable run id; keeping position")
		}
		p.UpdatedAt = time.UnixMilli(ms)
		out[p.Channel] = p
	}
	return out, rows.Err()
}

// FromSchedule captures what every channel is airing at t, sorted by channel.
func FromSchedule(s *schedule.Schedule, t time.Time) []Position {
	current := s.CurrentProgram(t)
	out := make([]Position, 0, len(current))
	for _, name := range s.Channels() {
		e, ok := current[name]
		if !ok {
			continue
		}
		out = append(out, Position{
			Channel:   name,
			ItemPath:  e.Item.Path,
			Fraction:  e.Progress(t),
			RunID:     s.RunID,
			UpdatedAt: t,
		})
	}
	return out
}
