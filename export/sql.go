package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"idlebot/game"
)

// sqlStore is the storage shared by the SQLite and Postgres exporters.
type sqlStore struct {
	db   *sql.DB
	name string
	// placeholder renders the i-th (1-based) bind parameter.
	placeholder func(i int) string
}

func (s *sqlStore) bind(query string) string {
	n := 0
	var b strings.Builder
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(s.placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqlStore) Export(ctx context.Context, session game.Session) error {
	levels, err := json.Marshal(session.FinalLevels)
	if err != nil {
		return fmt.Errorf("failed to encode final levels: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.bind(`
INSERT INTO bot_sessions (id, variant, mode, started_at_ms, stopped_at_ms, final_levels)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO NOTHING`),
		session.ID, session.Variant, session.Mode,
		session.StartedAt.UTC().UnixMilli(), session.StoppedAt.UTC().UnixMilli(), string(levels))
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		log.Printf("[Export] %s: session %s already exported", s.name, session.ID)
		return tx.Commit()
	}

	stmt, err := tx.PrepareContext(ctx, s.bind(`
INSERT INTO bot_purchases (session_id, seq, ts_ms, kind, cost, level)
VALUES (?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, e := range session.Entries {
		if _, err := stmt.ExecContext(ctx, session.ID, i, e.Time.UTC().UnixMilli(), string(e.Kind), e.Cost, e.Level); err != nil {
			return fmt.Errorf("failed to insert purchase %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Printf("[Export] %s: stored session %s with %d entries", s.name, session.ID, len(session.Entries))
	return nil
}

// SessionIDs returns the ids of all stored sessions, oldest first.
func (s *sqlStore) SessionIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM bot_sessions ORDER BY started_at_ms, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Entries returns the purchases of a stored session in log order.
func (s *sqlStore) Entries(ctx context.Context, sessionID string) ([]game.PurchaseLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.bind(`
SELECT ts_ms, kind, cost, level FROM bot_purchases
WHERE session_id = ?
ORDER BY seq`), sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []game.PurchaseLogEntry
	for rows.Next() {
		var (
			tsMs  int64
			kind  string
			cost  float64
			level int
		)
		if err := rows.Scan(&tsMs, &kind, &cost, &level); err != nil {
			return nil, err
		}
		entries = append(entries, game.PurchaseLogEntry{
			Time:  time.UnixMilli(tsMs).UTC(),
			Kind:  game.UpgradeKind(kind),
			Cost:  cost,
			Level: level,
		})
	}
	return entries, rows.Err()
}
