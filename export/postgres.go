package export

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// PostgresExporter stores sessions in a shared Postgres database.
type PostgresExporter struct {
	sqlStore
}

// NewPostgresExporter connects to dsn and ensures the schema exists.
func NewPostgresExporter(dsn string) (*PostgresExporter, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres dsn: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := ensurePostgresSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &PostgresExporter{sqlStore{
		db:          db,
		name:        "postgres",
		placeholder: postgresPlaceholder,
	}}, nil
}

func postgresPlaceholder(i int) string {
	return fmt.Sprintf("$%d", i)
}

func ensurePostgresSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bot_sessions (
    id TEXT PRIMARY KEY,
    variant TEXT NOT NULL,
    mode TEXT NOT NULL,
    started_at_ms BIGINT NOT NULL,
    stopped_at_ms BIGINT NOT NULL,
    final_levels TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS bot_purchases (
    session_id TEXT NOT NULL REFERENCES bot_sessions(id),
    seq INTEGER NOT NULL,
    ts_ms BIGINT NOT NULL,
    kind TEXT NOT NULL,
    cost DOUBLE PRECISION NOT NULL,
    level INTEGER NOT NULL,
    PRIMARY KEY (session_id, seq)
);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure postgres schema: %w", err)
		}
	}
	return nil
}
