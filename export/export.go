// Package export persists finished bot sessions.
package export

import (
	"context"
	"fmt"
	"log"
	"sync"

	"idlebot/core"
	"idlebot/game"
)

// Closer is implemented by exporters holding resources.
type Closer interface {
	Close() error
}

// New creates the exporter selected by cfg.Mode.
func New(cfg core.ExportConfig) (game.Exporter, error) {
	switch cfg.Mode {
	case core.ExportMemory, "":
		return NewMemoryExporter(), nil
	case core.ExportJSON:
		return NewJSONExporter(cfg.Dir), nil
	case core.ExportSQLite:
		return NewSQLiteExporter(cfg.SQLitePath)
	case core.ExportPostgres:
		return NewPostgresExporter(cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("invalid export mode %q (supported: %s, %s, %s, %s)",
			cfg.Mode, core.ExportMemory, core.ExportJSON, core.ExportSQLite, core.ExportPostgres)
	}
}

// Close releases the exporter's resources if it holds any.
func Close(e game.Exporter) {
	if c, ok := e.(Closer); ok {
		if err := c.Close(); err != nil {
			log.Printf("[Export] close failed: %v", err)
		}
	}
}

// MemoryExporter keeps sessions in memory.
type MemoryExporter struct {
	sessions []game.Session
	lock     sync.Mutex
}

// NewMemoryExporter creates an empty MemoryExporter.
func NewMemoryExporter() *MemoryExporter {
	return &MemoryExporter{}
}

func (m *MemoryExporter) Export(ctx context.Context, session game.Session) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.sessions = append(m.sessions, session)
	return nil
}

// Sessions returns the exported sessions in export order.
func (m *MemoryExporter) Sessions() []game.Session {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]game.Session(nil), m.sessions...)
}

// JSONExporter writes one JSON file per session.
type JSONExporter struct {
	fm *core.FileManager
}

// NewJSONExporter creates a JSONExporter writing below dir.
func NewJSONExporter(dir string) *JSONExporter {
	if dir == "" {
		dir = "."
	}
	return &JSONExporter{fm: core.NewFileManager(dir)}
}

// FileName returns the file a session is written to.
func FileName(session game.Session) string {
	return fmt.Sprintf("session-%s-%s.json", session.StartedAt.UTC().Format("20060102T150405"), session.ID)
}

func (j *JSONExporter) Export(ctx context.Context, session game.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := FileName(session)
	if err := j.fm.SaveJSONFile(session, name); err != nil {
		return err
	}
	log.Printf("[Export] wrote %d entries to %s", len(session.Entries), j.fm.GetPath(name))
	return nil
}

// Load reads all sessions previously written by the exporter.
func (j *JSONExporter) Load() ([]game.Session, error) {
	names, err := j.fm.ListJSONFiles(".")
	if err != nil {
		return nil, err
	}
	sessions := make([]game.Session, 0, len(names))
	for _, name := range names {
		var s game.Session
		if err := j.fm.LoadJSONFile(name, &s); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}
