package game

import (
	"context"
	"sync"
	"time"
)

// PurchaseLogEntry records one logged purchase.
type PurchaseLogEntry struct {
	Time  time.Time   `json:"time"`
	Kind  UpgradeKind `json:"kind"`
	Cost  float64     `json:"cost"`
	Level int         `json:"level"`
}

// PurchaseLog is the ordered, append-only purchase history of a session.
type PurchaseLog struct {
	entries []PurchaseLogEntry
	lock    sync.Mutex
}

// NewPurchaseLog creates an empty log.
func NewPurchaseLog() *PurchaseLog {
	return &PurchaseLog{}
}

// Append adds an entry to the end of the log.
func (pl *PurchaseLog) Append(entry PurchaseLogEntry) {
	pl.lock.Lock()
	defer pl.lock.Unlock()
	pl.entries = append(pl.entries, entry)
}

// Entries returns a copy of all entries in insertion order.
func (pl *PurchaseLog) Entries() []PurchaseLogEntry {
	pl.lock.Lock()
	defer pl.lock.Unlock()
	return append([]PurchaseLogEntry(nil), pl.entries...)
}

// Len returns the number of entries.
func (pl *PurchaseLog) Len() int {
	pl.lock.Lock()
	defer pl.lock.Unlock()
	return len(pl.entries)
}

// Session is what gets exported when a session stops.
type Session struct {
	ID          string              `json:"id"`
	Variant     string              `json:"variant"`
	Mode        string              `json:"mode"`
	StartedAt   time.Time           `json:"started_at"`
	StoppedAt   time.Time           `json:"stopped_at"`
	Entries     []PurchaseLogEntry  `json:"entries"`
	FinalLevels map[UpgradeKind]int `json:"final_levels"`
}

// Exporter receives the finished session exactly once.
type Exporter interface {
	Export(ctx context.Context, session Session) error
}

// ExporterFunc adapts a function to Exporter.
type ExporterFunc func(ctx context.Context, session Session) error

func (f ExporterFunc) Export(ctx context.Context, session Session) error {
	return f(ctx, session)
}
