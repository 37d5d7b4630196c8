package game

import (
	"log"
	"math"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
)

// Stat is one labelled value of a stats snapshot.
type Stat struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// StatsSnapshot is an ordered list of display labels and formatted values.
type StatsSnapshot []Stat

// Get returns the formatted value for label.
func (s StatsSnapshot) Get(label string) (string, bool) {
	for _, st := range s {
		if st.Label == label {
			return st.Value, true
		}
	}
	return "", false
}

func (s StatsSnapshot) String() string {
	parts := make([]string, 0, len(s))
	for _, st := range s {
		parts = append(parts, st.Label+": "+st.Value)
	}
	return strings.Join(parts, ", ")
}

// FormatAmount renders a game number for humans.
func FormatAmount(v float64) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case math.IsInf(v, 1) || v >= UnlimitedCurrency:
		return "unlimited"
	case math.Abs(v) >= 1e6:
		return humanize.SIWithDigits(v, 2, "")
	default:
		return humanize.CommafWithDigits(v, 2)
	}
}

// StatusSink receives status notifications and stat snapshots.
// Calls are fire and forget.
type StatusSink interface {
	Notify(msg string)
	Error(msg string)
	Stats(snapshot StatsSnapshot)
}

// LogSink writes status to the standard logger.
type LogSink struct {
	Prefix string
}

func (s LogSink) Notify(msg string) {
	log.Printf("%s%s", s.prefix(), msg)
}

func (s LogSink) Error(msg string) {
	log.Printf("%sERROR: %s", s.prefix(), msg)
}

func (s LogSink) Stats(snapshot StatsSnapshot) {
	log.Printf("%sstats: %s", s.prefix(), snapshot)
}

func (s LogSink) prefix() string {
	if s.Prefix == "" {
		return ""
	}
	return "[" + s.Prefix + "] "
}

// MultiSink fans out to several sinks. Nil entries are skipped.
type MultiSink []StatusSink

func (m MultiSink) Notify(msg string) {
	for _, s := range m {
		if s != nil {
			s.Notify(msg)
		}
	}
}

func (m MultiSink) Error(msg string) {
	for _, s := range m {
		if s != nil {
			s.Error(msg)
		}
	}
}

func (m MultiSink) Stats(snapshot StatsSnapshot) {
	for _, s := range m {
		if s != nil {
			s.Stats(snapshot)
		}
	}
}

// RecordingSink keeps everything it receives.
type RecordingSink struct {
	lock      sync.Mutex
	notices   []string
	errors    []string
	snapshots []StatsSnapshot
}

func (r *RecordingSink) Notify(msg string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.notices = append(r.notices, msg)
}

func (r *RecordingSink) Error(msg string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *RecordingSink) Stats(snapshot StatsSnapshot) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.snapshots = append(r.snapshots, snapshot)
}

// Notices returns a copy of the received notifications.
func (r *RecordingSink) Notices() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.notices...)
}

// Errors returns a copy of the received error notifications.
func (r *RecordingSink) Errors() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.errors...)
}

// Snapshots returns a copy of the received stat snapshots.
func (r *RecordingSink) Snapshots() []StatsSnapshot {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]StatsSnapshot(nil), r.snapshots...)
}

// Last returns the most recent snapshot, if any.
func (r *RecordingSink) Last() (StatsSnapshot, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if len(r.snapshots) == 0 {
		return nil, false
	}
	return r.snapshots[len(r.snapshots)-1], true
}
