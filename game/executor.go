package game

import (
	"context"
	"fmt"
	"log"
	"time"
)

var timeNow = time.Now

// Executor applies selected upgrades to the game and records them.
type Executor struct {
	adapter  GameStateAdapter
	variant  Variant
	mutators map[UpgradeKind]string
	levels   *Levels
	log      *PurchaseLog
	sink     StatusSink
}

// NewExecutor creates an Executor for the given variant.
func NewExecutor(adapter GameStateAdapter, variant Variant, levels *Levels, purchases *PurchaseLog, sink StatusSink) *Executor {
	if sink == nil {
		sink = LogSink{Prefix: "Executor"}
	}
	return &Executor{
		adapter:  adapter,
		variant:  variant,
		mutators: variant.Mutators(),
		levels:   levels,
		log:      purchases,
		sink:     sink,
	}
}

// Execute buys one level of kind. The level is raised before the game's
// mutator is called, so the logged level is the post-purchase level.
// skipLog suppresses the log entry and the status notification.
func (e *Executor) Execute(ctx context.Context, kind UpgradeKind, cost float64, skipLog bool) error {
	mutator, ok := e.mutators[kind]
	if !ok {
		msg := fmt.Sprintf("no mutator registered for upgrade kind %q", kind)
		log.Printf("[Executor] %s", msg)
		e.sink.Error(msg)
		return fmt.Errorf("%w: %s", ErrUnknownUpgradeKind, kind)
	}

	level := e.levels.Increment(kind)
	if err := e.adapter.Apply(ctx, mutator); err != nil {
		log.Printf("[Executor] %s() failed for %s: %v", mutator, kind, err)
		return fmt.Errorf("failed to apply %s: %w", kind, err)
	}

	if skipLog {
		return nil
	}
	e.log.Append(PurchaseLogEntry{
		Time:  timeNow(),
		Kind:  kind,
		Cost:  cost,
		Level: level,
	})
	e.sink.Notify(fmt.Sprintf("Bought %s for %s (level %d)", e.label(kind), FormatAmount(cost), level))
	return nil
}

func (e *Executor) label(kind UpgradeKind) string {
	if u, ok := e.variant.Spec(kind); ok && u.Label != "" {
		return u.Label
	}
	return string(kind)
}
