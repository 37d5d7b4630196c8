package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"idlebot/core"
	"idlebot/telemetry"
)

// Operating modes.
const (
	ModeNormal       = core.ModeNormal
	ModeExperimental = core.ModeExperimental
)

// UnlimitedCurrency is written to the game in experimental mode.
const UnlimitedCurrency = 1e300

// maxSeedPurchases bounds the free purchases per kind in experimental mode.
const maxSeedPurchases = 10

const exportTimeout = 30 * time.Second

// State is the lifecycle state of a Scheduler.
type State int

const (
	Uninitialized State = iota
	WaitingForExternalReady
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case WaitingForExternalReady:
		return "waiting"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// SchedulerConfig holds the timing and mode settings of a session.
type SchedulerConfig struct {
	Mode              string
	SessionDuration   time.Duration
	TickInterval      time.Duration
	ReadyPollInterval time.Duration
	ReadyTimeout      time.Duration
	GameSpeed         float64
	Seed              int64
}

// Validate checks the config for values the loop cannot run with.
func (c SchedulerConfig) Validate() error {
	if c.Mode != ModeNormal && c.Mode != ModeExperimental {
		return fmt.Errorf("invalid mode %q (supported: %s, %s)", c.Mode, ModeNormal, ModeExperimental)
	}
	if c.SessionDuration <= 0 {
		return fmt.Errorf("session duration must be positive")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive")
	}
	if c.ReadyPollInterval <= 0 {
		return fmt.Errorf("ready poll interval must be positive")
	}
	return nil
}

// Scheduler drives the purchase loop for one session:
// wait for the game, initialise once, tick until the session timer fires, export.
type Scheduler struct {
	cfg       SchedulerConfig
	variant   Variant
	adapter   GameStateAdapter
	selector  *Selector
	executor  *Executor
	levels    *Levels
	purchases *PurchaseLog
	sink      StatusSink
	exporter  Exporter
	tracer    trace.Tracer
	rng       *rand.Rand
	onState   func(State)

	sessionID   string
	state       State
	initialized bool
	started     bool
	paused      bool
	ticks       int
	startedAt   time.Time
	stoppedAt   time.Time
	lock        sync.Mutex
}

// NewScheduler creates a Scheduler in the WaitingForExternalReady state.
func NewScheduler(cfg SchedulerConfig, variant Variant, adapter GameStateAdapter, sink StatusSink, exporter Exporter) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := variant.Validate(); err != nil {
		return nil, err
	}
	if adapter == nil {
		return nil, fmt.Errorf("game adapter cannot be nil")
	}
	if sink == nil {
		sink = LogSink{Prefix: "Scheduler"}
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	levels := NewLevels(variant.Kinds())
	purchases := NewPurchaseLog()
	s := &Scheduler{
		cfg:       cfg,
		variant:   variant,
		adapter:   adapter,
		selector:  NewSelector(variant.Kinds()),
		executor:  NewExecutor(adapter, variant, levels, purchases, sink),
		levels:    levels,
		purchases: purchases,
		sink:      sink,
		exporter:  exporter,
		tracer:    telemetry.NoopTracer(),
		rng:       rand.New(rand.NewSource(seed)),
		sessionID: uuid.NewString(),
		state:     Uninitialized,
	}
	s.setState(WaitingForExternalReady)
	return s, nil
}

// SetTracer replaces the tracer used for tick, init and export spans.
func (s *Scheduler) SetTracer(tracer trace.Tracer) {
	if tracer != nil {
		s.tracer = tracer
	}
}

// SetRand replaces the random source used for experimental seeding.
func (s *Scheduler) SetRand(rng *rand.Rand) {
	s.rng = rng
}

// OnStateChange registers a callback invoked after every state transition.
func (s *Scheduler) OnStateChange(fn func(State)) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.onState = fn
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state
}

// SessionID returns the id under which the session is exported.
func (s *Scheduler) SessionID() string {
	return s.sessionID
}

// Levels returns the session's level table.
func (s *Scheduler) Levels() *Levels {
	return s.levels
}

// Purchases returns the session's purchase log.
func (s *Scheduler) Purchases() *PurchaseLog {
	return s.purchases
}

// Variant returns the game variant the session runs against.
func (s *Scheduler) Variant() Variant {
	return s.variant
}

// Mode returns the operating mode.
func (s *Scheduler) Mode() string {
	return s.cfg.Mode
}

// Ticks returns how many tick attempts were made.
func (s *Scheduler) Ticks() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.ticks
}

// SetPaused pauses or resumes purchasing. Paused ticks are skipped.
func (s *Scheduler) SetPaused(paused bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.paused = paused
}

// IsPaused returns true if purchasing is paused.
func (s *Scheduler) IsPaused() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.paused
}

// setState must be called with the lock held. The returned func fires the
// state callback and must be called after unlocking.
func (s *Scheduler) setState(state State) func() {
	s.state = state
	fn := s.onState
	return func() {
		if fn != nil {
			fn(state)
		}
	}
}

// WaitReady polls the game until it reports ready, backing off between
// attempts. It gives up after ReadyTimeout or when ctx is cancelled.
func (s *Scheduler) WaitReady(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.ReadyPollInterval
	b.MaxInterval = 10 * s.cfg.ReadyPollInterval
	b.RandomizationFactor = 0.2

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithNotify(func(err error, next time.Duration) {
			if !errors.Is(err, ErrNotReady) {
				log.Printf("[Scheduler] readiness check failed: %v (retry in %v)", err, next)
			}
		}),
	}
	if s.cfg.ReadyTimeout > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(s.cfg.ReadyTimeout))
	}

	_, err := backoff.Retry(ctx, func() (bool, error) {
		if s.State() == Stopped {
			return false, backoff.Permanent(ErrStopped)
		}
		ready, err := s.adapter.Ready(ctx)
		if err != nil {
			return false, err
		}
		if !ready {
			return false, ErrNotReady
		}
		return true, nil
	}, opts...)
	if err != nil {
		return fmt.Errorf("waiting for game: %w", err)
	}
	return nil
}

// Init starts the session. It runs once; later calls do nothing.
func (s *Scheduler) Init(ctx context.Context) error {
	s.lock.Lock()
	if s.initialized || s.state == Stopped {
		s.lock.Unlock()
		return nil
	}
	s.initialized = true
	s.startedAt = timeNow()
	notify := s.setState(Running)
	s.lock.Unlock()
	notify()

	ctx, span := s.tracer.Start(ctx, "scheduler.init",
		trace.WithAttributes(
			attribute.String("session.id", s.sessionID),
			attribute.String("session.mode", s.cfg.Mode),
			attribute.String("game.variant", s.variant.Name),
		))
	defer span.End()

	if s.cfg.GameSpeed > 0 && s.variant.TimeScaleField != "" {
		if err := s.adapter.SetTimeScale(ctx, s.cfg.GameSpeed); err != nil {
			log.Printf("[Scheduler] failed to set game speed: %v", err)
		}
	}

	if s.cfg.Mode == ModeExperimental {
		s.seed(ctx)
	}

	s.sink.Notify(fmt.Sprintf("Session %s started (%s mode, %s)", s.sessionID, s.cfg.Mode, s.variant.Name))
	s.reportStats(ctx)
	return nil
}

// seed performs the free purchases of experimental mode. The balance is
// lifted to UnlimitedCurrency first so the game's own mutators accept them.
// Seeding purchases are not logged.
func (s *Scheduler) seed(ctx context.Context) {
	if err := s.adapter.SetCurrency(ctx, UnlimitedCurrency); err != nil {
		log.Printf("[Scheduler] failed to set unlimited currency: %v", err)
	}
	for _, kind := range s.variant.Kinds() {
		n := s.rng.Intn(maxSeedPurchases + 1)
		for i := 0; i < n; i++ {
			if err := s.executor.Execute(ctx, kind, 0, true); err != nil {
				log.Printf("[Scheduler] seeding %s: %v", kind, err)
				break
			}
		}
	}
}

// Tick performs one purchase attempt: read, select, execute, report.
// Read and apply failures skip the tick and are returned for logging.
func (s *Scheduler) Tick(ctx context.Context) error {
	s.lock.Lock()
	if s.state != Running {
		state := s.state
		s.lock.Unlock()
		if state == Stopped {
			return ErrStopped
		}
		return ErrNotReady
	}
	s.ticks++
	paused := s.paused
	s.lock.Unlock()
	if paused {
		return nil
	}

	ctx, span := s.tracer.Start(ctx, "scheduler.tick")
	defer span.End()

	if r, ok := s.adapter.(Refresher); ok {
		r.Refresh()
	}

	currency, err := s.adapter.ReadCurrency(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to read currency: %w", err)
	}
	costs, err := s.adapter.ReadCosts(ctx)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to read costs: %w", err)
	}

	if kind, ok := s.selector.SelectCheapestAffordable(currency, costs); ok {
		span.SetAttributes(attribute.String("upgrade.kind", string(kind)), attribute.Float64("upgrade.cost", costs[kind]))
		if err := s.executor.Execute(ctx, kind, costs[kind], false); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.reportStats(ctx)
			return err
		}
	}
	s.reportStats(ctx)
	return nil
}

// Run executes a whole session and blocks until it is stopped.
// Cancelling ctx stops the session early; the log is still exported.
// A scheduler runs one session: later calls return ErrAlreadyStarted.
func (s *Scheduler) Run(ctx context.Context) error {
	s.lock.Lock()
	if s.started {
		s.lock.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	s.lock.Unlock()

	if err := s.WaitReady(ctx); err != nil {
		s.lock.Lock()
		if s.state == Stopped {
			s.lock.Unlock()
			return err
		}
		notify := s.setState(Stopped)
		s.lock.Unlock()
		notify()
		return err
	}
	if err := s.Init(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(s.cfg.SessionDuration)
	defer timer.Stop()

	var tick <-chan time.Time
	if s.cfg.Mode != ModeExperimental {
		ticker := time.NewTicker(s.cfg.TickInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-timer.C:
			s.Stop(ctx)
			return nil
		case <-ctx.Done():
			s.Stop(ctx)
			return ctx.Err()
		case <-tick:
			select {
			case <-timer.C:
				s.Stop(ctx)
				return nil
			default:
			}
			if err := s.Tick(ctx); err != nil {
				if errors.Is(err, ErrStopped) {
					return nil
				}
				log.Printf("[Scheduler] tick skipped: %v", err)
			}
		}
	}
}

// Stop ends the session and exports the purchase log. Only the first call
// has an effect.
func (s *Scheduler) Stop(ctx context.Context) {
	s.lock.Lock()
	if s.state == Stopped {
		s.lock.Unlock()
		return
	}
	wasRunning := s.state == Running
	s.stoppedAt = timeNow()
	notify := s.setState(Stopped)
	s.lock.Unlock()
	notify()

	if !wasRunning {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exportTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "scheduler.export")
	defer span.End()

	session := s.Session()
	if s.exporter != nil {
		if err := s.exporter.Export(ctx, session); err != nil {
			span.RecordError(err)
			log.Printf("[Scheduler] failed to export session %s: %v", s.sessionID, err)
		}
	}
	s.sink.Notify(fmt.Sprintf("Session %s finished: %d purchases", s.sessionID, len(session.Entries)))
}

// Session returns the current session record.
func (s *Scheduler) Session() Session {
	s.lock.Lock()
	started, stopped := s.startedAt, s.stoppedAt
	s.lock.Unlock()
	return Session{
		ID:          s.sessionID,
		Variant:     s.variant.Name,
		Mode:        s.cfg.Mode,
		StartedAt:   started,
		StoppedAt:   stopped,
		Entries:     s.purchases.Entries(),
		FinalLevels: s.levels.Snapshot(),
	}
}

// Snapshot builds the current stats without sending them anywhere.
func (s *Scheduler) Snapshot(ctx context.Context) StatsSnapshot {
	label := s.variant.CurrencyLabel
	if label == "" {
		label = "Currency"
	}
	snapshot := StatsSnapshot{{Label: "State", Value: s.State().String()}}

	if currency, err := s.adapter.ReadCurrency(ctx); err == nil {
		snapshot = append(snapshot, Stat{Label: label, Value: FormatAmount(currency)})
	} else {
		snapshot = append(snapshot, Stat{Label: label, Value: "n/a"})
	}

	costs, costErr := s.adapter.ReadCosts(ctx)
	gameLevels, levelErr := s.adapter.ReadLevels(ctx)
	for _, u := range s.variant.Upgrades {
		name := u.Label
		if name == "" {
			name = string(u.Kind)
		}
		value := fmt.Sprintf("%d", s.levels.Get(u.Kind))
		if levelErr == nil {
			if v, ok := gameLevels[u.Kind]; ok {
				value = FormatAmount(v)
			}
		}
		snapshot = append(snapshot, Stat{Label: name, Value: value})
		if costErr == nil {
			if c, ok := costs[u.Kind]; ok {
				snapshot = append(snapshot, Stat{Label: name + " Cost", Value: FormatAmount(c)})
			}
		}
	}
	snapshot = append(snapshot, Stat{Label: "Purchases", Value: fmt.Sprintf("%d", s.purchases.Len())})
	return snapshot
}

func (s *Scheduler) reportStats(ctx context.Context) {
	s.sink.Stats(s.Snapshot(ctx))
}
