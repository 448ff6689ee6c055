package sim

import (
	"context"
	"sync"
	"time"

	"warchief/server/internal/macro"
	"warchief/server/internal/telemetry"
	"warchief/server/logging"
	simlog "warchief/server/logging/simulation"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"
	// CommandRejectInvalid indicates the command is missing its actor or payload.
	CommandRejectInvalid = "invalid_command"

	activeRunsMetricKey    = "sim_active_runs"
	tickOverrunsMetricKey  = "sim_tick_budget_overrun_total"
	startRejectedMetricKey = "sim_start_rejected_total"
)

// LoopConfig tunes the command buffer and tick loop orchestration.
type LoopConfig struct {
	TickRate        int
	CatchupMaxTicks int
	CommandCapacity int
	PerActorLimit   int
	WarningStep     int
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		TickRate:        10,
		CatchupMaxTicks: 3,
		CommandCapacity: 256,
		PerActorLimit:   8,
	}
}

// World is the combat state the loop steps before every engine tick.
type World interface {
	Step(dt float64)
	Snapshot(characterID string) macro.Snapshot
}

// Core bundles the simulation collaborators owned by the loop goroutine.
type Core struct {
	Engine *macro.Engine
	World  World
	Cast   macro.CastFunc
}

// Deps carries shared infrastructure.
type Deps struct {
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Publisher logging.Publisher
	Clock     logging.Clock
}

// LoopTickContext describes the tick being advanced.
type LoopTickContext struct {
	Tick  uint64
	Now   time.Time
	Delta float64
}

// CommandRejection records a staged command the engine refused.
type CommandRejection struct {
	Command Command
	Err     error
}

// LoopStepResult reports what a single Advance did.
type LoopStepResult struct {
	Tick         uint64
	Now          time.Time
	Delta        float64
	Commands     []Command
	Rejected     []CommandRejection
	Runs         []macro.RunStatus
	Duration     time.Duration
	Budget       time.Duration
	ClampedDelta bool
	MaxDelta     float64
}

// LoopHooks are optional callbacks invoked from the loop goroutine.
type LoopHooks struct {
	AfterStep      func(LoopStepResult)
	OnCommandDrop  func(reason string, cmd Command)
	OnQueueWarning func(length int)
}

// Loop owns the macro engine and the world. Producers on any goroutine stage
// commands with Enqueue; only the loop goroutine touches the engine.
type Loop struct {
	core   Core
	buffer *CommandBuffer
	hooks  LoopHooks
	config LoopConfig
	deps   Deps

	queueMu       sync.Mutex
	perActorCount map[string]int
	dropCounts    map[string]uint64

	statusMu sync.RWMutex
	statuses []macro.RunStatus
	lastTick uint64
}

// NewLoop wraps core with a ring-buffer queue. It returns nil without an engine.
func NewLoop(core Core, cfg LoopConfig, deps Deps, hooks LoopHooks) *Loop {
	if core.Engine == nil {
		return nil
	}
	if deps.Logger == nil {
		deps.Logger = telemetry.LoggerFunc(nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = telemetry.NopMetrics()
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	if deps.Clock == nil {
		deps.Clock = logging.SystemClock{}
	}
	return &Loop{
		core:          core,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		hooks:         hooks,
		config:        cfg,
		deps:          deps,
		perActorCount: make(map[string]int),
		dropCounts:    make(map[string]uint64),
	}
}

// Config reports the loop configuration.
func (l *Loop) Config() LoopConfig {
	if l == nil {
		return LoopConfig{}
	}
	return l.config
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// Enqueue stages a command, enforcing per-actor throttling and capacity limits.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	if cmd.ActorID == "" || (cmd.Type == CommandStartMacro && cmd.Start == nil) {
		l.reportDrop(CommandRejectInvalid, cmd, 0)
		return false, CommandRejectInvalid
	}
	reason := ""
	var dropCount uint64
	warnAt := 0
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else {
			l.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" {
		if !l.buffer.Push(cmd) {
			reason = CommandRejectQueueFull
			dropCount = l.incrementDropLocked(cmd.ActorID)
			if l.config.PerActorLimit > 0 {
				l.perActorCount[cmd.ActorID]--
			}
		} else if step := l.config.WarningStep; step > 0 {
			if length := l.buffer.Len(); length >= step && length%step == 0 {
				warnAt = length
			}
		}
	}
	l.queueMu.Unlock()

	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	if warnAt > 0 && l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(warnAt)
	}
	return true, ""
}

// Advance applies the staged commands in FIFO order, steps the world and
// ticks the engine once. It must only be called from the loop goroutine.
func (l *Loop) Advance(ctx LoopTickContext) LoopStepResult {
	if l == nil {
		return LoopStepResult{}
	}
	commands := l.drainCommands()
	result := LoopStepResult{
		Tick:     ctx.Tick,
		Now:      ctx.Now,
		Delta:    ctx.Delta,
		Commands: commands,
	}
	for _, cmd := range commands {
		if err := l.apply(cmd); err != nil {
			result.Rejected = append(result.Rejected, CommandRejection{Command: cmd, Err: err})
			l.deps.Metrics.Add(startRejectedMetricKey, 1)
		}
	}

	if l.core.World != nil {
		l.core.World.Step(ctx.Delta)
		l.core.Engine.Tick(ctx.Delta, l.core.World.Snapshot, l.core.Cast)
	} else {
		l.core.Engine.Tick(ctx.Delta, nil, l.core.Cast)
	}

	result.Runs = l.core.Engine.Runs()
	l.deps.Metrics.Store(activeRunsMetricKey, uint64(len(result.Runs)))
	l.statusMu.Lock()
	l.statuses = result.Runs
	l.lastTick = ctx.Tick
	l.statusMu.Unlock()
	return result
}

func (l *Loop) apply(cmd Command) error {
	switch cmd.Type {
	case CommandStartMacro:
		if cmd.Start == nil {
			return macro.ErrNoSteps
		}
		return l.core.Engine.Start(cmd.ActorID, cmd.Start.Definition)
	case CommandStopMacro:
		l.core.Engine.Stop(cmd.ActorID)
	}
	return nil
}

// Statuses returns the run table published by the last Advance. It is safe
// to call from any goroutine.
func (l *Loop) Statuses() []macro.RunStatus {
	if l == nil {
		return nil
	}
	l.statusMu.RLock()
	defer l.statusMu.RUnlock()
	out := make([]macro.RunStatus, len(l.statuses))
	copy(out, l.statuses)
	return out
}

// Status returns the published run for characterID.
func (l *Loop) Status(characterID string) (macro.RunStatus, bool) {
	for _, status := range l.Statuses() {
		if status.CharacterID == characterID {
			return status, true
		}
	}
	return macro.RunStatus{}, false
}

// LastTick reports the tick of the last Advance.
func (l *Loop) LastTick() uint64 {
	if l == nil {
		return 0
	}
	l.statusMu.RLock()
	defer l.statusMu.RUnlock()
	return l.lastTick
}

// Run drives the fixed-timestep loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	if l == nil {
		return
	}
	tickRate := l.config.TickRate
	if tickRate <= 0 {
		tickRate = 10
	}
	budget := time.Second / time.Duration(tickRate)
	ticker := time.NewTicker(budget)
	defer ticker.Stop()

	clock := l.deps.Clock
	last := clock.Now()
	budgetSeconds := budget.Seconds()
	maxDt := budgetSeconds
	if l.config.CatchupMaxTicks > 1 {
		maxDt = budgetSeconds * float64(l.config.CatchupMaxTicks)
	}

	var tick uint64
	var overrunStreak uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := clock.Now()
			dt := now.Sub(last).Seconds()
			clamped := false
			if dt <= 0 {
				dt = budgetSeconds
			} else if dt > maxDt {
				dt = maxDt
				clamped = true
			}
			last = now
			tick++

			start := clock.Now()
			result := l.Advance(LoopTickContext{Tick: tick, Now: now, Delta: dt})
			result.Duration = clock.Now().Sub(start)
			result.Budget = budget
			result.ClampedDelta = clamped
			result.MaxDelta = maxDt

			if result.Duration > budget {
				overrunStreak++
				l.deps.Metrics.Add(tickOverrunsMetricKey, 1)
				simlog.TickBudgetOverrun(ctx, l.deps.Publisher, tick, simlog.TickBudgetOverrunPayload{
					DurationMillis: result.Duration.Milliseconds(),
					BudgetMillis:   budget.Milliseconds(),
					Ratio:          float64(result.Duration) / float64(budget),
					Streak:         overrunStreak,
					ActiveRuns:     len(result.Runs),
				})
			} else {
				overrunStreak = 0
			}

			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
		}
	}
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		l.perActorCount = make(map[string]int)
	}
	return commands
}

func (l *Loop) incrementDropLocked(actorID string) uint64 {
	if actorID == "" {
		return 0
	}
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	simlog.CommandDropped(context.Background(), l.deps.Publisher, l.LastTick(), cmd.ActorID, simlog.CommandDroppedPayload{
		Command: string(cmd.Type),
		Reason:  reason,
	})
	// Logged on powers of two.
	if count > 0 && count&(count-1) == 0 {
		l.deps.Logger.Printf(
			"[backpressure] dropping command actor=%s type=%s count=%d limit=%d reason=%s",
			cmd.ActorID, cmd.Type, count, l.config.PerActorLimit, reason,
		)
	}
}
