package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Mathih13/botfarm/logger"
	"github.com/Mathih13/botfarm/model"
)

// State is the executor's lifecycle state.
type State string

const (
	StateIdle      State = "IDLE"
	StateRunning   State = "RUNNING"
	StateCompleted State = "COMPLETED"
	StateFailed    State = "FAILED"
	StateTimedOut  State = "TIMED_OUT"
	StateCancelled State = "CANCELLED"
)

func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateTimedOut, StateCancelled:
		return true
	default:
		return false
	}
}

const DefaultTickInterval = 100 * time.Millisecond

// Executor drives one agent through a route's ordered task list. Tasks run
// strictly in list order; the first failure fails the route and marks every
// remaining task Skipped, since later tasks generally assume world state an
// earlier one was supposed to establish.
type Executor struct {
	route *model.RouteDefinition
	rt    *Runtime

	tickInterval time.Duration

	mu      sync.Mutex
	state   State
	index   int
	paused  bool
	stopped bool
	results []model.TaskResult
}

func NewExecutor(route *model.RouteDefinition, rt *Runtime) *Executor {
	return &Executor{
		route:        route,
		rt:           rt,
		tickInterval: DefaultTickInterval,
		state:        StateIdle,
	}
}

// SetTickInterval overrides the poll cadence. Tests shorten it.
func (e *Executor) SetTickInterval(d time.Duration) {
	e.tickInterval = d
}

func (e *Executor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// CurrentIndex returns the index of the task being executed.
func (e *Executor) CurrentIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

// Results returns a copy of the task results recorded so far.
func (e *Executor) Results() []model.TaskResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]model.TaskResult, len(e.results))
	copy(out, e.results)
	return out
}

// Pause suspends tick evaluation without losing position. Per-task timeouts
// do not advance while paused.
func (e *Executor) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = true
}

func (e *Executor) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = false
}

// Stop forces the executor to terminate as Cancelled at the next tick.
func (e *Executor) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
}

func (e *Executor) setState(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Terminal() {
		return
	}
	e.state = s
}

func (e *Executor) isPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *Executor) isStopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

func (e *Executor) recordResult(tr model.TaskResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results = append(e.results, tr)
}

func (e *Executor) setIndex(i int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.index = i
}

// skipRemaining records a Skipped result for every task from index from to
// the end of the list.
func (e *Executor) skipRemaining(from int) {
	for i := from; i < len(e.route.Tasks); i++ {
		e.recordResult(model.TaskResult{
			Name:    e.route.Tasks[i].DisplayName(),
			Outcome: model.OutcomeSkipped,
		})
	}
}

// Run executes the route to a terminal state and returns the recorded task
// results. Cancellation of ctx yields Cancelled; a deadline on ctx yields
// TimedOut. Loop-flagged routes restart at index 0 until stopped.
func (e *Executor) Run(ctx context.Context) []model.TaskResult {
	e.setState(StateRunning)
	bot := e.rt.Agent.Name()

	for {
		for idx := 0; idx < len(e.route.Tasks); idx++ {
			e.setIndex(idx)
			def := e.route.Tasks[idx]

			if interrupted := e.checkInterrupt(ctx, idx, def.DisplayName()); interrupted {
				return e.Results()
			}

			t, err := Build(def, e.rt.Agent.Class(), e.rt.TemplateCtx)
			if err != nil {
				e.failTask(def.DisplayName(), 0, err, idx)
				return e.Results()
			}

			logger.Logger.Debug("Starting task", "bot", bot, "task", t.Name(), "index", idx)
			started := time.Now()

			if err := t.Start(ctx, e.rt); err != nil {
				e.failTask(t.Name(), time.Since(started).Milliseconds(), err, idx)
				return e.Results()
			}

			deadline := started.Add(t.Timeout())
			done := false
			for !done {
				if interrupted := e.checkInterrupt(ctx, idx, t.Name()); interrupted {
					return e.Results()
				}
				if e.isPaused() {
					// Timeout clock stops with the task.
					deadline = deadline.Add(e.tickInterval)
					e.sleep(ctx)
					continue
				}

				done, err = t.Tick(ctx, e.rt)
				if err != nil {
					e.failTask(t.Name(), time.Since(started).Milliseconds(), err, idx)
					return e.Results()
				}
				if done {
					break
				}
				if time.Now().After(deadline) {
					e.failTask(t.Name(), time.Since(started).Milliseconds(),
						errors.New("task timed out after "+t.Timeout().String()), idx)
					return e.Results()
				}
				e.sleep(ctx)
			}

			e.recordResult(model.TaskResult{
				Name:       t.Name(),
				Outcome:    model.OutcomeSucceeded,
				DurationMs: time.Since(started).Milliseconds(),
			})
			logger.Logger.Debug("Task succeeded", "bot", bot, "task", t.Name())
		}

		if !e.route.Loop {
			e.setState(StateCompleted)
			return e.Results()
		}
		logger.Logger.Debug("Route loop restarting", "bot", bot, "route", e.route.Name)
	}
}

// checkInterrupt handles stop requests and context termination. Returns
// true when the executor reached a terminal state.
func (e *Executor) checkInterrupt(ctx context.Context, idx int, taskName string) bool {
	if e.isStopped() {
		e.skipRemaining(idx)
		e.setState(StateCancelled)
		return true
	}
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			e.recordResult(model.TaskResult{
				Name:    taskName,
				Outcome: model.OutcomeFailed,
				Error:   "route deadline exceeded",
			})
			e.skipRemaining(idx + 1)
			e.setState(StateTimedOut)
		} else {
			e.skipRemaining(idx)
			e.setState(StateCancelled)
		}
		return true
	default:
		return false
	}
}

func (e *Executor) failTask(name string, durationMs int64, err error, idx int) {
	logger.Logger.Warn("Task failed",
		"bot", e.rt.Agent.Name(),
		"task", name,
		"error", err)
	e.recordResult(model.TaskResult{
		Name:       name,
		Outcome:    model.OutcomeFailed,
		DurationMs: durationMs,
		Error:      err.Error(),
	})
	e.skipRemaining(idx + 1)
	e.setState(StateFailed)
}

func (e *Executor) sleep(ctx context.Context) {
	select {
	case <-time.After(e.tickInterval):
	case <-ctx.Done():
	}
}
