package coordinator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Mathih13/botfarm/combat"
	"github.com/Mathih13/botfarm/game"
	"github.com/Mathih13/botfarm/logger"
	"github.com/Mathih13/botfarm/model"
	"github.com/Mathih13/botfarm/task"
	"github.com/google/uuid"
	"github.com/life4/genesis/maps"
)

const DefaultHistoryLimit = 100

// TestRunCoordinator fans a route out across the harness's bot count and
// aggregates per-bot results into one pass/fail TestRun.
type TestRunCoordinator struct {
	factory      game.Factory
	tickInterval time.Duration
	historyLimit int
	events       notifier

	mu        sync.Mutex
	active    map[string]*runHandle
	completed []*model.TestRun
}

type runHandle struct {
	run    *model.TestRun
	cancel context.CancelFunc
	done   chan struct{}
}

// TestRunOptions tunes a coordinator. Zero values select defaults.
type TestRunOptions struct {
	Factory      game.Factory
	TickInterval time.Duration
	HistoryLimit int
}

func NewTestRunCoordinator(opts TestRunOptions) *TestRunCoordinator {
	factory := opts.Factory
	if factory == nil {
		factory = game.DefaultFactory()
	}
	tick := opts.TickInterval
	if tick <= 0 {
		tick = task.DefaultTickInterval
	}
	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &TestRunCoordinator{
		factory:      factory,
		tickInterval: tick,
		historyLimit: limit,
		active:       make(map[string]*runHandle),
	}
}

// Subscribe registers a lifecycle event listener.
func (c *TestRunCoordinator) Subscribe(l Listener) {
	c.events.Subscribe(l)
}

// StartTestRun loads the route at routePath and drives it across the
// harness's bots. The returned TestRun is live; completion is asynchronous.
// Configuration problems are reported synchronously before anything runs.
func (c *TestRunCoordinator) StartTestRun(ctx context.Context, routePath string) (*model.TestRun, error) {
	route, err := model.ParseRoute(routePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load route '%s': %w", routePath, err)
	}
	if err := model.ValidateRoute(route, true); err != nil {
		return nil, fmt.Errorf("invalid route '%s': %w", routePath, err)
	}
	return c.startRoute(ctx, routePath, route)
}

// startRoute runs an already-parsed, validated route.
func (c *TestRunCoordinator) startRoute(ctx context.Context, routePath string, route *model.RouteDefinition) (*model.TestRun, error) {
	run := &model.TestRun{
		ID:        uuid.New().String(),
		RoutePath: routePath,
		RouteName: route.Name,
		Status:    model.StatusPending,
		StartTime: time.Now(),
		Harness:   *route.Harness,
	}

	runCtx, cancel := context.WithCancel(ctx)
	handle := &runHandle{run: run, cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	c.active[run.ID] = handle
	c.mu.Unlock()

	run.MarkStatus(model.StatusRunning)
	logger.Logger.Info("Test run started",
		"run", run.ID,
		"route", route.Name,
		"bots", route.Harness.BotCount)
	c.events.publish(Event{Type: EventTestRunStarted, TestRun: run})

	go c.drive(runCtx, handle, route)

	return run, nil
}

// drive spawns one goroutine per bot and aggregates their results. The run
// is Passed only when every bot succeeded; any failure or timeout fails it;
// a cancelled context yields Cancelled regardless of partial outcomes.
func (c *TestRunCoordinator) drive(ctx context.Context, handle *runHandle, route *model.RouteDefinition) {
	run := handle.run
	botCount := run.Harness.BotCount

	staticCtx := CreateStaticTemplateContext(run.RoutePath, route.Variables)
	staticCtx["RUN_ID"] = run.ID

	results := make(chan model.BotResult, botCount)
	for i := 0; i < botCount; i++ {
		go c.runBot(ctx, run, route, staticCtx, i, results)
	}

	for i := 0; i < botCount; i++ {
		br := <-results
		run.AddBotResult(br)
		logger.Logger.Info("Bot completed",
			"run", run.ID,
			"bot", br.BotName,
			"success", br.Success,
			"completed", run.BotsCompleted,
			"total", botCount)
		c.events.publish(Event{Type: EventBotCompleted, TestRun: run, Bot: &br})
		c.events.publish(Event{Type: EventTestRunStatusChanged, TestRun: run})
	}

	final := model.StatusPassed
	if ctx.Err() != nil {
		final = model.StatusCancelled
	} else if run.BotsFailed > 0 {
		final = model.StatusFailed
	}
	run.MarkStatus(final)

	c.mu.Lock()
	delete(c.active, run.ID)
	c.completed = append(c.completed, run)
	if len(c.completed) > c.historyLimit {
		c.completed = c.completed[len(c.completed)-c.historyLimit:]
	}
	c.mu.Unlock()

	logger.Logger.Info("Test run completed",
		"run", run.ID,
		"status", final,
		"passed", run.BotsPassed,
		"failed", run.BotsFailed)
	c.events.publish(Event{Type: EventTestRunCompleted, TestRun: run})
	close(handle.done)
}

// runBot takes one bot from spawn through route completion. Failures stay
// local: they are converted into the BotResult, never propagated to sibling
// bots or the coordinator's control flow.
func (c *TestRunCoordinator) runBot(
	ctx context.Context,
	run *model.TestRun,
	route *model.RouteDefinition,
	staticCtx map[string]string,
	index int,
	results chan<- model.BotResult,
) {
	started := time.Now()
	br := model.BotResult{
		BotName: fmt.Sprintf("%s%d", run.Harness.AccountPrefix, index),
		Class:   run.Harness.ClassFor(index),
	}
	fail := func(err error) {
		br.Success = false
		br.TimedOut = errors.Is(err, context.DeadlineExceeded)
		br.Log = append(br.Log, err.Error())
		br.DurationMs = time.Since(started).Milliseconds()
		br.RecomputeCounts()
		results <- br
	}

	setupCtx, cancelSetup := context.WithTimeout(ctx, run.Harness.SetupDeadline())
	agent, err := c.factory.Spawn(setupCtx, run.Harness, index)
	cancelSetup()
	if err != nil {
		fail(fmt.Errorf("bot setup failed: %w", err))
		return
	}

	br.BotName = agent.Name()
	br.CharacterName = agent.CharacterName()
	br.Class = string(agent.Class())

	engine, err := combat.NewEngine(agent.Class())
	if err != nil {
		fail(err)
		return
	}

	templateCtx := make(map[string]string, len(staticCtx)+3)
	for k, v := range staticCtx {
		templateCtx[k] = v
	}
	templateCtx["BOT_NAME"] = br.BotName
	templateCtx["CHARACTER_NAME"] = br.CharacterName
	templateCtx["CLASS"] = br.Class

	rt := &task.Runtime{
		Agent:       agent,
		Engine:      engine,
		TemplateCtx: templateCtx,
		LogSink: func(line string) {
			br.Log = append(br.Log, line)
		},
	}

	testCtx, cancelTest := context.WithTimeout(ctx, run.Harness.TestDeadline())
	defer cancelTest()

	ex := task.NewExecutor(route, rt)
	ex.SetTickInterval(c.tickInterval)
	br.Tasks = ex.Run(testCtx)

	state := ex.State()
	br.Success = state == task.StateCompleted
	br.TimedOut = state == task.StateTimedOut
	br.DurationMs = time.Since(started).Milliseconds()
	br.RecomputeCounts()
	results <- br
}

// StopTestRun cancels a running test cooperatively. Returns false when no
// active run has the id.
func (c *TestRunCoordinator) StopTestRun(id string) bool {
	c.mu.Lock()
	handle, ok := c.active[id]
	c.mu.Unlock()
	if !ok {
		return false
	}
	logger.Logger.Info("Stopping test run", "run", id)
	handle.cancel()
	return true
}

// GetTestRun finds a run in the active or completed registries.
func (c *TestRunCoordinator) GetTestRun(id string) (*model.TestRun, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if handle, ok := c.active[id]; ok {
		return handle.run, true
	}
	for _, run := range c.completed {
		if run.ID == id {
			return run, true
		}
	}
	return nil, false
}

// ActiveRuns snapshots the currently running tests.
func (c *TestRunCoordinator) ActiveRuns() []*model.TestRun {
	c.mu.Lock()
	defer c.mu.Unlock()
	handles := maps.Values(c.active)
	runs := make([]*model.TestRun, 0, len(handles))
	for _, h := range handles {
		runs = append(runs, h.run)
	}
	return runs
}

// CompletedRuns snapshots the bounded completion history, oldest first.
func (c *TestRunCoordinator) CompletedRuns() []*model.TestRun {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*model.TestRun, len(c.completed))
	copy(out, c.completed)
	return out
}

// WaitTestRun blocks until the run reaches a terminal status. Returns false
// for an unknown id.
func (c *TestRunCoordinator) WaitTestRun(id string) bool {
	c.mu.Lock()
	handle, ok := c.active[id]
	c.mu.Unlock()
	if ok {
		<-handle.done
		return true
	}
	run, ok := c.GetTestRun(id)
	return ok && run.CurrentStatus().Terminal()
}

// CreateStaticTemplateContext builds the template variables available before
// execution begins: environment variables, ROUTE_DIR, TEMP_DIR, and the
// route's own variable block (which may itself reference the former).
func CreateStaticTemplateContext(sourceFile string, variables map[string]string) map[string]string {
	templateCtx := model.GetAllEnv()

	templateCtx["TEMP_DIR"] = os.TempDir()

	if sourceFile != "" {
		absPath, err := filepath.Abs(sourceFile)
		if err == nil {
			templateCtx["ROUTE_DIR"] = filepath.Dir(absPath)
		}
	}

	for k, v := range variables {
		templateCtx[k] = model.RenderTemplate(v, templateCtx)
	}
	return templateCtx
}
