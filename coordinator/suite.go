package coordinator

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/Mathih13/botfarm/logger"
	"github.com/Mathih13/botfarm/model"
	"github.com/google/uuid"
)

// TestSuiteCoordinator schedules a suite's tests around their declared
// dependencies, delegating each test to a TestRunCoordinator.
type TestSuiteCoordinator struct {
	runs   *TestRunCoordinator
	events notifier

	historyLimit int

	mu        sync.Mutex
	active    map[string]*suiteHandle
	completed []*model.TestSuiteRun
}

type suiteHandle struct {
	run    *model.TestSuiteRun
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTestSuiteCoordinator wraps a run coordinator. A nil argument gets a
// coordinator with default options.
func NewTestSuiteCoordinator(runs *TestRunCoordinator) *TestSuiteCoordinator {
	if runs == nil {
		runs = NewTestRunCoordinator(TestRunOptions{})
	}
	return &TestSuiteCoordinator{
		runs:         runs,
		historyLimit: DefaultHistoryLimit,
		active:       make(map[string]*suiteHandle),
	}
}

// Runs exposes the underlying test run coordinator.
func (c *TestSuiteCoordinator) Runs() *TestRunCoordinator {
	return c.runs
}

// Subscribe registers a listener for suite events and for the underlying
// test run events.
func (c *TestSuiteCoordinator) Subscribe(l Listener) {
	c.events.Subscribe(l)
	c.runs.Subscribe(l)
}

// StartSuiteRun loads the suite at suitePath and schedules its tests. In
// parallel mode tests start as soon as every dependency has finished; in
// sequential mode they run one at a time in file order. Route paths are
// resolved relative to the suite file. Configuration problems, including
// dependency cycles, are reported synchronously before anything runs.
func (c *TestSuiteCoordinator) StartSuiteRun(ctx context.Context, suitePath string, parallel bool) (*model.TestSuiteRun, error) {
	suite, err := model.ParseSuite(suitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load suite '%s': %w", suitePath, err)
	}
	if err := model.ValidateSuite(suite); err != nil {
		return nil, fmt.Errorf("invalid suite '%s': %w", suitePath, err)
	}
	graph, err := buildDepGraph(suite.Tests)
	if err != nil {
		return nil, fmt.Errorf("invalid suite '%s': %w", suitePath, err)
	}
	if !parallel {
		if err := checkSequentialOrder(graph); err != nil {
			return nil, fmt.Errorf("invalid suite '%s': %w", suitePath, err)
		}
	}

	run := &model.TestSuiteRun{
		ID:         uuid.New().String(),
		SuitePath:  suitePath,
		SuiteName:  suite.Name,
		Parallel:   parallel,
		Status:     model.StatusPending,
		StartTime:  time.Now(),
		TestsTotal: len(suite.Tests),
	}

	suiteCtx, cancel := context.WithCancel(ctx)
	handle := &suiteHandle{run: run, cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	c.active[run.ID] = handle
	c.mu.Unlock()

	run.MarkStatus(model.StatusRunning)
	logger.Logger.Info("Suite started",
		"suite", suite.Name,
		"tests", len(suite.Tests),
		"parallel", parallel)
	c.events.publish(Event{Type: EventSuiteStarted, SuiteRun: run})

	go c.drive(suiteCtx, handle, suite, graph)

	return run, nil
}

// checkSequentialOrder rejects suites whose sequential file order would run
// a test before one of its dependencies.
func checkSequentialOrder(graph *depGraph) error {
	seen := make(map[string]bool, len(graph.order))
	for _, key := range graph.order {
		for _, dep := range graph.Deps(key) {
			if !seen[dep] {
				return fmt.Errorf("test '%s' depends on '%s' which appears later in the suite", key, dep)
			}
		}
		seen[key] = true
	}
	return nil
}

func (c *TestSuiteCoordinator) drive(ctx context.Context, handle *suiteHandle, suite *model.SuiteDefinition, graph *depGraph) {
	run := handle.run
	suiteDir := filepath.Dir(run.SuitePath)

	entries := make(map[string]model.SuiteTestEntry, len(suite.Tests))
	for _, entry := range suite.Tests {
		entries[entry.Key()] = entry
	}

	finished := make(map[string]bool, len(graph.order))
	if run.Parallel {
		c.driveParallel(ctx, run, graph, entries, suiteDir, finished)
	} else {
		c.driveSequential(ctx, run, graph, entries, suiteDir, finished)
	}

	final := model.StatusPassed
	if ctx.Err() != nil {
		final = model.StatusCancelled
	} else if run.TestsFailed > 0 || run.TestsCompleted < run.TestsTotal {
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

	logger.Logger.Info("Suite completed",
		"suite", run.SuiteName,
		"status", final,
		"passed", run.TestsPassed,
		"failed", run.TestsFailed)
	c.events.publish(Event{Type: EventSuiteCompleted, SuiteRun: run})
	close(handle.done)
}

// driveSequential runs tests one at a time in file order. A cancelled
// context stops the suite between tests; earlier failures do not, since
// dependencies gate ordering rather than outcome.
func (c *TestSuiteCoordinator) driveSequential(
	ctx context.Context,
	run *model.TestSuiteRun,
	graph *depGraph,
	entries map[string]model.SuiteTestEntry,
	suiteDir string,
	finished map[string]bool,
) {
	for _, key := range graph.order {
		if ctx.Err() != nil {
			return
		}
		c.runSuiteTest(ctx, run, entries[key], suiteDir)
		finished[key] = true
	}
}

// driveParallel starts every test whose dependencies have finished and
// dispatches more as completions come in. Children land on the suite run
// in completion order while running, then get restored to dependency order
// so reports read the same regardless of scheduling.
func (c *TestSuiteCoordinator) driveParallel(
	ctx context.Context,
	run *model.TestSuiteRun,
	graph *depGraph,
	entries map[string]model.SuiteTestEntry,
	suiteDir string,
	finished map[string]bool,
) {
	type completion struct {
		key string
		run *model.TestRun
	}

	started := make(map[string]bool, len(graph.order))
	completions := make(chan completion, len(graph.order))

	dispatch := func() int {
		dispatched := 0
		for _, key := range graph.order {
			if started[key] || !depsFinished(graph.Deps(key), finished) {
				continue
			}
			started[key] = true
			dispatched++
			key := key
			go func() {
				completions <- completion{key: key, run: c.runSuiteTest(ctx, run, entries[key], suiteDir)}
			}()
		}
		return dispatched
	}

	byKey := make(map[string]*model.TestRun, len(graph.order))
	pending := dispatch()
	for pending > 0 {
		done := <-completions
		finished[done.key] = true
		byKey[done.key] = done.run
		pending--
		if ctx.Err() != nil {
			continue
		}
		pending += dispatch()
	}

	ordered := make([]*model.TestRun, 0, len(byKey))
	for _, key := range graph.TopoOrder() {
		if tr, ok := byKey[key]; ok {
			ordered = append(ordered, tr)
		}
	}
	run.ReplaceTests(ordered)
}

func depsFinished(deps []string, finished map[string]bool) bool {
	for _, dep := range deps {
		if !finished[dep] {
			return false
		}
	}
	return true
}

// runSuiteTest runs one suite entry to completion and folds its result into
// the suite run. A test that cannot even start still produces a failed
// TestRun so the suite's counts stay honest.
func (c *TestSuiteCoordinator) runSuiteTest(ctx context.Context, run *model.TestSuiteRun, entry model.SuiteTestEntry, suiteDir string) *model.TestRun {
	routePath := entry.Route
	if !filepath.IsAbs(routePath) {
		routePath = filepath.Join(suiteDir, routePath)
	}

	testRun, err := c.runs.StartTestRun(ctx, routePath)
	if err != nil {
		logger.Logger.Error("Suite test failed to start",
			"suite", run.SuiteName,
			"test", entry.Key(),
			"error", err)
		now := time.Now()
		testRun = &model.TestRun{
			ID:        uuid.New().String(),
			RoutePath: routePath,
			RouteName: entry.Key(),
			SuiteName: run.SuiteName,
			Status:    model.StatusFailed,
			StartTime: now,
			EndTime:   now,
		}
	} else {
		testRun.SuiteName = run.SuiteName
		c.runs.WaitTestRun(testRun.ID)
	}

	run.AddTestRun(testRun)
	run.RefreshCounts()
	c.events.publish(Event{Type: EventSuiteTestCompleted, SuiteRun: run, TestRun: testRun})
	return testRun
}

// StopSuiteRun cancels an active suite cooperatively. Returns false when no
// active suite has the id.
func (c *TestSuiteCoordinator) StopSuiteRun(id string) bool {
	c.mu.Lock()
	handle, ok := c.active[id]
	c.mu.Unlock()
	if !ok {
		return false
	}
	logger.Logger.Info("Stopping suite run", "suite", id)
	handle.cancel()
	return true
}

// GetSuiteRun finds a suite run in the active or completed registries.
func (c *TestSuiteCoordinator) GetSuiteRun(id string) (*model.TestSuiteRun, bool) {
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

// ActiveSuites snapshots the currently running suites.
func (c *TestSuiteCoordinator) ActiveSuites() []*model.TestSuiteRun {
	c.mu.Lock()
	defer c.mu.Unlock()
	runs := make([]*model.TestSuiteRun, 0, len(c.active))
	for _, h := range c.active {
		runs = append(runs, h.run)
	}
	return runs
}

// CompletedSuites snapshots the bounded completion history, oldest first.
func (c *TestSuiteCoordinator) CompletedSuites() []*model.TestSuiteRun {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*model.TestSuiteRun, len(c.completed))
	copy(out, c.completed)
	return out
}

// WaitSuiteRun blocks until the suite reaches a terminal status. Returns
// false for an unknown id.
func (c *TestSuiteCoordinator) WaitSuiteRun(id string) bool {
	c.mu.Lock()
	handle, ok := c.active[id]
	c.mu.Unlock()
	if ok {
		<-handle.done
		return true
	}
	run, ok := c.GetSuiteRun(id)
	return ok && run.CurrentStatus().Terminal()
}
