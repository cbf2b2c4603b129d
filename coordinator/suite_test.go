package coordinator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Mathih13/botfarm/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quickRoute(name string) string {
	return fmt.Sprintf(`
name: %s
harness:
  bot_count: 1
  classes: [warrior]
  level: 5
tasks:
  - type: wait
    params:
      duration: 5ms
`, name)
}

const failingRoute = `
name: doomed
harness:
  bot_count: 1
  classes: [warrior]
  level: 5
tasks:
  - type: assert_level
    params:
      min_level: "99"
`

// suiteFixture writes the routes plus a suite file and returns the suite
// path.
func suiteFixture(t *testing.T, routes map[string]string, suite string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range routes {
		writeRoute(t, dir, name, content)
	}
	return writeRoute(t, dir, "suite.yaml", suite)
}

func newSuiteCoordinator() *TestSuiteCoordinator {
	return NewTestSuiteCoordinator(newTestCoordinator(TestRunOptions{}))
}

// ============================================================================
// Sequential Suites
// ============================================================================

func TestSuiteSequential(t *testing.T) {
	t.Run("Runs in file order and passes", func(t *testing.T) {
		path := suiteFixture(t, map[string]string{
			"a.yaml": quickRoute("route a"),
			"b.yaml": quickRoute("route b"),
		}, `
name: in order
tests:
  - id: a
    route: a.yaml
  - id: b
    route: b.yaml
    depends_on: [a]
`)
		suites := newSuiteCoordinator()
		run, err := suites.StartSuiteRun(context.Background(), path, false)
		require.NoError(t, err)
		require.True(t, suites.WaitSuiteRun(run.ID))

		assert.Equal(t, model.StatusPassed, run.CurrentStatus())
		assert.Equal(t, 2, run.TestsCompleted)
		assert.Equal(t, 2, run.TestsPassed)
		require.Len(t, run.Tests, 2)
		assert.Equal(t, "route a", run.Tests[0].RouteName)
		assert.Equal(t, "route b", run.Tests[1].RouteName)
	})

	t.Run("A failed dependency does not block later tests", func(t *testing.T) {
		path := suiteFixture(t, map[string]string{
			"a.yaml": failingRoute,
			"b.yaml": quickRoute("route b"),
		}, `
name: keep going
tests:
  - id: a
    route: a.yaml
  - id: b
    route: b.yaml
    depends_on: [a]
`)
		suites := newSuiteCoordinator()
		run, err := suites.StartSuiteRun(context.Background(), path, false)
		require.NoError(t, err)
		suites.WaitSuiteRun(run.ID)

		assert.Equal(t, model.StatusFailed, run.CurrentStatus())
		assert.Equal(t, 2, run.TestsCompleted)
		assert.Equal(t, 1, run.TestsPassed)
		assert.Equal(t, 1, run.TestsFailed)
	})

	t.Run("Forward dependency is rejected up front", func(t *testing.T) {
		path := suiteFixture(t, map[string]string{
			"a.yaml": quickRoute("route a"),
			"b.yaml": quickRoute("route b"),
		}, `
name: out of order
tests:
  - id: a
    route: a.yaml
    depends_on: [b]
  - id: b
    route: b.yaml
`)
		suites := newSuiteCoordinator()
		_, err := suites.StartSuiteRun(context.Background(), path, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "appears later")
		assert.Empty(t, suites.ActiveSuites())
	})
}

// ============================================================================
// Parallel Suites
// ============================================================================

func TestSuiteParallel(t *testing.T) {
	t.Run("Dependencies gate scheduling, not outcome", func(t *testing.T) {
		path := suiteFixture(t, map[string]string{
			"a.yaml": failingRoute,
			"b.yaml": quickRoute("route b"),
			"c.yaml": quickRoute("route c"),
		}, `
name: diamondish
tests:
  - id: a
    route: a.yaml
  - id: b
    route: b.yaml
    depends_on: [a]
  - id: c
    route: c.yaml
`)
		suites := newSuiteCoordinator()
		run, err := suites.StartSuiteRun(context.Background(), path, true)
		require.NoError(t, err)
		suites.WaitSuiteRun(run.ID)

		assert.Equal(t, model.StatusFailed, run.CurrentStatus())
		assert.Equal(t, 3, run.TestsCompleted)
		assert.Equal(t, 2, run.TestsPassed)
		assert.Equal(t, 1, run.TestsFailed)
	})

	t.Run("All passing, results in dependency order", func(t *testing.T) {
		path := suiteFixture(t, map[string]string{
			"a.yaml": quickRoute("route a"),
			"b.yaml": quickRoute("route b"),
			"c.yaml": quickRoute("route c"),
		}, `
name: fan out
tests:
  - id: a
    route: a.yaml
  - id: b
    route: b.yaml
  - id: c
    route: c.yaml
    depends_on: [a, b]
`)
		suites := newSuiteCoordinator()
		run, err := suites.StartSuiteRun(context.Background(), path, true)
		require.NoError(t, err)
		suites.WaitSuiteRun(run.ID)

		assert.Equal(t, model.StatusPassed, run.CurrentStatus())
		assert.Equal(t, 3, run.TestsPassed)

		require.Len(t, run.Tests, 3)
		assert.Equal(t, "route a", run.Tests[0].RouteName)
		assert.Equal(t, "route b", run.Tests[1].RouteName)
		assert.Equal(t, "route c", run.Tests[2].RouteName)
	})

	t.Run("Independent tests run concurrently", func(t *testing.T) {
		longWait := func(name string) string {
			return fmt.Sprintf(`
name: %s
harness:
  bot_count: 1
  classes: [warrior]
  level: 5
tasks:
  - type: wait
    params:
      duration: 100ms
`, name)
		}
		path := suiteFixture(t, map[string]string{
			"a.yaml": longWait("route a"),
			"b.yaml": longWait("route b"),
		}, `
name: side by side
tests:
  - id: a
    route: a.yaml
  - id: b
    route: b.yaml
`)
		suites := newSuiteCoordinator()
		run, err := suites.StartSuiteRun(context.Background(), path, true)
		require.NoError(t, err)
		suites.WaitSuiteRun(run.ID)

		assert.Equal(t, model.StatusPassed, run.CurrentStatus())
		require.Len(t, run.Tests, 2)

		// Serialized execution would finish one run before the other
		// started; both intervals must overlap.
		first, second := run.Tests[0], run.Tests[1]
		assert.True(t, first.StartTime.Before(second.EndTime),
			"%s started after %s ended", first.RouteName, second.RouteName)
		assert.True(t, second.StartTime.Before(first.EndTime),
			"%s started after %s ended", second.RouteName, first.RouteName)
	})
}

// ============================================================================
// Configuration Errors
// ============================================================================

func TestSuiteConfigErrors(t *testing.T) {
	t.Run("Dependency cycle never schedules anything", func(t *testing.T) {
		path := suiteFixture(t, map[string]string{
			"a.yaml": quickRoute("route a"),
			"b.yaml": quickRoute("route b"),
		}, `
name: snake
tests:
  - id: a
    route: a.yaml
    depends_on: [b]
  - id: b
    route: b.yaml
    depends_on: [a]
`)
		suites := newSuiteCoordinator()
		_, err := suites.StartSuiteRun(context.Background(), path, true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dependency cycle")
		assert.Empty(t, suites.ActiveSuites())
		assert.Empty(t, suites.Runs().CompletedRuns())
	})

	t.Run("Unknown dependency", func(t *testing.T) {
		path := suiteFixture(t, map[string]string{
			"a.yaml": quickRoute("route a"),
		}, `
name: dangling
tests:
  - id: a
    route: a.yaml
    depends_on: [ghost]
`)
		suites := newSuiteCoordinator()
		_, err := suites.StartSuiteRun(context.Background(), path, true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown test")
	})

	t.Run("Missing route file fails that test, not the suite start", func(t *testing.T) {
		path := suiteFixture(t, map[string]string{
			"a.yaml": quickRoute("route a"),
		}, `
name: half there
tests:
  - id: a
    route: a.yaml
  - id: b
    route: missing.yaml
`)
		suites := newSuiteCoordinator()
		run, err := suites.StartSuiteRun(context.Background(), path, false)
		require.NoError(t, err)
		suites.WaitSuiteRun(run.ID)

		assert.Equal(t, model.StatusFailed, run.CurrentStatus())
		assert.Equal(t, 2, run.TestsCompleted)
		assert.Equal(t, 1, run.TestsFailed)
	})
}

// ============================================================================
// Stop and Events
// ============================================================================

func TestStopSuiteRun(t *testing.T) {
	path := suiteFixture(t, map[string]string{
		"slow.yaml": slowRoute,
	}, `
name: sluggish
tests:
  - id: slow
    route: slow.yaml
`)
	suites := newSuiteCoordinator()
	run, err := suites.StartSuiteRun(context.Background(), path, false)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.True(t, suites.StopSuiteRun(run.ID))
	suites.WaitSuiteRun(run.ID)

	assert.Equal(t, model.StatusCancelled, run.CurrentStatus())
	assert.False(t, suites.StopSuiteRun(run.ID))

	found, ok := suites.GetSuiteRun(run.ID)
	require.True(t, ok)
	assert.Equal(t, run.ID, found.ID)
}

func TestSuiteEvents(t *testing.T) {
	path := suiteFixture(t, map[string]string{
		"a.yaml": quickRoute("route a"),
	}, `
name: narrated
tests:
  - id: a
    route: a.yaml
`)
	suites := newSuiteCoordinator()
	events := &collector{}
	suites.Subscribe(events.listen)

	run, err := suites.StartSuiteRun(context.Background(), path, false)
	require.NoError(t, err)
	suites.WaitSuiteRun(run.ID)

	types := events.types()
	assert.Equal(t, EventSuiteStarted, types[0])
	assert.Equal(t, EventSuiteCompleted, types[len(types)-1])
	assert.Contains(t, types, EventSuiteTestCompleted)
	assert.Contains(t, types, EventTestRunCompleted)
}
