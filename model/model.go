package model

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Mathih13/botfarm/logger"
	"github.com/aymerick/raymond"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSetupTimeout = 30 * time.Second
	DefaultTestTimeout  = 5 * time.Minute
	DefaultBotCount     = 1
)

// ============================================================================
// STATUSES AND OUTCOMES
// ============================================================================

// Status is the lifecycle state of a TestRun or TestSuiteRun.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusPassed    Status = "PASSED"
	StatusFailed    Status = "FAILED"
	StatusCancelled Status = "CANCELLED"
	StatusTimedOut  Status = "TIMED_OUT"
)

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusCancelled, StatusTimedOut:
		return true
	default:
		return false
	}
}

// Outcome is the result of one executed task step.
type Outcome string

const (
	OutcomeSucceeded Outcome = "SUCCEEDED"
	OutcomeFailed    Outcome = "FAILED"
	OutcomeSkipped   Outcome = "SKIPPED"
)

// ============================================================================
// HARNESS CONFIGURATION
// ============================================================================

type StartPosition struct {
	Map uint32  `yaml:"map" json:"map"`
	X   float32 `yaml:"x" json:"x"`
	Y   float32 `yaml:"y" json:"y"`
	Z   float32 `yaml:"z" json:"z"`
}

// HarnessSettings configures how a route is run as a test. Immutable once a
// TestRun starts.
type HarnessSettings struct {
	BotCount      int           `yaml:"bot_count" json:"botCount"`
	AccountPrefix string        `yaml:"account_prefix" json:"accountPrefix"`
	Classes       []string      `yaml:"classes" json:"classes"`
	Race          string        `yaml:"race" json:"race"`
	Level         int           `yaml:"level" json:"level"`
	Start         StartPosition `yaml:"start" json:"start"`
	SetupTimeout  string        `yaml:"setup_timeout,omitempty" json:"setupTimeout,omitempty"`
	TestTimeout   string        `yaml:"test_timeout,omitempty" json:"testTimeout,omitempty"`
}

// SetupDeadline returns the per-bot spawn/login timeout.
func (h HarnessSettings) SetupDeadline() time.Duration {
	return ParseTimeout(h.SetupTimeout, DefaultSetupTimeout)
}

// TestDeadline returns the per-bot route execution timeout.
func (h HarnessSettings) TestDeadline() time.Duration {
	return ParseTimeout(h.TestTimeout, DefaultTestTimeout)
}

// ClassFor picks the class for the bot at the given index, cycling through
// the allowed class mix.
func (h HarnessSettings) ClassFor(index int) string {
	if len(h.Classes) == 0 {
		return ""
	}
	return h.Classes[index%len(h.Classes)]
}

// KnownClass reports whether a class name is one the game recognizes, in
// any letter case.
func KnownClass(name string) bool {
	switch strings.ToLower(name) {
	case "warrior", "paladin", "mage", "priest", "warlock":
		return true
	default:
		return false
	}
}

// ============================================================================
// ROUTE DEFINITION
// ============================================================================

// RouteDefinition is an ordered, reusable scripted sequence of tasks. Loaded
// once per path and shared read-only by any number of concurrent route runs.
type RouteDefinition struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Loop        bool              `yaml:"loop,omitempty"`
	Harness     *HarnessSettings  `yaml:"harness,omitempty"`
	Variables   map[string]string `yaml:"variables,omitempty"`
	Tasks       []TaskDefinition  `yaml:"tasks"`
}

// Runnable reports whether the route carries harness settings and can be
// started directly as a test.
func (r *RouteDefinition) Runnable() bool {
	return r.Harness != nil
}

type TaskDefinition struct {
	Type        string                       `yaml:"type"`
	Name        string                       `yaml:"name,omitempty"`
	Params      map[string]string            `yaml:"params,omitempty"`
	ClassParams map[string]map[string]string `yaml:"class_params,omitempty"`
}

// DisplayName returns the task's configured name, falling back to its type
// tag.
func (td TaskDefinition) DisplayName() string {
	if td.Name != "" {
		return td.Name
	}
	return td.Type
}

// ParamsFor merges base params with the per-class overrides for the given
// class and renders {{...}} templates against the template context. The
// definition itself is never mutated.
func (td TaskDefinition) ParamsFor(class string, templateCtx map[string]string) map[string]string {
	merged := make(map[string]string, len(td.Params))
	for k, v := range td.Params {
		merged[k] = v
	}
	if overrides, ok := td.ClassParams[strings.ToLower(class)]; ok {
		for k, v := range overrides {
			merged[k] = v
		}
	}
	for k, v := range merged {
		merged[k] = RenderTemplate(v, templateCtx)
	}
	return merged
}

// ============================================================================
// SUITE DEFINITION
// ============================================================================

type SuiteDefinition struct {
	Name  string           `yaml:"name"`
	Tests []SuiteTestEntry `yaml:"tests"`
}

type SuiteTestEntry struct {
	ID        string   `yaml:"id,omitempty"`
	Route     string   `yaml:"route"`
	DependsOn []string `yaml:"depends_on,omitempty"`
}

// Key returns the entry's stable identifier, defaulting to its route path.
func (e SuiteTestEntry) Key() string {
	if e.ID != "" {
		return e.ID
	}
	return e.Route
}

// ============================================================================
// RESULTS
// ============================================================================

// TaskResult records the outcome of one executed task step. Immutable after
// the step finishes.
type TaskResult struct {
	Name       string  `json:"name"`
	Outcome    Outcome `json:"outcome"`
	DurationMs int64   `json:"durationMs"`
	Error      string  `json:"error,omitempty"`
}

// BotResult is one agent's run through a route. Owned exclusively by its
// route run and immutable once the agent reaches a terminal state.
type BotResult struct {
	BotName        string       `json:"botName"`
	CharacterName  string       `json:"characterName"`
	Class          string       `json:"class"`
	Success        bool         `json:"success"`
	TimedOut       bool         `json:"timedOut,omitempty"`
	Tasks          []TaskResult `json:"tasks"`
	TasksTotal     int          `json:"tasksTotal"`
	TasksCompleted int          `json:"tasksCompleted"`
	TasksFailed    int          `json:"tasksFailed"`
	TasksSkipped   int          `json:"tasksSkipped"`
	Log            []string     `json:"log,omitempty"`
	DurationMs     int64        `json:"durationMs"`
}

// RecomputeCounts derives the per-outcome counters from the task results.
func (br *BotResult) RecomputeCounts() {
	br.TasksTotal = len(br.Tasks)
	br.TasksCompleted = 0
	br.TasksFailed = 0
	br.TasksSkipped = 0
	for _, tr := range br.Tasks {
		switch tr.Outcome {
		case OutcomeSucceeded:
			br.TasksCompleted++
		case OutcomeFailed:
			br.TasksFailed++
		case OutcomeSkipped:
			br.TasksSkipped++
		}
	}
}

// TestRun is one execution of a route across N bots.
type TestRun struct {
	mu sync.Mutex

	ID        string          `json:"id"`
	RoutePath string          `json:"routePath"`
	RouteName string          `json:"routeName"`
	SuiteName string          `json:"suiteName,omitempty"`
	Status    Status          `json:"status"`
	StartTime time.Time       `json:"startTime"`
	EndTime   time.Time       `json:"endTime"`
	Harness   HarnessSettings `json:"harness"`
	Bots      []BotResult     `json:"bots"`

	BotsCompleted int `json:"botsCompleted"`
	BotsPassed    int `json:"botsPassed"`
	BotsFailed    int `json:"botsFailed"`
}

// MarkStatus transitions the run's status. Terminal states are never
// revisited; a transition attempt out of one returns false.
func (tr *TestRun) MarkStatus(s Status) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.Status.Terminal() {
		return false
	}
	tr.Status = s
	if s.Terminal() {
		tr.EndTime = time.Now()
	}
	return true
}

// CurrentStatus returns the run's status under the lock.
func (tr *TestRun) CurrentStatus() Status {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.Status
}

// AddBotResult appends a finished bot's result and refreshes the derived
// counters. Results arriving after the run went terminal are dropped.
func (tr *TestRun) AddBotResult(br BotResult) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.Status.Terminal() {
		return false
	}
	if len(tr.Bots) >= tr.Harness.BotCount {
		logger.Logger.Warn("Bot result exceeds harness bot count, dropping",
			"run", tr.ID,
			"bot", br.BotName)
		return false
	}
	tr.Bots = append(tr.Bots, br)
	tr.BotsCompleted = len(tr.Bots)
	tr.BotsPassed = 0
	tr.BotsFailed = 0
	for _, b := range tr.Bots {
		if b.Success {
			tr.BotsPassed++
		} else {
			tr.BotsFailed++
		}
	}
	return true
}

// Passed reports whether every bot succeeded. Only meaningful once the run
// is terminal.
func (tr *TestRun) Passed() bool {
	return tr.CurrentStatus() == StatusPassed
}

// TestSuiteRun is one execution of a suite definition.
type TestSuiteRun struct {
	mu sync.Mutex

	ID        string     `json:"id"`
	SuitePath string     `json:"suitePath"`
	SuiteName string     `json:"suiteName"`
	Parallel  bool       `json:"parallel"`
	Status    Status     `json:"status"`
	StartTime time.Time  `json:"startTime"`
	EndTime   time.Time  `json:"endTime"`
	Tests     []*TestRun `json:"tests"`

	TestsTotal     int `json:"testsTotal"`
	TestsCompleted int `json:"testsCompleted"`
	TestsPassed    int `json:"testsPassed"`
	TestsFailed    int `json:"testsFailed"`
}

func (sr *TestSuiteRun) MarkStatus(s Status) bool {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	if sr.Status.Terminal() {
		return false
	}
	sr.Status = s
	if s.Terminal() {
		sr.EndTime = time.Now()
	}
	return true
}

func (sr *TestSuiteRun) CurrentStatus() Status {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return sr.Status
}

// AddTestRun attaches a child run and refreshes the derived counters from
// every child that already reached a terminal status.
func (sr *TestSuiteRun) AddTestRun(tr *TestRun) {
	sr.mu.Lock()
	sr.Tests = append(sr.Tests, tr)
	sr.mu.Unlock()
	sr.RefreshCounts()
}

// ReplaceTests swaps the child-run collection wholesale. Parallel suites
// collect children in completion order and restore a stable order for
// reporting once the suite finishes.
func (sr *TestSuiteRun) ReplaceTests(tests []*TestRun) {
	sr.mu.Lock()
	sr.Tests = tests
	sr.mu.Unlock()
}

func (sr *TestSuiteRun) RefreshCounts() {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.TestsCompleted = 0
	sr.TestsPassed = 0
	sr.TestsFailed = 0
	for _, tr := range sr.Tests {
		st := tr.CurrentStatus()
		if !st.Terminal() {
			continue
		}
		sr.TestsCompleted++
		if st == StatusPassed {
			sr.TestsPassed++
		} else {
			sr.TestsFailed++
		}
	}
}

// ============================================================================
// PARSING
// ============================================================================

func ParseRoute(filename string) (*RouteDefinition, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseRouteFromString(string(data))
}

func ParseRouteFromString(definition string) (*RouteDefinition, error) {
	var route RouteDefinition
	if err := yaml.Unmarshal([]byte(definition), &route); err != nil {
		return nil, fmt.Errorf("failed to parse YAML route: %w", err)
	}
	return &route, nil
}

func ParseSuite(filename string) (*SuiteDefinition, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return ParseSuiteFromString(string(data))
}

func ParseSuiteFromString(definition string) (*SuiteDefinition, error) {
	var suite SuiteDefinition
	if err := yaml.Unmarshal([]byte(definition), &suite); err != nil {
		return nil, fmt.Errorf("failed to parse YAML suite: %w", err)
	}
	return &suite, nil
}

// SerializeRoute renders a route definition back to YAML.
func SerializeRoute(route *RouteDefinition) (string, error) {
	data, err := yaml.Marshal(route)
	if err != nil {
		return "", fmt.Errorf("failed to serialize route: %w", err)
	}
	return string(data), nil
}

// SerializeSuite renders a suite definition back to YAML.
func SerializeSuite(suite *SuiteDefinition) (string, error) {
	data, err := yaml.Marshal(suite)
	if err != nil {
		return "", fmt.Errorf("failed to serialize suite: %w", err)
	}
	return string(data), nil
}

// ============================================================================
// VALIDATION
// ============================================================================

// ValidateRoute checks structural soundness of a route definition.
// requireHarness is set when the route is about to be run directly as a
// test.
func ValidateRoute(route *RouteDefinition, requireHarness bool) error {
	if route == nil {
		return fmt.Errorf("route definition is nil")
	}
	if len(route.Tasks) == 0 {
		return fmt.Errorf("route '%s' has no tasks", route.Name)
	}
	for i, td := range route.Tasks {
		if td.Type == "" {
			return fmt.Errorf("route '%s' task at index %d has empty type", route.Name, i)
		}
	}
	if requireHarness {
		if route.Harness == nil {
			return fmt.Errorf("route '%s' has no harness section and cannot be run as a test", route.Name)
		}
		if route.Harness.BotCount <= 0 {
			return fmt.Errorf("route '%s' harness bot_count must be positive", route.Name)
		}
		if route.Harness.Level <= 0 {
			return fmt.Errorf("route '%s' harness level must be positive", route.Name)
		}
		if len(route.Harness.Classes) == 0 {
			return fmt.Errorf("route '%s' harness has no classes configured", route.Name)
		}
		for _, class := range route.Harness.Classes {
			if !KnownClass(class) {
				return fmt.Errorf("route '%s' harness has unknown class '%s'", route.Name, class)
			}
		}
	}
	return nil
}

func ValidateSuite(suite *SuiteDefinition) error {
	if suite == nil {
		return fmt.Errorf("suite definition is nil")
	}
	if len(suite.Tests) == 0 {
		return fmt.Errorf("suite '%s' has no tests", suite.Name)
	}
	seen := make(map[string]bool, len(suite.Tests))
	for i, entry := range suite.Tests {
		if entry.Route == "" {
			return fmt.Errorf("suite '%s' test at index %d has empty route", suite.Name, i)
		}
		key := entry.Key()
		if seen[key] {
			return fmt.Errorf("suite '%s' has duplicate test id '%s'", suite.Name, key)
		}
		seen[key] = true
	}
	return nil
}

// ============================================================================
// TIMEOUTS AND TEMPLATES
// ============================================================================

// ParseTimeout parses a duration string, falling back to def on empty or
// invalid input.
func ParseTimeout(timeoutStr string, def time.Duration) time.Duration {
	if timeoutStr == "" {
		return def
	}

	dur, err := time.ParseDuration(timeoutStr)
	if err != nil {
		logger.Logger.Warn("Invalid timeout, using default",
			"timeout", timeoutStr,
			"default", def,
			"error", err)
		return def
	}

	if dur < 0 {
		logger.Logger.Warn("Negative timeout, using 0", "timeout", dur)
		return 0
	}

	return dur
}

func GetAllEnv() map[string]string {
	envMap := make(map[string]string)
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) == 2 {
			envMap[parts[0]] = parts[1]
		}
	}
	return envMap
}

// RenderTemplate safely parses and executes a Raymond template.
// If parsing or execution fails, it returns the input string unchanged.
func RenderTemplate(input string, context map[string]string) string {
	if !strings.Contains(input, "{{") {
		return input
	}

	tmpl, err := raymond.Parse(input)
	if err != nil {
		logger.Logger.Warn("Failed to parse template", "error", err)
		return input
	}

	output, err := tmpl.Exec(context)
	if err != nil {
		logger.Logger.Warn("Failed to execute template", "error", err)
		return input
	}

	return output
}
