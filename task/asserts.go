package task

import (
	"context"
	"fmt"
	"time"

	"github.com/Mathih13/botfarm/model"
	"github.com/bytedance/sonic"
	"github.com/yalp/jsonpath"
)

// Assertion tasks are one-shot: the predicate is evaluated synchronously
// against currently known state on the first tick, and a miss is a task
// failure.

type assertQuestInLogTask struct {
	name    string
	questID uint32
	negate  bool
}

func newAssertQuestInLogTask(def model.TaskDefinition, params map[string]string) (Task, error) {
	questID, err := requireUint32(params, "quest_id")
	if err != nil {
		return nil, err
	}
	return &assertQuestInLogTask{name: def.DisplayName(), questID: questID}, nil
}

func newAssertQuestNotInLogTask(def model.TaskDefinition, params map[string]string) (Task, error) {
	questID, err := requireUint32(params, "quest_id")
	if err != nil {
		return nil, err
	}
	return &assertQuestInLogTask{name: def.DisplayName(), questID: questID, negate: true}, nil
}

func (t *assertQuestInLogTask) Name() string           { return t.name }
func (t *assertQuestInLogTask) Timeout() time.Duration { return DefaultTaskTimeout }

func (t *assertQuestInLogTask) Start(ctx context.Context, rt *Runtime) error {
	return nil
}

func (t *assertQuestInLogTask) Tick(ctx context.Context, rt *Runtime) (bool, error) {
	has := rt.Agent.HasQuest(t.questID)
	if t.negate {
		if has {
			return false, fmt.Errorf("quest %d unexpectedly in quest log", t.questID)
		}
		return true, nil
	}
	if !has {
		return false, fmt.Errorf("quest %d not in quest log", t.questID)
	}
	return true, nil
}

type assertHasItemTask struct {
	name      string
	itemEntry uint32
	minCount  int
}

func newAssertHasItemTask(def model.TaskDefinition, params map[string]string) (Task, error) {
	itemEntry, err := requireUint32(params, "item_entry")
	if err != nil {
		return nil, err
	}
	minCount, err := optInt(params, "min_count", 1)
	if err != nil {
		return nil, err
	}
	return &assertHasItemTask{name: def.DisplayName(), itemEntry: itemEntry, minCount: minCount}, nil
}

func (t *assertHasItemTask) Name() string           { return t.name }
func (t *assertHasItemTask) Timeout() time.Duration { return DefaultTaskTimeout }

func (t *assertHasItemTask) Start(ctx context.Context, rt *Runtime) error {
	return nil
}

func (t *assertHasItemTask) Tick(ctx context.Context, rt *Runtime) (bool, error) {
	count := rt.Agent.HasItem(t.itemEntry)
	if count < t.minCount {
		return false, fmt.Errorf("expected at least %d of item %d, have %d", t.minCount, t.itemEntry, count)
	}
	return true, nil
}

type assertLevelTask struct {
	name     string
	minLevel int
}

func newAssertLevelTask(def model.TaskDefinition, params map[string]string) (Task, error) {
	minLevel, err := optInt(params, "min_level", 1)
	if err != nil {
		return nil, err
	}
	return &assertLevelTask{name: def.DisplayName(), minLevel: minLevel}, nil
}

func (t *assertLevelTask) Name() string           { return t.name }
func (t *assertLevelTask) Timeout() time.Duration { return DefaultTaskTimeout }

func (t *assertLevelTask) Start(ctx context.Context, rt *Runtime) error {
	return nil
}

func (t *assertLevelTask) Tick(ctx context.Context, rt *Runtime) (bool, error) {
	level := rt.Agent.Level()
	if level < t.minLevel {
		return false, fmt.Errorf("expected level >= %d, is %d", t.minLevel, level)
	}
	return true, nil
}

// assertStateTask evaluates a JSONPath expression against the agent's
// serialized state snapshot and compares the result to an expected value.
type assertStateTask struct {
	name     string
	path     string
	expected string
}

func newAssertStateTask(def model.TaskDefinition, params map[string]string) (Task, error) {
	path, err := requireParam(params, "path")
	if err != nil {
		return nil, err
	}
	expected, err := requireParam(params, "equals")
	if err != nil {
		return nil, err
	}
	return &assertStateTask{name: def.DisplayName(), path: path, expected: expected}, nil
}

func (t *assertStateTask) Name() string           { return t.name }
func (t *assertStateTask) Timeout() time.Duration { return DefaultTaskTimeout }

func (t *assertStateTask) Start(ctx context.Context, rt *Runtime) error {
	return nil
}

func (t *assertStateTask) Tick(ctx context.Context, rt *Runtime) (bool, error) {
	raw, err := rt.Agent.StateSnapshot()
	if err != nil {
		return false, fmt.Errorf("failed to snapshot agent state: %w", err)
	}
	var data interface{}
	if err := sonic.Unmarshal(raw, &data); err != nil {
		return false, fmt.Errorf("failed to decode agent state: %w", err)
	}
	res, err := jsonpath.Read(data, t.path)
	if err != nil {
		return false, fmt.Errorf("invalid JSONPath '%s': %w", t.path, err)
	}
	actual := normalizeJSONValue(res)
	if actual != t.expected {
		return false, fmt.Errorf("state at '%s': expected '%s', got '%s'", t.path, t.expected, actual)
	}
	return true, nil
}

func normalizeJSONValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		return fmt.Sprint(val)
	}
}
