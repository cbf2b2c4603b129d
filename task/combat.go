package task

import (
	"context"
	"time"

	"github.com/Mathih13/botfarm/model"
)

// killMobsTask drives the agent's combat engine until the requested number
// of kills has been recorded, resting between engagements when the engine
// asks for it.
type killMobsTask struct {
	name       string
	targetID   uint64
	count      int
	timeout    time.Duration
	startKills int
	engaged    bool
	resting    bool
}

func newKillMobsTask(def model.TaskDefinition, params map[string]string) (Task, error) {
	targetID, err := requireUint64(params, "target_id")
	if err != nil {
		return nil, err
	}
	count, err := optInt(params, "count", 1)
	if err != nil {
		return nil, err
	}
	timeout, err := taskTimeout(params, 2*time.Minute)
	if err != nil {
		return nil, err
	}
	return &killMobsTask{name: def.DisplayName(), targetID: targetID, count: count, timeout: timeout}, nil
}

func (t *killMobsTask) Name() string           { return t.name }
func (t *killMobsTask) Timeout() time.Duration { return t.timeout }

func (t *killMobsTask) Start(ctx context.Context, rt *Runtime) error {
	t.startKills = rt.Agent.KillCount()
	rt.Logf("Killing %d of mob %d", t.count, t.targetID)
	return nil
}

func (t *killMobsTask) Tick(ctx context.Context, rt *Runtime) (bool, error) {
	kills := rt.Agent.KillCount() - t.startKills
	if kills >= t.count {
		if t.engaged {
			rt.Engine.OnCombatEnd(rt.Agent)
			t.engaged = false
		}
		rt.Logf("Kill goal reached (%d/%d)", kills, t.count)
		return true, nil
	}

	if rt.Agent.InCombat() {
		if !t.engaged {
			t.engaged = true
			t.resting = false
			rt.Engine.OnCombatStart(rt.Agent, t.targetID)
			return false, nil
		}
		rt.Engine.OnCombatUpdate(rt.Agent, t.targetID)
		return false, nil
	}

	// Between engagements.
	if t.engaged {
		rt.Engine.OnCombatEnd(rt.Agent)
		t.engaged = false
	}
	if t.resting || rt.Engine.NeedsRest(rt.Agent) {
		t.resting = !rt.Engine.OnRest(rt.Agent)
		return false, nil
	}

	// Engage the next mob; the engine's opening action pulls.
	t.engaged = true
	rt.Engine.OnCombatStart(rt.Agent, t.targetID)
	return false, nil
}

// adventureTask free-roams for a fixed duration, fighting back whenever the
// agent lands in combat and resting when the engine calls for it.
type adventureTask struct {
	name     string
	duration time.Duration
	deadline time.Time
	targetID uint64
	engaged  bool
}

func newAdventureTask(def model.TaskDefinition, params map[string]string) (Task, error) {
	dur, err := optDuration(params, "duration", 30*time.Second)
	if err != nil {
		return nil, err
	}
	return &adventureTask{name: def.DisplayName(), duration: dur}, nil
}

func (t *adventureTask) Name() string { return t.name }

func (t *adventureTask) Timeout() time.Duration {
	return t.duration + 30*time.Second
}

func (t *adventureTask) Start(ctx context.Context, rt *Runtime) error {
	t.deadline = time.Now().Add(t.duration)
	rt.Logf("Adventuring for %s", t.duration)
	return nil
}

func (t *adventureTask) Tick(ctx context.Context, rt *Runtime) (bool, error) {
	if rt.Agent.InCombat() {
		if !t.engaged {
			t.engaged = true
			rt.Engine.OnCombatStart(rt.Agent, t.targetID)
		} else {
			rt.Engine.OnCombatUpdate(rt.Agent, t.targetID)
		}
		return false, nil
	}
	if t.engaged {
		rt.Engine.OnCombatEnd(rt.Agent)
		t.engaged = false
	}

	if !time.Now().Before(t.deadline) {
		return true, nil
	}

	if rt.Engine.NeedsRest(rt.Agent) {
		rt.Engine.OnRest(rt.Agent)
	}
	return false, nil
}
