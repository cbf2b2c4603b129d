package task

import (
	"context"
	"time"

	"github.com/Mathih13/botfarm/game"
	"github.com/Mathih13/botfarm/model"
)

// ============================================================================
// WAIT
// ============================================================================

type waitTask struct {
	name     string
	duration time.Duration
	deadline time.Time
}

func newWaitTask(def model.TaskDefinition, params map[string]string) (Task, error) {
	dur, err := optDuration(params, "duration", time.Second)
	if err != nil {
		return nil, err
	}
	return &waitTask{name: def.DisplayName(), duration: dur}, nil
}

func (t *waitTask) Name() string { return t.name }

func (t *waitTask) Timeout() time.Duration {
	// The wait itself can never time out; pad the deadline past it.
	return t.duration + 5*time.Second
}

func (t *waitTask) Start(ctx context.Context, rt *Runtime) error {
	t.deadline = time.Now().Add(t.duration)
	return nil
}

func (t *waitTask) Tick(ctx context.Context, rt *Runtime) (bool, error) {
	return !time.Now().Before(t.deadline), nil
}

// ============================================================================
// LOG MESSAGE
// ============================================================================

type logMessageTask struct {
	name    string
	message string
}

func newLogMessageTask(def model.TaskDefinition, params map[string]string) (Task, error) {
	msg, err := requireParam(params, "message")
	if err != nil {
		return nil, err
	}
	return &logMessageTask{name: def.DisplayName(), message: msg}, nil
}

func (t *logMessageTask) Name() string           { return t.name }
func (t *logMessageTask) Timeout() time.Duration { return DefaultTaskTimeout }

func (t *logMessageTask) Start(ctx context.Context, rt *Runtime) error {
	rt.Logf("%s", t.message)
	return nil
}

func (t *logMessageTask) Tick(ctx context.Context, rt *Runtime) (bool, error) {
	return true, nil
}

// ============================================================================
// MOVEMENT
// ============================================================================

type moveToLocationTask struct {
	name      string
	target    game.Position
	tolerance float32
	timeout   time.Duration
}

func newMoveToLocationTask(def model.TaskDefinition, params map[string]string) (Task, error) {
	return newMoveTask(def, params)
}

// move_to_npc shares the movement mechanics; the npc id is only used for
// logging since the destination coordinates come from the route.
func newMoveToNPCTask(def model.TaskDefinition, params map[string]string) (Task, error) {
	if _, err := requireUint64(params, "npc_id"); err != nil {
		return nil, err
	}
	return newMoveTask(def, params)
}

func newMoveTask(def model.TaskDefinition, params map[string]string) (Task, error) {
	x, err := optFloat(params, "x", 0)
	if err != nil {
		return nil, err
	}
	y, err := optFloat(params, "y", 0)
	if err != nil {
		return nil, err
	}
	z, err := optFloat(params, "z", 0)
	if err != nil {
		return nil, err
	}
	mapID, err := optInt(params, "map", 0)
	if err != nil {
		return nil, err
	}
	tolerance, err := optFloat(params, "tolerance", DefaultTolerance)
	if err != nil {
		return nil, err
	}
	timeout, err := taskTimeout(params, DefaultTaskTimeout)
	if err != nil {
		return nil, err
	}
	return &moveToLocationTask{
		name:      def.DisplayName(),
		target:    game.Position{Map: uint32(mapID), X: float32(x), Y: float32(y), Z: float32(z)},
		tolerance: float32(tolerance),
		timeout:   timeout,
	}, nil
}

func (t *moveToLocationTask) Name() string           { return t.name }
func (t *moveToLocationTask) Timeout() time.Duration { return t.timeout }

func (t *moveToLocationTask) Start(ctx context.Context, rt *Runtime) error {
	rt.Logf("Moving to (%.1f, %.1f, %.1f)", t.target.X, t.target.Y, t.target.Z)
	rt.Agent.MoveTo(t.target)
	return nil
}

func (t *moveToLocationTask) Tick(ctx context.Context, rt *Runtime) (bool, error) {
	return rt.Agent.Position().DistanceTo(t.target) <= t.tolerance, nil
}

// ============================================================================
// INTERACTION
// ============================================================================

type interactTask struct {
	name     string
	targetID uint64
	isObject bool
	timeout  time.Duration
}

func newTalkToNPCTask(def model.TaskDefinition, params map[string]string) (Task, error) {
	npcID, err := requireUint64(params, "npc_id")
	if err != nil {
		return nil, err
	}
	timeout, err := taskTimeout(params, DefaultTaskTimeout)
	if err != nil {
		return nil, err
	}
	return &interactTask{name: def.DisplayName(), targetID: npcID, timeout: timeout}, nil
}

func newUseObjectTask(def model.TaskDefinition, params map[string]string) (Task, error) {
	objectID, err := requireUint64(params, "object_id")
	if err != nil {
		return nil, err
	}
	timeout, err := taskTimeout(params, DefaultTaskTimeout)
	if err != nil {
		return nil, err
	}
	return &interactTask{name: def.DisplayName(), targetID: objectID, isObject: true, timeout: timeout}, nil
}

func (t *interactTask) Name() string           { return t.name }
func (t *interactTask) Timeout() time.Duration { return t.timeout }

func (t *interactTask) Start(ctx context.Context, rt *Runtime) error {
	if t.isObject {
		rt.Logf("Using object %d", t.targetID)
		rt.Agent.InteractWithObject(t.targetID)
	} else {
		rt.Logf("Talking to NPC %d", t.targetID)
		rt.Agent.InteractWithNPC(t.targetID)
	}
	return nil
}

func (t *interactTask) Tick(ctx context.Context, rt *Runtime) (bool, error) {
	return rt.Agent.InteractionAcknowledged(), nil
}

// ============================================================================
// QUESTS
// ============================================================================

type acceptQuestTask struct {
	name    string
	questID uint32
	timeout time.Duration
}

func newAcceptQuestTask(def model.TaskDefinition, params map[string]string) (Task, error) {
	questID, err := requireUint32(params, "quest_id")
	if err != nil {
		return nil, err
	}
	timeout, err := taskTimeout(params, DefaultTaskTimeout)
	if err != nil {
		return nil, err
	}
	return &acceptQuestTask{name: def.DisplayName(), questID: questID, timeout: timeout}, nil
}

func (t *acceptQuestTask) Name() string           { return t.name }
func (t *acceptQuestTask) Timeout() time.Duration { return t.timeout }

func (t *acceptQuestTask) Start(ctx context.Context, rt *Runtime) error {
	rt.Logf("Accepting quest %d", t.questID)
	rt.Agent.AcceptQuest(t.questID)
	return nil
}

func (t *acceptQuestTask) Tick(ctx context.Context, rt *Runtime) (bool, error) {
	return rt.Agent.HasQuest(t.questID), nil
}

type turnInQuestTask struct {
	name         string
	questID      uint32
	rewardChoice int
	timeout      time.Duration
}

func newTurnInQuestTask(def model.TaskDefinition, params map[string]string) (Task, error) {
	questID, err := requireUint32(params, "quest_id")
	if err != nil {
		return nil, err
	}
	rewardChoice, err := optInt(params, "reward_choice", 0)
	if err != nil {
		return nil, err
	}
	timeout, err := taskTimeout(params, DefaultTaskTimeout)
	if err != nil {
		return nil, err
	}
	return &turnInQuestTask{
		name:         def.DisplayName(),
		questID:      questID,
		rewardChoice: rewardChoice,
		timeout:      timeout,
	}, nil
}

func (t *turnInQuestTask) Name() string           { return t.name }
func (t *turnInQuestTask) Timeout() time.Duration { return t.timeout }

func (t *turnInQuestTask) Start(ctx context.Context, rt *Runtime) error {
	rt.Logf("Turning in quest %d", t.questID)
	rt.Agent.TurnInQuest(t.questID, t.rewardChoice)
	return nil
}

func (t *turnInQuestTask) Tick(ctx context.Context, rt *Runtime) (bool, error) {
	return !rt.Agent.HasQuest(t.questID), nil
}

// ============================================================================
// SPELLS
// ============================================================================

type learnSpellsTask struct {
	name     string
	spellIDs []uint32
	timeout  time.Duration
}

func newLearnSpellsTask(def model.TaskDefinition, params map[string]string) (Task, error) {
	raw, err := requireParam(params, "spell_ids")
	if err != nil {
		return nil, err
	}
	ids, err := parseSpellList(raw)
	if err != nil {
		return nil, err
	}
	timeout, err := taskTimeout(params, DefaultTaskTimeout)
	if err != nil {
		return nil, err
	}
	return &learnSpellsTask{name: def.DisplayName(), spellIDs: ids, timeout: timeout}, nil
}

func (t *learnSpellsTask) Name() string           { return t.name }
func (t *learnSpellsTask) Timeout() time.Duration { return t.timeout }

func (t *learnSpellsTask) Start(ctx context.Context, rt *Runtime) error {
	rt.Logf("Learning %d spells", len(t.spellIDs))
	for _, id := range t.spellIDs {
		rt.Agent.LearnSpell(id)
	}
	return nil
}

func (t *learnSpellsTask) Tick(ctx context.Context, rt *Runtime) (bool, error) {
	for _, id := range t.spellIDs {
		if !rt.Agent.KnowsSpell(id) {
			return false, nil
		}
	}
	return true, nil
}
