// Package task implements the per-agent route execution state machine and
// the closed set of scripted step types a route is made of.
package task

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Mathih13/botfarm/combat"
	"github.com/Mathih13/botfarm/game"
	"github.com/Mathih13/botfarm/logger"
	"github.com/Mathih13/botfarm/model"
)

const (
	DefaultTaskTimeout = 60 * time.Second
	DefaultTolerance   = 2.0
)

// Runtime is what one task step gets to work with: the agent, its combat
// engine, the rendered template context, and a sink for the bot's log lines.
type Runtime struct {
	Agent       game.AgentHandle
	Engine      combat.Engine
	TemplateCtx map[string]string
	LogSink     func(line string)
}

func (rt *Runtime) Logf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	logger.Logger.Debug("Bot log", "bot", rt.Agent.Name(), "line", line)
	if rt.LogSink != nil {
		rt.LogSink(line)
	}
}

// Task is one scripted step. Start issues the step's initiating commands;
// Tick evaluates the completion predicate until it reports done or errors.
// An error from either terminates the whole route (fail-fast).
type Task interface {
	Name() string
	Timeout() time.Duration
	Start(ctx context.Context, rt *Runtime) error
	Tick(ctx context.Context, rt *Runtime) (done bool, err error)
}

type builderFunc func(def model.TaskDefinition, params map[string]string) (Task, error)

var builders = map[string]builderFunc{
	"wait":                    newWaitTask,
	"log_message":             newLogMessageTask,
	"move_to_location":        newMoveToLocationTask,
	"move_to_npc":             newMoveToNPCTask,
	"talk_to_npc":             newTalkToNPCTask,
	"accept_quest":            newAcceptQuestTask,
	"turn_in_quest":           newTurnInQuestTask,
	"kill_mobs":               newKillMobsTask,
	"use_object":              newUseObjectTask,
	"adventure":               newAdventureTask,
	"learn_spells":            newLearnSpellsTask,
	"assert_quest_in_log":     newAssertQuestInLogTask,
	"assert_quest_not_in_log": newAssertQuestNotInLogTask,
	"assert_has_item":         newAssertHasItemTask,
	"assert_level":            newAssertLevelTask,
	"assert_state":            newAssertStateTask,
}

// KnownType reports whether a task type tag is part of the closed set.
func KnownType(taskType string) bool {
	_, ok := builders[taskType]
	return ok
}

// Build constructs the task for a definition, resolving class-specific
// parameter overrides and templates first.
func Build(def model.TaskDefinition, class game.Class, templateCtx map[string]string) (Task, error) {
	builder, ok := builders[def.Type]
	if !ok {
		return nil, fmt.Errorf("unknown task type '%s'", def.Type)
	}
	params := def.ParamsFor(string(class), templateCtx)
	t, err := builder(def, params)
	if err != nil {
		return nil, fmt.Errorf("task '%s': %w", def.DisplayName(), err)
	}
	return t, nil
}

// ============================================================================
// PARAMETER HELPERS
// ============================================================================

func requireParam(params map[string]string, key string) (string, error) {
	v, ok := params[key]
	if !ok || v == "" {
		return "", fmt.Errorf("missing required parameter '%s'", key)
	}
	return v, nil
}

func requireUint32(params map[string]string, key string) (uint32, error) {
	v, err := requireParam(params, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parameter '%s' is not a valid id: %w", key, err)
	}
	return uint32(n), nil
}

func requireUint64(params map[string]string, key string) (uint64, error) {
	v, err := requireParam(params, key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter '%s' is not a valid id: %w", key, err)
	}
	return n, nil
}

func optInt(params map[string]string, key string, def int) (int, error) {
	v, ok := params[key]
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parameter '%s' is not a valid integer: %w", key, err)
	}
	return n, nil
}

func optFloat(params map[string]string, key string, def float64) (float64, error) {
	v, ok := params[key]
	if !ok || v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parameter '%s' is not a valid number: %w", key, err)
	}
	return f, nil
}

func optDuration(params map[string]string, key string, def time.Duration) (time.Duration, error) {
	v, ok := params[key]
	if !ok || v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parameter '%s' is not a valid duration: %w", key, err)
	}
	return d, nil
}

func parseSpellList(raw string) ([]uint32, error) {
	parts := strings.Split(raw, ",")
	ids := make([]uint32, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid spell id '%s': %w", p, err)
		}
		ids = append(ids, uint32(n))
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("spell list is empty")
	}
	return ids, nil
}

// taskTimeout reads the per-task 'timeout' override, falling back to the
// task type's default.
func taskTimeout(params map[string]string, def time.Duration) (time.Duration, error) {
	return optDuration(params, "timeout", def)
}
