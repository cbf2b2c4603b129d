// Package combat holds the per-class decision engines that pick an agent's
// next action during an encounter. One engine instance is bound per agent
// for the agent's lifetime; instances are never shared.
package combat

import (
	"fmt"
	"time"

	"github.com/Mathih13/botfarm/game"
)

const (
	MeleeRange  float32 = 5
	CasterRange float32 = 30

	// restUntil thresholds sit above the NeedsRest low-water marks so an
	// agent that starts resting does not immediately stop (hysteresis).
	lowHealthMark   float32 = 50
	lowPowerMark    float32 = 40
	restUntilHealth float32 = 90
	restUntilPower  float32 = 80
)

// Engine chooses at most one action per combat tick, working top-down
// through a fixed, class-specific priority list.
type Engine interface {
	OnCombatStart(a game.AgentHandle, targetID uint64)
	OnCombatUpdate(a game.AgentHandle, targetID uint64)
	OnCombatEnd(a game.AgentHandle)

	// OnRest runs the low-urgency recovery loop and reports whether the
	// agent is ready to continue.
	OnRest(a game.AgentHandle) bool
	// NeedsRest is the coarse low-water-mark check, independent of the
	// higher rest-until thresholds OnRest waits for.
	NeedsRest(a game.AgentHandle) bool

	PreferredRange() float32
}

// NewEngine returns a fresh engine for the class.
func NewEngine(class game.Class) (Engine, error) {
	switch class {
	case game.ClassWarrior:
		return &warriorEngine{}, nil
	case game.ClassPaladin:
		return &paladinEngine{}, nil
	case game.ClassMage:
		return &mageEngine{}, nil
	case game.ClassPriest:
		return &priestEngine{}, nil
	case game.ClassWarlock:
		return &warlockEngine{}, nil
	default:
		return nil, fmt.Errorf("no combat engine for class '%s'", class)
	}
}

// castGate merges server-authoritative casting state with a short local
// prediction window armed when a cast command is issued. The window bridges
// the command/confirmation round trip; authoritative state supersedes it as
// soon as it is observed.
type castGate struct {
	issuedAt time.Time
	armed    bool
}

// Materially shorter than any real cast time.
const localCastWindow = 500 * time.Millisecond

func (g *castGate) MarkCastIssued() {
	g.issuedAt = time.Now()
	g.armed = true
}

// EffectivelyCasting is the one casting query every precondition consults.
func (g *castGate) EffectivelyCasting(a game.AgentHandle) bool {
	if a.IsCasting() {
		// Server confirmed; the local window has served its purpose.
		g.armed = false
		return true
	}
	if g.armed {
		if time.Since(g.issuedAt) < localCastWindow {
			return true
		}
		g.armed = false
	}
	return false
}

// baseEngine carries the cast gate and the shared cast helpers. Each class
// engine embeds its own instance, so no state crosses class variants.
type baseEngine struct {
	gate castGate
}

// castSelf issues a self-cast if nothing blocks it. Returns true when a
// command was issued, consuming the tick.
func (b *baseEngine) castSelf(a game.AgentHandle, spellID uint32) bool {
	if b.gate.EffectivelyCasting(a) {
		return false
	}
	if !a.IsSpellReady(spellID) {
		return false
	}
	a.CastOnSelf(spellID)
	b.gate.MarkCastIssued()
	return true
}

func (b *baseEngine) castTarget(a game.AgentHandle, spellID uint32, targetID uint64) bool {
	if b.gate.EffectivelyCasting(a) {
		return false
	}
	if !a.IsSpellReady(spellID) {
		return false
	}
	a.CastOnTarget(spellID, targetID)
	b.gate.MarkCastIssued()
	return true
}

// restoreBuffs reapplies missing long-duration self-buffs, one per call.
func (b *baseEngine) restoreBuffs(a game.AgentHandle, spellIDs ...uint32) bool {
	for _, id := range spellIDs {
		if a.HasBuff(id) {
			continue
		}
		if b.castSelf(a, id) {
			return true
		}
	}
	return false
}

func needsRest(a game.AgentHandle) bool {
	if a.HealthPercent() < lowHealthMark {
		return true
	}
	if a.Class().UsesMana() && a.PowerPercent() < lowPowerMark {
		return true
	}
	return false
}

func restedEnough(a game.AgentHandle) bool {
	if a.HealthPercent() < restUntilHealth {
		return false
	}
	if a.Class().UsesMana() && a.PowerPercent() < restUntilPower {
		return false
	}
	return true
}
