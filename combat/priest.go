package combat

import "github.com/Mathih13/botfarm/game"

const priestHealThreshold float32 = 50

// priestEngine is the heal-capable caster shape: self-heal, shield upkeep,
// dot once, filler nuke.
type priestEngine struct {
	baseEngine
	painApplied bool
}

func (e *priestEngine) OnCombatStart(a game.AgentHandle, targetID uint64) {
	e.painApplied = false
	e.OnCombatUpdate(a, targetID)
}

func (e *priestEngine) OnCombatUpdate(a game.AgentHandle, targetID uint64) {
	if a.HealthPercent() < priestHealThreshold && e.castSelf(a, SpellRenew) {
		return
	}
	if !a.HasBuff(SpellPowerWordShield) && e.castSelf(a, SpellPowerWordShield) {
		return
	}
	if !e.painApplied {
		if e.castTarget(a, SpellShadowWordPain, targetID) {
			e.painApplied = true
			return
		}
	}
	e.castTarget(a, SpellSmite, targetID)
}

func (e *priestEngine) OnCombatEnd(a game.AgentHandle) {
	a.StopAttack()
	e.painApplied = false
}

func (e *priestEngine) OnRest(a game.AgentHandle) bool {
	if e.restoreBuffs(a, SpellPowerWordFortitude) {
		return false
	}
	if a.HealthPercent() < restUntilHealth && e.castSelf(a, SpellRenew) {
		return false
	}
	return restedEnough(a)
}

func (e *priestEngine) NeedsRest(a game.AgentHandle) bool {
	return needsRest(a)
}

func (e *priestEngine) PreferredRange() float32 {
	return CasterRange
}
