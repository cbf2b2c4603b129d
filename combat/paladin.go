package combat

import "github.com/Mathih13/botfarm/game"

const (
	paladinEmergencyHealth float32 = 25
	paladinDefensiveHealth float32 = 40
)

// paladinEngine is the hybrid melee-caster shape: emergency self-heal,
// defensive cooldown, seal upkeep, signature ability on its cooldown gate,
// then melee.
type paladinEngine struct {
	baseEngine
	attacking bool
}

func (e *paladinEngine) OnCombatStart(a game.AgentHandle, targetID uint64) {
	e.attacking = false
	e.OnCombatUpdate(a, targetID)
}

func (e *paladinEngine) OnCombatUpdate(a game.AgentHandle, targetID uint64) {
	if a.HealthPercent() < paladinEmergencyHealth && e.castSelf(a, SpellHolyLight) {
		return
	}
	if a.HealthPercent() < paladinDefensiveHealth && !a.HasBuff(SpellDivineProtection) &&
		e.castSelf(a, SpellDivineProtection) {
		return
	}
	if !a.HasBuff(SpellSealOfRighteousness) && e.castSelf(a, SpellSealOfRighteousness) {
		return
	}
	if a.IsSpellReady(SpellJudgement) && e.castTarget(a, SpellJudgement, targetID) {
		return
	}
	if !e.attacking {
		a.StartMeleeAttack(targetID)
		e.attacking = true
	}
}

func (e *paladinEngine) OnCombatEnd(a game.AgentHandle) {
	a.StopAttack()
	e.attacking = false
}

func (e *paladinEngine) OnRest(a game.AgentHandle) bool {
	if e.restoreBuffs(a, SpellSealOfRighteousness) {
		return false
	}
	if a.HealthPercent() < restUntilHealth && e.castSelf(a, SpellHolyLight) {
		return false
	}
	return restedEnough(a)
}

func (e *paladinEngine) NeedsRest(a game.AgentHandle) bool {
	return needsRest(a)
}

func (e *paladinEngine) PreferredRange() float32 {
	return MeleeRange
}
