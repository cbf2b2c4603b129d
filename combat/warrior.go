package combat

import "github.com/Mathih13/botfarm/game"

const warriorRageDumpThreshold float32 = 60

// warriorEngine is the melee-resource shape: self-buff, dot, rage dump,
// builder.
type warriorEngine struct {
	baseEngine
	rendApplied bool
	attacking   bool
}

func (e *warriorEngine) OnCombatStart(a game.AgentHandle, targetID uint64) {
	e.rendApplied = false
	e.attacking = false
	e.OnCombatUpdate(a, targetID)
}

func (e *warriorEngine) OnCombatUpdate(a game.AgentHandle, targetID uint64) {
	if !a.HasBuff(SpellBattleShout) && e.castSelf(a, SpellBattleShout) {
		return
	}
	if !e.rendApplied && a.IsSpellReady(SpellRend) {
		if e.castTarget(a, SpellRend, targetID) {
			e.rendApplied = true
			return
		}
	}
	if a.PowerPercent() >= warriorRageDumpThreshold {
		spell := SpellHeroicStrike
		if a.TargetHealthPercent() < 20 {
			spell = SpellExecute
		}
		if e.castTarget(a, spell, targetID) {
			return
		}
	}
	// Builder: keep swinging.
	if !e.attacking {
		a.StartMeleeAttack(targetID)
		e.attacking = true
	}
}

func (e *warriorEngine) OnCombatEnd(a game.AgentHandle) {
	a.StopAttack()
	e.rendApplied = false
	e.attacking = false
}

func (e *warriorEngine) OnRest(a game.AgentHandle) bool {
	if e.restoreBuffs(a, SpellBattleShout) {
		return false
	}
	return restedEnough(a)
}

func (e *warriorEngine) NeedsRest(a game.AgentHandle) bool {
	return needsRest(a)
}

func (e *warriorEngine) PreferredRange() float32 {
	return MeleeRange
}
