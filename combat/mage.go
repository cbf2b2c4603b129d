package combat

import "github.com/Mathih13/botfarm/game"

const (
	mageMinimumRange float32 = 8
	mageLowMana      float32 = 20
)

// mageEngine is the pure damage-caster shape: root when the target closes,
// burst cooldown, primary nuke, cheap filler on low mana.
type mageEngine struct {
	baseEngine
}

func (e *mageEngine) OnCombatStart(a game.AgentHandle, targetID uint64) {
	e.OnCombatUpdate(a, targetID)
}

func (e *mageEngine) OnCombatUpdate(a game.AgentHandle, targetID uint64) {
	if a.InCombat() && a.TargetDistance() < mageMinimumRange &&
		a.IsSpellReady(SpellFrostNova) && e.castSelf(a, SpellFrostNova) {
		return
	}
	if a.PowerPercent() < mageLowMana && a.IsSpellReady(SpellEvocation) &&
		e.castSelf(a, SpellEvocation) {
		return
	}
	if a.PowerPercent() >= mageLowMana && e.castTarget(a, SpellFrostbolt, targetID) {
		return
	}
	e.castTarget(a, SpellFireBlast, targetID)
}

func (e *mageEngine) OnCombatEnd(a game.AgentHandle) {
	a.StopAttack()
}

func (e *mageEngine) OnRest(a game.AgentHandle) bool {
	if e.restoreBuffs(a, SpellFrostArmor) {
		return false
	}
	return restedEnough(a)
}

func (e *mageEngine) NeedsRest(a game.AgentHandle) bool {
	return needsRest(a)
}

func (e *mageEngine) PreferredRange() float32 {
	return CasterRange
}
