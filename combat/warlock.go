package combat

import "github.com/Mathih13/botfarm/game"

const warlockLowMana float32 = 15

// warlockEngine: dots first, nuke, wand filler when mana runs dry.
type warlockEngine struct {
	baseEngine
	agonyApplied      bool
	corruptionApplied bool
}

func (e *warlockEngine) OnCombatStart(a game.AgentHandle, targetID uint64) {
	e.agonyApplied = false
	e.corruptionApplied = false
	e.OnCombatUpdate(a, targetID)
}

func (e *warlockEngine) OnCombatUpdate(a game.AgentHandle, targetID uint64) {
	if !e.agonyApplied {
		if e.castTarget(a, SpellCurseOfAgony, targetID) {
			e.agonyApplied = true
			return
		}
	}
	if !e.corruptionApplied {
		if e.castTarget(a, SpellCorruption, targetID) {
			e.corruptionApplied = true
			return
		}
	}
	if a.PowerPercent() >= warlockLowMana && e.castTarget(a, SpellShadowBolt, targetID) {
		return
	}
	e.castTarget(a, SpellShootWand, targetID)
}

func (e *warlockEngine) OnCombatEnd(a game.AgentHandle) {
	a.StopAttack()
	e.agonyApplied = false
	e.corruptionApplied = false
}

func (e *warlockEngine) OnRest(a game.AgentHandle) bool {
	if e.restoreBuffs(a, SpellDemonSkin) {
		return false
	}
	return restedEnough(a)
}

func (e *warlockEngine) NeedsRest(a game.AgentHandle) bool {
	return needsRest(a)
}

func (e *warlockEngine) PreferredRange() float32 {
	return CasterRange
}
