package combat

import (
	"testing"
	"time"

	"github.com/Mathih13/botfarm/game"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAgent is a scripted AgentHandle whose query answers are set directly
// by the test. Every command is appended to the commands log.
type fakeAgent struct {
	class        game.Class
	health       float32
	power        float32
	casting      bool
	inCombat     bool
	targetHealth float32
	targetDist   float32
	buffs        map[uint32]bool
	notReady     map[uint32]bool

	commands []string
}

func newFakeAgent(class game.Class) *fakeAgent {
	return &fakeAgent{
		class:        class,
		health:       100,
		power:        100,
		inCombat:     true,
		targetHealth: 100,
		targetDist:   20,
		buffs:        make(map[uint32]bool),
		notReady:     make(map[uint32]bool),
	}
}

func (f *fakeAgent) record(cmd string) { f.commands = append(f.commands, cmd) }

func (f *fakeAgent) lastCommand() string {
	if len(f.commands) == 0 {
		return ""
	}
	return f.commands[len(f.commands)-1]
}

func (f *fakeAgent) MoveTo(pos game.Position) { f.record("move") }

func (f *fakeAgent) StartMeleeAttack(targetID uint64) { f.record("melee") }

func (f *fakeAgent) StopAttack() { f.record("stop") }

func (f *fakeAgent) CastOnSelf(spellID uint32) { f.record(castName("self", spellID)) }

func (f *fakeAgent) CastOnTarget(spellID uint32, targetID uint64) {
	f.record(castName("target", spellID))
}

func (f *fakeAgent) InteractWithObject(objectID uint64) {}

func (f *fakeAgent) InteractWithNPC(npcID uint64) {}

func (f *fakeAgent) AcceptQuest(questID uint32) {}

func (f *fakeAgent) TurnInQuest(questID uint32, rewardChoice int) {}

func (f *fakeAgent) LearnSpell(spellID uint32) {}

func (f *fakeAgent) Say(message string) {}

func (f *fakeAgent) Name() string { return "fake" }

func (f *fakeAgent) CharacterName() string { return "Fake" }

func (f *fakeAgent) Class() game.Class { return f.class }

func (f *fakeAgent) Level() int { return 10 }

func (f *fakeAgent) Position() game.Position { return game.Position{} }

func (f *fakeAgent) HealthPercent() float32 { return f.health }

func (f *fakeAgent) PowerPercent() float32 { return f.power }

func (f *fakeAgent) IsCasting() bool { return f.casting }

func (f *fakeAgent) HasBuff(spellID uint32) bool { return f.buffs[spellID] }

func (f *fakeAgent) IsSpellReady(spellID uint32) bool { return !f.notReady[spellID] }

func (f *fakeAgent) KnowsSpell(spellID uint32) bool { return true }

func (f *fakeAgent) HasItem(itemEntry uint32) int { return 0 }

func (f *fakeAgent) HasQuest(questID uint32) bool { return false }

func (f *fakeAgent) IsQuestComplete(questID uint32) bool { return false }

func (f *fakeAgent) KillCount() int { return 0 }

func (f *fakeAgent) InCombat() bool { return f.inCombat }

func (f *fakeAgent) TargetHealthPercent() float32 { return f.targetHealth }

func (f *fakeAgent) TargetDistance() float32 { return f.targetDist }

func (f *fakeAgent) InteractionAcknowledged() bool { return true }

func (f *fakeAgent) StateSnapshot() ([]byte, error) { return []byte("{}"), nil }

func castName(kind string, spellID uint32) string {
	names := map[uint32]string{
		SpellBattleShout:         "battle_shout",
		SpellRend:                "rend",
		SpellHeroicStrike:        "heroic_strike",
		SpellExecute:             "execute",
		SpellHolyLight:           "holy_light",
		SpellDivineProtection:    "divine_protection",
		SpellSealOfRighteousness: "seal",
		SpellJudgement:           "judgement",
		SpellFrostNova:           "frost_nova",
		SpellFrostbolt:           "frostbolt",
		SpellFireBlast:           "fire_blast",
		SpellEvocation:           "evocation",
		SpellFrostArmor:          "frost_armor",
		SpellRenew:               "renew",
		SpellPowerWordShield:     "shield",
		SpellShadowWordPain:      "swp",
		SpellSmite:               "smite",
		SpellPowerWordFortitude:  "fortitude",
		SpellCurseOfAgony:        "agony",
		SpellCorruption:          "corruption",
		SpellShadowBolt:          "shadow_bolt",
		SpellDemonSkin:           "demon_skin",
		SpellShootWand:           "wand",
	}
	if name, ok := names[spellID]; ok {
		return kind + ":" + name
	}
	return kind + ":unknown"
}

// ============================================================================
// Engine Construction
// ============================================================================

func TestNewEngine(t *testing.T) {
	t.Run("All classes have an engine", func(t *testing.T) {
		for _, class := range []game.Class{
			game.ClassWarrior, game.ClassPaladin, game.ClassMage,
			game.ClassPriest, game.ClassWarlock,
		} {
			engine, err := NewEngine(class)
			require.NoError(t, err, "class %s", class)
			assert.NotNil(t, engine)
		}
	})

	t.Run("Unknown class is an error", func(t *testing.T) {
		_, err := NewEngine(game.Class("shaman"))
		assert.Error(t, err)
	})

	t.Run("Preferred ranges", func(t *testing.T) {
		warrior, _ := NewEngine(game.ClassWarrior)
		mage, _ := NewEngine(game.ClassMage)
		assert.Equal(t, MeleeRange, warrior.PreferredRange())
		assert.Equal(t, CasterRange, mage.PreferredRange())
	})
}

// ============================================================================
// Cast Gate
// ============================================================================

func TestCastGate(t *testing.T) {
	t.Run("Authoritative casting wins", func(t *testing.T) {
		a := newFakeAgent(game.ClassMage)
		a.casting = true
		gate := &castGate{}
		assert.True(t, gate.EffectivelyCasting(a))
	})

	t.Run("Local window covers the command round trip", func(t *testing.T) {
		a := newFakeAgent(game.ClassMage)
		gate := &castGate{}
		assert.False(t, gate.EffectivelyCasting(a))

		gate.MarkCastIssued()
		// Server has not confirmed yet, the local window holds.
		assert.True(t, gate.EffectivelyCasting(a))
	})

	t.Run("Local window expires", func(t *testing.T) {
		a := newFakeAgent(game.ClassMage)
		gate := &castGate{armed: true, issuedAt: time.Now().Add(-time.Second)}
		assert.False(t, gate.EffectivelyCasting(a))
	})

	t.Run("Authoritative confirmation disarms the window", func(t *testing.T) {
		a := newFakeAgent(game.ClassMage)
		gate := &castGate{}
		gate.MarkCastIssued()

		a.casting = true
		assert.True(t, gate.EffectivelyCasting(a))
		assert.False(t, gate.armed)

		// Server reports the cast finished; the stale window must not linger.
		a.casting = false
		assert.False(t, gate.EffectivelyCasting(a))
	})

	t.Run("No double casting through the gate", func(t *testing.T) {
		a := newFakeAgent(game.ClassMage)
		engine, err := NewEngine(game.ClassMage)
		require.NoError(t, err)

		engine.OnCombatStart(a, 1)
		require.Equal(t, []string{castName("target", SpellFrostbolt)}, a.commands)

		// Next tick arrives before server confirmation; the engine must not
		// issue a second cast.
		engine.OnCombatUpdate(a, 1)
		assert.Len(t, a.commands, 1)
	})
}

// ============================================================================
// Warrior
// ============================================================================

func TestWarriorEngine(t *testing.T) {
	t.Run("Battle shout first", func(t *testing.T) {
		a := newFakeAgent(game.ClassWarrior)
		engine, _ := NewEngine(game.ClassWarrior)
		engine.OnCombatStart(a, 1)
		assert.Equal(t, castName("self", SpellBattleShout), a.lastCommand())
	})

	t.Run("Rend applied once per engagement", func(t *testing.T) {
		a := newFakeAgent(game.ClassWarrior)
		a.buffs[SpellBattleShout] = true
		a.power = 0
		e := &warriorEngine{}

		e.OnCombatStart(a, 1)
		assert.Equal(t, castName("target", SpellRend), a.commands[0])

		// Simulate server confirmation completing, then the next tick must
		// not re-apply rend.
		e.gate.armed = false
		e.OnCombatUpdate(a, 1)
		assert.Equal(t, "melee", a.lastCommand())

		// A fresh engagement resets the flag.
		e.OnCombatEnd(a)
		e.OnCombatStart(a, 1)
		assert.Equal(t, castName("target", SpellRend), a.lastCommand())
	})

	t.Run("Execute over heroic strike below 20 percent", func(t *testing.T) {
		a := newFakeAgent(game.ClassWarrior)
		a.buffs[SpellBattleShout] = true
		a.power = 80
		a.targetHealth = 15
		e := &warriorEngine{rendApplied: true}

		e.OnCombatUpdate(a, 1)
		assert.Equal(t, castName("target", SpellExecute), a.lastCommand())
	})

	t.Run("Heroic strike on full rage and healthy target", func(t *testing.T) {
		a := newFakeAgent(game.ClassWarrior)
		a.buffs[SpellBattleShout] = true
		a.power = 80
		e := &warriorEngine{rendApplied: true}

		e.OnCombatUpdate(a, 1)
		assert.Equal(t, castName("target", SpellHeroicStrike), a.lastCommand())
	})

	t.Run("Falls through to melee", func(t *testing.T) {
		a := newFakeAgent(game.ClassWarrior)
		a.buffs[SpellBattleShout] = true
		a.power = 10
		e := &warriorEngine{rendApplied: true}

		e.OnCombatUpdate(a, 1)
		assert.Equal(t, "melee", a.lastCommand())

		// Melee is sticky, not re-issued every tick.
		e.OnCombatUpdate(a, 1)
		assert.Len(t, a.commands, 1)
	})

	t.Run("Combat end stops the attack", func(t *testing.T) {
		a := newFakeAgent(game.ClassWarrior)
		e := &warriorEngine{attacking: true}
		e.OnCombatEnd(a)
		assert.Equal(t, "stop", a.lastCommand())
	})
}

// ============================================================================
// Mage
// ============================================================================

func TestMageEngine(t *testing.T) {
	t.Run("Frost nova when the target closes", func(t *testing.T) {
		a := newFakeAgent(game.ClassMage)
		a.targetDist = 4
		e := &mageEngine{}
		e.OnCombatUpdate(a, 1)
		assert.Equal(t, castName("self", SpellFrostNova), a.lastCommand())
	})

	t.Run("Evocation on low mana", func(t *testing.T) {
		a := newFakeAgent(game.ClassMage)
		a.power = 10
		e := &mageEngine{}
		e.OnCombatUpdate(a, 1)
		assert.Equal(t, castName("self", SpellEvocation), a.lastCommand())
	})

	t.Run("Frostbolt as primary nuke", func(t *testing.T) {
		a := newFakeAgent(game.ClassMage)
		e := &mageEngine{}
		e.OnCombatUpdate(a, 1)
		assert.Equal(t, castName("target", SpellFrostbolt), a.lastCommand())
	})

	t.Run("Fire blast filler when frostbolt is down", func(t *testing.T) {
		a := newFakeAgent(game.ClassMage)
		a.notReady[SpellFrostbolt] = true
		e := &mageEngine{}
		e.OnCombatUpdate(a, 1)
		assert.Equal(t, castName("target", SpellFireBlast), a.lastCommand())
	})

	t.Run("Frost armor restored while resting", func(t *testing.T) {
		a := newFakeAgent(game.ClassMage)
		a.inCombat = false
		e := &mageEngine{}
		assert.False(t, e.OnRest(a))
		assert.Equal(t, castName("self", SpellFrostArmor), a.lastCommand())
	})
}

// ============================================================================
// Rest Hysteresis
// ============================================================================

func TestRestThresholds(t *testing.T) {
	t.Run("Low health triggers rest", func(t *testing.T) {
		a := newFakeAgent(game.ClassWarrior)
		a.health = 40
		e, _ := NewEngine(game.ClassWarrior)
		assert.True(t, e.NeedsRest(a))
	})

	t.Run("Low mana only matters for mana users", func(t *testing.T) {
		warrior := newFakeAgent(game.ClassWarrior)
		warrior.power = 10
		we, _ := NewEngine(game.ClassWarrior)
		assert.False(t, we.NeedsRest(warrior))

		mage := newFakeAgent(game.ClassMage)
		mage.power = 10
		me, _ := NewEngine(game.ClassMage)
		assert.True(t, me.NeedsRest(mage))
	})

	t.Run("Rest continues past the low-water mark", func(t *testing.T) {
		a := newFakeAgent(game.ClassMage)
		a.inCombat = false
		a.buffs[SpellFrostArmor] = true
		a.health = 70
		a.power = 70
		e, _ := NewEngine(game.ClassMage)

		// Above the low-water marks but below rest-until: keep resting.
		assert.False(t, e.NeedsRest(a))
		assert.False(t, e.OnRest(a))

		a.health = 95
		a.power = 85
		assert.True(t, e.OnRest(a))
	})
}
