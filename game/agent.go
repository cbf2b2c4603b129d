package game

import (
	"math"
	"strings"

	"github.com/Mathih13/botfarm/model"
)

// Class identifies an agent's character class.
type Class string

const (
	ClassWarrior Class = "warrior"
	ClassPaladin Class = "paladin"
	ClassMage    Class = "mage"
	ClassPriest  Class = "priest"
	ClassWarlock Class = "warlock"
)

// ParseClass normalizes a class name from a route or harness definition.
// The recognized set lives in model.KnownClass so harness validation and
// spawning cannot drift apart.
func ParseClass(name string) (Class, bool) {
	if !model.KnownClass(name) {
		return "", false
	}
	return Class(strings.ToLower(name)), true
}

// UsesMana reports whether the class spends mana rather than rage or energy.
func (c Class) UsesMana() bool {
	return c != ClassWarrior
}

// Position is a point in the game world.
type Position struct {
	Map uint32  `json:"map"`
	X   float32 `json:"x"`
	Y   float32 `json:"y"`
	Z   float32 `json:"z"`
}

// DistanceTo returns the 3D distance to other, ignoring map boundaries.
func (p Position) DistanceTo(other Position) float32 {
	dx := float64(p.X - other.X)
	dy := float64(p.Y - other.Y)
	dz := float64(p.Z - other.Z)
	return float32(math.Sqrt(dx*dx + dy*dy + dz*dz))
}

// AgentHandle is the capability surface one simulated game client exposes to
// the decision and task engines. Commands are fire-and-forget: they return
// immediately without waiting for server confirmation. Queries reflect the
// latest server-reported state.
type AgentHandle interface {
	// Commands
	MoveTo(pos Position)
	StartMeleeAttack(targetID uint64)
	StopAttack()
	CastOnSelf(spellID uint32)
	CastOnTarget(spellID uint32, targetID uint64)
	InteractWithObject(objectID uint64)
	InteractWithNPC(npcID uint64)
	AcceptQuest(questID uint32)
	TurnInQuest(questID uint32, rewardChoice int)
	LearnSpell(spellID uint32)
	Say(message string)

	// Identity
	Name() string
	CharacterName() string
	Class() Class
	Level() int

	// State queries (server-authoritative)
	Position() Position
	HealthPercent() float32
	PowerPercent() float32
	IsCasting() bool
	HasBuff(spellID uint32) bool
	IsSpellReady(spellID uint32) bool
	KnowsSpell(spellID uint32) bool
	HasItem(itemEntry uint32) int
	HasQuest(questID uint32) bool
	IsQuestComplete(questID uint32) bool
	KillCount() int
	InCombat() bool
	TargetHealthPercent() float32
	TargetDistance() float32
	InteractionAcknowledged() bool

	// StateSnapshot serializes the agent's queryable state as JSON for
	// structured assertions.
	StateSnapshot() ([]byte, error)
}
