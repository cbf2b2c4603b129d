package game

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// Default pacing for the simulated server. Tests override via the setters.
const (
	DefaultMoveSpeed      = 7.0 // world units per second
	DefaultCastTime       = 200 * time.Millisecond
	DefaultInteractDelay  = 50 * time.Millisecond
	DefaultSpellCooldown  = 6 * time.Second
	simMeleeDPS           = 50.0 // target health percent per second
	simIncomingDPS        = 5.0  // own health percent lost per second in combat
	simRegenPerSecond     = 20.0 // health/power percent per second while resting
	simCastDamage         = 30.0 // target health percent per completed offensive cast
	simCastPowerCost      = 10.0 // power percent per completed cast
	simCombatHealthFloor  = 25.0
)

// SimAgent is a deterministic in-process stand-in for a live game-client
// session. Commands return immediately; their effects become visible to
// queries after a short latency, which is what the decision engine's
// local-prediction window bridges. State advances lazily on each query from
// elapsed wall time, so no background goroutine is needed.
type SimAgent struct {
	mu sync.Mutex

	name     string
	charName string
	class    Class
	level    int

	// movement
	pos        Position
	moveFrom   Position
	moveTarget Position
	moving     bool
	moveStart  time.Time
	moveDur    time.Duration

	// combat
	attacking    bool
	inCombat     bool
	targetHealth float64
	targetDist   float64

	// casting
	casting       bool
	castEnd       time.Time
	pendingSpell  uint32
	pendingOnSelf bool

	// vitals, percent scale
	health float64
	power  float64

	buffs       map[uint32]bool
	cooldowns   map[uint32]time.Time
	knownSpells map[uint32]bool
	items       map[uint32]int
	questLog    map[uint32]bool
	questDone   map[uint32]bool
	killCount   int

	interactAckAt   time.Time
	interactPending bool

	chatLog []string

	moveSpeed     float64
	castTime      time.Duration
	interactDelay time.Duration
	spellCooldown time.Duration

	lastAdvance time.Time
}

func NewSimAgent(name, charName string, class Class, level int, start Position) *SimAgent {
	return &SimAgent{
		name:          name,
		charName:      charName,
		class:         class,
		level:         level,
		pos:           start,
		health:        100,
		power:         100,
		buffs:         make(map[uint32]bool),
		cooldowns:     make(map[uint32]time.Time),
		knownSpells:   make(map[uint32]bool),
		items:         make(map[uint32]int),
		questLog:      make(map[uint32]bool),
		questDone:     make(map[uint32]bool),
		moveSpeed:     DefaultMoveSpeed,
		castTime:      DefaultCastTime,
		interactDelay: DefaultInteractDelay,
		spellCooldown: DefaultSpellCooldown,
		lastAdvance:   time.Now(),
	}
}

// advance applies elapsed time to ongoing activities. Caller holds the lock.
func (s *SimAgent) advance(now time.Time) {
	dt := now.Sub(s.lastAdvance).Seconds()
	if dt < 0 {
		dt = 0
	}
	s.lastAdvance = now

	// Movement completes by deadline; Position interpolates on read.
	if s.moving && !now.Before(s.moveStart.Add(s.moveDur)) {
		s.pos = s.moveTarget
		s.moving = false
	}

	// Cast lands when the cast bar finishes.
	if s.casting && !now.Before(s.castEnd) {
		s.casting = false
		s.cooldowns[s.pendingSpell] = now.Add(s.spellCooldown)
		s.power -= simCastPowerCost
		if s.power < 0 {
			s.power = 0
		}
		if s.pendingOnSelf {
			s.buffs[s.pendingSpell] = true
		} else if s.inCombat {
			s.targetHealth -= simCastDamage
		}
	}

	if s.attacking {
		s.targetHealth -= dt * simMeleeDPS
		s.health -= dt * simIncomingDPS
		if s.health < simCombatHealthFloor {
			s.health = simCombatHealthFloor
		}
	}

	if s.targetHealth <= 0 && s.inCombat {
		s.targetHealth = 0
		s.attacking = false
		s.inCombat = false
		s.killCount++
	}

	if !s.inCombat {
		s.health += dt * simRegenPerSecond
		if s.health > 100 {
			s.health = 100
		}
		s.power += dt * simRegenPerSecond
		if s.power > 100 {
			s.power = 100
		}
	}
}

// ============================================================================
// COMMANDS
// ============================================================================

func (s *SimAgent) MoveTo(pos Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.advance(now)
	s.moveFrom = s.currentPosition(now)
	s.moveTarget = pos
	s.moveStart = now
	dist := float64(s.moveFrom.DistanceTo(pos))
	s.moveDur = time.Duration(dist / s.moveSpeed * float64(time.Second))
	s.moving = true
}

func (s *SimAgent) StartMeleeAttack(targetID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(time.Now())
	if !s.inCombat {
		s.targetHealth = 100
	}
	s.attacking = true
	s.inCombat = true
}

func (s *SimAgent) StopAttack() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(time.Now())
	s.attacking = false
	s.inCombat = false
}

func (s *SimAgent) CastOnSelf(spellID uint32) {
	s.startCast(spellID, true)
}

func (s *SimAgent) CastOnTarget(spellID uint32, targetID uint64) {
	s.mu.Lock()
	if !s.inCombat {
		s.targetHealth = 100
		s.inCombat = true
	}
	s.mu.Unlock()
	s.startCast(spellID, false)
}

func (s *SimAgent) startCast(spellID uint32, onSelf bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.advance(now)
	if s.casting {
		// Server rejects a cast while another is in progress.
		return
	}
	if cd, ok := s.cooldowns[spellID]; ok && now.Before(cd) {
		return
	}
	s.casting = true
	s.castEnd = now.Add(s.castTime)
	s.pendingSpell = spellID
	s.pendingOnSelf = onSelf
}

func (s *SimAgent) InteractWithObject(objectID uint64) {
	s.queueInteraction()
}

func (s *SimAgent) InteractWithNPC(npcID uint64) {
	s.queueInteraction()
}

func (s *SimAgent) queueInteraction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.advance(now)
	s.interactAckAt = now.Add(s.interactDelay)
	s.interactPending = true
}

func (s *SimAgent) AcceptQuest(questID uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(time.Now())
	s.questLog[questID] = true
}

func (s *SimAgent) TurnInQuest(questID uint32, rewardChoice int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(time.Now())
	delete(s.questLog, questID)
	delete(s.questDone, questID)
}

func (s *SimAgent) LearnSpell(spellID uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.knownSpells[spellID] = true
}

func (s *SimAgent) Say(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatLog = append(s.chatLog, message)
}

// ============================================================================
// QUERIES
// ============================================================================

func (s *SimAgent) Name() string { return s.name }

func (s *SimAgent) CharacterName() string { return s.charName }

func (s *SimAgent) Class() Class { return s.class }

func (s *SimAgent) Level() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.level
}

// currentPosition interpolates along an in-progress move. Caller holds the
// lock.
func (s *SimAgent) currentPosition(now time.Time) Position {
	if !s.moving {
		return s.pos
	}
	elapsed := now.Sub(s.moveStart)
	if elapsed >= s.moveDur || s.moveDur <= 0 {
		return s.moveTarget
	}
	frac := float32(elapsed.Seconds() / s.moveDur.Seconds())
	return Position{
		Map: s.moveTarget.Map,
		X:   s.moveFrom.X + (s.moveTarget.X-s.moveFrom.X)*frac,
		Y:   s.moveFrom.Y + (s.moveTarget.Y-s.moveFrom.Y)*frac,
		Z:   s.moveFrom.Z + (s.moveTarget.Z-s.moveFrom.Z)*frac,
	}
}

func (s *SimAgent) Position() Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.advance(now)
	return s.currentPosition(now)
}

func (s *SimAgent) HealthPercent() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(time.Now())
	return float32(s.health)
}

func (s *SimAgent) PowerPercent() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(time.Now())
	return float32(s.power)
}

func (s *SimAgent) IsCasting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(time.Now())
	return s.casting
}

func (s *SimAgent) HasBuff(spellID uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(time.Now())
	return s.buffs[spellID]
}

func (s *SimAgent) IsSpellReady(spellID uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.advance(now)
	cd, ok := s.cooldowns[spellID]
	return !ok || !now.Before(cd)
}

func (s *SimAgent) KnowsSpell(spellID uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.knownSpells[spellID]
}

func (s *SimAgent) HasItem(itemEntry uint32) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[itemEntry]
}

func (s *SimAgent) HasQuest(questID uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questLog[questID]
}

func (s *SimAgent) IsQuestComplete(questID uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.questDone[questID]
}

func (s *SimAgent) KillCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(time.Now())
	return s.killCount
}

func (s *SimAgent) InCombat() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(time.Now())
	return s.inCombat
}

func (s *SimAgent) TargetHealthPercent() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance(time.Now())
	return float32(s.targetHealth)
}

func (s *SimAgent) TargetDistance() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return float32(s.targetDist)
}

func (s *SimAgent) InteractionAcknowledged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.advance(now)
	return s.interactPending && !now.Before(s.interactAckAt)
}

// stateSnapshot mirrors the queryable surface for structured assertions.
type stateSnapshot struct {
	Name          string   `json:"name"`
	CharacterName string   `json:"characterName"`
	Class         Class    `json:"class"`
	Level         int      `json:"level"`
	Position      Position `json:"position"`
	HealthPercent float32  `json:"healthPercent"`
	PowerPercent  float32  `json:"powerPercent"`
	Casting       bool     `json:"casting"`
	InCombat      bool     `json:"inCombat"`
	KillCount     int      `json:"killCount"`
	Buffs         []uint32 `json:"buffs"`
	Quests        []uint32 `json:"quests"`
}

func (s *SimAgent) StateSnapshot() ([]byte, error) {
	s.mu.Lock()
	now := time.Now()
	s.advance(now)
	snap := stateSnapshot{
		Name:          s.name,
		CharacterName: s.charName,
		Class:         s.class,
		Level:         s.level,
		Position:      s.currentPosition(now),
		HealthPercent: float32(s.health),
		PowerPercent:  float32(s.power),
		Casting:       s.casting,
		InCombat:      s.inCombat,
		KillCount:     s.killCount,
	}
	for id := range s.buffs {
		snap.Buffs = append(snap.Buffs, id)
	}
	for id := range s.questLog {
		snap.Quests = append(snap.Quests, id)
	}
	s.mu.Unlock()
	return sonic.Marshal(snap)
}

// ============================================================================
// SEEDING (harness setup and tests)
// ============================================================================

func (s *SimAgent) GrantItem(itemEntry uint32, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[itemEntry] += count
}

func (s *SimAgent) PutQuest(questID uint32, complete bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questLog[questID] = true
	if complete {
		s.questDone[questID] = true
	}
}

func (s *SimAgent) SetVitals(health, power float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAdvance = time.Now()
	s.health = float64(health)
	s.power = float64(power)
}

func (s *SimAgent) SetLevel(level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = level
}

func (s *SimAgent) SetMoveSpeed(unitsPerSecond float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moveSpeed = unitsPerSecond
}

func (s *SimAgent) SetCastTime(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.castTime = d
}

func (s *SimAgent) SetInCombat(inCombat bool, targetHealth float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAdvance = time.Now()
	s.inCombat = inCombat
	s.targetHealth = float64(targetHealth)
}

func (s *SimAgent) SetTargetDistance(dist float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetDist = float64(dist)
}

func (s *SimAgent) ChatLog() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.chatLog))
	copy(out, s.chatLog)
	return out
}
