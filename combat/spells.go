package combat

// Spell entries used by the class rule lists.
const (
	// Warrior
	SpellBattleShout  uint32 = 6673
	SpellRend         uint32 = 772
	SpellHeroicStrike uint32 = 78
	SpellExecute      uint32 = 5308

	// Paladin
	SpellHolyLight           uint32 = 635
	SpellDivineProtection    uint32 = 498
	SpellSealOfRighteousness uint32 = 21084
	SpellJudgement           uint32 = 20271

	// Mage
	SpellFrostNova  uint32 = 122
	SpellFrostbolt  uint32 = 116
	SpellFireBlast  uint32 = 2136
	SpellEvocation  uint32 = 12051
	SpellFrostArmor uint32 = 168

	// Priest
	SpellRenew              uint32 = 139
	SpellPowerWordShield    uint32 = 17
	SpellShadowWordPain     uint32 = 589
	SpellSmite              uint32 = 585
	SpellPowerWordFortitude uint32 = 1243

	// Warlock
	SpellCurseOfAgony uint32 = 980
	SpellCorruption   uint32 = 172
	SpellShadowBolt   uint32 = 686
	SpellDemonSkin    uint32 = 687
	SpellShootWand    uint32 = 5019
)
