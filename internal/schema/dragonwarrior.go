package schema

// Dragon Warrior iNES image layout: 16 byte header, 4 PRG banks, 2 CHR banks.
const (
	inesHeaderSize = 16
	prgSize        = 4 * 16384
	chrSize        = 2 * 8192

	// DragonWarriorSize is the total size of the Dragon Warrior ROM image.
	DragonWarriorSize = inesHeaderSize + prgSize + chrSize

	chrOffset = inesHeaderSize + prgSize
)

// INESSignature is the magic at the start of every iNES image.
const INESSignature = "NES\x1a"

var monsterLabels = []string{
	"Slime", "Red Slime", "Drakee", "Ghost", "Magician",
	"Magidrakee", "Scorpion", "Druin", "Poltergeist", "Droll",
	"Drakeema", "Skeleton", "Warlock", "Metal Scorpion", "Wolf",
	"Wraith", "Metal Slime", "Specter", "Wolflord", "Druinlord",
	"Drollmagi", "Wyvern", "Rogue Scorpion", "Wraith Knight", "Golem",
	"Goldman", "Knight", "Magiwyvern", "Demon Knight", "Werewolf",
	"Green Dragon", "Starwyvern", "Wizard", "Axe Knight", "Blue Dragon",
	"Stoneman", "Armored Knight", "Red Dragon", "Dragonlord",
}

var spellLabels = []string{
	"Heal", "Hurt", "Sleep", "Radiant", "Stopspell",
	"Outside", "Return", "Repel", "Healmore", "Hurtmore",
}

var equipmentLabels = []string{
	"Bamboo Pole", "Club", "Copper Sword", "Hand Axe", "Broad Sword", "Flame Sword", "Erdrick's Sword",
	"Clothes", "Leather Armor", "Chain Mail", "Half Plate", "Full Plate", "Magic Armor", "Erdrick's Armor",
	"Small Shield", "Large Shield", "Silver Shield",
}

// DragonWarriorProfile returns the ROM profile of the Dragon Warrior image.
func DragonWarriorProfile() Profile {
	return Profile{
		Name:      "dragon-warrior",
		Size:      DragonWarriorSize,
		Signature: INESSignature,
	}
}

// DragonWarriorSchemas returns fresh copies of the built in schemas.
// No record overrides are declared until they are confirmed against a
// verified ROM dump.
func DragonWarriorSchemas() []*Schema {
	return []*Schema{
		{
			Type:        Monsters,
			Name:        Monsters.String(),
			Kind:        Records,
			RecordSize:  16,
			RecordCount: 39,
			ROMOffset:   0x5E5B,
			Fields: []Field{
				{Name: "attack", Offset: 0, Width: 1, Min: 0, Max: 255},
				{Name: "defense", Offset: 1, Width: 1, Min: 0, Max: 255},
				{Name: "hp", Offset: 2, Width: 1, Min: 1, Max: 255},
				{Name: "spell_pattern", Offset: 3, Width: 1, Min: 0, Max: 255},
				{Name: "resistance", Offset: 4, Width: 1, Min: 0, Max: 255},
				{Name: "evasion", Offset: 5, Width: 1, Min: 0, Max: 255},
				{Name: "experience", Offset: 6, Width: 1, Min: 0, Max: 255},
				{Name: "gold", Offset: 7, Width: 1, Min: 0, Max: 255},
			},
			Labels: monsterLabels,
		},
		{
			Type:        Spells,
			Name:        Spells.String(),
			Kind:        Records,
			RecordSize:  1,
			RecordCount: 10,
			ROMOffset:   0x1D63,
			Fields: []Field{
				{Name: "mp_cost", Offset: 0, Width: 1, Min: 0, Max: 255},
			},
			Labels: spellLabels,
		},
		{
			Type:        Equipment,
			Name:        Equipment.String(),
			Kind:        Records,
			RecordSize:  2,
			RecordCount: 17,
			ROMOffset:   0x1947,
			Fields: []Field{
				{Name: "price", Offset: 0, Width: 2, Min: 0, Max: 65535},
			},
			Labels: equipmentLabels,
		},
		{
			Type:        SpriteTiles,
			Name:        SpriteTiles.String(),
			Kind:        Tiles,
			RecordSize:  TileSize,
			RecordCount: 256,
			ROMOffset:   chrOffset,
		},
		{
			Type:        BackgroundTiles,
			Name:        BackgroundTiles.String(),
			Kind:        Tiles,
			RecordSize:  TileSize,
			RecordCount: 256,
			ROMOffset:   chrOffset + 256*TileSize,
		},
	}
}

// DragonWarrior returns the registry of the Dragon Warrior ROM.
func DragonWarrior() *Registry {
	r, err := NewRegistry(DragonWarriorProfile(), DragonWarriorSchemas()...)
	if err != nil {
		panic(err) // the built in declaration is static
	}
	return r
}
