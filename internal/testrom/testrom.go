// Package testrom builds synthetic ROM images for tests.
package testrom

import (
	"math/rand"

	"github.com/TheAnsarya/dragon-warrior-info-sub001/internal/schema"
)

const (
	monsterTable = 0x5E5B
	monsterSize  = 16
	monsterCount = 39
)

// DragonWarrior returns an image with the size and iNES header of the Dragon
// Warrior ROM (mapper 1, 4 PRG banks, 2 CHR banks) and pseudo random contents
// derived from seed. The contents pass strict validation of the default registry.
func DragonWarrior(seed int64) []byte {
	data := make([]byte, schema.DragonWarriorSize)
	rng := rand.New(rand.NewSource(seed))
	_, _ = rng.Read(data)

	header := data[:16]
	clear(header)
	copy(header, schema.INESSignature)
	header[4] = 4      // 16 KB PRG banks
	header[5] = 2      // 8 KB CHR banks
	header[6] = 1 << 4 // mapper 1 low nibble, horizontal mirroring

	// monster hit points are never zero
	for i := range monsterCount {
		if hp := monsterTable + i*monsterSize + 2; data[hp] == 0 {
			data[hp] = 1
		}
	}
	return data
}
