package thumbnail

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Tiers are the three fixed thumbnail widths. Bounding derived assets to
// three widths keeps cache cardinality at most 3x the inventory size.
var Tiers = [3]int{400, 800, 1600}

// Tier quantizes an effective pixel width (requested width times device pixel
// ratio) to the smallest tier that covers it, or the largest tier when none
// does.
func Tier(effectiveWidth int) int {
	for _, t := range Tiers {
		if effectiveWidth <= t {
			return t
		}
	}
	return Tiers[len(Tiers)-1]
}

// Key maps (source name, item identifier, tier) to the deterministic, sharded
// cache-relative path "sh/hash_tier.jpg". Determinism makes repeated requests
// resolve to the same storage path, which is what lets static-file serving
// and the on-disk cache stay correct.
func Key(source, relativeID string, tier int) string {
	sum := sha256.Sum256([]byte(source + "/" + relativeID))
	h := hex.EncodeToString(sum[:])
	return fmt.Sprintf("%s/%s_%d.jpg", h[:2], h, tier)
}
