package persona

import (
	"math/rand"
	"strconv"
	"strings"
)

// resolveAge draws a concrete integer age uniformly within the sampled age
// band (e.g. "25-34" -> [25,34]). An open-ended band like "65+" draws from a
// 25-year window above its floor. Unparseable bands fall back to 35.
func resolveAge(rng *rand.Rand, ageGroup string) int {
	band := strings.TrimSpace(ageGroup)
	if strings.HasSuffix(band, "+") {
		floor, err := strconv.Atoi(strings.TrimSuffix(band, "+"))
		if err != nil {
			return 35
		}
		return floor + rng.Intn(25)
	}

	parts := strings.SplitN(band, "-", 2)
	if len(parts) != 2 {
		return 35
	}
	low, errLow := strconv.Atoi(strings.TrimSpace(parts[0]))
	high, errHigh := strconv.Atoi(strings.TrimSpace(parts[1]))
	if errLow != nil || errHigh != nil || high < low {
		return 35
	}
	return low + rng.Intn(high-low+1)
}
