package mixer

import (
	"math/rand/v2"
	"strings"

	"github.com/samber/lo"
)

// ParseSources splits a comma-separated field into URLs, trimming whitespace
// around each one. Empty entries are dropped.
func ParseSources(raw string) []string {
	return lo.Compact(lo.Map(strings.Split(raw, ","), func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}

// Picker chooses an index in [0, n). *rand.Rand satisfies it.
type Picker interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }
