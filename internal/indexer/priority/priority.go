// Package priority scores words and nodes. The arithmetic and its ordering
// are part of the ranking contract: changing either shifts every result.
package priority

import (
	"math"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/sitesearch/internal/text"
)

const (
	minWordPriority = 10.0
	lengthBoost     = 0.05
	occurrenceBoost = 0.1
	textsBoost      = 0.2
	keywordFactor   = 2.0

	MaxNodePriority = 100.0
	MinNodePriority = -20.0
	maxDecay        = 40.0
)

// Words replaces each word's accumulated priority with its final score,
// normalized so the best word scores 100.
func Words(words text.WordMap) {
	maxScore := 0.0
	for w, wd := range words {
		if wd.IsStopWord {
			wd.Priority = 0
			continue
		}
		p := math.Max(wd.Priority, minWordPriority)
		p += p * lengthBoost * float64(utf8.RuneCountInString(w))
		p += p * occurrenceBoost * float64(wd.Occurrences)
		p += p * textsBoost * float64(wd.OccurrencesInTexts)
		if wd.IsKeyword {
			p *= keywordFactor
		}
		wd.Priority = p
		maxScore = math.Max(maxScore, p)
	}
	if maxScore == 0 {
		return
	}
	for _, wd := range words {
		wd.Priority = wd.Priority / maxScore * 100
	}
}

// NodeInput is what Node needs to score one node.
type NodeInput struct {
	Priority  float64
	Timestamp time.Time
	// IgnoreGuardRails lifts the 100 cap. It is implied when Priority
	// already exceeds 100.
	IgnoreGuardRails bool
}

// Node combines a node's declared priority with its scored words and
// decays it by age relative to now.
func Node(in NodeInput, words text.WordMap, now time.Time) float64 {
	np := in.Priority
	unguarded := in.IgnoreGuardRails || np > MaxNodePriority

	wp := 0.0
	if len(words) > 0 {
		for _, wd := range words {
			wp += wd.Priority
		}
		wp /= float64(len(words))
	}
	wp = math.Min(wp, np) / math.Max(math.Max(np, wp), 1) * 100
	np += math.Min(MaxNodePriority, wp) / 3
	if !unguarded {
		np = math.Min(np, MaxNodePriority)
	}

	np -= math.Min(maxDecay, math.Abs(np)*DaysSince(in.Timestamp, now)/7/2/50)
	return math.Max(np, MinNodePriority)
}

// DaysSince returns the fractional days between ts and now. Zero or future
// timestamps count as fresh.
func DaysSince(ts, now time.Time) float64 {
	if ts.IsZero() || ts.After(now) {
		return 0
	}
	return now.Sub(ts).Hours() / 24
}
