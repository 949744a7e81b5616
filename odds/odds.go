// Package odds derives betting odds from historical match results and from
// live wager pressure. Everything here is pure computation; callers fetch
// the history and pooled amounts.
package odds

import (
	"math"
	"time"

	"scrimbet/models"
)

const (
	// Straight-bet pricing
	baseHistoryMonths = 18
	baseHistoryCap    = 50
	recencyHalfDays   = 180.0
	logisticSlope     = 2.0
	minProbability    = 0.05
	maxProbability    = 0.95
	minOdds           = 1.10
	maxOdds           = 5.00

	// Market-pressure blending
	marketHalfPoint = 3000.0
	marketMaxWeight = 0.9

	// Exact-score pricing
	scoreHistoryMonths = 24
	scoreHistoryCap    = 100
	scoreRecencyDays   = 240.0
	priorDecay         = 0.7
	biasCap            = 0.3
	minScoreProb       = 0.01
	maxScoreProb       = 0.9
	maxScoreOdds       = 15.0
)

// History fetch parameters. Callers pull at most this many finished matches,
// no older than the matching window, and pass them to Base or Score.
const (
	BaseHistoryLimit  = baseHistoryCap
	ScoreHistoryLimit = scoreHistoryCap
)

// BaseHistorySince returns the oldest scheduled time Base will count
func BaseHistorySince(now time.Time) time.Time {
	return now.AddDate(0, -baseHistoryMonths, 0)
}

// ScoreHistorySince returns the oldest scheduled time Score will count
func ScoreHistorySince(now time.Time) time.Time {
	return now.AddDate(0, -scoreHistoryMonths, 0)
}

// Pair holds decimal odds for the organization's team (A) and the opponent (B)
type Pair struct {
	A float64
	B float64
}

// Even is the no-history fairness baseline
var Even = Pair{A: 2.00, B: 2.00}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func toOdds(p, lo, hi float64) float64 {
	return round2(clamp(1/p, lo, hi))
}

// Base computes the fairness-baseline odds for the org's team against one
// opponent from finished matches against that same opponent. History older
// than 18 months is ignored, and at most the 50 most recent matches count.
// With no usable history the result is exactly 2.00 / 2.00.
func Base(now time.Time, history []*models.Match) Pair {
	cutoff := now.AddDate(0, -baseHistoryMonths, 0)

	var num, den float64
	counted := 0
	for _, m := range history {
		if counted >= baseHistoryCap {
			break
		}
		if m.Status != models.MatchStatusFinished || m.Score == nil {
			continue
		}
		if m.ScheduledAt.Before(cutoff) {
			continue
		}
		ours, theirs, err := models.ParseScore(*m.Score)
		if err != nil {
			continue
		}
		counted++

		var sign float64
		switch {
		case ours > theirs:
			sign = 1
		case ours < theirs:
			sign = -1
		}

		ageDays := now.Sub(m.ScheduledAt).Hours() / 24
		recency := math.Exp(-ageDays / recencyHalfDays)
		series := clamp(float64(m.NumberOfGames)/5, 0.2, 1)
		winsNeeded := float64((m.NumberOfGames + 1) / 2)
		margin := clamp(math.Abs(float64(ours-theirs))/winsNeeded, 0, 1)

		num += sign * recency * series * margin
		den += recency * series
	}

	if den == 0 {
		return Even
	}

	strength := num / den
	p := 1 / (1 + math.Exp(-logisticSlope*strength))
	p = clamp(p, minProbability, maxProbability)

	return Pair{
		A: toOdds(p, minOdds, maxOdds),
		B: toOdds(1-p, minOdds, maxOdds),
	}
}

// Dynamic adjusts base odds toward the crowd's money. The blend weight grows
// with total staked volume, half-weighted at 3000 units and capped at 90%,
// so an unbacked market prices purely off history while a heavy market
// converges toward the empirical split. This is a live price: it must be
// recomputed on every placement request.
func Dynamic(baseA, baseB float64, pooledA, pooledB int64) Pair {
	pa := 1 / baseA
	pb := 1 / baseB
	p0 := pa / (pa + pb)

	total := float64(pooledA + pooledB)
	q := 0.5
	if total > 0 {
		q = float64(pooledA) / total
	}
	w := clamp(total/(total+marketHalfPoint), 0, marketMaxWeight)

	p := (1-w)*p0 + w*q
	p = clamp(p, minProbability, maxProbability)

	return Pair{
		A: toOdds(p, minOdds, maxOdds),
		B: toOdds(1-p, minOdds, maxOdds),
	}
}

// ValidScores enumerates the terminal scores of a best-of-N series, the
// org-win orientations first. Returns nil for a non-positive N.
func ValidScores(numberOfGames int) []string {
	if numberOfGames < 1 {
		return nil
	}
	winsNeeded := (numberOfGames + 1) / 2
	scores := make([]string, 0, 2*winsNeeded)
	for loser := 0; loser < winsNeeded; loser++ {
		scores = append(scores, scoreString(winsNeeded, loser))
	}
	for loser := 0; loser < winsNeeded; loser++ {
		scores = append(scores, scoreString(loser, winsNeeded))
	}
	return scores
}

func scoreString(ours, theirs int) string {
	return itoa(ours) + "-" + itoa(theirs)
}

// itoa avoids strconv for the tiny score range
func itoa(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}

// Score prices every valid terminal score of a best-of-N series. It blends a
// recency-weighted empirical distribution over historical exact scores with
// a geometric prior favoring narrow margins, nudged by up to 30% toward the
// side with more historical win weight. Any unusable input degrades to the
// pure prior rather than failing.
func Score(now time.Time, history []*models.Match, numberOfGames int) map[string]float64 {
	scores := ValidScores(numberOfGames)
	if scores == nil {
		return nil
	}
	winsNeeded := (numberOfGames + 1) / 2

	cutoff := now.AddDate(0, -scoreHistoryMonths, 0)

	empirical := make(map[string]float64, len(scores))
	var totalWeight, winWeight, lossWeight float64
	counted := 0
	for _, m := range history {
		if counted >= scoreHistoryCap {
			break
		}
		if m.Status != models.MatchStatusFinished || m.Score == nil {
			continue
		}
		if m.NumberOfGames != numberOfGames || m.ScheduledAt.Before(cutoff) {
			continue
		}
		ours, theirs, err := models.ParseScore(*m.Score)
		if err != nil {
			continue
		}
		if ours != winsNeeded && theirs != winsNeeded {
			// Not a terminal score for this format; ingestion anomaly
			continue
		}
		counted++

		w := math.Exp(-now.Sub(m.ScheduledAt).Hours() / 24 / scoreRecencyDays)
		empirical[scoreString(ours, theirs)] += w
		totalWeight += w
		if ours > theirs {
			winWeight += w
		} else {
			lossWeight += w
		}
	}

	// Geometric prior over margins, normalized
	prior := make(map[string]float64, len(scores))
	var priorSum float64
	for _, s := range scores {
		ours, theirs, _ := models.ParseScore(s)
		margin := math.Abs(float64(ours - theirs))
		prior[s] = math.Exp(-priorDecay * margin)
		priorSum += prior[s]
	}
	for s := range prior {
		prior[s] /= priorSum
	}

	var bias float64
	if totalWeight > 0 {
		bias = clamp((winWeight-lossWeight)/totalWeight, -biasCap, biasCap)
	}

	alpha := 2 + math.Log(1+totalWeight)

	blended := make(map[string]float64, len(scores))
	var blendedSum float64
	for _, s := range scores {
		ours, theirs, _ := models.ParseScore(s)
		side := 1 + bias
		if ours < theirs {
			side = 1 - bias
		}
		v := empirical[s] + alpha*prior[s]*side
		blended[s] = v
		blendedSum += v
	}
	if blendedSum <= 0 || math.IsNaN(blendedSum) || math.IsInf(blendedSum, 0) {
		// Degenerate blend; price off the prior alone
		blended = prior
		blendedSum = 1
	}

	out := make(map[string]float64, len(scores))
	for _, s := range scores {
		p := clamp(blended[s]/blendedSum, minScoreProb, maxScoreProb)
		out[s] = toOdds(p, minOdds, maxScoreOdds)
	}
	return out
}
