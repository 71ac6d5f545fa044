package service

import (
	"math"
	"duel_arena/internal/domain/model"
)

// eloExpected is A's expected score against B.
func eloExpected(ratingA, ratingB int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(ratingB-ratingA)/400.0))
}

// EloDeltas computes the rating movement for both players of a finished duel.
// outcome is model.WinnerA, model.WinnerB or model.WinnerDraw. The deltas are
// antisymmetric: deltaB == -deltaA.
func EloDeltas(ratingA, ratingB int, outcome string, kFactor int) (deltaA, deltaB int) {
	var scoreA float64
	switch outcome {
	case model.WinnerA:
		scoreA = 1.0
	case model.WinnerB:
		scoreA = 0.0
	default:
		scoreA = 0.5
	}

	deltaA = int(math.Round(float64(kFactor) * (scoreA - eloExpected(ratingA, ratingB))))
	return deltaA, -deltaA
}
