package service

import (
	"testing"
	"duel_arena/internal/domain/model"
)

func TestEloDeltasEqualRatings(t *testing.T) {
	deltaA, deltaB := EloDeltas(1500, 1500, model.WinnerA, 30)
	if deltaA != 15 || deltaB != -15 {
		t.Fatalf("expected +15/-15, got %d/%d", deltaA, deltaB)
	}
}

func TestEloDeltasDrawBetweenEqualsIsZero(t *testing.T) {
	deltaA, deltaB := EloDeltas(1200, 1200, model.WinnerDraw, 30)
	if deltaA != 0 || deltaB != 0 {
		t.Fatalf("expected 0/0, got %d/%d", deltaA, deltaB)
	}
}

func TestEloDeltasAntisymmetric(t *testing.T) {
	cases := []struct {
		ra, rb  int
		outcome string
	}{
		{1000, 1400, model.WinnerA},
		{1400, 1000, model.WinnerB},
		{1234, 987, model.WinnerDraw},
		{2000, 800, model.WinnerA},
	}
	for _, c := range cases {
		deltaA, deltaB := EloDeltas(c.ra, c.rb, c.outcome, 30)
		if deltaA+deltaB != 0 {
			t.Errorf("EloDeltas(%d, %d, %s): %d + %d != 0", c.ra, c.rb, c.outcome, deltaA, deltaB)
		}
	}
}

func TestEloUpsetPaysMoreThanExpectedWin(t *testing.T) {
	upset, _ := EloDeltas(1000, 1400, model.WinnerA, 30)
	expected, _ := EloDeltas(1400, 1000, model.WinnerA, 30)
	if upset <= expected {
		t.Fatalf("upset win should pay more: upset=%d expected=%d", upset, expected)
	}
	if upset <= 0 || expected <= 0 {
		t.Fatalf("wins must never lose rating: upset=%d expected=%d", upset, expected)
	}
}

func TestEloLossAgainstWeakerCostsMore(t *testing.T) {
	_, weakLoses := EloDeltas(1400, 1000, model.WinnerA, 30) // expected result
	_, strongLosesToWeak := EloDeltas(1000, 1400, model.WinnerA, 30)
	if strongLosesToWeak >= weakLoses {
		t.Fatalf("losing as the favorite should cost more: %d vs %d", strongLosesToWeak, weakLoses)
	}
}
