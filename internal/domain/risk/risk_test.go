package risk

import "testing"

func TestClamp(t *testing.T) {
	if Clamp(-5) != 0 {
		t.Fatal("negative score should clamp to 0")
	}
	if Clamp(140) != 100 {
		t.Fatal("score above 100 should clamp to 100")
	}
	if Clamp(42) != 42 {
		t.Fatal("in-range score should pass through")
	}
}

func TestLevelFor(t *testing.T) {
	cases := []struct {
		score int
		want  Level
	}{
		{0, LevelLow},
		{24, LevelLow},
		{25, LevelMedium},
		{49, LevelMedium},
		{50, LevelHigh},
		{74, LevelHigh},
		{75, LevelCritical},
		{100, LevelCritical},
	}
	for _, tc := range cases {
		if got := LevelFor(tc.score); got != tc.want {
			t.Fatalf("score %d: expected %s, got %s", tc.score, tc.want, got)
		}
	}
}

func TestAtLeast(t *testing.T) {
	if !LevelCritical.AtLeast(LevelHigh) {
		t.Fatal("critical should rank at least high")
	}
	if LevelMedium.AtLeast(LevelHigh) {
		t.Fatal("medium should not rank at least high")
	}
}
