package alphabet

import "testing"

func TestWhichPile(t *testing.T) {
	cases := []struct {
		c    byte
		pile int
	}{
		{'$', 0},
		{'A', 1},
		{'C', 2},
		{'G', 3},
		{'N', 4},
		{'T', 5},
		{'X', DontKnowPile},
		{'a', DontKnowPile},
	}
	for _, c := range cases {
		if got := WhichPile(c.c); got != c.pile {
			t.Errorf("WhichPile(%q) = %d, want %d", c.c, got, c.pile)
		}
	}
}

func TestIsKnown(t *testing.T) {
	if !IsKnown('A') {
		t.Error("A should be known")
	}
	if IsKnown('X') {
		t.Error("X should not be known")
	}
}
