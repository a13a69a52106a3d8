package domain

import "testing"

func TestDimensionsUniqueAndOrdered(t *testing.T) {
	dims := Dimensions()
	if len(dims) != 5 {
		t.Fatalf("len(Dimensions()) = %d, want 5", len(dims))
	}

	wantOrder := []string{"completeness", "accuracy", "relevance", "readability", "credibility"}
	seen := make(map[string]bool, len(dims))
	for i, d := range dims {
		if d.Key != wantOrder[i] {
			t.Fatalf("dimension[%d].Key = %s, want %s", i, d.Key, wantOrder[i])
		}
		if seen[d.Key] {
			t.Fatalf("duplicate dimension key %s", d.Key)
		}
		seen[d.Key] = true
		if d.Label == "" {
			t.Fatalf("dimension %s has empty label", d.Key)
		}
	}
}

func TestDimensionsReturnsCopy(t *testing.T) {
	dims := Dimensions()
	dims[0].Key = "mutated"
	if Dimensions()[0].Key != "completeness" {
		t.Fatal("registry mutated through returned slice")
	}
}

func TestKnownDimension(t *testing.T) {
	if !KnownDimension("accuracy") {
		t.Fatal("accuracy should be known")
	}
	if KnownDimension("vibes") {
		t.Fatal("vibes should not be known")
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"unset stays unset", 0, 0},
		{"above ceiling", 7, 5},
		{"below floor", -3, 1},
		{"floor", 1, 1},
		{"ceiling", 5, 5},
		{"in range", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampScore(tt.in); got != tt.want {
				t.Fatalf("ClampScore(%d) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
