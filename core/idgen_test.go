package core

import "testing"

func TestIDGeneratorNext(t *testing.T) {
	gen := NewIDGenerator()
	for _, id := range []string{"S40", "S42", "S7", "AT3", "garbage", "42", "S"} {
		gen.Observe(id)
	}

	for i, want := range []string{"S43", "S44", "S45"} {
		if got := gen.Next("S"); got != want {
			t.Errorf("Next(S) #%d = %v, want %v", i+1, got, want)
		}
	}
	if got := gen.Next("AT"); got != "AT4" {
		t.Errorf("Next(AT) = %v, want AT4", got)
	}
	// unseen prefix starts at 1
	if got := gen.Next("C"); got != "C1" {
		t.Errorf("Next(C) = %v, want C1", got)
	}
}

func TestIDGeneratorSeedKeepsMax(t *testing.T) {
	gen := NewIDGenerator()
	gen.Seed(map[string]int{"S": 10})
	gen.Seed(map[string]int{"S": 4}) // lower seed must not regress
	if got := gen.Next("S"); got != "S11" {
		t.Errorf("Next(S) = %v, want S11", got)
	}

	counters := gen.Counters()
	if counters["S"] != 11 {
		t.Errorf("Counters()[S] = %v, want 11", counters["S"])
	}
}

func TestSplitID(t *testing.T) {
	tests := []struct {
		id         string
		wantPrefix string
		wantN      int
		wantOK     bool
	}{
		{id: "S42", wantPrefix: "S", wantN: 42, wantOK: true},
		{id: "AT101", wantPrefix: "AT", wantN: 101, wantOK: true},
		{id: "42", wantOK: false},
		{id: "S", wantOK: false},
		{id: "", wantOK: false},
		{id: "S4x2", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			prefix, n, ok := SplitID(tt.id)
			if ok != tt.wantOK || prefix != tt.wantPrefix || n != tt.wantN {
				t.Errorf("SplitID(%q) = (%q, %v, %v), want (%q, %v, %v)",
					tt.id, prefix, n, ok, tt.wantPrefix, tt.wantN, tt.wantOK)
			}
		})
	}
}
