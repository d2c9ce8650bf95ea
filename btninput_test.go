package main

import "testing"

func press(s *buttonScanner, button, ticks int) []ButtonCode {
	var out []ButtonCode
	down := make([]bool, 2)
	up := make([]bool, 2)
	down[button-1] = true
	for i := 0; i <= ticks; i++ {
		if c, ok := s.step(down); ok {
			out = append(out, c)
		}
	}
	if c, ok := s.step(up); ok {
		out = append(out, c)
	}
	return out
}

func TestButtonScanner(t *testing.T) {
	tests := []struct {
		name   string
		button int
		ticks  int
		want   []ButtonCode
	}{
		{"glitch ignored", 1, 1, nil},
		{"short press", 1, 10, []ButtonCode{btnVisible}},
		{"second button", 2, 10, []ButtonCode{btnAmbient}},
		{"long press reported once", 2, 200, []ButtonCode{btnAmbient | btnLong}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s buttonScanner
			got := press(&s, tt.button, tt.ticks)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
			for _, c := range got {
				if _, ok := buttonfunc[c]; !ok {
					t.Fatalf("no action for %v", c)
				}
			}
		})
	}
}
