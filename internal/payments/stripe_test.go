package payments

import "testing"

func TestToMinor(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{12.50, 1250},
		{0.005, 1},
		{0, 0},
		{4.999, 500},
		{-1.25, -125},
	}
	for _, tt := range tests {
		if got := ToMinor(tt.in); got != tt.want {
			t.Errorf("ToMinor(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
