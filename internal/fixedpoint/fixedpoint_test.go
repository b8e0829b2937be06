package fixedpoint

import "testing"

func TestMulDivTruncates(t *testing.T) {
	tests := []struct {
		name      string
		a, b, den int64
		want      int64
	}{
		{"exact", 90, 5, 5, 90},
		{"truncates down", 90, 1, 7, 12},
		{"truncates not rounds", 90, 6, 7, 77}, // 77.14
		{"zero numerator", 0, 5, 7, 0},
		{"large intermediate", 1 << 40, 1 << 40, 1 << 40, 1 << 40}, // product overflows int64, big.Int path does not
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MulDiv(tt.a, tt.b, tt.den)
			if got != tt.want {
				t.Errorf("MulDiv(%d, %d, %d) = %d, want %d", tt.a, tt.b, tt.den, got, tt.want)
			}
		})
	}
}

func TestPctOf(t *testing.T) {
	tests := []struct {
		amount, pct int64
		want        int64
	}{
		{1000, 10, 100},
		{1000, 100, 1000},
		{999, 22, 219}, // 219.78 truncates
		{1, 50, 0},
		{0, 100, 0},
	}

	for _, tt := range tests {
		if got := PctOf(tt.amount, tt.pct); got != tt.want {
			t.Errorf("PctOf(%d, %d) = %d, want %d", tt.amount, tt.pct, got, tt.want)
		}
	}
}

func TestRatio(t *testing.T) {
	tests := []struct {
		num, den int64
		want     int64
	}{
		{600, 1000, 60},
		{1000, 1000, 100},
		{2000, 1000, 200},
		{1, 3, 33},
		{0, 1000, 0},
		{1000, 0, 0}, // zero denominator
	}

	for _, tt := range tests {
		if got := Ratio(tt.num, tt.den); got != tt.want {
			t.Errorf("Ratio(%d, %d) = %d, want %d", tt.num, tt.den, got, tt.want)
		}
	}
}
