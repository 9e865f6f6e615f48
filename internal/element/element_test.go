package element

import "testing"

func TestNumber(t *testing.T) {
	tests := []struct {
		symbol string
		want   int
		ok     bool
	}{
		{"H", 1, true},
		{"N", 7, true},
		{"Ar", 18, true},
		{"Fe", 26, true},
		{"As", 33, true},
		{"U", 92, true},
		{"Og", 118, true},
		{"fe", 0, false},
		{"Xx", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got, ok := Number(tt.symbol)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Number(%q) = %d, %v; want %d, %v", tt.symbol, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestSymbolRoundTrip(t *testing.T) {
	for z := 1; z <= MaxZ; z++ {
		sym, ok := Symbol(z)
		if !ok {
			t.Fatalf("Symbol(%d) not found", z)
		}
		back, ok := Number(sym)
		if !ok || back != z {
			t.Errorf("Number(Symbol(%d)=%q) = %d, %v", z, sym, back, ok)
		}
	}

	if _, ok := Symbol(0); ok {
		t.Error("Symbol(0) should not resolve")
	}
	if _, ok := Symbol(MaxZ + 1); ok {
		t.Error("Symbol(119) should not resolve")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		key     string
		want    int
		wantErr bool
	}{
		{"Fe", 26, false},
		{"26", 26, false},
		{" 14 ", 14, false},
		{"0", 0, true},
		{"119", 0, true},
		{"iron", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := Parse(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %d, want %d", tt.key, got, tt.want)
			}
		})
	}
}
