package solana

import "testing"

func TestIsOnCurve(t *testing.T) {
	tests := []struct {
		name   string
		pubkey string
		want   bool
	}{
		{"system program", "11111111111111111111111111111111", true},
		{"raydium authority pda", "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1", false},
		{"not base58", "0OIl", false},
		{"short", "abc", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOnCurve(tt.pubkey); got != tt.want {
				t.Errorf("IsOnCurve(%q) = %v, want %v", tt.pubkey, got, tt.want)
			}
		})
	}
}
