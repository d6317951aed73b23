package domain

import "testing"

func strp(s string) *string { return &s }

func TestTakenAtInRange(t *testing.T) {
	tests := []struct {
		name        string
		takenAt     string
		start, end  *string
		wantInRange bool
	}{
		{"no bounds", "2024-07-15", nil, nil, true},
		{"before start", "2024-01-01", strp("2024-06-01"), nil, false},
		{"after end", "2024-12-31", nil, strp("2024-06-01"), false},
		{"within both", "2024-07-15", strp("2024-01-01"), strp("2024-12-31"), true},
		{"rfc3339 vs date bound", "2024-07-15T10:00:00Z", strp("2024-07-15"), strp("2024-07-15"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TakenAtInRange(tt.takenAt, tt.start, tt.end)
			if got != tt.wantInRange {
				t.Errorf("TakenAtInRange(%q, %v, %v) = %v, want %v", tt.takenAt, tt.start, tt.end, got, tt.wantInRange)
			}
		})
	}
}

func TestTakenAtDate(t *testing.T) {
	tests := []struct{ in, want string }{
		{"2024-07-15T10:00:00Z", "2024-07-15"},
		{"2024-07-15", "2024-07-15"},
		{"2024-07-15T00:00:00+09:00", "2024-07-15"},
	}
	for _, tt := range tests {
		if got := TakenAtDate(tt.in); got != tt.want {
			t.Errorf("TakenAtDate(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCompareTakenAt_Ordering(t *testing.T) {
	if CompareTakenAt("2024-01-01", "2024-06-01") >= 0 {
		t.Fatal("expected earlier date to compare less than later date")
	}
	if CompareTakenAt("2024-06-01", "2024-06-01") != 0 {
		t.Fatal("expected equal strings to compare equal")
	}
}
