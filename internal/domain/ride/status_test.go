package ride

import "testing"

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Status
		wantErr bool
	}{
		{"exact match", "matched", StatusMatched, false},
		{"uppercase normalizes", "MATCHED", StatusMatched, false},
		{"padded normalizes", "  started  ", StatusStarted, false},
		{"unknown value rejected", "in-transit", "", true},
		{"empty rejected", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseStatus(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestStatusCanTransitionTo(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
		want bool
	}{
		{StatusRequested, StatusMatched, true},
		{StatusRequested, StatusCancelled, true},
		{StatusRequested, StatusAccepted, false},
		{StatusRequested, StatusStarted, false},

		{StatusMatched, StatusAccepted, true},
		{StatusMatched, StatusCancelled, true},
		{StatusMatched, StatusRequested, false},
		{StatusMatched, StatusStarted, false},

		{StatusAccepted, StatusStarted, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusAccepted, StatusMatched, false},
		{StatusAccepted, StatusCompleted, false},

		{StatusStarted, StatusCompleted, true},
		{StatusStarted, StatusCancelled, false},

		{StatusCompleted, StatusCancelled, false},
		{StatusCompleted, StatusRequested, false},
		{StatusCancelled, StatusRequested, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("%v.CanTransitionTo(%v) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusCancelled}
	nonTerminal := []Status{StatusRequested, StatusMatched, StatusAccepted, StatusStarted}

	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("%v.Terminal() = false, want true", s)
		}
	}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Errorf("%v.Terminal() = true, want false", s)
		}
	}
}
