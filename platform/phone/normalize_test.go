package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		region string
		want   string
	}{
		{"dutch local format", "06 1234 5678", "", "+31612345678"},
		{"already e164", "+31612345678", "", "+31612345678"},
		{"explicit region", "0171 1234567", "DE", "+491711234567"},
		{"garbage passes through", "not a number", "", "not a number"},
		{"empty stays empty", "   ", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			if tt.region == "" {
				got = NormalizeE164(tt.input)
			} else {
				got = NormalizeE164In(tt.input, tt.region)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}
