package gate

import "testing"

func TestAdmit(t *testing.T) {
	cases := []struct {
		name       string
		confidence float64
		threshold  float64
		accept     bool
	}{
		{"above threshold", 0.90, 0.70, true},
		{"exactly at threshold", 0.70, 0.70, true},
		{"below threshold", 0.65, 0.70, false},
		{"zero confidence", 0, 0.70, false},
		{"zero threshold accepts everything", 0, 0, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Admit(tc.confidence, tc.threshold)
			if d.Accepted != tc.accept {
				t.Fatalf("Admit(%v, %v).Accepted = %v, want %v", tc.confidence, tc.threshold, d.Accepted, tc.accept)
			}
			if !tc.accept && d.Reason != ReasonLowImageQuality {
				t.Fatalf("expected reason %q, got %q", ReasonLowImageQuality, d.Reason)
			}
			if tc.accept && d.Reason != "" {
				t.Fatalf("accepted decision should carry no reason, got %q", d.Reason)
			}
		})
	}
}
