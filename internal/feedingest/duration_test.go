package feedingest

import "testing"

func TestParseDurationFormats(t *testing.T) {
	cases := []struct {
		raw  string
		want int
		ok   bool
	}{
		{"01:02:03", 3723, true},
		{"45:10", 2710, true},
		{"90", 90, true},
		{"0", 0, true},
		{"", 0, false},
		{"not-a-duration", 0, false},
		{"12:99", 0, false},
		{"24:61:00", 0, false},
	}

	for _, tc := range cases {
		got, ok := ParseDuration(tc.raw)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseDuration(%q) = (%d, %v), want (%d, %v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
