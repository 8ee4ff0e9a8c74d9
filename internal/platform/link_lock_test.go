package platform

import "testing"

func TestNormalizeLockComponent(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		fallback string
		want     string
	}{
		{name: "serial device path", raw: "/dev/ttyACM0", fallback: "x", want: "dev_ttyACM0"},
		{name: "windows port", raw: "COM3", fallback: "x", want: "COM3"},
		{name: "host and port", raw: "192.168.4.1:2217", fallback: "x", want: "192.168.4.1_2217"},
		{name: "empty uses fallback", raw: "   ", fallback: "fallback", want: "fallback"},
		{name: "all unsupported uses fallback", raw: "[]{}", fallback: "fallback", want: "fallback"},
	}

	for _, tc := range tests {
		got := normalizeLockComponent(tc.raw, tc.fallback)
		if got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestLockNameIsPrefixed(t *testing.T) {
	if got := lockName(""); got != "mvcapture-link-default" {
		t.Fatalf("unexpected lock name %q", got)
	}
}
