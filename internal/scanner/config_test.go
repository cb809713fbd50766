package scanner

import (
	"errors"
	"net/netip"
	"testing"
)

func TestConfig_Ports(t *testing.T) {
	cases := []struct {
		name       string
		start, end uint16
		want       int
	}{
		{"single", 80, 80, 1},
		{"default", 1, 1024, 1024},
		{"inverted", 1024, 1, 0},
		{"top of range", 65534, 65535, 2},
		{"everything", 0, 65535, 65536},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{StartPort: tc.start, EndPort: tc.end}
			ports := cfg.Ports()
			if cfg.Count() != tc.want || len(ports) != tc.want {
				t.Fatalf("expected %d ports, Count()=%d len=%d", tc.want, cfg.Count(), len(ports))
			}
			for i, p := range ports {
				if int(p) != int(tc.start)+i {
					t.Fatalf("ports not ascending at %d: %d", i, p)
				}
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	addr := netip.MustParseAddr("192.0.2.1")

	if err := DefaultConfig(addr).Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if err := (Config{MaxTasks: 1}).Validate(); !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("expected ErrInvalidTarget, got %v", err)
	}
	if err := (Config{Target: addr}).Validate(); !errors.Is(err, ErrInvalidMaxTasks) {
		t.Fatalf("expected ErrInvalidMaxTasks, got %v", err)
	}
	if err := (Config{Target: addr, StartPort: 9, EndPort: 1, MaxTasks: 1}).Validate(); err != nil {
		t.Fatalf("an inverted range is empty, not invalid: %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig(netip.MustParseAddr("::1"))
	if cfg.StartPort != 1 || cfg.EndPort != 1024 || cfg.MaxTasks != 100 || cfg.Verbose {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}
