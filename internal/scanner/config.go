package scanner

import (
	"errors"
	"fmt"
	"net/netip"
)

const (
	DefaultStartPort uint16 = 1
	DefaultEndPort   uint16 = 1024
	DefaultMaxTasks         = 100
)

var (
	ErrInvalidTarget   = errors.New("target address is not set")
	ErrInvalidMaxTasks = errors.New("max tasks must be at least 1")
)

// Config describes one scan run.
type Config struct {
	Target    netip.Addr
	StartPort uint16
	EndPort   uint16
	// MaxTasks caps how many probes may be in flight at once.
	MaxTasks int
	Verbose  bool
}

// DefaultConfig returns a config for target with the stock port range and
// concurrency ceiling.
func DefaultConfig(target netip.Addr) Config {
	return Config{
		Target:    target,
		StartPort: DefaultStartPort,
		EndPort:   DefaultEndPort,
		MaxTasks:  DefaultMaxTasks,
	}
}

// Validate reports the first problem with c. A start port above the end
// port is not an error; it is an empty range.
func (c Config) Validate() error {
	if !c.Target.IsValid() {
		return ErrInvalidTarget
	}
	if c.MaxTasks < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxTasks, c.MaxTasks)
	}
	return nil
}

// Count returns how many ports the inclusive range holds.
func (c Config) Count() int {
	if c.StartPort > c.EndPort {
		return 0
	}
	return int(c.EndPort) - int(c.StartPort) + 1
}

// Ports lists the range in ascending order.
func (c Config) Ports() []uint16 {
	ports := make([]uint16, 0, c.Count())
	for p := int(c.StartPort); p <= int(c.EndPort); p++ {
		ports = append(ports, uint16(p))
	}
	return ports
}
