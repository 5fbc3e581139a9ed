package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultWaitControl is the WAITCNT value the BIOS programs before handing
// control to a cartridge.
const DefaultWaitControl = 0x4317

// TimingConfig holds the bus timing parameters that are not fixed by the
// hardware's region layout.
type TimingConfig struct {
	// WaitControl is the initial WAITCNT value used to derive game-pak and
	// SRAM wait states. Default: 0x4317.
	WaitControl uint16 `json:"wait_control"`

	// EWRAMWaitStates is the number of wait states for on-board work RAM.
	// An 8/16-bit access costs 1+n cycles, a 32-bit access twice that.
	// Default: 2.
	EWRAMWaitStates uint32 `json:"ewram_wait_states"`

	// UnmappedCost is the cycle cost of any access above the SRAM area.
	// Default: 1.
	UnmappedCost uint32 `json:"unmapped_cost"`
}

// DefaultTimingConfig returns a TimingConfig matching the hardware's state
// after the BIOS boot sequence.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		WaitControl:     DefaultWaitControl,
		EWRAMWaitStates: 2,
		UnmappedCost:    1,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration describes a usable bus.
func (c *TimingConfig) Validate() error {
	if c.UnmappedCost == 0 {
		return fmt.Errorf("unmapped_cost must be > 0")
	}
	if c.EWRAMWaitStates > 15 {
		return fmt.Errorf("ewram_wait_states must be <= 15")
	}
	if c.WaitControl&0x8000 != 0 {
		return fmt.Errorf("wait_control bit 15 is read-only")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
