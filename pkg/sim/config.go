// Package sim owns the composition root: it constructs the bridge,
// router, MMIO bus, DRAM model and UART, wires their ports together, and
// drives the three-phase cycle loop. It also hosts the test-harness
// helpers (transaction drivers, trace recorder, fuzz runner).
package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/oisee/axi-kit/pkg/axi"
	"github.com/oisee/axi-kit/pkg/ddr"
	"github.com/oisee/axi-kit/pkg/mmio"
)

// Config carries the simulation parameters. LoadConfig starts from the
// defaults, which mirror the original kit's build-time constants, so fields
// absent from a config file keep their default values.
type Config struct {
	MemWords    int    `yaml:"mem_words"`    // backing store size in 32-bit words
	DDRLatency  uint32 `yaml:"ddr_latency"`  // cycles before the first read beat / BVALID
	MMIOLatency uint32 `yaml:"mmio_latency"` // cycles before an MMIO response
	MMIOBase    uint32 `yaml:"mmio_base"`
	MMIOSize    uint32 `yaml:"mmio_size"`
	UARTBase    uint32 `yaml:"uart_base"`
}

// DefaultConfig returns the stock parameters: 4 MiB of DRAM, DDR latency
// 100, MMIO latency 1, and the QEMU-virt style UART window.
func DefaultConfig() Config {
	return Config{
		MemWords:    0x100000,
		DDRLatency:  ddr.DefaultLatency,
		MMIOLatency: mmio.DefaultLatency,
		MMIOBase:    0x10000000,
		MMIOSize:    0x1000,
		UARTBase:    0x10000000,
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.MemWords <= 0 {
		return cfg, fmt.Errorf("config %s: mem_words must be positive", path)
	}
	return cfg, nil
}

// MMIOWindow returns the decoded MMIO address range.
func (c Config) MMIOWindow() axi.Range {
	return axi.Range{Base: c.MMIOBase, Size: c.MMIOSize}
}
