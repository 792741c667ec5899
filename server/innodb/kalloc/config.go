package kalloc

import (
	"os"

	"github.com/pelletier/go-toml"

	"github.com/mpkernel/corecache/server/innodb/cpuset"
)

// Config carries the constants spec.md §6 lists as external ("Constants —
// PGSIZE, PHYSTOP, NCPU, linker symbol marking start of manageable
// memory"). Loadable from TOML so a deployment can supply them instead of
// compiling them in.
type Config struct {
	PageSize   uint32 `toml:"page_size"`
	NumCPU     int    `toml:"num_cpu"`
	RangeStart uint64 `toml:"range_start"`
	RangeSize  uint64 `toml:"range_size"`
	Poison     bool   `toml:"poison"`
}

// DefaultConfig returns a Config sized after the host machine: NCPU comes
// from cpuset.HostNumCPU() (backed by gopsutil), range is a 64 MiB arena
// starting at offset 0 (this module never touches real physical memory).
func DefaultConfig() Config {
	return Config{
		PageSize:   PGSIZE,
		NumCPU:     cpuset.HostNumCPU(),
		RangeStart: 0,
		RangeSize:  64 << 20,
		Poison:     true,
	}
}

// LoadConfig reads a TOML file and overlays it onto DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
