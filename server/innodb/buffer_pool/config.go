package buffer_pool

import "gopkg.in/ini.v1"

// Config parametrizes a BufferCache. NumBuffers is spec.md's NBUF,
// NumBuckets is spec.md's 13 (kept configurable so the "prime spreads
// contention" rationale in SPEC_FULL.md can be re-measured at other sizes).
type Config struct {
	NumBuffers      int
	NumBuckets      int
	BlockSize       int
	VerifyChecksums bool
}

// DefaultConfig uses 128 buffers, the default 13 buckets and BlockSize
// bytes per block (§8's "N=2 CPUs, NBUF=30 for compactness" scenarios use a
// smaller NBUF; production sizing is left to the embedder).
func DefaultConfig() Config {
	return Config{
		NumBuffers: 128,
		NumBuckets: NumBucketsDefault,
		BlockSize:  BlockSize,
	}
}

// DeviceTable maps human-readable device names to the opaque `dev uint32`
// spec.md's Buffer/bread/bwrite treat as an identity component. Loaded from
// INI (gopkg.in/ini.v1, part of the teacher's go.mod) so a deployment can
// name its devices instead of hard-coding integers.
type DeviceTable map[string]uint32

// LoadDeviceTable reads a devices.ini file shaped like:
//
//	[devices]
//	root = 0
//	scratch = 1
func LoadDeviceTable(path string) (DeviceTable, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	section := cfg.Section("devices")
	table := make(DeviceTable, len(section.Keys()))
	for _, key := range section.Keys() {
		id, err := key.Uint()
		if err != nil {
			return nil, err
		}
		table[key.Name()] = uint32(id)
	}
	return table, nil
}
