package buffer_pool

import (
	"fmt"
	"os"
	"sync"
)

// DiskDriver is spec.md §6's external collaborator: a single synchronous
// read/write operation that blocks until I/O completes. bread/bwrite call
// it only while holding the target buffer's sleep-lock.
type DiskDriver interface {
	// ReadWrite reads (write=false) or writes (write=true) len(data) bytes
	// for device dev, block blockno.
	ReadWrite(dev uint32, blockno uint32, data []byte, write bool) error
}

// MemDisk is an in-memory DiskDriver for tests and the demo binary,
// grounded on basic.Space's LoadPageByPageNumber/FlushToDisk shape from the
// teacher repo (server/innodb/basic/spaces.go) — the same two operations,
// collapsed into the single disk_rw spec.md describes.
type MemDisk struct {
	mu      sync.Mutex
	devices map[uint32]map[uint32][]byte
}

func NewMemDisk() *MemDisk {
	return &MemDisk{devices: make(map[uint32]map[uint32][]byte)}
}

func (d *MemDisk) ReadWrite(dev uint32, blockno uint32, data []byte, write bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	blocks, ok := d.devices[dev]
	if !ok {
		blocks = make(map[uint32][]byte)
		d.devices[dev] = blocks
	}

	if write {
		stored := make([]byte, len(data))
		copy(stored, data)
		blocks[blockno] = stored
		return nil
	}

	stored, ok := blocks[blockno]
	if !ok {
		// An unwritten block reads as zeros, like an untouched disk
		// sector.
		for i := range data {
			data[i] = 0
		}
		return nil
	}
	copy(data, stored)
	return nil
}

// FileDisk is a real file-backed DiskDriver: one regular file per device
// number, block blockno living at offset blockno*len(data).
type FileDisk struct {
	mu    sync.Mutex
	dir   string
	files map[uint32]*os.File
}

func NewFileDisk(dir string) *FileDisk {
	return &FileDisk{dir: dir, files: make(map[uint32]*os.File)}
}

func (d *FileDisk) fileFor(dev uint32) (*os.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if f, ok := d.files[dev]; ok {
		return f, nil
	}
	path := fmt.Sprintf("%s/dev-%d.img", d.dir, dev)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	d.files[dev] = f
	return f, nil
}

func (d *FileDisk) ReadWrite(dev uint32, blockno uint32, data []byte, write bool) error {
	f, err := d.fileFor(dev)
	if err != nil {
		return err
	}
	off := int64(blockno) * int64(len(data))
	if write {
		_, err := f.WriteAt(data, off)
		return err
	}
	n, err := f.ReadAt(data, off)
	if n < len(data) {
		// Short read past EOF on an untouched block reads as zeros.
		for i := n; i < len(data); i++ {
			data[i] = 0
		}
		return nil
	}
	return err
}

func (d *FileDisk) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	var firstErr error
	for _, f := range d.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
