package sim

import (
	"errors"
	"fmt"
)

// ErrOutOfRange indicates an access beyond the storage capacity.
var ErrOutOfRange = errors.New("address beyond storage capacity")

// Storage is the DDR backing store, allocated lazily in fixed size pages so
// a large address space costs only what is touched.
type Storage struct {
	pageSize uint64
	capacity uint64
	pages    map[uint64][]byte
}

const defaultPageSize = 4096

// NewStorage creates a storage of capacity bytes.
func NewStorage(capacity uint64) *Storage {
	return &Storage{
		pageSize: defaultPageSize,
		capacity: capacity,
		pages:    make(map[uint64][]byte),
	}
}

// Capacity returns the size in bytes.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

func (s *Storage) check(addr, n uint64) error {
	if addr+n > s.capacity || addr+n < addr {
		return fmt.Errorf("sim: [0x%x, +%d): %w", addr, n, ErrOutOfRange)
	}
	return nil
}

func (s *Storage) page(addr uint64) (page []byte, off uint64) {
	off = addr % s.pageSize
	base := addr - off
	if page = s.pages[base]; page == nil {
		page = make([]byte, s.pageSize)
		s.pages[base] = page
	}
	return page, off
}

// ReadAt copies len(p) bytes starting at addr into p.
func (s *Storage) ReadAt(addr uint64, p []byte) error {
	if err := s.check(addr, uint64(len(p))); err != nil {
		return err
	}
	for done := 0; done < len(p); {
		page, off := s.page(addr + uint64(done))
		done += copy(p[done:], page[off:])
	}
	return nil
}

// WriteAt copies p into the storage starting at addr.
func (s *Storage) WriteAt(addr uint64, p []byte) error {
	if err := s.check(addr, uint64(len(p))); err != nil {
		return err
	}
	for done := 0; done < len(p); {
		page, off := s.page(addr + uint64(done))
		done += copy(page[off:], p[done:])
	}
	return nil
}
