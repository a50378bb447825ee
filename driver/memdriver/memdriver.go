// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package memdriver implements a driver.LowerDriver backed by an
// in-memory buffer. It exists so the core's tests can exercise the Page
// I/O Engine and Driver Lifecycle without touching a filesystem, the
// same role localfile/memfile test doubles play in file-backed test
// suites.
package memdriver

import (
	"sync"

	"github.com/scigolib/vfdcrypt/driver"
	"github.com/scigolib/vfdcrypt/errors"
)

// Driver is a driver.LowerDriver backed by a growable byte slice. The
// zero value is not usable; construct one with New.
type Driver struct {
	mu     sync.Mutex
	data   []byte
	eoa    uint64
	locked bool
	closed bool
}

// New returns an empty Driver.
func New() *Driver {
	return &Driver{}
}

func (d *Driver) ReadAt(off uint64, p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.E(errors.Invalid, "memdriver: read after close")
	}
	end := off + uint64(len(p))
	if end > uint64(len(d.data)) {
		return errors.E(errors.NotExist, "memdriver: read past end of file")
	}
	copy(p, d.data[off:end])
	return nil
}

func (d *Driver) WriteAt(off uint64, p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.E(errors.Invalid, "memdriver: write after close")
	}
	end := off + uint64(len(p))
	if end > uint64(len(d.data)) {
		grown := make([]byte, end)
		copy(grown, d.data)
		d.data = grown
	}
	copy(d.data[off:end], p)
	return nil
}

func (d *Driver) GetEOA() (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.eoa, nil
}

func (d *Driver) SetEOA(addr uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.eoa = addr
	return nil
}

func (d *Driver) GetEOF() (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.data) == 0 {
		return driver.Undefined, nil
	}
	return uint64(len(d.data)), nil
}

func (d *Driver) Flush() error {
	return nil
}

func (d *Driver) Truncate(size uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if size <= uint64(len(d.data)) {
		d.data = d.data[:size]
		return nil
	}
	grown := make([]byte, size)
	copy(grown, d.data)
	d.data = grown
	return nil
}

func (d *Driver) Lock(exclusive bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.locked {
		return errors.E(errors.Unavailable, "memdriver: already locked")
	}
	d.locked = true
	return nil
}

func (d *Driver) Unlock() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.locked = false
	return nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *Driver) Ctl(op driver.CtlOp, arg interface{}) (interface{}, error) {
	switch op {
	case driver.CtlCompare:
		other, ok := arg.(*Driver)
		if !ok {
			return nil, errors.E(errors.Invalid, "memdriver: compare argument is not a *Driver")
		}
		switch {
		case d == other:
			return 0, nil
		case d.less(other):
			return -1, nil
		default:
			return 1, nil
		}
	case driver.CtlQuery, driver.CtlSuperblockSize, driver.CtlSuperblockEncode, driver.CtlSuperblockDecode:
		return nil, nil
	case driver.CtlDelete:
		d.mu.Lock()
		d.data = nil
		d.mu.Unlock()
		return nil, nil
	default:
		return nil, errors.E(errors.NotSupported, "memdriver: unrecognized ctl op")
	}
}

func (d *Driver) less(other *Driver) bool {
	return uintptr(len(d.data)) < uintptr(len(other.data))
}

// Len reports the current size of the underlying buffer, for tests that
// want to assert on the exact ciphertext layout written by the core.
func (d *Driver) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.data)
}
