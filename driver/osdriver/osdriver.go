// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package osdriver implements a driver.LowerDriver backed by an *os.File:
// os-level errors are classified into this module's error taxonomy
// rather than returned raw, and Stat is the source of truth for
// end-of-file. Unlike a write-once local file (temp file, renamed into
// place on Close), this driver performs genuine random-access reads and
// writes over the file's whole lifetime, since the encrypting core reads
// and writes at arbitrary ciphertext-page offsets across many calls on
// one handle.
package osdriver

import (
	stderrors "errors"
	"os"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/scigolib/vfdcrypt/driver"
	"github.com/scigolib/vfdcrypt/errors"
)

// Driver is a driver.LowerDriver backed by a single *os.File.
type Driver struct {
	mu     sync.Mutex
	f      *os.File
	path   string
	eoa    uint64
	locked bool
}

// Open opens path for reading and writing, creating it if create is true.
func Open(path string, create bool) (*Driver, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0600)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.E(errors.NotExist, "osdriver: open "+path, pkgerrors.WithStack(err))
		}
		return nil, errors.E(errors.LowerDriverError, "osdriver: open "+path, pkgerrors.WithStack(err))
	}
	return &Driver{f: f, path: path}, nil
}

func (d *Driver) ReadAt(off uint64, p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.f.ReadAt(p, int64(off)); err != nil {
		if stderrors.Is(err, os.ErrClosed) {
			return errors.E(errors.Invalid, "osdriver: read after close", pkgerrors.WithStack(err))
		}
		return errors.E(errors.LowerDriverError, "osdriver: read "+d.path, pkgerrors.WithStack(err))
	}
	return nil
}

func (d *Driver) WriteAt(off uint64, p []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.f.WriteAt(p, int64(off)); err != nil {
		return errors.E(errors.LowerDriverError, "osdriver: write "+d.path, pkgerrors.WithStack(err))
	}
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
	info, err := d.f.Stat()
	if err != nil {
		return 0, errors.E(errors.LowerDriverError, "osdriver: stat "+d.path, pkgerrors.WithStack(err))
	}
	if info.Size() == 0 {
		return driver.Undefined, nil
	}
	return uint64(info.Size()), nil
}

func (d *Driver) Flush() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.f.Sync(); err != nil {
		return errors.E(errors.LowerDriverError, "osdriver: sync "+d.path, pkgerrors.WithStack(err))
	}
	return nil
}

func (d *Driver) Truncate(size uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.f.Truncate(int64(size)); err != nil {
		return errors.E(errors.LowerDriverError, "osdriver: truncate "+d.path, pkgerrors.WithStack(err))
	}
	return nil
}

// Lock takes an advisory lock on the whole file with flock(2), in the
// manner of flock.T but without flock's blocking retry loop: since the
// core forbids parallel I/O on one handle, a second locker is always a
// distinct process and should fail fast rather than wait.
func (d *Driver) Lock(exclusive bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.locked {
		return errors.E(errors.Unavailable, "osdriver: already locked")
	}
	how := unix.LOCK_SH | unix.LOCK_NB
	if exclusive {
		how = unix.LOCK_EX | unix.LOCK_NB
	}
	if err := unix.Flock(int(d.f.Fd()), how); err != nil {
		return errors.E(errors.Unavailable, "osdriver: flock "+d.path, pkgerrors.WithStack(err))
	}
	d.locked = true
	return nil
}

func (d *Driver) Unlock() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := unix.Flock(int(d.f.Fd()), unix.LOCK_UN); err != nil {
		return errors.E(errors.LowerDriverError, "osdriver: unflock "+d.path, pkgerrors.WithStack(err))
	}
	d.locked = false
	return nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.f.Close(); err != nil {
		return errors.E(errors.LowerDriverError, "osdriver: close "+d.path, pkgerrors.WithStack(err))
	}
	return nil
}

func (d *Driver) Ctl(op driver.CtlOp, arg interface{}) (interface{}, error) {
	switch op {
	case driver.CtlCompare:
		other, ok := arg.(*Driver)
		if !ok {
			return nil, errors.E(errors.Invalid, "osdriver: compare argument is not a *Driver")
		}
		switch {
		case d.path == other.path:
			return 0, nil
		case d.path < other.path:
			return -1, nil
		default:
			return 1, nil
		}
	case driver.CtlDelete:
		if err := os.Remove(d.path); err != nil {
			return nil, errors.E(errors.LowerDriverError, "osdriver: remove "+d.path, pkgerrors.WithStack(err))
		}
		return nil, nil
	case driver.CtlQuery, driver.CtlSuperblockSize, driver.CtlSuperblockEncode, driver.CtlSuperblockDecode:
		return nil, nil
	default:
		return nil, errors.E(errors.NotSupported, "osdriver: unrecognized ctl op")
	}
}
