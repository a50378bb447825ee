// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package driver

import (
	"github.com/scigolib/vfdcrypt/errors"
)

// Flush is a pure pass-through to the lower driver.
func (h *Handle) Flush() error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	if err := h.lower.Flush(); err != nil {
		return errors.E(errors.LowerDriverError, "flush", err)
	}
	return nil
}

// Truncate passes size through to the lower driver unchanged: size is
// already in the ciphertext view, since truncation is a file-level
// operation performed by whatever owns the lower driver, not by this
// core's plaintext-view callers.
func (h *Handle) Truncate(size uint64) error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	if err := h.lower.Truncate(size); err != nil {
		return errors.E(errors.LowerDriverError, "truncate", err)
	}
	return nil
}

// Lock is a pure pass-through to the lower driver.
func (h *Handle) Lock(exclusive bool) error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	if err := h.lower.Lock(exclusive); err != nil {
		return errors.E(errors.LowerDriverError, "lock", err)
	}
	return nil
}

// Unlock is a pure pass-through to the lower driver.
func (h *Handle) Unlock() error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	if err := h.lower.Unlock(); err != nil {
		return errors.E(errors.LowerDriverError, "unlock", err)
	}
	return nil
}

// Ctl dispatches op to the lower driver unchanged. It is the pass-through
// used for query, compare, and the superblock encode/size/decode
// operations, none of which this core interprets.
func (h *Handle) Ctl(op CtlOp, arg interface{}) (interface{}, error) {
	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	result, err := h.lower.Ctl(op, arg)
	if err != nil {
		return nil, errors.E(errors.LowerDriverError, "ctl", err)
	}
	return result, nil
}

// Compare is a convenience wrapper over Ctl(CtlCompare, other).
func (h *Handle) Compare(other interface{}) (int, error) {
	result, err := h.Ctl(CtlCompare, other)
	if err != nil {
		return 0, err
	}
	n, _ := result.(int)
	return n, nil
}

// Delete is a convenience wrapper over Ctl(CtlDelete, nil).
func (h *Handle) Delete() error {
	_, err := h.Ctl(CtlDelete, nil)
	return err
}
