// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package driver

import (
	"github.com/scigolib/vfdcrypt/errors"
)

// SetEOA sets the end-of-address, in the plaintext view, to plaintextAddr.
// It computes the corresponding ciphertext end-of-address and pushes it
// to the lower driver; both values are only cached locally once the push
// succeeds.
func (h *Handle) SetEOA(plaintextAddr uint64) error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	ctAddr := h.tr.EOAUpToEOADown(plaintextAddr)
	if err := h.lower.SetEOA(ctAddr); err != nil {
		return errors.E(errors.LowerDriverError, "setting lower EOA", err)
	}
	h.eoaUp = plaintextAddr
	h.eoaDown = ctAddr
	return nil
}

// GetEOA returns the end-of-address in the plaintext view, after
// cross-checking that the lower driver's EOA still agrees with the
// cached ciphertext value.
func (h *Handle) GetEOA() (uint64, error) {
	if err := h.checkOpen(); err != nil {
		return 0, err
	}
	ctAddr, err := h.lower.GetEOA()
	if err != nil {
		return 0, errors.E(errors.LowerDriverError, "reading lower EOA", err)
	}
	if ctAddr != h.eoaDown {
		return 0, errors.E(errors.EOAMismatch,
			"lower driver's EOA disagrees with the cached value")
	}
	return h.eoaUp, nil
}

// GetEOF returns the end-of-file in the plaintext view. Undefined is
// relayed unchanged, meaning the lower driver reports an empty file (a
// file holding only the two header pages reports 0). Otherwise
// the lower driver's EOF must be a multiple of CiphertextPageSize and at
// least two header pages; either violation is CorruptFile.
func (h *Handle) GetEOF() (uint64, error) {
	if err := h.checkOpen(); err != nil {
		return 0, err
	}
	ctEOF, err := h.lower.GetEOF()
	if err != nil {
		return 0, errors.E(errors.LowerDriverError, "reading lower EOF", err)
	}
	if ctEOF == Undefined {
		h.eofDown = Undefined
		h.eofUp = Undefined
		return Undefined, nil
	}
	if ctEOF < 2*h.cfg.CiphertextPageSize {
		return 0, errors.E(errors.CorruptFile, "lower EOF is short of the two header pages")
	}
	if ctEOF%h.cfg.CiphertextPageSize != 0 {
		return 0, errors.E(errors.CorruptFile, "lower EOF is not a multiple of ciphertext_page_size")
	}
	h.eofDown = ctEOF
	h.eofUp = h.tr.EOFDownToEOFUp(ctEOF)
	return h.eofUp, nil
}
