// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package addr implements the pure address arithmetic that translates
// between the plaintext address space seen by callers of the driver and
// the ciphertext address space seen by the lower driver. It has no side
// effects and holds no state: every function is a total function of its
// arguments (given valid, non-zero page sizes).
package addr

import (
	"math"

	"github.com/scigolib/vfdcrypt/errors"
)

// Translator converts addresses and sizes between the plaintext view
// (above this driver) and the ciphertext view (below it). A Translator is
// immutable once constructed; the same value can be shared across
// concurrent reads of distinct handles.
type Translator struct {
	plaintextPageSize  uint64
	ciphertextPageSize uint64
}

// New returns a Translator for the given page sizes. Both must be
// positive; callers are expected to have already validated the full
// Configuration (see package config) before constructing a Translator.
func New(plaintextPageSize, ciphertextPageSize uint64) Translator {
	if plaintextPageSize == 0 || ciphertextPageSize == 0 {
		panic("addr: page sizes must be positive")
	}
	return Translator{plaintextPageSize, ciphertextPageSize}
}

// HeaderPages is the fixed number of ciphertext pages occupied by the
// header protocol (page 0 and page 1) before any user data.
const HeaderPages = 2

// Offset returns the ciphertext byte offset of the first user page,
// i.e. 2 * ciphertextPageSize.
func (t Translator) Offset() uint64 {
	return HeaderPages * t.ciphertextPageSize
}

// CheckAlign reports whether addr and size are both aligned to the
// plaintext page size, returning MisalignedRequest if not.
func (t Translator) CheckAlign(plaintextAddr, size uint64) error {
	if plaintextAddr%t.plaintextPageSize != 0 {
		return errors.E(errors.MisalignedRequest, "address is not page aligned")
	}
	if size%t.plaintextPageSize != 0 {
		return errors.E(errors.MisalignedRequest, "size is not page aligned")
	}
	return nil
}

// CheckOverflow reports AddressOverflow if addr+size would wrap, or if
// either value exceeds the representable range.
func (t Translator) CheckOverflow(plaintextAddr, size uint64) error {
	if plaintextAddr > math.MaxUint64-size {
		return errors.E(errors.AddressOverflow, "addr+size overflows")
	}
	return nil
}

// PlaintextToCiphertextAddr maps a page-aligned plaintext address to the
// ciphertext offset of the corresponding page, skipping the two header
// pages: (a / plaintextPageSize) * ciphertextPageSize + 2*ciphertextPageSize.
func (t Translator) PlaintextToCiphertextAddr(plaintextAddr uint64) uint64 {
	pageNum := plaintextAddr / t.plaintextPageSize
	return pageNum*t.ciphertextPageSize + t.Offset()
}

// PlaintextToCiphertextSize maps a plaintext byte count to the ciphertext
// byte count spanning the same number of pages:
// (s / plaintextPageSize) * ciphertextPageSize.
func (t Translator) PlaintextToCiphertextSize(size uint64) uint64 {
	pages := size / t.plaintextPageSize
	return pages * t.ciphertextPageSize
}

// PageCount returns the number of whole plaintext pages spanned by size.
// Callers must have validated alignment first; size is assumed to be a
// multiple of plaintextPageSize.
func (t Translator) PageCount(size uint64) uint64 {
	return size / t.plaintextPageSize
}

// EOAUpToEOADown maps an upper (plaintext) end-of-address value to the
// corresponding lower (ciphertext) end-of-address value:
// (ceil(a / plaintextPageSize) + 2) * ciphertextPageSize.
func (t Translator) EOAUpToEOADown(plaintextEOA uint64) uint64 {
	pages := ceilDiv(plaintextEOA, t.plaintextPageSize)
	return (pages + HeaderPages) * t.ciphertextPageSize
}

// EOFDownToEOFUp maps a lower (ciphertext) end-of-file value to the
// corresponding upper (plaintext) end-of-file value:
// ((d / ciphertextPageSize) - 2) * plaintextPageSize.
//
// REQUIRES: eofDown is a multiple of ciphertextPageSize and
// eofDown/ciphertextPageSize >= 2 (callers validate this themselves so
// that they can report CorruptFile with more context than this function
// has available; see driver.Handle.GetEOF).
func (t Translator) EOFDownToEOFUp(eofDown uint64) uint64 {
	pages := eofDown/t.ciphertextPageSize - HeaderPages
	return pages * t.plaintextPageSize
}

func ceilDiv(a, b uint64) uint64 {
	if a == 0 {
		return 0
	}
	return (a-1)/b + 1
}
