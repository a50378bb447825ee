// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package driver

import (
	"github.com/scigolib/vfdcrypt/errors"
	"github.com/scigolib/vfdcrypt/log"
)

// Read decrypts size bytes starting at the plaintext-aligned address addr
// into dst. addr and size must both be multiples of
// Configuration.PlaintextPageSize; size may be zero, in which case Read
// is a no-op that succeeds without touching the lower driver.
func (h *Handle) Read(plaintextAddr, size uint64, dst []byte) error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	if size == 0 {
		return nil
	}
	if err := h.checkRequest(plaintextAddr, size); err != nil {
		return err
	}
	if uint64(len(dst)) < size {
		return errors.E(errors.Invalid, "destination buffer is smaller than size")
	}

	ctAddr := h.tr.PlaintextToCiphertextAddr(plaintextAddr)
	pagesRemaining := h.tr.PageCount(size)
	pps := h.cfg.PlaintextPageSize
	ctps := h.cfg.CiphertextPageSize

	var dstOff uint64
	var bufValid, bufPos uint64

	for pagesRemaining > 0 {
		if bufValid == 0 {
			remainingCT := pagesRemaining * ctps
			toRead := remainingCT
			if toRead > uint64(len(h.buf)) {
				toRead = uint64(len(h.buf))
			}
			if err := h.lower.ReadAt(ctAddr, h.buf[:toRead]); err != nil {
				wrapped := errors.E(errors.LowerDriverError, "reading ciphertext pages", err)
				h.ioErr.Set(wrapped)
				return wrapped
			}
			log.Debug.Printf("driver: refilled %d ciphertext bytes at %d", toRead, ctAddr)
			ctAddr += toRead
			bufValid = toRead
			bufPos = 0
		}

		page := h.buf[bufPos : bufPos+ctps]
		if err := h.adapter.DecryptPage(dst[dstOff:dstOff+pps], page, h.cfg.Key, int(h.cfg.IVSize)); err != nil {
			return err
		}
		dstOff += pps
		bufPos += ctps
		bufValid -= ctps
		pagesRemaining--
	}
	return nil
}

// Write encrypts size bytes of src into the lower driver at the
// plaintext-aligned address addr. addr and size must both be multiples
// of Configuration.PlaintextPageSize; size may be zero, in which case
// Write is a no-op that succeeds without touching the lower driver.
func (h *Handle) Write(plaintextAddr, size uint64, src []byte) error {
	if err := h.checkOpen(); err != nil {
		return err
	}
	if size == 0 {
		return nil
	}
	if err := h.checkRequest(plaintextAddr, size); err != nil {
		return err
	}
	if uint64(len(src)) < size {
		return errors.E(errors.Invalid, "source buffer is smaller than size")
	}

	ctAddr := h.tr.PlaintextToCiphertextAddr(plaintextAddr)
	pagesRemaining := h.tr.PageCount(size)
	pps := h.cfg.PlaintextPageSize
	ctps := h.cfg.CiphertextPageSize

	var srcOff uint64
	var bufPos uint64
	flushStart := ctAddr

	for pagesRemaining > 0 {
		page := h.buf[bufPos : bufPos+ctps]
		if err := h.adapter.EncryptPage(page, src[srcOff:srcOff+pps], h.cfg.Key, int(h.cfg.IVSize)); err != nil {
			return err
		}
		srcOff += pps
		bufPos += ctps
		pagesRemaining--

		if bufPos == uint64(len(h.buf)) || pagesRemaining == 0 {
			if err := h.lower.WriteAt(flushStart, h.buf[:bufPos]); err != nil {
				wrapped := errors.E(errors.LowerDriverError, "flushing ciphertext pages", err)
				h.ioErr.Set(wrapped)
				return wrapped
			}
			log.Debug.Printf("driver: flushed %d ciphertext bytes at %d", bufPos, flushStart)
			flushStart += bufPos
			bufPos = 0
		}
	}
	return nil
}

// checkRequest validates alignment and overflow for a plaintext-view
// read or write. A request that is rejected here never reaches the lower
// driver.
func (h *Handle) checkRequest(plaintextAddr, size uint64) error {
	if err := h.tr.CheckOverflow(plaintextAddr, size); err != nil {
		return err
	}
	return h.tr.CheckAlign(plaintextAddr, size)
}
