// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package driver

import (
	"github.com/scigolib/vfdcrypt/addr"
	"github.com/scigolib/vfdcrypt/cipher"
	"github.com/scigolib/vfdcrypt/config"
	"github.com/scigolib/vfdcrypt/errors"
	"github.com/scigolib/vfdcrypt/header"
	"github.com/scigolib/vfdcrypt/log"
)

// OpenFlag controls Open's create/truncate behavior.
type OpenFlag uint32

const (
	// FlagCreate writes fresh header pages before verifying them, as if
	// the file did not previously exist.
	FlagCreate OpenFlag = 1 << iota
	// FlagTruncate writes fresh header pages over an existing file,
	// discarding whatever configuration and key it was created with.
	FlagTruncate
)

// Handle is a single open, encrypting virtual file. It is not safe for
// concurrent use: callers must serialize operations on one Handle
// themselves. Distinct Handles share no mutable state and may be used
// concurrently.
type Handle struct {
	cfg     config.Configuration
	adapter cipher.Adapter
	lower   LowerDriver
	tr      addr.Translator

	// buf is the working buffer: exclusively owned scratch memory never
	// observed by callers.
	buf []byte

	ciphertextOffset uint64

	eoaUp, eoaDown uint64
	eofUp, eofDown uint64

	// ioErr latches the first lower-driver I/O failure seen by Read or
	// Write. Once set, the handle refuses further operations: a failed
	// flush or refill may have left the working buffer and the lower
	// driver's contents out of step, and retrying on top of that is
	// more likely to corrupt the file than to recover it.
	ioErr errors.Once

	closed bool
}

// Open validates cfg, copies its key, allocates the working buffer, sets
// the already-open lower driver's initial EOA, and establishes the header protocol: on FlagCreate or FlagTruncate, it
// writes fresh header pages before verifying them; otherwise it only
// verifies. On any failure, all partially acquired resources are
// released before the mapped error is returned.
func Open(lower LowerDriver, cfg config.Configuration, flags OpenFlag) (h *Handle, err error) {
	adapter, err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	cfg.Key = append([]byte(nil), cfg.Key...)
	tr := addr.New(cfg.PlaintextPageSize, cfg.CiphertextPageSize)
	h = &Handle{
		cfg:              cfg,
		adapter:          adapter,
		lower:            lower,
		tr:               tr,
		buf:              make([]byte, cfg.EncryptionBufferSize),
		ciphertextOffset: tr.Offset(),
		eoaUp:            0,
		eoaDown:          tr.Offset(),
		eofUp:            Undefined,
		eofDown:          Undefined,
	}

	allocated := h
	defer func() {
		if err != nil {
			allocated.release()
			h = nil
		}
	}()

	if err = lower.SetEOA(h.ciphertextOffset); err != nil {
		err = errors.E(errors.LowerDriverError, "setting initial EOA", err)
		return nil, err
	}

	if flags&(FlagCreate|FlagTruncate) != 0 {
		if err = h.writeHeaderPages(); err != nil {
			return nil, err
		}
	}
	if err = h.verifyHeaderPages(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Handle) writeHeaderPages() error {
	page0 := make([]byte, h.cfg.CiphertextPageSize)
	if err := header.WritePage0(page0, h.cfg); err != nil {
		return err
	}
	if err := h.lower.WriteAt(0, page0); err != nil {
		return errors.E(errors.LowerDriverError, "writing page 0", err)
	}

	page1 := make([]byte, h.cfg.CiphertextPageSize)
	if err := header.WritePage1(page1, h.adapter, h.cfg.Key, int(h.cfg.IVSize), h.cfg.PlaintextPageSize); err != nil {
		return err
	}
	if err := h.lower.WriteAt(h.cfg.CiphertextPageSize, page1); err != nil {
		return errors.E(errors.LowerDriverError, "writing page 1", err)
	}
	return nil
}

func (h *Handle) verifyHeaderPages() error {
	// Check the lower driver's reported EOF before attempting to read the
	// header pages: a file shorter than two ciphertext pages, or whose
	// length isn't a multiple of one, can never hold a valid header no
	// matter what its bytes say, so this is cheaper and fails earlier
	// than letting a short read surface the same defect downstream.
	if eof, err := h.lower.GetEOF(); err == nil && eof != Undefined {
		if eof < 2*h.cfg.CiphertextPageSize || eof%h.cfg.CiphertextPageSize != 0 {
			return errors.E(errors.CorruptFile, "file is too short to hold both header pages")
		}
	}

	page0 := make([]byte, h.cfg.CiphertextPageSize)
	if err := h.lower.ReadAt(0, page0); err != nil {
		return errors.E(errors.LowerDriverError, "reading page 0", err)
	}
	parsed, err := header.ParsePage0(page0)
	if err != nil {
		return err
	}
	if !parsed.Equal(h.cfg) {
		return errors.E(errors.ConfigMismatch, "stored configuration disagrees with the supplied one")
	}

	page1 := make([]byte, h.cfg.CiphertextPageSize)
	if err := h.lower.ReadAt(h.cfg.CiphertextPageSize, page1); err != nil {
		return errors.E(errors.LowerDriverError, "reading page 1", err)
	}
	return header.VerifyPage1(page1, h.adapter, h.cfg.Key, int(h.cfg.IVSize), h.cfg.PlaintextPageSize)
}

// release zeroes and drops the working buffer and key copy. It does not
// close the lower driver; callers that own a live lower driver at the
// point of failure are responsible for closing it themselves, matching
// Open's "release in reverse order of acquisition" policy.
func (h *Handle) release() {
	for i := range h.buf {
		h.buf[i] = 0
	}
	h.buf = nil
	for i := range h.cfg.Key {
		h.cfg.Key[i] = 0
	}
}

// Close closes the lower driver, releases the working buffer, and zeroes
// the key copy. A failure to close the lower driver is logged and
// returned, but the local resources are released regardless.
func (h *Handle) Close() error {
	if h.closed {
		return errors.E(errors.Invalid, "handle is already closed")
	}
	h.closed = true
	err := h.lower.Close()
	if err != nil {
		log.Error.Print("driver: closing lower driver: ", err)
	}
	h.release()
	if err != nil {
		return errors.E(errors.LowerDriverError, "closing lower driver", err)
	}
	return nil
}

func (h *Handle) checkOpen() error {
	if h.closed {
		return errors.E(errors.Invalid, "use of closed handle")
	}
	if err := h.ioErr.Err(); err != nil {
		return errors.E(errors.Invalid, "handle is latched after a prior I/O failure", err)
	}
	return nil
}
