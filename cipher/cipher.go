// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package cipher is the Cipher Adapter: a uniform, per-page interface over
// the concrete symmetric-cipher libraries the driver supports. It
// generalizes the key-registry idiom of
// github.com/grailbio/base/crypto/encryption to the driver's own page
// layout: every encrypted page is a self-contained, freshly-IVed CBC unit,
// with no HMAC — the driver core stores no MAC and leaves integrity
// checking to its callers.
package cipher

import (
	"crypto/rand"
	"fmt"
	"io"

	"github.com/scigolib/vfdcrypt/errors"
)

// ID identifies a symmetric cipher algorithm.
type ID uint32

const (
	// AES256 selects AES-256.
	AES256 ID = 0
	// TWOFISH selects Twofish.
	TWOFISH ID = 1
)

func (id ID) String() string {
	switch id {
	case AES256:
		return "AES256"
	case TWOFISH:
		return "TWOFISH"
	default:
		return fmt.Sprintf("ID(%d)", uint32(id))
	}
}

// Mode identifies a block cipher chaining mode.
type Mode uint32

// CBC is the only chaining mode the driver supports. Each page is
// encrypted as an independent IV+CBC unit; CBC state never carries over
// from one page to the next, which is what makes random-access decryption
// possible.
const CBC Mode = 0

func (m Mode) String() string {
	switch m {
	case CBC:
		return "CBC"
	default:
		return fmt.Sprintf("Mode(%d)", uint32(m))
	}
}

// Adapter encrypts and decrypts single fixed-size pages. Implementations
// are stateless between calls: there is no per-page carry-over, so a
// single Adapter value may be shared across concurrent pages belonging to
// distinct handles (though a given Handle only ever drives one Adapter
// call at a time).
type Adapter interface {
	// ID reports the cipher this adapter implements.
	ID() ID
	// Mode reports the chaining mode this adapter implements.
	Mode() Mode
	// BlockSize is the underlying block cipher's block size, in bytes.
	BlockSize() int

	// EncryptPage encrypts plaintext (exactly plaintextPageSize bytes)
	// into dst (exactly ciphertextPageSize bytes), using a freshly
	// generated random IV of ivSize bytes written to dst[:ivSize]. Any
	// bytes of dst beyond ivSize+len(plaintext) are zeroed. key must be
	// a valid key for this cipher, or CipherError is returned.
	EncryptPage(dst, plaintext, key []byte, ivSize int) error

	// DecryptPage decrypts a ciphertext page (exactly ciphertextPageSize
	// bytes, IV-prefixed) into dst (exactly plaintextPageSize bytes).
	DecryptPage(dst, ciphertextPage, key []byte, ivSize int) error
}

// randSource is the source of IV randomness; replaced in tests.
var randSource io.Reader = rand.Reader

// SetRandSource overrides the randomness source used to generate IVs. It is
// intended only for tests, and must not be called concurrently with any
// EncryptPage call.
func SetRandSource(r io.Reader) {
	randSource = r
}

func generateIV(dst []byte) error {
	n, err := io.ReadFull(randSource, dst)
	if err != nil {
		return errors.E(errors.CipherError, "generating IV", err)
	}
	if n != len(dst) {
		return errors.E(errors.CipherError, fmt.Sprintf("short IV: %d < %d", n, len(dst)))
	}
	return nil
}
