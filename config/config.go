// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package config defines the driver's Configuration record and its
// validation rules: a sequence of explicit field checks, each returning
// an annotated error on the first violation, rather than a reflection- or
// tag-driven validation framework.
package config

import (
	"fmt"

	"github.com/scigolib/vfdcrypt/cipher"
	"github.com/scigolib/vfdcrypt/errors"
)

// MaxKeySize is the largest key, in bytes, the driver will accept.
const MaxKeySize = 1024

// Magic is the constant stored in, and checked against, every header page
// produced by this driver.
const Magic = "VFDCRYPT"

// Version is the on-disk format version written by this implementation.
const Version = 1

// Configuration is the immutable-after-open record carried by every
// driver handle. Two Configuration values compare as equal for
// header-protocol purposes using Equal, which driver.Open uses to
// compare the parsed page 0 against the supplied Configuration field by
// field.
type Configuration struct {
	Magic                string
	Version              uint32
	PlaintextPageSize    uint64
	CiphertextPageSize   uint64
	EncryptionBufferSize uint64
	CipherID             cipher.ID
	CipherBlockSize      uint64
	KeySize              uint64
	Key                  []byte
	IVSize               uint64
	ModeID               cipher.Mode
}

// Default returns the recommended starting configuration: magic and
// version set to this package's Magic/Version constants,
// plaintext_page_size=4096, ciphertext_page_size=4112,
// encryption_buffer_size=65792 (16 ciphertext pages), cipher_block_size=16,
// key_size=32, iv_size=16, cipher=AES256, mode=CBC. The returned
// Configuration's Key is nil; callers must set one before Open.
func Default() Configuration {
	return Configuration{
		Magic:                Magic,
		Version:              Version,
		PlaintextPageSize:    4096,
		CiphertextPageSize:   4112,
		EncryptionBufferSize: 65792,
		CipherID:             cipher.AES256,
		CipherBlockSize:      16,
		KeySize:              32,
		IVSize:               16,
		ModeID:               cipher.CBC,
	}
}

// Validate checks magic, version, and the configuration's internal
// consistency invariants, and returns InvalidConfiguration on the first
// violation. It also looks up the (CipherID, ModeID) pair in the cipher
// registry, returning the resolved Adapter so callers don't need to
// repeat the lookup.
func (c Configuration) Validate() (cipher.Adapter, error) {
	if c.Magic != Magic {
		return nil, errors.E(errors.InvalidConfiguration,
			fmt.Sprintf("magic %q does not match expected %q", c.Magic, Magic))
	}
	if c.Version != Version {
		return nil, errors.E(errors.InvalidConfiguration,
			fmt.Sprintf("version %d does not match expected %d", c.Version, Version))
	}
	if c.PlaintextPageSize == 0 {
		return nil, errors.E(errors.InvalidConfiguration, "plaintext_page_size must be positive")
	}
	if c.CiphertextPageSize < c.PlaintextPageSize+c.IVSize {
		return nil, errors.E(errors.InvalidConfiguration,
			fmt.Sprintf("ciphertext_page_size (%d) must be >= plaintext_page_size+iv_size (%d)",
				c.CiphertextPageSize, c.PlaintextPageSize+c.IVSize))
	}
	if c.CipherBlockSize == 0 || c.CiphertextPageSize%c.CipherBlockSize != 0 {
		return nil, errors.E(errors.InvalidConfiguration,
			fmt.Sprintf("ciphertext_page_size (%d) must be a multiple of cipher_block_size (%d)",
				c.CiphertextPageSize, c.CipherBlockSize))
	}
	if c.EncryptionBufferSize == 0 || c.EncryptionBufferSize%c.CiphertextPageSize != 0 {
		return nil, errors.E(errors.InvalidConfiguration,
			fmt.Sprintf("encryption_buffer_size (%d) must be a positive multiple of ciphertext_page_size (%d)",
				c.EncryptionBufferSize, c.CiphertextPageSize))
	}
	if c.NumCiphertextBufferPages() < 1 {
		return nil, errors.E(errors.InvalidConfiguration, "encryption buffer must hold at least one ciphertext page")
	}
	if c.KeySize > MaxKeySize {
		return nil, errors.E(errors.InvalidConfiguration,
			fmt.Sprintf("key_size (%d) exceeds MAX_KEY_SIZE (%d)", c.KeySize, MaxKeySize))
	}
	if uint64(len(c.Key)) != c.KeySize {
		return nil, errors.E(errors.InvalidConfiguration,
			fmt.Sprintf("key length (%d) does not match key_size (%d)", len(c.Key), c.KeySize))
	}

	adapter, err := cipher.Lookup(c.CipherID, c.ModeID)
	if err != nil {
		return nil, err
	}
	if c.CipherBlockSize != uint64(adapter.BlockSize()) {
		return nil, errors.E(errors.InvalidConfiguration,
			fmt.Sprintf("cipher_block_size (%d) does not match %v's block size (%d)",
				c.CipherBlockSize, c.CipherID, adapter.BlockSize()))
	}
	if c.IVSize != uint64(adapter.BlockSize()) {
		return nil, errors.E(errors.InvalidConfiguration,
			fmt.Sprintf("iv_size (%d) must equal the CBC block size (%d)", c.IVSize, adapter.BlockSize()))
	}
	return adapter, nil
}

// NumCiphertextBufferPages is encryption_buffer_size / ciphertext_page_size.
func (c Configuration) NumCiphertextBufferPages() uint64 {
	if c.CiphertextPageSize == 0 {
		return 0
	}
	return c.EncryptionBufferSize / c.CiphertextPageSize
}

// Equal reports whether c and other agree on every field the header
// protocol persists in page 0: magic, version, plaintext_page_size,
// ciphertext_page_size, encryption_buffer_size, cipher, cipher_block_size,
// key_size, iv_size, mode. Key contents are intentionally excluded: key
// correctness is verified separately, by decrypting page 1.
func (c Configuration) Equal(other Configuration) bool {
	return c.Magic == other.Magic &&
		c.Version == other.Version &&
		c.PlaintextPageSize == other.PlaintextPageSize &&
		c.CiphertextPageSize == other.CiphertextPageSize &&
		c.EncryptionBufferSize == other.EncryptionBufferSize &&
		c.CipherID == other.CipherID &&
		c.CipherBlockSize == other.CipherBlockSize &&
		c.KeySize == other.KeySize &&
		c.IVSize == other.IVSize &&
		c.ModeID == other.ModeID
}
