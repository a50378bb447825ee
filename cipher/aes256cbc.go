// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cipher

import (
	stdcipher "crypto/aes"
	"fmt"

	"github.com/scigolib/vfdcrypt/errors"
)

// aes256CBC implements Adapter for AES-256 in CBC mode. Keys must be
// exactly 32 bytes (AES-256); the block size is always 16 bytes.
type aes256CBC struct{}

func (aes256CBC) ID() ID         { return AES256 }
func (aes256CBC) Mode() Mode     { return CBC }
func (aes256CBC) BlockSize() int { return stdcipher.BlockSize }

func (a aes256CBC) EncryptPage(dst, plaintext, key []byte, ivSize int) error {
	if len(key) != 32 {
		return errors.E(errors.CipherError, fmt.Sprintf("aes256cbc: key is %d bytes, want 32", len(key)))
	}
	block, err := stdcipher.NewCipher(key)
	if err != nil {
		return errors.E(errors.CipherError, "aes256cbc: new cipher", err)
	}
	return cbcEncryptPage(dst, plaintext, block, ivSize)
}

func (a aes256CBC) DecryptPage(dst, ciphertextPage, key []byte, ivSize int) error {
	if len(key) != 32 {
		return errors.E(errors.CipherError, fmt.Sprintf("aes256cbc: key is %d bytes, want 32", len(key)))
	}
	block, err := stdcipher.NewCipher(key)
	if err != nil {
		return errors.E(errors.CipherError, "aes256cbc: new cipher", err)
	}
	return cbcDecryptPage(dst, ciphertextPage, block, ivSize)
}

func init() {
	// Guard against accidental BlockSize() misuse below compile time:
	// AES's block size must equal the IV size the driver expects for CBC.
	if stdcipher.BlockSize != 16 {
		panic(fmt.Sprintf("unexpected AES block size %d", stdcipher.BlockSize))
	}
}
