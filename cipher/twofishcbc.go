// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cipher

import (
	"golang.org/x/crypto/twofish"

	"github.com/scigolib/vfdcrypt/errors"
)

// twofishCBC implements Adapter for Twofish in CBC mode. Twofish's block
// size is fixed at 16 bytes regardless of key length (128/192/256 bits are
// all accepted by golang.org/x/crypto/twofish).
type twofishCBC struct{}

func (twofishCBC) ID() ID         { return TWOFISH }
func (twofishCBC) Mode() Mode     { return CBC }
func (twofishCBC) BlockSize() int { return twofish.BlockSize }

func (t twofishCBC) EncryptPage(dst, plaintext, key []byte, ivSize int) error {
	block, err := twofish.NewCipher(key)
	if err != nil {
		return errors.E(errors.CipherError, "twofishcbc: new cipher", err)
	}
	return cbcEncryptPage(dst, plaintext, block, ivSize)
}

func (t twofishCBC) DecryptPage(dst, ciphertextPage, key []byte, ivSize int) error {
	block, err := twofish.NewCipher(key)
	if err != nil {
		return errors.E(errors.CipherError, "twofishcbc: new cipher", err)
	}
	return cbcDecryptPage(dst, ciphertextPage, block, ivSize)
}
