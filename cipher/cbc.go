// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cipher

import (
	stdcipher "crypto/cipher"

	"github.com/scigolib/vfdcrypt/errors"
)

// cbcEncryptPage is shared by every CBC-mode Adapter: generate a fresh IV,
// write it to dst[:ivSize], then CBC-encrypt plaintext into
// dst[ivSize:ivSize+len(plaintext)]. Any remaining bytes of dst are
// zeroed, matching the on-disk layout's zero-padding to
// ciphertextPageSize.
func cbcEncryptPage(dst, plaintext []byte, block stdcipher.Block, ivSize int) error {
	if len(plaintext)%block.BlockSize() != 0 {
		return errors.E(errors.CipherError, "plaintext page size is not a multiple of the block size")
	}
	if len(dst) < ivSize+len(plaintext) {
		return errors.E(errors.CipherError, "destination page too small")
	}
	iv := dst[:ivSize]
	if err := generateIV(iv); err != nil {
		return err
	}
	body := dst[ivSize : ivSize+len(plaintext)]
	stdcipher.NewCBCEncrypter(block, iv).CryptBlocks(body, plaintext)
	for i := ivSize + len(plaintext); i < len(dst); i++ {
		dst[i] = 0
	}
	return nil
}

// cbcDecryptPage is the inverse of cbcEncryptPage: read the IV from
// ciphertextPage[:ivSize], then CBC-decrypt the next len(dst) bytes into
// dst.
func cbcDecryptPage(dst, ciphertextPage []byte, block stdcipher.Block, ivSize int) error {
	if len(dst)%block.BlockSize() != 0 {
		return errors.E(errors.CipherError, "plaintext page size is not a multiple of the block size")
	}
	if len(ciphertextPage) < ivSize+len(dst) {
		return errors.E(errors.CipherError, "source page too small")
	}
	iv := ciphertextPage[:ivSize]
	body := ciphertextPage[ivSize : ivSize+len(dst)]
	stdcipher.NewCBCDecrypter(block, iv).CryptBlocks(dst, body)
	return nil
}
