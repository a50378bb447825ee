// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package header implements the two fixed pages at the start of every
// file produced by this driver. Page 0 is a cleartext text encoding of
// the Configuration, in the spirit of the key/value header blocks of
// recordio/header.go, but using a fixed line-oriented text format rather
// than recordio's binary varint encoding, since page 0 is deliberately
// meant to be human-readable without the key. Page 1 is an encrypted
// fixed test phrase, the sole mechanism by which an incorrect key is
// detected.
package header

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"

	"github.com/scigolib/vfdcrypt/cipher"
	"github.com/scigolib/vfdcrypt/config"
	"github.com/scigolib/vfdcrypt/errors"
)

// TestPhrase is the literal plaintext verified on every open. Its
// appearance, byte for byte, after decrypting page 1 is the only evidence
// the driver has that the supplied key is correct.
const TestPhrase = "Decryption works"

// fieldOrder is the exact, ordered set of page-0 fields following the
// leading "magic" and "version" lines. Parsing accepts exactly these
// eight fields, in this order, after magic and version; anything else is
// CorruptHeader.
var fieldOrder = []string{
	"plaintext_page_size",
	"ciphertext_page_size",
	"encryption_buffer_size",
	"cipher",
	"cipher_block_size",
	"key_size",
	"iv_size",
	"mode",
}

func fieldValue(c config.Configuration, name string) uint64 {
	switch name {
	case "plaintext_page_size":
		return c.PlaintextPageSize
	case "ciphertext_page_size":
		return c.CiphertextPageSize
	case "encryption_buffer_size":
		return c.EncryptionBufferSize
	case "cipher":
		return uint64(c.CipherID)
	case "cipher_block_size":
		return c.CipherBlockSize
	case "key_size":
		return c.KeySize
	case "iv_size":
		return c.IVSize
	case "mode":
		return uint64(c.ModeID)
	default:
		panic("header: unknown field " + name)
	}
}

func setField(c *config.Configuration, name string, v uint64) {
	switch name {
	case "plaintext_page_size":
		c.PlaintextPageSize = v
	case "ciphertext_page_size":
		c.CiphertextPageSize = v
	case "encryption_buffer_size":
		c.EncryptionBufferSize = v
	case "cipher":
		c.CipherID = cipher.ID(v)
	case "cipher_block_size":
		c.CipherBlockSize = v
	case "key_size":
		c.KeySize = v
	case "iv_size":
		c.IVSize = v
	case "mode":
		c.ModeID = cipher.Mode(v)
	default:
		panic("header: unknown field " + name)
	}
}

// WritePage0 renders the cleartext configuration record into dst,
// zero-padding the remainder of dst. dst's length is the actual
// destination page size the caller intends to write to the lower driver;
// WritePage0 bounds its output by len(dst) rather than by any
// configuration-derived size, since the two need not agree (see
// DESIGN.md for the rationale).
func WritePage0(dst []byte, c config.Configuration) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "magic: %s\n", c.Magic)
	fmt.Fprintf(&buf, "version: %d\n", c.Version)
	for _, name := range fieldOrder {
		fmt.Fprintf(&buf, "%s: %d\n", name, fieldValue(c, name))
	}
	if buf.Len() > len(dst) {
		return errors.E(errors.InvalidConfiguration, "configuration record does not fit in header page")
	}
	n := copy(dst, buf.Bytes())
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	return nil
}

// ParsePage0 parses a raw page 0 into a Configuration. The Key field is
// left nil: page 0 never stores key material, and is deliberately
// unencrypted so a reader can recognize a file produced by this driver
// without possessing the key. Parsing requires "magic" and "version"
// followed by exactly the eight fields of fieldOrder, in order; any
// deviation is CorruptHeader. Magic/version values that parse cleanly but
// disagree with what this build expects are left for the caller's
// Configuration.Validate or Equal check to reject, rather than rejected
// here.
func ParsePage0(src []byte) (config.Configuration, error) {
	var c config.Configuration
	scanner := bufio.NewScanner(bytes.NewReader(src))

	magic, err := scanField(scanner, "magic")
	if err != nil {
		return config.Configuration{}, err
	}
	c.Magic = magic

	version, err := scanField(scanner, "version")
	if err != nil {
		return config.Configuration{}, err
	}
	v, err := strconv.ParseUint(version, 10, 32)
	if err != nil {
		return config.Configuration{}, errors.E(errors.CorruptHeader,
			fmt.Sprintf("field %q: %v", "version", err), err)
	}
	c.Version = uint32(v)

	for _, want := range fieldOrder {
		value, err := scanField(scanner, want)
		if err != nil {
			return config.Configuration{}, err
		}
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return config.Configuration{}, errors.E(errors.CorruptHeader,
				fmt.Sprintf("field %q: %v", want, err), err)
		}
		setField(&c, want, v)
	}
	return c, nil
}

// scanField reads the next line of page 0 and requires it to be the
// named field, returning its raw string value.
func scanField(scanner *bufio.Scanner, name string) (string, error) {
	if !scanner.Scan() {
		return "", errors.E(errors.CorruptHeader, fmt.Sprintf("page 0 ended before field %q", name))
	}
	line := scanner.Text()
	key, value, ok := splitField(line)
	if !ok || key != name {
		return "", errors.E(errors.CorruptHeader, fmt.Sprintf("expected field %q, got line %q", name, line))
	}
	return value, nil
}

func splitField(line string) (key, value string, ok bool) {
	idx := bytes.IndexByte([]byte(line), ':')
	if idx < 0 {
		return "", "", false
	}
	key = line[:idx]
	value = line[idx+1:]
	for len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}
	return key, value, true
}

// WritePage1 encrypts TestPhrase, zero-padded to plaintextPageSize, into
// dst using a freshly generated IV, exactly as any other user page would
// be encrypted.
func WritePage1(dst []byte, adapter cipher.Adapter, key []byte, ivSize int, plaintextPageSize uint64) error {
	plain := make([]byte, plaintextPageSize)
	n := copy(plain, TestPhrase)
	for i := n; i < len(plain); i++ {
		plain[i] = 0
	}
	if err := adapter.EncryptPage(dst, plain, key, ivSize); err != nil {
		return err
	}
	return nil
}

// VerifyPage1 decrypts a raw page 1 and compares its first len(TestPhrase)
// bytes against TestPhrase. This is the sole mechanism for detecting a
// wrong key, cipher, or mode.
func VerifyPage1(src []byte, adapter cipher.Adapter, key []byte, ivSize int, plaintextPageSize uint64) error {
	plain := make([]byte, plaintextPageSize)
	if err := adapter.DecryptPage(plain, src, key, ivSize); err != nil {
		return errors.E(errors.KeyVerificationFailed, "decrypting page 1", err)
	}
	if !bytes.Equal(plain[:len(TestPhrase)], []byte(TestPhrase)) {
		return errors.E(errors.KeyVerificationFailed, "test phrase mismatch")
	}
	return nil
}
