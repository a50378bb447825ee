// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cipher_test

import (
	"bytes"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/grailbio/testutil/assert"

	"github.com/scigolib/vfdcrypt/cipher"
	"github.com/scigolib/vfdcrypt/errors"
)

const (
	plaintextPageSize  = 4096
	ciphertextPageSize = 4112
	ivSize             = 16
)

func key32() []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

func TestAES256RoundTrip(t *testing.T) {
	a, err := cipher.Lookup(cipher.AES256, cipher.CBC)
	assert.NoError(t, err)
	key := key32()
	plaintext := bytes.Repeat([]byte("A"), plaintextPageSize)
	dst := make([]byte, ciphertextPageSize)
	assert.NoError(t, a.EncryptPage(dst, plaintext, key, ivSize))

	got := make([]byte, plaintextPageSize)
	assert.NoError(t, a.DecryptPage(got, dst, key, ivSize))
	if !bytes.Equal(got, plaintext) {
		t.Errorf("round trip mismatch")
	}
}

func TestTwofishRoundTrip(t *testing.T) {
	a, err := cipher.Lookup(cipher.TWOFISH, cipher.CBC)
	assert.NoError(t, err)
	key := key32()
	plaintext := bytes.Repeat([]byte("B"), plaintextPageSize)
	dst := make([]byte, ciphertextPageSize)
	assert.NoError(t, a.EncryptPage(dst, plaintext, key, ivSize))

	got := make([]byte, plaintextPageSize)
	assert.NoError(t, a.DecryptPage(got, dst, key, ivSize))
	if !bytes.Equal(got, plaintext) {
		t.Errorf("round trip mismatch")
	}
}

func TestIVUniqueness(t *testing.T) {
	a, err := cipher.Lookup(cipher.AES256, cipher.CBC)
	assert.NoError(t, err)
	key := key32()
	plaintext := bytes.Repeat([]byte("C"), plaintextPageSize)

	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		dst := make([]byte, ciphertextPageSize)
		assert.NoError(t, a.EncryptPage(dst, plaintext, key, ivSize))
		iv := string(dst[:ivSize])
		if seen[iv] {
			t.Fatalf("duplicate IV across successive writes of the same page")
		}
		seen[iv] = true
	}
}

func TestUnknownPairingIsInvalidConfiguration(t *testing.T) {
	_, err := cipher.Lookup(cipher.ID(99), cipher.CBC)
	assert.NotNil(t, err)
	if !errors.Is(errors.InvalidConfiguration, err) {
		t.Errorf("got %v, want InvalidConfiguration", err)
	}
}

func TestRegisterPanicsOnDuplicate(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("Register did not panic on a duplicate (id, mode) pair")
		}
	}()
	cipher.Register(cipher.AES256, cipher.CBC, nil)
}

// TestFuzzPlaintextRoundTrip exercises the AES adapter with randomized
// plaintext page contents, standing in for the pack's absent
// property-testing library (see SPEC_FULL.md's test tooling section).
type fuzzPage [plaintextPageSize]byte

func TestFuzzPlaintextRoundTrip(t *testing.T) {
	a, err := cipher.Lookup(cipher.AES256, cipher.CBC)
	assert.NoError(t, err)
	key := key32()
	f := fuzz.New()
	for i := 0; i < 20; i++ {
		var page fuzzPage
		f.Fuzz(&page)
		plaintext := page[:]
		dst := make([]byte, ciphertextPageSize)
		assert.NoError(t, a.EncryptPage(dst, plaintext, key, ivSize))
		got := make([]byte, plaintextPageSize)
		assert.NoError(t, a.DecryptPage(got, dst, key, ivSize))
		if !bytes.Equal(got, plaintext) {
			t.Fatalf("fuzz round trip mismatch at iteration %d", i)
		}
	}
}
