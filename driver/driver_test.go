// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package driver_test

import (
	"bytes"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"

	"github.com/scigolib/vfdcrypt/cipher"
	"github.com/scigolib/vfdcrypt/config"
	"github.com/scigolib/vfdcrypt/driver"
	"github.com/scigolib/vfdcrypt/driver/memdriver"
	"github.com/scigolib/vfdcrypt/errors"
)

func testKey(n uint64) []byte {
	k := make([]byte, n)
	for i := range k {
		k[i] = byte(i)
	}
	return k
}

func openFresh(t *testing.T, cfg config.Configuration) (*driver.Handle, *memdriver.Driver) {
	t.Helper()
	lower := memdriver.New()
	h, err := driver.Open(lower, cfg, driver.FlagCreate)
	assert.NoError(t, err)
	return h, lower
}

func TestRoundTripSinglePage(t *testing.T) {
	cfg := config.Default()
	cfg.Key = testKey(cfg.KeySize)
	h, _ := openFresh(t, cfg)
	defer h.Close()

	payload := bytes.Repeat([]byte("A"), int(cfg.PlaintextPageSize))
	assert.NoError(t, h.Write(0, cfg.PlaintextPageSize, payload))

	got := make([]byte, cfg.PlaintextPageSize)
	assert.NoError(t, h.Read(0, cfg.PlaintextPageSize, got))
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch")
	}
}

func TestRoundTripAfterReopen(t *testing.T) {
	cfg := config.Default()
	cfg.Key = testKey(cfg.KeySize)
	lower := memdriver.New()

	h, err := driver.Open(lower, cfg, driver.FlagCreate)
	assert.NoError(t, err)
	payload := bytes.Repeat([]byte("Z"), int(cfg.PlaintextPageSize))
	assert.NoError(t, h.Write(0, cfg.PlaintextPageSize, payload))
	assert.NoError(t, h.Close())

	h2, err := driver.Open(lower, cfg, 0)
	assert.NoError(t, err)
	defer h2.Close()
	got := make([]byte, cfg.PlaintextPageSize)
	assert.NoError(t, h2.Read(0, cfg.PlaintextPageSize, got))
	if !bytes.Equal(got, payload) {
		t.Fatalf("round trip across reopen mismatch")
	}
}

// TestTwoPageWriteAcrossBufferBoundary checks that a one-ciphertext-page
// working buffer forces two distinct flushes, at the literal offsets a
// correct address translation produces.
func TestTwoPageWriteAcrossBufferBoundary(t *testing.T) {
	cfg := config.Default()
	cfg.Key = testKey(cfg.KeySize)
	cfg.EncryptionBufferSize = cfg.CiphertextPageSize
	h, lower := openFresh(t, cfg)
	defer h.Close()

	pageX := bytes.Repeat([]byte("X"), int(cfg.PlaintextPageSize))
	pageY := bytes.Repeat([]byte("Y"), int(cfg.PlaintextPageSize))
	payload := append(append([]byte{}, pageX...), pageY...)
	assert.NoError(t, h.Write(0, 2*cfg.PlaintextPageSize, payload))

	wantLen := int(4 * cfg.CiphertextPageSize) // 2 header pages + 2 user pages
	if lower.Len() != wantLen {
		t.Fatalf("got lower driver size %d, want %d", lower.Len(), wantLen)
	}

	got := make([]byte, 2*cfg.PlaintextPageSize)
	assert.NoError(t, h.Read(0, 2*cfg.PlaintextPageSize, got))
	if !bytes.Equal(got, payload) {
		t.Fatalf("interleaved read-back mismatch")
	}
}

func TestWrongKeyFailsVerification(t *testing.T) {
	cfg := config.Default()
	cfg.Key = testKey(cfg.KeySize)
	lower := memdriver.New()

	h, err := driver.Open(lower, cfg, driver.FlagCreate)
	assert.NoError(t, err)
	assert.NoError(t, h.Close())

	wrongCfg := cfg
	wrongKey := append([]byte{}, cfg.Key...)
	wrongKey[0] ^= 0xff
	wrongCfg.Key = wrongKey

	h2, err := driver.Open(lower, wrongCfg, 0)
	if h2 != nil {
		t.Fatalf("expected nil handle on verification failure")
	}
	if !errors.Is(errors.KeyVerificationFailed, err) {
		t.Fatalf("got %v, want KeyVerificationFailed", err)
	}
}

func TestConfigMismatchRejected(t *testing.T) {
	cfg := config.Default()
	cfg.Key = testKey(cfg.KeySize)
	lower := memdriver.New()

	h, err := driver.Open(lower, cfg, driver.FlagCreate)
	assert.NoError(t, err)
	assert.NoError(t, h.Close())

	// Twofish has the same 16-byte block size as AES-256, so this remains
	// independently valid while disagreeing with what was stored in page 0.
	changed := cfg
	changed.CipherID = cipher.TWOFISH
	_, err = driver.Open(lower, changed, 0)
	if !errors.Is(errors.ConfigMismatch, err) {
		t.Fatalf("got %v, want ConfigMismatch", err)
	}
}

func TestTruncatedFileYieldsCorruptFile(t *testing.T) {
	cfg := config.Default()
	cfg.Key = testKey(cfg.KeySize)
	lower := memdriver.New()

	h, err := driver.Open(lower, cfg, driver.FlagCreate)
	assert.NoError(t, err)
	assert.NoError(t, h.Close())

	assert.NoError(t, lower.Truncate(cfg.CiphertextPageSize-1))

	h2, err := driver.Open(lower, cfg, 0)
	if h2 != nil {
		t.Fatalf("expected nil handle for a file too short to hold both header pages")
	}
	if !errors.Is(errors.CorruptFile, err) {
		t.Fatalf("got %v, want CorruptFile", err)
	}
}

// TestEOABookkeeping checks that setting an unaligned plaintext EOA
// translates to the expected ciphertext EOA on the lower driver.
func TestEOABookkeeping(t *testing.T) {
	cfg := config.Default()
	cfg.Key = testKey(cfg.KeySize)
	h, lower := openFresh(t, cfg)
	defer h.Close()

	got, err := h.GetEOA()
	assert.NoError(t, err)
	if got != 0 {
		t.Fatalf("got initial EOA %d, want 0", got)
	}

	assert.NoError(t, h.SetEOA(10000))
	got, err = h.GetEOA()
	assert.NoError(t, err)
	if got != 10000 {
		t.Fatalf("got EOA %d, want 10000", got)
	}

	lowerEOA, err := lower.GetEOA()
	assert.NoError(t, err)
	if lowerEOA != 20560 {
		t.Fatalf("got lower EOA %d, want 20560", lowerEOA)
	}
}

// TestMisalignmentRejected checks that misaligned requests never reach
// the lower driver.
func TestMisalignmentRejected(t *testing.T) {
	cfg := config.Default()
	cfg.Key = testKey(cfg.KeySize)
	h, lower := openFresh(t, cfg)
	defer h.Close()
	before := lower.Len()

	buf := make([]byte, cfg.PlaintextPageSize)
	err := h.Read(1, cfg.PlaintextPageSize, buf)
	expect.HasSubstr(t, err, "page aligned")

	err = h.Write(0, 100, buf[:100])
	expect.HasSubstr(t, err, "page aligned")

	if lower.Len() != before {
		t.Fatalf("lower driver was touched by a rejected request")
	}
}

func TestZeroSizeIsNoOp(t *testing.T) {
	cfg := config.Default()
	cfg.Key = testKey(cfg.KeySize)
	h, lower := openFresh(t, cfg)
	defer h.Close()
	before := lower.Len()

	assert.NoError(t, h.Read(0, 0, nil))
	assert.NoError(t, h.Write(0, 0, nil))
	if lower.Len() != before {
		t.Fatalf("zero-size request touched the lower driver")
	}
}

func TestReadWriteSpanningMultipleBufferFills(t *testing.T) {
	cfg := config.Default()
	cfg.Key = testKey(cfg.KeySize)
	cfg.EncryptionBufferSize = 4 * cfg.CiphertextPageSize
	h, _ := openFresh(t, cfg)
	defer h.Close()

	const pages = 10
	payload := make([]byte, pages*int(cfg.PlaintextPageSize))
	for i := range payload {
		payload[i] = byte(i % 251)
	}
	assert.NoError(t, h.Write(0, uint64(len(payload)), payload))

	got := make([]byte, len(payload))
	assert.NoError(t, h.Read(0, uint64(len(payload)), got))
	if !bytes.Equal(got, payload) {
		t.Fatalf("multi-fill round trip mismatch")
	}
}

// failingWriteDriver wraps a memdriver.Driver and fails every WriteAt,
// simulating a lower driver that starts rejecting writes mid-session.
type failingWriteDriver struct {
	*memdriver.Driver
}

func (f failingWriteDriver) WriteAt(off uint64, p []byte) error {
	return errors.E(errors.LowerDriverError, "simulated write failure")
}

func TestHandleLatchesAfterIOFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Key = testKey(cfg.KeySize)
	lower := memdriver.New()
	h, err := driver.Open(lower, cfg, driver.FlagCreate)
	assert.NoError(t, err)
	defer h.Close()

	payload := make([]byte, cfg.PlaintextPageSize)
	assert.NoError(t, h.Write(0, uint64(len(payload)), payload))

	// Swap in a lower driver that fails all writes by reopening over the
	// same backing store through the failing wrapper, then confirm a
	// failed Write latches the handle against further use.
	h2, err := driver.Open(failingWriteDriver{lower}, cfg, 0)
	assert.NoError(t, err)
	defer h2.Close()

	assert.NotNil(t, h2.Write(0, uint64(len(payload)), payload))
	assert.NotNil(t, h2.Write(0, uint64(len(payload)), payload))
	_, err = h2.GetEOA()
	assert.NotNil(t, err)
}

func TestOperationsAfterCloseFail(t *testing.T) {
	cfg := config.Default()
	cfg.Key = testKey(cfg.KeySize)
	h, _ := openFresh(t, cfg)

	assert.NoError(t, h.Close())
	assert.NotNil(t, h.SetEOA(4096))
	_, err := h.GetEOA()
	assert.NotNil(t, err)
	assert.NotNil(t, h.Close())
}
