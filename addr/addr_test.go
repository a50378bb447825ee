// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package addr_test

import (
	"testing"
	"testing/quick"

	"github.com/scigolib/vfdcrypt/addr"
	"github.com/scigolib/vfdcrypt/errors"
)

func defaultTranslator() addr.Translator {
	return addr.New(4096, 4112)
}

func TestPlaintextToCiphertextAddr(t *testing.T) {
	tr := defaultTranslator()
	if got, want := tr.PlaintextToCiphertextAddr(0), uint64(2*4112); got != want {
		t.Errorf("got %d, want %d", got, want)
	}
	if got, want := tr.PlaintextToCiphertextAddr(4096), uint64(4112+2*4112); got != want {
		t.Errorf("got %d, want %d", got, want)
	}
}

func TestPlaintextToCiphertextSize(t *testing.T) {
	tr := defaultTranslator()
	if got, want := tr.PlaintextToCiphertextSize(8192), uint64(2*4112); got != want {
		t.Errorf("got %d, want %d", got, want)
	}
}

func TestEOAUpToEOADown(t *testing.T) {
	tr := defaultTranslator()
	// 10000 is not page aligned: it spans 3 plaintext pages, plus the two header pages.
	if got, want := tr.EOAUpToEOADown(10000), uint64(20560); got != want {
		t.Errorf("got %d, want %d", got, want)
	}
	if got, want := tr.EOAUpToEOADown(0), uint64(2*4112); got != want {
		t.Errorf("got %d, want %d", got, want)
	}
}

func TestEOFDownToEOFUp(t *testing.T) {
	tr := defaultTranslator()
	if got, want := tr.EOFDownToEOFUp(2*4112), uint64(0); got != want {
		t.Errorf("got %d, want %d", got, want)
	}
	if got, want := tr.EOFDownToEOFUp(3*4112), uint64(4096); got != want {
		t.Errorf("got %d, want %d", got, want)
	}
}

func TestCheckAlign(t *testing.T) {
	tr := defaultTranslator()
	if err := tr.CheckAlign(0, 4096); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := tr.CheckAlign(1, 4096); !errors.Is(errors.MisalignedRequest, err) {
		t.Errorf("got %v, want MisalignedRequest", err)
	}
	if err := tr.CheckAlign(0, 100); !errors.Is(errors.MisalignedRequest, err) {
		t.Errorf("got %v, want MisalignedRequest", err)
	}
}

// TestRoundTripAddrSizeQuick checks that, for a random whole number of
// pages, PlaintextToCiphertextSize spans that many ciphertext pages and
// equals the distance PlaintextToCiphertextAddr advances over the same
// plaintext span.
func TestRoundTripAddrSizeQuick(t *testing.T) {
	tr := defaultTranslator()
	f := func(pages uint8) bool {
		n := uint64(pages) % 64
		size := n * 4096
		ctSize := tr.PlaintextToCiphertextSize(size)
		return ctSize == n*4112 &&
			tr.PlaintextToCiphertextAddr(size)-tr.PlaintextToCiphertextAddr(0) == ctSize
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}
