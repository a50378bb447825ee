// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package memdriver_test

import (
	"bytes"
	"testing"

	"github.com/grailbio/testutil/assert"

	"github.com/scigolib/vfdcrypt/driver"
	"github.com/scigolib/vfdcrypt/driver/memdriver"
)

func TestReadWriteRoundTrip(t *testing.T) {
	d := memdriver.New()
	assert.NoError(t, d.WriteAt(0, []byte("hello")))
	got := make([]byte, 5)
	assert.NoError(t, d.ReadAt(0, got))
	if !bytes.Equal(got, []byte("hello")) {
		t.Fatalf("got %q, want %q", got, "hello")
	}
}

func TestGetEOFUndefinedWhenEmpty(t *testing.T) {
	d := memdriver.New()
	eof, err := d.GetEOF()
	assert.NoError(t, err)
	if eof != driver.Undefined {
		t.Fatalf("got %d, want Undefined", eof)
	}
}

func TestLockIsExclusive(t *testing.T) {
	d := memdriver.New()
	assert.NoError(t, d.Lock(true))
	assert.NotNil(t, d.Lock(true))
	assert.NoError(t, d.Unlock())
	assert.NoError(t, d.Lock(true))
}

func TestReadPastEndFails(t *testing.T) {
	d := memdriver.New()
	assert.NoError(t, d.WriteAt(0, []byte("ab")))
	err := d.ReadAt(0, make([]byte, 10))
	assert.NotNil(t, err)
}

func TestCtlCompare(t *testing.T) {
	d1 := memdriver.New()
	d2 := memdriver.New()
	n, err := d1.Ctl(driver.CtlCompare, d1)
	assert.NoError(t, err)
	if n != 0 {
		t.Fatalf("comparing a driver to itself should be 0, got %v", n)
	}
	assert.NoError(t, d2.WriteAt(0, []byte("x")))
	_, err = d1.Ctl(driver.CtlCompare, d2)
	assert.NoError(t, err)
}
