// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package osdriver_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil/assert"

	"github.com/scigolib/vfdcrypt/driver"
	"github.com/scigolib/vfdcrypt/driver/osdriver"
)

func TestReadWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	d, err := osdriver.Open(path, true)
	assert.NoError(t, err)
	defer d.Close()

	assert.NoError(t, d.WriteAt(0, []byte("hello world")))
	got := make([]byte, 11)
	assert.NoError(t, d.ReadAt(0, got))
	if !bytes.Equal(got, []byte("hello world")) {
		t.Fatalf("got %q", got)
	}
}

func TestGetEOFReflectsFileSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	d, err := osdriver.Open(path, true)
	assert.NoError(t, err)
	defer d.Close()

	eof, err := d.GetEOF()
	assert.NoError(t, err)
	if eof != driver.Undefined {
		t.Fatalf("got %d, want Undefined for an empty file", eof)
	}

	assert.NoError(t, d.WriteAt(0, make([]byte, 100)))
	eof, err = d.GetEOF()
	assert.NoError(t, err)
	if eof != 100 {
		t.Fatalf("got %d, want 100", eof)
	}
}

func TestLockRejectsSecondExclusiveLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	d, err := osdriver.Open(path, true)
	assert.NoError(t, err)
	defer d.Close()

	assert.NoError(t, d.Lock(true))
	assert.NotNil(t, d.Lock(true))
	assert.NoError(t, d.Unlock())
}

func TestOpenMissingWithoutCreateFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing")
	_, err := osdriver.Open(path, false)
	assert.NotNil(t, err)
}

func TestCtlDeleteRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	d, err := osdriver.Open(path, true)
	assert.NoError(t, err)
	defer d.Close()

	_, err = d.Ctl(driver.CtlDelete, nil)
	assert.NoError(t, err)
	if _, err := osdriver.Open(path, false); err == nil {
		t.Fatalf("expected the deleted file to be gone")
	}
}
