// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cmd_test

import (
	"bytes"
	"encoding/hex"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/scigolib/vfdcrypt/cmd/vfdcryptutil/cmd"
)

func testKeyHex() string {
	k := make([]byte, 32)
	for i := range k {
		k[i] = byte(i)
	}
	return hex.EncodeToString(k)
}

func TestCreateThenCatRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.vfd")
	var out bytes.Buffer

	assert.NoError(t, cmd.Create(&out, []string{"-key", testKeyHex(), path}))
	assert.NoError(t, cmd.Cat(&out, []string{"-key", testKeyHex(), path}))
	// A freshly created file has no user pages, so cat produces no output.
	assert.Equal(t, "", out.String())
}

func TestVerifyReportsWrongKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.vfd")
	var out bytes.Buffer
	assert.NoError(t, cmd.Create(&out, []string{"-key", testKeyHex(), path}))
	out.Reset()

	wrongKey := hex.EncodeToString(make([]byte, 32))
	assert.NoError(t, cmd.Verify(&out, []string{"-key", wrongKey, path}))
	assert.True(t, strings.Contains(out.String(), "FAIL"))
}

func TestVerifyReportsOK(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.vfd")
	var out bytes.Buffer
	assert.NoError(t, cmd.Create(&out, []string{"-key", testKeyHex(), path}))
	out.Reset()

	assert.NoError(t, cmd.Verify(&out, []string{"-key", testKeyHex(), path}))
	assert.True(t, strings.Contains(out.String(), "OK"))
}

func TestRunUnknownSubcommand(t *testing.T) {
	err := cmd.Run([]string{"bogus"})
	assert.Error(t, err)
}
