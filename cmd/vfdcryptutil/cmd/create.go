// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"flag"
	"io"

	"github.com/scigolib/vfdcrypt/driver"
	"github.com/scigolib/vfdcrypt/errors"
)

// Create creates path as a fresh encrypted file with a valid header and
// test phrase, then closes it.
func Create(out io.Writer, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	var cf configFlags
	bindConfigFlags(fs, &cf)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.E(errors.Invalid, "create: expected exactly one path argument")
	}
	cfg, err := cf.configuration()
	if err != nil {
		return err
	}

	h, err := openFile(fs.Arg(0), cfg, driver.FlagCreate)
	if err != nil {
		return errors.E(err, "create", fs.Arg(0))
	}
	return h.Close()
}
