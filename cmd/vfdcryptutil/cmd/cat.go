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

// Cat decrypts the whole of path and writes the plaintext to out.
func Cat(out io.Writer, args []string) (err error) {
	fs := flag.NewFlagSet("cat", flag.ExitOnError)
	var cf configFlags
	bindConfigFlags(fs, &cf)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.E(errors.Invalid, "cat: expected exactly one path argument")
	}
	cfg, err := cf.configuration()
	if err != nil {
		return err
	}

	h, err := openFile(fs.Arg(0), cfg, 0)
	if err != nil {
		return errors.E(err, "cat", fs.Arg(0))
	}
	defer errors.CleanUp(h.Close, &err)

	eof, err := h.GetEOF()
	if err != nil {
		return errors.E(err, "cat", fs.Arg(0))
	}
	if eof == driver.Undefined {
		return nil
	}

	buf := make([]byte, cfg.PlaintextPageSize)
	for addr := uint64(0); addr < eof; addr += cfg.PlaintextPageSize {
		if err := h.Read(addr, cfg.PlaintextPageSize, buf); err != nil {
			return errors.E(err, "cat", fs.Arg(0))
		}
		if _, err := out.Write(buf); err != nil {
			return err
		}
	}
	return nil
}
