// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"flag"
	"io"

	"github.com/scigolib/vfdcrypt/errors"
)

// Truncate opens path and resets its end-of-address to zero, discarding
// any user pages beyond the header.
func Truncate(out io.Writer, args []string) (err error) {
	fs := flag.NewFlagSet("truncate", flag.ExitOnError)
	var cf configFlags
	bindConfigFlags(fs, &cf)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.E(errors.Invalid, "truncate: expected exactly one path argument")
	}
	cfg, err := cf.configuration()
	if err != nil {
		return err
	}

	h, err := openFile(fs.Arg(0), cfg, 0)
	if err != nil {
		return errors.E(err, "truncate", fs.Arg(0))
	}
	defer errors.CleanUp(h.Close, &err)

	if err := h.SetEOA(0); err != nil {
		return errors.E(err, "truncate", fs.Arg(0))
	}
	return h.Truncate(cfg.CiphertextPageSize * 2)
}
