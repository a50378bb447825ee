// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"flag"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/scigolib/vfdcrypt/errors"
)

// Verify opens each path with the given key and closes it immediately,
// reporting per-file success or failure. Files are checked concurrently:
// unlike a single open file handle, which this core requires to be used
// single-threaded, distinct handles for distinct files share no state
// and verifying them is an embarrassingly parallel operation, in the
// spirit of grail-file's forEachFile fan-out but expressed with
// errgroup instead of a hand-rolled worker pool.
func Verify(out io.Writer, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	var cf configFlags
	bindConfigFlags(fs, &cf)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.E(errors.Invalid, "verify: expected at least one path argument")
	}
	cfg, err := cf.configuration()
	if err != nil {
		return err
	}

	results := make([]string, fs.NArg())
	var g errgroup.Group
	for i, path := range fs.Args() {
		i, path := i, path
		g.Go(func() error {
			h, err := openFile(path, cfg, 0)
			if err != nil {
				results[i] = fmt.Sprintf("%s: FAIL: %v", path, err)
				return nil
			}
			results[i] = fmt.Sprintf("%s: OK", path)
			return h.Close()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, line := range results {
		fmt.Fprintln(out, line)
	}
	return nil
}
