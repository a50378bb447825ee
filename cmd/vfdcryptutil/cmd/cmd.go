// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package cmd implements the vfdcryptutil subcommands as a flat table of
// (name, callback, help) tuples dispatched by Run, rather than a
// flag-package command tree.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/scigolib/vfdcrypt/errors"
)

var commands = []struct {
	name     string
	callback func(out io.Writer, args []string) error
	help     string
}{
	{"create", Create, "Create creates a new encrypted file with a fresh header and test phrase."},
	{"cat", Cat, "Cat decrypts a file's contents to stdout."},
	{"verify", Verify, "Verify opens one or more files and confirms the key and header are valid."},
	{"truncate", Truncate, "Truncate resets the EOA of an existing file to zero."},
}

// PrintHelp writes the subcommand table to stderr.
func PrintHelp() {
	fmt.Fprintln(os.Stderr, "Subcommands:")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", c.name, c.help)
	}
}

// Run dispatches args[0] to the matching subcommand's callback with
// args[1:].
func Run(args []string) error {
	if len(args) == 0 {
		PrintHelp()
		return errors.E(errors.Invalid, "no subcommand given")
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.callback(os.Stdout, args[1:])
		}
	}
	PrintHelp()
	return errors.E(errors.Invalid, "unknown subcommand", args[0])
}
