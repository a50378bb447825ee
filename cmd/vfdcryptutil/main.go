// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"os"

	"github.com/scigolib/vfdcrypt/cmd/vfdcryptutil/cmd"
	"github.com/scigolib/vfdcrypt/log"
)

func main() {
	log.AddFlags()
	help := flag.Bool("help", false, "Display help about this command")
	flag.Parse()
	if *help {
		cmd.PrintHelp()
		os.Exit(0)
	}

	if err := cmd.Run(flag.Args()); err != nil {
		log.Fatal(err)
	}
}
