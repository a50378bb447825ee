// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cmd

import (
	"encoding/hex"
	"flag"

	"github.com/scigolib/vfdcrypt/cipher"
	"github.com/scigolib/vfdcrypt/config"
	"github.com/scigolib/vfdcrypt/driver"
	"github.com/scigolib/vfdcrypt/driver/osdriver"
	"github.com/scigolib/vfdcrypt/errors"
)

// configFlags binds the common -key and -cipher flags shared by every
// subcommand that opens a file.
type configFlags struct {
	keyHex string
	cipher string
}

func bindConfigFlags(fs *flag.FlagSet, f *configFlags) {
	fs.StringVar(&f.keyHex, "key", "", "hex-encoded encryption key (required)")
	fs.StringVar(&f.cipher, "cipher", "aes256", "cipher: aes256 or twofish")
}

func (f *configFlags) configuration() (config.Configuration, error) {
	if f.keyHex == "" {
		return config.Configuration{}, errors.E(errors.Invalid, "-key is required")
	}
	key, err := hex.DecodeString(f.keyHex)
	if err != nil {
		return config.Configuration{}, errors.E(errors.Invalid, "-key is not valid hex", err)
	}
	cfg := config.Default()
	cfg.Key = key
	cfg.KeySize = uint64(len(key))
	switch f.cipher {
	case "aes256":
		cfg.CipherID = cipher.AES256
	case "twofish":
		cfg.CipherID = cipher.TWOFISH
	default:
		return config.Configuration{}, errors.E(errors.Invalid, "unrecognized -cipher", f.cipher)
	}
	return cfg, nil
}

// openFile opens path as an osdriver-backed Handle, creating and writing
// fresh header pages when flags includes driver.FlagCreate. If
// driver.Open fails, lower is closed before returning: driver.Open
// itself only releases resources it allocated, not the lower driver the
// caller handed it (see driver.Handle.release), so that's on openFile.
func openFile(path string, cfg config.Configuration, flags driver.OpenFlag) (*driver.Handle, error) {
	lower, err := osdriver.Open(path, flags&driver.FlagCreate != 0)
	if err != nil {
		return nil, err
	}
	h, err := driver.Open(lower, cfg, flags)
	if err != nil {
		if cerr := lower.Close(); cerr != nil {
			return nil, errors.E(err, "closing lower driver after failed open", cerr)
		}
		return nil, err
	}
	return h, nil
}
