// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package cipher

import (
	"fmt"
	"sync"

	"github.com/scigolib/vfdcrypt/errors"
	vonce "github.com/scigolib/vfdcrypt/internal/once"
)

type db struct {
	sync.Mutex
	adapters map[ID]map[Mode]Adapter
}

var registry = &db{adapters: map[ID]map[Mode]Adapter{}}

// registerTask guards one-time, process-wide registration of the built-in
// adapters. The underlying cipher libraries (crypto/aes,
// golang.org/x/crypto/twofish) need no global setup of their own, but any
// setup a future built-in does need must be idempotent and performed
// under a one-shot guard at first use, so the built-ins are registered
// lazily through this Task rather than via package-level init order.
var registerTask vonce.Task

func ensureBuiltins() {
	_ = registerTask.Do(func() error {
		register(AES256, CBC, aes256CBC{})
		register(TWOFISH, CBC, twofishCBC{})
		return nil
	})
}

func register(id ID, mode Mode, a Adapter) {
	registry.Lock()
	defer registry.Unlock()
	m, ok := registry.adapters[id]
	if !ok {
		m = map[Mode]Adapter{}
		registry.adapters[id] = m
	}
	if _, present := m[mode]; present {
		panic(fmt.Sprintf("cipher: adapter already registered: %v/%v", id, mode))
	}
	m[mode] = a
}

// Register installs a custom Adapter for the given (id, mode) pair. It is
// exposed so that callers can plug in additional ciphers beyond the two
// built-ins; it panics if the pair is already registered.
func Register(id ID, mode Mode, a Adapter) {
	ensureBuiltins()
	register(id, mode, a)
}

// Lookup returns the Adapter registered for the given (id, mode) pair. An
// unknown pairing is InvalidConfiguration, not a default: the caller asked
// for a cipher/mode combination the core does not understand, and silently
// substituting one would be a correctness hazard for an encryption driver.
func Lookup(id ID, mode Mode) (Adapter, error) {
	ensureBuiltins()
	registry.Lock()
	defer registry.Unlock()
	m, ok := registry.adapters[id]
	if !ok {
		return nil, errors.E(errors.InvalidConfiguration, fmt.Sprintf("unknown cipher id %v", id))
	}
	a, ok := m[mode]
	if !ok {
		return nil, errors.E(errors.InvalidConfiguration, fmt.Sprintf("unsupported mode %v for cipher %v", mode, id))
	}
	return a, nil
}
