// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package driver implements the Page I/O Engine and the Driver Lifecycle
// & EOA/EOF bookkeeping that sit on top of the cipher, addr, config, and
// header packages. Rather than dispatching to whichever lower driver a
// handle is stacked on through a table of function pointers, this
// package expresses that polymorphism with the LowerDriver capability
// interface and ordinary interface dispatch: the encrypting Handle holds
// one owned LowerDriver value and never inspects its concrete type.
package driver

// CtlOp identifies one of the lower-driver operations that have no
// dedicated LowerDriver method because they are opaque to this core:
// query, compare, and the superblock encode/size/decode triad. The core
// never interprets arg or the returned value; it exists solely to give
// callers of Handle.Ctl a pass-through to whatever the lower driver
// implements.
type CtlOp int

const (
	CtlQuery CtlOp = iota
	CtlCompare
	CtlSuperblockSize
	CtlSuperblockEncode
	CtlSuperblockDecode
	CtlDelete
)

// LowerDriver is the capability interface satisfied by whatever driver
// sits below this one in the stack. All addresses and sizes passed to a
// LowerDriver are in the ciphertext view: multiples of
// config.Configuration.CiphertextPageSize. A LowerDriver implementation
// owns whatever resources back it (a file descriptor, a socket, a
// buffer); Close releases them.
type LowerDriver interface {
	// ReadAt fills p completely from offset off, or returns an error.
	ReadAt(off uint64, p []byte) error
	// WriteAt writes all of p at offset off, or returns an error.
	WriteAt(off uint64, p []byte) error

	// GetEOA returns the lower driver's current end-of-address.
	GetEOA() (uint64, error)
	// SetEOA sets the lower driver's end-of-address.
	SetEOA(addr uint64) error
	// GetEOF returns the lower driver's current end-of-file, or
	// driver.Undefined if the file is empty/new.
	GetEOF() (uint64, error)

	Flush() error
	Truncate(size uint64) error
	Lock(exclusive bool) error
	Unlock() error
	Close() error

	// Ctl dispatches one of the CtlOp pass-through operations.
	Ctl(op CtlOp, arg interface{}) (interface{}, error)
}

// Undefined is the sentinel address value meaning "not yet known",
// carried by eoa_up/eoa_down/eof_up/eof_down before their first
// assignment.
const Undefined = ^uint64(0)
