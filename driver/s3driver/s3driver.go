// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package s3driver implements a driver.LowerDriver backed by a single S3
// object. It deliberately omits the goroutine-and-channel request-dispatch
// machinery an S3-backed file implementation typically needs: that
// machinery exists to let many handles share retrying, pooled clients
// under heavy concurrent access, whereas this core is single-threaded
// per handle and never issues more than one request at a time. S3
// objects have no native random-access write, so
// this driver keeps the whole object mirrored in memory, lazily
// hydrated from a GetObject on first touch, and uploads the full object
// back with PutObject on Flush/Close — the same "materialize, mutate,
// upload whole" approach file_write.go's multi-part uploader takes to
// its logical extreme of one part.
package s3driver

import (
	"bytes"
	"io/ioutil"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/scigolib/vfdcrypt/driver"
	"github.com/scigolib/vfdcrypt/errors"
)

// Driver is a driver.LowerDriver backed by a single S3 object named
// s3://bucket/key.
type Driver struct {
	client s3iface.S3API
	bucket string
	key    string

	loaded bool
	dirty  bool
	data   []byte
	eoa    uint64
}

// Open returns a Driver for s3://bucket/key using client. It performs no
// I/O itself; the object is fetched lazily on the first ReadAt, WriteAt,
// GetEOF or Truncate.
func Open(client s3iface.S3API, bucket, key string) *Driver {
	return &Driver{client: client, bucket: bucket, key: key}
}

func (d *Driver) hydrate() error {
	if d.loaded {
		return nil
	}
	out, err := d.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			d.data = nil
			d.loaded = true
			return nil
		}
		return errors.E(errors.LowerDriverError, "s3driver: GetObject", err)
	}
	defer out.Body.Close()
	body, err := ioutil.ReadAll(out.Body)
	if err != nil {
		return errors.E(errors.LowerDriverError, "s3driver: reading object body", err)
	}
	d.data = body
	d.loaded = true
	return nil
}

func (d *Driver) ReadAt(off uint64, p []byte) error {
	if err := d.hydrate(); err != nil {
		return err
	}
	end := off + uint64(len(p))
	if end > uint64(len(d.data)) {
		return errors.E(errors.NotExist, "s3driver: read past end of object")
	}
	copy(p, d.data[off:end])
	return nil
}

func (d *Driver) WriteAt(off uint64, p []byte) error {
	if err := d.hydrate(); err != nil {
		return err
	}
	end := off + uint64(len(p))
	if end > uint64(len(d.data)) {
		grown := make([]byte, end)
		copy(grown, d.data)
		d.data = grown
	}
	copy(d.data[off:end], p)
	d.dirty = true
	return nil
}

func (d *Driver) GetEOA() (uint64, error) {
	return d.eoa, nil
}

func (d *Driver) SetEOA(addr uint64) error {
	d.eoa = addr
	return nil
}

func (d *Driver) GetEOF() (uint64, error) {
	if err := d.hydrate(); err != nil {
		return 0, err
	}
	if len(d.data) == 0 {
		return driver.Undefined, nil
	}
	return uint64(len(d.data)), nil
}

// Flush uploads the in-memory object back to S3 with PutObject if it has
// been modified since the last Flush.
func (d *Driver) Flush() error {
	if !d.dirty {
		return nil
	}
	_, err := d.client.PutObject(&s3.PutObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key),
		Body:   bytes.NewReader(d.data),
	})
	if err != nil {
		return errors.E(errors.LowerDriverError, "s3driver: PutObject", err)
	}
	d.dirty = false
	return nil
}

func (d *Driver) Truncate(size uint64) error {
	if err := d.hydrate(); err != nil {
		return err
	}
	if size <= uint64(len(d.data)) {
		d.data = d.data[:size]
	} else {
		grown := make([]byte, size)
		copy(grown, d.data)
		d.data = grown
	}
	d.dirty = true
	return nil
}

// Lock and Unlock are no-ops: S3 has no native advisory locking, and
// this core's single-handle concurrency model does not require one.
func (d *Driver) Lock(exclusive bool) error { return nil }
func (d *Driver) Unlock() error             { return nil }

func (d *Driver) Close() error {
	return d.Flush()
}

func (d *Driver) Ctl(op driver.CtlOp, arg interface{}) (interface{}, error) {
	switch op {
	case driver.CtlCompare:
		other, ok := arg.(*Driver)
		if !ok {
			return nil, errors.E(errors.Invalid, "s3driver: compare argument is not a *Driver")
		}
		name, otherName := d.bucket+"/"+d.key, other.bucket+"/"+other.key
		switch {
		case name == otherName:
			return 0, nil
		case name < otherName:
			return -1, nil
		default:
			return 1, nil
		}
	case driver.CtlDelete:
		_, err := d.client.DeleteObject(&s3.DeleteObjectInput{
			Bucket: aws.String(d.bucket),
			Key:    aws.String(d.key),
		})
		if err != nil {
			return nil, errors.E(errors.LowerDriverError, "s3driver: DeleteObject", err)
		}
		return nil, nil
	case driver.CtlQuery, driver.CtlSuperblockSize, driver.CtlSuperblockEncode, driver.CtlSuperblockDecode:
		return nil, nil
	default:
		return nil, errors.E(errors.NotSupported, "s3driver: unrecognized ctl op")
	}
}
