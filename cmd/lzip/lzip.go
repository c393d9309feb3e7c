// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"io"

	"github.com/ulikunitz/lzip"
)

const pumpBufSize = 64 << 10

// compressStream drives an lzip.Writer to completion over src,
// repeatedly alternating Write and Read the way the non-blocking
// codec API expects, and writes the produced member(s) to dst.
func compressStream(dst io.Writer, src io.Reader, preset int) error {
	cfg := lzip.NewWriterConfig(preset)
	w, err := lzip.NewWriter(cfg)
	if err != nil {
		return err
	}
	in := make([]byte, pumpBufSize)
	out := make([]byte, pumpBufSize)

	drain := func() error {
		for {
			n, err := w.Read(out)
			if err != nil {
				return err
			}
			if n == 0 {
				return nil
			}
			if _, err := dst.Write(out[:n]); err != nil {
				return err
			}
		}
	}

	for {
		nr, rerr := src.Read(in)
		off := 0
		for off < nr {
			n, werr := w.Write(in[off:nr])
			if werr != nil {
				return werr
			}
			off += n
			if err := drain(); err != nil {
				return err
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}

	if err := w.Finish(); err != nil {
		return err
	}
	return drain()
}

// decompressStream mirrors compressStream for lzip.Reader.
func decompressStream(dst io.Writer, src io.Reader) error {
	r := lzip.NewReader()
	in := make([]byte, pumpBufSize)
	out := make([]byte, pumpBufSize)

	drain := func() error {
		for {
			n, err := r.Read(out)
			if err != nil {
				return err
			}
			if n == 0 {
				return nil
			}
			if _, err := dst.Write(out[:n]); err != nil {
				return err
			}
		}
	}

	for {
		nr, rerr := src.Read(in)
		off := 0
		for off < nr {
			n, werr := r.Write(in[off:nr])
			if werr != nil {
				return werr
			}
			off += n
			if err := drain(); err != nil {
				return err
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}

	if err := r.Finish(); err != nil {
		return err
	}
	return drain()
}
