// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzip

import (
	"hash/crc32"
	"math/rand"
)

// loremIpsum is the 445-byte scenario corpus from the format's own
// test plan. The retrieval pack's pseudo-English text generator
// (randtxt) depends on a trigram-frequency table that ships nowhere
// in the pack, and the Silesia corpus module referenced by the
// teacher's tuning command isn't vendored here either; this literal
// and randomBytes below stand in for both without fabricating either
// one's missing data.
const loremIpsum = "Lorem ipsum dolor sit amet, consectetur adipiscing elit, sed do eiusmod tempor incididunt ut labore et dolore magna aliqua. Ut enim ad minim veniam, quis nostrud exercitation ullamco laboris nisi ut aliquip ex ea commodo consequat. Duis aute irure dolor in reprehenderit in voluptate velit esse cillum dolore eu fugiat nulla pariatur. Excepteur sint occaecat cupidatat non proident, sunt in culpa qui officia deserunt mollit anim id est laborum."

// randomBytes returns n pseudo-random, effectively incompressible
// bytes from a fixed seed so the tests using them stay reproducible.
func randomBytes(n int, seed int64) []byte {
	r := rand.New(rand.NewSource(seed))
	p := make([]byte, n)
	r.Read(p)
	return p
}

// drainWriter pumps every byte of src through w in chunkSize pieces
// (or all at once if chunkSize <= 0), calling Finish once src is
// exhausted and draining Read after every Write/Finish until Read
// returns no more bytes. It never relies on Write/Read blocking,
// matching the container's non-blocking push/pull contract.
func drainWriter(w *Writer, src []byte, chunkSize int) ([]byte, error) {
	var out []byte
	buf := make([]byte, 4096)

	drain := func() error {
		for {
			n, err := w.Read(buf)
			if n > 0 {
				out = append(out, buf[:n]...)
			}
			if err != nil {
				return err
			}
			if n == 0 {
				return nil
			}
		}
	}

	if chunkSize <= 0 {
		chunkSize = len(src)
		if chunkSize == 0 {
			chunkSize = 1
		}
	}
	for len(src) > 0 {
		k := chunkSize
		if k > len(src) {
			k = len(src)
		}
		n, err := w.Write(src[:k])
		if err != nil {
			return out, err
		}
		src = src[n:]
		if err := drain(); err != nil {
			return out, err
		}
	}
	if err := w.Finish(); err != nil {
		return out, err
	}
	if err := drain(); err != nil {
		return out, err
	}
	return out, nil
}

// drainReader pushes compressed, fed through r in chunkSize pieces,
// and pulls every decoded byte out via Read.
func drainReader(r *Reader, compressed []byte, chunkSize int) ([]byte, error) {
	var out []byte
	buf := make([]byte, 4096)

	drain := func() error {
		for {
			n, err := r.Read(buf)
			if n > 0 {
				out = append(out, buf[:n]...)
			}
			if err != nil {
				return err
			}
			if n == 0 {
				return nil
			}
		}
	}

	if chunkSize <= 0 {
		chunkSize = len(compressed)
		if chunkSize == 0 {
			chunkSize = 1
		}
	}
	for len(compressed) > 0 {
		k := chunkSize
		if k > len(compressed) {
			k = len(compressed)
		}
		n, err := r.Write(compressed[:k])
		if err != nil {
			return out, err
		}
		compressed = compressed[n:]
		if err := drain(); err != nil {
			return out, err
		}
	}
	if err := r.Finish(); err != nil {
		return out, err
	}
	if err := drain(); err != nil {
		return out, err
	}
	return out, nil
}

// compressLevel compresses src at level in one shot, fully draining
// between writes so the output buffer never needs to be unbounded.
func compressLevel(src []byte, level int) ([]byte, error) {
	w, err := NewWriter(NewWriterConfig(level))
	if err != nil {
		return nil, err
	}
	return drainWriter(w, src, 0)
}

// decompressAll decompresses a complete compressed stream in one
// shot.
func decompressAll(compressed []byte) ([]byte, error) {
	r := NewReader()
	return drainReader(r, compressed, 0)
}

func crc32IEEE(p []byte) uint32 { return crc32.ChecksumIEEE(p) }
