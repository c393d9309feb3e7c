// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzip

// preset holds the dictionary size and match-length limit a named
// compression level maps to; level 0 additionally selects the fast
// encoder instead of the normal one.
type preset struct {
	dictSize      uint32
	matchLenLimit int
	fast          bool
}

// presets is indexed by compression level 0..9, mirroring the levels
// the reference compressor documents.
var presets = [10]preset{
	0: {dictSize: 65535, matchLenLimit: 16, fast: true},
	1: {dictSize: 1 << 20, matchLenLimit: 5},
	2: {dictSize: 512 << 10, matchLenLimit: 6},
	3: {dictSize: 2 << 20, matchLenLimit: 8},
	4: {dictSize: 1 << 20, matchLenLimit: 12},
	5: {dictSize: 4 << 20, matchLenLimit: 20},
	6: {dictSize: 8 << 20, matchLenLimit: 36},
	7: {dictSize: 16 << 20, matchLenLimit: 68},
	8: {dictSize: 8 << 20, matchLenLimit: 132},
	9: {dictSize: 32 << 20, matchLenLimit: 273},
}

// Preset returns the dictionary size and match-length limit for a
// compression level, clamping out-of-range levels to [0, 9].
func Preset(level int) (dictSize uint32, matchLenLimit int, fast bool) {
	if level < 0 {
		level = 0
	}
	if level > 9 {
		level = 9
	}
	p := presets[level]
	return p.dictSize, p.matchLenLimit, p.fast
}
