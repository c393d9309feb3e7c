// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzip

import "github.com/ulikunitz/lzip/lzma"

// minMemberSize and maxMemberSize bound WriterConfig.MemberSizeLimit,
// mirroring the reference encoder's own clamping.
const (
	minMemberSize = uint64(lzma.MinDictionarySize)
	maxMemberSize = uint64(1) << 51
)

// WriterConfig holds every parameter an encoder open() call needs.
// The zero value is invalid; pass it through ApplyDefaults or, more
// commonly, start from NewWriterConfig(level) and adjust fields.
type WriterConfig struct {
	// DictSize sizes the match finder's sliding window. ApplyDefaults
	// clamps it to [MinDictionarySize, MaxDictionarySize]; Verify
	// rejects a value outside that range.
	DictSize uint32

	// MatchLenLimit bounds how long a match the matcher chases.
	// ApplyDefaults clamps it to [5, 273]; Verify rejects a value
	// outside that range. The encoder kind is chosen by Fast, not by
	// this value.
	MatchLenLimit int

	// MemberSizeLimit caps how many bytes (header + stream +
	// trailer) a single member may grow to before the encoder
	// finishes it; the caller starts the next member with
	// RestartMember. ApplyDefaults clamps it to [2^12, 2^51]; Verify
	// rejects a value below 2^12 and caps a larger one at 2^51.
	MemberSizeLimit uint64

	// Fast selects the single-hash greedy encoder instead of the
	// binary-tree sequence optimizer.
	Fast bool

	// Workers is carried for API symmetry with the teacher's own
	// WriterConfig; this codec's member framing is inherently
	// sequential per handle, so values other than 1 have no effect.
	Workers int
}

// NewWriterConfig returns the configuration for one of the ten named
// compression levels, clamping level to [0, 9].
func NewWriterConfig(level int) WriterConfig {
	dictSize, matchLenLimit, fast := Preset(level)
	c := WriterConfig{
		DictSize:      dictSize,
		MatchLenLimit: matchLenLimit,
		Fast:          fast,
	}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills in zero-valued fields with the level-6 preset's
// values and clamps everything else into range.
func (c *WriterConfig) ApplyDefaults() {
	if c.DictSize == 0 {
		c.DictSize, c.MatchLenLimit, c.Fast = Preset(6)
	}
	if c.DictSize < lzma.MinDictionarySize {
		c.DictSize = lzma.MinDictionarySize
	}
	if c.DictSize > lzma.MaxDictionarySize {
		c.DictSize = lzma.MaxDictionarySize
	}
	if c.MatchLenLimit == 0 {
		c.MatchLenLimit = lzma.MaxMatchLenLimit
	}
	if c.MatchLenLimit < lzma.MinMatchLenLimit {
		c.MatchLenLimit = lzma.MinMatchLenLimit
	}
	if c.MatchLenLimit > lzma.MaxMatchLenLimit {
		c.MatchLenLimit = lzma.MaxMatchLenLimit
	}
	if c.MemberSizeLimit == 0 {
		c.MemberSizeLimit = maxMemberSize
	}
	if c.MemberSizeLimit < minMemberSize {
		c.MemberSizeLimit = minMemberSize
	}
	if c.MemberSizeLimit > maxMemberSize {
		c.MemberSizeLimit = maxMemberSize
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
}

// Verify reports whether the configuration is usable, after applying
// defaults to any zero-valued field and capping MemberSizeLimit at
// 2^51. Other out-of-range values are rejected, not clamped.
func (c *WriterConfig) Verify() error {
	if c == nil {
		return newError(BadArgument, "writer configuration is nil")
	}
	if c.DictSize == 0 {
		c.DictSize, c.MatchLenLimit, c.Fast = Preset(6)
	}
	if c.MatchLenLimit == 0 {
		c.MatchLenLimit = lzma.MaxMatchLenLimit
	}
	if c.MemberSizeLimit == 0 || c.MemberSizeLimit > maxMemberSize {
		c.MemberSizeLimit = maxMemberSize
	}
	if c.Workers == 0 {
		c.Workers = 1
	}
	if c.DictSize < lzma.MinDictionarySize || c.DictSize > lzma.MaxDictionarySize {
		return newError(BadArgument, "dictionary size out of range")
	}
	if c.MatchLenLimit < lzma.MinMatchLenLimit || c.MatchLenLimit > lzma.MaxMatchLenLimit {
		return newError(BadArgument, "match length limit out of range")
	}
	if c.MemberSizeLimit < minMemberSize || c.MemberSizeLimit > maxMemberSize {
		return newError(BadArgument, "member size limit out of range")
	}
	return nil
}
