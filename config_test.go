// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzip

import (
	"testing"

	"github.com/ulikunitz/lzip/lzma"
)

// TestPresetTable checks every documented compression level against
// the dictionary size / match-length-limit / encoder-kind table.
func TestPresetTable(t *testing.T) {
	cases := []struct {
		level         int
		dictSize      uint32
		matchLenLimit int
		fast          bool
	}{
		{0, 65535, 16, true},
		{1, 1 << 20, 5, false},
		{2, 512 << 10, 6, false},
		{3, 2 << 20, 8, false},
		{4, 1 << 20, 12, false},
		{5, 4 << 20, 20, false},
		{6, 8 << 20, 36, false},
		{7, 16 << 20, 68, false},
		{8, 8 << 20, 132, false},
		{9, 32 << 20, 273, false},
	}
	for _, c := range cases {
		dictSize, matchLenLimit, fast := Preset(c.level)
		if dictSize != c.dictSize || matchLenLimit != c.matchLenLimit || fast != c.fast {
			t.Errorf("Preset(%d) = (%d, %d, %v), want (%d, %d, %v)",
				c.level, dictSize, matchLenLimit, fast, c.dictSize, c.matchLenLimit, c.fast)
		}
	}
}

func TestPresetClampsOutOfRangeLevel(t *testing.T) {
	lo, _, _ := Preset(-5)
	hi, _, _ := Preset(42)
	want0, _, _ := Preset(0)
	want9, _, _ := Preset(9)
	if lo != want0 {
		t.Errorf("Preset(-5) dictSize = %d, want Preset(0)'s %d", lo, want0)
	}
	if hi != want9 {
		t.Errorf("Preset(42) dictSize = %d, want Preset(9)'s %d", hi, want9)
	}
}

func TestWriterConfigApplyDefaults(t *testing.T) {
	var c WriterConfig
	c.ApplyDefaults()
	want6DictSize, want6MatchLen, _ := Preset(6)
	if c.DictSize != want6DictSize || c.MatchLenLimit != want6MatchLen {
		t.Errorf("zero-value defaults = (%d, %d), want level-6 preset (%d, %d)",
			c.DictSize, c.MatchLenLimit, want6DictSize, want6MatchLen)
	}
	if c.MemberSizeLimit != maxMemberSize {
		t.Errorf("MemberSizeLimit = %d, want %d", c.MemberSizeLimit, maxMemberSize)
	}
	if c.Workers != 1 {
		t.Errorf("Workers = %d, want 1", c.Workers)
	}
}

func TestWriterConfigVerifyRejectsOutOfRange(t *testing.T) {
	cases := []WriterConfig{
		{DictSize: lzma.MinDictionarySize - 1},
		{DictSize: lzma.MaxDictionarySize + 1},
		{DictSize: 1 << 20, MatchLenLimit: lzma.MinMatchLenLimit - 1},
		{DictSize: 1 << 20, MatchLenLimit: lzma.MaxMatchLenLimit + 1},
		{DictSize: 1 << 20, MemberSizeLimit: minMemberSize - 1},
	}
	for i, c := range cases {
		cfg := c
		if err := cfg.Verify(); err == nil {
			t.Errorf("case %d: Verify() = nil, want an error for %+v", i, c)
		}
	}
	// A member size limit above 2^51 is capped rather than rejected.
	capped := WriterConfig{DictSize: 1 << 20, MemberSizeLimit: maxMemberSize + 1}
	if err := capped.Verify(); err != nil || capped.MemberSizeLimit != maxMemberSize {
		t.Errorf("Verify() with MemberSizeLimit %d = (%v, %d), want (nil, %d)",
			uint64(maxMemberSize+1), err, capped.MemberSizeLimit, maxMemberSize)
	}
}

func TestNewWriterAcceptsZeroValueConfig(t *testing.T) {
	// A zero-value config is valid (defaults apply); only genuinely
	// out-of-range fields should be rejected.
	w, err := NewWriter(WriterConfig{})
	if err != nil {
		t.Fatalf("NewWriter(zero value): %v", err)
	}
	if w == nil {
		t.Fatal("NewWriter returned a nil Writer with a nil error")
	}
}
