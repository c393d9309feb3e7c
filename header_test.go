// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzip

import "testing"

func TestBuildHeaderRoundTrip(t *testing.T) {
	hdr := buildHeader(1 << 20)
	if !verifyMagic([4]byte{hdr[0], hdr[1], hdr[2], hdr[3]}) {
		t.Fatal("buildHeader did not write the lzip magic")
	}
	if hdr[4] != 1 {
		t.Errorf("version byte = %d, want 1", hdr[4])
	}
}

func TestVerifyMagicPrefix(t *testing.T) {
	cases := []struct {
		hdr  []byte
		want int
	}{
		{[]byte{'L', 'Z', 'I', 'P'}, 4},
		{[]byte{'L', 'Z', 'I', 'X'}, 3},
		{[]byte{'L', 'Z', 'X', 'X'}, 2},
		{[]byte{'X', 'Z', 'I', 'P'}, 0},
		{[]byte{}, 0},
	}
	for _, c := range cases {
		if got := verifyMagicPrefix(c.hdr); got != c.want {
			t.Errorf("verifyMagicPrefix(% x) = %d, want %d", c.hdr, got, c.want)
		}
	}
}

func TestVerifyCorrupt(t *testing.T) {
	cases := []struct {
		hdr  [4]byte
		want bool
	}{
		{[4]byte{'L', 'Z', 'I', 'P'}, false}, // all 4 match: not "corrupt", it's valid
		{[4]byte{'L', 'Z', 'X', 'X'}, true},  // 2 match
		{[4]byte{'L', 'X', 'I', 'X'}, true},  // 2 match
		{[4]byte{'X', 'X', 'X', 'X'}, false}, // 0 match
		{[4]byte{'L', 'X', 'X', 'X'}, false}, // 1 match
	}
	for _, c := range cases {
		if got := verifyCorrupt(c.hdr); got != c.want {
			t.Errorf("verifyCorrupt(%q) = %v, want %v", c.hdr, got, c.want)
		}
	}
}
