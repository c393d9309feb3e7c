// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzma

import "testing"

func TestTrailerRoundTrip(t *testing.T) {
	var trailer [trailerSize]byte
	putTrailerCRC(&trailer, 0xDEADBEEF)
	putTrailerDataSize(&trailer, 445)
	putTrailerMemberSize(&trailer, 6+445+20)

	if got := getTrailerCRC(trailer); got != 0xDEADBEEF {
		t.Errorf("CRC = %#08x, want %#08x", got, uint32(0xDEADBEEF))
	}
	if got := getTrailerDataSize(trailer); got != 445 {
		t.Errorf("data size = %d, want 445", got)
	}
	if got := getTrailerMemberSize(trailer); got != 6+445+20 {
		t.Errorf("member size = %d, want %d", got, 6+445+20)
	}
}
