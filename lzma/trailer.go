// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzma

import "encoding/binary"

// A member trailer is 20 little-endian bytes: the CRC32 of the
// uncompressed data, its size, and the size of the whole member
// (header + LZMA stream + this trailer).

func getTrailerCRC(t [trailerSize]byte) uint32 {
	return binary.LittleEndian.Uint32(t[0:4])
}

func getTrailerDataSize(t [trailerSize]byte) uint64 {
	return binary.LittleEndian.Uint64(t[4:12])
}

func getTrailerMemberSize(t [trailerSize]byte) uint64 {
	return binary.LittleEndian.Uint64(t[12:20])
}

func putTrailerCRC(t *[trailerSize]byte, crc uint32) {
	binary.LittleEndian.PutUint32(t[0:4], crc)
}

func putTrailerDataSize(t *[trailerSize]byte, size uint64) {
	binary.LittleEndian.PutUint64(t[4:12], size)
}

func putTrailerMemberSize(t *[trailerSize]byte, size uint64) {
	binary.LittleEndian.PutUint64(t[12:20], size)
}
