// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzma

import "hash/crc32"

const (
	numPrevPositions2 = 1 << 10
	numPrevPositions3 = 1 << 16
)

// pair is a single candidate match: a back-distance (already biased
// down by one, as the range coder stores it) and a length.
type pair struct {
	dis int32
	len int32
}

// matchFinder is a binary-tree match finder over a sliding byte
// window. Each buffer position keeps a 2-way tree (via pos_array) of
// the earlier positions that share its 4-byte hash, letting
// getMatchPairs return every reachable match length in increasing
// order with a single walk instead of one probe per length.
type matchFinder struct {
	buffer        []byte
	bufferSize    int
	posLimit      int
	pos           int32
	cyclicPos     int32
	streamPos     int32
	partialDataPos uint64
	beforeSize    int
	afterSize     int

	dictionarySize       uint32
	savedDictionarySize  uint32
	key4Mask             int32
	numPrevPositions23   int32
	numPrevPositions     int32
	posArraySize         int32

	prevPositions []int32
	posArray      []int32

	atStreamEnd       bool
	syncFlushPending  bool
}

func newMatchFinder(beforeSize, dictSize, afterSize, dictFactor, numPrevPositions23, posArrayFactor int) *matchFinder {
	mb := &matchFinder{
		beforeSize:         beforeSize,
		afterSize:          afterSize,
		numPrevPositions23: int32(numPrevPositions23),
	}
	bufferSizeLimit := dictFactor*dictSize + beforeSize + afterSize
	mb.bufferSize = 65536
	if bufferSizeLimit > mb.bufferSize {
		mb.bufferSize = bufferSizeLimit
	}
	mb.buffer = make([]byte, mb.bufferSize)
	mb.savedDictionarySize = uint32(dictSize)
	mb.dictionarySize = uint32(dictSize)
	mb.posLimit = mb.bufferSize - afterSize

	size := uint32(1) << minU(16, uint(realBits(mb.dictionarySize-1))-2)
	if mb.dictionarySize > 1<<26 {
		size >>= 1
	}
	mb.key4Mask = int32(size) - 1
	size += uint32(numPrevPositions23)
	mb.numPrevPositions = int32(size)

	mb.posArraySize = int32(posArrayFactor) * (int32(mb.dictionarySize) + 1)
	total := int(mb.numPrevPositions) + int(mb.posArraySize)
	mb.prevPositions = make([]int32, total)
	mb.posArray = mb.prevPositions[mb.numPrevPositions:]
	return mb
}

func minU(a, b uint) uint {
	if a < b {
		return a
	}
	return b
}

func (mb *matchFinder) adjustArray() {
	size := uint32(1) << minU(16, uint(realBits(mb.dictionarySize-1))-2)
	if mb.dictionarySize > 1<<26 {
		size >>= 1
	}
	mb.key4Mask = int32(size) - 1
	size += uint32(mb.numPrevPositions23)
	mb.numPrevPositions = int32(size)
	mb.posArray = mb.prevPositions[mb.numPrevPositions:]
}

func (mb *matchFinder) adjustDictionarySize() {
	if uint32(mb.streamPos) < mb.dictionarySize {
		ds := uint32(minDictionarySize)
		if uint32(mb.streamPos) > ds {
			ds = uint32(mb.streamPos)
		}
		mb.dictionarySize = ds
		mb.adjustArray()
		mb.posLimit = mb.bufferSize
	}
}

func (mb *matchFinder) reset() {
	if mb.streamPos > mb.pos {
		copy(mb.buffer, mb.buffer[mb.pos:mb.streamPos])
	}
	mb.partialDataPos = 0
	mb.streamPos -= mb.pos
	mb.pos = 0
	mb.cyclicPos = 0
	mb.atStreamEnd = false
	mb.syncFlushPending = false
	mb.dictionarySize = mb.savedDictionarySize
	mb.adjustArray()
	mb.posLimit = mb.bufferSize - mb.afterSize
	for i := range mb.prevPositions[:mb.numPrevPositions] {
		mb.prevPositions[i] = 0
	}
}

func (mb *matchFinder) dataPosition() uint64 { return mb.partialDataPos + uint64(mb.pos) }

func (mb *matchFinder) availableBytes() int { return int(mb.streamPos - mb.pos) }

func (mb *matchFinder) dataFinished() bool { return mb.pos >= mb.streamPos && mb.atStreamEnd }

func (mb *matchFinder) finish() { mb.atStreamEnd = true }

func (mb *matchFinder) freeBytes() int {
	if mb.atStreamEnd {
		return 0
	}
	n := mb.bufferSize - int(mb.streamPos)
	if n < 0 {
		return 0
	}
	return n
}

func (mb *matchFinder) ptrToCurrentPos() []byte { return mb.buffer[mb.pos:] }

// matchLenAt reports how many bytes at the current position match the
// bytes distance+1 back, capped by the available lookahead; used to
// price repeat-distance candidates without a tree-finder probe.
func (mb *matchFinder) matchLenAt(distance uint32) int {
	if int32(distance) >= mb.pos {
		return 0
	}
	return mb.trueMatchLen(0, int32(distance)+1)
}

// trueMatchLen extends a match of dist already known to hold for the
// first index bytes, reporting how far it actually reaches (capped by
// maxMatchLen and the available lookahead); used by the sequence
// optimizer to refine a match-finder pair once it hits the configured
// length limit, and to probe candidate continuations during trial
// extension.
func (mb *matchFinder) trueMatchLen(index int, dist int32) int {
	avail := mb.availableBytes()
	limit := maxMatchLen
	if avail < limit {
		limit = avail
	}
	i := int32(index)
	for i < int32(limit) && mb.buffer[mb.pos+i-dist] == mb.buffer[mb.pos+i] {
		i++
	}
	return int(i)
}

// at returns the byte offset i positions from the current position
// (negative offsets reach back into the dictionary), mirroring the
// reference encoder's pointer-into-buffer idiom.
func (mb *matchFinder) at(i int32) byte { return mb.buffer[mb.pos+i] }

// peek returns the byte distance positions behind the current
// position; distance 0 is the current byte itself.
func (mb *matchFinder) peek(distance int32) byte { return mb.buffer[mb.pos-distance] }

// decPos rewinds the current position by ahead positions, used when a
// member fills up mid-trial and the unconsumed lookahead must be
// replayed by the next sequence-optimizer run.
func (mb *matchFinder) decPos(ahead int) bool {
	if ahead < 0 || int(mb.pos) < ahead {
		return false
	}
	mb.pos -= int32(ahead)
	if mb.cyclicPos < int32(ahead) {
		mb.cyclicPos += int32(mb.dictionarySize) + 1
	}
	mb.cyclicPos -= int32(ahead)
	return true
}

// writeData appends up to len(p) bytes to the finder's lookahead
// buffer, normalizing the sliding window first when it has grown too
// large to hold more data.
func (mb *matchFinder) writeData(p []byte) int {
	if mb.atStreamEnd {
		return 0
	}
	if !mb.normalizePos() {
		return 0
	}
	size := mb.freeBytes()
	if size <= 0 {
		return 0
	}
	if size > len(p) {
		size = len(p)
	}
	copy(mb.buffer[mb.streamPos:], p[:size])
	mb.streamPos += int32(size)
	return size
}

// normalizePos slides the lookahead buffer left when pos has drifted
// past the active dictionary window, rebasing every stored buffer
// position (and the binary-tree links) so they stay valid.
func (mb *matchFinder) normalizePos() bool {
	if mb.pos > mb.streamPos {
		mb.pos = mb.streamPos
		return false
	}
	if !mb.atStreamEnd {
		offset := mb.pos - int32(mb.beforeSize) - int32(mb.dictionarySize)
		if offset <= 0 {
			return true
		}
		size := mb.streamPos - offset
		copy(mb.buffer, mb.buffer[offset:offset+size])
		mb.partialDataPos += uint64(offset)
		mb.pos -= offset
		mb.streamPos -= offset
		for i := int32(0); i < mb.numPrevPositions; i++ {
			if mb.prevPositions[i] <= offset {
				mb.prevPositions[i] = 0
			} else {
				mb.prevPositions[i] -= offset
			}
		}
		for i := int32(0); i < mb.posArraySize; i++ {
			if mb.posArray[i] <= offset {
				mb.posArray[i] = 0
			} else {
				mb.posArray[i] -= offset
			}
		}
	}
	return true
}

func (mb *matchFinder) movePos() (gotMatches bool) {
	mb.cyclicPos++
	if mb.cyclicPos > int32(mb.dictionarySize) {
		mb.cyclicPos = 0
	}
	mb.pos++
	if mb.pos >= int32(mb.posLimit) {
		mb.normalizePos()
	}
	return mb.pos <= mb.streamPos
}

// getMatchPairs walks the binary tree rooted at the current position
// and returns every candidate match in order of strictly increasing
// length, bounded by cycles probes into the tree.
func (mb *matchFinder) getMatchPairs(cycles, matchLenLimit int) []pair {
	ptr0 := mb.cyclicPos << 1
	ptr1 := ptr0 + 1
	var pairs []pair
	length, len0, len1 := int32(0), int32(0), int32(0)
	maxlen := int32(3)
	pos1 := mb.pos + 1
	minPos := int32(0)
	if mb.pos > int32(mb.dictionarySize) {
		minPos = mb.pos - int32(mb.dictionarySize)
	}
	origin := mb.pos
	data := func(i int32) byte { return mb.buffer[origin+i] }
	lenLimit := matchLenLimit
	beenFlushed := false
	if lenLimit > mb.availableBytes() {
		beenFlushed = true
		lenLimit = mb.availableBytes()
		if lenLimit < 4 {
			mb.posArray[ptr0] = 0
			mb.posArray[ptr1] = 0
			return nil
		}
	}

	tab := crc32.IEEETable
	tmp := uint32(tab[data(0)]) ^ uint32(data(1))
	key2 := int32(tmp) & (numPrevPositions2 - 1)
	tmp ^= uint32(data(2)) << 8
	key3 := numPrevPositions2 + (int32(tmp) & (numPrevPositions3 - 1))
	key4 := numPrevPositions2 + numPrevPositions3 +
		(int32(tmp^(uint32(tab[data(3)])<<5)) & mb.key4Mask)

	trackMatches := true
	{
		np2 := mb.prevPositions[key2]
		np3 := mb.prevPositions[key3]
		if np2 > minPos && mb.buffer[np2-1] == data(0) {
			pairs = append(pairs, pair{dis: mb.pos - np2, len: 2})
			maxlen = 2
		}
		if np2 != np3 && np3 > minPos && mb.buffer[np3-1] == data(0) {
			maxlen = 3
			pairs = append(pairs, pair{dis: mb.pos - np3})
		}
		if len(pairs) > 0 {
			delta := pairs[len(pairs)-1].dis + 1
			for maxlen < int32(lenLimit) && data(maxlen-delta) == data(maxlen) {
				maxlen++
			}
			pairs[len(pairs)-1].len = maxlen
			if maxlen < 3 {
				maxlen = 3
			}
			if maxlen >= int32(lenLimit) {
				trackMatches = false
			}
		}
	}

	mb.prevPositions[key2] = pos1
	mb.prevPositions[key3] = pos1
	newpos1 := mb.prevPositions[key4]
	mb.prevPositions[key4] = pos1

	for count := cycles; ; {
		if newpos1 <= minPos || count < 0 {
			mb.posArray[ptr0] = 0
			mb.posArray[ptr1] = 0
			break
		}
		count--
		if beenFlushed {
			length = 0
		}
		delta := pos1 - newpos1
		var base int32
		if mb.cyclicPos >= delta {
			base = mb.cyclicPos - delta
		} else {
			base = mb.cyclicPos - delta + int32(mb.dictionarySize) + 1
		}
		newptr := base << 1

		if data(length-delta) == data(length) {
			for {
				length++
				if length >= int32(lenLimit) || data(length-delta) != data(length) {
					break
				}
			}
			if trackMatches && maxlen < length {
				pairs = append(pairs, pair{dis: delta - 1, len: length})
				maxlen = length
			}
			if length >= int32(lenLimit) {
				mb.posArray[ptr0] = mb.posArray[newptr]
				mb.posArray[ptr1] = mb.posArray[newptr+1]
				break
			}
		}
		if data(length-delta) < data(length) {
			mb.posArray[ptr0] = newpos1
			ptr0 = newptr + 1
			newpos1 = mb.posArray[ptr0]
			len0 = length
			if len1 < length {
				length = len1
			}
		} else {
			mb.posArray[ptr1] = newpos1
			ptr1 = newptr
			newpos1 = mb.posArray[ptr1]
			len1 = length
			if len0 < length {
				length = len0
			}
		}
	}
	return pairs
}
