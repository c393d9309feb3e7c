// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzma

import (
	"hash/crc32"

	lzhash "github.com/ulikunitz/lzip/hash"
)

// fastHashBits sizes the single-candidate hash table the fast encoder
// keeps: one slot per 4-byte key, 1<<17 slots in all.
const fastHashBits = 17

// FastEncoder is the greedy, single-hash encoder used only at the
// lowest compression level (dictionary 65535, match_len_limit 16): a
// simpler, much cheaper alternative to Encoder's sequence optimizer,
// at the cost of weaker compression.
type FastEncoder struct {
	mb   *matchFinder
	renc *rangeEncoder

	matchLenLimit int
	memberSizeLimit uint64
	memberFinished  bool
	crc             uint32

	roller *lzhash.RabinKarp
	table  []int32

	state state
	reps  [numRepDistances]uint32

	bmLiteral [1 << literalContextBits][0x300]probability
	bmMatch   [states][posStates]probability
	bmRep     [states]probability
	bmRep0    [states]probability
	bmRep1    [states]probability
	bmRep2    [states]probability
	bmLen     [states][posStates]probability
	bmDisSlot [lenStates][1 << disSlotBits]probability
	bmDis     [modeledDistances - endDisModel + 1]probability
	bmAlign   [disAlignSize]probability

	matchLenModel *lenModel
	repLenModel   *lenModel
}

// NewFastEncoder allocates the level-0 encoder; dictSize and
// matchLenLimit are expected to be 65535 and 16 respectively, though
// the implementation does not require it.
func NewFastEncoder(dictSize uint32, matchLenLimit int, memberSizeLimit uint64) *FastEncoder {
	e := &FastEncoder{
		mb:            newMatchFinder(maxMatchLen, int(dictSize), maxMatchLen, 16, 0, 0),
		renc:          newRangeEncoder(encoderMinFreeBytes),
		matchLenLimit: matchLenLimit,
		roller:        lzhash.NewRabinKarp(4),
		table:         make([]int32, 1<<fastHashBits),
		matchLenModel: newLenModel(),
		repLenModel:   newLenModel(),
	}
	e.ResetMember(memberSizeLimit)
	return e
}

func (e *FastEncoder) ResetMember(memberSize uint64) {
	e.mb.reset()
	minMember := uint64(minDictionarySize)
	maxMember := uint64(1) << 51
	if memberSize < minMember {
		memberSize = minMember
	}
	if memberSize > maxMember {
		memberSize = maxMember
	}
	e.memberSizeLimit = memberSize - trailerSize - maxMarkerSize
	e.crc = 0
	for i := range e.table {
		e.table[i] = -1
	}
	for i := range e.bmLiteral {
		for j := range e.bmLiteral[i] {
			e.bmLiteral[i][j] = probInit
		}
	}
	for i := range e.bmMatch {
		for j := range e.bmMatch[i] {
			e.bmMatch[i][j] = probInit
		}
	}
	for i := range e.bmRep {
		e.bmRep[i] = probInit
		e.bmRep0[i] = probInit
		e.bmRep1[i] = probInit
		e.bmRep2[i] = probInit
	}
	for i := range e.bmLen {
		for j := range e.bmLen[i] {
			e.bmLen[i][j] = probInit
		}
	}
	for i := range e.bmDisSlot {
		for j := range e.bmDisSlot[i] {
			e.bmDisSlot[i][j] = probInit
		}
	}
	for i := range e.bmDis {
		e.bmDis[i] = probInit
	}
	for i := range e.bmAlign {
		e.bmAlign[i] = probInit
	}
	e.matchLenModel.reset()
	e.repLenModel.reset()
	e.renc.reset()
	e.reps = [numRepDistances]uint32{}
	e.state = 0
	e.memberFinished = false
}

func (e *FastEncoder) Write(p []byte) (n int, err error) {
	for len(p) > 0 {
		k := e.mb.writeData(p)
		if k == 0 {
			break
		}
		p = p[k:]
		n += k
	}
	return n, nil
}

func (e *FastEncoder) Finish() { e.mb.finish() }

// WriteHeaderBytes stages raw bytes directly into the output buffer
// ahead of any coded symbols, used by the container layer to emit a
// member's 6-byte header before the LZMA stream begins.
func (e *FastEncoder) WriteHeaderBytes(hdr []byte) {
	for _, b := range hdr {
		e.renc.cb.putByte(b)
	}
}

func (e *FastEncoder) MemberFinished() bool { return e.memberFinished && e.renc.cb.empty() }

func (e *FastEncoder) ReadData(p []byte) int { return e.renc.readData(p) }

// WriteSize reports how many more literal bytes Write can currently
// accept before the lookahead window backs up.
func (e *FastEncoder) WriteSize() int { return e.mb.freeBytes() }

// DataPosition reports how many literal bytes have been queued for
// the member currently in progress.
func (e *FastEncoder) DataPosition() uint64 { return e.mb.dataPosition() }

// MemberPosition reports how many coded bytes the member currently in
// progress has produced so far, including bytes still staged for
// ReadData.
func (e *FastEncoder) MemberPosition() uint64 { return e.renc.memberPosition() }

func (e *FastEncoder) crcUpdate(b byte) { e.crc = crc32.Update(e.crc, crc32.IEEETable, []byte{b}) }

func (e *FastEncoder) hashKey(pos int32) (uint32, bool) {
	if e.mb.availableBytes() < e.roller.Len() {
		return 0, false
	}
	var h uint64
	for i := 0; i < e.roller.Len(); i++ {
		h = e.roller.AddYoung(h, e.mb.buffer[pos+int32(i)])
	}
	return uint32(h) & (1<<fastHashBits - 1), true
}

func (e *FastEncoder) encodeLiteral(prevByte, symbol byte) {
	e.renc.encodeTree(e.bmLiteral[getLitState(prevByte, 0)][:], 8, uint32(symbol))
}

func (e *FastEncoder) encodeMatchedLiteral(prevByte, symbol, matchByte byte) {
	e.renc.encodeMatched(e.bmLiteral[getLitState(prevByte, 0)][:], uint32(symbol), uint32(matchByte))
}

func (e *FastEncoder) encodePair(dis uint32, length, posState int) {
	disSlot := getSlot(dis)
	e.renc.encodeLen(e.matchLenModel, length, posState)
	e.renc.encodeTree(e.bmDisSlot[getLenState(length)][:], disSlotBits, disSlot)
	if disSlot >= startDisModel {
		directBits := int(disSlot>>1) - 1
		base := (2 | (disSlot & 1)) << uint(directBits)
		directDis := dis - base
		if disSlot < endDisModel {
			e.renc.encodeTreeReversed(e.bmDis[base-disSlot:], directBits, directDis)
		} else {
			e.renc.encodeDirect(directDis>>disAlignBits, directBits-disAlignBits)
			e.renc.encodeTreeReversed(e.bmAlign[:], disAlignBits, directDis)
		}
	}
}

func (e *FastEncoder) tryFullFlush() bool {
	posState := int(e.mb.dataPosition()) & posStateMask
	st := e.state
	if e.memberFinished || e.renc.cb.free() < maxMarkerSize+e.renc.ffCount+trailerSize {
		return false
	}
	e.memberFinished = true
	e.renc.encodeBit(&e.bmMatch[st][posState], 1)
	e.renc.encodeBit(&e.bmRep[st], 0)
	e.encodePair(0xFFFFFFFF, minMatchLen, posState)
	e.renc.flush()

	var trailer [trailerSize]byte
	putTrailerCRC(&trailer, e.crc)
	putTrailerDataSize(&trailer, e.mb.dataPosition())
	putTrailerMemberSize(&trailer, e.renc.memberPosition()+trailerSize)
	for _, b := range trailer {
		e.renc.cb.putByte(b)
	}
	return true
}

// TrySyncFlush emits a sync-flush marker without ending the member;
// see Encoder.TrySyncFlush for the exact semantics.
func (e *FastEncoder) TrySyncFlush() bool {
	minSize := e.renc.ffCount + maxMarkerSize
	if e.memberFinished || e.renc.cb.free() < minSize+maxMarkerSize {
		return false
	}
	oldPos := e.renc.memberPosition()
	for {
		posState := int(e.mb.dataPosition()) & posStateMask
		st := e.state
		e.renc.encodeBit(&e.bmMatch[st][posState], 1)
		e.renc.encodeBit(&e.bmRep[st], 0)
		e.encodePair(0xFFFFFFFF, minMatchLen+1, posState)
		e.renc.flush()
		if e.renc.memberPosition()-oldPos >= uint64(minSize) {
			break
		}
	}
	return true
}

// Encode runs the greedy single-candidate matcher: for every position
// it looks up one hash-table candidate and the four repeat distances,
// preferring a rep match over an ordinary one whenever the rep is
// fewer than 3 bytes shorter, falling back to a price-compared short
// rep and finally a plain literal.
func (e *FastEncoder) Encode() {
	for {
		if e.memberFinished {
			return
		}
		if e.renc.cb.free() < encoderMinFreeBytes {
			return
		}
		if e.mb.availableBytes() < 1 {
			if e.mb.dataFinished() {
				if e.tryFullFlush() {
					continue
				}
			}
			return
		}

		posState := int(e.mb.dataPosition()) & posStateMask
		st := e.state
		pos := e.mb.pos
		symbol := e.mb.buffer[pos]
		var prevByte byte
		if e.mb.dataPosition() > 0 {
			prevByte = e.mb.buffer[pos-1]
		}

		matchDis, matchLen := uint32(0), 0
		if key, ok := e.hashKey(pos); ok {
			cand := e.table[key]
			e.table[key] = pos
			if cand >= 0 && pos-cand <= int32(e.mb.dictionarySize) {
				matchLen = e.mb.matchLenAt(uint32(pos - cand - 1))
				if matchLen > e.matchLenLimit {
					matchLen = e.matchLenLimit
				}
				matchDis = uint32(pos - cand - 1)
			}
		}
		repLen, repIdx := 0, 0
		for i, r := range e.reps {
			l := e.mb.matchLenAt(r)
			if l > e.matchLenLimit {
				l = e.matchLenLimit
			}
			if l > repLen {
				repLen, repIdx = l, i
			}
		}

		switch {
		case repLen > minMatchLen && repLen+3 > matchLen:
			e.renc.encodeBit(&e.bmMatch[st][posState], 1)
			e.renc.encodeBit(&e.bmRep[st], 1)
			e.renc.encodeBit(&e.bmRep0[st], boolBit(repIdx != 0))
			if repIdx == 0 {
				e.renc.encodeBit(&e.bmLen[st][posState], 1)
			} else {
				e.renc.encodeBit(&e.bmRep1[st], boolBit(repIdx > 1))
				if repIdx > 1 {
					e.renc.encodeBit(&e.bmRep2[st], boolBit(repIdx > 2))
				}
				e.moveRepToFront(repIdx)
			}
			e.state = e.state.afterRep()
			e.renc.encodeLen(e.repLenModel, repLen, posState)
			e.advanceMatch(repLen)
		case matchLen > minMatchLen:
			e.renc.encodeBit(&e.bmMatch[st][posState], 1)
			e.renc.encodeBit(&e.bmRep[st], 0)
			e.state = e.state.afterMatch()
			e.reps[3], e.reps[2], e.reps[1] = e.reps[2], e.reps[1], e.reps[0]
			e.reps[0] = matchDis
			e.encodePair(matchDis, matchLen, posState)
			e.advanceMatch(matchLen)
		default:
			var matchByte byte
			haveMatchByte := e.mb.dataPosition() > 0
			if haveMatchByte {
				matchByte = e.mb.buffer[pos-int32(e.reps[0])-1]
			}
			if haveMatchByte && matchByte == symbol {
				shortRepPrice := price1(e.bmMatch[st][posState]) + price1(e.bmRep[st]) +
					price0(e.bmRep0[st]) + price0(e.bmLen[st][posState])
				price := price0(e.bmMatch[st][posState])
				if st.isChar() {
					price += e.priceLiteral(prevByte, symbol)
				} else {
					price += e.priceMatchedLiteral(prevByte, symbol, matchByte)
				}
				if shortRepPrice < price {
					e.renc.encodeBit(&e.bmMatch[st][posState], 1)
					e.renc.encodeBit(&e.bmRep[st], 1)
					e.renc.encodeBit(&e.bmRep0[st], 0)
					e.renc.encodeBit(&e.bmLen[st][posState], 0)
					e.state = e.state.afterShortRep()
					e.crcUpdate(symbol)
					e.mb.movePos()
					continue
				}
			}
			e.renc.encodeBit(&e.bmMatch[st][posState], 0)
			if st.isChar() {
				e.encodeLiteral(prevByte, symbol)
			} else {
				e.encodeMatchedLiteral(prevByte, symbol, matchByte)
			}
			e.crcUpdate(symbol)
			e.state = e.state.afterChar()
			e.mb.movePos()
		}
	}
}

func (e *FastEncoder) moveRepToFront(index int) {
	d := e.reps[index]
	for i := index; i > 0; i-- {
		e.reps[i] = e.reps[i-1]
	}
	e.reps[0] = d
}

func (e *FastEncoder) priceLiteral(prevByte, symbol byte) int {
	return priceSymbolTree(e.bmLiteral[getLitState(prevByte, 0)][:], 8, uint32(symbol))
}

func (e *FastEncoder) priceMatchedLiteral(prevByte, symbol, matchByte byte) int {
	return priceMatched(e.bmLiteral[getLitState(prevByte, 0)][:], uint32(symbol), uint32(matchByte))
}

func (e *FastEncoder) advanceMatch(length int) {
	pos := e.mb.pos
	for i := 0; i < length; i++ {
		e.crcUpdate(e.mb.buffer[pos+int32(i)])
	}
	for i := 0; i < length; i++ {
		e.mb.movePos()
	}
}
