// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzma

import "hash/crc32"

// encoderMinFreeBytes mirrors the decoder's slack: the largest number
// of coded bytes one symbol can ever need once flushed.
const encoderMinFreeBytes = maxMarkerSize + trailerSize

// Encoder turns literal bytes into a lzip member's LZMA stream. It
// runs spec's dynamic-programming sequence optimizer over the
// binary-tree match finder: a trials array is relaxed forward from
// the current position (seeding a literal/short-rep continuation and
// every reachable rep/ordinary-match length, including two-step
// match-then-forced-literal-then-rep0 combinations), then walked
// backward once it runs out of lookahead or hits a long match, so the
// coded symbols it emits are the cheapest path the lookahead window
// could find rather than a single-position guess.
type Encoder struct {
	mb   *matchFinder
	renc *rangeEncoder

	cycles        int
	matchLenLimit int
	numDisSlots   int

	memberSizeLimit uint64
	memberFinished  bool
	crc             uint32

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

	matchLenPrices *lenPrices
	repLenPrices   *lenPrices

	// disSlotPrices/disPrices/alignPrices cache LZe_price_pair's three
	// model components per len_state so pricePair is a slice lookup
	// instead of a tree-price recomputation; refreshed on their own
	// cadence since align prices (the 4 least-significant distance
	// bits, coded directly rather than adaptively modeled above
	// end_dis_model) drift far more slowly than match lengths do.
	disSlotPrices [lenStates][2 * maxDictionaryBits]int
	disPrices     [lenStates][modeledDistances]int
	alignPrices   [disAlignSize]int

	priceCounter      int
	disPriceCounter   int
	alignPriceCounter int

	priceCountPeriod      int
	disPriceCountPeriod   int
	alignPriceCountPeriod int

	trials           [maxNumTrials]trial
	pendingPairs     []pair
	havePendingPairs bool
}

const maxDictionaryBits = 29

// matchLenLimit selects how long a match the binary-tree finder will
// chase before giving up, per the compression-level table; cycles
// bounds the finder's per-position tree-walk budget.
func matchLenLimitCycles(matchLenLimit int) int {
	if matchLenLimit < 12 {
		return 16 + matchLenLimit/2
	}
	return 256
}

// NewEncoder allocates an encoder over a fresh dictionary window of
// dictSize bytes, chasing matches no longer than matchLenLimit.
func NewEncoder(dictSize uint32, matchLenLimit int, memberSizeLimit uint64) *Encoder {
	e := &Encoder{
		mb:            newMatchFinder(maxMatchLen, int(dictSize), maxMatchLen, 2, 1<<16, 2),
		renc:          newRangeEncoder(encoderMinFreeBytes),
		matchLenLimit: matchLenLimit,
		cycles:        matchLenLimitCycles(matchLenLimit),
		matchLenModel: newLenModel(),
		repLenModel:   newLenModel(),
	}
	e.matchLenPrices = newLenPrices(e.matchLenModel, matchLenLimit)
	e.repLenPrices = newLenPrices(e.repLenModel, matchLenLimit)

	// The three price-table refresh cadences: with a match-len limit
	// above 12, distance and align prices are recomputed after every
	// match (every long-distance match for align); otherwise after 512
	// matches and 16 long-distance matches. The refresh pass itself
	// runs every 1013 bytes above a limit of 36, every 4093 otherwise.
	if matchLenLimit > 12 {
		e.disPriceCountPeriod = 1
		e.alignPriceCountPeriod = 1
	} else {
		e.disPriceCountPeriod = 512
		e.alignPriceCountPeriod = disAlignSize
	}
	if matchLenLimit > 36 {
		e.priceCountPeriod = 1013
	} else {
		e.priceCountPeriod = 4093
	}

	e.ResetMember(memberSizeLimit)
	return e
}

// ResetMember starts a new member: fresh dictionary, fresh adaptive
// probabilities, fresh CRC, ready to accept Write calls again.
func (e *Encoder) ResetMember(memberSize uint64) {
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
	e.matchLenPrices.init(e.matchLenModel, e.matchLenLimit)
	e.repLenPrices.init(e.repLenModel, e.matchLenLimit)
	e.renc.reset()
	e.reps = [numRepDistances]uint32{}
	e.state = 0
	e.memberFinished = false
	e.numDisSlots = 2 * int(realBits(dictSizeMinusOne(e.mb.dictionarySize)))
	e.priceCounter = 0
	e.disPriceCounter = 0
	e.alignPriceCounter = 0
	e.pendingPairs = nil
	e.havePendingPairs = false
	e.trials[1].prevIndex = 0
	e.trials[1].prevIndex2 = singleStepTrial
}

func dictSizeMinusOne(size uint32) uint32 { return size - 1 }

// Write feeds literal bytes into the dictionary's lookahead window.
func (e *Encoder) Write(p []byte) (n int, err error) {
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

// Finish tells the encoder no more literal bytes are coming.
func (e *Encoder) Finish() { e.mb.finish() }

// WriteHeaderBytes stages raw bytes directly into the output buffer
// ahead of any coded symbols, used by the container layer to emit a
// member's 6-byte header before the LZMA stream begins.
func (e *Encoder) WriteHeaderBytes(hdr []byte) {
	for _, b := range hdr {
		e.renc.cb.putByte(b)
	}
}

func (e *Encoder) MemberFinished() bool { return e.memberFinished && e.renc.cb.empty() }

// ReadData drains up to len(p) coded bytes from the encoder's output
// staging buffer.
func (e *Encoder) ReadData(p []byte) int { return e.renc.readData(p) }

func (e *Encoder) enoughFreeBytes() bool { return e.renc.enoughFreeBytes() }

// WriteSize reports how many more literal bytes Write can currently
// accept before the lookahead window backs up.
func (e *Encoder) WriteSize() int { return e.mb.freeBytes() }

// DataPosition reports how many literal bytes have been queued for
// the member currently in progress.
func (e *Encoder) DataPosition() uint64 { return e.mb.dataPosition() }

// MemberPosition reports how many coded bytes the member currently in
// progress has produced so far, including bytes still staged for
// ReadData.
func (e *Encoder) MemberPosition() uint64 { return e.renc.memberPosition() }

func (e *Encoder) crcUpdate(b byte) { e.crc = crc32.Update(e.crc, crc32.IEEETable, []byte{b}) }

func (e *Encoder) priceLiteral(prevByte, symbol byte) int {
	return priceSymbolTree(e.bmLiteral[getLitState(prevByte, 0)][:], 8, uint32(symbol))
}

func (e *Encoder) priceMatchedLiteral(prevByte, symbol, matchByte byte) int {
	return priceMatched(e.bmLiteral[getLitState(prevByte, 0)][:], uint32(symbol), uint32(matchByte))
}

func (e *Encoder) encodeLiteral(prevByte, symbol byte) {
	e.renc.encodeTree(e.bmLiteral[getLitState(prevByte, 0)][:], 8, uint32(symbol))
}

func (e *Encoder) encodeMatchedLiteral(prevByte, symbol, matchByte byte) {
	e.renc.encodeMatched(e.bmLiteral[getLitState(prevByte, 0)][:], uint32(symbol), uint32(matchByte))
}

// encodePair emits a match's length and distance, choosing between
// the small reversed-tree distance coder and the direct+align coder
// depending on how large the distance slot is.
func (e *Encoder) encodePair(dis uint32, length, posState int) {
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

// pricePair is an O(1) lookup into disPrices/disSlotPrices/alignPrices
// instead of recomputing the distance-slot and direct-bits tree
// prices from scratch on every call.
func (e *Encoder) pricePair(dis uint32, length, posState int) int {
	lenState := getLenState(length)
	price := e.matchLenPrices.price(length, posState)
	if dis < modeledDistances {
		return price + e.disPrices[lenState][dis]
	}
	return price + e.disSlotPrices[lenState][getSlot(dis)] + e.alignPrices[dis&(disAlignSize-1)]
}

// updateDistancePrices refreshes the cache pricePair reads: the
// reversed-tree price of every modeled distance below
// modeledDistances, the distance-slot tree price for every slot the
// dictionary size can reach (plus the direct-bit price for slots at or
// above end_dis_model), and folds each modeled distance's slot price
// into its entry so pricePair never has to walk a tree itself.
func (e *Encoder) updateDistancePrices() {
	for dis := startDisModel; dis < modeledDistances; dis++ {
		disSlot := int(getSlot(uint32(dis)))
		directBits := (disSlot >> 1) - 1
		base := (2 | (disSlot & 1)) << uint(directBits)
		price := priceSymbolReversed(e.bmDis[base-disSlot:], uint32(dis-base), directBits)
		for lenState := 0; lenState < lenStates; lenState++ {
			e.disPrices[lenState][dis] = price
		}
	}

	for lenState := 0; lenState < lenStates; lenState++ {
		dsp := &e.disSlotPrices[lenState]
		dp := &e.disPrices[lenState]
		bmds := e.bmDisSlot[lenState][:]
		slot := 0
		for ; slot < endDisModel; slot++ {
			dsp[slot] = priceSymbolTree(bmds, disSlotBits, uint32(slot))
		}
		for ; slot < e.numDisSlots; slot++ {
			dsp[slot] = priceSymbolTree(bmds, disSlotBits, uint32(slot)) +
				(((slot >> 1) - 1 - disAlignBits) << priceShiftBits)
		}
		for dis := 0; dis < startDisModel; dis++ {
			dp[dis] = dsp[dis]
		}
		for dis := startDisModel; dis < modeledDistances; dis++ {
			dp[dis] += dsp[getSlot(uint32(dis))]
		}
	}
}

// tryFullFlush emits the end-of-stream marker (an infinite-distance,
// minimum-length match) and the trailer, if enough output room is
// free; it is the only way memberFinished ever becomes true.
func (e *Encoder) tryFullFlush() bool {
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

// TrySyncFlush emits a sync-flush marker (distance 0xFFFFFFFF, length
// min_match_len+1) and flushes the range coder, repeating until at
// least ffCount+max_marker_size bytes have been produced, without
// ending the member: the dictionary, adaptive models and rep
// distances all carry over, and a later Write resumes mid-stream. It
// reports false, doing nothing, when there isn't enough free output
// room yet or the member is already finished.
func (e *Encoder) TrySyncFlush() bool {
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

// priceShortRep prices a length-1 rep0 match (the bytes at distance
// reps[0]+1 happen to repeat for a single byte): bm_rep0=0 followed by
// the length model's "not longer than 1" bit.
func (e *Encoder) priceShortRep(st state, posState int) int {
	return price0(e.bmRep0[st]) + price0(e.bmLen[st][posState])
}

// priceRepSelector prices the bits that choose which of the four rep
// distances is being used, excluding both the leading is-match/is-rep
// bits (callers price those together with the ordinary-match
// alternative) and the length itself.
func (e *Encoder) priceRepSelector(st state, index, posState int) int {
	if index == 0 {
		return price0(e.bmRep0[st]) + price1(e.bmLen[st][posState])
	}
	price := price1(e.bmRep0[st])
	switch index {
	case 1:
		price += price0(e.bmRep1[st])
	case 2:
		price += price1(e.bmRep1[st]) + price0(e.bmRep2[st])
	default:
		price += price1(e.bmRep1[st]) + price1(e.bmRep2[st])
	}
	return price
}

// encodeRepSelector emits the bits choosing rep distance index;
// lenGreaterThanOne only matters for index 0, where the length model's
// leading bit distinguishes a length-1 short rep from a longer one
// that still needs its length coded.
func (e *Encoder) encodeRepSelector(index, posState int, lenGreaterThanOne bool) {
	st := e.state
	if index == 0 {
		e.renc.encodeBit(&e.bmRep0[st], 0)
		e.renc.encodeBit(&e.bmLen[st][posState], boolBit(lenGreaterThanOne))
		return
	}
	e.renc.encodeBit(&e.bmRep0[st], 1)
	switch index {
	case 1:
		e.renc.encodeBit(&e.bmRep1[st], 0)
	case 2:
		e.renc.encodeBit(&e.bmRep1[st], 1)
		e.renc.encodeBit(&e.bmRep2[st], 0)
	default:
		e.renc.encodeBit(&e.bmRep1[st], 1)
		e.renc.encodeBit(&e.bmRep2[st], 1)
	}
}

func boolBit(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Encode drives the encoder over buffered input. Each pass refreshes
// whichever price caches have gone stale, runs the sequence optimizer
// to resolve a batch of symbols, and emits them; it returns once
// neither the match finder nor the output buffer can make progress.
func (e *Encoder) Encode() {
	for {
		if e.memberFinished {
			return
		}
		if !e.enoughFreeBytes() {
			return
		}
		if uint64(e.renc.memberPosition()) >= e.memberSizeLimit {
			if e.tryFullFlush() {
				continue
			}
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

		if e.mb.dataPosition() == 0 {
			curByte := e.mb.buffer[e.mb.pos]
			e.renc.encodeBit(&e.bmMatch[e.state][0], 0)
			e.encodeLiteral(0, curByte)
			e.crcUpdate(curByte)
			e.mb.getMatchPairs(e.cycles, e.matchLenLimit)
			if !e.mb.movePos() {
				return
			}
			continue
		}

		if e.priceCounter <= 0 && !e.havePendingPairs {
			e.priceCounter = e.priceCountPeriod
			if e.disPriceCounter <= 0 {
				e.disPriceCounter = e.disPriceCountPeriod
				e.updateDistancePrices()
			}
			if e.alignPriceCounter <= 0 {
				e.alignPriceCounter = e.alignPriceCountPeriod
				for i := 0; i < disAlignSize; i++ {
					e.alignPrices[i] = priceSymbolReversed(e.bmAlign[:], uint32(i), disAlignBits)
				}
			}
			e.matchLenPrices.update()
			e.repLenPrices.update()
		}

		ahead := e.sequenceOptimizer(e.reps, e.state)
		e.priceCounter -= ahead
		if ahead == 0 {
			return
		}

		for i := 0; ahead > 0; {
			posState := int(e.mb.dataPosition()-uint64(ahead)) & posStateMask
			length := e.trials[i].price
			dis4 := e.trials[i].dis4
			st := e.state

			if dis4 < 0 {
				prevByte := e.mb.peek(int32(ahead) + 1)
				curByte := e.mb.peek(int32(ahead))
				e.renc.encodeBit(&e.bmMatch[st][posState], 0)
				e.crcUpdate(curByte)
				if st.isChar() {
					e.encodeLiteral(prevByte, curByte)
				} else {
					matchByte := e.mb.peek(int32(ahead) + int32(e.reps[0]) + 1)
					e.encodeMatchedLiteral(prevByte, curByte, matchByte)
				}
				e.state = e.state.afterChar()
			} else {
				base := e.mb.pos - int32(ahead)
				for k := 0; k < length; k++ {
					e.crcUpdate(e.mb.buffer[base+int32(k)])
				}
				mtfReps(dis4, &e.reps)
				isRep := dis4 < numRepDistances
				e.renc.encodeBit(&e.bmMatch[st][posState], 1)
				e.renc.encodeBit(&e.bmRep[st], boolBit(isRep))
				if isRep {
					e.encodeRepSelector(dis4, posState, length > 1)
					if length == 1 {
						e.state = e.state.afterShortRep()
					} else {
						e.renc.encodeLen(e.repLenModel, length, posState)
						e.repLenPrices.decrementCounter(posState)
						e.state = e.state.afterRep()
					}
				} else {
					dis := dis4 - numRepDistances
					e.encodePair(uint32(dis), length, posState)
					if dis >= modeledDistances {
						e.alignPriceCounter--
					}
					e.disPriceCounter--
					e.matchLenPrices.decrementCounter(posState)
					e.state = e.state.afterMatch()
				}
			}

			ahead -= length
			i += length
			if e.renc.memberPosition() >= e.memberSizeLimit {
				if !e.mb.decPos(ahead) {
					return
				}
				e.tryFullFlush()
				return
			}
		}
	}
}
