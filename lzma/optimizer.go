// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzma

// The sequence optimizer relaxes a trials array forward from the
// match finder's current position — the cheapest known coded price to
// reach each lookahead offset — then walks it backward once the
// lookahead runs out or a sufficiently long match makes further
// search pointless, turning the backward walk into a forward-readable
// edit script the caller can emit directly.
const (
	maxNumTrials = 1 << 13

	infinitePrice = 0x0FFFFFFF

	// singleStepTrial marks a trial reached by a plain one-symbol
	// transition from prevIndex. dualStepTrial marks a trial reached
	// by skipping over one intervening trial (an implied literal)
	// whose own edit is reconstructed as prevIndex-1 during
	// backward. Non-negative prevIndex2 values point at a genuine
	// second trial used by a three-step match/rep-then-forced-literal-
	// then-rep0 combination.
	singleStepTrial = -2
	dualStepTrial   = -1
)

// charRepState is the coder state assigned to a trial reached by a
// multi-step combination ending in a rep0 match; it selects the
// probability contexts for that trial's continuations, and backward
// reconstructs the intermediate literal it represents before emission.
const charRepState state = 8

// trial is one node of the optimizer's dynamic-programming table.
// dis4 encodes the edit that reaches this trial from prevIndex: values
// below numRepDistances select one of the four rep distances, values
// at or above it select an ordinary match at distance dis4-numRepDistances.
// A negative dis4 (only ever -1) marks a plain literal.
type trial struct {
	state      state
	price      int
	dis4       int
	prevIndex  int
	prevIndex2 int
	reps       [numRepDistances]uint32
}

func (t *trial) update(pr, dis4, prevIndex int) {
	if pr < t.price {
		t.price = pr
		t.dis4 = dis4
		t.prevIndex = prevIndex
		t.prevIndex2 = singleStepTrial
	}
}

func (t *trial) update2(pr, prevIndex int) {
	if pr < t.price {
		t.price = pr
		t.dis4 = 0
		t.prevIndex = prevIndex
		t.prevIndex2 = dualStepTrial
	}
}

func (t *trial) update3(pr, dis4, prevIndex, prevIndex2 int) {
	if pr < t.price {
		t.price = pr
		t.dis4 = dis4
		t.prevIndex = prevIndex
		t.prevIndex2 = prevIndex2
	}
}

// mtfReps moves a resolved dis4 to the front of the rep-distance move-
// to-front list: dis4 < numRepDistances promotes an existing rep,
// otherwise dis4-numRepDistances is a fresh ordinary-match distance
// pushed onto the front.
func mtfReps(dis4 int, reps *[numRepDistances]uint32) {
	switch {
	case dis4 >= numRepDistances:
		reps[3], reps[2], reps[1] = reps[2], reps[1], reps[0]
		reps[0] = uint32(dis4 - numRepDistances)
	case dis4 > 0:
		d := reps[dis4]
		for i := dis4; i > 0; i-- {
			reps[i] = reps[i-1]
		}
		reps[0] = d
	}
}

// readMatchDistances reads the match finder's candidate pairs at the
// current position, extending the longest one past matchLenLimit when
// the true match reaches further, so the optimizer's "long match"
// shortcut sees the real length rather than an artificially truncated
// one.
func (e *Encoder) readMatchDistances() []pair {
	pairs := e.mb.getMatchPairs(e.cycles, e.matchLenLimit)
	if n := len(pairs); n > 0 {
		last := &pairs[n-1]
		if int(last.len) == e.matchLenLimit && last.len < maxMatchLen {
			last.len = int32(e.mb.trueMatchLen(int(last.len), last.dis+1))
		}
	}
	return pairs
}

// moveAndUpdate advances the match finder n positions, still updating
// its hash chains for the positions it skips over, used once a long
// match or rep has already been committed to and the intervening
// positions never need their own pairs reported.
func (e *Encoder) moveAndUpdate(n int) bool {
	for {
		if !e.mb.movePos() {
			return false
		}
		n--
		if n <= 0 {
			break
		}
		e.mb.getMatchPairs(e.cycles, e.matchLenLimit)
	}
	return true
}

// backward walks the prev_index/prev_index2 chain from the final
// resolved trial back to trials[0], rewriting each trial in place so
// trials[0:ahead] read forward as (price=length, dis4=edit) pairs the
// caller can emit directly instead of a reversed linked list.
func (e *Encoder) backward(cur int) {
	dis4 := e.trials[cur].dis4
	for cur > 0 {
		prevIndex := e.trials[cur].prevIndex
		prevTrial := &e.trials[prevIndex]

		if e.trials[cur].prevIndex2 != singleStepTrial {
			prevTrial.dis4 = -1
			prevTrial.prevIndex = prevIndex - 1
			prevTrial.prevIndex2 = singleStepTrial
			if e.trials[cur].prevIndex2 >= 0 {
				prevTrial2 := &e.trials[prevIndex-1]
				prevTrial2.dis4 = dis4
				dis4 = 0
				prevTrial2.prevIndex = e.trials[cur].prevIndex2
				prevTrial2.prevIndex2 = singleStepTrial
			}
		}
		prevTrial.price = cur - prevIndex
		cur, dis4 = dis4, prevTrial.dis4
		prevTrial.dis4 = cur
		cur = prevIndex
	}
}

// sequenceOptimizer relaxes trials[0:] forward from the match finder's
// current position given the coder state and rep distances at entry,
// returning how many bytes of lookahead it resolved (0 if the match
// finder ran out of buffered input mid-run). See spec's sequence
// optimizer for the two immediate-termination shortcuts (a rep or
// ordinary match already at least matchLenLimit long) and the general
// trials-array relaxation loop, including the two-step match/rep-
// then-forced-literal-then-rep0 combinations recorded via update3.
func (e *Encoder) sequenceOptimizer(reps [numRepDistances]uint32, st state) int {
	var pairs []pair
	if e.havePendingPairs {
		pairs = e.pendingPairs
		e.pendingPairs = nil
		e.havePendingPairs = false
	} else {
		pairs = e.readMatchDistances()
	}
	numPairs := len(pairs)
	mainLen := 0
	if numPairs > 0 {
		mainLen = int(pairs[numPairs-1].len)
	}

	var replens [numRepDistances]int
	repIndex := 0
	for i, r := range reps {
		replens[i] = e.mb.matchLenAt(r)
		if replens[i] > replens[repIndex] {
			repIndex = i
		}
	}

	if replens[repIndex] >= e.matchLenLimit {
		e.trials[0].price = replens[repIndex]
		e.trials[0].dis4 = repIndex
		if !e.moveAndUpdate(replens[repIndex]) {
			return 0
		}
		return replens[repIndex]
	}

	if mainLen >= e.matchLenLimit {
		e.trials[0].price = mainLen
		e.trials[0].dis4 = int(pairs[numPairs-1].dis) + numRepDistances
		if !e.moveAndUpdate(mainLen) {
			return 0
		}
		return mainLen
	}

	posState := int(e.mb.dataPosition()) & posStateMask
	matchPrice := price1(e.bmMatch[st][posState])
	repMatchPrice := matchPrice + price1(e.bmRep[st])
	prevByte := e.mb.peek(1)
	curByte := e.mb.peek(0)
	matchByte := e.mb.peek(int32(reps[0]) + 1)

	e.trials[1].price = price0(e.bmMatch[st][posState])
	if st.isChar() {
		e.trials[1].price += e.priceLiteral(prevByte, curByte)
	} else {
		e.trials[1].price += e.priceMatchedLiteral(prevByte, curByte, matchByte)
	}
	e.trials[1].dis4 = -1

	if matchByte == curByte {
		e.trials[1].update(repMatchPrice+e.priceShortRep(st, posState), 0, 0)
	}

	numTrials := mainLen
	if replens[repIndex] > numTrials {
		numTrials = replens[repIndex]
	}

	if numTrials < minMatchLen {
		e.trials[0].price = 1
		e.trials[0].dis4 = e.trials[1].dis4
		if !e.mb.movePos() {
			return 0
		}
		return 1
	}

	e.trials[0].state = st
	e.trials[0].reps = reps

	for length := minMatchLen; length <= numTrials; length++ {
		e.trials[length].price = infinitePrice
	}

	for rep := 0; rep < numRepDistances; rep++ {
		if replens[rep] < minMatchLen {
			continue
		}
		price := repMatchPrice + e.priceRepSelector(st, rep, posState)
		for length := minMatchLen; length <= replens[rep]; length++ {
			e.trials[length].update(price+e.repLenPrices.price(length, posState), rep, 0)
		}
	}

	if mainLen > replens[0] {
		normalMatchPrice := matchPrice + price0(e.bmRep[st])
		length := replens[0] + 1
		if length < minMatchLen {
			length = minMatchLen
		}
		i := 0
		for length > int(pairs[i].len) {
			i++
		}
		for {
			dis := pairs[i].dis
			e.trials[length].update(normalMatchPrice+e.pricePair(uint32(dis), length, posState), int(dis)+numRepDistances, 0)
			length++
			if length > int(pairs[i].len) {
				i++
				if i >= numPairs {
					break
				}
			}
		}
	}

	cur := 0
	for {
		if !e.mb.movePos() {
			return 0
		}
		cur++
		if cur >= numTrials {
			e.backward(cur)
			return cur
		}

		pairs = e.readMatchDistances()
		numPairs = len(pairs)
		newlen := 0
		if numPairs > 0 {
			newlen = int(pairs[numPairs-1].len)
		}
		if newlen >= e.matchLenLimit {
			e.pendingPairs = pairs
			e.havePendingPairs = true
			e.backward(cur)
			return cur
		}

		curTrial := &e.trials[cur]
		dis4 := curTrial.dis4
		prevIndex := curTrial.prevIndex
		prevIndex2 := curTrial.prevIndex2
		var curState state
		if prevIndex2 == singleStepTrial {
			curState = e.trials[prevIndex].state
			if prevIndex+1 == cur {
				if dis4 == 0 {
					curState = curState.afterShortRep()
				} else {
					curState = curState.afterChar()
				}
			} else if dis4 < numRepDistances {
				curState = curState.afterRep()
			} else {
				curState = curState.afterMatch()
			}
		} else {
			if prevIndex2 == dualStepTrial {
				prevIndex--
			} else {
				prevIndex = prevIndex2
			}
			curState = charRepState
		}
		curTrial.state = curState
		curTrial.reps = e.trials[prevIndex].reps
		mtfReps(dis4, &curTrial.reps)

		posState = int(e.mb.dataPosition()) & posStateMask
		prevByte = e.mb.peek(1)
		curByte = e.mb.peek(0)
		matchByte = e.mb.peek(int32(curTrial.reps[0]) + 1)

		nextPrice := curTrial.price + price0(e.bmMatch[curState][posState])
		if curState.isChar() {
			nextPrice += e.priceLiteral(prevByte, curByte)
		} else {
			nextPrice += e.priceMatchedLiteral(prevByte, curByte, matchByte)
		}

		nextTrial := &e.trials[cur+1]
		nextTrial.update(nextPrice, -1, cur)

		matchPrice = curTrial.price + price1(e.bmMatch[curState][posState])
		repMatchPrice = matchPrice + price1(e.bmRep[curState])

		if matchByte == curByte && nextTrial.dis4 != 0 && nextTrial.prevIndex2 == singleStepTrial {
			price := repMatchPrice + e.priceShortRep(curState, posState)
			if price <= nextTrial.price {
				nextTrial.price = price
				nextTrial.dis4 = 0
				nextTrial.prevIndex = cur
			}
		}

		avail := e.mb.availableBytes()
		triableBytes := avail
		if maxNumTrials-1-cur < triableBytes {
			triableBytes = maxNumTrials - 1 - cur
		}
		if triableBytes < minMatchLen {
			continue
		}
		lenLimit := e.matchLenLimit
		if triableBytes < lenLimit {
			lenLimit = triableBytes
		}

		startLen := minMatchLen

		if matchByte != curByte && nextTrial.prevIndex != cur {
			dis := int32(curTrial.reps[0]) + 1
			limit := e.matchLenLimit + 1
			if triableBytes < limit {
				limit = triableBytes
			}
			length := 1
			for length < limit && e.mb.at(int32(length)-dis) == e.mb.at(int32(length)) {
				length++
			}
			length--
			if length >= minMatchLen {
				posState2 := (posState + 1) & posStateMask
				state2 := curState.afterChar()
				price := nextPrice + price1(e.bmMatch[state2][posState2]) + price1(e.bmRep[state2]) +
					e.priceRepSelector(state2, 0, posState2) + e.repLenPrices.price(length, posState2)
				for numTrials < cur+1+length {
					numTrials++
					e.trials[numTrials].price = infinitePrice
				}
				e.trials[cur+1+length].update2(price, cur+1)
			}
		}

		for rep := 0; rep < numRepDistances; rep++ {
			dis := int32(curTrial.reps[rep]) + 1
			if e.mb.at(-dis) != e.mb.at(0) || e.mb.at(1-dis) != e.mb.at(1) {
				continue
			}
			length := minMatchLen
			for length < lenLimit && e.mb.at(int32(length)-dis) == e.mb.at(int32(length)) {
				length++
			}
			for numTrials < cur+length {
				numTrials++
				e.trials[numTrials].price = infinitePrice
			}
			price := repMatchPrice + e.priceRepSelector(curState, rep, posState)
			for i := minMatchLen; i <= length; i++ {
				e.trials[cur+i].update(price+e.repLenPrices.price(i, posState), rep, cur)
			}
			if rep == 0 {
				startLen = length + 1
			}

			len2 := length + 1
			limit := e.matchLenLimit + len2
			if triableBytes < limit {
				limit = triableBytes
			}
			for len2 < limit && e.mb.at(int32(len2)-dis) == e.mb.at(int32(len2)) {
				len2++
			}
			len2 -= length + 1
			if len2 < minMatchLen {
				continue
			}

			posState2 := (posState + length) & posStateMask
			state2 := curState.afterRep()
			price2 := price + e.repLenPrices.price(length, posState) +
				price0(e.bmMatch[state2][posState2]) +
				e.priceMatchedLiteral(e.mb.at(int32(length)-1), e.mb.at(int32(length)), e.mb.at(int32(length)-dis))
			posState2 = (posState2 + 1) & posStateMask
			state2 = state2.afterChar()
			price2 += price1(e.bmMatch[state2][posState2]) + price1(e.bmRep[state2]) +
				e.priceRepSelector(state2, 0, posState2) + e.repLenPrices.price(len2, posState2)
			for numTrials < cur+length+1+len2 {
				numTrials++
				e.trials[numTrials].price = infinitePrice
			}
			e.trials[cur+length+1+len2].update3(price2, rep, cur+length+1, cur)
		}

		if newlen >= startLen && newlen <= lenLimit {
			normalMatchPrice := matchPrice + price0(e.bmRep[curState])
			for numTrials < cur+newlen {
				numTrials++
				e.trials[numTrials].price = infinitePrice
			}
			i := 0
			for int(pairs[i].len) < startLen {
				i++
			}
			dis := pairs[i].dis
			for length := startLen; ; length++ {
				price := normalMatchPrice + e.pricePair(uint32(dis), length, posState)
				e.trials[cur+length].update(price, int(dis)+numRepDistances, cur)

				if length == int(pairs[i].len) {
					dis2 := dis + 1
					len2 := length + 1
					limit := e.matchLenLimit + len2
					if triableBytes < limit {
						limit = triableBytes
					}
					for len2 < limit && e.mb.at(int32(len2)-dis2) == e.mb.at(int32(len2)) {
						len2++
					}
					len2 -= length + 1
					if len2 >= minMatchLen {
						posState2 := (posState + length) & posStateMask
						state2 := curState.afterMatch()
						price3 := price + price0(e.bmMatch[state2][posState2]) +
							e.priceMatchedLiteral(e.mb.at(int32(length)-1), e.mb.at(int32(length)), e.mb.at(int32(length)-dis2))
						posState2 = (posState2 + 1) & posStateMask
						state2 = state2.afterChar()
						price3 += price1(e.bmMatch[state2][posState2]) + price1(e.bmRep[state2]) +
							e.priceRepSelector(state2, 0, posState2) + e.repLenPrices.price(len2, posState2)
						for numTrials < cur+length+1+len2 {
							numTrials++
							e.trials[numTrials].price = infinitePrice
						}
						e.trials[cur+length+1+len2].update3(price3, int(dis)+numRepDistances, cur+length+1, cur)
					}
					i++
					if i >= numPairs {
						break
					}
					dis = pairs[i].dis
				}
			}
		}
	}
}
