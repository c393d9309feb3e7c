// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzma

// probability is an adaptive 11-bit probability cell shared by the
// range encoder and decoder. It starts equiprobable and is nudged
// toward the bit it just observed by bitModelMoveBits on every use.
type probability uint16

const (
	bitModelTotalBits = 11
	bitModelTotal     = 1 << bitModelTotalBits
	bitModelMoveBits  = 5

	probInit probability = bitModelTotal / 2
)

func newProbSlice(n int) []probability {
	p := make([]probability, n)
	for i := range p {
		p[i] = probInit
	}
	return p
}

// lenModel is the two-choice, three-subtree length coder shared by
// match and rep lengths; pos_state selects among the low/mid rows.
type lenModel struct {
	choice1 probability
	choice2 probability
	low     [posStates][]probability
	mid     [posStates][]probability
	high    []probability
}

func newLenModel() *lenModel {
	lm := &lenModel{
		choice1: probInit,
		choice2: probInit,
		high:    newProbSlice(lenHighSymbols),
	}
	for i := 0; i < posStates; i++ {
		lm.low[i] = newProbSlice(lenLowSymbols)
		lm.mid[i] = newProbSlice(lenMidSymbols)
	}
	return lm
}

func (lm *lenModel) reset() {
	lm.choice1, lm.choice2 = probInit, probInit
	for i := 0; i < posStates; i++ {
		for j := range lm.low[i] {
			lm.low[i][j] = probInit
		}
		for j := range lm.mid[i] {
			lm.mid[i][j] = probInit
		}
	}
	for j := range lm.high {
		lm.high[j] = probInit
	}
}
