// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzma

import (
	"hash/crc32"

	"github.com/ulikunitz/lzip/xlog"
)

// decoderMinFreeBytes bounds how many bytes a single symbol can ever
// expand the sliding window by, so the decoder knows it is always
// safe to decode one more symbol once this much room is free.
const decoderMinFreeBytes = maxMatchLen

// decodeResult reports why decodeMember returned without having
// fully decoded a member.
type decodeResult int

const (
	decodeNeedInput decodeResult = iota
	decodeMemberFinished
	decodeStreamFinished
	decodeMarkerFound
	decodeBadData
)

// Decoder turns a single lzip member's LZMA stream and trailer back
// into the bytes that were compressed. It owns the sliding-window
// output buffer and every adaptive probability used while decoding.
type Decoder struct {
	cb              *circularBuffer
	rdec            *rangeDecoder
	partialDataPos  uint64
	dictionarySize  uint32
	crc             uint32
	state           state
	rep0, rep1, rep2, rep3 uint32
	memberFinished  bool
	verifyTrailerPending bool
	posWrapped      bool

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

// NewDecoder allocates a decoder whose range decoder spans however
// many members the caller feeds it; the sliding window and adaptive
// models are left uninitialized until ResetMember is called with the
// first member's header-advertised dictionary size. Callers drive it
// through WriteData/ReadHeaderBytes/ResetMember/StartMember/ReadData.
func NewDecoder() *Decoder {
	return &Decoder{
		rdec:          newRangeDecoder(),
		matchLenModel: newLenModel(),
		repLenModel:   newLenModel(),
	}
}

// StartMember arms the range decoder for a new member: its 5-byte
// prime reloads the next time enough bytes are buffered. The range
// decoder's member-relative byte count is left untouched here — it
// must already be counting from the start of this member's header,
// via TakeMemberPosition called before the header bytes were read.
// Call this once per member, right after ResetMember and a
// successfully validated header.
func (d *Decoder) StartMember() {
	d.rdec.reloadPending = true
}

// TakeMemberPosition returns the range decoder's member-relative byte
// count accumulated so far and resets it to zero. Call this
// immediately before reading a new member's header bytes, so the
// count that resumes afterward spans header + LZMA stream + trailer
// for the member about to start, matching the trailer's member_size
// field.
func (d *Decoder) TakeMemberPosition() uint64 {
	n := d.rdec.memberPosition
	d.rdec.memberPosition = 0
	return n
}

// WriteData feeds compressed member bytes (the LZMA stream and its
// trailing 20-byte trailer) into the decoder.
func (d *Decoder) WriteData(p []byte) int { return d.rdec.writeData(p) }

// Finish signals that no more compressed bytes are coming for this
// member; after the buffered bytes are consumed DecodeMember reports
// decodeStreamFinished instead of decodeNeedInput.
func (d *Decoder) Finish() { d.rdec.finish() }

// ReadHeaderBytes reads up to len(p) bytes straight out of the input
// staging buffer, bypassing the LZMA stream entirely; used by the
// container layer to read and validate a member header before a
// dictionary size is known.
func (d *Decoder) ReadHeaderBytes(p []byte) int { return d.rdec.readData(p) }

// UnreadHeaderBytes pushes n previously read header bytes back onto
// the front of the input staging buffer, used when a header turns out
// to be invalid and the bytes must be reinterpreted as stream data
// (or as the start of a following, overlapping header).
func (d *Decoder) UnreadHeaderBytes(n int) bool { return d.rdec.unreadData(n) }

// AvailableHeaderBytes reports how many bytes are staged and not yet
// consumed as either header or LZMA stream content.
func (d *Decoder) AvailableHeaderBytes() int { return d.rdec.availableBytes() }

// AtStreamEnd reports whether Finish has been called; staged bytes may
// still be waiting to be consumed.
func (d *Decoder) AtStreamEnd() bool { return d.rdec.atStreamEnd }

// FreeHeaderBytes reports how much room is left in the input staging
// buffer for WriteData.
func (d *Decoder) FreeHeaderBytes() int { return d.rdec.freeBytes() }

// FindHeader scans the staged input for the next byte sequence that
// verifies as a member header, discarding everything before it; it is
// the primitive behind sync-to-member resynchronization after a
// corrupt member.
func (d *Decoder) FindHeader() (ok bool, skipped int) { return d.rdec.findHeader() }

// Purge discards all staged input, marks the stream finished and
// returns the number of bytes that were ever fed in for this member,
// including the bytes just discarded; used to abandon a member that
// sync-to-member gave up on.
func (d *Decoder) Purge() uint64 { return d.rdec.purge() }

// Reset reinitializes the range decoder for reuse from the very start
// of a brand-new stream.
func (d *Decoder) Reset() { d.rdec.reset() }

// MemberPosition reports how many compressed bytes have been consumed
// for the member currently in progress.
func (d *Decoder) MemberPosition() uint64 { return d.rdec.memberPosition }

// Result is the exported name for decodeResult, returned by
// DecodeMember.
type Result = decodeResult

// Result constants exported for the container orchestrator.
const (
	ResultNeedInput      = decodeNeedInput
	ResultMemberFinished = decodeMemberFinished
	ResultStreamFinished = decodeStreamFinished
	ResultMarkerFound    = decodeMarkerFound
	ResultBadData        = decodeBadData
)

// ResetMember prepares the decoder for a new member: the output window,
// position counters, CRC and models start afresh, so no back-reference
// reaches into data emitted by a previous member.
func (d *Decoder) ResetMember(dictSize uint32) {
	need := int(dictSize)
	if need < 65536 {
		need = 65536
	}
	need += decoderMinFreeBytes
	if d.cb == nil || len(d.cb.buf) < need+1 {
		d.cb = newCircularBuffer(need)
	} else {
		d.cb.reset()
	}
	d.partialDataPos = 0
	d.dictionarySize = dictSize
	d.crc = 0
	d.memberFinished = false
	d.verifyTrailerPending = false
	d.posWrapped = false
	d.rep0, d.rep1, d.rep2, d.rep3 = 0, 0, 0, 0
	d.state = 0
	for i := range d.bmLiteral {
		for j := range d.bmLiteral[i] {
			d.bmLiteral[i][j] = probInit
		}
	}
	for i := range d.bmMatch {
		for j := range d.bmMatch[i] {
			d.bmMatch[i][j] = probInit
		}
	}
	for i := range d.bmRep {
		d.bmRep[i] = probInit
		d.bmRep0[i] = probInit
		d.bmRep1[i] = probInit
		d.bmRep2[i] = probInit
	}
	for i := range d.bmLen {
		for j := range d.bmLen[i] {
			d.bmLen[i][j] = probInit
		}
	}
	for i := range d.bmDisSlot {
		for j := range d.bmDisSlot[i] {
			d.bmDisSlot[i][j] = probInit
		}
	}
	for i := range d.bmDis {
		d.bmDis[i] = probInit
	}
	for i := range d.bmAlign {
		d.bmAlign[i] = probInit
	}
	d.matchLenModel.reset()
	d.repLenModel.reset()
}

func (d *Decoder) MemberFinished() bool { return d.memberFinished && d.cb.empty() }

// DictionarySize reports the dictionary size the current member was
// reset with.
func (d *Decoder) DictionarySize() uint32 { return d.dictionarySize }

func (d *Decoder) CRC() uint32 { return d.crc }

func (d *Decoder) DataPosition() uint64 { return d.partialDataPos + uint64(d.cb.put) }

func (d *Decoder) enoughFreeBytes() bool { return d.cb.free() >= decoderMinFreeBytes }

// ReadData drains up to len(p) decoded bytes out of the window.
func (d *Decoder) ReadData(p []byte) int {
	n := d.cb.readData(p)
	if n > 0 {
		if d.cb.get == 0 {
			d.posWrapped = true
		}
	}
	return n
}

func (d *Decoder) peekPrev() byte {
	if d.cb.put == 0 {
		return d.cb.buf[len(d.cb.buf)-1]
	}
	return d.cb.buf[d.cb.put-1]
}

func (d *Decoder) peek(distance uint32) byte {
	i := int(d.cb.put) - int(distance) - 1
	if i < 0 {
		i += len(d.cb.buf)
	}
	return d.cb.buf[i]
}

func (d *Decoder) putByte(b byte) {
	d.cb.putByte(b)
	d.crc = crc32.Update(d.crc, crc32.IEEETable, []byte{b})
	if d.cb.put == 0 {
		d.partialDataPos += uint64(len(d.cb.buf))
		d.posWrapped = true
	}
}

// copyBlock appends len bytes already present distance+1 bytes behind
// the write cursor, the LZ77 back-reference copy.
func (d *Decoder) copyBlock(distance uint32, length int) {
	for ; length > 0; length-- {
		d.putByte(d.peek(distance))
	}
}

func (d *Decoder) tryVerifyTrailer() decodeResult {
	if d.rdec.availableBytes() < trailerSize {
		if !d.rdec.atStreamEnd {
			return decodeNeedInput
		}
		return decodeStreamFinished
	}
	d.verifyTrailerPending = false
	d.memberFinished = true

	var trailer [trailerSize]byte
	if d.rdec.readData(trailer[:]) == trailerSize &&
		getTrailerCRC(trailer) == d.CRC() &&
		getTrailerDataSize(trailer) == d.DataPosition() &&
		getTrailerMemberSize(trailer) == d.rdec.memberPosition {
		return decodeMemberFinished
	}
	xlog.Printf(debug, "trailer mismatch: crc %08x data %d member %d",
		d.CRC(), d.DataPosition(), d.rdec.memberPosition)
	return decodeBadData
}

// DecodeMember drives the range decoder over one member's LZMA stream
// and, once the stop marker is seen, its trailer; it returns when it
// needs more input, hits the end of the member, or finds the stream
// malformed.
func (d *Decoder) DecodeMember() decodeResult {
	rdec := d.rdec
	st := &d.state

	if d.memberFinished {
		return decodeMemberFinished
	}
	if !rdec.tryReload() {
		if !rdec.atStreamEnd {
			return decodeNeedInput
		}
		return decodeStreamFinished
	}
	if d.verifyTrailerPending {
		return d.tryVerifyTrailer()
	}

	for !rdec.finished() {
		posState := int(d.DataPosition()) & posStateMask

		if !rdec.enoughAvailableBytes() {
			if !rdec.atStreamEnd {
				return decodeNeedInput
			}
			if rdec.cb.empty() {
				break
			}
		}
		if !d.enoughFreeBytes() {
			return decodeNeedInput
		}

		if rdec.decodeBit(&d.bmMatch[*st][posState]) == 0 {
			bm := &d.bmLiteral[getLitState(d.peekPrev(), d.DataPosition())&((1<<literalContextBits)-1)]
			if st.isChar() {
				if *st < 4 {
					*st = 0
				} else {
					*st -= 3
				}
				d.putByte(byte(rdec.decodeTree(bm[:], 8)))
			} else {
				if *st < 10 {
					*st -= 3
				} else {
					*st -= 6
				}
				d.putByte(byte(rdec.decodeMatched(bm[:], uint32(d.peek(d.rep0)))))
			}
			continue
		}

		var length int
		if rdec.decodeBit(&d.bmRep[*st]) != 0 {
			if rdec.decodeBit(&d.bmRep0[*st]) == 0 {
				if rdec.decodeBit(&d.bmLen[*st][posState]) == 0 {
					*st = st.afterShortRep()
					d.putByte(d.peek(d.rep0))
					continue
				}
			} else {
				var distance uint32
				if rdec.decodeBit(&d.bmRep1[*st]) == 0 {
					distance = d.rep1
				} else {
					if rdec.decodeBit(&d.bmRep2[*st]) == 0 {
						distance = d.rep2
					} else {
						distance = d.rep3
						d.rep3 = d.rep2
					}
					d.rep2 = d.rep1
				}
				d.rep1 = d.rep0
				d.rep0 = distance
			}
			*st = st.afterRep()
			length = minMatchLen + rdec.decodeLen(d.repLenModel, posState)
		} else {
			length = minMatchLen + rdec.decodeLen(d.matchLenModel, posState)
			lenState := getLenState(length)
			distance := rdec.decodeTree(d.bmDisSlot[lenState][:], disSlotBits)
			if distance >= startDisModel {
				disSlot := distance
				directBits := int(disSlot>>1) - 1
				distance = (2 | (disSlot & 1)) << uint(directBits)
				if disSlot < endDisModel {
					distance += rdec.decodeTreeReversed(d.bmDis[distance-disSlot:], directBits)
				} else {
					distance += rdec.decodeDirect(directBits-disAlignBits) << disAlignBits
					distance += rdec.decodeTreeReversed(d.bmAlign[:], disAlignBits)
					if distance == 0xFFFFFFFF {
						rdec.normalize()
						if length == minMatchLen {
							d.verifyTrailerPending = true
							return d.tryVerifyTrailer()
						}
						if length == minMatchLen+1 {
							rdec.reloadPending = true
							if rdec.tryReload() {
								continue
							}
							if !rdec.atStreamEnd {
								return decodeNeedInput
							}
							break
						}
						xlog.Printf(debug, "unrecognized marker length %d at data position %d",
							length, d.DataPosition())
						return decodeBadData
					}
				}
			}
			d.rep3, d.rep2, d.rep1, d.rep0 = d.rep2, d.rep1, d.rep0, distance
			*st = st.afterMatch()
			if d.rep0 >= d.dictionarySize || (d.rep0 >= uint32(d.cb.put) && !d.posWrapped) {
				xlog.Printf(debug, "distance %d out of range at data position %d", d.rep0, d.DataPosition())
				return decodeBadData
			}
		}
		d.copyBlock(d.rep0, length)
	}
	return decodeStreamFinished
}
