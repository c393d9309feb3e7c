// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzip

import "github.com/ulikunitz/lzip/lzma"

// Reader decompresses one or more concatenated lzip members, following
// the non-blocking write/read protocol of the reference decoder:
// Write stages compressed bytes, Read drains whatever has been
// decoded, and neither call ever blocks.
type Reader struct {
	dec *lzma.Decoder

	haveMember  bool
	firstHeader bool
	seeking     bool
	fatal       bool
	kind        Kind
	err         error

	memberVersion  int
	dictionarySize uint32

	partialInSize  uint64
	partialOutSize uint64
}

// NewReader allocates a Reader ready to accept Write calls.
func NewReader() *Reader {
	return &Reader{
		dec:         lzma.NewDecoder(),
		firstHeader: true,
	}
}

func (r *Reader) setErr(kind Kind, msg string) {
	r.fatal = true
	r.kind = kind
	r.err = newError(kind, msg)
}

// Errno reports the Kind of the latched error, or OK if none.
func (r *Reader) Errno() Kind { return r.kind }

// Err returns the latched error, or nil.
func (r *Reader) Err() error { return r.err }

// Write stages up to len(p) compressed bytes, returning how many were
// accepted; while resynchronizing after SyncToMember it also consumes
// bytes looking for the next valid header, counting what it skips
// toward TotalInSize.
func (r *Reader) Write(p []byte) (n int, err error) {
	if r.fatal {
		return 0, r.err
	}
	n = r.dec.WriteData(p)
	for r.seeking {
		ok, skipped := r.dec.FindHeader()
		r.partialInSize += uint64(skipped)
		if ok {
			r.seeking = false
			break
		}
		if n >= len(p) {
			break
		}
		k := r.dec.WriteData(p[n:])
		if k <= 0 {
			break
		}
		n += k
	}
	return n, nil
}

// WriteSize reports how many bytes Write can currently accept.
func (r *Reader) WriteSize() int { return r.dec.FreeHeaderBytes() }

// Finish signals that no more compressed bytes are coming.
func (r *Reader) Finish() error {
	if r.fatal {
		return r.err
	}
	if r.seeking {
		r.seeking = false
		r.partialInSize += r.dec.Purge()
	} else {
		r.dec.Finish()
	}
	return nil
}

// parseHeader attempts to read and validate the next member header
// directly out of the decoder's input staging buffer. ok reports
// whether a member is now active (ResetMember/StartMember already
// called); when ok is false, needMore distinguishes "wait for more
// Write calls" from a latched fatal error.
func (r *Reader) parseHeader() (ok, needMore bool) {
	r.partialInSize += r.dec.TakeMemberPosition()

	if r.dec.AvailableHeaderBytes() < headerSize+5 && !r.dec.AtStreamEnd() {
		return false, true
	}
	if r.dec.AtStreamEnd() && r.dec.AvailableHeaderBytes() == 0 && !r.firstHeader {
		return false, true
	}

	var hdr [headerSize]byte
	rd := r.dec.ReadHeaderBytes(hdr[:])
	if rd < headerSize {
		prefixLen := rd
		if prefixLen > 4 {
			prefixLen = 4
		}
		if rd <= 0 || verifyMagicPrefix(hdr[:rd]) == prefixLen {
			r.setErr(UnexpectedEOF, "stream ended before a full member header")
		} else {
			r.setErr(HeaderError, "truncated member header does not resemble the magic")
		}
		return false, false
	}

	var magic [4]byte
	copy(magic[:], hdr[:4])
	if !verifyMagic(magic) {
		if r.dec.UnreadHeaderBytes(rd) {
			if r.firstHeader || !verifyCorrupt(magic) {
				r.setErr(HeaderError, "bad magic")
			} else {
				r.setErr(DataError, "magic mismatch resembling a corrupted member")
			}
		} else {
			r.setErr(LibraryError, "could not push back invalid header bytes")
		}
		return false, false
	}

	version := int(hdr[4])
	dictSize, dictOK := lzma.DecodeDictionarySize(hdr[5])
	if version != int(lzma.Version) || !dictOK {
		pushBack := 1
		if version == int(lzma.Version) {
			pushBack = 2
		}
		if r.dec.UnreadHeaderBytes(pushBack) {
			r.setErr(DataError, "unsupported version or invalid dictionary size")
		} else {
			r.setErr(LibraryError, "could not push back invalid header bytes")
		}
		return false, false
	}
	r.firstHeader = false

	if r.dec.AvailableHeaderBytes() < 5 {
		r.partialInSize += r.dec.TakeMemberPosition()
		r.setErr(UnexpectedEOF, "stream ended before the range coder prime")
		return false, false
	}

	r.memberVersion = version
	r.dictionarySize = dictSize
	r.dec.ResetMember(dictSize)
	r.dec.StartMember()
	r.haveMember = true
	return true, false
}

// Read drains up to len(p) decoded bytes, advancing the member state
// machine (parsing the next header, driving the LZMA decoder) as far
// as the buffered input allows.
func (r *Reader) Read(p []byte) (n int, err error) {
	if r.fatal {
		if r.haveMember {
			n = r.dec.ReadData(p)
			if n > 0 {
				return n, nil
			}
		}
		return 0, r.err
	}
	if r.seeking {
		return 0, nil
	}

	if r.haveMember && r.dec.MemberFinished() {
		r.partialOutSize += r.dec.DataPosition()
		r.haveMember = false
	}
	if !r.haveMember {
		ok, needMore := r.parseHeader()
		if !ok {
			if needMore {
				return 0, nil
			}
			return 0, r.err
		}
	}

	switch r.dec.DecodeMember() {
	case lzma.ResultBadData:
		r.setErr(DataError, "corrupt member or trailer mismatch")
	case lzma.ResultStreamFinished:
		r.setErr(UnexpectedEOF, "stream ended before member trailer")
	}

	n = r.dec.ReadData(p)
	if r.fatal && n == 0 {
		return 0, r.err
	}
	return n, nil
}

// SyncToMember discards any active member and scans buffered input
// for the next valid header prefix, clearing latched error state; if
// no header is found yet it keeps scanning as more bytes arrive via
// Write.
func (r *Reader) SyncToMember() {
	r.haveMember = false
	r.fatal = false
	r.kind = OK
	r.err = nil
	ok, skipped := r.dec.FindHeader()
	r.partialInSize += uint64(skipped)
	if ok {
		r.seeking = false
	} else if r.dec.AtStreamEnd() {
		r.seeking = false
		r.partialInSize += r.dec.Purge()
	} else {
		r.seeking = true
	}
}

// Reset clears all latched state and prepares the Reader to decode a
// brand-new stream from the beginning.
func (r *Reader) Reset() {
	r.dec.Reset()
	r.haveMember = false
	r.firstHeader = true
	r.seeking = false
	r.fatal = false
	r.kind = OK
	r.err = nil
	r.memberVersion = 0
	r.dictionarySize = 0
	r.partialInSize = 0
	r.partialOutSize = 0
}

// Finished reports whether the range decoder has consumed every
// staged byte and, if a member is active, that member is finished.
func (r *Reader) Finished() bool {
	return r.dec.AtStreamEnd() && r.dec.AvailableHeaderBytes() == 0 &&
		(!r.haveMember || r.dec.MemberFinished())
}

// MemberFinished reports whether the member currently active has been
// fully decoded and its trailer verified.
func (r *Reader) MemberFinished() bool { return r.haveMember && r.dec.MemberFinished() }

// MemberVersion reports the version byte of the current member's
// header.
func (r *Reader) MemberVersion() int { return r.memberVersion }

// DictionarySize reports the current member's header-advertised
// dictionary size.
func (r *Reader) DictionarySize() uint32 { return r.dictionarySize }

// DataCRC reports the CRC32 accumulated over the current member's
// decoded bytes so far.
func (r *Reader) DataCRC() uint32 { return r.dec.CRC() }

// DataPosition reports how many bytes of the current member have been
// decoded so far.
func (r *Reader) DataPosition() uint64 { return r.dec.DataPosition() }

// MemberPosition reports how many compressed bytes of the current
// member have been consumed so far.
func (r *Reader) MemberPosition() uint64 { return r.dec.MemberPosition() }

// TotalInSize reports how many compressed bytes have been consumed
// across every member decoded so far, including the one in progress.
func (r *Reader) TotalInSize() uint64 { return r.partialInSize + r.dec.MemberPosition() }

// TotalOutSize reports how many bytes have been decoded across every
// member decoded so far, including the one in progress.
func (r *Reader) TotalOutSize() uint64 { return r.partialOutSize + r.dec.DataPosition() }
