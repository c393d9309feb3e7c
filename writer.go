// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzip

import "github.com/ulikunitz/lzip/lzma"

// encoderBody is the sum type over the two encoder implementations a
// Writer can hold; exactly one of normal/fast is non-nil at a time.
type encoderBody struct {
	normal *lzma.Encoder
	fast   *lzma.FastEncoder
}

func (b *encoderBody) write(p []byte) (int, error) {
	if b.normal != nil {
		return b.normal.Write(p)
	}
	return b.fast.Write(p)
}

func (b *encoderBody) finish() {
	if b.normal != nil {
		b.normal.Finish()
		return
	}
	b.fast.Finish()
}

func (b *encoderBody) memberFinished() bool {
	if b.normal != nil {
		return b.normal.MemberFinished()
	}
	return b.fast.MemberFinished()
}

func (b *encoderBody) readData(p []byte) int {
	if b.normal != nil {
		return b.normal.ReadData(p)
	}
	return b.fast.ReadData(p)
}

func (b *encoderBody) writeSize() int {
	if b.normal != nil {
		return b.normal.WriteSize()
	}
	return b.fast.WriteSize()
}

func (b *encoderBody) dataPosition() uint64 {
	if b.normal != nil {
		return b.normal.DataPosition()
	}
	return b.fast.DataPosition()
}

func (b *encoderBody) memberPosition() uint64 {
	if b.normal != nil {
		return b.normal.MemberPosition()
	}
	return b.fast.MemberPosition()
}

func (b *encoderBody) writeHeaderBytes(hdr []byte) {
	if b.normal != nil {
		b.normal.WriteHeaderBytes(hdr)
		return
	}
	b.fast.WriteHeaderBytes(hdr)
}

func (b *encoderBody) resetMember(memberSize uint64) {
	if b.normal != nil {
		b.normal.ResetMember(memberSize)
		return
	}
	b.fast.ResetMember(memberSize)
}

func (b *encoderBody) encode() {
	if b.normal != nil {
		b.normal.Encode()
		return
	}
	b.fast.Encode()
}

func (b *encoderBody) trySyncFlush() bool {
	if b.normal != nil {
		return b.normal.TrySyncFlush()
	}
	return b.fast.TrySyncFlush()
}

// Writer compresses bytes written to it into a stream of one or more
// concatenated lzip members, following the non-blocking write/read
// protocol of the reference encoder: Write stages literal bytes,
// Read drains whatever compressed bytes are ready, and neither call
// ever blocks waiting on the other.
type Writer struct {
	cfg WriterConfig
	enc encoderBody

	err   error
	kind  Kind
	fatal bool

	partialInSize  uint64
	partialOutSize uint64
}

// NewWriter allocates a Writer using cfg, applying defaults to any
// zero-valued field and rejecting an invalid configuration outright.
func NewWriter(cfg WriterConfig) (*Writer, error) {
	if err := cfg.Verify(); err != nil {
		return nil, err
	}
	w := &Writer{cfg: cfg}
	w.openMember()
	return w, nil
}

func (w *Writer) openMember() {
	if w.cfg.Fast {
		w.enc = encoderBody{fast: lzma.NewFastEncoder(w.cfg.DictSize, w.cfg.MatchLenLimit, w.cfg.MemberSizeLimit)}
	} else {
		w.enc = encoderBody{normal: lzma.NewEncoder(w.cfg.DictSize, w.cfg.MatchLenLimit, w.cfg.MemberSizeLimit)}
	}
	hdr := buildHeader(w.cfg.DictSize)
	w.enc.writeHeaderBytes(hdr[:])
}

func (w *Writer) setErr(kind Kind, msg string) {
	w.fatal = true
	w.kind = kind
	w.err = newError(kind, msg)
}

// Errno reports the Kind of the latched error, or OK if none.
func (w *Writer) Errno() Kind { return w.kind }

// Err returns the latched error, or nil.
func (w *Writer) Err() error { return w.err }

// Write stages up to len(p) literal bytes for compression, returning
// how many were accepted; it never blocks, returning 0 when the
// lookahead window is full until the caller drains more with Read.
func (w *Writer) Write(p []byte) (n int, err error) {
	if w.fatal {
		return 0, w.err
	}
	n, _ = w.enc.write(p)
	w.enc.encode()
	return n, nil
}

// WriteSize reports how many bytes Write can currently accept.
func (w *Writer) WriteSize() int { return w.enc.writeSize() }

// Read drains up to len(p) compressed bytes that are ready.
func (w *Writer) Read(p []byte) (n int, err error) {
	w.enc.encode()
	n = w.enc.readData(p)
	w.partialOutSize += uint64(n)
	return n, nil
}

// Finished reports whether the current member has been fully flushed
// and every compressed byte drained by Read.
func (w *Writer) Finished() bool { return w.enc.memberFinished() }

// MemberFinished is an alias for Finished kept for symmetry with the
// decoder's API surface.
func (w *Writer) MemberFinished() bool { return w.Finished() }

// Finish signals that no more literal bytes are coming for the
// current member; it closes the match finder and, once Read has
// drained everything, the member carries a valid trailer.
func (w *Writer) Finish() error {
	if w.fatal {
		return w.err
	}
	w.enc.finish()
	w.enc.encode()
	return nil
}

// SyncFlush forces the encoder to emit everything queued so far as a
// sync-flush marker, without ending the member; a later Write resumes
// the same member's dictionary and adaptive models. It may need
// several Read calls to drain the flushed bytes before it can make
// progress if the output buffer is nearly full; callers in that rare
// case should retry.
func (w *Writer) SyncFlush() error {
	if w.fatal {
		return w.err
	}
	w.enc.encode()
	w.enc.trySyncFlush()
	return nil
}

// RestartMember opens a fresh member with the same configuration but a
// new member_size_limit. It does not finish the current member itself:
// it is a sequence_error to call this before the previous member has
// been finished and fully drained by Read.
func (w *Writer) RestartMember(memberSize uint64) error {
	if w.fatal {
		return w.err
	}
	if !w.enc.memberFinished() {
		return newError(SequenceError, "previous member not finished")
	}
	w.partialInSize += w.enc.dataPosition()
	if memberSize == 0 {
		memberSize = w.cfg.MemberSizeLimit
	}
	w.enc.resetMember(memberSize)
	hdr := buildHeader(w.cfg.DictSize)
	w.enc.writeHeaderBytes(hdr[:])
	return nil
}

// DataPosition reports how many literal bytes the member currently in
// progress has accepted.
func (w *Writer) DataPosition() uint64 { return w.enc.dataPosition() }

// MemberPosition reports how many compressed bytes the member
// currently in progress has produced.
func (w *Writer) MemberPosition() uint64 { return w.enc.memberPosition() }

// TotalInSize reports how many literal bytes have been accepted
// across every member this Writer has produced, including the one in
// progress.
func (w *Writer) TotalInSize() uint64 { return w.partialInSize + w.enc.dataPosition() }

// TotalOutSize reports how many compressed bytes have been read out
// across every member this Writer has produced, including the one in
// progress. Unlike TotalInSize, this accumulates directly in Read
// rather than at RestartMember, since a member's compressed bytes
// trickle out over many Read calls rather than becoming known all at
// once.
func (w *Writer) TotalOutSize() uint64 { return w.partialOutSize }
