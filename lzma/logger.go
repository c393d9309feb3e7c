// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lzma

import (
	"log"
	"os"

	"github.com/ulikunitz/lzip/xlog"
)

// debug is the package-wide logger used for optional diagnostic
// output; nil by default, so debug* calls are no-ops until debugOn is
// called.
var debug xlog.Logger

// debugOn switches on debug logging to stderr, prefixed so output is
// easy to tell apart from a caller's own logging.
func debugOn() {
	debug = log.New(os.Stderr, "lzma debug: ", log.Ldate|log.Ltime|log.Lshortfile)
}

// debugOff switches debug logging back off.
func debugOff() { debug = nil }
