// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lzip supports the compression and decompression of lzip
// files, a container format wrapping an LZMA-family stream with a
// 6-byte member header and a 20-byte CRC32/size trailer. Multiple
// members may be concatenated to form one stream.
package lzip
