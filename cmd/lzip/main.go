// Copyright 2014-2021 Ulrich Kunitz. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
)

const (
	lzipSuffix = ".lz"
	usageStr   = `Usage: lzip [OPTION]... [FILE]...
Compress or uncompress FILEs in the .lz format (by default, compress FILEs
in place).

  -c, --stdout      write to standard output and don't delete input files
  -d, --decompress  force decompression
  -f, --force       force overwrite of output file
  -h, --help        give this help
  -k, --keep        keep (don't delete) input files
  -0 ... -9         compression preset; default is 6

With no file, or when FILE is -, read standard input.
`
)

type options struct {
	decompress bool
	stdout     bool
	force      bool
	keep       bool
	preset     int
}

// filterPreset pulls a lone "-N" digit out of os.Args before flag.Parse
// runs, since the standard flag package has no notion of a bare
// numeric option.
func filterPreset(args []string, preset *int) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if len(arg) == 2 && arg[0] == '-' && arg[1] >= '0' && arg[1] <= '9' {
			*preset = int(arg[1] - '0')
			continue
		}
		out = append(out, arg)
	}
	return out
}

func usage(w io.Writer) { fmt.Fprint(w, usageStr) }

func main() {
	cmdName := filepath.Base(os.Args[0])
	log.SetPrefix(cmdName + ": ")
	log.SetFlags(0)

	opts := &options{preset: 6}
	args := filterPreset(os.Args[1:], &opts.preset)

	fs := flag.NewFlagSet(cmdName, flag.ExitOnError)
	fs.Usage = func() { usage(os.Stderr) }
	fs.BoolVar(&opts.stdout, "stdout", false, "")
	fs.BoolVar(&opts.stdout, "c", false, "")
	fs.BoolVar(&opts.decompress, "decompress", false, "")
	fs.BoolVar(&opts.decompress, "d", false, "")
	fs.BoolVar(&opts.force, "force", false, "")
	fs.BoolVar(&opts.force, "f", false, "")
	fs.BoolVar(&opts.keep, "keep", false, "")
	fs.BoolVar(&opts.keep, "k", false, "")
	help := fs.Bool("help", false, "")
	fs.BoolVar(help, "h", false, "")
	if err := fs.Parse(args); err != nil {
		log.Fatal(err)
	}

	if *help {
		usage(os.Stdout)
		return
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "for help, type lzip -h")
		os.Exit(1)
	}

	for _, path := range fs.Args() {
		processFile(path, opts)
	}
}

type userPathError struct {
	Path string
	Err  error
}

func (e *userPathError) Error() string { return e.Path + ": " + e.Err.Error() }

func userError(err error) error {
	pe, ok := err.(*os.PathError)
	if !ok {
		return err
	}
	return &userPathError{Path: pe.Path, Err: pe.Err}
}

func outputPaths(opts *options, path string) (out, tmp string, err error) {
	if path == "-" {
		return "-", "-", nil
	}
	if opts.decompress {
		if !strings.HasSuffix(path, lzipSuffix) {
			return "", "", fmt.Errorf("path %s has no suffix %s", path, lzipSuffix)
		}
		base := filepath.Base(path)
		if base == lzipSuffix {
			return "", "", fmt.Errorf("path %s has only the suffix %s as its filename", path, lzipSuffix)
		}
		out = path[:len(path)-len(lzipSuffix)]
		return out, out + ".unpack", nil
	}
	if strings.HasSuffix(path, lzipSuffix) {
		return "", "", fmt.Errorf("path %s already has suffix %s", path, lzipSuffix)
	}
	out = path + lzipSuffix
	return out, out + ".pack", nil
}

func signalHandler(tmpPath string) chan<- struct{} {
	quit := make(chan struct{})
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt)
	go func() {
		select {
		case <-quit:
			signal.Stop(sigch)
		case <-sigch:
			if tmpPath != "-" {
				os.Remove(tmpPath)
			}
			os.Exit(130)
		}
	}()
	return quit
}

func openFiles(path, tmpPath string, opts *options) (r io.ReadCloser, w io.WriteCloser, err error) {
	if path == "-" {
		r = os.Stdin
	} else {
		r, err = os.Open(path)
		if err != nil {
			return nil, nil, err
		}
	}
	if tmpPath == "-" {
		w = os.Stdout
		return r, w, nil
	}
	if opts.force {
		os.Remove(tmpPath)
	}
	w, err = os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		r.Close()
		return nil, nil, err
	}
	return r, w, nil
}

func processFile(path string, opts *options) {
	outputPath, tmpPath, err := outputPaths(opts, path)
	if err != nil {
		log.Print(userError(err))
		return
	}
	if opts.stdout {
		outputPath, tmpPath = "-", "-"
	}
	if outputPath != "-" {
		if _, err := os.Lstat(outputPath); err == nil && !opts.force {
			log.Printf("file %s exists", outputPath)
			return
		}
	}
	quit := signalHandler(tmpPath)
	defer close(quit)
	defer func() {
		if tmpPath != "-" {
			os.Remove(tmpPath)
		}
	}()

	r, w, err := openFiles(path, tmpPath, opts)
	if err != nil {
		log.Print(userError(err))
		return
	}
	defer r.Close()

	var buf bytes.Buffer
	if opts.decompress {
		err = decompressStream(&buf, r)
	} else {
		err = compressStream(&buf, r, opts.preset)
	}
	if err != nil {
		w.Close()
		log.Print(userError(err))
		return
	}
	if _, err = io.Copy(w, &buf); err != nil {
		w.Close()
		log.Print(userError(err))
		return
	}
	if err = w.Close(); err != nil {
		log.Print(userError(err))
		return
	}

	if tmpPath != "-" && outputPath != "-" {
		if err = os.Rename(tmpPath, outputPath); err != nil {
			log.Print(userError(err))
			return
		}
	}
	if !opts.keep && !opts.stdout && path != "-" {
		if err = os.Remove(path); err != nil {
			log.Print(userError(err))
		}
	}
}
