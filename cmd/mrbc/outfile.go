package main

import "strings"

// outfileName derives an output path from an input path by replacing
// the extension after the last '.'. An empty ext returns the name as
// is, and inputs without a '.' anywhere are returned unchanged, so
// "Rakefile" stays "Rakefile" whatever ext is. Longstanding quirk, and
// build scripts depend on it by now.
func outfileName(infile, ext string) string {
	if ext == "" {
		return infile
	}
	dot := strings.LastIndexByte(infile, '.')
	if dot < 0 {
		return infile
	}
	return infile[:dot] + ext
}
