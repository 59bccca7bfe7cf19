// mkimage - assemble a flat word listing into a loadable program image.
//
// Usage: mkimage input.words output.img
//
// input.words is a text file, one decimal or 0x-hex word per line,
// blank lines and lines starting with # ignored. Output is a small
// fixed header followed by the words themselves, little-endian:
//
//	offset 0: uint16  magic = 0xD05A
//	offset 2: uint16  word_count
//	offset 4: uint32  reserved (zero)
//	offset 8: word_count * uint16, little-endian
//
// The hardware.Loader reads exactly this format.
package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	imageMagic  = 0xD05A
	imageHeader = 8
)

// BuildImage parses a word listing and returns the on-disk image bytes.
func BuildImage(text string) ([]byte, error) {
	var words []uint16
	scanner := bufio.NewScanner(strings.NewReader(text))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		value, err := strconv.ParseUint(line, 0, 16)
		if err != nil {
			return nil, fmt.Errorf("line %d: %q: %w", lineNo, line, err)
		}
		words = append(words, uint16(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	out := make([]byte, imageHeader+len(words)*2)
	binary.LittleEndian.PutUint16(out[0:2], imageMagic)
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(words)))
	for i, w := range words {
		binary.LittleEndian.PutUint16(out[imageHeader+2*i:imageHeader+2*i+2], w)
	}
	return out, nil
}

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "usage: mkimage input.words output.img\n")
		os.Exit(1)
	}

	text, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "mkimage: %v\n", err)
		os.Exit(1)
	}

	img, err := BuildImage(string(text))
	if err != nil {
		fmt.Fprintf(os.Stderr, "mkimage: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(os.Args[2], img, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "mkimage: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("mkimage: wrote %d words (%d bytes) to %s\n", (len(img)-imageHeader)/2, len(img), os.Args[2])
}
