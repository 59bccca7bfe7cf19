// Copyright © 2024 Jeff Berkowitz (pdxjjb@gmail.com)
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.

package hardware

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
)

// Program image header: a small fixed header followed by the image's
// words, little-endian, the same layout convention cmd/mkimage writes
// (see its doc comment for the on-disk format).
const (
	imageMagic  = 0xD05A
	imageHeader = 8 // bytes: magic(2) + wordCount(2) + reserved(4)
)

// Loader loads named program images from a directory into a Memory, and
// implements kernel.Loader. Each call to Load picks the next free
// region of memory above the high-water mark; images are never
// relocated or unloaded, matching this teaching kernel's no-swap model.
type Loader struct {
	dir      string
	mem      *Memory
	nextLoad int
	loaded   map[string]int // program name -> load address, for repeat spawns
}

// NewLoader returns a Loader that reads the file called name from dir
// (no suffix is added) and places it into mem starting at loadBase.
func NewLoader(dir string, mem *Memory, loadBase int) *Loader {
	return &Loader{
		dir:      dir,
		mem:      mem,
		nextLoad: loadBase,
		loaded:   make(map[string]int),
	}
}

func (l *Loader) Load(name string) (int, error) {
	if addr, ok := l.loaded[name]; ok {
		return addr, nil
	}

	path := filepath.Join(l.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		return -1, fmt.Errorf("loader: %s: %w", name, err)
	}
	if len(data) < imageHeader {
		return -1, fmt.Errorf("loader: %s: file too small for header", name)
	}

	magic := binary.LittleEndian.Uint16(data[0:2])
	if magic != imageMagic {
		return -1, fmt.Errorf("loader: %s: bad magic 0x%04X", name, magic)
	}
	wordCount := int(binary.LittleEndian.Uint16(data[2:4]))
	need := imageHeader + wordCount*2
	if len(data) < need {
		return -1, fmt.Errorf("loader: %s: header declares %d words but file is short", name, wordCount)
	}

	loadAddr := l.nextLoad
	if loadAddr+wordCount > l.mem.Size() {
		return -1, fmt.Errorf("loader: %s: out of memory (need %d words at %d, have %d)", name, wordCount, loadAddr, l.mem.Size())
	}

	for i := 0; i < wordCount; i++ {
		word := binary.LittleEndian.Uint16(data[imageHeader+2*i : imageHeader+2*i+2])
		if err := l.mem.Write(loadAddr+i, int(word)); err != nil {
			return -1, fmt.Errorf("loader: %s: %w", name, err)
		}
	}

	l.nextLoad += wordCount
	l.loaded[name] = loadAddr
	return loadAddr, nil
}
