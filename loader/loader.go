// Package loader reads kernel images from text files.
//
// An image lists 16-bit program words in hex, one or more per line, in
// program order. Two directives configure the rest of the launch:
//
//	.threads N        kernel thread count
//	.data B0 B1 ...   hex bytes appended to the initial data memory image
//
// '#' and '//' start comments. Blank lines are ignored.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Program is a loaded kernel image.
type Program struct {
	// Words is the machine code, in program order from address 0.
	Words []uint16
	// Data is the initial data memory image, from address 0.
	Data []uint8
	// Threads is the kernel thread count.
	Threads int
}

// Load reads a kernel image from the file at path.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: %w", err)
	}
	defer f.Close()

	prog, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", path, err)
	}
	return prog, nil
}

// Parse reads a kernel image from r.
func Parse(r io.Reader) (*Program, error) {
	prog := &Program{}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexAny(line, "#"); i >= 0 {
			line = line[:i]
		}
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case ".threads":
			if len(fields) != 2 {
				return nil, fmt.Errorf("line %d: .threads takes one argument", lineNo)
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil || n < 0 || n > 255 {
				return nil, fmt.Errorf("line %d: invalid thread count %q",
					lineNo, fields[1])
			}
			prog.Threads = n

		case ".data":
			for _, tok := range fields[1:] {
				b, err := strconv.ParseUint(tok, 16, 8)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid data byte %q",
						lineNo, tok)
				}
				prog.Data = append(prog.Data, uint8(b))
			}

		default:
			for _, tok := range fields {
				w, err := strconv.ParseUint(tok, 16, 16)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid instruction word %q",
						lineNo, tok)
				}
				prog.Words = append(prog.Words, uint16(w))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(prog.Words) == 0 {
		return nil, fmt.Errorf("image contains no instructions")
	}
	return prog, nil
}
