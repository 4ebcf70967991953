package transcript

import (
	"bufio"
	"bytes"
	"io"
	"strings"
)

// Separator is the line that ends every block of a transcript.
const Separator = "----------------------------------------------------------"

const maxLineSize = 16 * 1024 * 1024

// Block is the raw text between two separators. Lines keep their carriage
// return, so CRLF request bodies can be rebuilt byte for byte.
type Block struct {
	Index int
	Lines []string
}

// Lex splits r into blocks. Trailing empty lines are dropped; blocks that end
// up empty are skipped.
func Lex(r io.Reader) ([]Block, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	scanner.Split(scanRawLines)

	var (
		blocks  []Block
		current []string
	)
	flush := func() {
		current = trimTrailingEmpty(current)
		if len(current) > 0 {
			blocks = append(blocks, Block{Index: len(blocks), Lines: current})
		}
		current = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == Separator {
			flush()
			continue
		}
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return blocks, nil
}

func trimTrailingEmpty(lines []string) []string {
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// scanRawLines is bufio.ScanLines without the carriage return stripping.
func scanRawLines(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, data[:i], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
