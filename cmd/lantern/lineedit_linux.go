//go:build linux

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/sys/unix"
)

var promptHistory []string

// readInteractiveLine reads one line from stdin with basic editing:
// cursor movement, history via up/down, and the usual word operations.
// Returns io.EOF on Ctrl+C or on Ctrl+D with an empty line.
func readInteractiveLine(prompt string) (string, error) {
	if !stdinIsTTY() {
		r := bufio.NewReader(os.Stdin)
		s, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}
		if s == "" && err == io.EOF {
			return "", io.EOF
		}
		return trimTrailingNewline(s), nil
	}

	fd := int(os.Stdin.Fd())
	saved, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return "", err
	}
	raw := *saved
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &raw); err != nil {
		return "", err
	}
	defer func() {
		_ = unix.IoctlSetTermios(fd, unix.TCSETS, saved)
	}()

	ed := &lineEditor{prompt: prompt, histPos: len(promptHistory)}
	return ed.read()
}

type lineEditor struct {
	prompt string
	line   []byte
	cursor int

	histPos  int
	browsing bool
	draft    string
}

func (e *lineEditor) read() (string, error) {
	fmt.Print(e.prompt)

	var buf [16]byte
	escState := 0
	var csi strings.Builder

	for {
		n, err := os.Stdin.Read(buf[:])
		if err != nil {
			return "", err
		}
		for _, b := range buf[:n] {
			if escState == 1 {
				escState = 0
				switch b {
				case '[':
					escState = 2
					csi.Reset()
				case 'b', 'B':
					e.wordLeft()
				case 'f', 'F':
					e.wordRight()
				case 127:
					e.deleteWordBack()
				}
				continue
			}
			if escState == 2 {
				csi.WriteByte(b)
				if (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '~' {
					e.handleCSI(csi.String())
					escState = 0
				}
				continue
			}

			switch b {
			case 27:
				escState = 1
			case '\r', '\n':
				fmt.Print("\r\n")
				out := string(e.line)
				if strings.TrimSpace(out) != "" {
					promptHistory = append(promptHistory, out)
				}
				return out, nil
			case 3: // Ctrl+C
				fmt.Print("^C\r\n")
				return "", io.EOF
			case 4: // Ctrl+D
				if len(e.line) == 0 {
					fmt.Print("\r\n")
					return "", io.EOF
				}
			case 127, 8: // Backspace
				if e.cursor > 0 {
					e.line = append(e.line[:e.cursor-1], e.line[e.cursor:]...)
					e.cursor--
					e.redraw()
				}
			case 1: // Ctrl+A
				e.cursor = 0
				e.redraw()
			case 5: // Ctrl+E
				e.cursor = len(e.line)
				e.redraw()
			case 11: // Ctrl+K
				e.line = e.line[:e.cursor]
				e.redraw()
			case 21: // Ctrl+U
				e.line = append(e.line[:0], e.line[e.cursor:]...)
				e.cursor = 0
				e.redraw()
			case 23: // Ctrl+W
				e.deleteWordBack()
			default:
				if b >= 32 {
					e.insert(b)
				}
			}
		}
	}
}

func (e *lineEditor) handleCSI(seq string) {
	switch seq {
	case "A":
		e.historyPrev()
	case "B":
		e.historyNext()
	case "C":
		if e.cursor < len(e.line) {
			e.cursor++
			e.redraw()
		}
	case "D":
		if e.cursor > 0 {
			e.cursor--
			e.redraw()
		}
	case "H":
		e.cursor = 0
		e.redraw()
	case "F":
		e.cursor = len(e.line)
		e.redraw()
	case "3~": // Delete
		if e.cursor < len(e.line) {
			e.line = append(e.line[:e.cursor], e.line[e.cursor+1:]...)
			e.redraw()
		}
	case "1;5D", "5D":
		e.wordLeft()
	case "1;5C", "5C":
		e.wordRight()
	case "3;5~":
		e.deleteWordForward()
	}
}

func (e *lineEditor) insert(b byte) {
	if e.cursor == len(e.line) {
		e.line = append(e.line, b)
	} else {
		e.line = append(e.line, 0)
		copy(e.line[e.cursor+1:], e.line[e.cursor:])
		e.line[e.cursor] = b
	}
	e.cursor++
	e.redraw()
}

func (e *lineEditor) historyPrev() {
	if len(promptHistory) == 0 {
		return
	}
	if !e.browsing {
		e.draft = string(e.line)
		e.browsing = true
		e.histPos = len(promptHistory)
	}
	if e.histPos > 0 {
		e.histPos--
		e.setLine(promptHistory[e.histPos])
	}
}

func (e *lineEditor) historyNext() {
	if !e.browsing {
		return
	}
	if e.histPos < len(promptHistory)-1 {
		e.histPos++
		e.setLine(promptHistory[e.histPos])
		return
	}
	e.histPos = len(promptHistory)
	e.browsing = false
	e.setLine(e.draft)
}

func (e *lineEditor) setLine(s string) {
	e.line = append(e.line[:0], s...)
	e.cursor = len(e.line)
	e.redraw()
}

func (e *lineEditor) wordLeft() {
	if e.cursor == 0 {
		return
	}
	for e.cursor > 0 && isWordSpace(e.line[e.cursor-1]) {
		e.cursor--
	}
	for e.cursor > 0 && !isWordSpace(e.line[e.cursor-1]) {
		e.cursor--
	}
	e.redraw()
}

func (e *lineEditor) wordRight() {
	if e.cursor >= len(e.line) {
		return
	}
	for e.cursor < len(e.line) && isWordSpace(e.line[e.cursor]) {
		e.cursor++
	}
	for e.cursor < len(e.line) && !isWordSpace(e.line[e.cursor]) {
		e.cursor++
	}
	e.redraw()
}

func (e *lineEditor) deleteWordBack() {
	if e.cursor == 0 {
		return
	}
	start := e.cursor
	for start > 0 && isWordSpace(e.line[start-1]) {
		start--
	}
	for start > 0 && !isWordSpace(e.line[start-1]) {
		start--
	}
	e.line = append(e.line[:start], e.line[e.cursor:]...)
	e.cursor = start
	e.redraw()
}

func (e *lineEditor) deleteWordForward() {
	if e.cursor >= len(e.line) {
		return
	}
	end := e.cursor
	for end < len(e.line) && isWordSpace(e.line[end]) {
		end++
	}
	for end < len(e.line) && !isWordSpace(e.line[end]) {
		end++
	}
	e.line = append(e.line[:e.cursor], e.line[end:]...)
	e.redraw()
}

func (e *lineEditor) redraw() {
	fmt.Printf("\r%s%s\x1b[K", e.prompt, string(e.line))
	if e.cursor < len(e.line) {
		fmt.Printf("\r%s%s", e.prompt, string(e.line[:e.cursor]))
	}
}

func isWordSpace(b byte) bool {
	return b == ' ' || b == '\t'
}
