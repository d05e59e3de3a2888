package shellterm

import "fmt"

// Key is a special key that can be sent to a shell as raw terminal input.
type Key int

const (
	KeyEnter Key = iota
	KeyTab
	KeyBackspace
	KeyEscape
	KeyUp
	KeyDown
	KeyRight
	KeyLeft
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyDelete
	KeyInsert
	KeyCtrlC
	KeyCtrlD
	KeyCtrlZ
	KeyCtrlL
)

// keyBytes is the raw byte sequence each key produces on an xterm-style
// terminal.
var keyBytes = map[Key][]byte{
	KeyEnter:     {'\r'},
	KeyTab:       {'\t'},
	KeyBackspace: {0x7F},
	KeyEscape:    {0x1B},
	KeyUp:        []byte("\x1b[A"),
	KeyDown:      []byte("\x1b[B"),
	KeyRight:     []byte("\x1b[C"),
	KeyLeft:      []byte("\x1b[D"),
	KeyHome:      []byte("\x1b[H"),
	KeyEnd:       []byte("\x1b[F"),
	KeyPageUp:    []byte("\x1b[5~"),
	KeyPageDown:  []byte("\x1b[6~"),
	KeyDelete:    []byte("\x1b[3~"),
	KeyInsert:    []byte("\x1b[2~"),
	KeyCtrlC:     {0x03},
	KeyCtrlD:     {0x04},
	KeyCtrlZ:     {0x1A},
	KeyCtrlL:     {0x0C},
}

// Bytes returns the raw sequence for the key.
func (k Key) Bytes() ([]byte, error) {
	b, ok := keyBytes[k]
	if !ok {
		return nil, fmt.Errorf("unknown key %d", int(k))
	}
	return b, nil
}

// ParseKey resolves a key name ("enter", "ctrl-c", "page-up", ...).
func ParseKey(name string) (Key, error) {
	switch name {
	case "enter", "return":
		return KeyEnter, nil
	case "tab":
		return KeyTab, nil
	case "backspace":
		return KeyBackspace, nil
	case "escape", "esc":
		return KeyEscape, nil
	case "up":
		return KeyUp, nil
	case "down":
		return KeyDown, nil
	case "right":
		return KeyRight, nil
	case "left":
		return KeyLeft, nil
	case "home":
		return KeyHome, nil
	case "end":
		return KeyEnd, nil
	case "page-up", "pageup":
		return KeyPageUp, nil
	case "page-down", "pagedown":
		return KeyPageDown, nil
	case "delete", "del":
		return KeyDelete, nil
	case "insert":
		return KeyInsert, nil
	case "ctrl-c":
		return KeyCtrlC, nil
	case "ctrl-d":
		return KeyCtrlD, nil
	case "ctrl-z":
		return KeyCtrlZ, nil
	case "ctrl-l":
		return KeyCtrlL, nil
	default:
		return 0, fmt.Errorf("unknown key %q", name)
	}
}
