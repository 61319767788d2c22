package sweep

import (
	"fmt"
	"strings"
)

// Mode selects which sweep-key space a run iterates.
type Mode int

const (
	ModeWindow Mode = iota + 1
	ModeCumulative
	ModeTasks
)

func (m Mode) String() string {
	switch m {
	case ModeWindow:
		return "window"
	case ModeCumulative:
		return "cumulative"
	case ModeTasks:
		return "tasks"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "window", "disjoint", "disjoint-window":
		return ModeWindow, nil
	case "cumulative", "prune":
		return ModeCumulative, nil
	case "tasks", "task-selection", "across-tasks":
		return ModeTasks, nil
	}
	return 0, fmt.Errorf("unknown sweep mode %q", s)
}

// Key is one sweep configuration. Only the fields of its Mode are meaningful:
// Window uses Size and Index, Cumulative uses Index and Size (the prune
// length), Tasks uses Index.
type Key struct {
	Mode  Mode
	Size  int
	Index int
}

// Window is the i-th disjoint window of the given size.
func Window(size, offsetIndex int) Key {
	return Key{Mode: ModeWindow, Size: size, Index: offsetIndex}
}

// Prune is the i-th cumulative step; step is the prune length per index.
func Prune(i, step int) Key {
	return Key{Mode: ModeCumulative, Size: step * i, Index: i}
}

// TaskCount selects the first n catalog tasks.
func TaskCount(n int) Key {
	return Key{Mode: ModeTasks, Index: n}
}

// PruneLength is the ms kept from each segment start; 0 means no pruning.
func (k Key) PruneLength() int {
	switch k.Mode {
	case ModeWindow, ModeCumulative:
		return k.Size
	}
	return 0
}

// Padding is how far the window moves every segment start.
func (k Key) Padding() int {
	if k.Mode == ModeWindow {
		return k.Size * k.Index
	}
	return 0
}

func (k Key) Disjoint() bool { return k.Mode == ModeWindow }

func (k Key) String() string {
	switch k.Mode {
	case ModeWindow:
		return fmt.Sprintf("window(%d,%d)", k.Size, k.Index)
	case ModeCumulative:
		return fmt.Sprintf("prune(%d)", k.Index)
	case ModeTasks:
		return fmt.Sprintf("tasks(%d)", k.Index)
	}
	return "invalid"
}
