package sweep

import "fmt"

// MaxTaskCount bounds the task-selection keys whatever the catalog length.
const MaxTaskCount = 15

// Space is the ordered set of keys one run iterates.
type Space struct {
	Mode    Mode
	Windows []int
	Ceiling int
	Step    int
	Catalog []string
}

// Keys enumerates the space. Disjoint windows: for each size w in the given
// order, offsets 0..Ceiling/w-1. Cumulative: 1..Ceiling/Step-1. Tasks:
// 1..min(len(Catalog), MaxTaskCount).
func (s Space) Keys() []Key {
	var keys []Key
	switch s.Mode {
	case ModeWindow:
		for _, w := range s.Windows {
			if w <= 0 {
				continue
			}
			for i := 0; i < s.Ceiling/w; i++ {
				keys = append(keys, Window(w, i))
			}
		}
	case ModeCumulative:
		if s.Step <= 0 {
			return nil
		}
		for i := 1; i < s.Ceiling/s.Step; i++ {
			keys = append(keys, Prune(i, s.Step))
		}
	case ModeTasks:
		for i := 1; i <= min(len(s.Catalog), MaxTaskCount); i++ {
			keys = append(keys, TaskCount(i))
		}
	}
	return keys
}

func (s Space) Validate() error {
	switch s.Mode {
	case ModeWindow:
		if len(s.Windows) == 0 {
			return fmt.Errorf("window sweep needs at least one time window")
		}
	case ModeCumulative:
		if s.Step <= 0 {
			return fmt.Errorf("cumulative sweep needs a positive step")
		}
	case ModeTasks:
		if len(s.Catalog) == 0 {
			return fmt.Errorf("task sweep needs a task catalog")
		}
	default:
		return fmt.Errorf("invalid sweep mode %v", s.Mode)
	}
	if s.Ceiling <= 0 {
		return fmt.Errorf("sweep ceiling must be positive")
	}
	return nil
}
