package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ubc-iui/emdat-sweep/sweep"
)

// PathFor returns the feature table path of key k under root.
func PathFor(root string, k sweep.Key) string {
	switch k.Mode {
	case sweep.ModeWindow:
		return filepath.Join(root, "disjoint", fmt.Sprintf("window_%d", k.Size), fmt.Sprintf("chunk_%d.tsv", k.Index))
	case sweep.ModeCumulative:
		return filepath.Join(root, "cumulative", fmt.Sprintf("pruning_%d.tsv", k.PruneLength()))
	case sweep.ModeTasks:
		return filepath.Join(root, "across_tasks", fmt.Sprintf("tasks_included_%d.tsv", k.Index))
	}
	return filepath.Join(root, "unknown", k.String()+".tsv")
}

func ValidityPathFor(root string, k sweep.Key) string {
	return strings.TrimSuffix(PathFor(root, k), ".tsv") + "_validity.tsv"
}
