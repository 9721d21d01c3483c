package sparql

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/wbrown/janus-ldf/ldf/annotations"
	"github.com/wbrown/janus-ldf/ldf/clustering"
	"github.com/wbrown/janus-ldf/ldf/fragments"
)

// Planners for basic graph patterns.
const (
	PlannerReorder    = "reorder"
	PlannerClustering = "clustering"
)

// Options configures query execution.
type Options struct {
	Client         fragments.Client       // Source of fragments (required)
	Logger         *zap.Logger            // Default: no-op
	Annotations    *annotations.Collector // Execution events (optional)
	BufferSize     int                    // Open transformers per pattern iterator
	SortWindow     int                    // ORDER BY window (0 = sort everything)
	DistinctWindow int                    // DISTINCT memory (0 = remember everything)
	Planner        string                 // PlannerReorder (default) or PlannerClustering
	Clustering     clustering.Config      // Coefficients of the clustering planner
	Prefixes       map[string]string      // Predeclared prefixes
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) validate() error {
	switch o.Planner {
	case "", PlannerReorder, PlannerClustering:
	default:
		return fmt.Errorf("sparql: unknown planner %q (use %s or %s)", o.Planner, PlannerReorder, PlannerClustering)
	}
	return o.Clustering.Validate()
}
