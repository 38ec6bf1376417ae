package main

import (
	"fmt"
	"io"
	"time"

	"gdfplan/internal/pipeline"
)

var stageVerbs = map[pipeline.Stage]string{
	pipeline.StageLoad:   "loaded",
	pipeline.StageGraph:  "graphed",
	pipeline.StageLower:  "lowered",
	pipeline.StageCost:   "costed",
	pipeline.StageExport: "exported",
}

// printStageTimings writes one line per recorded stage, summed over files.
func printStageTimings(out io.Writer, timings pipeline.Timings) {
	if out == nil {
		return
	}
	for _, stage := range pipeline.Stages() {
		if !timings.Has(stage) {
			continue
		}
		fmt.Fprintf(out, "%s %.1f ms\n", stageVerbs[stage], toMillis(timings.Duration(stage)))
	}
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
