package website

import (
	"time"
)

type flameItem struct {
	Offset      int64
	Duration    int64
	Category    string
	Description string
	Children    []*flameItem
	End         time.Time  `json:"-"`
	Parent      *flameItem `json:"-"`
}

type perfRecord struct {
	Route     string
	Method    string
	Path      string
	Duration  int64
	Breakdown *flameItem
}

// Recent request timings as JSON, with blocks nested into a flame graph.
// Durations and offsets are in microseconds.
func AdminPerf(c *RequestContext) ResponseData {
	b := c.Perf.StartBlock("PERF", "Requesting perf data")
	perfData := c.PerfCollector.GetPerfCopy()
	b.End()

	b = c.Perf.StartBlock("PERF", "Processing perf data")
	perfRecords := []perfRecord{}
	for _, item := range perfData {
		end := item.Start.Add(item.Duration)
		record := perfRecord{
			Route:    item.Route,
			Method:   item.Method,
			Path:     item.Path,
			Duration: item.Duration.Microseconds(),
			Breakdown: &flameItem{
				Offset:   0,
				Duration: item.Duration.Microseconds(),
				End:      end,
			},
		}

		parent := record.Breakdown
		for _, block := range item.Blocks {
			for parent.Parent != nil && block.End.After(parent.End) {
				parent = parent.Parent
			}
			flame := flameItem{
				Offset:      block.Start.Sub(item.Start).Microseconds(),
				Duration:    block.End.Sub(block.Start).Microseconds(),
				Category:    block.Category,
				Description: block.Description,
				End:         block.End,
				Parent:      parent,
			}

			parent.Children = append(parent.Children, &flame)
			parent = &flame
		}

		perfRecords = append(perfRecords, record)
	}
	b.End()

	var res ResponseData
	res.WriteJson(perfRecords, c.Perf)
	return res
}
