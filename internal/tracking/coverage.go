package tracking

// CoverageStats summarises how much of a document is documented.
type CoverageStats struct {
	Functions  int     `json:"functions"`
	Documented int     `json:"documented"`
	Pending    int     `json:"pending"`
	Percent    float64 `json:"percent"`
}

// Coverage counts documented functions. A document without functions is
// reported as fully documented.
func Coverage(functions []*Function) CoverageStats {
	stats := CoverageStats{Functions: len(functions)}
	for _, fn := range functions {
		if fn.HasDocstring() {
			stats.Documented++
		}
	}
	if stats.Functions == 0 {
		stats.Percent = 100
		return stats
	}
	stats.Percent = float64(stats.Documented) / float64(stats.Functions) * 100
	return stats
}
