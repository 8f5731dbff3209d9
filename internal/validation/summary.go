package validation

// Bucket counts results within one grouping.
type Bucket struct {
	Total  int `json:"total"`
	Passed int `json:"passed"`
}

// Summary aggregates a results list. An empty list yields Score 0 with
// IsHealthy true: nothing ran, so nothing failed.
type Summary struct {
	Total      int                 `json:"total"`
	Passed     int                 `json:"passed"`
	Failed     int                 `json:"failed"`
	Warnings   int                 `json:"warnings"`
	Errors     int                 `json:"errors"`
	Score      float64             `json:"score"`
	IsHealthy  bool                `json:"is_healthy"`
	ByCategory map[string]Bucket   `json:"by_category"`
	ByPriority map[Priority]Bucket `json:"by_priority"`
}

// Summarize computes the aggregate view of a results list.
func Summarize(results []Result) Summary {
	s := Summary{
		ByCategory: make(map[string]Bucket),
		ByPriority: make(map[Priority]Bucket),
	}

	for _, res := range results {
		s.Total++
		switch res.Status {
		case StatusPassed:
			s.Passed++
		case StatusWarning:
			s.Warnings++
		case StatusError:
			s.Errors++
		default:
			s.Failed++
		}

		cat := s.ByCategory[res.Category]
		cat.Total++
		if res.Status == StatusPassed {
			cat.Passed++
		}
		s.ByCategory[res.Category] = cat

		pri := s.ByPriority[res.Priority]
		pri.Total++
		if res.Status == StatusPassed {
			pri.Passed++
		}
		s.ByPriority[res.Priority] = pri
	}

	if s.Total == 0 {
		s.IsHealthy = true
		return s
	}

	s.Score = float64(s.Passed) / float64(s.Total) * 100
	s.IsHealthy = s.Failed == 0 && s.Errors == 0
	return s
}
