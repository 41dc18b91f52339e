package store

// DaySummary is the per-day left/right distribution behind the daily pie chart.
type DaySummary struct {
	Date      string `json:"date"`
	Left      int    `json:"left"`
	Right     int    `json:"right"`
	Remaining int    `json:"remaining"`
	Complete  bool   `json:"complete"`
}

// AverageSummary is the historical average distribution behind the all-time chart.
type AverageSummary struct {
	Days     int     `json:"days"`
	AvgLeft  float64 `json:"avg_left"`
	AvgRight float64 `json:"avg_right"`
}

// Summary computes the distribution for one date. Absent dates summarize as
// all-unanswered rather than erroring, same as Answers.
func (s *HistoryStore) Summary(date string) (DaySummary, error) {
	rec, err := s.Answers(date)
	if err != nil {
		return DaySummary{}, err
	}
	left, right := rec.Counts()
	return DaySummary{
		Date:      date,
		Left:      left,
		Right:     right,
		Remaining: rec.Remaining(),
		Complete:  rec.Complete(),
	}, nil
}

// Average computes the mean left/right counts across all recorded days.
// An empty history yields zeros, not NaN.
func (s *HistoryStore) Average() AverageSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var totalLeft, totalRight, days int
	for _, rec := range s.records {
		left, right := rec.Counts()
		totalLeft += left
		totalRight += right
		days++
	}

	out := AverageSummary{Days: days}
	if days > 0 {
		out.AvgLeft = float64(totalLeft) / float64(days)
		out.AvgRight = float64(totalRight) / float64(days)
	}
	return out
}

// CompleteDays counts days with every answerable row filled in.
func (s *HistoryStore) CompleteDays() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rec := range s.records {
		if rec.Complete() {
			n++
		}
	}
	return n
}
