package recurrence

// EstimateTotal approximates how many occurrences a pattern will produce.
// bounded is false when the pattern has neither MaxOccurrences nor End,
// i.e. it is conceptually unbounded and callers must cap generation.
//
// The count is a display estimate derived from elapsed days and the
// pattern cadence, not a recount; never rely on it for generation
// correctness.
func EstimateTotal(p Pattern) (n int, bounded bool) {
	if p == nil {
		return 0, true
	}
	b := p.bounds()
	if b.MaxOccurrences > 0 {
		return b.MaxOccurrences, true
	}
	if b.End == nil {
		return 0, false
	}

	days := b.End.DaysSince(b.Start)
	if days < 0 {
		return 0, true
	}
	step := b.step()

	switch v := p.(type) {
	case Daily:
		return days/step + 1, true
	case Custom:
		return days/step + 1, true
	case Weekly:
		if v.Days == nil {
			return days/(7*step) + 1, true
		}
		if len(v.Days) == 0 {
			return 0, true
		}
		weeks := days/(7*step) + 1
		return weeks * len(v.Days), true
	case Monthly:
		// Calendar months vary; 30 is close enough for a preview figure.
		return days/(30*step) + 1, true
	default:
		return days/step + 1, true
	}
}
