package inventory

// DayRecord is the full answer sequence for a single calendar date.
// Its length always equals RowCount(); the header slot stays Unanswered.
type DayRecord []Answer

// NewDayRecord returns an all-unanswered record of canonical length.
func NewDayRecord() DayRecord {
	return make(DayRecord, RowCount())
}

// Clone returns an independent copy.
func (r DayRecord) Clone() DayRecord {
	out := make(DayRecord, len(r))
	copy(out, r)
	return out
}

// Normalized returns a copy padded or truncated to canonical length with the
// header slot forced to Unanswered. Imported data of a different vintage is
// coerced rather than rejected.
func (r DayRecord) Normalized() DayRecord {
	out := NewDayRecord()
	copy(out, r)
	out[HeaderRowIndex] = Unanswered
	for i, a := range out {
		if !a.Valid() {
			out[i] = Unanswered
		}
	}
	return out
}

// Remaining counts answerable rows still unanswered.
func (r DayRecord) Remaining() int {
	remaining := 0
	for i, a := range r {
		if i == HeaderRowIndex {
			continue
		}
		if a == Unanswered {
			remaining++
		}
	}
	return remaining
}

// Complete reports whether every answerable row has an answer.
func (r DayRecord) Complete() bool {
	return r.Remaining() == 0
}

// Counts returns the number of left and right selections.
func (r DayRecord) Counts() (left, right int) {
	for _, a := range r {
		switch a {
		case Left:
			left++
		case Right:
			right++
		}
	}
	return left, right
}
