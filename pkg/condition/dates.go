package condition

import "time"

// DateSelect is the filter bar's preset key. The empty value is a custom range.
type DateSelect string

const (
	DateSelectCustom    DateSelect = ""
	DateSelectToday     DateSelect = "0"
	DateSelectYesterday DateSelect = "-1"
	DateSelectLast7     DateSelect = "-7"
	DateSelectLast30    DateSelect = "-30"
	DateSelectThisYear  DateSelect = "thisyear"
)

// Symbolic date values. The backend evaluates them at query time.
const (
	ValueToday      = "TODAY"
	ValueYesterday  = "YESTERDAY"
	ValueLast7Days  = "LAST7DAYS"
	ValueLast30Days = "LAST30DAYS"
	ValueThisYear   = "THISYEAR"
)

// DateLayout is the literal date format used in CreatedDate leaves.
const DateLayout = "2006-01-02"

type symbolicPair struct {
	sel      DateSelect
	from, to string
}

var symbolicPairs = []symbolicPair{
	{DateSelectToday, ValueToday, ValueToday},
	{DateSelectYesterday, ValueYesterday, ValueYesterday},
	{DateSelectLast7, ValueLast7Days, ValueToday},
	{DateSelectLast30, ValueLast30Days, ValueToday},
	{DateSelectThisYear, ValueThisYear, ValueToday},
}

func pairFor(sel DateSelect) (symbolicPair, bool) {
	for _, p := range symbolicPairs {
		if p.sel == sel {
			return p, true
		}
	}
	return symbolicPair{}, false
}

// Valid reports whether s is one of the preset keys.
func (s DateSelect) Valid() bool {
	_, ok := pairFor(s)
	return ok
}

// DateRange is an inclusive day range. Only the date part is meaningful.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// keywordDay resolves a single symbolic value to the day it denotes when used
// as a lower bound (LAST7DAYS -> a week ago) or upper bound.
func keywordDay(value string, now time.Time) (time.Time, bool) {
	today := startOfDay(now)
	switch value {
	case ValueToday:
		return today, true
	case ValueYesterday:
		return today.AddDate(0, 0, -1), true
	case ValueLast7Days:
		return today.AddDate(0, 0, -7), true
	case ValueLast30Days:
		return today.AddDate(0, 0, -30), true
	case ValueThisYear:
		return time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location()), true
	}
	return time.Time{}, false
}

// RangeFor returns the concrete day range a preset covers relative to now.
// Unknown presets yield the last 30 days.
func RangeFor(sel DateSelect, now time.Time) DateRange {
	p, ok := pairFor(sel)
	if !ok {
		p, _ = pairFor(DateSelectLast30)
	}
	from, _ := keywordDay(p.from, now)
	to, _ := keywordDay(p.to, now)
	return DateRange{From: from, To: to}
}
