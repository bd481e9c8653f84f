package features

import "time"

// Month returns the calendar month number of t, 1 through 12
func Month(t time.Time) int {
	return int(t.Month())
}

// Season buckets a month into one of four labels with ((month % 12) / 3) + 1.
// December, January and February map to 1; March through May to 2; and so on.
func Season(month int) int {
	return ((month % 12) / 3) + 1
}

// DeriveCalendar adds the month and season columns
func DeriveCalendar(f *Frame) {
	months := make([]float64, f.Len())
	seasons := make([]float64, f.Len())
	for i, d := range f.Dates {
		m := Month(d)
		months[i] = float64(m)
		seasons[i] = float64(Season(m))
	}
	f.Set(ColMonth, months)
	f.Set(ColSeason, seasons)
}
