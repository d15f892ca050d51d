package utils

import (
	"time"
)

// IndiaLocation is the timezone for Indian markets.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// NSE cash session boundaries, minutes from midnight IST.
const (
	MarketOpenMinute  = 9*60 + 15  // 09:15
	MarketCloseMinute = 15*60 + 30 // 15:30
)

// MinuteOfDay returns t's minutes-from-midnight in IST.
func MinuteOfDay(t time.Time) int {
	t = t.In(IndiaLocation)
	return t.Hour()*60 + t.Minute()
}

// IsTradingDay reports whether t falls on a weekday.
func IsTradingDay(t time.Time) bool {
	wd := t.In(IndiaLocation).Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// SessionOpenAt returns the session open instant for t's calendar day.
func SessionOpenAt(t time.Time) time.Time {
	t = t.In(IndiaLocation)
	return time.Date(t.Year(), t.Month(), t.Day(), 9, 15, 0, 0, IndiaLocation)
}

// SessionCloseAt returns the session close instant for t's calendar day.
func SessionCloseAt(t time.Time) time.Time {
	t = t.In(IndiaLocation)
	return time.Date(t.Year(), t.Month(), t.Day(), 15, 30, 0, 0, IndiaLocation)
}

// MarketWindow returns the session open and close for a trade date in
// YYYY-MM-DD form, as epoch milliseconds. Quote providers take ms bounds.
func MarketWindow(date string) (startMs, endMs int64, err error) {
	d, err := time.ParseInLocation("2006-01-02", date, IndiaLocation)
	if err != nil {
		return 0, 0, err
	}
	return SessionOpenAt(d).UnixMilli(), SessionCloseAt(d).UnixMilli(), nil
}

// TradeDate returns t's calendar date in IST as YYYY-MM-DD.
func TradeDate(t time.Time) string {
	return t.In(IndiaLocation).Format("2006-01-02")
}
