package domain

import "time"

// The operations desk records all dates and timestamps at a fixed UTC-5
// offset, matching the database defaults. No DST adjustment is applied.
var deskZone = time.FixedZone("UTC-5", -5*60*60)

// Now returns the current time in the desk timezone.
func Now() time.Time {
	return time.Now().In(deskZone)
}

// Today returns the current date in the desk timezone as YYYY-MM-DD.
func Today() string {
	return Now().Format("2006-01-02")
}

// Timestamp formats a time in the layout persisted by the database.
func Timestamp(t time.Time) string {
	return t.In(deskZone).Format("2006-01-02 15:04:05")
}
