package timezone

import "time"

// Location is the reference timezone of the upstream site. Kickoff times on
// listing pages are written in this zone without any offset.
var Location *time.Location

func init() {
	var err error
	Location, err = time.LoadLocation("Asia/Shanghai")
	if err != nil {
		// hosts without tzdata still need a sane fallback, the zone has no DST
		Location = time.FixedZone("CST", 8*60*60)
	}
}

func Now() time.Time {
	return time.Now().In(Location)
}

// Clock is what anything depending on the current time should accept.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return Now()
}

// FixedClock always reports the same instant, tests use it to pin "now".
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time {
	return c.T
}
