package timezone

import "time"

var Default *time.Location

func init() {
	var err error
	// US/Eastern is the historical default for civic sites that don't
	// declare a zone of their own.
	Default, err = time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
}

// Resolve loads a zone by IANA name. Unknown or empty names report
// ok=false and hand back the default so callers never have to deal
// with a nil location.
func Resolve(name string) (loc *time.Location, ok bool) {
	if name == "" {
		return Default, false
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return Default, false
	}
	return loc, true
}

// force "now" into the default zone because servers sometimes end up
// in other regions which causes disturbances when manipulating dates
// based on <time.Time>.Year()/Month()/Day()/...
func Now() time.Time {
	return time.Now().In(Default)
}
