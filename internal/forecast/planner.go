package forecast

import (
	"sort"
	"time"

	"github.com/skyroute-io/skyroute/internal/catalog"
)

// Plan validates the query against the catalog snapshot and partitions its
// variable set into one sub-request per distinct provider group. Each
// sub-request carries the full coordinate list and the original
// timestamp/timezone. Validation fails fast, before any network call; the
// partition itself never fails for unusual-but-valid input.
func Plan(snap *catalog.Snapshot, q *Query, now time.Time) ([]SubRequest, error) {
	if len(q.Coordinates) == 0 {
		return nil, validationErrorf("at least one coordinate is required")
	}
	for _, c := range q.Coordinates {
		if c.Lat < -90 || c.Lat > 90 {
			return nil, validationErrorf("latitude %v must be between -90 and 90", c.Lat)
		}
		if c.Lon < -180 || c.Lon > 180 {
			return nil, validationErrorf("longitude %v must be between -180 and 180", c.Lon)
		}
	}
	if len(q.Variables) == 0 {
		return nil, validationErrorf("at least one variable is required")
	}

	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		return nil, validationErrorf("unknown timezone %q", q.Timezone)
	}
	when, err := time.ParseInLocation(TimestampLayout, q.Timestamp, loc)
	if err != nil {
		return nil, validationErrorf("invalid timestamp %q, expected %q", q.Timestamp, TimestampLayout)
	}
	if !when.After(now.In(loc)) {
		return nil, validationErrorf("timestamp must be in the future")
	}
	q.When = when

	groups, unknown := snap.GroupsFor(q.Variables)
	if len(unknown) > 0 {
		return nil, &UnknownVariablesError{Names: unknown}
	}

	names := make([]string, 0, len(groups))
	for g := range groups {
		names = append(names, g)
	}
	sort.Strings(names)

	subs := make([]SubRequest, 0, len(names))
	for _, g := range names {
		subs = append(subs, SubRequest{
			Group:       g,
			Coordinates: q.Coordinates,
			Variables:   groups[g],
			Timestamp:   q.Timestamp,
			Timezone:    q.Timezone,
		})
	}
	return subs, nil
}
