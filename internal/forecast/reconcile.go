package forecast

import (
	"log"
	"strconv"
)

// fieldAliases maps requested variable names to the differently-named
// fields some providers return them under. An alias, when present in the
// payload, wins over the literal name.
var fieldAliases = map[string]string{
	"wind_10m":  "wind_speed_10",
	"wind_100m": "wind_speed_100",
}

// Reconcile merges the successful provider results into one per-location
// record. Every input coordinate becomes a key in the output, possibly with
// an empty value map; a provider that cannot be matched to a location, or a
// variable absent from a matched record, is a gap, not an error.
func Reconcile(coords []Coordinate, results []Result) map[string]map[string]interface{} {
	unified := make(map[string]map[string]interface{}, len(coords))
	for _, c := range coords {
		unified[c.Key()] = make(map[string]interface{})
	}

	for _, res := range results {
		if !res.Success {
			log.Printf("reconcile: skipping failed group %s: %s", res.Group, res.Err)
			continue
		}
		for i, c := range coords {
			rec, ok := locateRecord(res.Payload, c, i)
			if !ok {
				continue
			}
			dst := unified[c.Key()]
			for _, v := range res.Variables {
				if field, ok := resolveField(v, rec); ok {
					dst[v] = rec[field]
				} else {
					log.Printf("reconcile: variable %s not found in %s response for %s", v, res.Group, c.Key())
				}
			}
		}
	}

	return unified
}

// locateRecord finds one location's record inside a provider payload,
// trying each known addressing scheme in order: positional index, the
// canonical "lat,lon" key, then the alternate key formats some providers
// use. Returns false when the payload simply has nothing for this location.
func locateRecord(p Payload, c Coordinate, index int) (Record, bool) {
	if index < len(p.Records) {
		if rec := p.Records[index]; rec != nil {
			return rec, true
		}
	}
	if len(p.Keyed) == 0 {
		return nil, false
	}

	lat := formatFloat(c.Lat)
	lon := formatFloat(c.Lon)
	candidates := []string{
		c.Key(),
		lat + "_" + lon,
		"lat_" + lat + "_lon_" + lon,
		strconv.Itoa(index),
	}
	for _, key := range candidates {
		if rec, ok := p.Keyed[key]; ok && rec != nil {
			return rec, true
		}
	}
	return nil, false
}

// resolveField picks the payload field a requested variable should be read
// from: the alias when one exists and is present, then the literal name.
func resolveField(name string, rec Record) (string, bool) {
	if alias, ok := fieldAliases[name]; ok {
		if _, present := rec[alias]; present {
			return alias, true
		}
	}
	if _, present := rec[name]; present {
		return name, true
	}
	return "", false
}
