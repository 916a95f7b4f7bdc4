package executor

import "reflect"

// Select applies a request to an in-memory record set: records failing any
// filter entry are dropped and the rest are projected to req.Attributes.
// Attributes a record lacks are left out. Filter values compare the way
// identities do, so 1, int64(1) and 1.0 are equal.
func Select(records []Record, req Request) []Record {
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if !Matches(rec, req.Filter) {
			continue
		}
		projected := make(Record, len(req.Attributes))
		for _, attr := range req.Attributes {
			if v, ok := rec[attr]; ok {
				projected[attr] = v
			}
		}
		out = append(out, projected)
	}
	return out
}

// Matches reports whether rec satisfies every entry of filter.
func Matches(rec Record, filter map[string]any) bool {
	for field, want := range filter {
		got, ok := rec[field]
		if !ok {
			return false
		}
		gk, gok := identityKey(got)
		wk, wok := identityKey(want)
		if gok && wok {
			if gk != wk {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}
