package ingest

import (
	"time"

	"github.com/amirasaad/fxrates/pkg/exchange/core"
)

// ValidateRates splits rows into usable and discarded ones. A row is
// discarded when its rate is not a finite positive number or a code is
// malformed. Self pairs such as the base quoted against itself are dropped
// without counting as discarded.
func ValidateRates(rows []core.RatePair) (valid, discarded []core.RatePair) {
	for _, r := range rows {
		from, errFrom := core.ParseCode(r.From)
		to, errTo := core.ParseCode(r.To)
		if !core.ValidRate(r.Rate) || errFrom != nil || errTo != nil {
			discarded = append(discarded, r)
			continue
		}
		if from == to {
			continue
		}
		valid = append(valid, r)
	}
	return valid, discarded
}

// Normalize uppercases codes and stamps provenance and expiry on every row.
func Normalize(rows []core.RatePair, source string, now time.Time, ttl time.Duration) []core.RatePair {
	out := make([]core.RatePair, 0, len(rows))
	for _, r := range rows {
		r.From = core.NormalizeCode(r.From)
		r.To = core.NormalizeCode(r.To)
		r.Source = source
		r.UpdatedAt = now
		r.ExpiresAt = now.Add(ttl)
		out = append(out, r)
	}
	return out
}

// MergeSources concatenates feeds given in priority order. When two feeds
// carry the same (from, to) key the earlier feed wins.
func MergeSources(feeds ...[]core.RatePair) []core.RatePair {
	seen := make(map[string]struct{})
	var out []core.RatePair
	for _, feed := range feeds {
		for _, r := range feed {
			if _, dup := seen[r.Key()]; dup {
				continue
			}
			seen[r.Key()] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

// Canonicalize keeps a single direction per currency pair: the first one
// encountered. Callers pass rows in priority order, so the canonical
// direction is the one reported by the highest-priority feed. The opposite
// direction is derived by inversion when resolving.
func Canonicalize(rows []core.RatePair) []core.RatePair {
	seen := make(map[string]struct{})
	out := make([]core.RatePair, 0, len(rows))
	for _, r := range rows {
		k := unorderedKey(r.From, r.To)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

func unorderedKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}
