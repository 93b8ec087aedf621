package listing

import "sort"

type dedupeKey struct {
	retailer Retailer
	itemID   string
}

// DedupeAndRank merges listings from all pages of a crawl into one
// ranked sequence. Duplicates share a (retailer, itemID) key: the
// first occurrence in input order wins, later ones are dropped and
// counted. The result is stably sorted ascending by price per TB,
// ties broken by retailer name so report snapshots are reproducible.
// Running it on its own output is a no-op.
func DedupeAndRank(in []NormalizedListing) ([]NormalizedListing, int) {
	out := make([]NormalizedListing, 0, len(in))
	seen := make(map[dedupeKey]struct{}, len(in))
	duplicates := 0

	for _, l := range in {
		key := dedupeKey{retailer: l.Retailer, itemID: l.ItemID}
		if _, ok := seen[key]; ok {
			duplicates++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PricePerTB != out[j].PricePerTB {
			return out[i].PricePerTB < out[j].PricePerTB
		}
		return out[i].Retailer < out[j].Retailer
	})

	return out, duplicates
}
