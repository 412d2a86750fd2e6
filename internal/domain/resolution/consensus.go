package resolution

import "strings"

// Consensus resolves one value per attribute by majority vote over the
// given summaries.  Blank values never vote.  When several values share the
// highest count the byte-wise smallest one wins, so the outcome never
// depends on input or map iteration order.
func Consensus(summaries []map[string]string) map[string]string {
	tally := make(map[string]map[string]int)
	for _, s := range summaries {
		for field, value := range s {
			if strings.TrimSpace(value) == "" {
				continue
			}
			counts, ok := tally[field]
			if !ok {
				counts = make(map[string]int)
				tally[field] = counts
			}
			counts[value]++
		}
	}

	out := make(map[string]string, len(tally))
	for field, counts := range tally {
		var best string
		bestN := 0
		for value, n := range counts {
			if n > bestN || (n == bestN && value < best) {
				best, bestN = value, n
			}
		}
		out[field] = best
	}
	return out
}

// MinIdentity returns the smallest identity among records.
func MinIdentity[R Raw](records []R) string {
	var lowest string
	for i, r := range records {
		if id := r.Identity(); i == 0 || id < lowest {
			lowest = id
		}
	}
	return lowest
}

//Personal.AI order the ending
