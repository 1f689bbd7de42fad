package combat

import "sort"

// computeOrder returns participant ids ordered non-increasing by
// dexterity, with a stable tie-break on participant id.
func computeOrder(participants map[string]*Participant) []string {
	ids := make([]string, 0, len(participants))
	for id := range participants {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		pi, pj := participants[ids[i]], participants[ids[j]]
		if pi.Dex != pj.Dex {
			return pi.Dex > pj.Dex
		}
		return ids[i] < ids[j]
	})
	return ids
}
