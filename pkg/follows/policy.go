package follows

// NextOffset returns the offset of the next list page.
//
// Pixiv sometimes reports a total larger than the number of accounts it will
// actually return, and then answers a later page with no users. An empty page
// therefore jumps the offset past declaredTotal, ending enumeration instead
// of requesting the same offset forever. The cost is a known limitation:
// when the server's count and its pages disagree, accounts it never returned
// are silently left out rather than fetched.
func NextOffset(offset, returned, declaredTotal int) int {
	if returned == 0 {
		return offset + declaredTotal
	}
	return offset + returned
}

// Dedupe drops entities whose ID was already seen, keeping the first
// occurrence and the original order. It returns how many were dropped.
//
// Pagination drift can return the same account on two pages. Changing it
// twice is harmless but wastes a paced request.
func Dedupe(entities []Entity) ([]Entity, int) {
	seen := make(map[string]struct{}, len(entities))
	out := make([]Entity, 0, len(entities))
	for _, e := range entities {
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out, len(entities) - len(out)
}
