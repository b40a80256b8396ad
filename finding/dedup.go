package finding

// Deduplicate collapses findings that share an identity key.
//
// For every key the finding with the highest severity survives; on a tie the
// one seen first is kept. The result lists keys in order of first appearance,
// so the same input always yields the same output.
func Deduplicate(raw []Finding) []Finding {
	index := make(map[Key]int, len(raw))
	out := make([]Finding, 0, len(raw))

	for _, f := range raw {
		key := f.Key()
		i, seen := index[key]
		if !seen {
			index[key] = len(out)
			out = append(out, f)
			continue
		}
		if f.Severity > out[i].Severity {
			out[i] = f
		}
	}

	return out
}
