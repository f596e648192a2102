package sanitizer

func NormalizeStringSlice(items []string, normalizer Strategy) []string {
	if len(items) == 0 {
		return []string{}
	}

	seen := make(map[string]bool)
	result := make([]string, 0, len(items))

	for _, item := range items {
		normalized := normalizer(item)

		if normalized == "" {
			continue
		}

		if seen[normalized] {
			continue
		}

		seen[normalized] = true
		result = append(result, normalized)
	}

	return result
}

// DuplicateIndexes returns the positions whose normalized value already
// appeared earlier in items. Empty values are never reported.
func DuplicateIndexes(items []string, normalizer Strategy) []int {
	seen := make(map[string]bool, len(items))
	var dups []int
	for i, item := range items {
		normalized := normalizer(item)
		if normalized == "" {
			continue
		}
		if seen[normalized] {
			dups = append(dups, i)
			continue
		}
		seen[normalized] = true
	}
	return dups
}
