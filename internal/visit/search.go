package visit

import "strings"

// Search returns the visits whose visitor name, company or purpose contains
// query, ignoring case. Callers treat an empty query as no filter.
func Search(visits []Visit, query string) []Visit {
	q := strings.ToLower(query)
	matches := []Visit{}
	for _, v := range visits {
		if strings.Contains(strings.ToLower(v.VisitorName), q) ||
			strings.Contains(strings.ToLower(v.Company), q) ||
			strings.Contains(strings.ToLower(v.Purpose), q) {
			matches = append(matches, v)
		}
	}
	return matches
}
