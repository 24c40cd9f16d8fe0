package analysis

import "sort"

// Named pairs a variation name with its summary.
type Named struct {
	Name    string
	Summary Summary
}

type Ranked struct {
	Rank    int     `json:"rank"`
	Name    string  `json:"name"`
	Summary Summary `json:"summary"`
}

// Rank sorts variations descending by final capital. Ties keep input order.
func Rank(in []Named) []Ranked {
	sorted := append([]Named(nil), in...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Summary.FinalCapital > sorted[j].Summary.FinalCapital
	})
	out := make([]Ranked, len(sorted))
	for i, n := range sorted {
		out[i] = Ranked{Rank: i + 1, Name: n.Name, Summary: n.Summary}
	}
	return out
}
