// Package pattern synthesizes candidate email local-parts from a person's
// name and scores each one by how common the pattern is in the wild.
package pattern

import "fmt"

// Pattern is one row of the canonical table: a tag, a template over the
// normalized name parts, and its confidence/commonality ranking. The table is
// the single source of truth for both generation and the listing endpoint.
type Pattern struct {
	Tag         string
	Confidence  int
	Commonality string

	needsFirst bool
	needsLast  bool
	build      func(p parts) string
}

type parts struct {
	first, last       string
	fInitial, lInitial string
}

// table is ordered most-to-least common; confidence is strictly descending.
var table = []Pattern{
	{"first.last", 95, "Very Common", true, true, func(p parts) string { return p.first + "." + p.last }},
	{"firstlast", 85, "Common", true, true, func(p parts) string { return p.first + p.last }},
	{"first_last", 80, "Common", true, true, func(p parts) string { return p.first + "_" + p.last }},
	{"flast", 78, "Common", true, true, func(p parts) string { return p.fInitial + p.last }},
	{"firstl", 72, "Moderate", true, true, func(p parts) string { return p.first + p.lInitial }},
	{"f.last", 70, "Moderate", true, true, func(p parts) string { return p.fInitial + "." + p.last }},
	{"lastfirst", 65, "Moderate", true, true, func(p parts) string { return p.last + p.first }},
	{"lastf", 60, "Less Common", true, true, func(p parts) string { return p.last + p.fInitial }},
	{"last.first", 55, "Less Common", true, true, func(p parts) string { return p.last + "." + p.first }},
	{"first", 50, "Less Common", true, false, func(p parts) string { return p.first }},
	{"last", 45, "Rare", false, true, func(p parts) string { return p.last }},
	{"first-last", 40, "Rare", true, true, func(p parts) string { return p.first + "-" + p.last }},
}

// Count is the size of the canonical pattern set.
func Count() int { return len(table) }

// Score returns the confidence and commonality label for a tag. Unknown tags
// score zero.
func Score(tag string) (int, string) {
	for _, p := range table {
		if p.Tag == tag {
			return p.Confidence, p.Commonality
		}
	}
	return 0, "Unknown"
}

// Listing is one entry of the pattern catalogue shown for a domain.
type Listing struct {
	Pattern     string `json:"pattern"`
	Example     string `json:"example"`
	Commonality string `json:"commonality"`
}

// List renders the full table as example addresses at the given domain.
func List(domain string) []Listing {
	example := parts{first: "john", last: "doe", fInitial: "j", lInitial: "d"}
	out := make([]Listing, 0, len(table))
	for _, p := range table {
		out = append(out, Listing{
			Pattern:     p.Tag,
			Example:     fmt.Sprintf("%s@%s", p.build(example), domain),
			Commonality: p.Commonality,
		})
	}
	return out
}
