// Package retrieve implements hybrid retrieval over a community's chunks:
// dictionary-driven query expansion, vector similarity, BM25 lexical
// ranking, Reciprocal Rank Fusion, and an optional cross-encoder rerank.
package retrieve

import (
	"sort"
	"strings"
)

// synonyms maps governing-document vocabulary to the terms tenants
// actually use. Expansion is rule-based; there is no model call here.
var synonyms = map[string][]string{
	"pet":        {"animal", "dog", "cat", "pets", "animals"},
	"dog":        {"pet", "animal", "dogs", "canine"},
	"cat":        {"pet", "animal", "cats", "feline"},
	"fence":      {"fencing", "wall", "boundary", "perimeter"},
	"paint":      {"color", "exterior", "painting", "colours"},
	"color":      {"paint", "colour", "colors", "exterior"},
	"rent":       {"rental", "lease", "sublease", "airbnb", "short-term"},
	"airbnb":     {"rental", "short-term", "transient", "lease"},
	"park":       {"parking", "vehicle", "car", "garage", "driveway"},
	"parking":    {"park", "vehicle", "car", "garage", "driveway"},
	"rv":         {"recreational vehicle", "camper", "trailer", "motorhome"},
	"tree":       {"trees", "vegetation", "landscaping", "removal"},
	"noise":      {"quiet", "nuisance", "disturbance", "sound"},
	"grill":      {"barbecue", "bbq", "charcoal", "cooking"},
	"sign":       {"signs", "signage", "display"},
	"satellite":  {"dish", "antenna", "satellite dish"},
	"pool":       {"swimming", "swimming pool", "recreation"},
	"dues":       {"assessment", "fee", "fees", "charges", "monthly"},
	"assessment": {"dues", "fee", "fees", "charges"},
	"renovate":   {"remodel", "improvement", "modification", "alteration", "renovation"},
	"chicken":    {"poultry", "barnyard", "livestock", "chickens"},
	"horse":      {"horses", "equine", "livestock", "equestrian"},
	"business":   {"commercial", "home occupation", "home business", "work"},
	"alcohol":    {"liquor", "beer", "wine", "drinking"},
	"boat":       {"watercraft", "vessel", "trailer"},
	"laundry":    {"clothes", "drying", "clothesline", "washing"},
	"floor":      {"flooring", "carpet", "hardwood", "tile"},
	"window":     {"windows", "window covering", "curtain", "blinds"},
	"solar":      {"solar panel", "photovoltaic", "energy"},
	"garage":     {"garage door", "parking", "carport"},
	"height":     {"tall", "maximum height", "feet"},
	"size":       {"square feet", "minimum", "square footage", "area"},
}

// Expand adds domain synonyms to a query. The original terms always stay,
// expansions are appended in sorted order, and the transform is a pure
// function of the input so retrieval stays reproducible.
func Expand(query string) string {
	words := strings.Fields(strings.ToLower(query))
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))

	for _, w := range words {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}

	var added []string
	for _, w := range words {
		for _, syn := range synonyms[w] {
			if !seen[syn] {
				seen[syn] = true
				added = append(added, syn)
			}
		}
	}
	sort.Strings(added)

	return strings.Join(append(out, added...), " ")
}
