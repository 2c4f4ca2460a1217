// Package reactivation provides the category registry, the ordered
// classifier, the recommendation bands and the per-well analyzer for
// orphan-well reactivation scoring.
package reactivation

import (
	"github.com/matthewbaird/reactivation/internal/types"
)

// Category is one entry of the reactivation category registry.
type Category struct {
	Code     types.CategoryCode `json:"code"`
	Name     string             `json:"name"`
	Score    int                `json:"score"`
	MinScore int                `json:"min_score"`
}

// CategoryRegistry lists every category in decision order. It is never
// mutated at runtime.
var CategoryRegistry = []Category{
	{Code: types.CategoryHighPotential, Name: "HIGH POTENTIAL - Consistent 4k+ MCF", Score: 95, MinScore: 90},
	{Code: types.CategorySurgePotential, Name: "SURGE POTENTIAL - Recent 20k+ MCF peaks", Score: 85, MinScore: 80},
	{Code: types.CategoryDecliningViable, Name: "DECLINING BUT VIABLE - 1k-4k MCF range", Score: 70, MinScore: 65},
	{Code: types.CategorySporadicStrong, Name: "SPORADIC BUT STRONG HISTORY", Score: 60, MinScore: 50},
	{Code: types.CategorySporadicModerate, Name: "SPORADIC MODERATE HISTORY", Score: 40, MinScore: 30},
	{Code: types.CategoryLowPotential, Name: "LOW REACTIVATION POTENTIAL", Score: 20, MinScore: 0},
	{Code: types.CategoryNoProduction, Name: "NO HISTORICAL PRODUCTION", Score: 0, MinScore: 0},
	{Code: types.CategoryNoData, Name: "NO PRODUCTION DATA", Score: 0, MinScore: 0},
}

var categoriesByCode = indexCategories(CategoryRegistry)

func indexCategories(cats []Category) map[types.CategoryCode]Category {
	m := make(map[types.CategoryCode]Category, len(cats))
	for _, c := range cats {
		m[c.Code] = c
	}
	return m
}

// Lookup returns the registry entry for a category code.
func Lookup(code types.CategoryCode) (Category, bool) {
	c, ok := categoriesByCode[code]
	return c, ok
}

// mustLookup is used for codes named in this package's own rule table.
func mustLookup(code types.CategoryCode) Category {
	c, ok := categoriesByCode[code]
	if !ok {
		panic("reactivation: unregistered category " + string(code))
	}
	return c
}
