// Package category maps the product's fixed categories to API tag filters.
package category

import (
	"fmt"
	"strings"
)

// Category is one of the fixed article categories. Each category except All
// is also the tag the API filters on.
type Category string

const (
	All           Category = "All"
	WorldNews     Category = "World News"
	Politics      Category = "Politics"
	Business      Category = "Business"
	Finance       Category = "Finance"
	Health        Category = "Health"
	Science       Category = "Science"
	Entertainment Category = "Entertainment"
	Sports        Category = "Sports"
	Technology    Category = "Technology"
	AI            Category = "AI"
	Cybersecurity Category = "Cybersecurity"
	Gaming        Category = "Gaming"
	Travel        Category = "Travel"
	Food          Category = "Food"
	Lifestyle     Category = "Lifestyle"
)

// AllCategories returns all categories in display order.
func AllCategories() []Category {
	return []Category{
		All, WorldNews, Politics, Business, Finance, Health, Science, Entertainment,
		Sports, Technology, AI, Cybersecurity, Gaming, Travel, Food, Lifestyle,
	}
}

// Aliases maps short CLI names to categories.
var Aliases = map[string]Category{
	"world":    WorldNews,
	"news":     WorldNews,
	"tech":     Technology,
	"security": Cybersecurity,
	"sec":      Cybersecurity,
	"games":    Gaming,
	"money":    Finance,
	"ent":      Entertainment,
}

// Parse maps a name or alias to a Category, case-insensitively.
func Parse(name string) (Category, error) {
	name = strings.TrimSpace(name)
	if cat, ok := Aliases[strings.ToLower(name)]; ok {
		return cat, nil
	}
	for _, cat := range AllCategories() {
		if strings.EqualFold(string(cat), name) {
			return cat, nil
		}
	}
	valid := make([]string, 0, len(AllCategories()))
	for _, cat := range AllCategories() {
		valid = append(valid, string(cat))
	}
	return All, fmt.Errorf("unknown category %q (valid: %s)", name, strings.Join(valid, ", "))
}

// Resolve is Parse that falls back to All for unknown names.
func Resolve(name string) Category {
	cat, _ := Parse(name)
	return cat
}

// Tags returns the API tag filter for the category; All filters nothing.
func (c Category) Tags() []string {
	if c == All || c == "" {
		return nil
	}
	return []string{string(c)}
}

// Next returns the category after c in display order, wrapping around.
func (c Category) Next() Category {
	cats := AllCategories()
	for i, cat := range cats {
		if cat == c {
			return cats[(i+1)%len(cats)]
		}
	}
	return All
}
