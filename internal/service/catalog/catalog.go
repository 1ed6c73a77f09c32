package catalog

import (
	"encoding/json"
	"log/slog"
	"os"
	"sort"
)

// Catalog holds the category to form-name mapping used to populate the form
// selection controls. It is loaded once at startup and never refreshed.
type Catalog struct {
	categories []string
	forms      map[string][]string
}

// Load reads the catalog JSON file. A missing or malformed file degrades to
// an empty catalog: form selection is disabled but chat keeps working.
func Load(path string, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	empty := &Catalog{forms: make(map[string][]string)}

	if path == "" {
		return empty
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("form catalog unavailable", "path", path, "error", err)
		return empty
	}

	var forms map[string][]string
	if err := json.Unmarshal(data, &forms); err != nil {
		logger.Warn("form catalog malformed", "path", path, "error", err)
		return empty
	}

	categories := make([]string, 0, len(forms))
	for category := range forms {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	return &Catalog{categories: categories, forms: forms}
}

// Categories lists the catalog's categories in stable order.
func (c *Catalog) Categories() []string {
	return append([]string(nil), c.categories...)
}

// Forms returns the ordered form names of one category.
func (c *Catalog) Forms(category string) []string {
	return append([]string(nil), c.forms[category]...)
}

// All returns the full mapping for the catalog endpoint.
func (c *Catalog) All() map[string][]string {
	out := make(map[string][]string, len(c.forms))
	for category, forms := range c.forms {
		out[category] = append([]string(nil), forms...)
	}
	return out
}
