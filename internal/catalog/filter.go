package catalog

import (
	"strings"

	"github.com/angelmondragon/agristore-backend/pkg/models"
)

// Filter returns the products whose name contains query, ignoring case, in
// backup order. An empty query returns the whole backup. The backup is never
// modified.
func Filter(backup []models.Product, query string) []models.Product {
	if query == "" {
		out := make([]models.Product, len(backup))
		copy(out, backup)
		return out
	}
	needle := strings.ToLower(query)
	out := make([]models.Product, 0, len(backup))
	for _, product := range backup {
		if strings.Contains(strings.ToLower(product.Name), needle) {
			out = append(out, product)
		}
	}
	return out
}
