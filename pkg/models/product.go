package models

import (
	"github.com/angelmondragon/agristore-backend/pkg/backend"
)

// ProductsCollection is the shared catalog collection.
const ProductsCollection = "products"

// Product is a catalog item. An empty ID means not yet persisted.
type Product struct {
	ID          string  `json:"id" firestore:"-"`
	Name        string  `json:"name" firestore:"name"`
	Price       float64 `json:"price" firestore:"price"`
	Description string  `json:"description" firestore:"description"`
	ImageURL    string  `json:"imageUrl" firestore:"imageUrl"`
}

// Fields returns exactly the persisted product fields.
func (p Product) Fields() map[string]any {
	return map[string]any{
		"name":        p.Name,
		"price":       p.Price,
		"description": p.Description,
		"imageUrl":    p.ImageURL,
	}
}

// ProductFromDocument decodes a product; the id always comes from the
// document key, never from a stored field.
func ProductFromDocument(doc backend.Document) (Product, error) {
	var product Product
	if err := decodeFields(doc.Fields, &product); err != nil {
		return Product{}, err
	}
	product.ID = doc.ID
	return product, nil
}
