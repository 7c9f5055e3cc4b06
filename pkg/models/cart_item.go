package models

import (
	"github.com/angelmondragon/agristore-backend/pkg/backend"
)

// CartItem is one line of a user's cart. Name, Price and ImageURL are a
// snapshot of the product at first add.
type CartItem struct {
	ProductID string  `json:"productId" firestore:"productId"`
	Name      string  `json:"name" firestore:"name"`
	Price     float64 `json:"price" firestore:"price"`
	ImageURL  string  `json:"imageUrl" firestore:"imageUrl"`
	Quantity  int     `json:"quantity" firestore:"quantity"`
}

// CartCollection is the per-user cart sub-collection, keyed by product id.
func CartCollection(uid string) string {
	return backend.JoinPath(UsersCollection, uid, "cart")
}

// NewCartItem snapshots a product into a fresh line of quantity 1.
func NewCartItem(product Product) CartItem {
	return CartItem{
		ProductID: product.ID,
		Name:      product.Name,
		Price:     product.Price,
		ImageURL:  product.ImageURL,
		Quantity:  1,
	}
}

func (c CartItem) Fields() map[string]any {
	return map[string]any{
		"productId": c.ProductID,
		"name":      c.Name,
		"price":     c.Price,
		"imageUrl":  c.ImageURL,
		"quantity":  c.Quantity,
	}
}

// CartItemFromDocument decodes a cart line. A line missing its productId
// field falls back to the document key.
func CartItemFromDocument(doc backend.Document) (CartItem, error) {
	var item CartItem
	if err := decodeFields(doc.Fields, &item); err != nil {
		return CartItem{}, err
	}
	if item.ProductID == "" {
		item.ProductID = doc.ID
	}
	return item, nil
}
