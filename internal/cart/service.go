// Package cart mirrors per-user carts and applies cart mutations.
package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/agristore-backend/pkg/backend"
	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
	"github.com/angelmondragon/agristore-backend/pkg/models"
)

// Service exposes cart mutations. Reads go through Store.
type Service interface {
	AddToCart(ctx context.Context, uid string, product models.Product) (models.CartItem, error)
	UpdateQuantity(ctx context.Context, uid string, item models.CartItem, delta int) (*models.CartItem, error)
	Clear(ctx context.Context, uid string, items []models.CartItem) error
}

type service struct {
	docs backend.DocumentStore
	logg *logger.Logger
}

// NewService builds a cart service writing through docs.
func NewService(docs backend.DocumentStore, logg *logger.Logger) (Service, error) {
	if docs == nil {
		return nil, fmt.Errorf("document store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{docs: docs, logg: logg}, nil
}

// AddToCart increments the existing line or creates one with quantity 1.
// The read and the write are separate calls, so two concurrent adds for the
// same product can lose an increment.
func (s *service) AddToCart(ctx context.Context, uid string, product models.Product) (models.CartItem, error) {
	if strings.TrimSpace(uid) == "" {
		return models.CartItem{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if strings.TrimSpace(product.ID) == "" {
		return models.CartItem{}, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	collection := models.CartCollection(uid)
	doc, found, err := s.docs.Get(ctx, collection, product.ID)
	if err != nil {
		return models.CartItem{}, err
	}

	if found {
		existing, err := models.CartItemFromDocument(*doc)
		if err != nil {
			return models.CartItem{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart line")
		}
		if _, ok := doc.Fields["quantity"]; !ok {
			existing.Quantity = 1
		}
		existing.Quantity++
		if err := s.docs.Update(ctx, collection, product.ID, map[string]any{"quantity": existing.Quantity}); err != nil {
			return models.CartItem{}, err
		}
		return existing, nil
	}

	item := models.NewCartItem(product)
	if err := s.docs.Set(ctx, collection, product.ID, item.Fields()); err != nil {
		return models.CartItem{}, err
	}
	s.logg.Debug(s.logg.WithProductID(ctx, product.ID), "cart line created")
	return item, nil
}

// UpdateQuantity applies delta. A result of zero or less deletes the line and
// returns nil.
func (s *service) UpdateQuantity(ctx context.Context, uid string, item models.CartItem, delta int) (*models.CartItem, error) {
	if strings.TrimSpace(uid) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if strings.TrimSpace(item.ProductID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	collection := models.CartCollection(uid)
	next := item.Quantity + delta
	if next <= 0 {
		if err := s.docs.Delete(ctx, collection, item.ProductID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err := s.docs.Update(ctx, collection, item.ProductID, map[string]any{"quantity": next}); err != nil {
		return nil, err
	}
	item.Quantity = next
	return &item, nil
}

// Clear deletes the given lines. It stops at the first failure.
func (s *service) Clear(ctx context.Context, uid string, items []models.CartItem) error {
	if strings.TrimSpace(uid) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	collection := models.CartCollection(uid)
	for _, item := range items {
		if err := s.docs.Delete(ctx, collection, item.ProductID); err != nil {
			return err
		}
	}
	return nil
}
