package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/agristore-backend/api/responses"
	"github.com/angelmondragon/agristore-backend/api/validators"
	cartsvc "github.com/angelmondragon/agristore-backend/internal/cart"
	"github.com/angelmondragon/agristore-backend/internal/session"
	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
	"github.com/angelmondragon/agristore-backend/pkg/models"
)

type cartResponse struct {
	Items      []models.CartItem `json:"items"`
	TotalPrice decimal.Decimal   `json:"totalPrice"`
}

type addCartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
}

type updateCartItemRequest struct {
	Delta int `json:"delta" validate:"required"`
}

type updateCartItemResponse struct {
	Item    *models.CartItem `json:"item"`
	Removed bool             `json:"removed"`
}

func newCartResponse(sess *session.Session) cartResponse {
	snapshot := sess.Cart().Snapshot()
	items := snapshot.Items
	if items == nil {
		items = []models.CartItem{}
	}
	return cartResponse{Items: items, TotalPrice: snapshot.TotalPrice()}
}

// CartFetch returns the caller's mirrored cart and its total.
func CartFetch(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, newCartResponse(sess))
	}
}

// CartAddItem adds one unit of a catalog product to the caller's cart.
func CartAddItem(svc cartsvc.Service, catalog ProductLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || catalog == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}

		var body addCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, found := catalog.GetByID(strings.TrimSpace(body.ProductID))
		if !found {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}

		item, err := svc.AddToCart(r.Context(), sess.UID(), product)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// CartUpdateItem shifts a line's quantity by delta. Reaching zero removes
// the line.
func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}

		var body updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID := strings.TrimSpace(chi.URLParam(r, "productId"))
		item, found := sess.Cart().Get(productID)
		if !found {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found"))
			return
		}

		updated, err := svc.UpdateQuantity(r.Context(), sess.UID(), item, body.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updateCartItemResponse{Item: updated, Removed: updated == nil})
	}
}

// CartClear deletes every line currently in the caller's cart.
func CartClear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}

		if err := svc.Clear(r.Context(), sess.UID(), sess.Cart().Items()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
