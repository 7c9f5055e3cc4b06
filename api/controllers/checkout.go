package controllers

import (
	"net/http"

	"github.com/angelmondragon/agristore-backend/api/responses"
	"github.com/angelmondragon/agristore-backend/api/validators"
	cartsvc "github.com/angelmondragon/agristore-backend/internal/cart"
	"github.com/angelmondragon/agristore-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
)

type whatsAppCheckoutRequest struct {
	ClearCart bool `json:"clearCart"`
}

type whatsAppCheckoutResponse struct {
	checkout.Link
	Cleared bool `json:"cleared"`
}

// CheckoutWhatsApp builds the order handoff link from the caller's cart. The
// client opens the link; with clearCart the cart is emptied once the link is
// built.
func CheckoutWhatsApp(svc checkout.Service, carts cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}

		var body whatsAppCheckoutRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		snapshot := sess.Cart().Snapshot()
		link, err := svc.OrderLink(snapshot.Items, snapshot.TotalPrice())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp := whatsAppCheckoutResponse{Link: link}
		if body.ClearCart && carts != nil {
			if err := carts.Clear(r.Context(), sess.UID(), snapshot.Items); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			resp.Cleared = true
		}
		responses.WriteSuccess(w, resp)
	}
}
