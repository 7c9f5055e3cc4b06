package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/agristore-backend/api/responses"
	"github.com/angelmondragon/agristore-backend/internal/checkout"
	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
	"github.com/angelmondragon/agristore-backend/pkg/models"
)

const maxQueryLen = 200

// ProductLookup resolves catalog entries from the in-memory backup.
type ProductLookup interface {
	GetByID(id string) (models.Product, bool)
}

// ProductList runs the caller's search. Without q the session keeps its last
// query, so a plain GET re-reads the current view.
func ProductList(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}

		view := sess.View()
		products := view.Products()
		if query, present := r.URL.Query()["q"]; present {
			q := ""
			if len(query) > 0 {
				q = query[0]
			}
			if len(q) > maxQueryLen {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "query too long"))
				return
			}
			products = view.Search(q)
		}
		responses.WriteSuccess(w, map[string]any{
			"query":    view.Query(),
			"products": products,
		})
	}
}

// ProductDetail returns one product from the catalog backup.
func ProductDetail(catalog ProductLookup, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product, ok := lookupProduct(w, r, catalog, logg)
		if !ok {
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ProductInquiry returns the WhatsApp link asking the shop about a product.
func ProductInquiry(catalog ProductLookup, svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		product, ok := lookupProduct(w, r, catalog, logg)
		if !ok {
			return
		}
		link, err := svc.InquiryLink(product)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, link)
	}
}

func lookupProduct(w http.ResponseWriter, r *http.Request, catalog ProductLookup, logg *logger.Logger) (models.Product, bool) {
	if catalog == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
		return models.Product{}, false
	}
	id := strings.TrimSpace(chi.URLParam(r, "productId"))
	if id == "" {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id required"))
		return models.Product{}, false
	}
	product, found := catalog.GetByID(id)
	if !found {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
		return models.Product{}, false
	}
	return product, true
}
