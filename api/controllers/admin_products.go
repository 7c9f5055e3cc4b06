package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/agristore-backend/api/responses"
	"github.com/angelmondragon/agristore-backend/api/validators"
	product "github.com/angelmondragon/agristore-backend/internal/products"
	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
)

// AdminCreateProduct handles the multipart product form. The session's
// loading and upload flags follow the mutation.
func AdminCreateProduct(svc product.Service, maxUploadBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}

		form, err := validators.ParseProductForm(w, r, maxUploadBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), sess, product.CreateProductInput{
			Name:        form.Name,
			Price:       form.Price,
			Description: form.Description,
			Image:       imageUpload(form.Image),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// AdminUpdateProduct replaces name, price, description and image URL. A form
// with neither a new image nor oldImageUrl keeps the image the catalog holds.
func AdminUpdateProduct(svc product.Service, catalog ProductLookup, maxUploadBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		id := strings.TrimSpace(chi.URLParam(r, "productId"))
		if id == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id required"))
			return
		}

		form, err := validators.ParseProductForm(w, r, maxUploadBytes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		oldImageURL := form.OldImageURL
		if form.Image == nil && oldImageURL == "" && catalog != nil {
			if current, found := catalog.GetByID(id); found {
				oldImageURL = current.ImageURL
			}
		}

		updated, err := svc.Update(r.Context(), sess, id, product.UpdateProductInput{
			Name:        form.Name,
			Price:       form.Price,
			Description: form.Description,
			NewImage:    imageUpload(form.Image),
			OldImageURL: oldImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// AdminDeleteProduct removes a product. Cart lines referencing it stay.
func AdminDeleteProduct(svc product.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "product service unavailable"))
			return
		}
		sess, ok := requireSession(w, r, logg)
		if !ok {
			return
		}
		id := strings.TrimSpace(chi.URLParam(r, "productId"))
		if id == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product id required"))
			return
		}

		if err := svc.Delete(r.Context(), sess, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func imageUpload(file *validators.FormFile) *product.ImageUpload {
	if file == nil {
		return nil
	}
	return &product.ImageUpload{
		Data:         file.Data,
		Filename:     file.Filename,
		DeclaredType: file.ContentType,
	}
}
