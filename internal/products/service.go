// Package product applies catalog mutations: create, update and delete
// products, uploading images before the record that references them.
package product

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/agristore-backend/pkg/backend"
	"github.com/angelmondragon/agristore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
	"github.com/angelmondragon/agristore-backend/pkg/logger"
	"github.com/angelmondragon/agristore-backend/pkg/models"
)

// Flags receives the loading and upload-success indicators of a mutation.
type Flags interface {
	SetLoading(bool)
	SetUploadSuccess(bool)
}

type noopFlags struct{}

func (noopFlags) SetLoading(bool)       {}
func (noopFlags) SetUploadSuccess(bool) {}

// Service exposes product mutations. Role checks happen before these calls.
type Service interface {
	Create(ctx context.Context, flags Flags, input CreateProductInput) (models.Product, error)
	Update(ctx context.Context, flags Flags, id string, input UpdateProductInput) (models.Product, error)
	Delete(ctx context.Context, flags Flags, id string) error
}

type service struct {
	docs          backend.DocumentStore
	blobs         backend.BlobStore
	logg          *logger.Logger
	imagePrefix   string
	maxImageBytes int64
	newKey        func() string
}

// NewService builds a product service writing records to docs and images to
// blobs.
func NewService(docs backend.DocumentStore, blobs backend.BlobStore, media config.MediaConfig, logg *logger.Logger) (Service, error) {
	if docs == nil {
		return nil, fmt.Errorf("document store required")
	}
	if blobs == nil {
		return nil, fmt.Errorf("blob store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	prefix := strings.Trim(media.ImagePrefix, "/")
	if prefix == "" {
		prefix = "product_images"
	}
	return &service{
		docs:          docs,
		blobs:         blobs,
		logg:          logg,
		imagePrefix:   prefix,
		maxImageBytes: media.MaxUploadBytes(),
		newKey:        uuid.NewString,
	}, nil
}

// Create uploads the optional image, then adds the record. uploadSuccess is
// raised only after the record write succeeds.
func (s *service) Create(ctx context.Context, flags Flags, input CreateProductInput) (models.Product, error) {
	if flags == nil {
		flags = noopFlags{}
	}
	product, err := validateFields(input.Name, input.Price, input.Description)
	if err != nil {
		return models.Product{}, err
	}
	contentType, err := s.checkImage(input.Image)
	if err != nil {
		return models.Product{}, err
	}

	flags.SetLoading(true)

	var imagePath string
	if input.Image != nil {
		imagePath, product.ImageURL, err = s.uploadImage(ctx, input.Image, contentType)
		if err != nil {
			flags.SetLoading(false)
			return models.Product{}, err
		}
	}

	id, err := s.docs.Add(ctx, models.ProductsCollection, product.Fields())
	if err != nil {
		s.logOrphan(ctx, imagePath, err)
		flags.SetLoading(false)
		return models.Product{}, err
	}
	product.ID = id

	flags.SetLoading(false)
	flags.SetUploadSuccess(true)
	s.logg.Info(s.logg.WithProductID(ctx, id), "product created")
	return product, nil
}

// Update writes name, price, description and imageUrl to an existing record.
// A new image goes under a new key; the previous blob is left in place.
func (s *service) Update(ctx context.Context, flags Flags, id string, input UpdateProductInput) (models.Product, error) {
	if flags == nil {
		flags = noopFlags{}
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Product{}, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := validateFields(input.Name, input.Price, input.Description)
	if err != nil {
		return models.Product{}, err
	}
	contentType, err := s.checkImage(input.NewImage)
	if err != nil {
		return models.Product{}, err
	}

	flags.SetLoading(true)

	product.ID = id
	product.ImageURL = input.OldImageURL
	var imagePath string
	if input.NewImage != nil {
		imagePath, product.ImageURL, err = s.uploadImage(ctx, input.NewImage, contentType)
		if err != nil {
			flags.SetLoading(false)
			return models.Product{}, err
		}
	}

	if err := s.docs.Update(ctx, models.ProductsCollection, id, product.Fields()); err != nil {
		s.logOrphan(ctx, imagePath, err)
		flags.SetLoading(false)
		return models.Product{}, err
	}

	flags.SetLoading(false)
	s.logg.Info(s.logg.WithProductID(ctx, id), "product updated")
	return product, nil
}

// Delete removes the record. Cart lines that snapshot it are untouched.
func (s *service) Delete(ctx context.Context, flags Flags, id string) error {
	if flags == nil {
		flags = noopFlags{}
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}

	flags.SetLoading(true)
	err := s.docs.Delete(ctx, models.ProductsCollection, id)
	flags.SetLoading(false)
	if err != nil {
		return err
	}
	s.logg.Info(s.logg.WithProductID(ctx, id), "product deleted")
	return nil
}

func validateFields(name string, price float64, description string) (models.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Product{}, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return models.Product{}, pkgerrors.New(pkgerrors.CodeValidation, "price must be zero or more")
	}
	return models.Product{
		Name:        name,
		Price:       price,
		Description: strings.TrimSpace(description),
	}, nil
}

func (s *service) checkImage(img *ImageUpload) (string, error) {
	if img == nil {
		return "", nil
	}
	return validateImage(img, s.maxImageBytes)
}

func (s *service) uploadImage(ctx context.Context, img *ImageUpload, contentType string) (string, string, error) {
	path := backend.JoinPath(s.imagePrefix, s.newKey())
	handle, err := s.blobs.Upload(ctx, path, img.Data, contentType)
	if err != nil {
		return "", "", err
	}
	url, err := s.blobs.PublicURL(ctx, handle)
	if err != nil {
		return "", "", err
	}
	return handle.Path, url, nil
}

// logOrphan records an image whose record write failed. The blob is not
// removed.
func (s *service) logOrphan(ctx context.Context, path string, err error) {
	if path == "" {
		return
	}
	s.logg.Error(s.logg.WithField(ctx, "blob_path", path), "product write failed after image upload, blob orphaned", err)
}
