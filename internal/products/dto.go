package product

// ImageUpload is an image file received from the client.
type ImageUpload struct {
	Data         []byte
	Filename     string
	DeclaredType string
}

// CreateProductInput is the payload for a new catalog product.
type CreateProductInput struct {
	Name        string
	Price       float64
	Description string
	Image       *ImageUpload
}

// UpdateProductInput replaces the editable fields of a product. Without a new
// image the product keeps OldImageURL.
type UpdateProductInput struct {
	Name        string
	Price       float64
	Description string
	NewImage    *ImageUpload
	OldImageURL string
}
