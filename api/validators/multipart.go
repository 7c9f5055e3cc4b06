package validators

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
)

// multipartOverhead leaves room for the text fields around the file part.
const multipartOverhead = 1 << 20

// ProductForm is the multipart payload of the admin product endpoints.
type ProductForm struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Price       float64 `json:"price" validate:"gte=0"`
	Description string  `json:"description" validate:"max=5000"`
	OldImageURL string  `json:"oldImageUrl" validate:"omitempty,url"`
	Image       *FormFile
}

// FormFile is an uploaded file read fully into memory.
type FormFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ParseProductForm reads the product fields and the optional "image" part.
// Files larger than maxFileBytes are rejected.
func ParseProductForm(w http.ResponseWriter, r *http.Request, maxFileBytes int64) (*ProductForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFileBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxFileBytes + multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "request body too large").WithDetails(map[string]any{"limit_bytes": maxFileBytes})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form").WithDetails(map[string]any{"error": err.Error()})
	}

	form := &ProductForm{
		Name:        SanitizeString(r.FormValue("name"), 0),
		Description: SanitizeString(r.FormValue("description"), 0),
		OldImageURL: SanitizeString(r.FormValue("oldImageUrl"), 0),
	}

	rawPrice := strings.TrimSpace(r.FormValue("price"))
	if rawPrice == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{"price": "is required"})
	}
	price, err := strconv.ParseFloat(rawPrice, 64)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{"price": "must be numeric"})
	}
	form.Price = price

	if err := ValidateStruct(form); err != nil {
		return nil, err
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return form, nil
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid image part")
	}
	defer file.Close()

	if header.Size > maxFileBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("image exceeds %d bytes", maxFileBytes))
	}
	data, err := io.ReadAll(io.LimitReader(file, maxFileBytes+1))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read image")
	}
	if int64(len(data)) > maxFileBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("image exceeds %d bytes", maxFileBytes))
	}
	form.Image = &FormFile{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}
	return form, nil
}
