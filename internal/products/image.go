package product

import (
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	pkgerrors "github.com/angelmondragon/agristore-backend/pkg/errors"
)

var allowedImageTypes = []string{"image/png", "image/jpeg", "image/webp", "image/gif"}

var allowedImageDescription = humanReadableList([]string{"PNG", "JPEG", "WebP", "GIF"})

func humanReadableList(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	case 2:
		return fmt.Sprintf("%s or %s", items[0], items[1])
	default:
		return fmt.Sprintf("%s, or %s", strings.Join(items[:len(items)-1], ", "), items[len(items)-1])
	}
}

func parseDeclaredType(value string) (string, error) {
	clean := strings.TrimSpace(value)
	if clean == "" {
		return "", nil
	}
	mediaType, _, err := mime.ParseMediaType(clean)
	if err != nil {
		return "", fmt.Errorf("mime type invalid: %w", err)
	}
	return strings.ToLower(mediaType), nil
}

func isAllowedImageType(value string) bool {
	for _, allowed := range allowedImageTypes {
		if allowed == value {
			return true
		}
	}
	return false
}

// validateImage sniffs the upload and returns the content type to store it
// with. The sniffed type wins over whatever the client declared.
func validateImage(img *ImageUpload, maxBytes int64) (string, error) {
	if len(img.Data) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "image is empty")
	}
	if maxBytes > 0 && int64(len(img.Data)) > maxBytes {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("image exceeds %d bytes", maxBytes))
	}

	detected := mimetype.Detect(img.Data)
	contentType := ""
	for _, allowed := range allowedImageTypes {
		if detected.Is(allowed) {
			contentType = allowed
			break
		}
	}
	if contentType == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "image must be "+allowedImageDescription).
			WithDetails(map[string]any{"detected": detected.String()})
	}

	declared, err := parseDeclaredType(img.DeclaredType)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image content type invalid")
	}
	if declared != "" && declared != "application/octet-stream" && !isAllowedImageType(declared) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "image must be "+allowedImageDescription).
			WithDetails(map[string]any{"declared": declared})
	}
	return contentType, nil
}
