package artworks

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"

	pkgerrors "github.com/angelmondragon/auction-archive/pkg/errors"
)

// AllowedImageTypes lists the sniffed types accepted for both uploads and
// extraction.
var AllowedImageTypes = []string{"image/jpeg", "image/png", "image/webp", "image/heic"}

// requireImages reports every missing image at once.
func requireImages(in CommitInput) error {
	var missing []string
	if in.Artwork == nil || len(in.Artwork.Data) == 0 {
		missing = append(missing, KindArtwork)
	}
	if in.Datasheet == nil || len(in.Datasheet.Data) == 0 {
		missing = append(missing, KindDatasheet)
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeMissingImages, "artwork and datasheet images are required").
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}

// sniffImage returns the detected content type or a validation error.
func sniffImage(kind string, img *Image, maxBytes int64) (string, error) {
	if maxBytes > 0 && int64(len(img.Data)) > maxBytes {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s image exceeds %d bytes", kind, maxBytes)).
			WithDetails(map[string]any{"field": kind, "max_bytes": maxBytes})
	}
	detected := mimetype.Detect(img.Data)
	if !mimetype.EqualsAny(detected.String(), AllowedImageTypes...) {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s image must be jpeg, png, webp or heic", kind)).
			WithDetails(map[string]any{"field": kind, "detected": detected.String()})
	}
	return detected.String(), nil
}
