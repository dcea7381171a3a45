package validators

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/auction-archive/pkg/errors"
)

// UploadedFile is one multipart file read fully into memory.
type UploadedFile struct {
	Name string
	Data []byte
}

// ParseMultipart bounds the request body and parses the multipart form.
// maxFiles is the number of images the form may carry.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxFileBytes int64, maxFiles int) error {
	limit := maxFileBytes*int64(maxFiles) + 1<<20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body too large").
				WithDetails(map[string]any{"max_bytes": limit})
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	return nil
}

// FormFile reads a named file part. A missing part returns nil without error.
func FormFile(r *http.Request, field string, maxBytes int64) (*UploadedFile, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("invalid %s upload", field))
	}
	defer file.Close()

	data, err := readLimited(file, maxBytes)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("%s upload too large", field)).
			WithDetails(map[string]any{"field": field, "max_bytes": maxBytes})
	}
	if len(data) == 0 {
		return nil, nil
	}
	return &UploadedFile{Name: header.Filename, Data: data}, nil
}

func readLimited(file multipart.File, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(file)
	}
	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", maxBytes)
	}
	return data, nil
}

// CommitForm holds the reviewed fields of a commit request as submitted.
type CommitForm struct {
	Author        string `json:"author" validate:"max=200"`
	Technique     string `json:"technique" validate:"max=200"`
	HammerPrice   string `json:"hammer_price" validate:"required,numeric"`
	HeightCM      string `json:"height_cm" validate:"required,numeric"`
	WidthCM       string `json:"width_cm" validate:"required,numeric"`
	CommissionPct string `json:"commission_pct" validate:"omitempty,numeric"`
	AuctionHouse  string `json:"auction_house" validate:"max=200"`
	AuctionDate   string `json:"auction_date" validate:"omitempty,datetime=2006-01-02"`
}

// BindCommitForm reads and validates the commit fields of a parsed form.
func BindCommitForm(r *http.Request) (*CommitForm, error) {
	form := &CommitForm{
		Author:        SanitizeString(r.FormValue("author"), 0),
		Technique:     SanitizeString(r.FormValue("technique"), 0),
		HammerPrice:   SanitizeString(r.FormValue("hammer_price"), 64),
		HeightCM:      SanitizeString(r.FormValue("height_cm"), 64),
		WidthCM:       SanitizeString(r.FormValue("width_cm"), 64),
		CommissionPct: SanitizeString(r.FormValue("commission_pct"), 64),
		AuctionHouse:  SanitizeString(r.FormValue("auction_house"), 0),
		AuctionDate:   SanitizeString(r.FormValue("auction_date"), 32),
	}
	if err := validate.Struct(form); err != nil {
		return nil, formatValidationErrors(err)
	}
	return form, nil
}

// ParseDecimal parses a validated numeric field.
func ParseDecimal(field, raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid number").
			WithDetails(map[string]string{field: "must be a plain decimal number"})
	}
	return value, nil
}

// SanitizeString trims input and caps it at maxLen runes; 0 means no cap.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 {
		return trimmed
	}
	runes := []rune(trimmed)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return trimmed
}
