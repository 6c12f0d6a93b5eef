package validators

import (
	"errors"
	"io"
	"net/http"

	pkgerrors "github.com/nishacrest/Beta-test-sub001/pkg/errors"
)

// MaxInvoiceUpload bounds the size of an uploaded invoice document.
const MaxInvoiceUpload = 10 << 20

// ParseMultipart parses a multipart body of at most maxBytes.
func ParseMultipart(w http.ResponseWriter, r *http.Request, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "request body too large").WithDetails(map[string]any{"max_bytes": maxBytes})
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
	}
	return nil
}

// FormFile reads the uploaded file in field. A missing file yields nil without error
// so the domain layer decides whether it is required.
func FormFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid file upload").WithDetails(map[string]any{"field": field})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read file upload").WithDetails(map[string]any{"field": field})
	}
	return data, nil
}
