package validators

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/nishacrest/Beta-test-sub001/pkg/errors"
)

type amountBody struct {
	Amount  string  `json:"amount" validate:"required,amount"`
	Comment *string `json:"comment" validate:"omitempty,max=500"`
}

func TestDecodeJSONBodyValidatesAmount(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"amount":"-1"}`))
	var body amountBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	assert.Equal(t, map[string]string{"amount": "must be a positive amount with at most two decimals"}, typed.Details())

	req = httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"amount":"12.50","comment":"korrigiert"}`))
	require.NoError(t, DecodeJSONBody(req, &body))
	assert.Equal(t, "12.50", body.Amount)
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"amount":"1","fees":"0"}`))
	var body amountBody
	err := DecodeJSONBody(req, &body)
	require.Error(t, err)
	assert.Equal(t, map[string]string{"fees": "is not allowed"}, pkgerrors.As(err).Details())
}

func TestDecodeJSONBodyRejectsMalformedPayloads(t *testing.T) {
	cases := map[string]string{
		"empty":          ``,
		"trailing":       `{"amount":"1"}{"amount":"2"}`,
		"wrong type":     `{"amount":12}`,
		"sub cent":       `{"amount":"1.005"}`,
		"oversized body": `{"amount":"1","comment":"` + strings.Repeat("x", MaxJSONBody) + `"}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
			var body amountBody
			err := DecodeJSONBody(req, &body)
			require.Error(t, err)
			assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
		})
	}
}

func TestParseDate(t *testing.T) {
	day, err := ParseDate("start_date", "2025-05-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), day)

	ts, err := ParseDate("start_date", "2025-05-01T02:00:00+02:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), ts)

	_, err = ParseDate("start_date", "01.05.2025")
	require.Error(t, err)
}

func TestQueryHelpers(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?settled=false&filter[code]=AB&filter[]=x&from=2025-01-01&shop_id=nope", nil)

	settled, err := ParseQueryBool(req, "settled")
	require.NoError(t, err)
	require.NotNil(t, settled)
	assert.False(t, *settled)

	from, err := ParseQueryDate(req, "from")
	require.NoError(t, err)
	assert.Equal(t, 2025, from.Year())

	_, err = ParseQueryUUID(req, "shop_id")
	require.Error(t, err)

	missing, err := ParseQueryUUID(req, "issuer_shop_id")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Equal(t, map[string]string{"code": "AB"}, QueryFilters(req))
}

func TestFormFile(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "invoice.pdf")
	require.NoError(t, err)
	_, _ = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, mw.WriteField("invoice_number", "RE-X1-202542"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	require.NoError(t, ParseMultipart(httptest.NewRecorder(), req, MaxInvoiceUpload))

	data, err := FormFile(req, "file")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	none, err := FormFile(req, "attachment")
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.Equal(t, "RE-X1-202542", req.FormValue("invoice_number"))
}

func TestParseMultipartRejectsOversizedBodies(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "invoice.pdf")
	require.NoError(t, err)
	_, _ = part.Write(bytes.Repeat([]byte("x"), 2048))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	err = ParseMultipart(httptest.NewRecorder(), req, 512)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	assert.Equal(t, "abc", SanitizeString("abc", 0))
	assert.Equal(t, "Grü", SanitizeString("Grüße", 3))
}
