package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	Name  string    `json:"name" validate:"required"`
	Theme string    `json:"theme" default:"dark" validate:"oneof=dark light"`
	Vals  []float64 `json:"vals" validate:"omitempty,len=3"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var out APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestReadAndValidateRequest(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	var ok sampleRequest
	assert.Nil(t, ReadAndValidateRequest(c, &ok))
	assert.Equal(t, "dark", ok.Theme)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"vals":[1,2]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c = e.NewContext(req, httptest.NewRecorder())
	var bad sampleRequest
	errs, isList := ReadAndValidateRequest(c, &bad).([]ValidationError)
	require.True(t, isList)
	require.Len(t, errs, 2)
	assert.Equal(t, "ERR_REQUIRED", errs[0].Code)
	assert.Equal(t, "name", errs[0].Field)
	assert.Equal(t, "ERR_LEN", errs[1].Code)
	assert.Equal(t, "vals must contain exactly 3 values", errs[1].Message)
}

func TestReadAndValidateRequestMalformed(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	errs := ReadAndValidateRequest(c, &sampleRequest{}).([]ValidationError)
	assert.Equal(t, "ERR_UNKNOWN", errs[0].Code)
}

func TestAppErrorResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, AppErrorResponse(c, NotFoundErrorf("history entry %d not found", 4)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, http.StatusNotFound, out.Status)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, AppErrorResponse(c, assert.AnError))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestBlobResponseETag(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("If-None-Match", `"r3"`)
	rec := httptest.NewRecorder()
	require.NoError(t, BlobResponse(e.NewContext(req, rec), "image/png", `"r3"`, []byte{1}))
	assert.Equal(t, http.StatusNotModified, rec.Code)

	rec = httptest.NewRecorder()
	require.NoError(t, BlobResponse(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec), "image/png", `"r3"`, []byte{1, 2}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []byte{1, 2}, rec.Body.Bytes())
	assert.Equal(t, `"r3"`, rec.Header().Get("ETag"))
}
