package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFToken_SetsCookieOnFirstVisit(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	token := csrfToken(rec, req)
	require.NotEmpty(t, token)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, csrfCookieName, cookies[0].Name)
	assert.Equal(t, token, cookies[0].Value)
}

func TestCSRFToken_ReusesExistingCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "existing"})

	token := csrfToken(rec, req)
	assert.Equal(t, "existing", token)
	assert.Empty(t, rec.Result().Cookies())
}

func TestValidateCSRF_HeaderMatch(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok"})
	req.Header.Set("X-CSRF-Token", "tok")

	assert.True(t, validateCSRF(req))
}

func TestValidateCSRF_FormFieldMatch(t *testing.T) {
	body := strings.NewReader(csrfFormField + "=tok")
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok"})

	assert.True(t, validateCSRF(req))
}

func TestValidateCSRF_Rejections(t *testing.T) {
	// No cookie at all.
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-CSRF-Token", "tok")
	assert.False(t, validateCSRF(req))

	// Cookie present, token missing.
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok"})
	assert.False(t, validateCSRF(req))

	// Mismatch.
	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok"})
	req.Header.Set("X-CSRF-Token", "other")
	assert.False(t, validateCSRF(req))
}
