package kvstore

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMapStore(t *testing.T) {
	s := NewMapStore()
	_, ok := s.Get("a")
	assert.False(t, ok)

	s.Set("a", "1")
	v, ok := s.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	s.Remove("a")
	_, ok = s.Get("a")
	assert.False(t, ok)

	s.Set("b", "2")
	s.Clear()
	_, ok = s.Get("b")
	assert.False(t, ok)
}

func TestURLStoreAppendTo(t *testing.T) {
	s := NewURLStore(nil)
	s.Set("pendingCheckout", "true")
	s.Set("pendingCheckoutPriceType", "monthly")

	out, err := s.AppendTo("https://app.example.com/success?lang=de")
	require.NoError(t, err)

	parsed, err := url.Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "de", parsed.Query().Get("lang"))
	assert.Equal(t, "true", parsed.Query().Get("pendingCheckout"))
	assert.Equal(t, "monthly", parsed.Query().Get("pendingCheckoutPriceType"))

	s.Remove("pendingCheckout")
	_, ok := s.Get("pendingCheckout")
	assert.False(t, ok)
}

func TestCookieStore(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.AddCookie(&http.Cookie{Name: "existing", Value: "yes"})

	s := NewCookieStore(c, 30*time.Minute, false)

	v, ok := s.Get("existing")
	assert.True(t, ok)
	assert.Equal(t, "yes", v)

	s.Set("pendingCheckout", "true")
	v, ok = s.Get("pendingCheckout")
	assert.True(t, ok)
	assert.Equal(t, "true", v)

	s.Remove("existing")
	_, ok = s.Get("existing")
	assert.False(t, ok)

	cookies := w.Result().Cookies()
	names := map[string]int{}
	for _, ck := range cookies {
		names[ck.Name] = ck.MaxAge
	}
	assert.Equal(t, 1800, names["pendingCheckout"])
	assert.Less(t, names["existing"], 0)
}
