package kvstore

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieStore reads request cookies and writes response cookies (gin escapes values). Writes are
// mirrored in an overlay so reads in the same request see them.
type CookieStore struct {
	c       *gin.Context
	maxAge  time.Duration
	secure  bool
	overlay map[string]*string
}

func NewCookieStore(c *gin.Context, maxAge time.Duration, secure bool) *CookieStore {
	return &CookieStore{c: c, maxAge: maxAge, secure: secure, overlay: map[string]*string{}}
}

func (s *CookieStore) Get(key string) (string, bool) {
	if v, ok := s.overlay[key]; ok {
		if v == nil {
			return "", false
		}
		return *v, true
	}
	raw, err := s.c.Cookie(key)
	if err != nil {
		return "", false
	}
	return raw, true
}

func (s *CookieStore) Set(key, value string) {
	v := value
	s.overlay[key] = &v
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(key, value, int(s.maxAge.Seconds()), "/", "", s.secure, true)
}

func (s *CookieStore) Remove(key string) {
	s.overlay[key] = nil
	s.c.SetCookie(key, "", -1, "/", "", s.secure, true)
}
