package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// Credentials are hashed or compared verbatim and must reach handlers untouched.
var rawKeys = map[string]bool{
	"password":     true,
	"old_password": true,
	"new_password": true,
	"code":         true,
}

// SanitizeAndCleanInputMiddleware cleans all string fields in JSON input using bluemonday
func SanitizeAndCleanInputMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}

		buf, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid body"})
			return
		}
		if len(bytes.TrimSpace(buf)) == 0 {
			c.Request.Body = io.NopCloser(bytes.NewReader(buf))
			c.Next()
			return
		}

		var body interface{}
		if err := json.Unmarshal(buf, &body); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Malformed JSON"})
			return
		}

		newBody, _ := json.Marshal(sanitizeValue(body))
		c.Request.Body = io.NopCloser(bytes.NewBuffer(newBody))
		c.Request.ContentLength = int64(len(newBody))

		c.Next()
	}
}

func sanitizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case string:
		return strictPolicy.Sanitize(t)
	case map[string]interface{}:
		for k, inner := range t {
			if rawKeys[k] {
				continue
			}
			t[k] = sanitizeValue(inner)
		}
		return t
	case []interface{}:
		for i, inner := range t {
			t[i] = sanitizeValue(inner)
		}
		return t
	default:
		return v
	}
}
