package community

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// Limits count characters.
const (
	MaxTitleLen = 200
	MaxBodyLen  = 20000
)

var (
	ErrEmptyPost = errors.New("title and body are required")
	ErrTooLong   = errors.New("post is too long")
)

var (
	titlePolicy = bluemonday.StrictPolicy()
	bodyPolicy  = bluemonday.UGCPolicy()
)

// Clean strips all markup from the title and keeps user-generated-content
// safe markup in the body.
func Clean(title, body string) (string, string, error) {
	title = strings.TrimSpace(titlePolicy.Sanitize(title))
	body = strings.TrimSpace(bodyPolicy.Sanitize(body))
	if title == "" || body == "" {
		return "", "", ErrEmptyPost
	}
	if utf8.RuneCountInString(title) > MaxTitleLen || utf8.RuneCountInString(body) > MaxBodyLen {
		return "", "", ErrTooLong
	}
	return title, body, nil
}

// CleanComment applies the body policy to a comment.
func CleanComment(body string) (string, error) {
	body = strings.TrimSpace(bodyPolicy.Sanitize(body))
	if body == "" {
		return "", ErrEmptyPost
	}
	if utf8.RuneCountInString(body) > MaxBodyLen {
		return "", ErrTooLong
	}
	return body, nil
}
