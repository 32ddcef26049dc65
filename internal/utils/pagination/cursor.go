// Package pagination implements opaque keyset page tokens.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

// ErrInvalidToken is returned for tokens this package did not produce.
var ErrInvalidToken = errors.New("invalid pagination token")

// Cursor is the state carried between pages. After is the sort key of the
// last row already returned; the next page starts strictly past it.
type Cursor struct {
	After string `json:"a"`
}

// Encode packs c into a URL-safe token.
func Encode(c Cursor) (string, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode unpacks a token from Encode. The empty token is the first page.
func Decode(token string) (Cursor, error) {
	var c Cursor
	if token == "" {
		return c, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || json.Unmarshal(raw, &c) != nil || c.After == "" {
		return Cursor{}, ErrInvalidToken
	}
	return c, nil
}

// Page trims rows fetched with limit+1 down to limit and returns the token
// for the following page, or "" when rows was the last page. key extracts
// the sort key of a row.
func Page[T any](rows []T, limit int, key func(T) string) ([]T, string) {
	if limit <= 0 || len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	next, err := Encode(Cursor{After: key(rows[limit-1])})
	if err != nil {
		return rows, ""
	}
	return rows, next
}
