package validators

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var ErrInvalidVisitorToken = errors.New("invalid visitor token")

// ParseVisitorToken validates the visitor cookie value. Tokens are minted
// server-side as UUIDs; anything else is rejected rather than echoed back.
func ParseVisitorToken(raw string) (string, error) {
	token := strings.TrimSpace(raw)
	if token == "" {
		return "", ErrInvalidVisitorToken
	}
	parsed, err := uuid.Parse(token)
	if err != nil {
		return "", ErrInvalidVisitorToken
	}
	return parsed.String(), nil
}
