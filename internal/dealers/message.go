package dealers

import (
	"encoding/json"
	"errors"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/fflcommerce/checkout-backend/pkg/errors"
	"github.com/fflcommerce/checkout-backend/pkg/types"
)

// Message types accepted from the embedded dealer picker.
const (
	MessageDealerUpdate = "dealerUpdate"
	MessageCloseModal   = "closeModal"
)

// ErrOriginNotAllowed marks a picker message from an origin outside the
// allow-list. Callers drop the message without acknowledging it so the
// allow-list is not leaked.
var ErrOriginNotAllowed = errors.New("message origin not allowed")

// Message is one parsed picker event. Dealer is set only for dealerUpdate.
type Message struct {
	Type   string        `json:"type"`
	Dealer *types.Dealer `json:"value,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// normalizeOrigin reduces an origin to scheme://host for comparison.
func normalizeOrigin(origin string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(strings.ToLower(origin)), "/")
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return trimmed
	}
	return parsed.Scheme + "://" + parsed.Host
}

func parseMessage(allowedOrigins map[string]struct{}, origin string, payload []byte) (*Message, error) {
	if _, ok := allowedOrigins[normalizeOrigin(origin)]; !ok {
		return nil, ErrOriginNotAllowed
	}

	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dealer message")
	}

	switch msg.Type {
	case MessageCloseModal:
		return &Message{Type: MessageCloseModal}, nil
	case MessageDealerUpdate:
		if msg.Dealer == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "dealer message missing value")
		}
		if err := validate.Struct(msg.Dealer); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dealer payload")
		}
		return &msg, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown dealer message type")
	}
}
