package savedcart

import (
	"time"

	"github.com/fflcommerce/checkout-backend/pkg/enums"
	"github.com/fflcommerce/checkout-backend/pkg/types"
)

// Bundle is the tokenized storage record for lines moved out of the live
// cart by a save-for-later split. The token is opaque and independent of
// any login session; the bundle lives for 24 hours or until the first
// restore attempt, whichever comes first.
type Bundle struct {
	Token   string            `json:"token"`
	Bucket  enums.SavedBucket `json:"bucket"`
	SavedAt time.Time         `json:"saved_at"`
	Items   []SavedLine       `json:"items"`
}

// SavedLine captures everything needed to rebuild a cart line later,
// including a name snapshot in case the product changes meanwhile.
type SavedLine struct {
	ProductID      int64          `json:"product_id"`
	Quantity       int            `json:"quantity"`
	VariationID    int64          `json:"variation_id,omitempty"`
	VariationAttrs types.Metadata `json:"variation_attrs,omitempty"`
	CustomData     types.Metadata `json:"custom_data,omitempty"`
	ProductName    string         `json:"product_name"`
}
