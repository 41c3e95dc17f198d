package types

import (
	"bytes"
	"encoding/json"
	"strings"
)

// CouponValidity reports whether the coupon attached to a cart was accepted.
type CouponValidity struct {
	IsValid bool   `json:"is_valid"`
	Reason  string `json:"reason,omitempty"`
}

// CouponReasons accepts a single string or a list on the wire and flattens it
// into one message. Any other shape, and non-string list entries, decode to
// an empty reason.
type CouponReasons string

// UnmarshalJSON implements json.Unmarshaler.
func (c *CouponReasons) UnmarshalJSON(data []byte) error {
	*c = ""
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	switch trimmed[0] {
	case '"':
		var single string
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}
		*c = CouponReasons(strings.TrimSpace(single))
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return err
		}
		parts := make([]string, 0, len(list))
		for _, raw := range list {
			var item string
			if json.Unmarshal(raw, &item) != nil {
				continue
			}
			if s := strings.TrimSpace(item); s != "" {
				parts = append(parts, s)
			}
		}
		*c = CouponReasons(strings.Join(parts, "; "))
	}
	return nil
}
