package enums

import "fmt"

// PurchasableType identifies which catalog a cart line came from.
type PurchasableType string

const (
	PurchasableTypeService PurchasableType = "service"
	PurchasableTypePackage PurchasableType = "package"
	PurchasableTypeProduct PurchasableType = "product"
)

var validPurchasableTypes = []PurchasableType{
	PurchasableTypeService,
	PurchasableTypePackage,
	PurchasableTypeProduct,
}

// String implements fmt.Stringer.
func (p PurchasableType) String() string {
	return string(p)
}

// IsValid reports whether the value is known.
func (p PurchasableType) IsValid() bool {
	for _, candidate := range validPurchasableTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePurchasableType converts raw input into a PurchasableType.
func ParsePurchasableType(value string) (PurchasableType, error) {
	for _, candidate := range validPurchasableTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid purchasable type %q", value)
}
