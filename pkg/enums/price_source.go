package enums

// PriceSource distinguishes an optimistic catalog price from a server-confirmed one.
type PriceSource string

const (
	PriceSourceLocal     PriceSource = "local"
	PriceSourceConfirmed PriceSource = "confirmed"
)

// String implements fmt.Stringer.
func (p PriceSource) String() string {
	return string(p)
}
