package enums

import "strings"

// LineStatus is the validity status the pricing service reports for a cart line.
// Unknown values are kept verbatim so the UI can still render them.
type LineStatus string

const (
	LineStatusUnknown  LineStatus = ""
	LineStatusOK       LineStatus = "ok"
	LineStatusConflict LineStatus = "conflict"
)

// String implements fmt.Stringer.
func (l LineStatus) String() string {
	return string(l)
}

// IsOK reports whether the server accepted the line as-is.
func (l LineStatus) IsOK() bool {
	return strings.EqualFold(string(l), string(LineStatusOK))
}

// NormalizeLineStatus trims and lowercases a raw server status.
func NormalizeLineStatus(value string) LineStatus {
	return LineStatus(strings.ToLower(strings.TrimSpace(value)))
}
