package enums

import "fmt"

// InvoiceKind distinguishes the settlement documents issued by the platform.
type InvoiceKind string

const (
	// InvoiceKindNegotiation settles redemptions the platform reimburses to a shop.
	InvoiceKindNegotiation InvoiceKind = "negotiation"
	// InvoiceKindPayment settles gift card sales collected on behalf of a shop.
	InvoiceKindPayment InvoiceKind = "payment"
)

var validInvoiceKinds = []InvoiceKind{
	InvoiceKindNegotiation,
	InvoiceKindPayment,
}

// String implements fmt.Stringer.
func (k InvoiceKind) String() string {
	return string(k)
}

// IsValid reports whether the value is known.
func (k InvoiceKind) IsValid() bool {
	for _, candidate := range validInvoiceKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseInvoiceKind converts raw input into an InvoiceKind.
func ParseInvoiceKind(value string) (InvoiceKind, error) {
	for _, candidate := range validInvoiceKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invoice kind %q", value)
}
