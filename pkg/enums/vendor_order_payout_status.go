package enums

import "fmt"

// VendorOrderPayoutStatus marks whether a vendor order's earnings have been
// swept into a payout.
type VendorOrderPayoutStatus string

const (
	VendorOrderPayoutStatusPending VendorOrderPayoutStatus = "pending"
	VendorOrderPayoutStatusPaid    VendorOrderPayoutStatus = "paid"
)

var validVendorOrderPayoutStatuses = []VendorOrderPayoutStatus{
	VendorOrderPayoutStatusPending,
	VendorOrderPayoutStatusPaid,
}

// String implements fmt.Stringer.
func (v VendorOrderPayoutStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VendorOrderPayoutStatus.
func (v VendorOrderPayoutStatus) IsValid() bool {
	for _, candidate := range validVendorOrderPayoutStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVendorOrderPayoutStatus converts raw input into a VendorOrderPayoutStatus.
func ParseVendorOrderPayoutStatus(value string) (VendorOrderPayoutStatus, error) {
	for _, candidate := range validVendorOrderPayoutStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vendor order payout status %q", value)
}
