package enums

// AddressType classifies a customer address.
type AddressType string

const (
	AddressTypeShipping AddressType = "Shipping"
	AddressTypeBilling  AddressType = "Billing"
)
