package accounting

import (
	"github.com/Laisky/xero-mcp/library/xero"
)

// AddressInput is a single untyped address supplied by the caller.
type AddressInput struct {
	AddressLine1 string `json:"addressLine1" validate:"required"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city,omitempty"`
	Region       string `json:"region,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
	Country      string `json:"country,omitempty"`
}

// ResolveAddresses stamps addr with the Xero address types it should be stored under.
//
// No address yields nil, so existing addresses are left alone. An explicit type
// yields one record of that type. An omitted type yields a POBOX and a STREET
// record with the same fields: Xero shows POBOX on purchase orders and STREET
// in the contact view, and the caller wants the address visible in both.
func ResolveAddresses(addr *AddressInput, typ *xero.AddressType) []xero.Address {
	if addr == nil {
		return nil
	}

	base := xero.Address{
		AddressLine1: addr.AddressLine1,
		AddressLine2: addr.AddressLine2,
		City:         addr.City,
		Region:       addr.Region,
		PostalCode:   addr.PostalCode,
		Country:      addr.Country,
	}

	if typ != nil && (*typ == xero.AddressTypePOBox || *typ == xero.AddressTypeStreet) {
		base.AddressType = *typ
		return []xero.Address{base}
	}

	pobox, street := base, base
	pobox.AddressType = xero.AddressTypePOBox
	street.AddressType = xero.AddressTypeStreet
	return []xero.Address{pobox, street}
}
