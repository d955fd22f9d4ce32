package xero

// AddressType is the Xero address discriminator.
type AddressType string

const (
	// AddressTypePOBox is the postal address, shown on purchase orders.
	AddressTypePOBox AddressType = "POBOX"
	// AddressTypeStreet is the physical address, shown in the contact view.
	AddressTypeStreet AddressType = "STREET"
)

// PhoneType is the Xero phone discriminator.
type PhoneType string

// PhoneTypeMobile is the phone slot update-contact writes to.
const PhoneTypeMobile PhoneType = "MOBILE"

// Address is a typed Xero contact address.
type Address struct {
	AddressType  AddressType `json:"AddressType,omitempty"`
	AddressLine1 string      `json:"AddressLine1,omitempty"`
	AddressLine2 string      `json:"AddressLine2,omitempty"`
	City         string      `json:"City,omitempty"`
	Region       string      `json:"Region,omitempty"`
	PostalCode   string      `json:"PostalCode,omitempty"`
	Country      string      `json:"Country,omitempty"`
}

// Phone is a typed Xero contact phone number.
type Phone struct {
	PhoneType   PhoneType `json:"PhoneType,omitempty"`
	PhoneNumber string    `json:"PhoneNumber,omitempty"`
}

// Contact is the subset of the Xero contact entity this server reads and writes.
type Contact struct {
	ContactID       string    `json:"ContactID,omitempty"`
	Name            string    `json:"Name,omitempty"`
	FirstName       string    `json:"FirstName,omitempty"`
	LastName        string    `json:"LastName,omitempty"`
	EmailAddress    string    `json:"EmailAddress,omitempty"`
	DefaultCurrency string    `json:"DefaultCurrency,omitempty"`
	ContactStatus   string    `json:"ContactStatus,omitempty"`
	Phones          []Phone   `json:"Phones,omitempty"`
	Addresses       []Address `json:"Addresses,omitempty"`
}

// Contacts is the request and response envelope of the contacts endpoint.
type Contacts struct {
	Contacts []Contact `json:"Contacts"`
}

// ContactsResponse is the decoded body of a contacts call.
type ContactsResponse = Contacts

// BrandingTheme is a read-only projection of a Xero branding theme.
type BrandingTheme struct {
	BrandingThemeID string `json:"BrandingThemeID,omitempty"`
	Name            string `json:"Name,omitempty"`
	Type            string `json:"Type,omitempty"`
	SortOrder       *int   `json:"SortOrder,omitempty"`
	LogoURL         string `json:"LogoUrl,omitempty"`
	// CreatedDateUTC keeps the Microsoft JSON date literal Xero returns.
	CreatedDateUTC string `json:"CreatedDateUTC,omitempty"`
}

// BrandingThemesResponse is the decoded body of the branding themes call.
type BrandingThemesResponse struct {
	BrandingThemes []BrandingTheme `json:"BrandingThemes"`
}

// Organisation is the subset of the Xero organisation entity used for deep links.
type Organisation struct {
	OrganisationID string `json:"OrganisationID,omitempty"`
	Name           string `json:"Name,omitempty"`
	ShortCode      string `json:"ShortCode,omitempty"`
}

// OrganisationsResponse is the decoded body of the organisation call.
type OrganisationsResponse struct {
	Organisations []Organisation `json:"Organisations"`
}

// Connection is a tenant the current token is authorised for.
type Connection struct {
	ID         string `json:"id"`
	TenantID   string `json:"tenantId"`
	TenantType string `json:"tenantType"`
	TenantName string `json:"tenantName"`
}

// tokenResponse is the identity server's client-credentials grant reply.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
	Scope       string `json:"scope"`
}
