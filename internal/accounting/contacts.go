package accounting

import (
	"context"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"

	"github.com/Laisky/xero-mcp/library/xero"
)

// UpdateContactInput holds the validated arguments of a contact update.
type UpdateContactInput struct {
	ContactID       string            `json:"contactId" validate:"required"`
	Name            string            `json:"name" validate:"required"`
	FirstName       string            `json:"firstName,omitempty"`
	LastName        string            `json:"lastName,omitempty"`
	Email           *string           `json:"email,omitempty" validate:"omitnil,email"`
	Phone           string            `json:"phone,omitempty"`
	Address         *AddressInput     `json:"address,omitempty" validate:"omitempty"`
	AddressType     *xero.AddressType `json:"addressType,omitempty" validate:"omitnil,oneof=POBOX STREET"`
	DefaultCurrency string            `json:"defaultCurrency,omitempty"`
}

// errContactUpdateFailed is returned when Xero accepts an update but echoes no contact.
var errContactUpdateFailed = errors.New("Contact update failed.")

// BuildContactPayload maps a contact update onto the Xero request body.
// Fields that are not supplied are left out so Xero keeps their current values.
func BuildContactPayload(in UpdateContactInput) xero.Contacts {
	contact := xero.Contact{
		Name:            in.Name,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		EmailAddress:    derefString(in.Email),
		DefaultCurrency: strings.TrimSpace(in.DefaultCurrency),
		Addresses:       ResolveAddresses(in.Address, in.AddressType),
	}
	if in.Phone != "" {
		contact.Phones = []xero.Phone{{
			PhoneType:   xero.PhoneTypeMobile,
			PhoneNumber: in.Phone,
		}}
	}

	return xero.Contacts{Contacts: []xero.Contact{contact}}
}

// UpdateContact applies in to the Xero contact in.ContactID.
// Xero returning no contact is a failure, not an empty success.
func (s *Service) UpdateContact(ctx context.Context, in UpdateContactInput) (result Result[*xero.Contact]) {
	defer recoverFailure(s.logger, "update_contact", &result)

	contact, err := s.updateContact(ctx, in)
	if err != nil {
		s.logger.Warn("update contact", zap.Error(err), zap.String("contact_id", in.ContactID))
		return Failure[*xero.Contact](err)
	}

	return Success(contact)
}

func (s *Service) updateContact(ctx context.Context, in UpdateContactInput) (*xero.Contact, error) {
	if err := s.session.Authenticate(ctx); err != nil {
		return nil, errors.Wrap(err, "authenticate")
	}

	resp, err := s.session.UpdateContact(ctx,
		s.session.TenantID(),
		in.ContactID,
		BuildContactPayload(in),
		"",
		xero.ClientHeaders(),
	)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if resp == nil || len(resp.Contacts) == 0 {
		return nil, errContactUpdateFailed
	}

	contact := resp.Contacts[0]
	return &contact, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
