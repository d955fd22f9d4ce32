package tools

import (
	"context"
	"fmt"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/Laisky/zap"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/xero-mcp/internal/accounting"
	"github.com/Laisky/xero-mcp/library/xero"
)

// UpdateContactToolName is the advertised name of the contact update tool.
const UpdateContactToolName = "update-contact"

// ContactUpdater applies a contact update against Xero.
type ContactUpdater interface {
	UpdateContact(ctx context.Context, in accounting.UpdateContactInput) accounting.Result[*xero.Contact]
}

// ContactLinker builds a browser link to a Xero contact.
type ContactLinker interface {
	Contact(ctx context.Context, contactID string) (string, error)
}

// NewUpdateContactTool builds the update-contact tool. linker may be nil, in which
// case confirmations carry no link.
func NewUpdateContactTool(updater ContactUpdater, linker ContactLinker, logger logSDK.Logger) (*TypedTool[accounting.UpdateContactInput], error) {
	if updater == nil {
		return nil, errors.New("contact updater is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	toolLog := logger.Named(UpdateContactToolName)
	return NewTypedTool[accounting.UpdateContactInput](
		UpdateContactToolName,
		"Update a contact in Xero. When a contact is updated, a deep link to the contact in Xero is returned. "+
			"This deep link can be used to view the contact in Xero directly. "+
			"This link should be displayed to the user.",
		updateContactSchema(),
		func(ctx context.Context, in accounting.UpdateContactInput) *mcp.CallToolResult {
			result := updater.UpdateContact(ctx, in)
			contact, ok := result.Value()
			if !ok {
				return failureResult("updating contact", result.Err())
			}

			var link string
			if linker != nil && contact.ContactID != "" {
				var err error
				if link, err = linker.Contact(ctx, contact.ContactID); err != nil {
					toolLogger(ctx, toolLog).Warn("build contact deep link",
						zap.Error(err), zap.String("contact_id", contact.ContactID))
					link = ""
				}
			}

			return &mcp.CallToolResult{Content: []mcp.Content{RenderContactUpdated(contact, link)}}
		},
		logger,
	)
}

// RenderContactUpdated renders the confirmation for an updated contact.
func RenderContactUpdated(contact *xero.Contact, link string) mcp.Content {
	var linkLine string
	if link != "" {
		linkLine = "Link to view: " + link
	}
	return textItem(
		fmt.Sprintf("Contact updated: %s (ID: %s)", contact.Name, contact.ContactID),
		linkLine,
	)
}

func updateContactSchema() []mcp.ToolOption {
	stringProp := func(description string) map[string]any {
		prop := map[string]any{"type": "string"}
		if description != "" {
			prop["description"] = description
		}
		return prop
	}

	return []mcp.ToolOption{
		mcp.WithString("contactId",
			mcp.Required(),
			mcp.Description("The ID of the contact to update."),
		),
		mcp.WithString("name",
			mcp.Required(),
			mcp.Description("The display name of the contact."),
		),
		mcp.WithString("firstName", mcp.Description("First name of the contact person.")),
		mcp.WithString("lastName", mcp.Description("Last name of the contact person.")),
		mcp.WithString("email",
			mcp.Description("Email address of the contact."),
			withFormat("email"),
		),
		mcp.WithString("phone", mcp.Description("Phone number, stored as the contact's mobile number.")),
		mcp.WithObject("address",
			mcp.Description("Address to store on the contact."),
			mcp.Properties(map[string]any{
				"addressLine1": stringProp(""),
				"addressLine2": stringProp(""),
				"city":         stringProp(""),
				"region":       stringProp(""),
				"postalCode":   stringProp(""),
				"country":      stringProp(""),
			}),
			withRequiredProperties("addressLine1"),
		),
		mcp.WithString("addressType",
			mcp.Enum(string(xero.AddressTypePOBox), string(xero.AddressTypeStreet)),
			mcp.Description("Which Xero address type to set. POBOX is the mailing/postal address shown on purchase orders. "+
				"STREET is the physical/street address. If omitted, both POBOX and STREET are set to the same value "+
				"so the address appears everywhere (including on purchase orders)."),
		),
		mcp.WithString("defaultCurrency",
			mcp.Description("The default currency for the contact (e.g. USD, GBP, EUR, NZD). "+
				"This sets the currency used on invoices and purchase orders for this contact."),
		),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	}
}

func withFormat(format string) mcp.PropertyOption {
	return func(schema map[string]any) {
		schema["format"] = format
	}
}

func withRequiredProperties(names ...string) mcp.PropertyOption {
	return func(schema map[string]any) {
		schema["required"] = names
	}
}
