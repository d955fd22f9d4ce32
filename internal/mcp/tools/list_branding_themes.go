package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Laisky/errors/v2"
	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Laisky/xero-mcp/internal/accounting"
	"github.com/Laisky/xero-mcp/library/xero"
)

// ListBrandingThemesToolName is the advertised name of the branding theme listing tool.
const ListBrandingThemesToolName = "list-branding-themes"

// BrandingThemeLister fetches the branding themes of the connected organisation.
type BrandingThemeLister interface {
	ListBrandingThemes(ctx context.Context) accounting.Result[[]xero.BrandingTheme]
}

// ListBrandingThemesArgs is empty; the tool takes no arguments.
type ListBrandingThemesArgs struct{}

// NewListBrandingThemesTool builds the list-branding-themes tool.
func NewListBrandingThemesTool(lister BrandingThemeLister, logger logSDK.Logger) (*TypedTool[ListBrandingThemesArgs], error) {
	if lister == nil {
		return nil, errors.New("branding theme lister is required")
	}

	return NewTypedTool[ListBrandingThemesArgs](
		ListBrandingThemesToolName,
		"Lists all branding themes in Xero. Use this tool to get the branding theme IDs to be used "+
			"when creating invoices, quotes, purchase orders, or credit notes in Xero.",
		[]mcp.ToolOption{
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithIdempotentHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithOpenWorldHintAnnotation(true),
		},
		func(ctx context.Context, _ ListBrandingThemesArgs) *mcp.CallToolResult {
			result := lister.ListBrandingThemes(ctx)
			themes, ok := result.Value()
			if !ok {
				return failureResult("listing branding themes", result.Err())
			}
			return &mcp.CallToolResult{Content: RenderBrandingThemes(themes)}
		},
		logger,
	)
}

// RenderBrandingThemes renders a header item followed by one item per theme.
func RenderBrandingThemes(themes []xero.BrandingTheme) []mcp.Content {
	content := make([]mcp.Content, 0, len(themes)+1)
	content = append(content, mcp.NewTextContent(fmt.Sprintf("Found %d branding themes:", len(themes))))
	for _, theme := range themes {
		content = append(content, renderBrandingTheme(theme))
	}
	return content
}

func renderBrandingTheme(theme xero.BrandingTheme) mcp.Content {
	id := theme.BrandingThemeID
	if id == "" {
		id = "Unknown"
	}
	name := theme.Name
	if name == "" {
		name = "Unnamed"
	}

	var typ, sortOrder, logo string
	if theme.Type != "" {
		typ = "Type: " + theme.Type
	}
	if theme.SortOrder != nil {
		sortOrder = "Sort Order: " + strconv.Itoa(*theme.SortOrder)
		if *theme.SortOrder == 0 {
			sortOrder += " (Default)"
		}
	}
	if theme.LogoURL != "" {
		logo = "Logo URL: " + theme.LogoURL
	}

	return textItem(
		"Branding Theme ID: "+id,
		"Name: "+name,
		typ,
		sortOrder,
		logo,
	)
}
