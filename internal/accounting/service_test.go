package accounting

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/Laisky/errors/v2"
	"github.com/stretchr/testify/require"

	"github.com/Laisky/xero-mcp/library/log"
	"github.com/Laisky/xero-mcp/library/xero"
)

type stubSession struct {
	authErr    error
	authCalls  int
	themes     *xero.BrandingThemesResponse
	themesErr  error
	contacts   *xero.ContactsResponse
	contactErr error
	panicValue any

	gotTenantID  string
	gotContactID string
	gotPayload   xero.Contacts
	gotHeaders   http.Header
}

func (s *stubSession) Authenticate(context.Context) error {
	s.authCalls++
	return s.authErr
}

func (s *stubSession) TenantID() string { return "tenant-1" }

func (s *stubSession) GetBrandingThemes(_ context.Context, tenantID string, headers http.Header) (*xero.BrandingThemesResponse, error) {
	if s.panicValue != nil {
		panic(s.panicValue)
	}
	s.gotTenantID = tenantID
	s.gotHeaders = headers
	return s.themes, s.themesErr
}

func (s *stubSession) UpdateContact(_ context.Context, tenantID, contactID string, payload xero.Contacts, _ string, headers http.Header) (*xero.ContactsResponse, error) {
	if s.panicValue != nil {
		panic(s.panicValue)
	}
	s.gotTenantID = tenantID
	s.gotContactID = contactID
	s.gotPayload = payload
	s.gotHeaders = headers
	return s.contacts, s.contactErr
}

func newTestService(t *testing.T, session Session) *Service {
	t.Helper()

	svc, err := NewService(session, log.Logger.Named("test_accounting"))
	require.NoError(t, err)
	return svc
}

// requireEnvelope checks that exactly one of value and error is meaningful.
func requireEnvelope[T any](t *testing.T, r Result[T]) {
	t.Helper()

	_, ok := r.Value()
	require.Equal(t, !ok, r.IsError())
	if r.IsError() {
		require.NotEmpty(t, r.Err())
	} else {
		require.Empty(t, r.Err())
	}
}

func TestNewServiceRequiresSession(t *testing.T) {
	svc, err := NewService(nil, nil)
	require.Nil(t, svc)
	require.Error(t, err)
}

func TestListBrandingThemesSuccess(t *testing.T) {
	sortOrder := 0
	session := &stubSession{themes: &xero.BrandingThemesResponse{BrandingThemes: []xero.BrandingTheme{
		{BrandingThemeID: "bt-1", Name: "Standard", SortOrder: &sortOrder},
	}}}
	svc := newTestService(t, session)

	result := svc.ListBrandingThemes(context.Background())
	requireEnvelope(t, result)

	themes, ok := result.Value()
	require.True(t, ok)
	require.Len(t, themes, 1)
	require.Equal(t, "tenant-1", session.gotTenantID)
	require.Equal(t, "xero-mcp-server/"+xero.Version, session.gotHeaders.Get("User-Agent"))
}

func TestListBrandingThemesMissingPayloadIsEmpty(t *testing.T) {
	for _, resp := range []*xero.BrandingThemesResponse{nil, {}} {
		svc := newTestService(t, &stubSession{themes: resp})

		result := svc.ListBrandingThemes(context.Background())
		requireEnvelope(t, result)

		themes, ok := result.Value()
		require.True(t, ok)
		require.NotNil(t, themes)
		require.Empty(t, themes)
	}
}

func TestListBrandingThemesIsRepeatable(t *testing.T) {
	session := &stubSession{themes: &xero.BrandingThemesResponse{BrandingThemes: []xero.BrandingTheme{
		{BrandingThemeID: "bt-1", Name: "Standard"},
		{BrandingThemeID: "bt-2", Name: "Special"},
	}}}
	svc := newTestService(t, session)

	first, _ := svc.ListBrandingThemes(context.Background()).Value()
	second, _ := svc.ListBrandingThemes(context.Background()).Value()
	require.Equal(t, first, second)
	require.Equal(t, 2, session.authCalls)
}

func TestListBrandingThemesAuthFailure(t *testing.T) {
	session := &stubSession{authErr: errors.New("invalid client")}
	svc := newTestService(t, session)

	result := svc.ListBrandingThemes(context.Background())
	requireEnvelope(t, result)
	require.True(t, result.IsError())
	require.Contains(t, result.Err(), "invalid client")
	require.Empty(t, session.gotTenantID, "remote call must not run after auth failure")
}

func TestListBrandingThemesAPIFailure(t *testing.T) {
	svc := newTestService(t, &stubSession{
		themesErr: errors.WithStack(&xero.APIError{StatusCode: http.StatusTooManyRequests}),
	})

	result := svc.ListBrandingThemes(context.Background())
	requireEnvelope(t, result)
	require.Equal(t, "Too many requests to Xero. Please try again in a moment.", result.Err())
}

func TestListBrandingThemesRecoversPanic(t *testing.T) {
	svc := newTestService(t, &stubSession{panicValue: "boom"})

	result := svc.ListBrandingThemes(context.Background())
	requireEnvelope(t, result)
	require.Equal(t, "boom", result.Err())
}

func TestUpdateContactSuccess(t *testing.T) {
	session := &stubSession{contacts: &xero.ContactsResponse{Contacts: []xero.Contact{
		{ContactID: "abc", Name: "Acme"},
	}}}
	svc := newTestService(t, session)

	result := svc.UpdateContact(context.Background(), UpdateContactInput{
		ContactID: "abc",
		Name:      "Acme",
		Address:   &AddressInput{AddressLine1: "1 Main St"},
	})
	requireEnvelope(t, result)

	contact, ok := result.Value()
	require.True(t, ok)
	require.Equal(t, "abc", contact.ContactID)

	require.Equal(t, "abc", session.gotContactID)
	require.Len(t, session.gotPayload.Contacts, 1)
	addrs := session.gotPayload.Contacts[0].Addresses
	require.Len(t, addrs, 2)
	require.Equal(t, "1 Main St", addrs[0].AddressLine1)
	require.Equal(t, "1 Main St", addrs[1].AddressLine1)
}

func TestUpdateContactEmptyResponseIsFailure(t *testing.T) {
	for _, resp := range []*xero.ContactsResponse{nil, {}, {Contacts: []xero.Contact{}}} {
		svc := newTestService(t, &stubSession{contacts: resp})

		result := svc.UpdateContact(context.Background(), UpdateContactInput{ContactID: "abc", Name: "Acme"})
		requireEnvelope(t, result)
		require.True(t, result.IsError())
		require.Equal(t, "Contact update failed.", result.Err())

		contact, ok := result.Value()
		require.False(t, ok)
		require.Nil(t, contact)
	}
}

func TestUpdateContactRemoteFailure(t *testing.T) {
	svc := newTestService(t, &stubSession{contactErr: errors.New("connection reset")})

	result := svc.UpdateContact(context.Background(), UpdateContactInput{ContactID: "abc", Name: "Acme"})
	requireEnvelope(t, result)
	require.Contains(t, result.Err(), "connection reset")
}

func TestUpdateContactRecoversPanic(t *testing.T) {
	svc := newTestService(t, &stubSession{panicValue: fmt.Errorf("nil map")})

	result := svc.UpdateContact(context.Background(), UpdateContactInput{ContactID: "abc", Name: "Acme"})
	requireEnvelope(t, result)
	require.Equal(t, "nil map", result.Err())
}
