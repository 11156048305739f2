package issuer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opentrusty/oauth2engine/internal/grant"
	"github.com/opentrusty/oauth2engine/internal/scope"
)

func testGrant() grant.Grant {
	return grant.Grant{
		OwnerID:     "user1",
		ClientID:    "LocalClient",
		RedirectURI: "http://localhost:8021/endpoint",
		Scope:       scope.MustParse("default"),
		Until:       time.Now().Add(time.Hour).UTC(),
	}
}

func TestRandomIssuerTokenDistinctness(t *testing.T) {
	i := NewRandomIssuer()
	tok, err := i.Issue(testGrant())
	require.NoError(t, err)
	assert.NotEqual(t, tok.Refresh, tok.Access, "access and refresh tokens must be distinct")
}

func TestRandomIssuerRecoverIdentity(t *testing.T) {
	i := NewRandomIssuer()
	g := testGrant()
	tok, err := i.Issue(g)
	require.NoError(t, err)

	got, err := i.RecoverToken(tok.Access)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, g.ClientID, got.ClientID)
	assert.True(t, got.Scope.Equal(g.Scope))
}

func TestRandomIssuerRefreshRotatesAndInvalidates(t *testing.T) {
	i := NewRandomIssuer()
	g := testGrant()
	first, err := i.Issue(g)
	require.NoError(t, err)

	refreshed, err := i.Refresh(first.Refresh, g)
	require.NoError(t, err)
	assert.NotEqual(t, first.Refresh, refreshed.Refresh, "expected refresh token rotation")

	got, _ := i.RecoverRefresh(first.Refresh)
	assert.Nil(t, got, "expected old refresh token to be invalidated")
}

func TestAssertionIssuerTokenDistinctnessAndRecovery(t *testing.T) {
	i := NewAssertionIssuer([]byte("test-signing-key"))
	g := testGrant()

	tok, err := i.Issue(g)
	require.NoError(t, err)
	assert.NotEqual(t, tok.Refresh, tok.Access, "access and refresh tokens must be distinct")

	got, err := i.RecoverToken(tok.Access)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, g.ClientID, got.ClientID)

	badRefresh, _ := i.RecoverRefresh(tok.Access)
	assert.Nil(t, badRefresh, "expected access token rejected as refresh token (wrong domain tag)")
}

func TestAssertionIssuerRefreshInvalidatesOld(t *testing.T) {
	i := NewAssertionIssuer([]byte("test-signing-key"))
	g := testGrant()
	first, err := i.Issue(g)
	require.NoError(t, err)

	_, err = i.Refresh(first.Refresh, g)
	require.NoError(t, err)

	got, _ := i.RecoverRefresh(first.Refresh)
	assert.Nil(t, got, "expected rotated-away refresh token to be invalid")
}
