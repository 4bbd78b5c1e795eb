package socketio

import (
	"testing"
	"time"

	domainUser "github.com/mahalbangetid-beep/scb-sub003/domains/user"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/security"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zishang520/socket.io/v2/socket"
)

func TestHandshakeTokenSources(t *testing.T) {
	assert.Equal(t, "abc", handshakeToken(map[string]any{"token": "abc"}, nil, nil))
	assert.Equal(t, "abc", handshakeToken(map[string]any{"token": "Bearer abc"}, nil, nil))
	assert.Equal(t, "q", handshakeToken(nil, map[string][]string{"token": {"q"}}, nil))
	assert.Equal(t, "h", handshakeToken(nil, nil, map[string][]string{"Authorization": {"Bearer h"}}))
	assert.Equal(t, "h", handshakeToken(nil, nil, map[string][]string{"authorization": {"Bearer h"}}))
}

func TestHandshakeTokenPrecedence(t *testing.T) {
	token := handshakeToken(
		map[string]any{"token": "from-auth"},
		map[string][]string{"token": {"from-query"}},
		map[string][]string{"Authorization": {"Bearer from-header"}},
	)
	assert.Equal(t, "from-auth", token)
}

func TestHandshakeTokenMissing(t *testing.T) {
	assert.Empty(t, handshakeToken(nil, nil, nil))
	assert.Empty(t, handshakeToken(map[string]any{"token": 42}, nil, nil))
	assert.Empty(t, handshakeToken(nil, nil, map[string][]string{"Authorization": {"Basic xyz"}}))
}

func TestRelayRoundTrip(t *testing.T) {
	data, err := encodeRelay("node-a", "user-1", "wallet.updated", map[string]any{"balance": 12.5})
	require.NoError(t, err)

	msg, err := decodeRelay(data)
	require.NoError(t, err)
	assert.Equal(t, "node-a", msg.Node)
	assert.Equal(t, "user-1", msg.User)
	assert.Equal(t, "wallet.updated", msg.Event)
	assert.Equal(t, map[string]any{"balance": 12.5}, msg.Payload)

	_, err = decodeRelay("{")
	assert.Error(t, err)
}

func TestUserRoom(t *testing.T) {
	assert.Equal(t, "user:42", string(userRoom("42")))
}

const testSecret = "socket-secret"

func testGateway() *Gateway {
	return &Gateway{tokens: security.NewTokenManager(testSecret, time.Hour), nodeID: "node-a"}
}

func TestAuthorizeAcceptsValidToken(t *testing.T) {
	g := testGateway()
	token, _, err := g.tokens.Issue("user-1", string(domainUser.RoleUser))
	require.NoError(t, err)

	claims, err := g.authorize(map[string]any{"token": token}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestAuthorizeRejectsBadTokens(t *testing.T) {
	g := testGateway()

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, security.Claims{
		UserID: "user-1",
		Role:   string(domainUser.RoleUser),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "scb-api",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	foreign, _, err := security.NewTokenManager("other-secret", time.Hour).Issue("user-1", string(domainUser.RoleAdmin))
	require.NoError(t, err)

	cases := map[string]map[string]any{
		"missing":      nil,
		"garbage":      {"token": "not-a-jwt"},
		"expired":      {"token": expired},
		"wrong secret": {"token": foreign},
	}
	for name, auth := range cases {
		t.Run(name, func(t *testing.T) {
			claims, err := g.authorize(auth, nil, nil)
			assert.ErrorIs(t, err, errUnauthorized)
			assert.Nil(t, claims)
		})
	}
}

func TestRoomsFor(t *testing.T) {
	user := roomsFor(&security.Claims{UserID: "u1", Role: string(domainUser.RoleUser)})
	assert.Equal(t, []string{"user:u1"}, roomNames(user))

	admin := roomsFor(&security.Claims{UserID: "a1", Role: string(domainUser.RoleAdmin)})
	assert.Equal(t, []string{"user:a1", "admins"}, roomNames(admin))
}

func roomNames(rooms []socket.Room) []string {
	out := make([]string, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, string(r))
	}
	return out
}
