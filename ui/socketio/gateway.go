package socketio

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	domainUser "github.com/mahalbangetid-beep/scb-sub003/domains/user"
	"github.com/mahalbangetid-beep/scb-sub003/domains/realtime"
	"github.com/mahalbangetid-beep/scb-sub003/infrastructure/valkey"
	"github.com/mahalbangetid-beep/scb-sub003/pkg/security"
	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io/v2/socket"
)

const (
	relayChannel = "realtime"
	adminsRoom   = socket.Room("admins")
)

// Gateway is the Socket.IO server operators connect to for live updates.
type Gateway struct {
	io     *socket.Server
	http   *types.HttpServer
	tokens *security.TokenManager
	relay  *valkey.Client
	nodeID string
}

var _ realtime.Publisher = (*Gateway)(nil)

// NewGateway builds the server. relay may be nil for single-node setups.
func NewGateway(tokens *security.TokenManager, relay *valkey.Client, nodeID string) *Gateway {
	opts := socket.DefaultServerOptions()
	opts.SetCors(&types.Cors{Origin: "*", Credentials: true})

	httpServer := types.NewWebServer(nil)
	g := &Gateway{
		io:     socket.NewServer(httpServer, opts),
		http:   httpServer,
		tokens: tokens,
		relay:  relay,
		nodeID: nodeID,
	}
	g.io.Use(g.authenticate)
	g.io.On("connection", g.onConnection)
	return g
}

var errUnauthorized = errors.New("unauthorized")

func (g *Gateway) authenticate(client *socket.Socket, next func(*socket.ExtendedError)) {
	hs := client.Handshake()
	auth, _ := hs.Auth.(map[string]any)
	claims, err := g.authorize(auth, hs.Query, hs.Headers)
	if err != nil {
		next(socket.NewExtendedError(err.Error(), nil))
		return
	}
	client.SetData(claims)
	next(nil)
}

// authorize validates the handshake JWT. Every failure surfaces to the
// client as the same unauthorized error.
func (g *Gateway) authorize(auth map[string]any, query, headers map[string][]string) (*security.Claims, error) {
	raw := handshakeToken(auth, query, headers)
	if raw == "" {
		return nil, errUnauthorized
	}
	claims, err := g.tokens.Parse(raw)
	if err != nil {
		logrus.Debugf("[SOCKET] Rejected handshake: %v", err)
		return nil, errUnauthorized
	}
	return claims, nil
}

func (g *Gateway) onConnection(clients ...any) {
	client := clients[0].(*socket.Socket)
	claims, ok := client.Data().(*security.Claims)
	if !ok {
		client.Disconnect(true)
		return
	}
	client.Join(roomsFor(claims)...)
	logrus.Debugf("[SOCKET] %s connected for user %s", client.Id(), claims.UserID)

	client.On("disconnect", func(reason ...any) {
		logrus.Debugf("[SOCKET] %s disconnected: %v", client.Id(), reason)
	})
}

// Listen starts serving in the background.
func (g *Gateway) Listen(addr string) {
	g.http.Listen(addr, nil)
	logrus.Infof("[SOCKET] Socket.IO listening on %s", addr)
}

// PublishToUser emits to the local sockets of the user and relays the event
// to the other nodes.
func (g *Gateway) PublishToUser(userID, event string, payload any) {
	g.emitLocal(userID, event, payload)
	if g.relay == nil {
		return
	}
	data, err := encodeRelay(g.nodeID, userID, event, payload)
	if err != nil {
		logrus.Errorf("[SOCKET] Failed to encode %s for relay: %v", event, err)
		return
	}
	if err := g.relay.Publish(context.Background(), relayChannel, data); err != nil {
		logrus.Errorf("[SOCKET] Failed to relay %s: %v", event, err)
	}
}

// PublishToAdmins emits to every connected admin on this node.
func (g *Gateway) PublishToAdmins(event string, payload any) {
	if err := g.io.To(adminsRoom).Emit(event, payload); err != nil {
		logrus.Warnf("[SOCKET] Emit %s to admins failed: %v", event, err)
	}
}

func (g *Gateway) emitLocal(userID, event string, payload any) {
	if err := g.io.To(userRoom(userID)).Emit(event, payload); err != nil {
		logrus.Warnf("[SOCKET] Emit %s to user %s failed: %v", event, userID, err)
	}
}

// StartRelay consumes events published by other nodes until ctx ends.
func (g *Gateway) StartRelay(ctx context.Context) {
	if g.relay == nil {
		return
	}
	logrus.Info("[SOCKET] Starting valkey relay subscriber")
	go func() {
		err := g.relay.Subscribe(ctx, relayChannel, func(data string) {
			msg, err := decodeRelay(data)
			if err != nil {
				logrus.Warnf("[SOCKET] Dropping malformed relay message: %v", err)
				return
			}
			if msg.Node == g.nodeID {
				return
			}
			g.emitLocal(msg.User, msg.Event, msg.Payload)
		})
		if err != nil && ctx.Err() == nil {
			logrus.Errorf("[SOCKET] Relay subscriber stopped: %v", err)
		}
	}()
}

func (g *Gateway) Close() {
	g.io.Close(nil)
}

func userRoom(userID string) socket.Room {
	return socket.Room("user:" + userID)
}

// roomsFor lists the rooms an authenticated socket joins.
func roomsFor(claims *security.Claims) []socket.Room {
	rooms := []socket.Room{userRoom(claims.UserID)}
	if claims.Role == string(domainUser.RoleAdmin) {
		rooms = append(rooms, adminsRoom)
	}
	return rooms
}

// handshakeToken picks the JWT from auth.token, the token query parameter
// or an Authorization bearer header, in that order.
func handshakeToken(auth map[string]any, query map[string][]string, headers map[string][]string) string {
	if token, ok := auth["token"].(string); ok && strings.TrimSpace(token) != "" {
		return strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	}
	if values := query["token"]; len(values) > 0 && values[0] != "" {
		return values[0]
	}
	for name, values := range headers {
		if !strings.EqualFold(name, "authorization") || len(values) == 0 {
			continue
		}
		if token, found := strings.CutPrefix(values[0], "Bearer "); found {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

type relayMessage struct {
	Node    string `json:"node"`
	User    string `json:"user"`
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

func encodeRelay(node, userID, event string, payload any) (string, error) {
	b, err := json.Marshal(relayMessage{Node: node, User: userID, Event: event, Payload: payload})
	return string(b), err
}

func decodeRelay(data string) (relayMessage, error) {
	var msg relayMessage
	err := json.Unmarshal([]byte(data), &msg)
	return msg, err
}
