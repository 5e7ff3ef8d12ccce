package handlers

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	socketio "github.com/googollee/go-socket.io"
	"github.com/googollee/go-socket.io/engineio"
	"github.com/googollee/go-socket.io/engineio/transport"
	"github.com/googollee/go-socket.io/engineio/transport/polling"
	"github.com/googollee/go-socket.io/engineio/transport/websocket"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/hub"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/identity"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/notify"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/internal/store"
	apperrors "github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/pkg/errors"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/pkg/logger"
	"github.com/lakshyagrg23/Alumni-Portal-IIITNR-sub000/pkg/utils"
)

// Gateway owns the live protocol: it authenticates connections, binds them
// to an identity, relays send/edit/delete events through the stores and
// fans results out to every session of both parties.
type Gateway struct {
	hub        *hub.Hub
	resolver   *identity.Resolver
	messages   *store.MessageStore
	keys       *store.KeyDirectory
	dispatcher *notify.Dispatcher
}

func NewGateway(h *hub.Hub, resolver *identity.Resolver, messages *store.MessageStore, keys *store.KeyDirectory, dispatcher *notify.Dispatcher) *Gateway {
	return &Gateway{
		hub:        h,
		resolver:   resolver,
		messages:   messages,
		keys:       keys,
		dispatcher: dispatcher,
	}
}

// session is the ephemeral binding between one live connection and one
// account. The profile ID is an advisory cache: a connection opened before
// onboarding finished re-resolves it on every messaging action until it
// sticks. The work queue serializes this session's operations so one
// sender's messages persist in submission order, while the socket read
// loop stays free to accept further events.
type session struct {
	accountID string

	mu        sync.Mutex
	profileID string

	queue chan func()
}

func newSession(accountID, profileID string) *session {
	s := &session{
		accountID: accountID,
		profileID: profileID,
		queue:     make(chan func(), 64),
	}
	go func() {
		for fn := range s.queue {
			fn()
		}
	}()
	return s
}

func (s *session) dispatch(fn func()) {
	s.queue <- fn
}

func (s *session) close() {
	close(s.queue)
}

// ensureProfile returns the cached profile ID or re-resolves it.
func (s *session) ensureProfile(ctx context.Context, resolver *identity.Resolver) (string, error) {
	s.mu.Lock()
	cached := s.profileID
	s.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	profileID, err := resolver.ProfileIDForAccount(ctx, s.accountID)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.profileID = profileID
	s.mu.Unlock()
	return profileID, nil
}

// Live-protocol request payloads. Anything malformed is rejected here,
// before it can reach the message store.

type SendRequest struct {
	TargetID   string       `json:"targetId"`
	Ciphertext string       `json:"ciphertext"`
	Metadata   SendMetadata `json:"metadata"`
}

type SendMetadata struct {
	IV          *string `json:"iv"`
	ClientID    *string `json:"clientId"`
	MessageType string  `json:"messageType"`
}

func (r *SendRequest) Validate() error {
	if r.TargetID == "" {
		return fmt.Errorf("targetId is required")
	}
	if r.Ciphertext == "" {
		return fmt.Errorf("ciphertext is required")
	}
	return nil
}

type EditRequest struct {
	MessageID     string  `json:"messageId"`
	NewCiphertext string  `json:"newCiphertext"`
	NewIV         *string `json:"newIv"`
}

func (r *EditRequest) Validate() error {
	if r.MessageID == "" {
		return fmt.Errorf("messageId is required")
	}
	if r.NewCiphertext == "" {
		return fmt.Errorf("newCiphertext is required")
	}
	return nil
}

type DeleteRequest struct {
	MessageID string `json:"messageId"`
}

type PublishKeyRequest struct {
	PublicKey string `json:"publicKey"`
}

// InitSocketServer wires the live protocol onto a socket.io server. The
// caller mounts the returned server at /socket.io/ and closes it at
// shutdown.
func (g *Gateway) InitSocketServer() *socketio.Server {
	server := socketio.NewServer(&engineio.Options{
		Transports: []transport.Transport{
			&websocket.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
			&polling.Transport{
				CheckOrigin: func(r *http.Request) bool { return true },
			},
		},
	})

	server.OnConnect("/", func(s socketio.Conn) error {
		u := s.URL()
		token := u.Query().Get("token")
		if token == "" {
			token = u.Query().Get("auth_token")
		}
		if token == "" {
			logger.Warn().Str("socket", s.ID()).Msg("Socket rejected: no token")
			return fmt.Errorf("authentication required")
		}

		claims, err := utils.ValidateToken(token)
		if err != nil {
			logger.Warn().Str("socket", s.ID()).Msg("Socket rejected: invalid token")
			return fmt.Errorf("invalid token")
		}

		// Profile may not exist yet for a freshly onboarded account; the
		// session self-heals by re-resolving on each action.
		profileID, err := g.resolver.ProfileIDForAccount(context.Background(), claims.AccountID)
		if err != nil {
			profileID = ""
		}

		sess := newSession(claims.AccountID, profileID)
		s.SetContext(sess)
		g.hub.Register(claims.AccountID, s)

		logger.Info().
			Str("socket", s.ID()).
			Str("account", claims.AccountID).
			Msg("Socket authenticated")

		s.Emit("online_users", g.hub.OnlineAccounts())
		g.hub.EmitToAll("presence_update", map[string]interface{}{
			"accountId": claims.AccountID,
			"isOnline":  true,
		})
		return nil
	})

	server.OnEvent("/", "secure:send", func(s socketio.Conn, req SendRequest) {
		sess, ok := s.Context().(*session)
		if !ok {
			return
		}
		sess.dispatch(func() { g.handleSend(s, sess, req) })
	})

	server.OnEvent("/", "message:edit", func(s socketio.Conn, req EditRequest) {
		sess, ok := s.Context().(*session)
		if !ok {
			return
		}
		sess.dispatch(func() { g.handleEdit(s, sess, req) })
	})

	server.OnEvent("/", "message:delete", func(s socketio.Conn, req DeleteRequest) {
		sess, ok := s.Context().(*session)
		if !ok {
			return
		}
		sess.dispatch(func() { g.handleDelete(s, sess, req) })
	})

	server.OnEvent("/", "publickey:publish", func(s socketio.Conn, req PublishKeyRequest) {
		sess, ok := s.Context().(*session)
		if !ok {
			return
		}
		sess.dispatch(func() { g.handlePublishKey(s, sess, req) })
	})

	server.OnEvent("/", "get_online_users", func(s socketio.Conn, _ string) {
		s.Emit("online_users", g.hub.OnlineAccounts())
	})

	server.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if sess, ok := s.Context().(*session); ok {
			sess.close()
		}
		accountID, wasLast := g.hub.Unregister(s.ID())
		if accountID != "" && wasLast {
			g.hub.EmitToAll("presence_update", map[string]interface{}{
				"accountId": accountID,
				"isOnline":  false,
			})
		}
		logger.Debug().Str("socket", s.ID()).Str("reason", reason).Msg("Socket closed")
	})

	server.OnError("/", func(s socketio.Conn, e error) {
		logger.Error().Err(e).Msg("Socket error")
	})

	go server.Serve()
	return server
}

// handleSend runs steps (a)-(f) of the send protocol on the session worker.
// Errors go to the acting connection only; broadcast happens strictly after
// successful persistence.
func (g *Gateway) handleSend(s socketio.Conn, sess *session, req SendRequest) {
	ctx := context.Background()

	if err := req.Validate(); err != nil {
		s.Emit("secure:error", gin.H{"message": err.Error()})
		return
	}

	senderProfileID, err := sess.ensureProfile(ctx, g.resolver)
	if err != nil {
		s.Emit("secure:error", gin.H{"message": "Complete your alumni profile before messaging"})
		return
	}

	// Clients may address a peer by profile ID (from a conversation view)
	// or account ID (from the directory); both are accepted.
	target, err := g.resolver.ResolveTarget(ctx, req.TargetID)
	if err != nil {
		s.Emit("secure:error", gin.H{"message": "Recipient not found"})
		return
	}

	// Key snapshots are best effort: a missing key is stored as null and
	// must never block delivery.
	var senderKey, receiverKey *string
	if rec, err := g.keys.Fetch(ctx, sess.accountID); err == nil {
		senderKey = &rec.PublicKey
	}
	if rec, err := g.keys.Fetch(ctx, target.AccountID); err == nil {
		receiverKey = &rec.PublicKey
	}

	msg, err := g.messages.Create(ctx, store.CreateParams{
		SenderProfileID:   senderProfileID,
		ReceiverProfileID: target.ProfileID,
		Ciphertext:        req.Ciphertext,
		IV:                req.Metadata.IV,
		ClientToken:       req.Metadata.ClientID,
		MessageType:       req.Metadata.MessageType,
		SenderPublicKey:   senderKey,
		ReceiverPublicKey: receiverKey,
	})
	if err != nil {
		s.Emit("secure:error", gin.H{"message": apperrors.ToAppError(err).Message})
		return
	}

	enriched := g.enrich(ctx, msg, senderProfileID, target.ProfileID)

	s.Emit("secure:sent", gin.H{
		"clientId": req.Metadata.ClientID,
		"message":  enriched,
	})

	receivePayload := gin.H{
		"from":     senderProfileID,
		"message":  enriched,
		"clientId": req.Metadata.ClientID,
	}
	g.hub.EmitToAccount(target.AccountID, "secure:receive", receivePayload)
	g.hub.EmitToOtherSessions(sess.accountID, s.ID(), "secure:receive", receivePayload)

	g.dispatcher.MessageDelivered(target.AccountID, target.ProfileID, senderProfileID)
}

func (g *Gateway) handleEdit(s socketio.Conn, sess *session, req EditRequest) {
	ctx := context.Background()

	if err := req.Validate(); err != nil {
		s.Emit("message:error", gin.H{"message": err.Error()})
		return
	}

	editorProfileID, err := sess.ensureProfile(ctx, g.resolver)
	if err != nil {
		s.Emit("message:error", gin.H{"message": "Complete your alumni profile before messaging"})
		return
	}

	msg, err := g.messages.EditContent(ctx, req.MessageID, editorProfileID, req.NewCiphertext, req.NewIV)
	if err != nil {
		s.Emit("message:error", gin.H{"message": apperrors.ToAppError(err).Message})
		return
	}

	enriched := g.enrich(ctx, msg, msg.SenderProfileID, msg.ReceiverProfileID)

	s.Emit("message:edit:success", gin.H{"message": enriched})

	payload := gin.H{"message": enriched}
	if receiverAccount, err := g.resolver.AccountIDForProfile(ctx, msg.ReceiverProfileID); err == nil {
		g.hub.EmitToAccount(receiverAccount, "message:edited", payload)
	}
	g.hub.EmitToOtherSessions(sess.accountID, s.ID(), "message:edited", payload)
}

func (g *Gateway) handleDelete(s socketio.Conn, sess *session, req DeleteRequest) {
	ctx := context.Background()

	if req.MessageID == "" {
		s.Emit("message:error", gin.H{"message": "messageId is required"})
		return
	}

	deleterProfileID, err := sess.ensureProfile(ctx, g.resolver)
	if err != nil {
		s.Emit("message:error", gin.H{"message": "Complete your alumni profile before messaging"})
		return
	}

	msg, err := g.messages.SoftDelete(ctx, req.MessageID, deleterProfileID)
	if err != nil {
		s.Emit("message:error", gin.H{"message": apperrors.ToAppError(err).Message})
		return
	}

	s.Emit("message:delete:success", gin.H{"messageId": msg.ID})

	payload := gin.H{
		"messageId": msg.ID,
		"deletedAt": msg.DeletedAt,
	}
	if receiverAccount, err := g.resolver.AccountIDForProfile(ctx, msg.ReceiverProfileID); err == nil {
		g.hub.EmitToAccount(receiverAccount, "message:deleted", payload)
	}
	g.hub.EmitToOtherSessions(sess.accountID, s.ID(), "message:deleted", payload)
}

func (g *Gateway) handlePublishKey(s socketio.Conn, sess *session, req PublishKeyRequest) {
	if req.PublicKey == "" {
		s.Emit("publickey:error", gin.H{"message": "publicKey is required"})
		return
	}

	_, err := g.keys.Publish(context.Background(), sess.accountID, req.PublicKey, "")
	if err != nil {
		s.Emit("publickey:error", gin.H{"message": apperrors.ToAppError(err).Message})
		return
	}

	s.Emit("publickey:published", gin.H{"success": true})
}

// EnrichedMessage is the fan-out payload: the stored message plus both
// parties' display attributes so clients render without extra fetches.
type EnrichedMessage struct {
	Message  interface{}            `json:"message"`
	Sender   identity.DisplayBundle `json:"sender"`
	Receiver identity.DisplayBundle `json:"receiver"`
}

func (g *Gateway) enrich(ctx context.Context, msg interface{}, senderProfileID, receiverProfileID string) EnrichedMessage {
	enriched := EnrichedMessage{Message: msg}
	if b, err := g.resolver.DisplayBundle(ctx, senderProfileID); err == nil {
		enriched.Sender = b
	}
	if b, err := g.resolver.DisplayBundle(ctx, receiverProfileID); err == nil {
		enriched.Receiver = b
	}
	return enriched
}

// SocketHandler wraps the socket.io server for gin.
func SocketHandler(server *socketio.Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		server.ServeHTTP(c.Writer, c.Request)
	}
}

// Shutdown closes the socket server after draining briefly, used by the
// graceful-shutdown path in main.
func Shutdown(server *socketio.Server, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		server.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}
