package app

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"trip_chat_service/internal/chat/domain"
	"trip_chat_service/pkg/logger"
	"trip_chat_service/pkg/middlewares"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// ChatWebsocketHandler holds the use cases every connection needs
type ChatWebsocketHandler struct {
	messageUC    *SendMessageUseCase
	presenceUC   *PresenceUseCase
	readStateUC  *ReadStateUseCase
	inboxUC      *InboxUseCase
	pingInterval time.Duration
}

// NewChatWebsocketHandler create ChatWebsocketHandler
func NewChatWebsocketHandler(
	messageUC *SendMessageUseCase,
	presenceUC *PresenceUseCase,
	readStateUC *ReadStateUseCase,
	inboxUC *InboxUseCase,
	pingInterval time.Duration,
) *ChatWebsocketHandler {
	if pingInterval <= 0 {
		pingInterval = 10 * time.Minute
	}
	return &ChatWebsocketHandler{
		messageUC:    messageUC,
		presenceUC:   presenceUC,
		readStateUC:  readStateUC,
		inboxUC:      inboxUC,
		pingInterval: pingInterval,
	}
}

// wsWriter serialize writes to one connection: the read loop and the
// subscription callbacks both push frames to the client
type wsWriter struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsWriter) send(resp domain.WSResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Errorf("marshal response error:", err)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Log.Errorf("write message error:", err)
	}
}

func (w *wsWriter) sendError(errorMsg string) {
	w.send(domain.WSResponse{
		Action:  "error",
		Success: false,
		Payload: map[string]interface{}{
			"error": errorMsg,
		},
	})
}

// connState per-connection subscription handles. One active chat
// subscription and one presence watch at a time: entering a new chat
// cancels the previous one so messages never leak into the wrong view.
type connState struct {
	currentChatID  string
	chatCancel     context.CancelFunc
	presenceCancel context.CancelFunc
	inboxCancel    context.CancelFunc
}

func (s *connState) cancelChat() {
	if s.chatCancel != nil {
		s.chatCancel()
		s.chatCancel = nil
	}
	s.currentChatID = ""
}

func (s *connState) cancelAll() {
	s.cancelChat()
	if s.presenceCancel != nil {
		s.presenceCancel()
		s.presenceCancel = nil
	}
	if s.inboxCancel != nil {
		s.inboxCancel()
		s.inboxCancel = nil
	}
}

// HandleConnection websocket entry point of one client connection
func (h *ChatWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	userID, ok := conn.Locals(middlewares.TokenUserID).(string)
	if !ok || userID == "" {
		logger.Log.Error("websocket connection without user id")
		conn.Close()
		return
	}
	logger.Log.Info("websocket connected", zap.String("userID", userID))

	ticker := time.NewTicker(h.pingInterval)
	ctxClose, cancel := context.WithCancel(context.Background())
	state := &connState{}
	writer := &wsWriter{conn: conn}

	defer func() {
		ticker.Stop()
		state.cancelAll()
		cancel()
		conn.Close()
		// the disconnect hook flips presence to offline whether the
		// client said goodbye or just vanished
		h.presenceUC.FireDisconnect(userID)
		logger.Log.Info("websocket closed", zap.String("userID", userID))
	}()

	if err := h.presenceUC.GoOnline(ctx, userID); err != nil {
		logger.Log.Errorf("go online error:", err, zap.String("userID", userID))
		return
	}

	//client close is handled by fiber in ReadMessage, hook it out here
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Infof("WebSocket closed:", conn.RemoteAddr())
		return nil
	})

	//pong replies to our pings come back through here
	conn.SetPongHandler(func(appData string) error {
		return nil
	})

	conn.SetPingHandler(func(appData string) error {
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(appData),
			time.Now().Add(time.Second),
		)
	})

	// keepalive ping
	go func() {
		for {
			select {
			case <-ticker.C:
				writer.mu.Lock()
				err := conn.WriteMessage(websocket.PingMessage, []byte("ping"))
				writer.mu.Unlock()
				if err != nil {
					logger.Log.Errorf("Ping error:", err)
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Infof("Connection closed:", err)
			} else {
				//abrupt drop, 1006
				logger.Log.Errorf("websocket read error:", err)
			}
			return
		}
		if mt != websocket.TextMessage {
			writer.sendError("unknown message type")
			continue
		}
		h.textMessageAction(ctx, writer, userID, state, message)
	}
}

func (h *ChatWebsocketHandler) textMessageAction(ctx context.Context, writer *wsWriter, userID string, state *connState, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		log.Printf("json unmarshal error: %v", err)
		return
	}

	resp := domain.WSResponse{Action: req.Action, Success: false, Payload: map[string]interface{}{}}
	switch req.Action {

	//open a chat screen: swap subscriptions, mark viewing, catch up
	case string(domain.EnterChat):
		conversationID, err := domain.DeriveConversationID(userID, req.PartnerID)
		if err != nil {
			resp.Error = err.Error()
			break
		}

		state.cancelChat()
		state.currentChatID = conversationID

		if err := h.presenceUC.SetCurrentChat(ctx, userID, conversationID); err != nil {
			logger.Log.Errorf("set current chat error:", err, zap.String("userID", userID))
		}
		if err := h.readStateUC.MarkRead(ctx, conversationID, userID); err != nil {
			// stale badge only, never blocks opening the chat
			logger.Log.Errorf("mark read error:", err, zap.String("conversationID", conversationID))
		}

		ctxChat, cancelChat := context.WithCancel(ctxFrom(ctx))
		state.chatCancel = cancelChat
		history, err := h.messageUC.Open(ctxChat, conversationID, func(m domain.ChatMessage) {
			writer.send(domain.WSResponse{
				Action:  string(domain.NotifyMessage),
				Success: true,
				Payload: map[string]interface{}{
					"message_id":      m.ID,
					"conversation_id": m.ConversationID,
					"sender_id":       m.SenderID,
					"message":         m.Text,
					"timestamp":       m.Timestamp,
				},
			})
		})
		if err != nil {
			state.cancelChat()
			resp.Error = err.Error()
			break
		}

		resp.Success = true
		resp.Payload["conversation_id"] = conversationID
		resp.Payload["messages"] = history

	//leave the chat screen: stop the stream, clear viewing state
	case string(domain.LeaveChat):
		left := state.currentChatID
		state.cancelChat()
		if err := h.presenceUC.SetCurrentChat(ctx, userID, ""); err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true
		resp.Payload["left"] = left

	case string(domain.SendMessage):
		conversationID, err := domain.DeriveConversationID(userID, req.PartnerID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		sent, err := h.messageUC.Append(ctx, conversationID, userID, req.Content)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true
		resp.Payload["message_id"] = sent.ID
		resp.Payload["timestamp"] = sent.Timestamp

	case string(domain.MarkRead):
		conversationID, err := domain.DeriveConversationID(userID, req.PartnerID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		if err := h.readStateUC.MarkRead(ctx, conversationID, userID); err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true

	case string(domain.GetHistory):
		conversationID, err := domain.DeriveConversationID(userID, req.PartnerID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		history, err := h.messageUC.History(ctx, conversationID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true
		resp.Payload["messages"] = history

	case string(domain.GetInbox):
		list, err := h.inboxUC.BuildInbox(ctx, userID)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true
		resp.Payload["conversations"] = list

	case string(domain.WatchInbox):
		if state.inboxCancel != nil {
			state.inboxCancel()
		}
		ctxInbox, cancelInbox := context.WithCancel(ctxFrom(ctx))
		state.inboxCancel = cancelInbox
		err := h.inboxUC.SubscribeInbox(ctxInbox, userID, func(list []domain.ConversationSummary) {
			writer.send(domain.WSResponse{
				Action:  string(domain.NotifyInbox),
				Success: true,
				Payload: map[string]interface{}{
					"conversations": list,
				},
			})
		})
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true

	//watch the partner's online indicator for the chat header
	case string(domain.WatchPresence):
		if req.PartnerID == "" || req.PartnerID == userID {
			resp.Error = domain.ErrInvalidParticipants.Error()
			break
		}
		if state.presenceCancel != nil {
			state.presenceCancel()
		}
		ctxPresence, cancelPresence := context.WithCancel(ctxFrom(ctx))
		state.presenceCancel = cancelPresence
		partnerID := req.PartnerID
		err := h.presenceUC.Subscribe(ctxPresence, partnerID, func(rec domain.PresenceRecord) {
			writer.send(domain.WSResponse{
				Action:  string(domain.NotifyPresence),
				Success: true,
				Payload: map[string]interface{}{
					"user_id":   partnerID,
					"online":    rec.Online,
					"last_seen": rec.LastSeen,
				},
			})
		})
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Success = true

	case string(domain.UnwatchPresence):
		if state.presenceCancel != nil {
			state.presenceCancel()
			state.presenceCancel = nil
		}
		resp.Success = true

	default:
		writer.sendError("unknown action")
		return
	}

	if resp.Error != "" {
		logger.Log.Error("websocket err",
			zap.String("UserID", userID),
			zap.String("Action", req.Action),
			zap.String("err", resp.Error))
	}
	writer.send(resp)
}

// ctxFrom derive subscription contexts from the request ctx when it is
// cancelable, else from Background
func ctxFrom(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
