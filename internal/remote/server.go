// ABOUTME: Remote control WebSocket server
// ABOUTME: Handshake, per-session writer, command dispatch and event broadcast
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Sendspin/soundbuffer-go/internal/version"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Path is the WebSocket endpoint
const Path = "/control"

const (
	writeDeadline = 10 * time.Second
	helloTimeout  = 5 * time.Second
	pingInterval  = 30 * time.Second
	sendQueue     = 32
)

// Config holds server configuration
type Config struct {
	Addr string
	Name string
}

// Server accepts remote control sessions for one player
type Server struct {
	config   Config
	serverID string
	player   Player
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	http     *http.Server
	sessions map[string]*session
	conns    map[*websocket.Conn]struct{}
	closing  bool
	wg       sync.WaitGroup
}

type session struct {
	id   string
	name string
	conn *websocket.Conn
	send chan Message
	done chan struct{}
}

// NewServer creates a server driving p
func NewServer(config Config, p Player) *Server {
	if config.Name == "" {
		config.Name = version.Product
	}
	id := uuid.New()
	return &Server{
		config:   config,
		serverID: id.String(),
		player:   p,
		upgrader: websocket.Upgrader{
			// control clients are local tools, not browsers
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sessions: make(map[string]*session),
		conns:    make(map[*websocket.Conn]struct{}),
		logger:   slog.Default().With("remote server uuid", id),
	}
}

// Handler serves the control endpoint
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(Path, s.handleWebSocket)
	return mux
}

// Listen binds the configured address
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	s.logger.Info("remote control listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Listen
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Port returns the bound TCP port, or 0 before Listen
func (s *Server) Port() int {
	if addr, ok := s.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

// Serve accepts connections until ctx is done. Listen is called first if
// it has not been.
func (s *Server) Serve(ctx context.Context) error {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	ln := s.listener
	s.http = &http.Server{Handler: s.Handler()}
	srv := s.http
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.closeSessions()
	s.wg.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Sessions returns the number of connected clients
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Broadcast queues a message for every session. Slow sessions drop it.
func (s *Server) Broadcast(msgType string, payload any) error {
	msg, err := NewMessage(msgType, "", payload)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		select {
		case sess.send <- msg:
		default:
			s.logger.Warn("session send queue full, dropping message", "session", sess.id, "type", msgType)
		}
	}
	return nil
}

// closeSessions refuses new connections and closes every open one,
// including those still in the handshake
func (s *Server) closeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closing = true
	for conn := range s.conns {
		conn.Close()
	}
}

// track registers an upgraded connection, or reports false once shutdown
// has started
func (s *Server) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	if !s.track(conn) {
		s.logger.Debug("refusing control connection during shutdown", "remote", r.RemoteAddr)
		conn.Close()
		return
	}
	defer s.untrack(conn)

	s.logger.Debug("new control connection", "remote", r.RemoteAddr)
	s.handleConnection(conn)
}

func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	hello, err := s.readHello(conn)
	if err != nil {
		s.logger.Warn("handshake failed", "error", err)
		s.writeNow(conn, TypeError, "", ErrorPayload{Error: "bad_hello", Message: err.Error()})
		return
	}

	sess := &session{
		id:   uuid.NewString(),
		name: hello.Name,
		conn: conn,
		send: make(chan Message, sendQueue),
		done: make(chan struct{}),
	}

	reply, err := NewMessage(TypeServerHello, "", ServerHello{
		ServerID:  s.serverID,
		SessionID: sess.id,
		Name:      s.config.Name,
		Version:   ProtocolVersion,
	})
	if err != nil {
		s.logger.Error("failed to encode hello", "error", err)
		return
	}
	sess.send <- reply

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return
	}
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	s.logger.Info("control session opened", "session", sess.id, "client", hello.Name)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.sessionWriter(sess)
	}()

	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()
		close(sess.done)
		<-writerDone
		s.logger.Info("control session closed", "session", sess.id)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("control read failed", "session", sess.id, "error", err)
			}
			return
		}
		s.handleMessage(sess, data)
	}
}

func (s *Server) readHello(conn *websocket.Conn) (ClientHello, error) {
	var hello ClientHello

	conn.SetReadDeadline(time.Now().Add(helloTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return hello, fmt.Errorf("failed to read client/hello: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return hello, fmt.Errorf("failed to parse client/hello: %w", err)
	}
	if msg.Type != TypeClientHello {
		return hello, fmt.Errorf("expected %s, got %s", TypeClientHello, msg.Type)
	}
	if err := msg.Decode(&hello); err != nil {
		return hello, err
	}
	if hello.ClientID == "" {
		return hello, errors.New("client/hello missing client_id")
	}
	return hello, nil
}

func (s *Server) handleMessage(sess *session, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.reply(sess, TypeError, "", ErrorPayload{Error: "bad_message", Message: err.Error()})
		return
	}

	if msg.Type != TypeCommand {
		s.reply(sess, TypeError, msg.ID, ErrorPayload{Error: "unexpected_type", Message: msg.Type})
		return
	}

	var cmd Command
	if err := msg.Decode(&cmd); err != nil {
		s.reply(sess, TypeError, msg.ID, ErrorPayload{Error: "bad_command", Message: err.Error()})
		return
	}

	s.logger.Debug("remote command", "session", sess.id, "action", cmd.Action, "value", cmd.Value)
	if err := Apply(s.player, cmd); err != nil {
		s.reply(sess, TypeError, msg.ID, ErrorPayload{Error: "command_failed", Message: err.Error()})
		return
	}
	s.reply(sess, TypeStatus, msg.ID, s.player.Status())
}

func (s *Server) reply(sess *session, msgType, id string, payload any) {
	msg, err := NewMessage(msgType, id, payload)
	if err != nil {
		s.logger.Error("failed to encode reply", "error", err)
		return
	}
	select {
	case sess.send <- msg:
	case <-sess.done:
	}
}

// sessionWriter owns all writes on the connection
func (s *Server) sessionWriter(sess *session) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-sess.send:
			sess.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := sess.conn.WriteJSON(msg); err != nil {
				s.logger.Debug("control write failed", "session", sess.id, "error", err)
				sess.conn.Close()
				return
			}
		case <-ticker.C:
			if err := sess.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				sess.conn.Close()
				return
			}
		case <-sess.done:
			return
		}
	}
}

// writeNow writes outside a session, before the writer exists
func (s *Server) writeNow(conn *websocket.Conn, msgType, id string, payload any) {
	msg, err := NewMessage(msgType, id, payload)
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	conn.WriteJSON(msg)
}
