package viewer

import (
	"errors"
	"net/http"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/shellbridge/internal/terminal"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 64 << 10
)

// Sessions is the part of the session manager the viewer service drives.
type Sessions interface {
	Attach(sessionID string) (*terminal.Subscription, error)
	SendInput(sessionID, input string, addNewline bool) error
	ResizeTerminal(sessionID string, cols, rows int) error
}

// Recorder counts frames. *monitoring.Metrics satisfies it.
type Recorder interface {
	RecordWSMessage(direction, msgType string)
}

type nopRecorder struct{}

func (nopRecorder) RecordWSMessage(string, string) {}

// Service streams terminal sessions to WebSocket viewers.
type Service struct {
	sessions Sessions
	logger   *zap.Logger
	metrics  Recorder
	upgrader websocket.Upgrader
	json     sonic.API
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder counts inbound and outbound frames.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.metrics = r }
}

// WithOriginCheck restricts which origins may upgrade.
func WithOriginCheck(check func(r *http.Request) bool) Option {
	return func(s *Service) { s.upgrader.CheckOrigin = check }
}

// NewService creates a viewer service.
func NewService(sessions Sessions, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		sessions: sessions,
		logger:   logger.Named("viewer"),
		metrics:  nopRecorder{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		// ConfigStd replaces invalid UTF-8; text frames must be valid UTF-8.
		json: sonic.ConfigStd,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register mounts the viewer endpoint.
func (s *Service) Register(r gin.IRouter) {
	r.GET("/terminals/:id/ws", s.Handle)
}

// Handle attaches a viewer to the session named by the :id parameter.
func (s *Service) Handle(c *gin.Context) {
	sessionID := c.Param("id")

	// Attach before upgrading so unknown sessions get a plain HTTP error.
	sub, err := s.sessions.Attach(sessionID)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, terminal.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, terminal.ErrInvalidState):
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	defer sub.Close()

	ws, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	conn := &conn{ws: ws, svc: s}
	defer conn.close()

	log := s.logger.With(zap.String("session_id", sessionID), zap.String("viewer_id", sub.ViewerID))
	log.Debug("viewer connected")

	if err := conn.send(TypeReplay, replayFrame(sub)); err != nil {
		return
	}

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		s.pump(conn, sub, log)
	}()

	s.readLoop(conn, sessionID, log)

	sub.Close()
	<-writeDone
	log.Debug("viewer disconnected")
}

// pump forwards session events until the subscription ends, then closes the
// connection so the read loop unblocks.
func (s *Service) pump(c *conn, sub *terminal.Subscription, log *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	var carry []byte
	exited := sub.Status != terminal.StatusRunning
	if exited {
		if err := c.send(TypeExit, exitFrame(sub.Status, sub.Exit)); err != nil {
			return
		}
	}

	for {
		select {
		case ev, ok := <-sub.Events:
			if !ok {
				switch {
				case sub.Dropped():
					log.Warn("viewer fell behind, disconnecting")
					c.closeWith(websocket.CloseTryAgainLater, "viewer fell behind")
				case exited:
					c.closeWith(websocket.CloseNormalClosure, "process exited")
				default:
					c.closeWith(websocket.CloseGoingAway, "session closed")
				}
				return
			}

			switch ev.Kind {
			case terminal.EventData:
				var payload []byte
				payload, carry = splitUTF8(append(carry, ev.Data...))
				if len(payload) == 0 {
					continue
				}
				if err := c.send(TypeData, DataFrame{Type: TypeData, Payload: string(payload)}); err != nil {
					return
				}
			case terminal.EventExit:
				exited = true
				if len(carry) > 0 {
					_ = c.send(TypeData, DataFrame{Type: TypeData, Payload: string(carry)})
					carry = nil
				}
				if err := c.send(TypeExit, exitFrame(ev.Status, ev.Exit)); err != nil {
					return
				}
			}

		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}

func (s *Service) readLoop(c *conn, sessionID string, log *zap.Logger) {
	c.ws.SetReadLimit(maxInboundSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("viewer read failed", zap.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		if len(data) == 0 {
			continue
		}

		var msg InboundFrame
		if err := s.json.Unmarshal(data, &msg); err != nil {
			s.metrics.RecordWSMessage("in", "invalid")
			if c.sendError("invalid message") != nil {
				return
			}
			continue
		}
		s.metrics.RecordWSMessage("in", msg.Type)

		if err := s.dispatch(c, sessionID, msg); err != nil {
			return
		}
	}
}

// dispatch handles one inbound frame. It returns an error only when the
// connection is unusable.
func (s *Service) dispatch(c *conn, sessionID string, msg InboundFrame) error {
	switch msg.Type {
	case TypeInput:
		if err := s.sessions.SendInput(sessionID, msg.Data, msg.Newline); err != nil {
			return c.sendError(err.Error())
		}
	case TypeResize:
		if err := s.sessions.ResizeTerminal(sessionID, msg.Cols, msg.Rows); err != nil {
			return c.sendError(err.Error())
		}
	case TypePing:
		return c.send(TypePong, pongFrame{Type: TypePong})
	default:
		return c.sendError("unknown message type: " + msg.Type)
	}
	return nil
}

// splitUTF8 returns the longest prefix of b that does not end inside a
// multi-byte sequence, and the remainder to carry into the next chunk.
func splitUTF8(b []byte) (complete, rest []byte) {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if !utf8.FullRune(b[i:]) {
			return b[:i], append([]byte(nil), b[i:]...)
		}
		break
	}
	return b, nil
}

// conn serializes writes; gorilla allows one concurrent writer.
type conn struct {
	ws  *websocket.Conn
	svc *Service

	mu     sync.Mutex
	closed bool
}

func (c *conn) send(msgType string, frame any) error {
	data, err := c.svc.json.Marshal(frame)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return err
	}
	c.svc.metrics.RecordWSMessage("out", msgType)
	return nil
}

func (c *conn) sendError(message string) error {
	return c.send(TypeError, ErrorFrame{Type: TypeError, Message: message})
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// closeWith sends a close frame and closes the socket.
func (c *conn) closeWith(code int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(writeWait))
	_ = c.ws.Close()
}

func (c *conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		_ = c.ws.Close()
	}
}
