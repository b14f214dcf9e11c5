// Package server exposes the sandbox over a websocket. Every client message
// is handled on one goroutine that owns the interaction session; telemetry
// frames are broadcast to all clients at a fixed rate.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/gorilla/websocket"
	"github.com/san-kum/bouncebox/internal/forces"
	"github.com/san-kum/bouncebox/internal/interaction"
	"github.com/san-kum/bouncebox/internal/kind"
	"github.com/san-kum/bouncebox/internal/sim"
	"github.com/san-kum/bouncebox/internal/storage"
	"github.com/san-kum/bouncebox/internal/world"
)

const (
	DefaultBroadcastHz = 20
	sendBuffer         = 16
	inboxSize          = 256
	requestTimeout     = time.Second
	writeWait          = time.Second
)

var (
	ErrUnknownMessage = errors.New("server: unknown message type")
	ErrNoStore        = errors.New("server: no scene store")
)

// Config sets the listen address and broadcast rate.
type Config struct {
	Addr        string
	BroadcastHz float64
	Canvas      world.Config
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

type inbound struct {
	from *client
	msg  Message
}

// Server funnels websocket clients into one interaction session.
type Server struct {
	cfg      Config
	upgrader websocket.Upgrader
	session  *interaction.Session
	store    *storage.Store
	frame    func() *sim.Frame
	log      *log.Logger

	inbox chan inbound

	mu      sync.Mutex
	clients map[*client]struct{}
}

// New returns a server driving session. store may be nil, which disables
// save and load.
func New(cfg Config, session *interaction.Session, store *storage.Store, frame func() *sim.Frame, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.BroadcastHz <= 0 {
		cfg.BroadcastHz = DefaultBroadcastHz
	}
	if cfg.Canvas.PixelsPerMeter <= 0 {
		cfg.Canvas = world.DefaultConfig()
	}
	return &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		session: session,
		store:   store,
		frame:   frame,
		log:     logger,
		inbox:   make(chan inbound, inboxSize),
		clients: make(map[*client]struct{}),
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// ListenAndServe serves /ws on the configured address and runs the message
// loop until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", s.cfg.Addr, err)
	}
	srv := &http.Server{Handler: mux}
	s.log.Printf("listening on ws://%s/ws", ln.Addr())

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	loopErr := s.Run(ctx)

	shutdown, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdown); err != nil {
		s.log.Printf("shutdown: %v", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return loopErr
}

// Run handles client messages and broadcasts frames until ctx is done. It
// is the only goroutine touching the session.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / s.cfg.BroadcastHz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return ctx.Err()
		case in := <-s.inbox:
			s.reply(in.from, s.handle(ctx, in.msg))
		case <-ticker.C:
			s.broadcast()
		}
	}
}

// ServeHTTP upgrades a connection and pumps its messages.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("upgrade: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Printf("client connected from %s", conn.RemoteAddr())

	go s.writePump(c)
	s.readPump(c)
}

func (s *Server) readPump(c *client) {
	defer s.drop(c)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Printf("read: %v", err)
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.reply(c, Reply{Type: MsgError, Message: fmt.Sprintf("bad message: %v", err)})
			continue
		}
		select {
		case s.inbox <- inbound{from: c, msg: msg}:
		default:
			s.reply(c, Reply{Type: MsgError, Cmd: msg.Type, Message: "server busy"})
		}
	}
}

func (s *Server) writePump(c *client) {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.log.Printf("write: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// drop unregisters c and closes its send channel once.
func (s *Server) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
}

// enqueue sends data to c without blocking; slow clients miss messages.
func (s *Server) enqueue(c *client, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func (s *Server) reply(c *client, r Reply) {
	data, err := json.Marshal(r)
	if err != nil {
		s.log.Printf("encode reply: %v", err)
		return
	}
	s.enqueue(c, data)
}

func (s *Server) broadcast() {
	if s.Clients() == 0 || s.frame == nil {
		return
	}
	data, err := json.Marshal(NewFrameMessage(s.cfg.Canvas, s.frame()))
	if err != nil {
		s.log.Printf("encode frame: %v", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
		}
	}
}

func ack(cmd string, value any) Reply { return Reply{Type: MsgAck, Cmd: cmd, Value: value} }

func fail(cmd string, err error) Reply {
	return Reply{Type: MsgError, Cmd: cmd, Message: err.Error()}
}

// handle applies one client message to the session.
func (s *Server) handle(ctx context.Context, m Message) Reply {
	value, err := s.apply(ctx, m)
	if err != nil {
		return fail(m.Type, err)
	}
	return ack(m.Type, value)
}

func (s *Server) apply(ctx context.Context, m Message) (any, error) {
	sess := s.session
	switch m.Type {
	case MsgStroke:
		mat := sess.Material()
		if m.Material != "" {
			var err error
			if mat, err = kind.ParseMaterial(m.Material); err != nil {
				return nil, err
			}
		}
		pts := make([]mgl64.Vec2, len(m.Points))
		for i, p := range m.Points {
			pts[i] = mgl64.Vec2{p[0], p[1]}
		}
		return nil, sess.Stroke(mat, pts)

	case MsgErase:
		if m.Target == "stroke" {
			return nil, sess.EraseStroke(world.StrokeID(m.ID))
		}
		return nil, sess.EraseObject(world.ObjectID(m.ID))

	case MsgEraseAt:
		return nil, sess.EraseAt(m.pos())

	case MsgVortex:
		return uint64(sess.AddVortex(m.pos())), nil

	case MsgRemoveForce:
		return nil, sess.RemoveVortex(forces.VortexID(m.ID))

	case MsgEmitter:
		shape, err := s.shape(m.Shape)
		if err != nil {
			return nil, err
		}
		id, err := sess.AddEmitter(m.pos(), shape, m.Rate, mgl64.Vec2{m.VX, m.VY})
		return uint64(id), err

	case MsgRemoveEmitter:
		return nil, sess.RemoveEmitter(forces.EmitterID(m.ID))

	case MsgSpawn:
		shape, err := s.shape(m.Shape)
		if err != nil {
			return nil, err
		}
		return nil, sess.Spawn(m.pos(), shape)

	case MsgSpawnPoint:
		sess.SetSpawnPoint(m.pos())
		return nil, nil

	case MsgWindow:
		sess.MoveWindow(m.pos())
		return nil, nil

	case MsgTool:
		return nil, s.selectTool(m)

	case MsgPress:
		return nil, sess.Press(m.pos())

	case MsgDrag:
		sess.Drag(m.pos())
		return nil, nil

	case MsgRelease:
		return nil, sess.Release(m.pos())

	case MsgClear:
		return nil, sess.Clear()

	case MsgSave:
		if s.store == nil {
			return nil, ErrNoStore
		}
		rctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		scene, err := sess.Snapshot(rctx)
		if err != nil {
			return nil, err
		}
		return s.store.Save(m.Name, scene)

	case MsgLoad:
		if s.store == nil {
			return nil, ErrNoStore
		}
		scene, err := s.store.Load(m.Name)
		if err != nil {
			return nil, err
		}
		rctx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()
		return nil, sess.Load(rctx, scene)

	case MsgScenes:
		if s.store == nil {
			return nil, ErrNoStore
		}
		return s.store.List()

	case MsgParam:
		return sess.SetParam(m.Name, m.Value)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, m.Type)
}

func (s *Server) shape(name string) (kind.Shape, error) {
	if name == "" {
		return s.session.Shape(), nil
	}
	return kind.ParseShape(name)
}

// selectTool updates any of tool, material and shape present in m.
func (s *Server) selectTool(m Message) error {
	if m.Tool != "" {
		t, err := interaction.ParseTool(m.Tool)
		if err != nil {
			return err
		}
		s.session.SetTool(t)
	}
	if m.Material != "" {
		mat, err := kind.ParseMaterial(m.Material)
		if err != nil {
			return err
		}
		s.session.SetMaterial(mat)
	}
	if m.Shape != "" {
		k, err := kind.ParseShape(m.Shape)
		if err != nil {
			return err
		}
		s.session.SetShape(k)
	}
	return nil
}
