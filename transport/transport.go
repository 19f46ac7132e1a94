// Package transport accepts remote command sets over WebSocket and
// forwards them into a command channel.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/websocket"
	"golang.org/x/sync/errgroup"

	"pipelined.dev/synth/command"
)

// DefaultAddr is the default listen address.
const DefaultAddr = "127.0.0.1:3012"

// Server is a WebSocket server. Every text message is a JSON command
// set, see command.Decode. Messages that cannot be decoded are logged
// and skipped, the connection stays open. Unsupported MIDI events are
// logged and the rest of their set is forwarded.
type Server struct {
	sender *command.Sender
	log    logrus.FieldLogger

	m      sync.Mutex
	conns  map[xid.ID]*websocket.Conn
	closed bool
	wg     sync.WaitGroup
}

// NewServer returns a server that forwards commands to the sender.
func NewServer(s *command.Sender, l logrus.FieldLogger) *Server {
	return &Server{
		sender: s,
		log:    l,
		conns:  make(map[xid.ID]*websocket.Conn),
	}
}

// ListenAndServe listens on the TCP address and serves until context
// is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen %s: %w", addr, err)
	}
	return s.Serve(ctx, l)
}

// Serve accepts connections on the listener until context is done. All
// open connections are closed before it returns.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.log.Info(fmt.Sprintf("listening on %v", l.Addr()))
	srv := &http.Server{
		Handler: websocket.Handler(func(ws *websocket.Conn) {
			s.serve(ctx, ws)
		}),
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.closeAll()
		return srv.Shutdown(context.Background())
	})
	err := g.Wait()
	s.wg.Wait()
	return err
}

func (s *Server) serve(ctx context.Context, ws *websocket.Conn) {
	id := xid.New()
	if !s.track(id, ws) {
		ws.Close()
		return
	}
	defer s.untrack(id)

	l := s.log.WithField("connection", id.String())
	l.Info("connection opened")
	defer l.Info("connection closed")
	for {
		var msg []byte
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			if !errors.Is(err, io.EOF) {
				l.Debug(fmt.Sprintf("receive failed: %v", err))
			}
			return
		}
		cmds, err := command.Decode(msg)
		switch {
		case errors.Is(err, command.ErrWire):
			l.Warn(fmt.Sprintf("message skipped: %v", err))
			continue
		case err != nil:
			l.Warn(fmt.Sprintf("events skipped: %v", err))
		}
		for _, cmd := range cmds {
			if err := s.sender.Send(ctx, cmd); err != nil {
				l.Warn(fmt.Sprintf("failed to forward command %v: %v", cmd, err))
				return
			}
		}
		l.Debug(fmt.Sprintf("forwarded %d commands", len(cmds)))
	}
}

func (s *Server) track(id xid.ID, ws *websocket.Conn) bool {
	s.m.Lock()
	defer s.m.Unlock()
	if s.closed {
		return false
	}
	s.conns[id] = ws
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(id xid.ID) {
	s.m.Lock()
	delete(s.conns, id)
	s.m.Unlock()
	s.wg.Done()
}

// closeAll closes hijacked connections, http.Server doesn't track them.
func (s *Server) closeAll() {
	s.m.Lock()
	defer s.m.Unlock()
	s.closed = true
	for _, ws := range s.conns {
		ws.Close()
	}
}
