// Package testserver implements a minimal region-server stand-in used only
// to drive the client's tests. It speaks just enough of the wire protocol
// (header, request/ping frames in, response frames out) to exercise the
// client's connect, send, heartbeat and error paths; it is not a product
// surface.
package testserver

import (
	"net"
	"sync"
	"time"

	"github.com/yuoguoxianseng/hbase/wire"
)

// Handler answers a single request payload. Returning isErr=true causes the
// server to send a remote error frame with class/message instead of a
// value frame.
type Handler func(payload []byte) (resp []byte, isErr bool, class, message string)

// Server is a tiny TCP peer good enough for integration tests.
type Server struct {
	ln      net.Listener
	handler Handler

	mu    sync.Mutex
	delay time.Duration

	wg sync.WaitGroup
}

// Start listens on an ephemeral loopback port and serves connections with
// handler until Close is called.
func Start(handler Handler) (*Server, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	s := &Server{ln: ln, handler: handler}
	s.wg.Add(1)
	go s.acceptLoop()
	return s, nil
}

// Addr returns the address callers should dial.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// SetResponseDelay makes every subsequent response wait d before being
// written, used to force read-timeout/ping cycles on the client.
func (s *Server) SetResponseDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// Close stops accepting and waits for in-flight connection handlers to
// return.
func (s *Server) Close() error {
	err := s.ln.Close()
	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		s.wg.Add(1)
		go s.serve(conn)
	}
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	if _, err := wire.ReadHeader(conn); err != nil {
		return
	}

	for {
		callID, payload, isPing, err := wire.ReadFrame(conn)
		if err != nil {
			return
		}
		if isPing {
			continue
		}

		s.mu.Lock()
		delay := s.delay
		s.mu.Unlock()
		if delay > 0 {
			time.Sleep(delay)
		}

		resp, isErr, class, message := s.handler(payload)
		if isErr {
			if err := wire.WriteResponseError(conn, callID, class, message); err != nil {
				return
			}
			continue
		}
		if err := wire.WriteResponseValue(conn, callID, &wire.BytesValue{Data: resp}); err != nil {
			return
		}
	}
}

// Echo is a Handler that returns the request payload unchanged.
func Echo(payload []byte) (resp []byte, isErr bool, class, message string) {
	return payload, false, "", ""
}
