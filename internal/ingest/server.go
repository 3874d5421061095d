// Package ingest accepts build log lines over the network, one line per
// UDP datagram or newline-delimited over TCP.
package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
)

// Sink receives ingested lines.
type Sink interface {
	SubmitLine(source, line string) error
}

type Server struct {
	Addr string
	Sink Sink

	mu   sync.Mutex
	udp  net.PacketConn
	tcp  net.Listener
	wg   sync.WaitGroup
	done chan struct{}
}

func NewServer(port int, sink Sink) *Server {
	return &Server{
		Addr: fmt.Sprintf("0.0.0.0:%d", port),
		Sink: sink,
	}
}

// Listen binds both the UDP and TCP sockets.
func (s *Server) Listen() error {
	udp, err := net.ListenPacket("udp", s.Addr)
	if err != nil {
		return fmt.Errorf("ingest udp listen: %w", err)
	}
	// Bind TCP to the same port UDP resolved to, so port 0 works in tests.
	tcp, err := net.Listen("tcp", udp.LocalAddr().String())
	if err != nil {
		udp.Close()
		return fmt.Errorf("ingest tcp listen: %w", err)
	}

	s.mu.Lock()
	s.udp, s.tcp = udp, tcp
	s.done = make(chan struct{})
	s.mu.Unlock()

	log.Printf("Ingest UDP listening on %s", udp.LocalAddr())
	log.Printf("Ingest TCP listening on %s", tcp.Addr())
	return nil
}

// UDPAddr returns the bound UDP address.
func (s *Server) UDPAddr() net.Addr { return s.udp.LocalAddr() }

// TCPAddr returns the bound TCP address.
func (s *Server) TCPAddr() net.Addr { return s.tcp.Addr() }

// Serve accepts lines until ctx is done. Listen is called if needed.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	bound := s.udp != nil
	s.mu.Unlock()
	if !bound {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.wg.Add(2)
	go s.serveUDP()
	go s.serveTCP()

	<-ctx.Done()
	close(s.done)
	s.udp.Close()
	s.tcp.Close()
	s.wg.Wait()
	return nil
}

func (s *Server) serveUDP() {
	defer s.wg.Done()
	buf := make([]byte, 65535)
	for {
		n, addr, err := s.udp.ReadFrom(buf)
		if err != nil {
			if s.closing() || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Printf("Ingest UDP read error: %v", err)
			continue
		}
		for _, line := range strings.Split(strings.TrimRight(string(buf[:n]), "\r\n"), "\n") {
			s.submit("udp:"+addr.String(), line)
		}
	}
}

func (s *Server) serveTCP() {
	defer s.wg.Done()
	for {
		conn, err := s.tcp.Accept()
		if err != nil {
			if s.closing() || errors.Is(err, net.ErrClosed) {
				return
			}
			continue
		}
		s.wg.Add(1)
		go s.handleTCPConn(conn)
	}
}

func (s *Server) handleTCPConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	go func() {
		<-s.done
		conn.Close()
	}()

	source := "tcp:" + conn.RemoteAddr().String()
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		s.submit(source, strings.TrimRight(scanner.Text(), "\r"))
	}
}

func (s *Server) submit(source, line string) {
	if err := s.Sink.SubmitLine(source, line); err != nil {
		log.Printf("Ingest: dropping line from %s: %v", source, err)
	}
}

func (s *Server) closing() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
