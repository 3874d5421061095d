package ingest

import (
	"context"
	"net"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	mu    sync.Mutex
	lines []string
}

func (s *sink) SubmitLine(_, line string) error {
	s.mu.Lock()
	s.lines = append(s.lines, line)
	s.mu.Unlock()
	return nil
}

func (s *sink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.lines...)
	sort.Strings(out)
	return out
}

func TestServer_TCPAndUDP(t *testing.T) {
	got := &sink{}
	srv := NewServer(0, got)
	srv.Addr = "127.0.0.1:0"
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	conn, err := net.Dial("tcp", srv.TCPAddr().String())
	require.NoError(t, err)
	_, err = conn.Write([]byte("tcp one\r\n##teamcity[RegexMessageParser.Reset]\n"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	udp, err := net.Dial("udp", srv.UDPAddr().String())
	require.NoError(t, err)
	_, err = udp.Write([]byte("udp one\n"))
	require.NoError(t, err)
	require.NoError(t, udp.Close())

	want := []string{"##teamcity[RegexMessageParser.Reset]", "tcp one", "udp one"}
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(want, got.snapshot())
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
