package server

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/keypipe/hid"
)

func startServer(t *testing.T, cfg *Config) *Server {
	t.Helper()
	s := New("127.0.0.1:0", cfg, nil)
	require.NoError(t, s.Start())
	t.Cleanup(s.Close)
	return s
}

func dial(t *testing.T, s *Server) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", s.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return s.Clients() > 0 }, time.Second, 5*time.Millisecond)
	return conn
}

func TestReportsAreFramed(t *testing.T) {
	s := startServer(t, nil)
	conn := dial(t, s)

	require.NoError(t, s.Transmit(hid.KindKeyboard, []byte{0x02, 0, 0x04, 0, 0, 0, 0, 0}))
	require.NoError(t, s.Transmit(hid.KindConsumer, []byte{0xe9, 0}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 10+4)
	_, err := io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 8, 0x02, 0, 0x04, 0, 0, 0, 0, 0}, buf[:10])
	assert.Equal(t, []byte{1, 2, 0xe9, 0}, buf[10:])
}

func TestClientSendsLEDs(t *testing.T) {
	s := startServer(t, nil)
	conn := dial(t, s)

	_, err := conn.Write([]byte{hid.LEDCapsLock})
	require.NoError(t, err)

	select {
	case b := <-s.LEDs():
		assert.Equal(t, uint8(hid.LEDCapsLock), b)
	case <-time.After(2 * time.Second):
		t.Fatal("led report not delivered")
	}
}

func TestDisconnectRemovesClient(t *testing.T) {
	s := startServer(t, nil)
	conn := dial(t, s)
	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return s.Clients() == 0 }, time.Second, 5*time.Millisecond)
	assert.NoError(t, s.Transmit(hid.KindSystem, []byte{0}))
}

func TestSlowClientIsDropped(t *testing.T) {
	s := startServer(t, &Config{Backlog: 1, WriteTimeout: 10 * time.Millisecond})
	dial(t, s)

	big := make([]byte, 255)
	for i := 0; i < 100000 && s.Clients() > 0; i++ {
		require.NoError(t, s.Transmit(hid.KindKeyboard, big))
	}
	assert.Eventually(t, func() bool { return s.Clients() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestOversizedReport(t *testing.T) {
	s := New("127.0.0.1:0", nil, nil)
	assert.Error(t, s.Transmit(hid.KindKeyboard, make([]byte, 256)))
	assert.Nil(t, s.Addr())
}
