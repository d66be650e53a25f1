package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagbadge/internal/logging"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestHubLogsFailedCloseHandshake(t *testing.T) {
	var logs syncBuffer
	logging.SetOutput(&logs)
	logging.SetLevel(logrus.DebugLevel)
	t.Cleanup(func() { require.NoError(t, logging.Init(logging.Options{})) })

	h := NewHub()
	conns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Register(conn)
		conns <- conn
	}))
	defer ts.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()
	client.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello Event
	require.NoError(t, client.ReadJSON(&hello))
	require.Equal(t, "hello", hello.Type)

	// the server side goes away before the hub says goodbye
	require.NoError(t, (<-conns).Close())
	h.Close()

	assert.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "Close handshake with "+hello.Client+" failed")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Zero(t, h.Len())
}
