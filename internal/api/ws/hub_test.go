package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/outfit/internal/auth"
	"github.com/your-org/outfit/internal/models"
	"github.com/your-org/outfit/pkg/dto"
)

func newServer(t *testing.T, h *Hub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) {
		c.Set(auth.UserIDKey, map[string]int{"alice": 1, "bob": 2}[c.Query("as")])
		h.HandleWS(c)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, who string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?as=" + who
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubDeliversOnlyToOwner(t *testing.T) {
	h := NewHub()
	go h.Run()
	srv := newServer(t, h)

	alice := dial(t, srv, "alice")
	bob := dial(t, srv, "bob")
	require.Eventually(t, func() bool { return h.Connected() == 2 }, time.Second, 10*time.Millisecond)

	id := uuid.New()
	h.BroadcastRecommendation(models.RecommendationEvent{ID: id, UserID: 1, Usage: models.UsageCasual, Outfits: 3})

	require.NoError(t, alice.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := alice.ReadMessage()
	require.NoError(t, err)

	var evt dto.WSEvent
	require.NoError(t, json.Unmarshal(data, &evt))
	assert.Equal(t, "recommendation.created", evt.Event)
	assert.Equal(t, id, evt.ID)
	assert.Equal(t, 3, evt.Outfits)

	require.NoError(t, bob.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = bob.ReadMessage()
	assert.Error(t, err, "bob must not receive alice's event")
}

func TestHubUnregistersOnClose(t *testing.T) {
	h := NewHub()
	go h.Run()
	srv := newServer(t, h)

	conn := dial(t, srv, "alice")
	require.Eventually(t, func() bool { return h.Connected() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return h.Connected() == 0 }, time.Second, 10*time.Millisecond)
}
