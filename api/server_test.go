package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"realtime-hub/auth"
	"realtime-hub/domain"
	"realtime-hub/domain/event"
	"realtime-hub/repositories"
	"realtime-hub/runtime"
	"realtime-hub/services"
	"realtime-hub/session"

	"github.com/dgraph-io/badger/v4"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

const secret = "api_suite_secret"

type ServerSuite struct {
	suite.Suite
	db        *badger.DB
	registry  *runtime.Registry
	validator *auth.TokenValidator
	server    *httptest.Server
	cancel    context.CancelFunc
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) SetupTest() {
	db, err := badger.Open(badger.DefaultOptions(s.T().TempDir()).WithLoggingLevel(badger.ERROR))
	s.Require().NoError(err)
	s.db = db

	log := slog.Default()
	s.registry = runtime.NewRegistry(log)
	s.registry.Notify(runtime.NewPresenceBroadcaster(log, s.registry))
	router := runtime.NewRouter(log, s.registry)
	repository := repositories.NewBadgerMessageRepository(db, log, nil)
	chat := services.NewChatService(log, repository, router, s.registry, 1000)
	s.validator = auth.NewTokenValidator(secret)

	config := session.DefaultConfig()
	config.PingInterval = 0
	server := NewServer(log, s.validator, chat, s.registry, router, config, nil)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.server = httptest.NewUnstartedServer(server.Handler())
	s.server.Config.BaseContext = func(_ net.Listener) context.Context { return ctx }
	s.server.Start()
}

func (s *ServerSuite) TearDownTest() {
	s.cancel()
	s.server.Close()
	s.Require().NoError(s.db.Close())
}

func (s *ServerSuite) token(user domain.UserID) string {
	token, err := s.validator.GenerateToken(user, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *ServerSuite) dial(user domain.UserID) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws?token=" + s.token(user)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })
	s.Require().Eventually(func() bool {
		_, ok := s.registry.Lookup(user)
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	return conn
}

func (s *ServerSuite) next(conn *websocket.Conn) event.RealtimeEvent {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	kind, data, err := conn.ReadMessage()
	s.Require().NoError(err)
	s.Require().Equal(websocket.TextMessage, kind)
	e, err := event.Decode(data)
	s.Require().NoError(err)
	return e
}

func (s *ServerSuite) do(method, path string, user domain.UserID, body any) *http.Response {
	var payload bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&payload).Encode(body))
	}
	request, err := http.NewRequest(method, s.server.URL+path, &payload)
	s.Require().NoError(err)
	if user != domain.Nobody {
		request.Header.Set("Authorization", "Bearer "+s.token(user))
	}
	response, err := http.DefaultClient.Do(request)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = response.Body.Close() })
	return response
}

func (s *ServerSuite) TestWebsocket_Rejects_Missing_Token() {
	url := "ws" + strings.TrimPrefix(s.server.URL, "http") + "/ws"
	_, response, err := websocket.DefaultDialer.Dial(url, nil)

	s.Require().Error(err)
	s.Require().Equal(http.StatusUnauthorized, response.StatusCode)
}

func (s *ServerSuite) TestWebsocket_Presence_And_Chat() {
	alice := s.dial(1)
	bob := s.dial(2)

	// Alice learns that bob arrived, bob learns that alice is there
	s.Require().Equal(event.Presence{Of: 2, Online: true}, s.next(alice))
	s.Require().Equal(event.Presence{Of: 1, Online: true}, s.next(bob))

	// Chat from alice reaches bob as is
	s.Require().NoError(alice.WriteMessage(websocket.TextMessage, []byte(`{"Chat":{"to_user_id":2,"content":"hi"}}`)))
	s.Require().Equal(event.Chat{To: 2, Content: "hi"}, s.next(bob))

	// Garbage gets an error back and the connection keeps working
	s.Require().NoError(bob.WriteMessage(websocket.TextMessage, []byte(`{"Nope":{}}`)))
	reply := s.next(bob)
	s.Require().Equal(event.ErrorKind, reply.Kind())
	s.Require().True(strings.HasPrefix(reply.(event.Error).Message, "Invalid message format: "))

	// Bob leaves and alice is told
	s.Require().NoError(bob.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	s.Require().Equal(event.Presence{Of: 2, Online: false}, s.next(alice))
}

func (s *ServerSuite) TestRest_SendMessage_Persists_And_Delivers() {
	bob := s.dial(2)

	// Given bob is online, when alice posts a message through REST
	response := s.do(http.MethodPost, "/api/v1/messages", 1, SendMessageRequest{ReceiverID: 2, Content: "over http"})
	s.Require().Equal(http.StatusCreated, response.StatusCode)
	var sent SendMessageResponse
	s.Require().NoError(json.NewDecoder(response.Body).Decode(&sent))

	// Then it was delivered live
	s.Require().True(sent.Delivered)
	s.Require().Equal(event.Chat{To: 2, Content: "over http"}, s.next(bob))

	// And it is part of the history on both sides
	for _, tc := range []struct {
		user domain.UserID
		peer domain.UserID
	}{{1, 2}, {2, 1}} {
		response = s.do(http.MethodGet, fmt.Sprintf("/api/v1/messages/%d", tc.peer), tc.user, nil)
		s.Require().Equal(http.StatusOK, response.StatusCode)
		var history HistoryResponse
		s.Require().NoError(json.NewDecoder(response.Body).Decode(&history))
		s.Require().Len(history.Messages, 1)
		s.Require().Equal(sent.Message.ID, history.Messages[0].ID)
	}

	// And only bob can mark it as read
	path := fmt.Sprintf("/api/v1/messages/%s/read", sent.Message.ID)
	s.Require().Equal(http.StatusForbidden, s.do(http.MethodPost, path, 1, nil).StatusCode)
	s.Require().Equal(http.StatusNoContent, s.do(http.MethodPost, path, 2, nil).StatusCode)
}

func (s *ServerSuite) TestRest_SendMessage_To_Offline_User() {
	response := s.do(http.MethodPost, "/api/v1/messages", 1, SendMessageRequest{ReceiverID: 7, Content: "later"})
	s.Require().Equal(http.StatusCreated, response.StatusCode)
	var sent SendMessageResponse
	s.Require().NoError(json.NewDecoder(response.Body).Decode(&sent))
	s.Require().False(sent.Delivered)
}

func (s *ServerSuite) TestRest_Rejects_Bad_Requests() {
	s.Require().Equal(http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/presence", domain.Nobody, nil).StatusCode)
	s.Require().Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/messages", 1, SendMessageRequest{Content: "to nobody"}).StatusCode)
	s.Require().Equal(http.StatusBadRequest, s.do(http.MethodPost, "/api/v1/messages", 1, SendMessageRequest{ReceiverID: 2}).StatusCode)
	s.Require().Equal(http.StatusBadRequest, s.do(http.MethodGet, "/api/v1/messages/abc", 1, nil).StatusCode)
	s.Require().Equal(http.StatusNotFound, s.do(http.MethodPost, "/api/v1/messages/unknown/read", 1, nil).StatusCode)
}

func (s *ServerSuite) TestRest_Presence_And_Health() {
	s.dial(3)

	response := s.do(http.MethodGet, "/api/v1/presence", 1, nil)
	s.Require().Equal(http.StatusOK, response.StatusCode)
	var presence map[string]map[string]bool
	s.Require().NoError(json.NewDecoder(response.Body).Decode(&presence))
	s.Require().Equal(map[string]bool{"3": true}, presence["online"])

	health := s.do(http.MethodGet, "/healthz", domain.Nobody, nil)
	s.Require().Equal(http.StatusOK, health.StatusCode)
}
