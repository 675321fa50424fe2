package e2e

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"realtime-hub/auth"
	"realtime-hub/domain"
	"realtime-hub/domain/event"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

type BaseHubSuite struct {
	suite.Suite
	Config Config
	tokens *auth.TokenValidator
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseHubSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.HTTPAddr == "" || s.Config.SecretKey == "" {
		s.T().Skip("E2E_HTTP_ADDR and SECRET_KEY are required for end-to-end scenarios")
	}
	s.tokens = auth.NewTokenValidator(s.Config.SecretKey)
}

func (s *BaseHubSuite) Step(name string) {
	header := fmt.Sprintf("  ====== %s ======", name)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)
}

// User returns an id no earlier run has used, offset from E2E_FIRST_USER_ID.
func (s *BaseHubSuite) User(offset int64) domain.UserID {
	return domain.UserID(s.Config.FirstUserID + time.Now().Unix()%10_000*10 + offset)
}

func (s *BaseHubSuite) Token(user domain.UserID) string {
	token, err := s.tokens.GenerateToken(user, 10*time.Minute)
	s.Require().NoError(err)
	return token
}

// Connect opens a websocket as user. The connection is closed at the end of the test.
func (s *BaseHubSuite) Connect(user domain.UserID) *websocket.Conn {
	url := "ws://" + strings.TrimPrefix(s.Config.HTTPAddr, "http://") + "/ws"
	header := http.Header{"Authorization": []string{"Bearer " + s.Token(user)}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	s.Require().NoError(err, "Failed to connect to hub at "+url)
	s.T().Cleanup(func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	return conn
}

// Expect reads until an event matching want arrives, skipping presence noise from other runs.
func (s *BaseHubSuite) Expect(conn *websocket.Conn, want event.RealtimeEvent) {
	deadline := time.Now().Add(5 * time.Second)
	s.Require().NoError(conn.SetReadDeadline(deadline))
	for {
		_, data, err := conn.ReadMessage()
		s.Require().NoError(err, fmt.Sprintf("waiting for %#v", want))
		got, err := event.Decode(data)
		s.Require().NoError(err)
		if got == want {
			return
		}
		s.T().Logf("skipping %s", data)
	}
}

func (s *BaseHubSuite) Send(conn *websocket.Conn, e event.RealtimeEvent) {
	payload, err := event.Encode(e)
	s.Require().NoError(err)
	s.Require().NoError(conn.WriteMessage(websocket.TextMessage, payload))
}

// GrpcConn initializes a gRPC connection with logging, colors, and JSON debugging
func (s *BaseHubSuite) GrpcConn(t *testing.T, name string, addr string) *grpc.ClientConn {
	s.Step(name)

	marshaler := protojson.MarshalOptions{
		UseProtoNames:   true,
		Multiline:       true,
		EmitUnpopulated: true,
	}

	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(func(ctx context.Context, method string, req, reply interface{}, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			start := time.Now()
			err := invoker(ctx, method, req, reply, cc, opts...)

			logBuilder := strings.Builder{}
			fmt.Fprintf(&logBuilder, "GRPC %s [%s] in %v", method, status.Code(err), time.Since(start))

			// Log full JSON request/response bodies if E2E_DEBUG_JSON is enabled
			if s.Config.DebugJSON {
				fmt.Fprintln(&logBuilder, "\nREQUEST:")
				fmt.Fprintln(&logBuilder, marshaler.Format(req.(proto.Message)))
				if err != nil {
					fmt.Fprintln(&logBuilder, "ERROR:", err)
				} else {
					fmt.Fprintln(&logBuilder, "RESPONSE:")
					fmt.Fprintln(&logBuilder, marshaler.Format(reply.(proto.Message)))
				}
			}
			t.Log(logBuilder.String())
			return err
		}),
	)
	s.Require().NoError(err, "Failed to connect to gRPC server at "+addr)
	return conn
}
