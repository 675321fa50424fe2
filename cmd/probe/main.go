package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"realtime-hub/auth"
	"realtime-hub/domain"
	"realtime-hub/domain/event"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
)

// probe connects as one user, prints what the hub pushes and optionally sends a chat.
//
//	PROBE_USER_ID=2 SECRET_KEY=... go run ./cmd/probe -to 1 -message hello -presence
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	to := flag.Int64("to", 0, "Recipient of -message")
	message := flag.String("message", "", "Chat content to send once connected")
	presence := flag.Bool("presence", false, "Print the presence snapshot and exit")
	flag.Parse()

	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	token, err := resolveToken(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	if *presence {
		return printPresence(ctx, cfg, token)
	}

	header := http.Header{"Authorization": []string{"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.WebsocketURL, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", cfg.WebsocketURL, err)
	}
	defer conn.Close()
	banner := fmt.Sprintf("  ====== connected as user %d ======", cfg.UserID)
	if cfg.Colours {
		banner = color.New(color.BgBlack, color.FgGreen).Render(banner)
	}
	fmt.Println(banner)

	if *message != "" {
		payload, err := event.Encode(event.Chat{To: domain.UserID(*to), Content: *message})
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return fmt.Errorf("send chat: %w", err)
		}
	}

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		e, err := event.Decode(data)
		if err != nil {
			fmt.Printf("undecodable frame: %s\n", data)
			continue
		}
		fmt.Println(render(e, cfg.Colours))
	}
}

func resolveToken(cfg Config) (string, error) {
	if cfg.Token != "" {
		return cfg.Token, nil
	}
	if cfg.SecretKey == "" {
		return "", fmt.Errorf("either PROBE_TOKEN or SECRET_KEY is required")
	}
	return auth.NewTokenValidator(cfg.SecretKey).GenerateToken(domain.UserID(cfg.UserID), time.Hour)
}

func printPresence(ctx context.Context, cfg Config, token string) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.APIURL+"/api/v1/presence", nil)
	if err != nil {
		return err
	}
	request.Header.Set("Authorization", "Bearer "+token)
	response, err := http.DefaultClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("presence: unexpected status %s", response.Status)
	}
	var body struct {
		Online map[string]bool `json:"online"`
	}
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		return err
	}
	presenceTable(os.Stdout, body.Online)
	return nil
}
