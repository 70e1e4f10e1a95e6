// Command chatutil is a terminal client for manual testing: it opens a
// conversation with a character and relays stdin lines over the websocket.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"emotion-character-demo/backend/internal/ws"
	"emotion-character-demo/backend/pkg/config"
	"emotion-character-demo/backend/pkg/jwt"

	"github.com/gorilla/websocket"
)

func main() {
	baseURL := flag.String("base", "http://localhost:8081", "Server base URL")
	characterID := flag.Uint("character", 1, "Character to talk to")
	token := flag.String("token", os.Getenv("CHAT_TOKEN"), "Bearer token; minted from JWT_SECRET when empty")
	userID := flag.Uint("user", 1, "User id for a minted token")
	flag.Parse()

	if *token == "" {
		cfg := config.New()
		svc, err := jwt.NewService(cfg.JWT.Secret, time.Hour, "emotion-character-backend")
		if err != nil {
			fatal("mint token: %v", err)
		}
		if *token, err = svc.GenerateToken(*userID, ""); err != nil {
			fatal("mint token: %v", err)
		}
	}

	conversationID, err := startConversation(*baseURL, *token, *characterID)
	if err != nil {
		fatal("start conversation: %v", err)
	}
	fmt.Printf("Conversation %d with character %d. Type a message, Ctrl-C to quit.\n", conversationID, *characterID)

	wsURL, err := url.Parse(*baseURL)
	if err != nil {
		fatal("parse base url: %v", err)
	}
	wsURL.Scheme = strings.Replace(wsURL.Scheme, "http", "ws", 1)
	wsURL.Path = fmt.Sprintf("/ws/conversations/%d", conversationID)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+*token)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), header)
	if err != nil {
		fatal("dial websocket: %v", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var frame ws.Outbound
			if err := conn.ReadJSON(&frame); err != nil {
				fmt.Println("connection closed:", err)
				return
			}
			printFrame(frame)
		}
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				closeConn(conn)
				return
			}
			if err := conn.WriteJSON(ws.Inbound{Type: "chat", Message: line}); err != nil {
				fatal("send: %v", err)
			}
		case <-done:
			return
		case <-interrupt:
			closeConn(conn)
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return
		}
	}
}

func startConversation(baseURL, token string, characterID uint) (uint, error) {
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/api/v1/characters/%d/conversations", baseURL, characterID), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := (&http.Client{Timeout: 10 * time.Second}).Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var body struct {
		Conversation struct {
			ID uint `json:"id"`
		} `json:"conversation"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	return body.Conversation.ID, nil
}

func printFrame(frame ws.Outbound) {
	switch frame.Type {
	case "typing":
		fmt.Println("...")
	case "turn":
		if frame.Result == nil {
			return
		}
		if frame.Result.Success {
			fmt.Printf("> %s\n  (credits left: %d)\n", frame.Result.AIResponse, frame.Result.RemainingCredits)
		} else {
			fmt.Printf("! %s [%s]\n", frame.Result.Error, frame.Result.ErrorCode)
		}
	case "error":
		fmt.Printf("! %s\n", frame.Error)
	}
}

func closeConn(conn *websocket.Conn) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
