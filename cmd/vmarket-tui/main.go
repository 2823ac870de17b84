// ABOUTME: Terminal client for the vehicle-market price agent.
// ABOUTME: Readline-style input over a live WebSocket session with reconnection.

package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/nimesha-dev/vmarket/internal/config"
	"github.com/nimesha-dev/vmarket/internal/identity"
	"github.com/nimesha-dev/vmarket/internal/protocol"
	"github.com/nimesha-dev/vmarket/internal/query"
	"github.com/nimesha-dev/vmarket/internal/session"
	"github.com/nimesha-dev/vmarket/internal/transcript"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	server := flag.String("server", "", "Agent service base URL (overrides config)")
	noTranscript := flag.Bool("no-transcript", false, "Disable the local transcript log")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, *configPath, *server, *noTranscript); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\nGoodbye!")
}

func run(ctx context.Context, configPath, server string, noTranscript bool) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if server != "" {
		cfg.Server.BaseURL = server
		cfg.Server.WSURL = ""
	}
	if noTranscript {
		cfg.Transcript.Enabled = false
	}

	logger := newLogger(cfg.Logging)

	clientID := identity.NewClientID()
	client := session.NewClient(session.ConnectionConfig{
		BaseURL:           cfg.WebSocketURL(),
		ClientID:          clientID,
		AuthToken:         cfg.Server.AuthToken,
		ReconnectDelay:    cfg.Connection.ReconnectDelay,
		MaxReconnectDelay: cfg.Connection.MaxReconnectDelay,
	}, logger)
	defer client.Close()

	queryClient := query.NewClient(cfg.Server.BaseURL, cfg.Server.AuthToken, logger)

	var store *transcript.Store
	if cfg.Transcript.Enabled {
		var err error
		store, err = transcript.Open(cfg.Transcript.Path)
		if err != nil {
			return fmt.Errorf("opening transcript: %w", err)
		}
		defer store.Close()
	}

	sess := client.Session()
	sess.OnMessage(func(m session.Message) {
		if m.Role == session.RoleAssistant {
			renderMessage(m)
		}
		if store != nil {
			recordCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := store.Record(recordCtx, clientID, m); err != nil {
				logger.Warn("transcript record failed", "error", err)
			}
		}
	})
	sess.OnConnState(func(s session.ConnState) {
		renderConnState(s)
	})

	fmt.Printf("vmarket-tui session %s\n", clientID)
	fmt.Printf("Server: %s\n", cfg.Server.BaseURL)
	fmt.Println("Type a question and press Enter. /help for commands. Ctrl+C to quit.")
	fmt.Println()

	client.Connect(ctx)

	return inputLoop(ctx, client, queryClient)
}

// newLogger builds the slog logger from config; diagnostics go to stderr so
// they do not interleave with the conversation.
func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func inputLoop(ctx context.Context, client *session.Client, queryClient *query.Client) error {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")

		// Read input with context awareness
		inputCh := make(chan string, 1)
		errCh := make(chan error, 1)

		go func() {
			if scanner.Scan() {
				inputCh <- scanner.Text()
			} else {
				if err := scanner.Err(); err != nil {
					errCh <- err
				} else {
					errCh <- io.EOF
				}
			}
		}()

		var input string
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		case input = <-inputCh:
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			done, err := handleCommand(ctx, client, queryClient, input)
			if err != nil {
				color.Red("[error] %v", err)
			}
			if done {
				return nil
			}
			fmt.Println()
			continue
		}

		if err := client.Send(ctx, input); err != nil {
			switch {
			case errors.Is(err, session.ErrNotConnected):
				color.Yellow("[not connected, message not sent; waiting for reconnect]")
			case errors.Is(err, protocol.ErrEmptyMessage):
				// Blank after trimming; nothing to do.
			default:
				color.Red("[send failed] %v", err)
			}
		}
	}
}

// handleCommand runs one slash command. Returns done=true to exit the loop.
func handleCommand(ctx context.Context, client *session.Client, queryClient *query.Client, input string) (bool, error) {
	cmd, args, _ := strings.Cut(input, " ")

	switch cmd {
	case "/quit", "/exit", "/q":
		return true, nil

	case "/help":
		printHelp()
		return false, nil

	case "/status":
		snap := client.Session().Snapshot()
		fmt.Printf("Session:  %s\n", snap.ClientID)
		fmt.Printf("State:    %s\n", snap.ConnState)
		fmt.Printf("Pending:  %v\n", snap.PendingResponse)
		fmt.Printf("Messages: %d\n", len(snap.Messages))
		return false, nil

	case "/history":
		printHistory(client.Session().Snapshot())
		return false, nil

	case "/health":
		health, err := queryClient.CheckHealth(ctx)
		if err != nil {
			return false, err
		}
		fmt.Printf("%s: %s\n", health.Status, health.Message)
		return false, nil

	case "/query":
		return false, runQuery(ctx, client, queryClient, args)

	default:
		fmt.Printf("Unknown command %s, try /help\n", cmd)
		return false, nil
	}
}

// runQuery uses the synchronous API instead of the WebSocket, feeding the
// result through the same session state.
func runQuery(ctx context.Context, client *session.Client, queryClient *query.Client, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("usage: /query <question>")
	}

	sess := client.Session()
	history := sess.History()
	sess.AppendUser(text)

	result, err := queryClient.Query(ctx, text, history)
	if err != nil {
		// Clear the pending flag the optimistic append raised.
		sess.Apply(&protocol.Event{Type: protocol.FrameError, Text: err.Error()})
		return nil
	}

	sess.Apply(result.Event())
	return nil
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  /status          Show session and connection state")
	fmt.Println("  /history         Print the conversation so far")
	fmt.Println("  /health          Check the agent service health endpoint")
	fmt.Println("  /query <text>    One-shot query over HTTP instead of the socket")
	fmt.Println("  /help            Show this help")
	fmt.Println("  /quit            Exit")
}

func printHistory(snap session.Snapshot) {
	if len(snap.Messages) == 0 {
		fmt.Println("No conversation yet")
		return
	}
	fmt.Println(strings.Repeat("-", 60))
	for _, m := range snap.Messages {
		if m.Role == session.RoleUser {
			color.New(color.FgBlue).Printf("you> ")
			fmt.Println(m.Content)
			continue
		}
		renderMessage(m)
	}
	fmt.Println(strings.Repeat("-", 60))
}
