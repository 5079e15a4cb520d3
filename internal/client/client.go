// Package client implements the interactive terminal client: it renders
// server events for a human and translates typed commands into wire lines.
package client

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"

	"github.com/viccstake/tilez/pkg/protocol"
)

// Client drives one connection to a game server from a terminal.
type Client struct {
	logger *slog.Logger
	conn   net.Conn
	input  io.Reader
	output io.Writer
}

func New(logger *slog.Logger, conn net.Conn, input io.Reader, output io.Writer) *Client {
	return &Client{
		logger: logger.WithGroup("client"),
		conn:   conn,
		input:  input,
		output: output,
	}
}

// Run relays events and commands until the server closes the connection or
// the user quits.
func (c *Client) Run() error {
	serverDone := make(chan error, 1)
	go c.readServer(serverDone)

	userLines := make(chan string)
	userDone := make(chan struct{})
	go func() {
		defer close(userDone)
		scanner := bufio.NewScanner(c.input)
		for scanner.Scan() {
			userLines <- scanner.Text()
		}
	}()

	for {
		select {
		case err := <-serverDone:
			fmt.Fprintln(c.output, "Connection closed by server")
			if err == io.EOF {
				return nil
			}
			return err
		case <-userDone:
			// No more commands will come, but the game may still be on:
			// keep relaying server events until the server hangs up.
			userDone = nil
			userLines = nil
		case line := <-userLines:
			trimmed := strings.TrimSpace(line)
			if trimmed == "" {
				continue
			}
			if strings.EqualFold(trimmed, "quit") {
				return nil
			}
			wire, err := TranslateInput(trimmed)
			if err != nil {
				fmt.Fprintln(c.output, err.Error())
				continue
			}
			c.logger.Debug("Sending command", slog.String("line", wire))
			if _, err := io.WriteString(c.conn, wire+"\n"); err != nil {
				return fmt.Errorf("could not send command: %w", err)
			}
		}
	}
}

func (c *Client) readServer(done chan<- error) {
	scanner := bufio.NewScanner(c.conn)
	for scanner.Scan() {
		raw := scanner.Text()
		c.logger.Debug("Server message", slog.String("line", raw))

		ev, err := protocol.ParseEvent(raw)
		if err != nil {
			c.logger.Warn("Unparseable server line", slog.String("line", raw), slog.String("error", err.Error()))
			continue
		}
		fmt.Fprintln(c.output, Render(ev))
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	done <- err
}

// TranslateInput converts a typed command ("place 1 2 0.5") into its wire
// form, validating it locally so typos are caught before the server sees
// them.
func TranslateInput(line string) (string, error) {
	fields := strings.Fields(line)
	wire := strings.ToUpper(fields[0])
	if len(fields) > 1 {
		wire += " " + strings.Join(fields[1:], " ")
	}
	if _, err := protocol.ParseCommand(wire); err != nil {
		return "", fmt.Errorf("usage: place <x> <y> <radius> | shoot <piece#> <dx> <dy> <force> | quit")
	}
	return wire, nil
}

// Render formats one server event for the terminal.
func Render(ev protocol.Event) string {
	switch e := ev.(type) {
	case protocol.Waiting:
		return "Waiting for an opponent to join..."
	case protocol.Ready:
		return fmt.Sprintf("Game on - you are player %d", e.PlayerID)
	case protocol.YourTurn:
		return "Your turn. Commands: place <x> <y> <radius> | shoot <piece#> <dx> <dy> <force>"
	case protocol.OpponentTurn:
		return "Opponent's turn - waiting..."
	case protocol.OK:
		return "Move accepted"
	case protocol.Error:
		return "Server rejected the move: " + e.Reason
	case protocol.State:
		return "Current board:\n" + RenderBoard(e.Pieces)
	case protocol.Disconnected:
		return "Opponent disconnected - game over"
	default:
		return fmt.Sprintf("(unknown event %T)", ev)
	}
}

// RenderBoard formats the piece list as a labelled table, one piece per
// line, indexed the way the SHOOT command expects.
func RenderBoard(pieces []protocol.Piece) string {
	if len(pieces) == 0 {
		return "  (board is empty)"
	}
	lines := make([]string, len(pieces))
	for i, p := range pieces {
		lines[i] = fmt.Sprintf("  #%-2d  P%d  pos=(%8.2f, %8.2f)  radius=%.2f", i, p.Owner, p.X, p.Y, p.Radius)
	}
	return strings.Join(lines, "\n")
}
