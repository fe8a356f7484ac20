// Package transport implements the station's LNS WebSocket client: the
// discovery GET, the muxs connect, and the bidirectional text/binary
// frame pump S2E reads inbound messages from and writes outbound
// messages to. The WebSocket protocol itself is an external
// collaborator per spec.md §1; this package is the concrete default
// implementation SPEC_FULL.md's DOMAIN STACK calls for.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Client owns one LNS WebSocket connection and its read/write pumps.
type Client struct {
	URI    string
	TLS    *TLSConfig
	log    zerolog.Logger

	conn    *websocket.Conn
	dialer  *websocket.Dialer

	Inbound  chan []byte
	outbound chan outboundMsg

	// OnConnect, if set, runs once right after a successful dial and
	// before Connect blocks on the read/write pumps; the station uses
	// it to send the opening version handshake message (§4.1/§6).
	OnConnect func(*Client) error
}

// TLSConfig names client-cert/CA material for the discovery+muxs
// handshake. Nothing in this package reads Client.TLS: discovery and
// Connect use Go's default TLS settings.
type TLSConfig struct {
	CertFile string
	KeyFile  string
	CAFile   string
}

type outboundMsg struct {
	binary bool
	data   []byte
}

// NewClient builds a Client for a muxs URI (wss://host:port/router-<id>).
func NewClient(uri string, log zerolog.Logger) *Client {
	return &Client{
		URI: uri,
		log: log.With().Str("component", "transport").Logger(),
		dialer: &websocket.Dialer{
			HandshakeTimeout: 15 * time.Second,
		},
		Inbound:  make(chan []byte, 256),
		outbound: make(chan outboundMsg, 256),
	}
}

// Connect dials the LNS and starts the read/write pumps; it blocks
// until the connection closes or ctx is cancelled.
func (c *Client) Connect(ctx context.Context) error {
	conn, resp, err := c.dialer.DialContext(ctx, c.URI, http.Header{})
	if err != nil {
		return errors.Wrapf(err, "transport: dial %s", c.URI)
	}
	if resp != nil {
		defer resp.Body.Close()
	}
	c.conn = conn
	defer conn.Close()

	if c.OnConnect != nil {
		if err := c.OnConnect(c); err != nil {
			return errors.Wrap(err, "transport: OnConnect handshake")
		}
	}

	errCh := make(chan error, 2)
	go c.readPump(ctx, errCh)
	go c.writePump(ctx, errCh)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

func (c *Client) readPump(ctx context.Context, errCh chan<- error) {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			errCh <- errors.Wrap(err, "transport: read")
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}
		select {
		case c.Inbound <- data:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) writePump(ctx context.Context, errCh chan<- error) {
	ping := time.NewTicker(30 * time.Second)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				errCh <- errors.Wrap(err, "transport: ping")
				return
			}
		case m := <-c.outbound:
			mt := websocket.TextMessage
			if m.binary {
				mt = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(mt, m.data); err != nil {
				errCh <- errors.Wrap(err, "transport: write")
				return
			}
		}
	}
}

// SendJSON enqueues a JSON text frame for the write pump.
func (c *Client) SendJSON(data []byte) error {
	return c.send(outboundMsg{binary: false, data: data})
}

// SendBinary enqueues a binary-codec frame for the write pump.
func (c *Client) SendBinary(data []byte) error {
	return c.send(outboundMsg{binary: true, data: data})
}

func (c *Client) send(m outboundMsg) error {
	select {
	case c.outbound <- m:
		return nil
	default:
		return fmt.Errorf("transport: outbound queue full, dropping frame")
	}
}

// DiscoveryURI resolves a muxs URI from a CUPS-style discovery
// endpoint's response. CUPS itself is out of scope (spec.md §1); this
// just performs the one GET the station needs when discovery is static.
func DiscoveryURI(ctx context.Context, discoveryURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, discoveryURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "transport: discovery request")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transport: discovery returned status %d", resp.StatusCode)
	}
	return resp.Header.Get("Location"), nil
}
