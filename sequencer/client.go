package sequencer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client errors.
var (
	ErrStreamClosed = errors.New("sequencer: header stream closed")
	ErrBadBaseURL   = errors.New("sequencer: base URL must be http or https")
)

// StatusError reports a non-2xx response from the query service.
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sequencer: %s returned %d: %s", e.Path, e.Status, e.Body)
}

// ClientConfig tunes the query-service client.
type ClientConfig struct {
	// RequestTimeout bounds each point query. Zero disables the timeout.
	RequestTimeout time.Duration

	// HandshakeTimeout bounds the WebSocket upgrade of the header stream.
	HandshakeTimeout time.Duration
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		RequestTimeout:   30 * time.Second,
		HandshakeTimeout: 10 * time.Second,
	}
}

// Client talks to a sequencer node's availability and submit APIs.
type Client struct {
	base   *url.URL
	http   *http.Client
	dialer *websocket.Dialer
}

// NewClient creates a Client for the API rooted at baseURL, for example
// "http://localhost:24000/v0/".
func NewClient(baseURL string, cfg ClientConfig) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("sequencer: parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, ErrBadBaseURL
	}
	return &Client{
		base: u,
		http: &http.Client{Timeout: cfg.RequestTimeout},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
	}, nil
}

func (c *Client) endpoint(elem ...string) *url.URL {
	return c.base.JoinPath(elem...)
}

func (c *Client) getJSON(ctx context.Context, u *url.URL, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sequencer: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Path: req.URL.Path, Status: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("sequencer: decode %s: %w", req.URL.Path, err)
	}
	return nil
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

// NamespaceProofResponse is the body of the namespace proof endpoint.
type NamespaceProofResponse struct {
	Proof        *NsProof      `json:"proof"`
	Transactions []Transaction `json:"transactions"`
}

// NamespaceProof fetches the inclusion proof of namespace ns in the block at
// height. A nil proof with a nil error means the service has no proof for the
// namespace in that block.
func (c *Client) NamespaceProof(ctx context.Context, height uint64, ns NamespaceID) (*NsProof, error) {
	var resp NamespaceProofResponse
	if err := c.getJSON(ctx, c.endpoint("availability", "block", u64(height), "namespace", ns.String()), &resp); err != nil {
		return nil, err
	}
	return resp.Proof, nil
}

// VidCommonResponse is the body of the VID common endpoint.
type VidCommonResponse struct {
	Height uint64    `json:"height"`
	Common VidCommon `json:"common"`
}

// VidCommon fetches the VID common data of the block at height.
func (c *Client) VidCommon(ctx context.Context, height uint64) (*VidCommon, error) {
	var resp VidCommonResponse
	if err := c.getJSON(ctx, c.endpoint("availability", "vid", "common", u64(height)), &resp); err != nil {
		return nil, err
	}
	return &resp.Common, nil
}

// Payload fetches the payload summary, including the block hash, of the
// block at height.
func (c *Client) Payload(ctx context.Context, height uint64) (*PayloadData, error) {
	var resp PayloadData
	if err := c.getJSON(ctx, c.endpoint("availability", "payload", u64(height)), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitTransaction forwards a namespaced transaction to the sequencer.
func (c *Client) SubmitTransaction(ctx context.Context, tx Transaction) error {
	body, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("sequencer: encode transaction: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("submit", "submit").String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

// HeaderStream yields headers in height order.
type HeaderStream interface {
	// Next blocks until the next header arrives.
	Next() (*Header, error)
	Close() error
}

// SubscribeHeaders opens the header stream starting at height from. The
// stream is closed when ctx is cancelled.
func (c *Client) SubscribeHeaders(ctx context.Context, from uint64) (HeaderStream, error) {
	u := c.endpoint("availability", "stream", "headers", u64(from))
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	conn, resp, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("sequencer: subscribe headers: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("sequencer: subscribe headers: %w", err)
	}
	s := &wsHeaderStream{conn: conn, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
	return s, nil
}

type wsHeaderStream struct {
	conn      *websocket.Conn
	done      chan struct{}
	closeOnce sync.Once
}

func (s *wsHeaderStream) Next() (*Header, error) {
	var h Header
	if err := s.conn.ReadJSON(&h); err != nil {
		select {
		case <-s.done:
			return nil, ErrStreamClosed
		default:
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) || errors.Is(err, io.EOF) {
			return nil, ErrStreamClosed
		}
		return nil, fmt.Errorf("sequencer: read header: %w", err)
	}
	return &h, nil
}

func (s *wsHeaderStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}
