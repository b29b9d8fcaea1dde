package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// DefaultEndpoint is the daemon's GraphQL endpoint.
	DefaultEndpoint = "http://localhost:7777/graphql"

	// DefaultReconnectDelay is the wait between push channel reconnects.
	DefaultReconnectDelay = 10 * time.Second
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client. Defaults to a client with a 10s timeout.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithReconnectDelay sets the push channel reconnect delay.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) {
		c.reconnect = d
	}
}

// WithDialer sets the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) {
		c.dialer = d
	}
}

// Client is a daemon client. It is safe for concurrent use.
type Client struct {
	http      *http.Client
	logger    *slog.Logger
	reconnect time.Duration
	dialer    *websocket.Dialer

	mu       sync.Mutex
	endpoint string
	state    State
	subs     map[int]func(State)
	nextSub  int
}

// New creates a client for endpoint, or DefaultEndpoint when it is blank.
func New(endpoint string, opts ...Option) *Client {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	c := &Client{
		http:      &http.Client{Timeout: 10 * time.Second},
		logger:    slog.Default(),
		reconnect: DefaultReconnectDelay,
		dialer:    websocket.DefaultDialer,
		endpoint:  endpoint,
		state: State{
			Status: StatusState{Loading: true},
			ListUs: []Identity{},
		},
		subs: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the GraphQL endpoint.
func (c *Client) Endpoint() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.endpoint
}

// SetEndpoint replaces the endpoint. Blank values are ignored.
func (c *Client) SetEndpoint(url string) {
	if strings.TrimSpace(url) == "" {
		return
	}
	c.mu.Lock()
	c.endpoint = url
	c.mu.Unlock()
}

// State returns a copy of the cached state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// OnChange registers fn to be called with every new state. The returned
// function unregisters it.
func (c *Client) OnChange(fn func(State)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// update mutates the state under the lock and notifies subscribers
// outside it.
func (c *Client) update(fn func(*State)) {
	c.mu.Lock()
	fn(&c.state)
	snapshot := c.state.clone()
	subs := make([]func(State), 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.Unlock()

	for _, s := range subs {
		s(snapshot.clone())
	}
}

// GraphQLError carries the error messages of a GraphQL response.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "graphql: " + strings.Join(e.Messages, ", ")
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// do posts one GraphQL document and decodes its data into out.
func (c *Client) do(ctx context.Context, query string, vars map[string]any, out any) error {
	if vars == nil {
		vars = map[string]any{}
	}
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("remote: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("remote: graphql status %d", resp.StatusCode)
	}

	var gr graphqlResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	if len(gr.Errors) > 0 {
		msgs := make([]string, len(gr.Errors))
		for i, e := range gr.Errors {
			msgs[i] = e.Message
		}
		return &GraphQLError{Messages: msgs}
	}
	if out == nil || len(gr.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(gr.Data, out); err != nil {
		return fmt.Errorf("remote: decode data: %w", err)
	}
	return nil
}

const statusQuery = `query {
  monadStatus {
    active
    version
  }
}`

// Status asks the daemon for its status. Any failure reports an inactive
// daemon and marks the cached status as errored.
func (c *Client) Status(ctx context.Context) MonadStatus {
	var data struct {
		MonadStatus *MonadStatus `json:"monadStatus"`
	}
	if err := c.do(ctx, statusQuery, nil, &data); err != nil {
		c.logger.Warn("remote status failed", "endpoint", c.Endpoint(), "error", err)
		c.update(func(s *State) {
			s.Status.Error = true
			s.Status.Loading = false
			s.Status.Data = nil
		})
		return MonadStatus{}
	}

	st := MonadStatus{}
	if data.MonadStatus != nil {
		st = *data.MonadStatus
	}
	c.update(func(s *State) {
		s.Status.Active = st.Active
		s.Status.Loading = false
		d := st
		s.Status.Data = &d
	})
	return st
}

const listIdentitiesQuery = `query {
  listIdentities {
    username
  }
}`

// ListIdentities returns the identities the daemon knows. Failures yield
// an empty list.
func (c *Client) ListIdentities(ctx context.Context) []Identity {
	var data struct {
		ListIdentities []Identity `json:"listIdentities"`
	}
	if err := c.do(ctx, listIdentitiesQuery, nil, &data); err != nil {
		c.logger.Warn("remote listIdentities failed", "endpoint", c.Endpoint(), "error", err)
		c.update(func(s *State) { s.ListUs = []Identity{} })
		return []Identity{}
	}

	list := make([]Identity, 0, len(data.ListIdentities))
	for _, id := range data.ListIdentities {
		list = append(list, Identity{Username: id.Username})
	}
	c.update(func(s *State) { s.ListUs = list })
	return append([]Identity(nil), list...)
}

const publicInfoQuery = `query($username: String!) {
  publicInfo(username: $username) {
    username
    publicKey
  }
}`

// ErrNoPublicInfo is returned when the daemon has no public record.
var ErrNoPublicInfo = errors.New("remote: no public info")

// PublicInfo fetches the public record for username.
func (c *Client) PublicInfo(ctx context.Context, username string) (PublicInfo, error) {
	var data struct {
		PublicInfo *PublicInfo `json:"publicInfo"`
	}
	if err := c.do(ctx, publicInfoQuery, map[string]any{"username": username}, &data); err != nil {
		return PublicInfo{}, err
	}
	info := data.PublicInfo
	if info == nil || info.Username == "" || info.PublicKey == "" {
		return PublicInfo{}, ErrNoPublicInfo
	}
	return *info, nil
}

const getQuery = `query($username: String!, $password: String!, $filter: GetFilter!) {
  get(username: $username, password: $password, filter: $filter) {
    verb
    key
    value
    timestamp
  }
}`

// Get returns the entries of username matching filter.
func (c *Client) Get(ctx context.Context, username, password string, filter map[string]any) ([]Entry, error) {
	if filter == nil {
		filter = map[string]any{}
	}
	var data struct {
		Get []Entry `json:"get"`
	}
	vars := map[string]any{"username": username, "password": password, "filter": filter}
	if err := c.do(ctx, getQuery, vars, &data); err != nil {
		return nil, err
	}
	if data.Get == nil {
		return []Entry{}, nil
	}
	return data.Get, nil
}

// Mutate runs one verb mutation and returns the daemon's boolean reply.
func (c *Client) Mutate(ctx context.Context, verb string, r MutateRequest) (bool, error) {
	if !IsVerb(verb) {
		return false, fmt.Errorf("remote: unknown verb %q", verb)
	}

	query := fmt.Sprintf(`mutation($username: String!, $password: String!, $key: String!, $value: String!, $context_id: String) {
  %s(username: $username, password: $password, key: $key, value: $value, context_id: $context_id)
}`, verb)

	vars := map[string]any{
		"username":   r.Username,
		"password":   r.Password,
		"key":        r.Key,
		"value":      r.Value,
		"context_id": r.ContextID,
	}
	var data map[string]bool
	if err := c.do(ctx, query, vars, &data); err != nil {
		return false, err
	}
	return data[verb], nil
}
