package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Subscribe keeps a push channel to wsURL open until ctx is done. Each
// message updates the cached state. When the connection drops the status
// is marked inactive and errored, and a new connection is attempted after
// the reconnect delay. It returns ctx.Err().
func (c *Client) Subscribe(ctx context.Context, wsURL string) error {
	for {
		err := c.listen(ctx, wsURL)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("push channel disconnected", "url", wsURL, "error", err, "retry", c.reconnect)
		c.update(func(s *State) {
			s.Status.Active = false
			s.Status.Error = true
		})

		t := time.NewTimer(c.reconnect)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (c *Client) listen(ctx context.Context, wsURL string) error {
	conn, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c.logger.Info("push channel connected", "url", wsURL)
	c.update(func(s *State) {
		s.Status.Active = true
		s.Status.Error = false
		s.Status.Loading = false
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Warn("invalid push message", "data", string(raw))
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg Message) {
	switch msg.Type {
	case MessageStatus:
		var st MonadStatus
		if err := json.Unmarshal(msg.Data, &st); err != nil {
			c.logger.Warn("invalid status message", "error", err)
			return
		}
		c.update(func(s *State) {
			s.Status = StatusState{Active: st.Active, Data: &st}
		})
	case MessageListUs:
		var list []Identity
		if err := json.Unmarshal(msg.Data, &list); err != nil {
			c.logger.Warn("invalid listUs message", "error", err)
			return
		}
		if list == nil {
			list = []Identity{}
		}
		c.update(func(s *State) { s.ListUs = list })
	case MessageUpdate:
		c.logger.Debug("push update", "data", string(msg.Data))
		c.update(func(s *State) { s.LastUpdate = msg.Data })
	default:
		c.logger.Warn("unknown push message type", "type", msg.Type)
		c.update(func(*State) {})
	}
}
