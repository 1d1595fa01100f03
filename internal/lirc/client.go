package lirc

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

const reconnectDelay = time.Second

// Client dials a lircd unix socket, reconnecting on disconnect, and
// calls OnKeyPress for each resolved key event.
type Client struct {
	log             hclog.Logger
	socketPath      string
	minDelay        time.Duration
	ignoreKeyCoffee bool
	onKeyPress      func(keyName string)

	mu       sync.Mutex
	lastKey  string
	lastTime time.Time
}

// NewClient constructs a Client. minDelay is the debounce window below
// which repeated presses of the same key are suppressed;
// ignoreKeyCoffee mirrors the source's hard-coded KEY_COFFEE ignore
// (a remote-specific quirk worked around there, carried forward here).
func NewClient(log hclog.Logger, socketPath string, minDelay time.Duration, ignoreKeyCoffee bool, onKeyPress func(string)) *Client {
	return &Client{
		log:             log.Named("lirc"),
		socketPath:      socketPath,
		minDelay:        minDelay,
		ignoreKeyCoffee: ignoreKeyCoffee,
		onKeyPress:      onKeyPress,
	}
}

// Run connects to the lircd socket and serves events until ctx is
// cancelled, reconnecting after reconnectDelay whenever the connection
// drops (spec.md §4.6 "reconnect-with-1s-sleep loop").
func (c *Client) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.connectAndServe(ctx); err != nil {
			c.log.Warn("lirc connection lost", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (c *Client) connectAndServe(ctx context.Context) error {
	conn, err := net.Dial("unix", c.socketPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		event, err := ParseLine(scanner.Text())
		if err != nil {
			c.log.Debug("ignoring malformed lirc line", "error", err)
			continue
		}
		c.handle(event)
	}
	return scanner.Err()
}

func (c *Client) handle(event Event) {
	if c.ignoreKeyCoffee && event.KeyName == "KEY_COFFEE" {
		return
	}

	c.mu.Lock()
	now := time.Now()
	debounced := event.KeyName == c.lastKey &&
		now.Sub(c.lastTime) < c.minDelay
	if !debounced {
		c.lastKey = event.KeyName
		c.lastTime = now
	}
	c.mu.Unlock()

	if debounced {
		return
	}
	// Dispatch asynchronously so a slow action handler never stalls the
	// scanner loop (spec.md §4.6).
	go c.onKeyPress(event.KeyName)
}
