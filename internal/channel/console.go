package channel

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/stellarlinkco/mytodo/internal/notify"
)

const consoleChannelName = "console"

// ConsoleChannel prints alerts as they fire.
type ConsoleChannel struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleChannel(w io.Writer) *ConsoleChannel {
	return &ConsoleChannel{w: w}
}

func (c *ConsoleChannel) Name() string                    { return consoleChannelName }
func (c *ConsoleChannel) Start(ctx context.Context) error { return nil }
func (c *ConsoleChannel) Stop() error                     { return nil }

func (c *ConsoleChannel) Deliver(a notify.Alert) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "[%s] %s\n    %s\n", a.FireAt.Local().Format("15:04"), a.Title, a.Body)
	return err
}
