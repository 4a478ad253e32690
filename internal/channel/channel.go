// Package channel delivers fired alerts to the user: the console, a Telegram
// chat and connected web UI clients.
package channel

import (
	"context"

	"github.com/stellarlinkco/mytodo/internal/notify"
)

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Deliver(a notify.Alert) error
}
