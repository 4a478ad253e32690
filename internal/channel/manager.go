package channel

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/stellarlinkco/mytodo/internal/bus"
	"github.com/stellarlinkco/mytodo/internal/config"
	"github.com/stellarlinkco/mytodo/internal/notify"
	"go.uber.org/zap"
)

// ManagerOptions carries the injectable parts of the manager.
type ManagerOptions struct {
	Stdout     io.Writer
	BotFactory BotFactory
	Logger     *zap.Logger
}

type ChannelManager struct {
	channels map[string]Channel
	bus      *bus.AlertBus
	webui    *WebUIChannel
	logger   *zap.Logger
}

// NewChannelManager builds the enabled channels and subscribes each of them
// to the alert bus.
func NewChannelManager(cfg config.ChannelsConfig, b *bus.AlertBus, opts ManagerOptions) (*ChannelManager, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.BotFactory == nil {
		opts.BotFactory = defaultBotFactory
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	m := &ChannelManager{
		channels: make(map[string]Channel),
		bus:      b,
		logger:   opts.Logger,
	}

	if cfg.Console.Enabled {
		m.add(NewConsoleChannel(opts.Stdout))
	}

	if cfg.Telegram.Enabled {
		ch, err := NewTelegramChannelWithFactory(cfg.Telegram, opts.Logger.Named("telegram"), opts.BotFactory)
		if err != nil {
			return nil, fmt.Errorf("init telegram channel: %w", err)
		}
		m.add(ch)
	}

	if cfg.WebUI.Enabled {
		m.webui = NewWebUIChannel(opts.Logger.Named("webui"))
		m.add(m.webui)
	}

	return m, nil
}

func (m *ChannelManager) add(ch Channel) {
	m.channels[ch.Name()] = ch
	m.bus.Subscribe(ch.Name(), func(a notify.Alert) {
		if err := ch.Deliver(a); err != nil {
			m.logger.Warn("deliver alert failed", zap.String("channel", ch.Name()), zap.Error(err))
		}
	})
}

// WebUI returns the web UI channel, or nil when it is disabled.
func (m *ChannelManager) WebUI() *WebUIChannel {
	return m.webui
}

func (m *ChannelManager) StartAll(ctx context.Context) error {
	var wg sync.WaitGroup
	errCh := make(chan error, len(m.channels))

	for name, ch := range m.channels {
		wg.Add(1)
		go func(name string, ch Channel) {
			defer wg.Done()
			m.logger.Info("starting channel", zap.String("channel", name))
			if err := ch.Start(ctx); err != nil {
				errCh <- fmt.Errorf("%s: %w", name, err)
			}
		}(name, ch)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		return err
	}
	return nil
}

func (m *ChannelManager) StopAll() error {
	for name, ch := range m.channels {
		m.logger.Info("stopping channel", zap.String("channel", name))
		m.bus.Unsubscribe(name)
		if err := ch.Stop(); err != nil {
			m.logger.Warn("error stopping channel", zap.String("channel", name), zap.Error(err))
		}
	}
	return nil
}

func (m *ChannelManager) EnabledChannels() []string {
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	return names
}
