package channel

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/tokosegar/tokobot/internal/bus"
	"github.com/tokosegar/tokobot/internal/config"
)

// ChannelManager owns every enabled channel and wires each one to the
// outbound side of the bus.
type ChannelManager struct {
	channels map[string]Channel
	bus      *bus.MessageBus
}

func NewChannelManager(cfg config.ChannelsConfig, locale string, b *bus.MessageBus) (*ChannelManager, error) {
	m := &ChannelManager{
		channels: make(map[string]Channel),
		bus:      b,
	}

	if cfg.Telegram.Enabled {
		ch, err := NewTelegramChannel(cfg.Telegram, locale, b)
		if err != nil {
			return nil, fmt.Errorf("init telegram channel: %w", err)
		}
		m.register(ch)
	}

	return m, nil
}

func (m *ChannelManager) register(ch Channel) {
	m.channels[ch.Name()] = ch
	m.bus.SubscribeOutbound(ch.Name(), func(msg bus.OutboundMessage) {
		if err := ch.Send(msg); err != nil {
			log.Printf("[channel-mgr] send to %s failed: %v", ch.Name(), err)
		}
	})
}

// StartAll starts every registered channel, waits for all of them to come
// up and reports the first startup failure.
func (m *ChannelManager) StartAll(ctx context.Context) error {
	errCh := make(chan error, len(m.channels))

	var wg sync.WaitGroup
	for name, ch := range m.channels {
		wg.Add(1)
		go func(name string, ch Channel) {
			defer wg.Done()
			log.Printf("[channel-mgr] starting %s", name)
			if err := ch.Start(ctx); err != nil {
				errCh <- fmt.Errorf("start %s: %w", name, err)
			}
		}(name, ch)
	}
	wg.Wait()
	close(errCh)

	return <-errCh
}

// StopAll stops every channel, logging failures instead of aborting so one
// bad channel cannot block shutdown of the rest.
func (m *ChannelManager) StopAll() error {
	for name, ch := range m.channels {
		log.Printf("[channel-mgr] stopping %s", name)
		if err := ch.Stop(); err != nil {
			log.Printf("[channel-mgr] stop %s: %v", name, err)
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
