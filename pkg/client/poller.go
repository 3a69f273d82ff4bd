package client

import (
	"context"
	"time"
)

// DefaultPollInterval matches the browser fallback cadence.
const DefaultPollInterval = 3 * time.Second

// Poller periodically pulls new messages into a ChatView when the socket is
// unavailable. Each sweep asks only for messages after the view's newest
// confirmed id; ChatView.Apply makes redundant sweeps harmless.
type Poller struct {
	client   *Client
	chatId   string
	view     *ChatView
	interval time.Duration

	// OnError observes sweep failures; polling continues regardless.
	OnError func(error)
}

func NewPoller(client *Client, chatId string, view *ChatView) *Poller {
	return &Poller{
		client:   client,
		chatId:   chatId,
		view:     view,
		interval: DefaultPollInterval,
	}
}

func (p *Poller) WithInterval(interval time.Duration) *Poller {
	p.interval = interval
	return p
}

// Run blocks, sweeping until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Sweep(ctx)
		}
	}
}

// Sweep performs one fetch-and-merge pass.
func (p *Poller) Sweep(ctx context.Context) {
	batch, err := p.client.FetchMessages(ctx, p.chatId, p.view.LastId())
	if err != nil {
		if p.OnError != nil {
			p.OnError(err)
		}
		return
	}
	p.view.Apply(batch)
}
