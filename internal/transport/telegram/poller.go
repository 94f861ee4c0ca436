package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"surveybot/internal/logger"
)

// UpdateSource is the long polling part of *tgbotapi.BotAPI
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// UpdateHandler processes one update
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// Poller receives updates with getUpdates. Updates of one respondent are handled in
// arrival order; different respondents run in parallel.
type Poller struct {
	source  UpdateSource
	handler UpdateHandler
	timeout int
	logger  *logger.Logger
}

// NewPoller creates a poller; timeout is the long polling timeout in seconds
func NewPoller(source UpdateSource, handler UpdateHandler, timeout int, log *logger.Logger) *Poller {
	return &Poller{source: source, handler: handler, timeout: timeout, logger: log}
}

// Run polls until ctx is cancelled, then waits for in-flight updates
func (p *Poller) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.timeout
	updates := p.source.GetUpdatesChan(cfg)

	d := newDispatcher(func(u tgbotapi.Update) {
		p.handler.HandleUpdate(ctx, u)
	})
	defer d.wait()

	p.logger.Info("Polling for Telegram updates", zap.Int("timeout", p.timeout))
	for {
		select {
		case <-ctx.Done():
			p.source.StopReceivingUpdates()
			p.logger.Info("Stopped polling")
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			d.dispatch(RespondentKey(u), u)
		}
	}
}

// dispatcher runs one drain goroutine per respondent with queued updates
type dispatcher struct {
	mu     sync.Mutex
	queues map[int64][]tgbotapi.Update
	handle func(tgbotapi.Update)
	wg     sync.WaitGroup
}

func newDispatcher(handle func(tgbotapi.Update)) *dispatcher {
	return &dispatcher{queues: make(map[int64][]tgbotapi.Update), handle: handle}
}

func (d *dispatcher) dispatch(key int64, u tgbotapi.Update) {
	d.mu.Lock()
	q, running := d.queues[key]
	d.queues[key] = append(q, u)
	d.mu.Unlock()
	if running {
		return
	}
	d.wg.Add(1)
	go d.drain(key)
}

func (d *dispatcher) drain(key int64) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		q := d.queues[key]
		if len(q) == 0 {
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		u := q[0]
		d.queues[key] = q[1:]
		d.mu.Unlock()

		d.handle(u)
	}
}

func (d *dispatcher) wait() {
	d.wg.Wait()
}
