package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surveybot/internal/logger"
)

type fakeSource struct {
	ch      chan tgbotapi.Update
	stopped chan struct{}
	once    sync.Once
	timeout int
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan tgbotapi.Update, 16), stopped: make(chan struct{})}
}

func (f *fakeSource) GetUpdatesChan(cfg tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	f.timeout = cfg.Timeout
	return f.ch
}

func (f *fakeSource) StopReceivingUpdates() {
	f.once.Do(func() { close(f.stopped) })
}

type orderRecorder struct {
	mu   sync.Mutex
	seen map[int64][]string
}

func (o *orderRecorder) HandleUpdate(_ context.Context, u tgbotapi.Update) {
	time.Sleep(time.Millisecond)
	o.mu.Lock()
	defer o.mu.Unlock()
	key := RespondentKey(u)
	o.seen[key] = append(o.seen[key], u.Message.Text)
}

func (o *orderRecorder) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, v := range o.seen {
		n += len(v)
	}
	return n
}

func TestPoller_KeepsPerRespondentOrder(t *testing.T) {
	src := newFakeSource()
	rec := &orderRecorder{seen: map[int64][]string{}}
	p := NewPoller(src, rec, 30, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	for _, text := range []string{"a1", "b1", "a2", "b2", "a3"} {
		user := int64(1)
		if text[0] == 'b' {
			user = 2
		}
		src.ch <- textUpdate(user, text)
	}

	assert.Eventually(t, func() bool { return rec.count() == 5 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}

	assert.Equal(t, 30, src.timeout)
	assert.Equal(t, []string{"a1", "a2", "a3"}, rec.seen[1])
	assert.Equal(t, []string{"b1", "b2"}, rec.seen[2])
	select {
	case <-src.stopped:
	default:
		t.Fatal("updates were not stopped")
	}
}
