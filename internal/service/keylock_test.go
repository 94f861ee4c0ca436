package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"surveybot/internal/model"
)

func TestKeyedLocker_SerializesSameKey(t *testing.T) {
	l := NewKeyedLocker()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := l.Lock(1)
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			counter++
			time.Sleep(100 * time.Microsecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, l.Active())
}

func TestKeyedLocker_IndependentKeys(t *testing.T) {
	l := NewKeyedLocker()
	unlockA := l.Lock(1)
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := l.Lock(model.RespondentID(2))
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different respondent blocked")
	}
	assert.Equal(t, 1, l.Active())
}
