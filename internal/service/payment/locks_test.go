package payment

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPaymentLocks_SerializesSameID(t *testing.T) {
	locks := newPaymentLocks()
	id := uuid.New()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(id)
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
}

func TestPaymentLocks_ReleasesEntries(t *testing.T) {
	locks := newPaymentLocks()

	unlock := locks.Lock(uuid.New())
	unlock()
	unlock2 := locks.Lock(uuid.New())
	unlock2()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.entries, "released locks must not accumulate")
}

func TestPaymentLocks_DistinctIDsDoNotBlock(t *testing.T) {
	locks := newPaymentLocks()

	unlockA := locks.Lock(uuid.New())
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock(uuid.New())
		unlockB()
		close(done)
	}()

	<-done
}
