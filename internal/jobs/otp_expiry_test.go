package jobs

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/triggah61/acent-messenger-backend/internal/config"
)

type countingExpirer struct {
	calls atomic.Int32
}

func (c *countingExpirer) ExpireStale(context.Context) (int64, error) {
	c.calls.Add(1)
	return 1, nil
}

func TestOtpExpiryJobSweepsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	expirer := &countingExpirer{}

	done := StartOtpExpiryJob(ctx, &config.Config{OTPSweepInterval: 5 * time.Millisecond}, expirer)

	assert.Eventually(t, func() bool { return expirer.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not stop after cancel")
	}
}

func TestOtpExpiryJobWithoutService(t *testing.T) {
	done := StartOtpExpiryJob(context.Background(), &config.Config{}, nil)
	_, open := <-done
	assert.False(t, open)
}
