package jobs

import (
	"context"
	"time"

	"github.com/triggah61/acent-messenger-backend/internal/config"
	"github.com/triggah61/acent-messenger-backend/pkg/logger"
)

// OtpExpirer is the part of the OTP service the sweeper needs.
type OtpExpirer interface {
	ExpireStale(ctx context.Context) (int64, error)
}

// StartOtpExpiryJob moves pending OTP traces past their expiry to expired
// every OTP_SWEEP_INTERVAL until ctx is cancelled. The returned channel is
// closed once the loop exits.
func StartOtpExpiryJob(ctx context.Context, cfg *config.Config, otps OtpExpirer) <-chan struct{} {
	done := make(chan struct{})
	if otps == nil {
		logger.Warn().Msg("OTP expiry job disabled: no OTP service")
		close(done)
		return done
	}
	interval := cfg.OTPSweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	log := logger.Component("otp_expiry")

	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tickCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				n, err := otps.ExpireStale(tickCtx)
				cancel()
				if err != nil {
					log.Error().Err(err).Msg("OTP expiry sweep failed")
					continue
				}
				if n > 0 {
					log.Info().Int64("expired", n).Msg("Expired stale OTP traces")
				}
			}
		}
	}()
	return done
}
