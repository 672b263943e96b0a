// Package systemd wraps sd_notify for daemon mode: readiness, watchdog
// keepalive and stopping notifications. Outside a systemd unit every
// call is a no-op.
package systemd

import (
	"context"
	"time"

	sd "github.com/coreos/go-systemd/v22/daemon"
)

// NotifyReady tells the service manager startup is complete.
func NotifyReady() {
	_, _ = sd.SdNotify(false, sd.SdNotifyReady)
}

// NotifyStopping tells the service manager shutdown has begun.
func NotifyStopping() {
	_, _ = sd.SdNotify(false, sd.SdNotifyStopping)
}

// WatchdogLoop sends keepalives at half the configured WatchdogSec
// interval until ctx is canceled. Returns immediately when the unit has
// no watchdog configured.
func WatchdogLoop(ctx context.Context) {
	interval, err := sd.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = sd.SdNotify(false, sd.SdNotifyWatchdog)
		}
	}
}
