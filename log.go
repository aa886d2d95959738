// SPDX-License-Identifier: EPL-2.0

package audspace

import (
	"sync/atomic"
	"time"

	"github.com/decred/slog"
	"golang.org/x/time/rate"
)

// dropWarnInterval is the minimum gap between "no voice" warnings.
const dropWarnInterval = time.Second

// dropLog rate limits the warning logged when a play request finds no free
// voice, counting what it suppressed in between.
type dropLog struct {
	log        slog.Logger
	lim        *rate.Limiter
	suppressed atomic.Int64
}

func newDropLog(log slog.Logger) *dropLog {
	return &dropLog{
		log: log,
		lim: rate.NewLimiter(rate.Every(dropWarnInterval), 1),
	}
}

func (d *dropLog) dropped(pool PoolID, path string) {
	if !d.lim.Allow() {
		d.suppressed.Add(1)
		return
	}

	if n := d.suppressed.Swap(0); n > 0 {
		d.log.Warnf("No free voice in the %s pool for %q (%d more dropped)", pool, path, n)
		return
	}
	d.log.Warnf("No free voice in the %s pool for %q", pool, path)
}
