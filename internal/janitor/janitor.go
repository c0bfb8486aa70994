// Package janitor periodically removes finished print jobs that have aged
// past the retention window.
package janitor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Purger deletes finished print jobs older than retention.
type Purger interface {
	PurgePrintJobs(ctx context.Context, retention time.Duration) (int64, error)
}

// Janitor runs Purger on a fixed interval.
type Janitor struct {
	purger    Purger
	retention time.Duration
	interval  time.Duration
	log       logrus.FieldLogger
}

// New creates a Janitor. A non-positive interval yields a Janitor whose Run
// returns immediately.
func New(p Purger, retention, interval time.Duration, log logrus.FieldLogger) *Janitor {
	return &Janitor{
		purger:    p,
		retention: retention,
		interval:  interval,
		log:       log.WithField("component", "janitor"),
	}
}

// Run purges once straight away and then every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context) {
	if j.interval <= 0 {
		j.log.Info("print job janitor disabled")
		return
	}
	j.log.WithFields(logrus.Fields{
		"interval":  j.interval.String(),
		"retention": j.retention.String(),
	}).Info("starting print job janitor")

	j.PurgeOnce(ctx)

	timer := time.NewTimer(j.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("print job janitor shutting down")
			return
		case <-timer.C:
			j.PurgeOnce(ctx)
			timer.Reset(j.interval)
		}
	}
}

// PurgeOnce runs a single purge and reports how many jobs went.
func (j *Janitor) PurgeOnce(ctx context.Context) int64 {
	n, err := j.purger.PurgePrintJobs(ctx, j.retention)
	if err != nil {
		if ctx.Err() == nil {
			j.log.WithError(err).Error("purging print jobs failed")
		}
		return 0
	}
	if n > 0 {
		j.log.WithField("purged", n).Info("purged old print jobs")
	}
	return n
}
