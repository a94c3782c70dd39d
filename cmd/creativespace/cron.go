package main

import (
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// schedulePurge registers the expired stories purge on the given schedule.
// An empty schedule disables the job: expired stories are then only dropped on the next write.
func schedulePurge(quartz *cron.Cron, schedule string, purge func() (int, error), l logrus.FieldLogger) (bool, error) {
	if schedule == "" {
		return false, nil
	}

	_, err := quartz.AddFunc(schedule, func() {
		n, err := purge()
		if err != nil {
			l.Errorf("could not purge stories: %+v", err)
			return
		}
		if n > 0 {
			l.WithField("count", n).Info("expired stories purged")
		}
	})
	if err != nil {
		return false, errors.Wrap(err, "invalid stories.purge schedule")
	}
	return true, nil
}
