package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/oremband/oremband/pkg/calendar"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// NewResyncScheduler reloads the shared calendar on schedule so that changes
// missed by the change feed eventually show up.
func NewResyncScheduler(ctx context.Context, schedule string, controller *calendar.Controller) (*cron.Cron, error) {
	scheduler := cron.New()
	if schedule == "" {
		return scheduler, nil
	}
	_, err := scheduler.AddFunc(schedule, func() {
		if err := controller.Refresh(ctx); err != nil && !errors.Is(err, calendar.ErrLoadInProgress) {
			log.Warnf("scheduled calendar resync failed: %v", err)
			return
		}
		log.Debug("scheduled calendar resync done")
	})
	if err != nil {
		return nil, fmt.Errorf("invalid calendar resync schedule %q: %w", schedule, err)
	}
	return scheduler, nil
}
