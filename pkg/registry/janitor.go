package registry

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Janitor periodically removes mirrors whose endpoints the push service
// reported gone. A dead mirror is harmless but wastes delivery attempts.
type Janitor struct {
	store Store
	cron  *cron.Cron
}

// NewJanitor schedules a sweep per the cron expression.
func NewJanitor(store Store, schedule string) (*Janitor, error) {
	j := &Janitor{store: store, cron: cron.New()}
	if _, err := j.cron.AddFunc(schedule, j.Sweep); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start begins the schedule.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule, waiting for a running sweep.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Sweep deletes inactive mirrors once.
func (j *Janitor) Sweep() {
	removed, err := j.store.DeleteInactive(context.Background())
	if err != nil {
		log.Printf("registry: janitor sweep failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("registry: janitor removed %d dead subscriptions", removed)
	}
}
