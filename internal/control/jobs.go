package control

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// phaseJob adapts a Pipeline phase method to the scheduler.Job interface.
type phaseJob struct {
	name string
	fn   func(ctx context.Context) error
}

func (j phaseJob) Name() string { return j.name }
func (j phaseJob) Run() error   { return j.fn(context.Background()) }

// monitorJob adapts the Monitor's tick to the scheduler.Job interface, recording the
// tick time onto the Surface for status reporting.
type monitorJob struct {
	surface *Surface
}

func (j monitorJob) Name() string { return "monitor-tick" }
func (j monitorJob) Run() error {
	j.surface.monitor.Tick()
	j.surface.lastTick = j.surface.clock.Now()
	return nil
}

// dailyCron converts an "HH:MM" local-time string into a seconds-precision cron
// expression firing once on each weekday, matching the robfig/cron WithSeconds layout
// the Scheduler is configured with.
func dailyCron(hhmm string) (string, error) {
	parts := strings.Split(hhmm, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid HH:MM time %q", hhmm)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return "", fmt.Errorf("invalid hour in %q: %w", hhmm, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", fmt.Errorf("invalid minute in %q: %w", hhmm, err)
	}
	return fmt.Sprintf("0 %d %d * * 1-5", minute, hour), nil
}
