package discord

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// BotScheduleI defines the interface for scheduled tasks in the bot
type BotScheduleI interface {
	// GetName returns the name of the schedule
	GetName() string
	// GetCronExpression returns the standard five-field cron expression for when this schedule should run
	GetCronExpression() string
	// Execute runs the scheduled task. A returned error is logged and the next tick runs as usual.
	Execute(ctx context.Context) error
}

// GenericBotSchedule is a generic implementation of BotScheduleI
type GenericBotSchedule struct {
	// Name is the schedule's identifier
	Name string
	// CronExpression determines when the schedule will execute
	CronExpression string
	// Handler is the function to execute on schedule
	Handler func(ctx context.Context) error
}

// GetName returns the schedule's name
func (bs *GenericBotSchedule) GetName() string {
	return bs.Name
}

// GetCronExpression returns the schedule's cron expression
func (bs *GenericBotSchedule) GetCronExpression() string {
	return bs.CronExpression
}

// Execute runs the scheduled task
func (bs *GenericBotSchedule) Execute(ctx context.Context) error {
	return bs.Handler(ctx)
}

// NewBotSchedule creates a new scheduled task with the given name, cron expression, and handler
func NewBotSchedule(name string, cronExpr string, handler func(ctx context.Context) error) BotScheduleI {
	return &GenericBotSchedule{
		Name:           name,
		CronExpression: cronExpr,
		Handler:        handler,
	}
}

// scheduleTimeout bounds a single scheduled run.
const scheduleTimeout = 2 * time.Minute

// scheduleManager handles scheduling and executing tasks
type scheduleManager struct {
	cron       *cron.Cron
	schedules  []BotScheduleI
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// newScheduleManager creates a new scheduleManager evaluating cron expressions in loc.
func newScheduleManager(schedules []BotScheduleI, loc *time.Location) *scheduleManager {
	ctx, cancel := context.WithCancel(context.Background())
	logger := cronLogger{}
	return &scheduleManager{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			// A panicking or slow run must not take down the process or overlap the next tick.
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		schedules:  schedules,
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// start initializes and starts all scheduled tasks
func (sm *scheduleManager) start() error {
	for _, schedule := range sm.schedules {
		sched := schedule
		_, err := sm.cron.AddFunc(sched.GetCronExpression(), func() {
			sm.executeSchedule(sched)
		})
		if err != nil {
			return fmt.Errorf("failed to add schedule %s: %w", sched.GetName(), err)
		}
		slog.Info("registered schedule", "name", sched.GetName(), "cron", sched.GetCronExpression())
	}

	sm.cron.Start()
	slog.Info("schedule manager started", "schedules", len(sm.schedules))
	return nil
}

// executeSchedule runs a scheduled task with a bounded context.
func (sm *scheduleManager) executeSchedule(schedule BotScheduleI) {
	slog.Debug("executing schedule", "name", schedule.GetName(), "cron", schedule.GetCronExpression())

	ctx, cancel := context.WithTimeout(sm.ctx, scheduleTimeout)
	defer cancel()

	start := time.Now()
	if err := schedule.Execute(ctx); err != nil {
		slog.Error("failed to execute schedule",
			"name", schedule.GetName(),
			"error", err)
		return
	}
	slog.Debug("schedule finished", "name", schedule.GetName(), "took", time.Since(start))
}

// stop cancels running tasks and waits for them to return.
func (sm *scheduleManager) stop() {
	sm.cancelFunc()
	<-sm.cron.Stop().Done()
	slog.Info("schedule manager stopped")
}

// cronLogger forwards robfig/cron logs to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
