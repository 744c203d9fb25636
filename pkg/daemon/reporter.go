package daemon

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Guanran928/upower-notify/pkg/battery"
	"github.com/Guanran928/upower-notify/pkg/config"
)

// StatusFunc returns the latest battery snapshot, with ok false while the
// monitor has not been seeded yet.
type StatusFunc func() (battery.Status, bool)

// Reporter delivers cron-scheduled status notifications independently of
// the transition pipeline. One goroutine per schedule; delivery failures
// are logged and the schedule keeps running.
type Reporter struct {
	reports []config.Report
	status  StatusFunc
	disp    *Dispatcher

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func NewReporter(reports []config.Report, status StatusFunc, disp *Dispatcher) *Reporter {
	return &Reporter{
		reports: reports,
		status:  status,
		disp:    disp,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the schedules. Schedules were validated at config load;
// one failing to parse here is a programming error and is skipped loudly.
func (r *Reporter) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running || len(r.reports) == 0 {
		return
	}
	r.running = true

	for i := range r.reports {
		rep := r.reports[i]
		schedule, err := config.ReportScheduleParser.Parse(rep.Schedule)
		if err != nil {
			logrus.Errorf("skipping report with unparseable schedule %q: %v", rep.Schedule, err)
			continue
		}
		go r.runSchedule(schedule, rep)
	}

	logrus.WithField("reports", len(r.reports)).Debug("reporter started")
}

func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.running = false
	close(r.stopCh)
	logrus.Debug("reporter stopped")
}

func (r *Reporter) runSchedule(schedule cron.Schedule, rep config.Report) {
	for {
		next := schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))

		select {
		case <-r.stopCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		st, ok := r.status()
		if !ok {
			logrus.Debug("skipping report, no battery status yet")
			continue
		}

		logrus.WithFields(logrus.Fields{
			"schedule":   rep.Schedule,
			"percentage": st.Percentage,
		}).Debug("sending scheduled report")

		if err := r.disp.Report(&rep.Notify, st); err != nil {
			logrus.Errorf("scheduled report failed: %v", err)
		}
	}
}
