package daemon

import (
	"context"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Guanran928/upower-notify/pkg/battery"
	"github.com/Guanran928/upower-notify/pkg/config"
	"github.com/Guanran928/upower-notify/pkg/events"
)

// Source is the power-property feed driving the monitor. Implementations
// own their transport (bus subscription, polling) including any reconnect
// handling; Run returning an error means the feed is gone for good.
type Source interface {
	// Current reads a full property snapshot, used to seed the monitor.
	Current(ctx context.Context) (battery.Update, error)
	// Updates is the stream of property changes while Run is active.
	Updates() <-chan battery.Update
	// Run pumps updates until ctx is canceled or the source fails fatally.
	Run(ctx context.Context) error
}

// Monitor runs the battery pipeline: each received update is normalized,
// checked for a transition, matched against the rule list and dispatched,
// strictly one update at a time. MonitorState is touched only by Run's
// goroutine; the read-side snapshot for the API is kept separately under a
// lock.
type Monitor struct {
	conf   *config.Config
	source Source
	norm   *battery.Normalizer
	disp   *Dispatcher
	hub    *events.Hub

	state MonitorState

	mu      sync.RWMutex
	current battery.Status
	seeded  bool
}

func NewMonitor(conf *config.Config, source Source, disp *Dispatcher, hub *events.Hub) *Monitor {
	return &Monitor{
		conf:   conf,
		source: source,
		norm:   battery.NewNormalizer(),
		disp:   disp,
		hub:    hub,
	}
}

// Status returns the latest snapshot for API consumers. ok is false until
// the monitor has been seeded.
func (m *Monitor) Status() (st battery.Status, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current, m.seeded
}

// Run seeds the monitor state from the current device properties, then
// processes updates until ctx is canceled. It returns an error only when
// seeding fails or the source is lost beyond its retry budget.
func (m *Monitor) Run(ctx context.Context) error {
	logrus.Debug("seeding monitor state from current battery properties")

	cur, err := m.source.Current(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to read initial battery status")
	}

	st := m.norm.Apply(cur, time.Now())
	m.state.Last = st
	m.setCurrent(st)

	logrus.WithFields(logrus.Fields{
		"percentage": st.Percentage,
		"state":      st.State.String(),
	}).Info("battery monitor running")

	srcErr := make(chan error, 1)
	go func() {
		srcErr <- m.source.Run(ctx)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-srcErr:
			if err != nil {
				return pkgerrors.Wrap(err, "battery event subscription lost")
			}
			return nil
		case u := <-m.source.Updates():
			m.handle(ctx, u)
		}
	}
}

// handle runs one update through the full pipeline and updates the monitor
// state regardless of whether a transition fired.
func (m *Monitor) handle(ctx context.Context, u battery.Update) {
	st := m.norm.Apply(u, time.Now())

	if tr := detect(&m.state, st, m.conf.Thresholds); tr != nil {
		logrus.WithFields(logrus.Fields{
			"transition": tr.Kind,
			"percentage": st.Percentage,
			"state":      st.State.String(),
		}).Info("battery transition")

		m.hub.Publish(events.BatteryTransition, events.NewTransitionEvent(*tr))

		if r := matchRule(m.conf.Rules, *tr); r != nil {
			m.disp.Dispatch(ctx, r, *tr)
		} else {
			logrus.WithField("transition", tr.Kind).Debug("no rule matched")
		}
	}

	m.state.Last = st
	m.setCurrent(st)
}

func (m *Monitor) setCurrent(st battery.Status) {
	m.mu.Lock()
	m.current = st
	m.seeded = true
	m.mu.Unlock()

	m.hub.Publish(events.BatteryStatus, events.NewStatusEvent(st))
}
