package upower

import (
	"context"
	"time"

	dbattery "github.com/distatus/battery"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Guanran928/upower-notify/pkg/battery"
)

// Poller is an alternative property source for machines without a usable
// system bus: it samples the OS battery interface on a fixed interval and
// synthesizes full updates in the same shape the D-Bus watcher produces.
type Poller struct {
	interval time.Duration
	updates  chan battery.Update

	// read is swappable for tests.
	read func() (battery.Update, error)
}

func NewPoller(interval time.Duration) *Poller {
	return &Poller{
		interval: interval,
		updates:  make(chan battery.Update, 16),
		read:     readFirstBattery,
	}
}

func (p *Poller) Updates() <-chan battery.Update {
	return p.updates
}

func (p *Poller) Current(_ context.Context) (battery.Update, error) {
	return p.read()
}

// Run samples the battery until ctx is canceled. A failed sample is logged
// and skipped; the next tick tries again.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			u, err := p.read()
			if err != nil {
				logrus.Errorf("failed to read battery: %v", err)
				continue
			}
			select {
			case p.updates <- u:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func readFirstBattery() (battery.Update, error) {
	bats, err := dbattery.GetAll()
	if err != nil {
		return battery.Update{}, pkgerrors.Wrap(err, "failed to read batteries")
	}
	if len(bats) == 0 {
		return battery.Update{}, pkgerrors.New("no batteries found")
	}

	bat := bats[0]

	var pct float64
	if bat.Full > 0 {
		pct = bat.Current / bat.Full * 100
	}

	state := upowerStateOf(bat.State)

	u := battery.Update{
		Percentage: &pct,
		State:      &state,
	}

	// Rough discharge estimate from the instantaneous rate.
	if bat.State == dbattery.Discharging && bat.ChargeRate > 0 {
		tte := int64(bat.Current / bat.ChargeRate * 3600)
		u.TimeToEmpty = &tte
	}

	return u, nil
}

func upowerStateOf(s dbattery.State) uint32 {
	switch s {
	case dbattery.Charging:
		return battery.UPowerStateCharging
	case dbattery.Discharging:
		return battery.UPowerStateDischarging
	case dbattery.Full:
		return battery.UPowerStateFullyCharged
	case dbattery.Empty:
		return battery.UPowerStateEmpty
	default:
		return battery.UPowerStateUnknown
	}
}
