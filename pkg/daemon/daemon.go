package daemon

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Guanran928/upower-notify/pkg/config"
	"github.com/Guanran928/upower-notify/pkg/events"
	"github.com/Guanran928/upower-notify/pkg/notify"
	"github.com/Guanran928/upower-notify/pkg/upower"
)

// Run starts the daemon in the foreground: loads the config, connects the
// notifier and battery source, optionally serves the observability API on
// apiSocketPath, and monitors until a shutdown signal or a fatal
// subscription loss. The returned error is nil on graceful shutdown.
func Run(configPath, apiSocketPath string) error {
	conf, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logrus.WithFields(conf.LogrusFields()).Info("config loaded")

	notifier, err := notify.NewDBus(conf.AppName)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to connect to notification service")
	}
	defer func() {
		if err := notifier.Close(); err != nil {
			logrus.Errorf("failed to close notifier: %v", err)
		}
	}()

	var source Source
	switch conf.Source {
	case config.SourcePoll:
		source = upower.NewPoller(time.Duration(conf.PollInterval) * time.Second)
	default:
		source = upower.NewWatcher(conf.Device)
	}

	hub := events.NewHub()
	disp := NewDispatcher(notifier, time.Duration(conf.CommandTimeout)*time.Second)
	mon := NewMonitor(conf, source, disp, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var srv *http.Server
	if apiSocketPath != "" {
		srv, err = serveAPI(apiSocketPath, mon, conf, hub)
		if err != nil {
			return err
		}
	}

	reporter := NewReporter(conf.Reports, mon.Status, disp)
	reporter.Start()
	defer reporter.Stop()

	runErr := make(chan error, 1)
	go func() {
		runErr <- mon.Run(ctx)
	}()

	// Handle common process-killing signals, so we can gracefully shut down.
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigc:
		logrus.Infof("caught signal %q: shutting down", sig)
		cancel()
		<-runErr
		shutdownAPI(srv)
		logrus.Info("exiting")
		return nil
	case err := <-runErr:
		shutdownAPI(srv)
		return err
	}
}

func serveAPI(socketPath string, mon *Monitor, conf *config.Config, hub *events.Hub) (*http.Server, error) {
	router := setupRoutes(mon, conf, hub)
	srv := &http.Server{Handler: router}

	// A previous unclean exit can leave the socket behind.
	_ = os.Remove(socketPath)

	l, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to listen on %s", socketPath)
	}

	go func() {
		logrus.Infof("api server listening on %s", l.Addr().String())
		if err := srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("api server failed: %v", err)
		}
	}()

	return srv, nil
}

func shutdownAPI(srv *http.Server) {
	if srv == nil {
		return
	}
	logrus.Info("shutting down api server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("failed to shut down api server: %v", err)
	}
}
