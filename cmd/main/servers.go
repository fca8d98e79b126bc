package main

import (
	"context"
	"time"

	"scm-scheduler/src/config"
	"scm-scheduler/src/control"
	"scm-scheduler/src/interfaces"
	"scm-scheduler/src/logger"
	"scm-scheduler/src/server"
)

const providerCheckPeriod = time.Minute

// -----------------------------------------------------------------------------

// runServers starts the HTTP/WebSocket server and the gRPC control server,
// and stops both when ctx is done or either fails.
func runServers(ctx context.Context, app *App, conf *config.Config, appLogger *logger.Logger) error {
	srv := server.NewAPIServer(conf, app.Aggregator, app.Providers.Names(), appLogger.Named("APIServer"))
	ctl := control.NewControlService(conf.GrpcHost, conf.GrpcPort, app.Providers.GetAllProviders(), appLogger.Named("ControlService"))

	servers := []interfaces.IServer{srv, ctl}
	errs := make(chan error, len(servers))
	for _, s := range servers {
		go func(s interfaces.IServer) {
			errs <- s.Start()
		}(s)
	}

	checkCtx, cancelChecks := context.WithCancel(ctx)
	defer cancelChecks()
	go ctl.RunChecks(checkCtx, providerCheckPeriod)

	var err error
	select {
	case <-ctx.Done():
		appLogger.Info("Shutdown signal received")
	case err = <-errs:
	}

	for _, s := range servers {
		if stopErr := s.Stop(); stopErr != nil {
			appLogger.Warning("Stop failed: %v", stopErr)
		}
	}
	return err
}
