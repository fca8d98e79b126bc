// Package control serves the gRPC control port: standard health checking
// for the scheduling stream and its providers, plus server reflection.
package control

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"scm-scheduler/src/interfaces"
	"scm-scheduler/src/logger"

	"cloud.google.com/go/civil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// Health service names
const (
	ServiceStream   = "scheduling.DateRangeStream"
	providerService = "scheduling.provider."
)

// ProviderService is the health service name of one provider.
func ProviderService(name string) string {
	return providerService + name
}

// -----------------------------------------------------------------------------

// ControlService owns the gRPC server and its health registry.
type ControlService struct {
	Addr   string
	Logger *logger.Logger

	server    *grpc.Server
	health    *health.Server
	providers []interfaces.IRowProvider

	mu       sync.Mutex
	listener net.Listener
}

// -----------------------------------------------------------------------------

// NewControlService registers health and reflection. Every service starts as
// NOT_SERVING until Start (stream) or the first provider check.
func NewControlService(host string, port int, providers []interfaces.IRowProvider, log *logger.Logger) *ControlService {
	s := &ControlService{
		Addr:      fmt.Sprintf("%s:%d", host, port),
		Logger:    log,
		server:    grpc.NewServer(),
		health:    health.NewServer(),
		providers: providers,
	}

	healthpb.RegisterHealthServer(s.server, s.health)
	reflection.Register(s.server)

	s.health.SetServingStatus(ServiceStream, healthpb.HealthCheckResponse_NOT_SERVING)
	for _, p := range providers {
		s.health.SetServingStatus(ProviderService(p.Name()), healthpb.HealthCheckResponse_NOT_SERVING)
	}
	return s
}

// -----------------------------------------------------------------------------

// Listen binds the control port. Port 0 picks a free one (see Addr).
func (s *ControlService) Listen() error {
	lis, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC: %w", err)
	}

	s.mu.Lock()
	s.listener = lis
	s.Addr = lis.Addr().String()
	s.mu.Unlock()
	return nil
}

// -----------------------------------------------------------------------------

// Start serves until Stop. It listens first when Listen was not called.
func (s *ControlService) Start() error {
	s.mu.Lock()
	lis := s.listener
	s.mu.Unlock()

	if lis == nil {
		if err := s.Listen(); err != nil {
			return err
		}
		s.mu.Lock()
		lis = s.listener
		s.mu.Unlock()
	}

	s.health.SetServingStatus(ServiceStream, healthpb.HealthCheckResponse_SERVING)
	s.Logger.Info("Starting gRPC Control Server on %s", s.Addr)
	return s.server.Serve(lis)
}

// -----------------------------------------------------------------------------

// Stop reports NOT_SERVING to watchers, then drains the server.
func (s *ControlService) Stop() error {
	s.health.Shutdown()
	s.server.GracefulStop()

	// A listener bound without Start is not owned by the grpc server
	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()
	s.Logger.Info("gRPC Control Server stopped")
	return nil
}

// -----------------------------------------------------------------------------

// CheckProviders reads one date from every provider and records the outcome
// as its health status.
func (s *ControlService) CheckProviders(ctx context.Context, date civil.Date) map[string]error {
	results := make(map[string]error, len(s.providers))
	for _, p := range s.providers {
		_, err := p.RowsFor(ctx, date)
		results[p.Name()] = err

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			s.Logger.Warning("Provider %s check failed: %v", p.Name(), err)
		}
		s.health.SetServingStatus(ProviderService(p.Name()), status)
	}
	return results
}

// -----------------------------------------------------------------------------

// RunChecks checks providers every period until ctx is done.
func (s *ControlService) RunChecks(ctx context.Context, period time.Duration) {
	check := func() {
		pctx, cancel := context.WithTimeout(ctx, period)
		defer cancel()
		s.CheckProviders(pctx, civil.DateOf(time.Now()))
	}

	check()
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
