package main

import (
	"context"
	"fmt"
	"time"

	"scm-scheduler/src/control"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func newHealthCmd() *cobra.Command {
	var addr string
	var service string
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query the gRPC health of a running scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			status, err := control.Check(ctx, addr, service)
			if err != nil {
				return fmt.Errorf("health check %s: %w", addr, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", displayService(service), status)
			if status != healthpb.HealthCheckResponse_SERVING {
				return fmt.Errorf("%s is %s", displayService(service), status)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:50051", "control port address")
	cmd.Flags().StringVar(&service, "service", control.ServiceStream, "health service name (empty for the whole server)")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "request timeout")

	return cmd
}

func displayService(service string) string {
	if service == "" {
		return "server"
	}
	return service
}
