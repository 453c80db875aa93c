package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/corvusdb/corvus-go/pkg/driver"
	"github.com/corvusdb/corvus-go/pkg/metrics"
	"github.com/corvusdb/corvus-go/pkg/transport"
)

// printingListener writes every state change to stdout.
type printingListener struct{}

func (printingListener) DescriptionUpdated(d *driver.Description) {
	fmt.Printf("%s  role=%s hosts=%v\n", time.Now().Format(time.RFC3339), d.Role, d.Hosts)
}

func (printingListener) Error(err error) {
	fmt.Printf("%s  probe failed: %v\n", time.Now().Format(time.RFC3339), err)
}

func watchCmd() *cobra.Command {
	var (
		interval    time.Duration
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a node's state changes until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			factory, err := transport.NewFactory(config.transportConfig())
			if err != nil {
				return err
			}

			address := driver.NewAddress(config.Addr)
			serverConfig := driver.ServerConfig{HeartbeatInterval: interval}

			var stateMetrics *metrics.StateMetricsListener
			if metricsAddr != "" {
				poolMetrics := metrics.NewPoolMetricsObserver(metrics.PoolMetricsObserverConfig{
					PoolName: address.String(),
				})
				serverConfig.Pool.Observer = poolMetrics
				stateMetrics = metrics.NewStateMetricsListener()

				exporter := metrics.NewPrometheusExporter("corvus")
				exporter.AddPool(poolMetrics)
				exporter.AddServerState(address.String(), stateMetrics)
				go func() {
					if err := exporter.Serve(metricsAddr); err != nil {
						fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
					}
				}()
			}

			scheduler := driver.NewTickerScheduler()
			server, err := driver.NewServer(address, factory, nil, scheduler, serverConfig)
			if err != nil {
				return err
			}

			server.AddChangeListener(printingListener{})
			if stateMetrics != nil {
				server.AddChangeListener(stateMetrics)
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			err = server.Close()
			scheduler.Close()
			return err
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Probe interval")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Expose Prometheus metrics on this address")
	return cmd
}
