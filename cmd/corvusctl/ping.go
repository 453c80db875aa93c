package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/corvusdb/corvus-go/pkg/driver"
	"github.com/corvusdb/corvus-go/pkg/transport"
	"github.com/corvusdb/corvus-go/pkg/wire"
)

func pingCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Ping a node and report round-trip time",
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

			ctx, cancel := context.WithTimeout(cmd.Context(), config.Timeout)
			defer cancel()

			conn, err := factory.Create(ctx, driver.NewAddress(config.Addr))
			if err != nil {
				return err
			}
			defer conn.Close()

			for i := 0; i < count; i++ {
				ping, err := wire.NewCommand(map[string]any{"ping": 1})
				if err != nil {
					return err
				}

				start := time.Now()
				reply, err := conn.SendAndReceiveMessage(ctx, ping)
				if err != nil {
					return err
				}

				var status wire.CommandStatus
				if err := reply.Decode(&status); err != nil {
					return err
				}
				if status.OK != 1 {
					return fmt.Errorf("ping rejected: %s", status.ErrMsg)
				}

				fmt.Printf("reply from %s: seq=%d time=%s\n",
					config.Addr, i+1, time.Since(start).Round(time.Microsecond))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&count, "count", 1, "Number of pings to send")
	return cmd
}
