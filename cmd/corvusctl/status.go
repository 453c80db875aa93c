package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/corvusdb/corvus-go/pkg/driver"
	"github.com/corvusdb/corvus-go/pkg/transport"
	"github.com/corvusdb/corvus-go/pkg/wire"
)

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Probe a node once and print its description",
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

			address := driver.NewAddress(config.Addr)
			conn, err := factory.Create(ctx, address)
			if err != nil {
				return err
			}
			defer conn.Close()

			hello, err := wire.NewCommand(wire.HelloCommand())
			if err != nil {
				return err
			}
			reply, err := conn.SendAndReceiveMessage(ctx, hello)
			if err != nil {
				return err
			}

			var result wire.HelloResult
			if err := reply.Decode(&result); err != nil {
				return err
			}
			if result.OK != 1 {
				return fmt.Errorf("hello rejected: %s", result.ErrMsg)
			}

			out := map[string]any{
				"address": address.String(),
				"role":    result.Role,
			}
			if len(result.Hosts) > 0 {
				out["hosts"] = result.Hosts
			}
			if len(result.Tags) > 0 {
				out["tags"] = result.Tags
			}
			if result.MaxMessageSize > 0 {
				out["maxMessageSizeBytes"] = result.MaxMessageSize
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	return cmd
}
