package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errNoBroker = errors.New("worker requires REDIS_ADDR: without a broker notifications are delivered inline by serve")

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume the notification queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cleanup, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			runner := c.NewRunner()
			if runner == nil {
				return errNoBroker
			}
			c.Logger.Info("notification worker starting", zap.String("stream", c.Queue.Config().Stream))
			return runner.Run(cmd.Context())
		},
	}
}
