package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newEmbedJobCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "embed-job <job-id>",
		Short: "Embed one job, match it against all resumes and notify new matches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jobID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id %q: %w", args[0], err)
			}

			c, cleanup, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := c.Matching.EmbedAndMatchJob(cmd.Context(), jobID)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
}
