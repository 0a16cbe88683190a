package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newHandoffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "handoff",
		Short: "Inspect or claim a prompt waiting for the website builder",
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a pending hand-off without claiming it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			c, err := newClient(cfg)
			if err != nil {
				return err
			}
			h, err := c.Handoff(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:      %s\nkind:    %s\nexpires: %s\n", h.ID, h.Kind, h.ExpiresAt.Format("2006-01-02 15:04"))
			if h.ConsumedAt != nil {
				fmt.Fprintf(out, "claimed: %s\n", h.ConsumedAt.Format("2006-01-02 15:04"))
			}
			fmt.Fprintf(out, "\n%s\n", h.Prompt)
			return nil
		},
	}

	var outFile string
	claim := &cobra.Command{
		Use:   "claim <id>",
		Short: "Claim a hand-off once and print its prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			c, err := newClient(cfg)
			if err != nil {
				return err
			}
			prompt, err := c.Consume(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if outFile != "" {
				return os.WriteFile(outFile, []byte(prompt+"\n"), 0644)
			}
			fmt.Fprintln(cmd.OutOrStdout(), prompt)
			return nil
		},
	}
	claim.Flags().StringVarP(&outFile, "out", "o", "", "write the prompt to a file instead of stdout")

	cmd.AddCommand(show, claim)
	return cmd
}
