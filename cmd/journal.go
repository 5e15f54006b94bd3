package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopsphere/shopctl/pkg/journal"
	"github.com/shopsphere/shopctl/pkg/output"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the journal of executed admin actions",
}

var (
	journalEntityFlag string
	journalTargetFlag string
	journalLimitFlag  int
)

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List executed admin actions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := openJournal(cmd.Context())
		if err != nil {
			return err
		}
		entries, err := j.List(cmd.Context(), journal.Filter{
			Entity: journalEntityFlag,
			Target: journalTargetFlag,
			Limit:  journalLimitFlag,
		})
		if err != nil {
			return fmt.Errorf("failed to list journal: %w", err)
		}
		if _, ok := formatter.(*output.TableFormatter); !ok {
			fmt.Fprint(out(cmd), formatter.Format(entries))
			return nil
		}
		now := time.Now()
		type row struct {
			When     string `json:"when"`
			Action   string `json:"action"`
			Entity   string `json:"entity"`
			Target   string `json:"target"`
			Outcome  string `json:"outcome"`
			Operator string `json:"operator"`
			Message  string `json:"message"`
		}
		rows := make([]row, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, row{
				When:     output.Ago(e.At.Format(time.RFC3339), now),
				Action:   e.Action,
				Entity:   e.Entity,
				Target:   dash(e.Target),
				Outcome:  e.Outcome,
				Operator: dash(e.Operator),
				Message:  dash(e.Message),
			})
		}
		fmt.Fprint(out(cmd), formatter.Format(rows))
		return nil
	},
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	journalListCmd.Flags().StringVar(&journalEntityFlag, "entity", "", "only show actions on this entity, e.g. vendor")
	journalListCmd.Flags().StringVar(&journalTargetFlag, "target", "", "only show actions on this id")
	journalListCmd.Flags().IntVar(&journalLimitFlag, "limit", 50, "maximum number of entries")
	journalCmd.AddCommand(journalListCmd)
	rootCmd.AddCommand(journalCmd)
}
