package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pablasso/crewflow/internal/skills"
)

func newSkillsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "skills",
		Short: "List the skills available to the executor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, s := range skills.Default().List() {
				fmt.Fprintf(w, "%s\t%s\n", s.Signature(), s.Description)
			}
			return w.Flush()
		},
	}
}
