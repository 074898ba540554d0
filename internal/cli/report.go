package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pablasso/crewflow/internal/report"
)

const defaultWrapWidth = 100

func newReportCmd() *cobra.Command {
	var reportsDir string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Inspect stored task reports",
	}
	cmd.PersistentFlags().StringVar(&reportsDir, "reports-dir", "reports", "Directory where reports are written")

	var raw bool
	show := &cobra.Command{
		Use:   "show <task name or slug>",
		Short: "Render a stored report in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := report.Find(reportsDir, args[0])
			if err != nil {
				return err
			}
			md, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read report: %w", err)
			}

			out := cmd.OutOrStdout()
			if raw {
				_, err := out.Write(md)
				return err
			}
			rendered, err := renderMarkdown(string(md), out)
			if err != nil {
				return err
			}
			_, err = io.WriteString(out, rendered)
			return err
		},
	}
	show.Flags().BoolVar(&raw, "raw", false, "Print the Markdown source")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			slugs, err := report.List(reportsDir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(slugs) == 0 {
				fmt.Fprintf(out, "No reports in %s.\n", reportsDir)
				return nil
			}
			for _, slug := range slugs {
				fmt.Fprintln(out, slug)
			}
			return nil
		},
	}

	cmd.AddCommand(show, list)
	return cmd
}

// renderMarkdown styles md for out. Terminals get the auto style sized to
// the window; anything else gets the plain notty style.
func renderMarkdown(md string, out io.Writer) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithStandardStyle("notty"), glamour.WithWordWrap(defaultWrapWidth)}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		width := defaultWrapWidth
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 4 && w-4 < width {
			width = w - 4
		}
		opts = []glamour.TermRendererOption{glamour.WithAutoStyle(), glamour.WithWordWrap(width)}
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	rendered, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return rendered, nil
}
