package cli

import (
	"fmt"

	"github.com/MakeNowJust/heredoc"
	"github.com/goto/salt/printer"
	"github.com/goto/salt/term"
	"github.com/spf13/cobra"
)

func updateCommand(cfg *Config) *cobra.Command {
	var index, conflicts string
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "update <field=value-or-expression> <field=value>...",
		Short: "update every document where each field matches its value",
		Long: heredoc.Doc(`
			Update every document matching the criteria with a painless assignment.

			A value that reads as a JSON literal (number, true, false, null or a
			double quoted string) is sent as a script parameter. Anything else is
			compiled by Elasticsearch as a painless expression, so never pass input
			you do not trust as the first argument.
		`),
		Annotations: map[string]string{
			"group": "core",
		},
		Args: cobra.MinimumNArgs(1),
		Example: heredoc.Doc(`
			$ jes update 'status=0' item_id=1234 --index orders
			$ jes update 'status="shipped"' item_id=1234 --conflicts proceed
			$ jes update 'retries=ctx._source.retries + 1' status=failed --dry-run
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := parseCriteria(args[1:], true)
			if err != nil {
				return err
			}

			spinner := printer.Spin("")
			defer spinner.Stop()

			s, err := openSession(cmd.Context(), cfg, "update", indexOrDefault(index, cfg))
			if err != nil {
				return err
			}
			defer s.Close()

			req, err := s.builder.UpdateQuery(args[0], criteria)
			if err != nil {
				return err
			}
			if conflicts != "" {
				req.Conflicts(conflicts)
			}

			if dryRun {
				body, err := req.Body()
				if err != nil {
					return err
				}
				spinner.Stop()
				fmt.Println(string(body))
				return nil
			}

			res, err := req.Do(s.ctx)
			if err != nil {
				return err
			}
			spinner.Stop()

			fmt.Println(term.Bluef(prettyPrint(res)))
			if len(res.Failures) > 0 {
				return fmt.Errorf("%d of %d documents failed to update", len(res.Failures), res.Total)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&index, "index", "i", "", "index to update, defaults to elasticsearch.index from the config")
	cmd.Flags().StringVar(&conflicts, "conflicts", "", "what to do on version conflicts: abort or proceed")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the request body instead of sending it")
	return cmd
}
