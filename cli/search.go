package cli

import (
	"fmt"

	"github.com/MakeNowJust/heredoc"
	esStore "github.com/goto/jes/internal/store/elasticsearch"
	"github.com/goto/salt/printer"
	"github.com/goto/salt/term"
	"github.com/olivere/elastic/v7"
	"github.com/spf13/cobra"
)

type searchFlags struct {
	index  string
	fields []string
	size   int
	dryRun bool
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.index, "index", "i", "", "index to query, defaults to elasticsearch.index from the config")
	cmd.Flags().StringSliceVarP(&f.fields, "fields", "f", nil, "--fields=status,item_id returns only these fields of each document")
	cmd.Flags().IntVarP(&f.size, "size", "s", 0, "--size=10 maximum number of documents returned")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "print the request body instead of sending it")
}

func searchCommand(cfg *Config) *cobra.Command {
	var flags searchFlags
	cmd := &cobra.Command{
		Use:   "search",
		Short: "list documents of an index",
		Annotations: map[string]string{
			"group": "core",
		},
		Args: cobra.NoArgs,
		Example: heredoc.Doc(`
			$ jes search --index orders
			$ jes search --index orders --fields status,item_id --size 50
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, cfg, &flags, "search", func(b *esStore.Builder) (*esStore.SearchRequest, error) {
				return b.BaseSearch(flags.fields...), nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func matchCommand(cfg *Config) *cobra.Command {
	var flags searchFlags
	cmd := &cobra.Command{
		Use:   "match <field=value>...",
		Short: "find documents where every field matches its value",
		Annotations: map[string]string{
			"group": "core",
		},
		Example: heredoc.Doc(`
			$ jes match status=paid item_id=1234 --index orders
			$ jes match customer="john doe" --fields item_id
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := parseCriteria(args, true)
			if err != nil {
				return err
			}
			return runSearch(cmd, cfg, &flags, "match", func(b *esStore.Builder) (*esStore.SearchRequest, error) {
				return b.MatchQuery(flags.fields, criteria)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func regexpCommand(cfg *Config) *cobra.Command {
	var flags searchFlags
	cmd := &cobra.Command{
		Use:   "regexp <field=pattern>...",
		Short: "find documents where every field matches its regular expression",
		Annotations: map[string]string{
			"group": "core",
		},
		Example: heredoc.Doc(`
			$ jes regexp customer='jo.*' --index orders
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := parseCriteria(args, false)
			if err != nil {
				return err
			}
			return runSearch(cmd, cfg, &flags, "regexp", func(b *esStore.Builder) (*esStore.SearchRequest, error) {
				return b.RegexpQuery(flags.fields, criteria)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func runSearch(cmd *cobra.Command, cfg *Config, flags *searchFlags, operation string, build func(*esStore.Builder) (*esStore.SearchRequest, error)) error {
	spinner := printer.Spin("")
	defer spinner.Stop()

	s, err := openSession(cmd.Context(), cfg, operation, indexOrDefault(flags.index, cfg))
	if err != nil {
		return err
	}
	defer s.Close()

	req, err := build(s.builder)
	if err != nil {
		return err
	}
	if flags.size > 0 {
		req.Size(flags.size)
	}

	if flags.dryRun {
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

	fmt.Println(term.Bluef(prettyPrint(hitsOf(res))))
	if total := totalHits(res); total > int64(len(res.Hits.Hits)) {
		fmt.Println(term.Cyanf("Showing %d of %d documents, use --size to see more", len(res.Hits.Hits), total))
	}
	return nil
}

func totalHits(res *elastic.SearchResult) int64 {
	if res == nil || res.Hits == nil || res.Hits.TotalHits == nil {
		return 0
	}
	return res.Hits.TotalHits.Value
}

func countCommand(cfg *Config) *cobra.Command {
	var index string
	cmd := &cobra.Command{
		Use:   "count <field=value>...",
		Short: "count documents where every field matches its value",
		Annotations: map[string]string{
			"group": "core",
		},
		Example: heredoc.Doc(`
			$ jes count status=paid --index orders
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := parseCriteria(args, true)
			if err != nil {
				return err
			}

			spinner := printer.Spin("")
			defer spinner.Stop()

			s, err := openSession(cmd.Context(), cfg, "count", indexOrDefault(index, cfg))
			if err != nil {
				return err
			}
			defer s.Close()

			n, err := s.builder.Count(s.ctx, criteria)
			if err != nil {
				return err
			}
			spinner.Stop()

			fmt.Println(n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&index, "index", "i", "", "index to query, defaults to elasticsearch.index from the config")
	return cmd
}
