package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/MakeNowJust/heredoc"
	"github.com/goto/salt/printer"
	"github.com/goto/salt/term"
	"github.com/spf13/cobra"
)

// matches every index; listing does not depend on the builder's index
const allIndexes = "*"

func indexCommand(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "index",
		Aliases: []string{"indexes", "indices"},
		Short:   "Inspect indexes",
		Annotations: map[string]string{
			"group": "core",
		},
		Example: heredoc.Doc(`
			$ jes index list
			$ jes index mappings --index orders
			$ jes index refresh --index orders
			$ jes index exists --index orders
		`),
	}

	cmd.AddCommand(
		listIndexesCommand(cfg),
		indexMappingsCommand(cfg),
		refreshIndexCommand(cfg),
		indexExistsCommand(cfg),
	)
	return cmd
}

func listIndexesCommand(cfg *Config) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "lists all indexes",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			"action:core": "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			spinner := printer.Spin("")
			defer spinner.Stop()

			s, err := openSession(cmd.Context(), cfg, "index_list", allIndexes)
			if err != nil {
				return err
			}
			defer s.Close()

			stats, err := s.builder.ListIndexes(s.ctx)
			if err != nil {
				return err
			}
			spinner.Stop()

			if output == "json" {
				fmt.Println(term.Bluef(prettyPrint(stats)))
				return nil
			}

			sort.Slice(stats, func(i, j int) bool { return stats[i].Index < stats[j].Index })
			report := [][]string{{"INDEX", "HEALTH", "STATUS", "DOCS", "SIZE"}}
			for _, st := range stats {
				report = append(report, []string{term.Bluef(st.Index), st.Health, st.Status, st.DocsCount, st.StoreSize})
			}
			printer.Table(os.Stdout, report)

			fmt.Println(term.Cyanf("To view all the data in JSON format, use flag `-o json`"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "out", "o", "table", "flag to control output viewing, for json `-o json`")
	return cmd
}

func indexMappingsCommand(cfg *Config) *cobra.Command {
	var index, output string
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "show the type of every field of an index",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			"action:core": "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			spinner := printer.Spin("")
			defer spinner.Stop()

			s, err := openSession(cmd.Context(), cfg, "index_mappings", indexOrDefault(index, cfg))
			if err != nil {
				return err
			}
			defer s.Close()

			fields, err := s.builder.DescribeMappings(s.ctx)
			if err != nil {
				return err
			}
			spinner.Stop()

			if output == "json" {
				fmt.Println(term.Bluef(prettyPrint(fields)))
				return nil
			}

			paths := make([]string, 0, len(fields))
			for p := range fields {
				paths = append(paths, p)
			}
			sort.Strings(paths)

			report := [][]string{{"FIELD", "TYPE"}}
			for _, p := range paths {
				report = append(report, []string{p, fields[p]})
			}
			printer.Table(os.Stdout, report)
			return nil
		},
	}
	cmd.Flags().StringVarP(&index, "index", "i", "", "index to describe, defaults to elasticsearch.index from the config")
	cmd.Flags().StringVarP(&output, "out", "o", "table", "flag to control output viewing, for json `-o json`")
	return cmd
}

func refreshIndexCommand(cfg *Config) *cobra.Command {
	var index string
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "make recent writes to an index searchable",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			"action:core": "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cfg, "index_refresh", indexOrDefault(index, cfg))
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.builder.Refresh(s.ctx); err != nil {
				return err
			}
			fmt.Printf("index %q refreshed\n", s.builder.Index())
			return nil
		},
	}
	cmd.Flags().StringVarP(&index, "index", "i", "", "index to refresh, defaults to elasticsearch.index from the config")
	return cmd
}

func indexExistsCommand(cfg *Config) *cobra.Command {
	var index string
	cmd := &cobra.Command{
		Use:   "exists",
		Short: "check whether an index exists",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			"action:core": "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cfg, "index_exists", indexOrDefault(index, cfg))
			if err != nil {
				return err
			}
			defer s.Close()

			exists, err := s.builder.IndexExists(s.ctx)
			if err != nil {
				return err
			}
			fmt.Println(exists)
			return nil
		},
	}
	cmd.Flags().StringVarP(&index, "index", "i", "", "index to check, defaults to elasticsearch.index from the config")
	return cmd
}
