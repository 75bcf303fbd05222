package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/MakeNowJust/heredoc"
	"github.com/goto/jes/core/profile"
	"github.com/goto/salt/printer"
	"github.com/goto/salt/term"
	"github.com/spf13/cobra"
)

func profileCommand(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profile",
		Aliases: []string{"profiles"},
		Short:   "Manage credential profiles",
		Annotations: map[string]string{
			"group": "core",
		},
		Example: heredoc.Doc(`
			$ jes profile create
			$ jes profile create staging
			$ jes profile list
			$ jes profile show staging
			$ jes profile delete staging
		`),
	}

	cmd.AddCommand(
		createProfileCommand(cfg),
		showProfileCommand(cfg),
		listProfilesCommand(cfg),
		deleteProfileCommand(cfg),
	)
	return cmd
}

func profileName(args []string, cfg *Config) string {
	if len(args) > 0 {
		return args[0]
	}
	return cfg.Elasticsearch.Profile
}

func profileStore(cfg *Config) profile.FileStore {
	return profile.NewFileStore(cfg.Elasticsearch.ProfileDir)
}

func createProfileCommand(cfg *Config) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "create [name]",
		Short: "interactively create a credential profile",
		Args:  cobra.MaximumNArgs(1),
		Annotations: map[string]string{
			"action:core": "true",
		},
		Example: heredoc.Doc(`
			$ jes profile create staging
			Enter hosts (list): ["https://es-1:9200", "https://es-2:9200"]
			Enter username (str): elastic
			Enter password (str): changeme
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := profileName(args, cfg)
			store := profileStore(cfg)

			if !force {
				_, err := store.Read(name)
				if err == nil {
					return fmt.Errorf("profile %q already exists, use --force to overwrite it", name)
				}
				if !errors.As(err, new(profile.NotFoundError)) {
					return err
				}
			}

			p, err := profile.Prompt(cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := p.Save(store, name); err != nil {
				return err
			}

			fmt.Println(term.Bluef("profile %q saved", name))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing profile")
	return cmd
}

func showProfileCommand(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show [name]",
		Short: "show a credential profile with its password masked",
		Args:  cobra.MaximumNArgs(1),
		Annotations: map[string]string{
			"action:core": "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile.Load(profileStore(cfg), profileName(args, cfg))
			if err != nil {
				return err
			}
			fmt.Println(p)
			return nil
		},
	}
}

func listProfilesCommand(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "lists all saved credential profiles",
		Args:  cobra.NoArgs,
		Annotations: map[string]string{
			"action:core": "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			store := profileStore(cfg)
			names, err := store.List()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Println(term.Yellow("No profiles found. Run \"jes profile create\" to add one."))
				return nil
			}

			report := [][]string{{"NAME", "HOSTS", "USER"}}
			for _, name := range names {
				p, err := profile.Load(store, name)
				if err != nil {
					report = append(report, []string{name, term.Yellow("unreadable"), ""})
					continue
				}
				marker := name
				if name == cfg.Elasticsearch.Profile {
					marker = term.Bluef("%s (active)", name)
				}
				report = append(report, []string{marker, strings.Join(p.Hosts, ","), p.Username})
			}
			printer.Table(os.Stdout, report)
			return nil
		},
	}
}

func deleteProfileCommand(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "delete a credential profile",
		Args:  cobra.ExactArgs(1),
		Annotations: map[string]string{
			"action:core": "true",
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := profileStore(cfg).Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("profile %q deleted\n", args[0])
			return nil
		},
	}
}
