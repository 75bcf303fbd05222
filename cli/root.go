package cli

import (
	"github.com/MakeNowJust/heredoc"
	"github.com/goto/salt/cmdx"
	"github.com/spf13/cobra"
)

var envHelp = map[string]string{
	"short": "List of supported environment variables",
	"long": heredoc.Doc(`
		JES_LOG_LEVEL: log level of the client, one of debug, info, warn or error.

		JES_ELASTICSEARCH_PROFILE: credential profile used to connect.

		JES_ELASTICSEARCH_PROFILE_DIR: directory holding <profile>.pf records.

		JES_ELASTICSEARCH_ENGINE: client used for the cluster, elasticsearch or opensearch.

		JES_ELASTICSEARCH_INDEX: index used when --index is not given.

		JES_ELASTICSEARCH_PAGE_SIZE: default number of hits a search returns.

		JES_ELASTICSEARCH_ALLOW_EMPTY_CRITERIA: let commands without criteria match every document.

		JES_ELASTICSEARCH_INSECURE_SKIP_VERIFY: skip TLS certificate verification.

		JES_STATSD_ENABLED, JES_STATSD_ADDRESS, JES_STATSD_PREFIX: request metrics.

		JES_TELEMETRY_APP_NAME, JES_TELEMETRY_NEWRELIC_ENABLED, JES_TELEMETRY_NEWRELIC_LICENSEKEY: tracing.
	`),
}

func New(cfg *Config) *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:           "jes <command> <subcommand> [flags]",
		Short:         "Query and update Elasticsearch indexes",
		Long:          "Search, match and update documents of an Elasticsearch index using saved credential profiles.",
		SilenceErrors: true,
		SilenceUsage:  true,
		Example: heredoc.Doc(`
		$ jes profile create default
		$ jes match status=paid item_id=1234 --index orders
		$ jes update 'status=0' item_id=1234 --index orders
		$ jes index mappings --index orders
		`),
		Annotations: map[string]string{
			"group": "core",
			"help:learn": heredoc.Doc(`
				Use 'jes <command> --help' for info about a command.
			`),
			"help:feedback": heredoc.Doc(`
				Open an issue here https://github.com/goto/jes/issues
			`),
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, err := cmd.Flags().GetString(configFlag)
			if err != nil || cfgFile == "" {
				return nil
			}
			return LoadConfigFromFlag(cfgFile, cfg)
		},
	}

	rootCmd.AddCommand(
		configCommand(cfg),
		profileCommand(cfg),
		searchCommand(cfg),
		matchCommand(cfg),
		regexpCommand(cfg),
		countCommand(cfg),
		updateCommand(cfg),
		indexCommand(cfg),
		versionCmd(),
	)

	// Help topics
	rootCmd.AddCommand(cmdx.SetCompletionCmd(appName))
	rootCmd.AddCommand(cmdx.SetRefCmd(rootCmd))
	rootCmd.AddCommand(cmdx.SetHelpTopicCmd("environment", envHelp))
	cmdx.SetHelp(rootCmd)

	rootCmd.PersistentFlags().StringP(configFlag, "c", "", "Override config file")

	return rootCmd
}
