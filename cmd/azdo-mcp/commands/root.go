package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"azdo-mcp/internal/azdo"
	"azdo-mcp/internal/config"
	"azdo-mcp/internal/logging"
	"azdo-mcp/internal/mcp"
	"azdo-mcp/internal/tools"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig

	dispatcher *tools.Dispatcher
)

var rootCmd = &cobra.Command{
	Use:   "azdo-mcp",
	Short: "azdo-mcp is an MCP server for Azure DevOps",
	Long: `An MCP server that exposes Azure DevOps (work items, builds, releases,
repositories, wikis) as tools over stdio, plus an HTTP API with an optional
LLM-backed chat endpoint.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		// Load configuration
		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		client := azdo.NewClient(cfg.AzDO)
		dispatcher, err = tools.NewDispatcher(client)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build tool dispatcher")
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("organization", cfg.AzDO.Organization).
			Msg("azdo-mcp starting")
	},
	Run: func(cmd *cobra.Command, args []string) {
		server := mcp.New(dispatcher, Version)
		if err := server.ServeStdio(); err != nil {
			log.Fatal().Err(err).Msg("MCP server failed")
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}
