package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"azdo-mcp/internal/httpapi"
	"azdo-mcp/internal/llm"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tool catalog and chat endpoint over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		addr := serveAddr
		if addr == "" {
			addr = cfg.HTTPAddr
		}

		var chat httpapi.ChatModel
		if cfg.LLM.Enabled() {
			chat = llm.New(llm.Config{
				BaseURL: cfg.LLM.BaseURL,
				APIKey:  cfg.LLM.APIKey,
				Model:   cfg.LLM.Model,
			})
			log.Info().Str("model", cfg.LLM.Model).Msg("Chat endpoint enabled")
		} else {
			log.Info().Msg("No model configured, chat endpoint disabled")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		server := httpapi.New(addr, dispatcher, chat)
		if err := server.Run(ctx); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (defaults to AZDO_MCP_HTTP_ADDR)")
	rootCmd.AddCommand(serveCmd)
}
