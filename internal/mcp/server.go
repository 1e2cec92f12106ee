// Package mcp exposes the tool catalog over the Model Context Protocol.
package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"azdo-mcp/internal/tools"
)

// Server wraps an MCP stdio server around the dispatcher. Every registry
// entry becomes one MCP tool; schema and routing come from the same catalog.
type Server struct {
	mcpServer  *server.MCPServer
	dispatcher *tools.Dispatcher
}

// New builds the MCP server for the given dispatcher.
func New(dispatcher *tools.Dispatcher, version string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"azdo-mcp",
			version,
			server.WithLogging(),
		),
		dispatcher: dispatcher,
	}

	for _, desc := range tools.Registry() {
		s.mcpServer.AddTool(buildTool(desc), s.handler(desc.Name))
	}

	return s
}

// ServeStdio blocks serving the MCP protocol on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Info().Int("tools", len(s.dispatcher.ToolNames())).Msg("Starting MCP stdio server")
	return server.ServeStdio(s.mcpServer)
}

// buildTool translates a registry descriptor into an MCP tool definition.
func buildTool(desc tools.Descriptor) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(desc.Description)}

	for _, p := range desc.Params {
		switch p.Type {
		case "integer":
			numOpts := []mcp.PropertyOption{mcp.Description(p.Description)}
			if p.Required {
				numOpts = append(numOpts, mcp.Required())
			}
			if def, ok := p.Default.(int); ok {
				numOpts = append(numOpts, mcp.DefaultNumber(float64(def)))
			}
			opts = append(opts, mcp.WithNumber(p.Name, numOpts...))
		case "object":
			objOpts := []mcp.PropertyOption{mcp.Description(p.Description)}
			if p.Required {
				objOpts = append(objOpts, mcp.Required())
			}
			opts = append(opts, mcp.WithObject(p.Name, objOpts...))
		default:
			strOpts := []mcp.PropertyOption{mcp.Description(p.Description)}
			if p.Required {
				strOpts = append(strOpts, mcp.Required())
			}
			if def, ok := p.Default.(string); ok {
				strOpts = append(strOpts, mcp.DefaultString(def))
			}
			opts = append(opts, mcp.WithString(p.Name, strOpts...))
		}
	}

	return mcp.NewTool(desc.Name, opts...)
}

// handler adapts one tool to the MCP call contract. Tool failures are
// reported as tool results, not protocol errors, so the client can relay
// them to the model.
func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := tools.Args(req.GetArguments())

		payload, err := s.dispatcher.Dispatch(ctx, name, args)
		if err != nil {
			log.Warn().Str("tool", name).Err(err).Msg("Tool call failed")
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(tools.Format(name, payload, args)), nil
	}
}
