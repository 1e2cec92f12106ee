package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"azdo-mcp/internal/azdo"
	"azdo-mcp/internal/tools"
)

// stubClient implements the two calls these tests exercise; everything else
// panics via the embedded nil interface if reached.
type stubClient struct {
	azdo.Client
}

func (stubClient) ListProjects(ctx context.Context) ([]map[string]any, error) {
	return []map[string]any{{"name": "Web", "id": "p-1"}}, nil
}

func (stubClient) GetWorkItem(ctx context.Context, id int) (map[string]any, error) {
	return nil, &azdo.NotFoundError{Resource: "work item 42"}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	d, err := tools.NewDispatcher(stubClient{})
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	return New(d, "test")
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, expected TextContent", result.Content[0])
	}
	return text.Text
}

func TestHandlerRendersFormattedResult(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handler("list_projects")(context.Background(), callRequest("list_projects", nil))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, result))
	}

	text := resultText(t, result)
	if !strings.Contains(text, "## Projects (1)") || !strings.Contains(text, "| Web | p-1 |") {
		t.Errorf("unexpected rendering:\n%s", text)
	}
}

func TestHandlerReportsMissingArgumentAsToolError(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handler("get_work_item")(context.Background(), callRequest("get_work_item", nil))
	if err != nil {
		t.Fatalf("validation failures must stay in-band, got protocol error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result")
	}
	if text := resultText(t, result); !strings.Contains(text, "missing required argument: id") {
		t.Errorf("error text = %q", text)
	}
}

func TestHandlerReportsBackendNotFound(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handler("get_work_item")(context.Background(), callRequest("get_work_item", map[string]any{"id": float64(42)}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected an error result")
	}
	if text := resultText(t, result); !strings.Contains(text, "work item 42") {
		t.Errorf("error text = %q", text)
	}
}

func TestBuildToolMarksRequiredParameters(t *testing.T) {
	for _, desc := range tools.Registry() {
		tool := buildTool(desc)
		if tool.Name != desc.Name {
			t.Errorf("tool name %q != descriptor %q", tool.Name, desc.Name)
		}
		required := map[string]bool{}
		for _, name := range tool.InputSchema.Required {
			required[name] = true
		}
		for _, p := range desc.Params {
			if p.Required && !required[p.Name] {
				t.Errorf("%s: parameter %s not marked required in schema", desc.Name, p.Name)
			}
			if _, ok := tool.InputSchema.Properties[p.Name]; !ok {
				t.Errorf("%s: parameter %s missing from schema", desc.Name, p.Name)
			}
		}
	}
}
