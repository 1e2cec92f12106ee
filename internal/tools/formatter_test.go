package tools

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFormatEmptyLists(t *testing.T) {
	cases := []struct {
		tool     string
		expected string
	}{
		{"list_projects", "No projects found."},
		{"query_work_items", "No work items found."},
		{"search_work_items", "No work items found."},
		{"list_builds", "No builds found."},
		{"list_pull_requests", "No pull requests found."},
		{"list_variable_groups", "No variable groups found."},
		{"search_code", "No code results found."},
	}

	for _, tc := range cases {
		if got := Format(tc.tool, []map[string]any{}, nil); got != tc.expected {
			t.Errorf("%s: expected %q, got %q", tc.tool, tc.expected, got)
		}
	}
}

func TestFormatProjectsTable(t *testing.T) {
	payload := []map[string]any{
		{"name": "Fabrikam", "id": "p-1", "description": "Main product"},
		{"name": "Contoso", "id": "p-2"},
	}

	got := Format("list_projects", payload, nil)

	if !strings.HasPrefix(got, "## Projects (2)\n") {
		t.Errorf("missing count header, got:\n%s", got)
	}
	if !strings.Contains(got, "| Name | ID | Description |") {
		t.Errorf("missing column header row, got:\n%s", got)
	}
	if !strings.Contains(got, "| Fabrikam | p-1 | Main product |") {
		t.Errorf("missing first row, got:\n%s", got)
	}
	// Missing fields render as empty cells, never as <nil>.
	if !strings.Contains(got, "| Contoso | p-2 |  |") {
		t.Errorf("missing-field cell not empty, got:\n%s", got)
	}
	if strings.Contains(got, "<nil>") {
		t.Errorf("nil leaked into output:\n%s", got)
	}
}

func TestFormatWorkItemsTable(t *testing.T) {
	payload := []map[string]any{
		{
			"id": float64(12),
			"fields": map[string]any{
				"System.Title":        "Fix login",
				"System.State":        "Active",
				"System.WorkItemType": "Bug",
				"System.AssignedTo":   map[string]any{"displayName": "Jamie Reyes"},
			},
		},
		{
			"id": float64(13),
			"fields": map[string]any{
				"System.Title":        "Ship it",
				"System.State":        "New",
				"System.WorkItemType": "Task",
			},
		},
	}

	got := Format("query_work_items", payload, nil)

	if !strings.HasPrefix(got, "## Work Items (2)\n") {
		t.Errorf("missing count header, got:\n%s", got)
	}
	if !strings.Contains(got, "| ID | Title | State | Assigned To | Type |") {
		t.Errorf("column set changed, got:\n%s", got)
	}
	if !strings.Contains(got, "| 12 | Fix login | Active | Jamie Reyes | Bug |") {
		t.Errorf("missing assigned row, got:\n%s", got)
	}
	if !strings.Contains(got, "| 13 | Ship it | New |  | Task |") {
		t.Errorf("unassigned row should have empty cell, got:\n%s", got)
	}
}

func TestFormatEscapesPipes(t *testing.T) {
	payload := []map[string]any{
		{"name": "a|b", "id": "1", "description": "first | second"},
	}

	got := Format("list_projects", payload, nil)
	if !strings.Contains(got, `a\|b`) || !strings.Contains(got, `first \| second`) {
		t.Errorf("pipe characters not escaped:\n%s", got)
	}
}

func TestFormatCreateWorkItemConfirmation(t *testing.T) {
	payload := map[string]any{
		"id":  float64(42),
		"url": "https://dev.azure.com/fabrikam/_apis/wit/workItems/42",
	}
	args := Args{"work_item_type": "Bug", "title": "Login issue"}

	got := Format("create_work_item", payload, args)

	if !strings.HasPrefix(got, "✅ Work item created") {
		t.Errorf("missing confirmation marker:\n%s", got)
	}
	for _, want := range []string{"ID: 42", "Type: Bug", "Title: Login issue"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in:\n%s", want, got)
		}
	}
	// Optional arguments that were not supplied stay out of the confirmation.
	if strings.Contains(got, "Assigned To") {
		t.Errorf("assigned_to line present without the argument:\n%s", got)
	}
	if strings.Contains(got, "Comment") {
		t.Errorf("comment line present without the argument:\n%s", got)
	}
}

func TestFormatUpdateWorkItemConfirmation(t *testing.T) {
	payload := map[string]any{"id": float64(5)}
	args := Args{
		"id":      float64(5),
		"fields":  map[string]any{"System.State": "Resolved", "System.Priority": float64(1)},
		"comment": "fixed",
	}

	got := Format("update_work_item", payload, args)

	if !strings.HasPrefix(got, "✅ Work item updated") {
		t.Errorf("missing confirmation marker:\n%s", got)
	}
	for _, want := range []string{"ID: 5", "Updated fields:", "- System.Priority: 1", "- System.State: Resolved", "Comment: fixed"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in:\n%s", want, got)
		}
	}

	// Without the comment argument there is no comment line.
	delete(args, "comment")
	got = Format("update_work_item", payload, args)
	if strings.Contains(got, "Comment") {
		t.Errorf("comment line present without the argument:\n%s", got)
	}
}

func TestFormatAssignWorkItemConfirmation(t *testing.T) {
	got := Format("assign_work_item", map[string]any{"id": float64(9)}, Args{"id": float64(9), "assigned_to": "Sam Okafor"})

	if !strings.HasPrefix(got, "✅ Work item assigned") {
		t.Errorf("missing confirmation marker:\n%s", got)
	}
	if !strings.Contains(got, "ID: 9") || !strings.Contains(got, "Assigned To: Sam Okafor") {
		t.Errorf("confirmation incomplete:\n%s", got)
	}
}

func TestFormatCreatePullRequestConfirmation(t *testing.T) {
	payload := map[string]any{"pullRequestId": float64(77)}
	args := Args{
		"repository_id": "web",
		"source_branch": "feature/login",
		"target_branch": "main",
		"title":         "Add login",
	}

	got := Format("create_pull_request", payload, args)

	for _, want := range []string{"✅ Pull request created", "ID: 77", "Source: feature/login", "Target: main", "Title: Add login"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Description") {
		t.Errorf("description line present without the argument:\n%s", got)
	}
}

func TestFormatWorkItemDetail(t *testing.T) {
	payload := map[string]any{
		"id":  float64(42),
		"url": "https://dev.azure.com/fabrikam/_apis/wit/workItems/42",
		"fields": map[string]any{
			"System.Title":        "Login issue",
			"System.State":        "Active",
			"System.WorkItemType": "Bug",
		},
	}

	got := Format("get_work_item", payload, nil)

	if !strings.HasPrefix(got, "## Work Item 42") {
		t.Errorf("missing detail header:\n%s", got)
	}
	for _, want := range []string{"Title: Login issue", "Type: Bug", "State: Active"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in:\n%s", want, got)
		}
	}
	if strings.Contains(got, "Assigned To:") {
		t.Errorf("absent field rendered:\n%s", got)
	}
}

func TestFormatIsDeterministic(t *testing.T) {
	args := Args{
		"id": float64(5),
		"fields": map[string]any{
			"System.State":    "Resolved",
			"System.Priority": float64(1),
			"System.Title":    "t",
			"System.Tags":     "a; b",
		},
	}
	payload := map[string]any{"id": float64(5)}

	first := Format("update_work_item", payload, args)
	for i := 0; i < 20; i++ {
		if got := Format("update_work_item", payload, args); got != first {
			t.Fatalf("output changed between calls:\n%s\nvs\n%s", first, got)
		}
	}
}

func TestFormatFallbackIsJSON(t *testing.T) {
	payload := map[string]any{"unexpected": "shape", "n": float64(3)}

	got := Format("some_future_tool", payload, nil)

	var decoded map[string]any
	if err := json.Unmarshal([]byte(got), &decoded); err != nil {
		t.Fatalf("fallback is not valid JSON: %v\n%s", err, got)
	}
	if decoded["unexpected"] != "shape" {
		t.Errorf("fallback lost data: %v", decoded)
	}
	if !strings.Contains(got, "\n") {
		t.Errorf("fallback should be indented:\n%s", got)
	}
}

func TestFormatSearchWorkItems(t *testing.T) {
	payload := []map[string]any{
		{
			"fields": map[string]any{
				"system.id":           "101",
				"system.title":        "Crash on save",
				"system.state":        "Active",
				"system.workitemtype": "Bug",
				"system.assignedto":   "Jamie Reyes",
			},
		},
	}

	got := Format("search_work_items", payload, nil)
	if !strings.Contains(got, "| 101 | Crash on save | Active | Jamie Reyes | Bug |") {
		t.Errorf("search result row wrong:\n%s", got)
	}
}
