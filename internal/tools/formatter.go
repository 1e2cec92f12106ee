package tools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Format renders a raw tool payload as a short Markdown document. It is a
// pure function of (tool name, payload, original arguments): list payloads
// become a count header plus a fixed-column table, single records become a
// labeled block, mutations become a confirmation block, and anything without
// a template degrades to pretty-printed JSON.
func Format(name string, payload any, args Args) string {
	if args == nil {
		args = Args{}
	}

	switch name {
	case "create_work_item":
		return formatCreateWorkItem(payload, args)
	case "update_work_item":
		return formatUpdateWorkItem(payload, args)
	case "assign_work_item":
		return formatAssignWorkItem(payload, args)
	case "create_pull_request":
		return formatCreatePullRequest(payload, args)
	case "get_work_item":
		return formatWorkItemDetail(payload)
	case "get_wiki_page":
		return formatWikiPage(payload)
	}

	if spec, ok := listSpecs[name]; ok {
		if records, ok := asRecords(payload); ok {
			return renderTable(spec, records)
		}
	}

	return jsonFallback(payload)
}

type column struct {
	header string
	value  func(rec map[string]any) string
}

type listSpec struct {
	title string // table header, e.g. "Work Items"
	noun  string // empty-result noun, e.g. "work items"
	cols  []column
}

var listSpecs = map[string]listSpec{
	"list_projects": {
		title: "Projects", noun: "projects",
		cols: []column{
			{"Name", path("name")},
			{"ID", path("id")},
			{"Description", path("description")},
		},
	},
	"query_work_items": {
		title: "Work Items", noun: "work items",
		cols: workItemColumns,
	},
	"search_work_items": {
		title: "Work Items", noun: "work items",
		cols: []column{
			{"ID", path("fields", "system.id")},
			{"Title", path("fields", "system.title")},
			{"State", path("fields", "system.state")},
			{"Assigned To", path("fields", "system.assignedto")},
			{"Type", path("fields", "system.workitemtype")},
		},
	},
	"list_work_item_comments": {
		title: "Comments", noun: "comments",
		cols: []column{
			{"ID", path("id")},
			{"Author", path("createdBy", "displayName")},
			{"Date", path("createdDate")},
			{"Text", path("text")},
		},
	},
	"list_builds": {
		title: "Builds", noun: "builds",
		cols: []column{
			{"ID", path("id")},
			{"Number", path("buildNumber")},
			{"Status", path("status")},
			{"Result", path("result")},
			{"Definition", path("definition", "name")},
		},
	},
	"list_build_definitions": {
		title: "Build Definitions", noun: "build definitions",
		cols: []column{
			{"ID", path("id")},
			{"Name", path("name")},
			{"Path", path("path")},
		},
	},
	"list_releases": {
		title: "Releases", noun: "releases",
		cols: []column{
			{"ID", path("id")},
			{"Name", path("name")},
			{"Status", path("status")},
			{"Created On", path("createdOn")},
		},
	},
	"list_release_definitions": {
		title: "Release Definitions", noun: "release definitions",
		cols: []column{
			{"ID", path("id")},
			{"Name", path("name")},
			{"Path", path("path")},
		},
	},
	"list_repositories": {
		title: "Repositories", noun: "repositories",
		cols: []column{
			{"Name", path("name")},
			{"ID", path("id")},
			{"Default Branch", path("defaultBranch")},
		},
	},
	"list_pull_requests": {
		title: "Pull Requests", noun: "pull requests",
		cols: []column{
			{"ID", path("pullRequestId")},
			{"Title", path("title")},
			{"Status", path("status")},
			{"Creator", path("createdBy", "displayName")},
			{"Source", path("sourceRefName")},
			{"Target", path("targetRefName")},
		},
	},
	"list_branches": {
		title: "Branches", noun: "branches",
		cols: []column{
			{"Name", path("name")},
			{"Object ID", short(path("objectId"))},
		},
	},
	"list_commits": {
		title: "Commits", noun: "commits",
		cols: []column{
			{"ID", short(path("commitId"))},
			{"Author", path("author", "name")},
			{"Date", path("author", "date")},
			{"Comment", path("comment")},
		},
	},
	"list_wikis": {
		title: "Wikis", noun: "wikis",
		cols: []column{
			{"Name", path("name")},
			{"ID", path("id")},
			{"Type", path("type")},
		},
	},
	"list_boards": {
		title: "Boards", noun: "boards",
		cols: []column{
			{"Name", path("name")},
			{"ID", path("id")},
		},
	},
	"list_iterations": {
		title: "Iterations", noun: "iterations",
		cols: []column{
			{"Name", path("name")},
			{"Start", path("attributes", "startDate")},
			{"Finish", path("attributes", "finishDate")},
		},
	},
	"list_teams": {
		title: "Teams", noun: "teams",
		cols: []column{
			{"Name", path("name")},
			{"ID", path("id")},
			{"Description", path("description")},
		},
	},
	"list_test_plans": {
		title: "Test Plans", noun: "test plans",
		cols: []column{
			{"ID", path("id")},
			{"Name", path("name")},
			{"State", path("state")},
		},
	},
	"list_variable_groups": {
		title: "Variable Groups", noun: "variable groups",
		cols: []column{
			{"ID", path("id")},
			{"Name", path("name")},
			{"Type", path("type")},
		},
	},
	"list_work_item_tags": {
		title: "Tags", noun: "tags",
		cols: []column{
			{"Name", path("name")},
			{"ID", path("id")},
		},
	},
	"search_code": {
		title: "Code Results", noun: "code results",
		cols: []column{
			{"File", path("fileName")},
			{"Path", path("path")},
			{"Repository", path("repository", "name")},
			{"Project", path("project", "name")},
		},
	},
	"get_identity": {
		title: "Identities", noun: "identities",
		cols: []column{
			{"Display Name", coalesce(path("customDisplayName"), path("providerDisplayName"))},
			{"ID", path("id")},
			{"Descriptor", path("descriptor")},
		},
	},
	"list_work_item_types": {
		title: "Work Item Types", noun: "work item types",
		cols: []column{
			{"Name", path("name")},
			{"Reference Name", path("referenceName")},
			{"Description", path("description")},
		},
	},
}

// Work items always render the same five columns regardless of which fields
// the backend actually returned.
var workItemColumns = []column{
	{"ID", path("id")},
	{"Title", path("fields", "System.Title")},
	{"State", path("fields", "System.State")},
	{"Assigned To", coalesce(path("fields", "System.AssignedTo", "displayName"), path("fields", "System.AssignedTo"))},
	{"Type", path("fields", "System.WorkItemType")},
}

// path returns a cell accessor following the given key chain, substituting
// an empty string for any missing or non-object intermediate.
func path(keys ...string) func(rec map[string]any) string {
	return func(rec map[string]any) string {
		var cur any = rec
		for _, key := range keys {
			m, ok := cur.(map[string]any)
			if !ok {
				return ""
			}
			cur, ok = m[key]
			if !ok || cur == nil {
				return ""
			}
		}
		if _, isMap := cur.(map[string]any); isMap {
			return ""
		}
		return stringify(cur)
	}
}

func coalesce(accessors ...func(rec map[string]any) string) func(rec map[string]any) string {
	return func(rec map[string]any) string {
		for _, a := range accessors {
			if v := a(rec); v != "" {
				return v
			}
		}
		return ""
	}
}

// short truncates long hashes to their first 8 characters.
func short(accessor func(rec map[string]any) string) func(rec map[string]any) string {
	return func(rec map[string]any) string {
		v := accessor(rec)
		if len(v) > 8 {
			return v[:8]
		}
		return v
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func asRecords(payload any) ([]map[string]any, bool) {
	switch seq := payload.(type) {
	case []map[string]any:
		return seq, true
	case []any:
		records := make([]map[string]any, 0, len(seq))
		for _, item := range seq {
			rec, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}
			records = append(records, rec)
		}
		return records, true
	case nil:
		return []map[string]any{}, true
	default:
		return nil, false
	}
}

func renderTable(spec listSpec, records []map[string]any) string {
	if len(records) == 0 {
		return fmt.Sprintf("No %s found.", spec.noun)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## %s (%d)\n\n", spec.title, len(records))

	headers := make([]string, len(spec.cols))
	separators := make([]string, len(spec.cols))
	for i, col := range spec.cols {
		headers[i] = col.header
		separators[i] = "---"
	}
	fmt.Fprintf(&b, "| %s |\n", strings.Join(headers, " | "))
	fmt.Fprintf(&b, "| %s |\n", strings.Join(separators, " | "))

	for _, rec := range records {
		cells := make([]string, len(spec.cols))
		for i, col := range spec.cols {
			cells[i] = escapeCell(col.value(rec))
		}
		fmt.Fprintf(&b, "| %s |\n", strings.Join(cells, " | "))
	}

	return b.String()
}

// escapeCell keeps cell text from breaking the surrounding table.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "|", "\\|")
	return s
}

func formatWorkItemDetail(payload any) string {
	rec, ok := payload.(map[string]any)
	if !ok {
		return jsonFallback(payload)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Work Item %s\n\n", path("id")(rec))
	writeField(&b, "Title", path("fields", "System.Title")(rec))
	writeField(&b, "Type", path("fields", "System.WorkItemType")(rec))
	writeField(&b, "State", path("fields", "System.State")(rec))
	writeField(&b, "Assigned To", coalesce(path("fields", "System.AssignedTo", "displayName"), path("fields", "System.AssignedTo"))(rec))
	writeField(&b, "Created", path("fields", "System.CreatedDate")(rec))
	writeField(&b, "Iteration", path("fields", "System.IterationPath")(rec))
	writeField(&b, "Description", path("fields", "System.Description")(rec))
	writeField(&b, "URL", path("url")(rec))
	return b.String()
}

func formatWikiPage(payload any) string {
	rec, ok := payload.(map[string]any)
	if !ok {
		return jsonFallback(payload)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Wiki Page %s\n\n", path("path")(rec))
	writeField(&b, "ID", path("id")(rec))
	writeField(&b, "Remote URL", path("remoteUrl")(rec))
	if content := path("content")(rec); content != "" {
		fmt.Fprintf(&b, "\n%s\n", content)
	}
	return b.String()
}

// writeField writes a labeled line, skipping empty values.
func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

func formatCreateWorkItem(payload any, args Args) string {
	rec, _ := payload.(map[string]any)

	var b strings.Builder
	b.WriteString("✅ Work item created\n\n")
	writeField(&b, "ID", path("id")(rec))
	writeField(&b, "Type", args.str("work_item_type", ""))
	writeField(&b, "Title", args.str("title", ""))
	if args.has("assigned_to") {
		writeField(&b, "Assigned To", args.str("assigned_to", ""))
	}
	writeField(&b, "URL", path("url")(rec))
	return b.String()
}

func formatUpdateWorkItem(payload any, args Args) string {
	rec, _ := payload.(map[string]any)

	var b strings.Builder
	b.WriteString("✅ Work item updated\n\n")
	id := path("id")(rec)
	if id == "" {
		id = args.str("id", "")
	}
	writeField(&b, "ID", id)

	fields := args.object("fields")
	if len(fields) > 0 {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("Updated fields:\n")
		for _, name := range names {
			fmt.Fprintf(&b, "- %s: %s\n", name, stringify(fields[name]))
		}
	}
	if args.has("comment") {
		writeField(&b, "Comment", args.str("comment", ""))
	}
	return b.String()
}

func formatAssignWorkItem(payload any, args Args) string {
	rec, _ := payload.(map[string]any)

	var b strings.Builder
	b.WriteString("✅ Work item assigned\n\n")
	id := path("id")(rec)
	if id == "" {
		id = args.str("id", "")
	}
	writeField(&b, "ID", id)
	writeField(&b, "Assigned To", args.str("assigned_to", ""))
	return b.String()
}

func formatCreatePullRequest(payload any, args Args) string {
	rec, _ := payload.(map[string]any)

	var b strings.Builder
	b.WriteString("✅ Pull request created\n\n")
	writeField(&b, "ID", path("pullRequestId")(rec))
	writeField(&b, "Title", args.str("title", ""))
	writeField(&b, "Source", args.str("source_branch", ""))
	writeField(&b, "Target", args.str("target_branch", ""))
	if args.has("description") {
		writeField(&b, "Description", args.str("description", ""))
	}
	writeField(&b, "URL", path("url")(rec))
	return b.String()
}

func jsonFallback(payload any) string {
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return string(out)
}
