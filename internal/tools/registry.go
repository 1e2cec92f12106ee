package tools

// Param declares one parameter of a tool. Everything not marked Required is
// optional; optional parameters without a literal default fall back to the
// configured default project (for "project") or to the backend's own default.
type Param struct {
	Name        string
	Type        string // "string", "integer" or "object"
	Required    bool
	Default     any
	Description string
}

// Descriptor describes one tool: its unique name, a human description and an
// ordered parameter schema.
type Descriptor struct {
	Name        string
	Description string
	Params      []Param
}

// Registry returns the full ordered tool catalog. It is the single source of
// truth for what operations exist; the dispatcher derives its routing table
// from it, so the two cannot drift apart.
func Registry() []Descriptor {
	projectParam := Param{Name: "project", Type: "string", Description: "Project name (defaults to the configured project)"}
	topParam := Param{Name: "top", Type: "integer", Default: 10, Description: "Maximum number of results (default 10)"}

	return []Descriptor{
		{
			Name:        "list_projects",
			Description: "List all projects in the organization.",
		},
		{
			Name:        "get_work_item",
			Description: "Get a single work item by its ID, including relations.",
			Params: []Param{
				{Name: "id", Type: "integer", Required: true, Description: "Work item ID"},
			},
		},
		{
			Name:        "query_work_items",
			Description: "Run a WIQL query and return the matching work items.",
			Params: []Param{
				{Name: "wiql", Type: "string", Required: true, Description: "WIQL query text, e.g. SELECT [System.Id] FROM WorkItems WHERE [System.State] = 'Active'"},
				projectParam,
				topParam,
			},
		},
		{
			Name:        "list_work_item_comments",
			Description: "List the discussion comments of a work item.",
			Params: []Param{
				{Name: "id", Type: "integer", Required: true, Description: "Work item ID"},
				projectParam,
			},
		},
		{
			Name:        "create_work_item",
			Description: "Create a new work item (Bug, Task, User Story, ...).",
			Params: []Param{
				{Name: "work_item_type", Type: "string", Required: true, Description: "Work item type, e.g. Bug or Task"},
				{Name: "title", Type: "string", Required: true, Description: "Work item title"},
				{Name: "description", Type: "string", Description: "Optional description"},
				{Name: "assigned_to", Type: "string", Description: "Optional assignee (display name or email)"},
				projectParam,
			},
		},
		{
			Name:        "update_work_item",
			Description: "Update fields of an existing work item, optionally adding a comment.",
			Params: []Param{
				{Name: "id", Type: "integer", Required: true, Description: "Work item ID"},
				{Name: "fields", Type: "object", Required: true, Description: "Field reference names to new values, e.g. {\"System.Title\": \"New title\"}"},
				{Name: "comment", Type: "string", Description: "Optional comment added to the discussion"},
			},
		},
		{
			Name:        "assign_work_item",
			Description: "Assign a work item to a user.",
			Params: []Param{
				{Name: "id", Type: "integer", Required: true, Description: "Work item ID"},
				{Name: "assigned_to", Type: "string", Required: true, Description: "Assignee (display name or email)"},
			},
		},
		{
			Name:        "search_work_items",
			Description: "Full-text search across work items.",
			Params: []Param{
				{Name: "search_text", Type: "string", Required: true, Description: "Search text"},
				projectParam,
				topParam,
			},
		},
		{
			Name:        "list_builds",
			Description: "List recent builds of a project.",
			Params:      []Param{projectParam, topParam},
		},
		{
			Name:        "list_build_definitions",
			Description: "List the build (pipeline) definitions of a project.",
			Params:      []Param{projectParam},
		},
		{
			Name:        "list_releases",
			Description: "List recent releases of a project.",
			Params:      []Param{projectParam, topParam},
		},
		{
			Name:        "list_release_definitions",
			Description: "List the release definitions of a project.",
			Params:      []Param{projectParam},
		},
		{
			Name:        "list_repositories",
			Description: "List the Git repositories of a project.",
			Params:      []Param{projectParam},
		},
		{
			Name:        "list_pull_requests",
			Description: "List pull requests of a repository.",
			Params: []Param{
				{Name: "repository_id", Type: "string", Required: true, Description: "Repository name or ID"},
				{Name: "status", Type: "string", Default: "active", Description: "Pull request status: active, completed, abandoned or all (default active)"},
				projectParam,
				topParam,
			},
		},
		{
			Name:        "create_pull_request",
			Description: "Create a pull request between two branches.",
			Params: []Param{
				{Name: "repository_id", Type: "string", Required: true, Description: "Repository name or ID"},
				{Name: "source_branch", Type: "string", Required: true, Description: "Source branch name"},
				{Name: "target_branch", Type: "string", Required: true, Description: "Target branch name"},
				{Name: "title", Type: "string", Required: true, Description: "Pull request title"},
				{Name: "description", Type: "string", Description: "Optional description"},
				projectParam,
			},
		},
		{
			Name:        "list_branches",
			Description: "List the branches of a repository.",
			Params: []Param{
				{Name: "repository_id", Type: "string", Required: true, Description: "Repository name or ID"},
				projectParam,
			},
		},
		{
			Name:        "list_commits",
			Description: "List recent commits of a repository.",
			Params: []Param{
				{Name: "repository_id", Type: "string", Required: true, Description: "Repository name or ID"},
				projectParam,
				topParam,
			},
		},
		{
			Name:        "list_wikis",
			Description: "List the wikis of a project.",
			Params:      []Param{projectParam},
		},
		{
			Name:        "get_wiki_page",
			Description: "Get a wiki page with its content.",
			Params: []Param{
				{Name: "wiki_id", Type: "string", Required: true, Description: "Wiki name or ID"},
				{Name: "path", Type: "string", Required: true, Description: "Page path, e.g. /Home"},
				projectParam,
			},
		},
		{
			Name:        "list_boards",
			Description: "List the boards of a team.",
			Params: []Param{
				{Name: "team", Type: "string", Description: "Team name (defaults to the project's default team)"},
				projectParam,
			},
		},
		{
			Name:        "list_iterations",
			Description: "List the iterations (sprints) of a team.",
			Params: []Param{
				{Name: "team", Type: "string", Description: "Team name (defaults to the project's default team)"},
				projectParam,
			},
		},
		{
			Name:        "list_teams",
			Description: "List the teams of a project.",
			Params:      []Param{projectParam},
		},
		{
			Name:        "list_test_plans",
			Description: "List the test plans of a project.",
			Params:      []Param{projectParam},
		},
		{
			Name:        "list_variable_groups",
			Description: "List the variable groups of a project.",
			Params:      []Param{projectParam},
		},
		{
			Name:        "list_work_item_tags",
			Description: "List the work item tags of a project.",
			Params:      []Param{projectParam},
		},
		{
			Name:        "search_code",
			Description: "Full-text search across repository code.",
			Params: []Param{
				{Name: "search_text", Type: "string", Required: true, Description: "Search text"},
				projectParam,
				topParam,
			},
		},
		{
			Name:        "get_identity",
			Description: "Look up a user or group identity by name or email.",
			Params: []Param{
				{Name: "name", Type: "string", Required: true, Description: "Display name or email to search for"},
			},
		},
		{
			Name:        "list_work_item_types",
			Description: "List the work item types available in a project.",
			Params:      []Param{projectParam},
		},
	}
}
