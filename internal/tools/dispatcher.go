package tools

import (
	"context"
	"fmt"

	"azdo-mcp/internal/azdo"

	"github.com/rs/zerolog/log"
)

// UnknownToolError signals a tool name that is not in the registry.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// MissingArgumentError signals an absent required parameter. It is raised
// before any backend call is attempted.
type MissingArgumentError struct {
	Tool  string
	Param string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("%s: missing required argument: %s", e.Tool, e.Param)
}

type binding struct {
	descriptor Descriptor
	invoke     func(ctx context.Context, args Args) (any, error)
}

// Dispatcher routes (tool name, arguments) to the matching client call. It is
// built once from the registry; a registry entry without an invoke function
// (or vice versa) fails construction, so registry and routing table stay in
// sync by design.
type Dispatcher struct {
	client   azdo.Client
	bindings map[string]binding
	order    []string
}

// NewDispatcher builds the routing table for the given client.
func NewDispatcher(client azdo.Client) (*Dispatcher, error) {
	d := &Dispatcher{
		client:   client,
		bindings: make(map[string]binding),
	}

	invokers := d.invokers()
	for _, desc := range Registry() {
		if _, dup := d.bindings[desc.Name]; dup {
			return nil, fmt.Errorf("duplicate tool name in registry: %s", desc.Name)
		}
		invoke, ok := invokers[desc.Name]
		if !ok {
			return nil, fmt.Errorf("tool %s has no dispatcher binding", desc.Name)
		}
		d.bindings[desc.Name] = binding{descriptor: desc, invoke: invoke}
		d.order = append(d.order, desc.Name)
		delete(invokers, desc.Name)
	}
	for name := range invokers {
		return nil, fmt.Errorf("dispatcher binding %s has no registry entry", name)
	}

	return d, nil
}

// ToolNames returns the routable tool names in registry order.
func (d *Dispatcher) ToolNames() []string {
	return d.order
}

// Dispatch validates the arguments against the tool's schema and invokes
// exactly one backend call. The raw payload is returned unformatted;
// rendering is the formatter's job.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args Args) (any, error) {
	b, ok := d.bindings[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	if args == nil {
		args = Args{}
	}

	for _, p := range b.descriptor.Params {
		if p.Required && !args.has(p.Name) {
			return nil, &MissingArgumentError{Tool: name, Param: p.Name}
		}
	}

	log.Debug().Str("tool", name).Msg("Dispatching tool call")
	return b.invoke(ctx, args)
}

// invokers maps each tool name to its client call. Argument extraction order
// matches the client method's parameter order; that order is part of each
// tool's contract.
func (d *Dispatcher) invokers() map[string]func(ctx context.Context, args Args) (any, error) {
	c := d.client
	return map[string]func(ctx context.Context, args Args) (any, error){
		"list_projects": func(ctx context.Context, args Args) (any, error) {
			return c.ListProjects(ctx)
		},
		"get_work_item": func(ctx context.Context, args Args) (any, error) {
			return c.GetWorkItem(ctx, args.integer("id", 0))
		},
		"query_work_items": func(ctx context.Context, args Args) (any, error) {
			return c.QueryWorkItems(ctx, args.str("wiql", ""), args.str("project", ""), args.integer("top", azdo.DefaultTop))
		},
		"list_work_item_comments": func(ctx context.Context, args Args) (any, error) {
			return c.ListWorkItemComments(ctx, args.integer("id", 0), args.str("project", ""))
		},
		"create_work_item": func(ctx context.Context, args Args) (any, error) {
			return c.CreateWorkItem(ctx, args.str("project", ""), args.str("work_item_type", ""),
				args.str("title", ""), args.str("description", ""), args.str("assigned_to", ""))
		},
		"update_work_item": func(ctx context.Context, args Args) (any, error) {
			return c.UpdateWorkItem(ctx, args.integer("id", 0), args.object("fields"), args.str("comment", ""))
		},
		"assign_work_item": func(ctx context.Context, args Args) (any, error) {
			return c.AssignWorkItem(ctx, args.integer("id", 0), args.str("assigned_to", ""))
		},
		"search_work_items": func(ctx context.Context, args Args) (any, error) {
			return c.SearchWorkItems(ctx, args.str("search_text", ""), args.str("project", ""), args.integer("top", azdo.DefaultTop))
		},
		"list_builds": func(ctx context.Context, args Args) (any, error) {
			return c.ListBuilds(ctx, args.str("project", ""), args.integer("top", azdo.DefaultTop))
		},
		"list_build_definitions": func(ctx context.Context, args Args) (any, error) {
			return c.ListBuildDefinitions(ctx, args.str("project", ""))
		},
		"list_releases": func(ctx context.Context, args Args) (any, error) {
			return c.ListReleases(ctx, args.str("project", ""), args.integer("top", azdo.DefaultTop))
		},
		"list_release_definitions": func(ctx context.Context, args Args) (any, error) {
			return c.ListReleaseDefinitions(ctx, args.str("project", ""))
		},
		"list_repositories": func(ctx context.Context, args Args) (any, error) {
			return c.ListRepositories(ctx, args.str("project", ""))
		},
		"list_pull_requests": func(ctx context.Context, args Args) (any, error) {
			return c.ListPullRequests(ctx, args.str("repository_id", ""), args.str("project", ""),
				args.str("status", "active"), args.integer("top", azdo.DefaultTop))
		},
		"create_pull_request": func(ctx context.Context, args Args) (any, error) {
			return c.CreatePullRequest(ctx, args.str("repository_id", ""), args.str("project", ""),
				args.str("source_branch", ""), args.str("target_branch", ""),
				args.str("title", ""), args.str("description", ""))
		},
		"list_branches": func(ctx context.Context, args Args) (any, error) {
			return c.ListBranches(ctx, args.str("repository_id", ""), args.str("project", ""))
		},
		"list_commits": func(ctx context.Context, args Args) (any, error) {
			return c.ListCommits(ctx, args.str("repository_id", ""), args.str("project", ""), args.integer("top", azdo.DefaultTop))
		},
		"list_wikis": func(ctx context.Context, args Args) (any, error) {
			return c.ListWikis(ctx, args.str("project", ""))
		},
		"get_wiki_page": func(ctx context.Context, args Args) (any, error) {
			return c.GetWikiPage(ctx, args.str("wiki_id", ""), args.str("path", ""), args.str("project", ""))
		},
		"list_boards": func(ctx context.Context, args Args) (any, error) {
			return c.ListBoards(ctx, args.str("team", ""), args.str("project", ""))
		},
		"list_iterations": func(ctx context.Context, args Args) (any, error) {
			return c.ListIterations(ctx, args.str("team", ""), args.str("project", ""))
		},
		"list_teams": func(ctx context.Context, args Args) (any, error) {
			return c.ListTeams(ctx, args.str("project", ""))
		},
		"list_test_plans": func(ctx context.Context, args Args) (any, error) {
			return c.ListTestPlans(ctx, args.str("project", ""))
		},
		"list_variable_groups": func(ctx context.Context, args Args) (any, error) {
			return c.ListVariableGroups(ctx, args.str("project", ""))
		},
		"list_work_item_tags": func(ctx context.Context, args Args) (any, error) {
			return c.ListWorkItemTags(ctx, args.str("project", ""))
		},
		"search_code": func(ctx context.Context, args Args) (any, error) {
			return c.SearchCode(ctx, args.str("search_text", ""), args.str("project", ""), args.integer("top", azdo.DefaultTop))
		},
		"get_identity": func(ctx context.Context, args Args) (any, error) {
			return c.GetIdentity(ctx, args.str("name", ""))
		},
		"list_work_item_types": func(ctx context.Context, args Args) (any, error) {
			return c.ListWorkItemTypes(ctx, args.str("project", ""))
		},
	}
}
