package azdo

import "context"

// Config holds the connection context for one Azure DevOps organization.
// It is resolved once at startup and shared read-only by all client methods.
type Config struct {
	// OrgURL is the organization base URL, e.g. https://dev.azure.com/fabrikam.
	OrgURL         string
	Organization   string
	PAT            string
	DefaultProject string

	// Host overrides. Empty values are derived from Organization; tests point
	// them at an httptest server.
	CoreBaseURL     string
	ReleaseBaseURL  string
	SearchBaseURL   string
	IdentityBaseURL string
}

// Client is the set of remote operations the dispatcher can invoke.
// One method per resource; list methods return records in backend order.
type Client interface {
	ListProjects(ctx context.Context) ([]map[string]any, error)
	GetWorkItem(ctx context.Context, id int) (map[string]any, error)
	GetWorkItems(ctx context.Context, ids []int) ([]map[string]any, error)
	QueryWorkItems(ctx context.Context, wiql, project string, top int) ([]map[string]any, error)
	ListWorkItemComments(ctx context.Context, id int, project string) ([]map[string]any, error)
	ListWorkItemTypes(ctx context.Context, project string) ([]map[string]any, error)
	CreateWorkItem(ctx context.Context, project, workItemType, title, description, assignedTo string) (map[string]any, error)
	UpdateWorkItem(ctx context.Context, id int, fields map[string]any, comment string) (map[string]any, error)
	AssignWorkItem(ctx context.Context, id int, assignedTo string) (map[string]any, error)

	ListBuilds(ctx context.Context, project string, top int) ([]map[string]any, error)
	ListBuildDefinitions(ctx context.Context, project string) ([]map[string]any, error)
	ListReleases(ctx context.Context, project string, top int) ([]map[string]any, error)
	ListReleaseDefinitions(ctx context.Context, project string) ([]map[string]any, error)

	ListRepositories(ctx context.Context, project string) ([]map[string]any, error)
	ListPullRequests(ctx context.Context, repositoryID, project, status string, top int) ([]map[string]any, error)
	CreatePullRequest(ctx context.Context, repositoryID, project, sourceBranch, targetBranch, title, description string) (map[string]any, error)
	ListBranches(ctx context.Context, repositoryID, project string) ([]map[string]any, error)
	ListCommits(ctx context.Context, repositoryID, project string, top int) ([]map[string]any, error)

	ListWikis(ctx context.Context, project string) ([]map[string]any, error)
	GetWikiPage(ctx context.Context, wikiID, path, project string) (map[string]any, error)

	ListBoards(ctx context.Context, team, project string) ([]map[string]any, error)
	ListIterations(ctx context.Context, team, project string) ([]map[string]any, error)
	ListTeams(ctx context.Context, project string) ([]map[string]any, error)
	ListTestPlans(ctx context.Context, project string) ([]map[string]any, error)
	ListVariableGroups(ctx context.Context, project string) ([]map[string]any, error)
	ListWorkItemTags(ctx context.Context, project string) ([]map[string]any, error)

	SearchCode(ctx context.Context, searchText, project string, top int) ([]map[string]any, error)
	SearchWorkItems(ctx context.Context, searchText, project string, top int) ([]map[string]any, error)
	GetIdentity(ctx context.Context, name string) ([]map[string]any, error)
}

// NewClient creates the REST client for the given connection context.
func NewClient(cfg Config) Client {
	return newRestClient(cfg)
}
