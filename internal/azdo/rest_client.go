package azdo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const apiVersion = "7.1"

// DefaultTop is the page size used when a caller does not pass one.
const DefaultTop = 10

type restClient struct {
	cfg        Config
	httpClient *http.Client
	authHeader string
}

func newRestClient(cfg Config) *restClient {
	if cfg.CoreBaseURL == "" {
		cfg.CoreBaseURL = fmt.Sprintf("https://dev.azure.com/%s", cfg.Organization)
	}
	if cfg.ReleaseBaseURL == "" {
		cfg.ReleaseBaseURL = fmt.Sprintf("https://vsrm.dev.azure.com/%s", cfg.Organization)
	}
	if cfg.SearchBaseURL == "" {
		cfg.SearchBaseURL = fmt.Sprintf("https://almsearch.dev.azure.com/%s", cfg.Organization)
	}
	if cfg.IdentityBaseURL == "" {
		cfg.IdentityBaseURL = fmt.Sprintf("https://vssps.dev.azure.com/%s", cfg.Organization)
	}

	return &restClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+cfg.PAT)),
	}
}

// project returns the explicit project or falls back to the configured default.
func (c *restClient) project(override string) string {
	if override != "" {
		return override
	}
	return c.cfg.DefaultProject
}

// errNotFound marks a 404 before it is classified as mandatory or optional.
type errNotFound struct{ op string }

func (e *errNotFound) Error() string { return fmt.Sprintf("%s: status 404", e.op) }

// do issues one request and decodes the JSON response into out.
// A 404 is returned as *errNotFound so the caller can apply the
// mandatory/optional policy; every other failure becomes a TransportError.
func (c *restClient) do(ctx context.Context, op, method, rawURL string, body any, contentType string, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", c.authHeader)
	if body != nil {
		if contentType == "" {
			contentType = "application/json"
		}
		req.Header.Set("Content-Type", contentType)
	}

	log.Debug().Str("op", op).Str("method", method).Str("url", rawURL).Msg("Azure DevOps request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &errNotFound{op: op}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			log.Warn().Str("op", op).Int("status", resp.StatusCode).Msg("Azure DevOps authentication failed")
		}
		return &TransportError{Op: op, StatusCode: resp.StatusCode}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// valueList is the standard {count, value} envelope of list responses.
type valueList struct {
	Count int              `json:"count"`
	Value []map[string]any `json:"value"`
}

// getList fetches a list endpoint. A 404 propagates as NotFoundError with the
// given resource name; optional-feature callers go through getOptionalList.
func (c *restClient) getList(ctx context.Context, op, rawURL, resource string) ([]map[string]any, error) {
	var env valueList
	if err := c.do(ctx, op, http.MethodGet, rawURL, nil, "", &env); err != nil {
		if _, ok := err.(*errNotFound); ok {
			return nil, &NotFoundError{Resource: resource}
		}
		return nil, err
	}
	return env.Value, nil
}

// getOptionalList fetches a list endpoint for a feature that may be disabled
// on the project (boards, test plans, variable groups, tags). A 404 there
// means "nothing to list", not an error.
func (c *restClient) getOptionalList(ctx context.Context, op, rawURL string) ([]map[string]any, error) {
	var env valueList
	if err := c.do(ctx, op, http.MethodGet, rawURL, nil, "", &env); err != nil {
		if _, ok := err.(*errNotFound); ok {
			log.Debug().Str("op", op).Msg("Optional feature not enabled, returning empty result")
			return []map[string]any{}, nil
		}
		return nil, err
	}
	return env.Value, nil
}

func (c *restClient) coreURL(project, path string, params url.Values) string {
	return buildURL(c.cfg.CoreBaseURL, project, path, params)
}

func buildURL(base, project, path string, params url.Values) string {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api-version", apiVersion)
	segments := base
	if project != "" {
		segments += "/" + url.PathEscape(project)
	}
	return fmt.Sprintf("%s/%s?%s", segments, path, params.Encode())
}

// --- Projects, teams, identities ---

func (c *restClient) ListProjects(ctx context.Context) ([]map[string]any, error) {
	return c.getList(ctx, "list projects", c.coreURL("", "_apis/projects", nil), "projects")
}

func (c *restClient) ListTeams(ctx context.Context, project string) ([]map[string]any, error) {
	p := url.PathEscape(c.project(project))
	return c.getList(ctx, "list teams", c.coreURL("", "_apis/projects/"+p+"/teams", nil), fmt.Sprintf("project %s", c.project(project)))
}

func (c *restClient) GetIdentity(ctx context.Context, name string) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("searchFilter", "General")
	params.Set("filterValue", name)
	return c.getList(ctx, "get identity", buildURL(c.cfg.IdentityBaseURL, "", "_apis/identities", params), fmt.Sprintf("identity %s", name))
}

// --- Work items ---

func (c *restClient) GetWorkItem(ctx context.Context, id int) (map[string]any, error) {
	params := url.Values{}
	params.Set("$expand", "relations")
	var item map[string]any
	err := c.do(ctx, "get work item", http.MethodGet, c.coreURL("", "_apis/wit/workitems/"+strconv.Itoa(id), params), nil, "", &item)
	if err != nil {
		if _, ok := err.(*errNotFound); ok {
			return nil, &NotFoundError{Resource: fmt.Sprintf("work item %d", id)}
		}
		return nil, err
	}
	return item, nil
}

func (c *restClient) GetWorkItems(ctx context.Context, ids []int) ([]map[string]any, error) {
	if len(ids) == 0 {
		return []map[string]any{}, nil
	}
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = strconv.Itoa(id)
	}
	params := url.Values{}
	params.Set("ids", strings.Join(strIDs, ","))
	return c.getList(ctx, "get work items", c.coreURL("", "_apis/wit/workitems", params), "work items")
}

// QueryWorkItems runs a WIQL query. The protocol is two-step: the query
// returns lightweight references (ids only), full records come from a second
// batch fetch. Zero references skip the batch call entirely.
func (c *restClient) QueryWorkItems(ctx context.Context, wiql, project string, top int) ([]map[string]any, error) {
	if top <= 0 {
		top = DefaultTop
	}
	params := url.Values{}
	params.Set("$top", strconv.Itoa(top))

	var result struct {
		WorkItems []struct {
			ID int `json:"id"`
		} `json:"workItems"`
	}
	err := c.do(ctx, "query work items", http.MethodPost,
		c.coreURL(c.project(project), "_apis/wit/wiql", params),
		map[string]string{"query": wiql}, "", &result)
	if err != nil {
		if _, ok := err.(*errNotFound); ok {
			return nil, &NotFoundError{Resource: fmt.Sprintf("project %s", c.project(project))}
		}
		return nil, err
	}

	if len(result.WorkItems) == 0 {
		return []map[string]any{}, nil
	}

	ids := make([]int, len(result.WorkItems))
	for i, ref := range result.WorkItems {
		ids[i] = ref.ID
	}
	return c.GetWorkItems(ctx, ids)
}

func (c *restClient) ListWorkItemComments(ctx context.Context, id int, project string) ([]map[string]any, error) {
	rawURL := c.coreURL(c.project(project), "_apis/wit/workItems/"+strconv.Itoa(id)+"/comments", nil)
	var result struct {
		Comments []map[string]any `json:"comments"`
	}
	if err := c.do(ctx, "list work item comments", http.MethodGet, rawURL, nil, "", &result); err != nil {
		if _, ok := err.(*errNotFound); ok {
			return nil, &NotFoundError{Resource: fmt.Sprintf("work item %d", id)}
		}
		return nil, err
	}
	return result.Comments, nil
}

func (c *restClient) ListWorkItemTypes(ctx context.Context, project string) ([]map[string]any, error) {
	return c.getList(ctx, "list work item types",
		c.coreURL(c.project(project), "_apis/wit/workitemtypes", nil),
		fmt.Sprintf("project %s", c.project(project)))
}

type patchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func (c *restClient) CreateWorkItem(ctx context.Context, project, workItemType, title, description, assignedTo string) (map[string]any, error) {
	ops := []patchOp{
		{Op: "add", Path: "/fields/System.Title", Value: title},
	}
	if description != "" {
		ops = append(ops, patchOp{Op: "add", Path: "/fields/System.Description", Value: description})
	}
	if assignedTo != "" {
		ops = append(ops, patchOp{Op: "add", Path: "/fields/System.AssignedTo", Value: assignedTo})
	}

	rawURL := c.coreURL(c.project(project), "_apis/wit/workitems/$"+url.PathEscape(workItemType), nil)
	var created map[string]any
	if err := c.do(ctx, "create work item", http.MethodPost, rawURL, ops, "application/json-patch+json", &created); err != nil {
		if _, ok := err.(*errNotFound); ok {
			return nil, &NotFoundError{Resource: fmt.Sprintf("project %s", c.project(project))}
		}
		return nil, err
	}
	log.Info().Str("type", workItemType).Str("title", title).Msg("Created work item")
	return created, nil
}

func (c *restClient) UpdateWorkItem(ctx context.Context, id int, fields map[string]any, comment string) (map[string]any, error) {
	var ops []patchOp
	for field, value := range fields {
		ops = append(ops, patchOp{Op: "add", Path: "/fields/" + field, Value: value})
	}
	if comment != "" {
		ops = append(ops, patchOp{Op: "add", Path: "/fields/System.History", Value: comment})
	}
	return c.patchWorkItem(ctx, "update work item", id, ops)
}

func (c *restClient) AssignWorkItem(ctx context.Context, id int, assignedTo string) (map[string]any, error) {
	ops := []patchOp{
		{Op: "add", Path: "/fields/System.AssignedTo", Value: assignedTo},
	}
	return c.patchWorkItem(ctx, "assign work item", id, ops)
}

func (c *restClient) patchWorkItem(ctx context.Context, op string, id int, ops []patchOp) (map[string]any, error) {
	rawURL := c.coreURL("", "_apis/wit/workitems/"+strconv.Itoa(id), nil)
	var updated map[string]any
	if err := c.do(ctx, op, http.MethodPatch, rawURL, ops, "application/json-patch+json", &updated); err != nil {
		if _, ok := err.(*errNotFound); ok {
			return nil, &NotFoundError{Resource: fmt.Sprintf("work item %d", id)}
		}
		return nil, err
	}
	return updated, nil
}

// --- Builds and releases ---

func (c *restClient) ListBuilds(ctx context.Context, project string, top int) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("$top", strconv.Itoa(normalizeTop(top)))
	return c.getList(ctx, "list builds",
		c.coreURL(c.project(project), "_apis/build/builds", params),
		fmt.Sprintf("project %s", c.project(project)))
}

func (c *restClient) ListBuildDefinitions(ctx context.Context, project string) ([]map[string]any, error) {
	return c.getList(ctx, "list build definitions",
		c.coreURL(c.project(project), "_apis/build/definitions", nil),
		fmt.Sprintf("project %s", c.project(project)))
}

func (c *restClient) ListReleases(ctx context.Context, project string, top int) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("$top", strconv.Itoa(normalizeTop(top)))
	return c.getList(ctx, "list releases",
		buildURL(c.cfg.ReleaseBaseURL, c.project(project), "_apis/release/releases", params),
		fmt.Sprintf("project %s", c.project(project)))
}

func (c *restClient) ListReleaseDefinitions(ctx context.Context, project string) ([]map[string]any, error) {
	return c.getList(ctx, "list release definitions",
		buildURL(c.cfg.ReleaseBaseURL, c.project(project), "_apis/release/definitions", nil),
		fmt.Sprintf("project %s", c.project(project)))
}

// --- Git ---

func (c *restClient) ListRepositories(ctx context.Context, project string) ([]map[string]any, error) {
	return c.getList(ctx, "list repositories",
		c.coreURL(c.project(project), "_apis/git/repositories", nil),
		fmt.Sprintf("project %s", c.project(project)))
}

func (c *restClient) ListPullRequests(ctx context.Context, repositoryID, project, status string, top int) ([]map[string]any, error) {
	if status == "" {
		status = "active"
	}
	params := url.Values{}
	params.Set("searchCriteria.status", status)
	params.Set("$top", strconv.Itoa(normalizeTop(top)))
	return c.getList(ctx, "list pull requests",
		c.coreURL(c.project(project), "_apis/git/repositories/"+url.PathEscape(repositoryID)+"/pullrequests", params),
		fmt.Sprintf("repository %s", repositoryID))
}

func (c *restClient) CreatePullRequest(ctx context.Context, repositoryID, project, sourceBranch, targetBranch, title, description string) (map[string]any, error) {
	body := map[string]any{
		"sourceRefName": refName(sourceBranch),
		"targetRefName": refName(targetBranch),
		"title":         title,
	}
	if description != "" {
		body["description"] = description
	}

	rawURL := c.coreURL(c.project(project), "_apis/git/repositories/"+url.PathEscape(repositoryID)+"/pullrequests", nil)
	var created map[string]any
	if err := c.do(ctx, "create pull request", http.MethodPost, rawURL, body, "", &created); err != nil {
		if _, ok := err.(*errNotFound); ok {
			return nil, &NotFoundError{Resource: fmt.Sprintf("repository %s", repositoryID)}
		}
		return nil, err
	}
	log.Info().Str("repository", repositoryID).Str("title", title).Msg("Created pull request")
	return created, nil
}

func refName(branch string) string {
	if strings.HasPrefix(branch, "refs/") {
		return branch
	}
	return "refs/heads/" + branch
}

func (c *restClient) ListBranches(ctx context.Context, repositoryID, project string) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("filter", "heads/")
	return c.getList(ctx, "list branches",
		c.coreURL(c.project(project), "_apis/git/repositories/"+url.PathEscape(repositoryID)+"/refs", params),
		fmt.Sprintf("repository %s", repositoryID))
}

func (c *restClient) ListCommits(ctx context.Context, repositoryID, project string, top int) ([]map[string]any, error) {
	params := url.Values{}
	params.Set("searchCriteria.$top", strconv.Itoa(normalizeTop(top)))
	return c.getList(ctx, "list commits",
		c.coreURL(c.project(project), "_apis/git/repositories/"+url.PathEscape(repositoryID)+"/commits", params),
		fmt.Sprintf("repository %s", repositoryID))
}

// --- Wikis ---

func (c *restClient) ListWikis(ctx context.Context, project string) ([]map[string]any, error) {
	return c.getList(ctx, "list wikis",
		c.coreURL(c.project(project), "_apis/wiki/wikis", nil),
		fmt.Sprintf("project %s", c.project(project)))
}

func (c *restClient) GetWikiPage(ctx context.Context, wikiID, path, project string) (map[string]any, error) {
	params := url.Values{}
	params.Set("path", path)
	params.Set("includeContent", "true")
	rawURL := c.coreURL(c.project(project), "_apis/wiki/wikis/"+url.PathEscape(wikiID)+"/pages", params)
	var page map[string]any
	if err := c.do(ctx, "get wiki page", http.MethodGet, rawURL, nil, "", &page); err != nil {
		if _, ok := err.(*errNotFound); ok {
			return nil, &NotFoundError{Resource: fmt.Sprintf("wiki page %s", path)}
		}
		return nil, err
	}
	return page, nil
}

// --- Boards, iterations, plans, pipelines config, tags ---
// These features can be disabled per project, so a 404 means "empty", not
// "missing resource".

func (c *restClient) ListBoards(ctx context.Context, team, project string) ([]map[string]any, error) {
	return c.getOptionalList(ctx, "list boards", c.teamURL(team, project, "_apis/work/boards", nil))
}

func (c *restClient) ListIterations(ctx context.Context, team, project string) ([]map[string]any, error) {
	return c.getOptionalList(ctx, "list iterations", c.teamURL(team, project, "_apis/work/teamsettings/iterations", nil))
}

func (c *restClient) teamURL(team, project, path string, params url.Values) string {
	prefix := url.PathEscape(c.project(project))
	if team != "" {
		prefix += "/" + url.PathEscape(team)
	}
	if params == nil {
		params = url.Values{}
	}
	params.Set("api-version", apiVersion)
	return fmt.Sprintf("%s/%s/%s?%s", c.cfg.CoreBaseURL, prefix, path, params.Encode())
}

func (c *restClient) ListTestPlans(ctx context.Context, project string) ([]map[string]any, error) {
	return c.getOptionalList(ctx, "list test plans",
		c.coreURL(c.project(project), "_apis/testplan/plans", nil))
}

func (c *restClient) ListVariableGroups(ctx context.Context, project string) ([]map[string]any, error) {
	return c.getOptionalList(ctx, "list variable groups",
		c.coreURL(c.project(project), "_apis/distributedtask/variablegroups", nil))
}

func (c *restClient) ListWorkItemTags(ctx context.Context, project string) ([]map[string]any, error) {
	return c.getOptionalList(ctx, "list work item tags",
		c.coreURL(c.project(project), "_apis/wit/tags", nil))
}

// --- Search (separate host, same credential) ---

func (c *restClient) SearchCode(ctx context.Context, searchText, project string, top int) ([]map[string]any, error) {
	return c.search(ctx, "search code", "_apis/search/codesearchresults", searchText, project, top)
}

func (c *restClient) SearchWorkItems(ctx context.Context, searchText, project string, top int) ([]map[string]any, error) {
	return c.search(ctx, "search work items", "_apis/search/workitemsearchresults", searchText, project, top)
}

func (c *restClient) search(ctx context.Context, op, path, searchText, project string, top int) ([]map[string]any, error) {
	body := map[string]any{
		"searchText": searchText,
		"$top":       normalizeTop(top),
	}
	if p := c.project(project); p != "" {
		body["filters"] = map[string]any{"Project": []string{p}}
	}

	var result struct {
		Results []map[string]any `json:"results"`
	}
	err := c.do(ctx, op, http.MethodPost, buildURL(c.cfg.SearchBaseURL, "", path, nil), body, "", &result)
	if err != nil {
		// Search is an optional extension on the organization.
		if _, ok := err.(*errNotFound); ok {
			return []map[string]any{}, nil
		}
		return nil, err
	}
	return result.Results, nil
}

func normalizeTop(top int) int {
	if top <= 0 {
		return DefaultTop
	}
	return top
}
