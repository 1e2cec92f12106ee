package azdo

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// capturedRequest keeps the parts of an incoming request the tests assert on.
type capturedRequest struct {
	method      string
	path        string
	query       map[string]string
	contentType string
	auth        string
	body        []byte
}

// newTestClient points every backend host at one httptest server.
func newTestClient(t *testing.T, handler http.Handler) (Client, *[]capturedRequest) {
	t.Helper()

	var requests []capturedRequest
	recorder := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		query := map[string]string{}
		for key := range r.URL.Query() {
			query[key] = r.URL.Query().Get(key)
		}
		requests = append(requests, capturedRequest{
			method:      r.Method,
			path:        r.URL.Path,
			query:       query,
			contentType: r.Header.Get("Content-Type"),
			auth:        r.Header.Get("Authorization"),
			body:        body,
		})
		handler.ServeHTTP(w, r)
	})

	server := httptest.NewServer(recorder)
	t.Cleanup(server.Close)

	client := NewClient(Config{
		Organization:    "fabrikam",
		PAT:             "secret-pat",
		DefaultProject:  "Web",
		CoreBaseURL:     server.URL,
		ReleaseBaseURL:  server.URL,
		SearchBaseURL:   server.URL,
		IdentityBaseURL: server.URL,
	})
	return client, &requests
}

func respondJSON(t *testing.T, w http.ResponseWriter, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func listEnvelope(records ...map[string]any) map[string]any {
	return map[string]any{"count": len(records), "value": records}
}

func TestAuthorizationHeader(t *testing.T) {
	client, requests := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, listEnvelope())
	}))

	if _, err := client.ListProjects(context.Background()); err != nil {
		t.Fatalf("ListProjects: %v", err)
	}

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte(":secret-pat"))
	if got := (*requests)[0].auth; got != want {
		t.Errorf("Authorization = %q, want %q", got, want)
	}
	if got := (*requests)[0].query["api-version"]; got != "7.1" {
		t.Errorf("api-version = %q, want 7.1", got)
	}
}

func TestQueryWorkItemsTwoStep(t *testing.T) {
	client, requests := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			respondJSON(t, w, map[string]any{
				"workItems": []map[string]any{{"id": 7}, {"id": 9}},
			})
			return
		}
		respondJSON(t, w, listEnvelope(
			map[string]any{"id": 7, "fields": map[string]any{"System.Title": "first"}},
			map[string]any{"id": 9, "fields": map[string]any{"System.Title": "second"}},
		))
	}))

	items, err := client.QueryWorkItems(context.Background(), "SELECT [System.Id] FROM WorkItems", "", 10)
	if err != nil {
		t.Fatalf("QueryWorkItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 work items, got %d", len(items))
	}

	if len(*requests) != 2 {
		t.Fatalf("expected query + batch fetch, got %d requests", len(*requests))
	}
	query := (*requests)[0]
	if query.method != http.MethodPost || query.path != "/Web/_apis/wit/wiql" {
		t.Errorf("query request was %s %s", query.method, query.path)
	}
	if query.query["$top"] != "10" {
		t.Errorf("$top = %q, want 10", query.query["$top"])
	}
	batch := (*requests)[1]
	if batch.method != http.MethodGet || batch.path != "/_apis/wit/workitems" {
		t.Errorf("batch request was %s %s", batch.method, batch.path)
	}
	if batch.query["ids"] != "7,9" {
		t.Errorf("batch ids = %q, want 7,9", batch.query["ids"])
	}
}

func TestQueryWorkItemsNoMatchesSkipsBatch(t *testing.T) {
	client, requests := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, map[string]any{"workItems": []map[string]any{}})
	}))

	items, err := client.QueryWorkItems(context.Background(), "SELECT [System.Id] FROM WorkItems", "", 0)
	if err != nil {
		t.Fatalf("QueryWorkItems: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", items)
	}
	if len(*requests) != 1 {
		t.Errorf("expected a single request for an empty query, got %d", len(*requests))
	}
}

func TestOptionalFeature404IsEmpty(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	ctx := context.Background()
	cases := []struct {
		name string
		call func() ([]map[string]any, error)
	}{
		{"boards", func() ([]map[string]any, error) { return client.ListBoards(ctx, "", "") }},
		{"iterations", func() ([]map[string]any, error) { return client.ListIterations(ctx, "", "") }},
		{"test plans", func() ([]map[string]any, error) { return client.ListTestPlans(ctx, "") }},
		{"variable groups", func() ([]map[string]any, error) { return client.ListVariableGroups(ctx, "") }},
		{"tags", func() ([]map[string]any, error) { return client.ListWorkItemTags(ctx, "") }},
		{"code search", func() ([]map[string]any, error) { return client.SearchCode(ctx, "x", "", 10) }},
		{"work item search", func() ([]map[string]any, error) { return client.SearchWorkItems(ctx, "x", "", 10) }},
	}

	for _, tc := range cases {
		got, err := tc.call()
		if err != nil {
			t.Errorf("%s: expected empty result on 404, got error %v", tc.name, err)
			continue
		}
		if got == nil || len(got) != 0 {
			t.Errorf("%s: expected empty non-nil slice, got %v", tc.name, got)
		}
	}
}

func TestMandatory404IsNotFoundError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	ctx := context.Background()

	if _, err := client.GetWorkItem(ctx, 42); !IsNotFound(err) {
		t.Errorf("GetWorkItem: expected NotFoundError, got %v", err)
	}
	if _, err := client.ListProjects(ctx); !IsNotFound(err) {
		t.Errorf("ListProjects: expected NotFoundError, got %v", err)
	}
	if _, err := client.GetWikiPage(ctx, "wiki", "/Home", ""); !IsNotFound(err) {
		t.Errorf("GetWikiPage: expected NotFoundError, got %v", err)
	}
	if _, err := client.ListBuilds(ctx, "Gone", 5); !IsNotFound(err) {
		t.Errorf("ListBuilds: expected NotFoundError, got %v", err)
	}
}

func TestServerErrorIsTransportError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.ListProjects(context.Background())
	te, ok := err.(*TransportError)
	if !ok {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", te.StatusCode)
	}
	if IsNotFound(err) {
		t.Error("a 500 must not classify as not found")
	}
}

func TestDefaultProjectFallback(t *testing.T) {
	client, requests := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, listEnvelope())
	}))

	ctx := context.Background()
	if _, err := client.ListBuilds(ctx, "", 5); err != nil {
		t.Fatalf("ListBuilds: %v", err)
	}
	if _, err := client.ListBuilds(ctx, "Mobile", 5); err != nil {
		t.Fatalf("ListBuilds: %v", err)
	}

	if got := (*requests)[0].path; got != "/Web/_apis/build/builds" {
		t.Errorf("default project path = %q", got)
	}
	if got := (*requests)[1].path; got != "/Mobile/_apis/build/builds" {
		t.Errorf("explicit project path = %q", got)
	}
}

func TestCreateWorkItemPatchDocument(t *testing.T) {
	client, requests := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, map[string]any{"id": 42})
	}))

	created, err := client.CreateWorkItem(context.Background(), "", "Bug", "Login issue", "", "")
	if err != nil {
		t.Fatalf("CreateWorkItem: %v", err)
	}
	if created["id"] != float64(42) {
		t.Errorf("id = %v, want 42", created["id"])
	}

	req := (*requests)[0]
	if req.method != http.MethodPost || req.path != "/Web/_apis/wit/workitems/$Bug" {
		t.Errorf("request was %s %s", req.method, req.path)
	}
	if req.contentType != "application/json-patch+json" {
		t.Errorf("Content-Type = %q", req.contentType)
	}

	var ops []map[string]any
	if err := json.Unmarshal(req.body, &ops); err != nil {
		t.Fatalf("body is not a patch document: %v", err)
	}
	if len(ops) != 1 {
		t.Fatalf("expected only the title op for empty optionals, got %v", ops)
	}
	if ops[0]["path"] != "/fields/System.Title" || ops[0]["value"] != "Login issue" {
		t.Errorf("unexpected title op: %v", ops[0])
	}
}

func TestUpdateWorkItemAddsHistoryComment(t *testing.T) {
	client, requests := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, map[string]any{"id": 5})
	}))

	_, err := client.UpdateWorkItem(context.Background(), 5, map[string]any{"System.State": "Resolved"}, "fixed")
	if err != nil {
		t.Fatalf("UpdateWorkItem: %v", err)
	}

	req := (*requests)[0]
	if req.method != http.MethodPatch || req.path != "/_apis/wit/workitems/5" {
		t.Errorf("request was %s %s", req.method, req.path)
	}

	var ops []map[string]any
	if err := json.Unmarshal(req.body, &ops); err != nil {
		t.Fatalf("body is not a patch document: %v", err)
	}
	paths := map[string]any{}
	for _, op := range ops {
		paths[op["path"].(string)] = op["value"]
	}
	if paths["/fields/System.State"] != "Resolved" {
		t.Errorf("state op missing: %v", ops)
	}
	if paths["/fields/System.History"] != "fixed" {
		t.Errorf("comment must land in System.History: %v", ops)
	}
}

func TestListPullRequestsDefaultsToActive(t *testing.T) {
	client, requests := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, listEnvelope())
	}))

	if _, err := client.ListPullRequests(context.Background(), "web", "", "", 0); err != nil {
		t.Fatalf("ListPullRequests: %v", err)
	}

	req := (*requests)[0]
	if req.query["searchCriteria.status"] != "active" {
		t.Errorf("status = %q, want active", req.query["searchCriteria.status"])
	}
	if req.query["$top"] != "10" {
		t.Errorf("$top = %q, want default 10", req.query["$top"])
	}
}

func TestCreatePullRequestQualifiesBranchNames(t *testing.T) {
	client, requests := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, map[string]any{"pullRequestId": 77})
	}))

	_, err := client.CreatePullRequest(context.Background(), "web", "", "feature/login", "refs/heads/main", "Add login", "")
	if err != nil {
		t.Fatalf("CreatePullRequest: %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal((*requests)[0].body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["sourceRefName"] != "refs/heads/feature/login" {
		t.Errorf("sourceRefName = %v", body["sourceRefName"])
	}
	// Already qualified names pass through untouched.
	if body["targetRefName"] != "refs/heads/main" {
		t.Errorf("targetRefName = %v", body["targetRefName"])
	}
	if _, present := body["description"]; present {
		t.Errorf("empty description must be omitted: %v", body)
	}
}

func TestGetWikiPageRequestsContent(t *testing.T) {
	client, requests := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, map[string]any{"path": "/Home", "content": "# Welcome"})
	}))

	page, err := client.GetWikiPage(context.Background(), "team-wiki", "/Home", "")
	if err != nil {
		t.Fatalf("GetWikiPage: %v", err)
	}
	if page["content"] != "# Welcome" {
		t.Errorf("content = %v", page["content"])
	}

	req := (*requests)[0]
	if req.query["path"] != "/Home" || req.query["includeContent"] != "true" {
		t.Errorf("query = %v", req.query)
	}
}

func TestSearchSendsProjectFilter(t *testing.T) {
	client, requests := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, map[string]any{"results": []map[string]any{{"fileName": "main.go"}}})
	}))

	results, err := client.SearchCode(context.Background(), "handler", "", 5)
	if err != nil {
		t.Fatalf("SearchCode: %v", err)
	}
	if len(results) != 1 || results[0]["fileName"] != "main.go" {
		t.Errorf("results = %v", results)
	}

	var body map[string]any
	if err := json.Unmarshal((*requests)[0].body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["searchText"] != "handler" {
		t.Errorf("searchText = %v", body["searchText"])
	}
	filters, _ := body["filters"].(map[string]any)
	if filters == nil {
		t.Fatalf("project filter missing: %v", body)
	}
	projects, _ := filters["Project"].([]any)
	if len(projects) != 1 || projects[0] != "Web" {
		t.Errorf("Project filter = %v", filters["Project"])
	}
}

func TestGetWorkItemsEmptyIDs(t *testing.T) {
	client, requests := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(t, w, listEnvelope())
	}))

	items, err := client.GetWorkItems(context.Background(), nil)
	if err != nil {
		t.Fatalf("GetWorkItems: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", items)
	}
	if len(*requests) != 0 {
		t.Errorf("no request should be sent for zero ids, got %d", len(*requests))
	}
}
