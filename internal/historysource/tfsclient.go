package historysource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/techsola/tfvc-migrator/internal/migerr"
	"github.com/techsola/tfvc-migrator/internal/topology"
)

const apiVersion = "7.1"
const httpTimeout = 60 * time.Second

// TFSClient is the concrete History Source (§6) over an Azure
// DevOps/TFS project collection's TFVC REST API, authenticated with a
// personal access token, in the stdlib net/http + encoding/json client
// style used throughout the pack (e.g. the GitHub REST client in
// stefanom-schmux's internal/github/client.go).
type TFSClient struct {
	collectionURL string
	pat           string
	httpClient    *http.Client
}

// NewTFSClient returns a TFSClient against collectionURL, authenticated
// via HTTP Basic auth with an empty username and pat as the password (the
// convention Azure DevOps/TFS REST APIs use for PAT auth). pat may be
// empty for an anonymous/public collection.
func NewTFSClient(collectionURL, pat string) *TFSClient {
	return &TFSClient{
		collectionURL: collectionURL,
		pat:           pat,
		httpClient:    &http.Client{Timeout: httpTimeout},
	}
}

func (c *TFSClient) newRequest(ctx context.Context, method, apiPath string, query url.Values) (*http.Request, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", apiVersion)

	u := fmt.Sprintf("%s/_apis/%s?%s", c.collectionURL, apiPath, query.Encode())
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	if c.pat != "" {
		req.SetBasicAuth("", c.pat)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do issues req and classifies the outcome: network failures and 5xx
// responses are TransientIO (retried by RetryingSource); 4xx responses are
// Configuration (bad root path, expired/invalid PAT, and the like are not
// worth retrying).
func (c *TFSClient) do(req *http.Request) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, migerr.Wrap(migerr.TransientIO, fmt.Errorf("tfs request %s: %w", req.URL, err))
	}
	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, migerr.Wrap(migerr.TransientIO, fmt.Errorf("tfs request %s: status %d: %s", req.URL, resp.StatusCode, body))
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, migerr.New(migerr.Configuration, fmt.Sprintf("tfs request %s: status %d: %s", req.URL, resp.StatusCode, body))
	}
	return resp, nil
}

type tfsIdentityRef struct {
	DisplayName string `json:"displayName"`
	UniqueName  string `json:"uniqueName"`
}

type tfsChangesetEnvelope struct {
	Value []struct {
		ChangesetID int            `json:"changesetId"`
		Author      tfsIdentityRef `json:"author"`
		CheckedInBy tfsIdentityRef `json:"checkedInBy"`
		CreatedDate time.Time      `json:"createdDate"`
		Comment     string         `json:"comment"`
	} `json:"value"`
}

func (c *TFSClient) ListChangesets(ctx context.Context, rootPath string, min, max int) ([]ChangesetMeta, error) {
	query := url.Values{"searchCriteria.itemPath": {rootPath}, "$top": {"10000"}}
	if min > 0 {
		query.Set("searchCriteria.fromId", strconv.Itoa(min))
	}
	if max > 0 {
		query.Set("searchCriteria.toId", strconv.Itoa(max))
	}
	req, err := c.newRequest(ctx, http.MethodGet, "tfvc/changesets", query)
	if err != nil {
		return nil, migerr.Wrap(migerr.TransientIO, err)
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env tfsChangesetEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, migerr.Wrap(migerr.TransientIO, fmt.Errorf("decoding changesets: %w", err))
	}

	out := make([]ChangesetMeta, len(env.Value))
	for i, v := range env.Value {
		out[i] = ChangesetMeta{
			ChangesetID: v.ChangesetID,
			Author:      firstNonEmpty(v.Author.UniqueName, v.Author.DisplayName),
			CheckedInBy: firstNonEmpty(v.CheckedInBy.UniqueName, v.CheckedInBy.DisplayName),
			CreatedDate: v.CreatedDate,
			Comment:     v.Comment,
		}
	}
	// The API already returns changesets in ascending order for a
	// searchCriteria-bounded query, but sort defensively since §6 requires
	// ascending order from this call.
	sortChangesetsAscending(out)
	return out, nil
}

func sortChangesetsAscending(metas []ChangesetMeta) {
	for i := 1; i < len(metas); i++ {
		for j := i; j > 0 && metas[j-1].ChangesetID > metas[j].ChangesetID; j-- {
			metas[j-1], metas[j] = metas[j], metas[j-1]
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type tfsItemRef struct {
	Path             string `json:"path"`
	IsFolder         bool   `json:"isFolder"`
	IsBranch         bool   `json:"isBranch"`
	IsSymLink        bool   `json:"isSymLink"`
	Size             int64  `json:"size"`
	HashValue        string `json:"hashValue"`
	ChangesetVersion int    `json:"changesetVersion"`
}

type tfsMergeSource struct {
	ServerItem string `json:"serverItem"`
	VersionTo  int    `json:"versionTo"`
	IsRename   bool   `json:"isRename"`
}

type tfsChangeEnvelope struct {
	Changes []struct {
		Item             tfsItemRef       `json:"item"`
		ChangeType       string           `json:"changeType"`
		SourceServerItem *string          `json:"sourceServerItem"`
		MergeSources     []tfsMergeSource `json:"mergeSources"`
	} `json:"changes"`
}

var changeFlagsByWord = map[string]topology.ChangeFlags{
	"add":          topology.Add,
	"edit":         topology.Edit,
	"encoding":     topology.Encoding,
	"rename":       topology.Rename,
	"delete":       topology.Delete,
	"undelete":     topology.Undelete,
	"branch":       topology.Branch,
	"merge":        topology.Merge,
	"lock":         topology.Lock,
	"rollback":     topology.Rollback,
	"sourcerename": topology.SourceRename,
	"targetrename": topology.TargetRename,
	"property":     topology.Property,
}

// parseChangeFlags parses TFS's "," or ", "-joined change-type string (e.g.
// "branch, edit") into the bitset.
func parseChangeFlags(s string) topology.ChangeFlags {
	var out topology.ChangeFlags
	word := ""
	flush := func() {
		if f, ok := changeFlagsByWord[normalizeWord(word)]; ok {
			out |= f
		}
		word = ""
	}
	for _, r := range s {
		if r == ',' {
			flush()
			continue
		}
		if r == ' ' {
			continue
		}
		word += string(r)
	}
	flush()
	return out
}

func normalizeWord(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}

func (c *TFSClient) ListChangesetChanges(ctx context.Context, changesetID int) ([]Change, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("tfvc/changesets/%d/changes", changesetID), nil)
	if err != nil {
		return nil, migerr.Wrap(migerr.TransientIO, err)
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env tfsChangeEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, migerr.Wrap(migerr.TransientIO, fmt.Errorf("decoding changeset %d changes: %w", changesetID, err))
	}

	out := make([]Change, len(env.Changes))
	for i, v := range env.Changes {
		mergeSources := make([]topology.MergeSource, len(v.MergeSources))
		for j, m := range v.MergeSources {
			mergeSources[j] = topology.MergeSource{ServerItem: m.ServerItem, VersionTo: m.VersionTo, IsRename: m.IsRename}
		}
		out[i] = Change{
			Item: Item{
				Path: v.Item.Path, ChangesetVersion: v.Item.ChangesetVersion, IsFolder: v.Item.IsFolder,
				IsBranch: v.Item.IsBranch, IsSymbolicLink: v.Item.IsSymLink, Size: v.Item.Size, Hash: v.Item.HashValue,
			},
			ChangeType:       parseChangeFlags(v.ChangeType),
			SourceServerItem: v.SourceServerItem,
			MergeSources:     mergeSources,
		}
	}
	return out, nil
}

type tfsItemEnvelope struct {
	Value []tfsItemRef `json:"value"`
}

func (c *TFSClient) ListItems(ctx context.Context, scopePaths []string, changeset int) ([]Item, error) {
	var out []Item
	for _, scope := range scopePaths {
		query := url.Values{
			"scopePath":               {scope},
			"recursionLevel":          {"Full"},
			"versionDescriptor.version": {strconv.Itoa(changeset)},
			"versionDescriptor.versionType": {"changeset"},
			"includeLinks":            {"true"},
		}
		req, err := c.newRequest(ctx, http.MethodGet, "tfvc/items", query)
		if err != nil {
			return nil, migerr.Wrap(migerr.TransientIO, err)
		}
		resp, err := c.do(req)
		if err != nil {
			return nil, err
		}

		var env tfsItemEnvelope
		decodeErr := json.NewDecoder(resp.Body).Decode(&env)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, migerr.Wrap(migerr.TransientIO, fmt.Errorf("decoding items under %s@%d: %w", scope, changeset, decodeErr))
		}

		for _, v := range env.Value {
			out = append(out, Item{
				Path: v.Path, ChangesetVersion: v.ChangesetVersion, IsFolder: v.IsFolder,
				IsBranch: v.IsBranch, IsSymbolicLink: v.IsSymLink, Size: v.Size, Hash: v.HashValue,
			})
		}
	}
	return out, nil
}

func (c *TFSClient) FetchContent(ctx context.Context, path string, changeset int) (io.ReadCloser, error) {
	query := url.Values{
		"path":                          {path},
		"versionDescriptor.version":     {strconv.Itoa(changeset)},
		"versionDescriptor.versionType": {"changeset"},
		"$format":                       {"octetStream"},
	}
	req, err := c.newRequest(ctx, http.MethodGet, "tfvc/items", query)
	if err != nil {
		return nil, migerr.Wrap(migerr.TransientIO, err)
	}
	req.Header.Set("Accept", "application/octet-stream")
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

type tfsLabelEnvelope struct {
	Value []struct {
		Name  string `json:"name"`
		Scope string `json:"labelScope"`
		ID    string `json:"id"`
	} `json:"value"`
}

func (c *TFSClient) ListLabels(ctx context.Context, rootPath string) ([]Label, error) {
	query := url.Values{"requestData.labelScope": {rootPath}, "requestData.maxItemCount": {"10000"}}
	req, err := c.newRequest(ctx, http.MethodGet, "tfvc/labels", query)
	if err != nil {
		return nil, migerr.Wrap(migerr.TransientIO, err)
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env tfsLabelEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, migerr.Wrap(migerr.TransientIO, fmt.Errorf("decoding labels: %w", err))
	}

	out := make([]Label, len(env.Value))
	for i, v := range env.Value {
		out[i] = Label{Name: v.Name, OwnerPath: v.Scope, LabelItemsID: v.ID}
	}
	return out, nil
}

type tfsLabelItemsEnvelope struct {
	Value []struct {
		Items []struct {
			ChangesetVersion int `json:"changesetVersion"`
		} `json:"items"`
	} `json:"value"`
}

// LabelItems returns the highest item changeset version fixed by label:
// the changeset its items were pinned against (§6 "the changeset a label's
// items were fixed against").
func (c *TFSClient) LabelItems(ctx context.Context, label Label) (int, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("tfvc/labels/%s/items", label.LabelItemsID), nil)
	if err != nil {
		return 0, migerr.Wrap(migerr.TransientIO, err)
	}
	resp, err := c.do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var env tfsLabelItemsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return 0, migerr.Wrap(migerr.TransientIO, fmt.Errorf("decoding label %s items: %w", label.Name, err))
	}

	max := 0
	for _, v := range env.Value {
		for _, item := range v.Items {
			if item.ChangesetVersion > max {
				max = item.ChangesetVersion
			}
		}
	}
	return max, nil
}

var _ Source = (*TFSClient)(nil)
