package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"nightrunner/internal/logger"
	"nightrunner/internal/utils"
)

const DefaultAPIBase = "https://api.github.com"

// PRClient talks to the pulls endpoint of the GitHub REST API.
type PRClient struct {
	APIBase string
	Token   string
	HTTP    *http.Client
}

func NewPRClient(token string) *PRClient {
	return &PRClient{
		APIBase: DefaultAPIBase,
		Token:   token,
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// PRResult mirrors what the supervisor records next to a mission result.
type PRResult struct {
	Success bool   `json:"success"`
	Number  int    `json:"number,omitempty"`
	URL     string `json:"url,omitempty"`
	Message string `json:"message"`
}

type pullRequest struct {
	Number  int    `json:"number"`
	HTMLURL string `json:"html_url"`
}

// CreatePR opens a pull request from head into base. When GitHub answers 422
// because one already exists, the open PR for head is returned instead.
func (c *PRClient) CreatePR(ctx context.Context, owner, repo, head, base, title, body string) PRResult {
	if c.Token == "" {
		return PRResult{Message: "GITHUB_TOKEN not set"}
	}
	endpoint := c.pullsURL(owner, repo)
	payload, err := json.Marshal(map[string]string{"title": title, "head": head, "base": base, "body": body})
	if err != nil {
		return PRResult{Message: err.Error()}
	}

	status, respBody, err := c.do(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return PRResult{Message: err.Error()}
	}
	switch status {
	case http.StatusCreated:
		var pr pullRequest
		if err := json.Unmarshal(respBody, &pr); err != nil {
			return PRResult{Message: fmt.Sprintf("decode PR response: %v", err)}
		}
		logger.Log.Printf("[github] created PR #%d for %s/%s %s", pr.Number, owner, repo, head)
		return PRResult{Success: true, Number: pr.Number, URL: pr.HTMLURL, Message: "PR created"}
	case http.StatusUnprocessableEntity:
		if existing, ok := c.existingPR(ctx, owner, repo, head); ok {
			return PRResult{Success: true, Number: existing.Number, URL: existing.HTMLURL, Message: "PR already existed"}
		}
		return PRResult{Message: string(respBody)}
	default:
		return PRResult{Message: fmt.Sprintf("GitHub PR API failed (%d): %s", status, respBody)}
	}
}

func (c *PRClient) existingPR(ctx context.Context, owner, repo, head string) (pullRequest, bool) {
	q := url.Values{}
	q.Set("head", owner+":"+head)
	q.Set("state", "open")
	status, body, err := c.do(ctx, http.MethodGet, c.pullsURL(owner, repo)+"?"+q.Encode(), nil)
	if err != nil || status != http.StatusOK {
		return pullRequest{}, false
	}
	var prs []pullRequest
	if err := json.Unmarshal(body, &prs); err != nil || len(prs) == 0 {
		return pullRequest{}, false
	}
	return prs[0], true
}

func (c *PRClient) pullsURL(owner, repo string) string {
	base := c.APIBase
	if base == "" {
		base = DefaultAPIBase
	}
	return utils.Absolute(base, "/repos/"+url.PathEscape(owner)+"/"+url.PathEscape(repo)+"/pulls")
}

func (c *PRClient) do(ctx context.Context, method, endpoint string, body []byte) (int, []byte, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}
