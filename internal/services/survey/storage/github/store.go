// Package github stores uploaded survey images in a GitHub repository
// through the contents API.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/storage"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint.
	DefaultBaseURL = "https://api.github.com"
	// DefaultBranch receives uploads when none is configured.
	DefaultBranch = "main"

	apiVersion = "2022-11-28"
	userAgent  = "image-geoprofiling-survey"
)

var _ storage.AssetStore = (*Store)(nil)

// Config describes the target repository.
type Config struct {
	Token   string
	Repo    string // owner/name
	Branch  string
	BaseURL string
	Client  *http.Client
}

// Store writes each asset as one file in the repository.
type Store struct {
	token   string
	owner   string
	repo    string
	branch  string
	baseURL string
	client  *http.Client
}

// New validates cfg and returns a store.
func New(cfg Config) (*Store, error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(cfg.Repo), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return nil, fmt.Errorf("github repo must be owner/name, got %q", cfg.Repo)
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("github token is required")
	}
	branch := strings.TrimSpace(cfg.Branch)
	if branch == "" {
		branch = DefaultBranch
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := cfg.Client
	if client == nil {
		client = http.DefaultClient
	}
	return &Store{
		token:   strings.TrimSpace(cfg.Token),
		owner:   owner,
		repo:    repo,
		branch:  branch,
		baseURL: baseURL,
		client:  client,
	}, nil
}

// PutAsset creates or replaces the file at key. An existing file's sha is
// looked up first so a repeated upload overwrites instead of conflicting.
func (s *Store) PutAsset(ctx context.Context, key string, data []byte) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" {
		return "", fmt.Errorf("asset key is required")
	}

	sha, err := s.existingSHA(ctx, key)
	if err != nil {
		return "", err
	}

	payload := map[string]string{
		"message": "Upload " + key,
		"content": base64.StdEncoding.EncodeToString(data),
		"branch":  s.branch,
	}
	if sha != "" {
		payload["sha"] = sha
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal github upload: %w", err)
	}

	status, respBody, err := s.do(ctx, http.MethodPut, s.contentsURL(key), body)
	if err != nil {
		return "", &storage.UploadError{Key: key, Cause: err}
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", &storage.UploadError{Key: key, Status: status, Cause: apiError(respBody)}
	}

	content := gjson.GetBytes(respBody, "content")
	if ref := content.Get("download_url").String(); ref != "" {
		return ref, nil
	}
	if ref := content.Get("path").String(); ref != "" {
		return ref, nil
	}
	return key, nil
}

func (s *Store) existingSHA(ctx context.Context, key string) (string, error) {
	endpoint := s.contentsURL(key) + "?ref=" + url.QueryEscape(s.branch)
	status, body, err := s.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", &storage.UploadError{Key: key, Cause: fmt.Errorf("look up existing file: %w", err)}
	}
	switch status {
	case http.StatusOK:
		return gjson.GetBytes(body, "sha").String(), nil
	case http.StatusNotFound:
		return "", nil
	default:
		return "", &storage.UploadError{Key: key, Status: status, Cause: fmt.Errorf("look up existing file: %w", apiError(body))}
	}
}

func (s *Store) do(ctx context.Context, method, endpoint string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build github request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read github response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func (s *Store) contentsURL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		s.baseURL, url.PathEscape(s.owner), url.PathEscape(s.repo), strings.Join(segments, "/"))
}

func apiError(body []byte) error {
	if msg := gjson.GetBytes(body, "message").String(); msg != "" {
		return errors.New(msg)
	}
	return errors.New("github request failed")
}
