// Package firestore persists survey submissions through the Firestore REST
// API.
package firestore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/storage"
)

const (
	// DefaultBaseURL is the public Firestore REST endpoint.
	DefaultBaseURL = "https://firestore.googleapis.com/v1"
	// DefaultDatabase is the implicit database of a project.
	DefaultDatabase = "(default)"

	datastoreScope = "https://www.googleapis.com/auth/datastore"
	timestampField = "timestamp"
)

var _ storage.SubmissionSink = (*Sink)(nil)

// Config describes the target project and credentials.
type Config struct {
	ProjectID string
	Database  string
	BaseURL   string
	// CredentialsJSON is a service account key. When empty, application
	// default credentials are used.
	CredentialsJSON []byte
}

// Sink writes one document per participant into the submission's collection.
type Sink struct {
	projectID string
	database  string
	baseURL   string
	client    *http.Client
}

// New builds an authenticated sink.
func New(ctx context.Context, cfg Config) (*Sink, error) {
	var (
		ts        oauth2.TokenSource
		projectID = strings.TrimSpace(cfg.ProjectID)
	)
	if len(cfg.CredentialsJSON) > 0 {
		creds, err := google.CredentialsFromJSON(ctx, cfg.CredentialsJSON, datastoreScope)
		if err != nil {
			return nil, fmt.Errorf("parse firestore credentials: %w", err)
		}
		ts = creds.TokenSource
		if projectID == "" {
			projectID = creds.ProjectID
		}
	} else {
		creds, err := google.FindDefaultCredentials(ctx, datastoreScope)
		if err != nil {
			return nil, fmt.Errorf("find default credentials: %w", err)
		}
		ts = creds.TokenSource
		if projectID == "" {
			projectID = creds.ProjectID
		}
	}
	if projectID == "" {
		return nil, fmt.Errorf("firestore project id is required")
	}
	cfg.ProjectID = projectID
	return NewWithClient(cfg, oauth2.NewClient(ctx, ts)), nil
}

// NewWithClient builds a sink over an already authenticated client.
func NewWithClient(cfg Config, client *http.Client) *Sink {
	if client == nil {
		client = http.DefaultClient
	}
	database := strings.TrimSpace(cfg.Database)
	if database == "" {
		database = DefaultDatabase
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Sink{
		projectID: strings.TrimSpace(cfg.ProjectID),
		database:  database,
		baseURL:   baseURL,
		client:    client,
	}
}

// UpsertSubmission replaces the participant's document. The timestamp field
// is set by the server at commit time.
func (s *Sink) UpsertSubmission(ctx context.Context, sub storage.Submission) error {
	collection := strings.TrimSpace(sub.Collection)
	participantID := strings.TrimSpace(sub.ParticipantID)
	if collection == "" {
		return fmt.Errorf("collection is required")
	}
	if participantID == "" {
		return fmt.Errorf("participant id is required")
	}

	doc := storage.Document(sub)
	delete(doc, timestampField)
	body, err := json.Marshal(map[string]any{
		"writes": []any{map[string]any{
			"update": map[string]any{
				"name":   s.documentName(collection, participantID),
				"fields": encodeFields(doc),
			},
			"updateTransforms": []any{map[string]any{
				"fieldPath":        timestampField,
				"setToServerValue": "REQUEST_TIME",
			}},
		}},
	})
	if err != nil {
		return fmt.Errorf("marshal firestore commit: %w", err)
	}

	endpoint := fmt.Sprintf("%s/projects/%s/databases/%s/documents:commit", s.baseURL, s.projectID, s.database)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build firestore request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("firestore commit: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read firestore response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := gjson.GetBytes(respBody, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("firestore commit: status %d: %s", resp.StatusCode, msg)
	}
	if !gjson.GetBytes(respBody, "commitTime").Exists() {
		return fmt.Errorf("firestore commit: response has no commit time")
	}
	return nil
}

func (s *Sink) documentName(collection, participantID string) string {
	return fmt.Sprintf("projects/%s/databases/%s/documents/%s/%s",
		s.projectID, s.database, collection, url.PathEscape(participantID))
}
