// Package sqlite provides a SQLite-backed submission sink and asset store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	sqlitemigrate "github.com/abhipsabasu/Image-geoprofiling/internal/platform/storage/sqlitemigrate"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/storage"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/storage/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// ReferencePrefix starts every asset reference this store returns.
const ReferencePrefix = "sqlite://assets/"

var (
	_ storage.SubmissionSink = (*Store)(nil)
	_ storage.AssetStore     = (*Store)(nil)
)

// Store persists submissions and assets in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// StoredSubmission is a persisted submission read back from the store.
type StoredSubmission struct {
	Collection    string
	ParticipantID string
	ResponseCount int
	Document      map[string]any
	SubmittedAt   time.Time
	UpdatedAt     time.Time
}

// StoredAsset is a persisted asset read back from the store.
type StoredAsset struct {
	Key         string
	Content     []byte
	ContentType string
	UpdatedAt   time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite survey store and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// UpsertSubmission replaces the submission for the same collection and
// participant.
func (s *Store) UpsertSubmission(ctx context.Context, sub storage.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	collection := strings.TrimSpace(sub.Collection)
	participantID := strings.TrimSpace(sub.ParticipantID)
	if collection == "" {
		return fmt.Errorf("collection is required")
	}
	if participantID == "" {
		return fmt.Errorf("participant id is required")
	}
	submittedAt := sub.Timestamp.UTC()
	if submittedAt.IsZero() {
		submittedAt = s.now().UTC()
	}
	sub.Timestamp = submittedAt

	documentJSON, err := json.Marshal(storage.Document(sub))
	if err != nil {
		return fmt.Errorf("marshal submission document: %w", err)
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO submissions (
		   collection,
		   participant_id,
		   birth_country,
		   residence_country,
		   privacy,
		   response_count,
		   document_json,
		   submitted_at,
		   updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(collection, participant_id) DO UPDATE SET
		   birth_country = excluded.birth_country,
		   residence_country = excluded.residence_country,
		   privacy = excluded.privacy,
		   response_count = excluded.response_count,
		   document_json = excluded.document_json,
		   submitted_at = excluded.submitted_at,
		   updated_at = excluded.updated_at`,
		collection,
		participantID,
		sub.Consent.BirthCountry,
		sub.Consent.ResidenceCountry,
		sub.Consent.Privacy,
		len(sub.Responses),
		string(documentJSON),
		toMillis(submittedAt),
		toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("upsert submission: %w", err)
	}
	return nil
}

// GetSubmission returns one persisted submission.
func (s *Store) GetSubmission(ctx context.Context, collection, participantID string) (StoredSubmission, error) {
	if err := ctx.Err(); err != nil {
		return StoredSubmission{}, err
	}
	if s == nil || s.sqlDB == nil {
		return StoredSubmission{}, fmt.Errorf("storage is not configured")
	}

	var (
		out          StoredSubmission
		documentJSON string
		submittedAt  int64
		updatedAt    int64
	)
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT collection, participant_id, response_count, document_json, submitted_at, updated_at
		 FROM submissions
		 WHERE collection = ? AND participant_id = ?`,
		strings.TrimSpace(collection),
		strings.TrimSpace(participantID),
	).Scan(&out.Collection, &out.ParticipantID, &out.ResponseCount, &documentJSON, &submittedAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredSubmission{}, storage.ErrNotFound
		}
		return StoredSubmission{}, fmt.Errorf("get submission: %w", err)
	}
	if err := json.Unmarshal([]byte(documentJSON), &out.Document); err != nil {
		return StoredSubmission{}, fmt.Errorf("decode submission document: %w", err)
	}
	out.SubmittedAt = fromMillis(submittedAt)
	out.UpdatedAt = fromMillis(updatedAt)
	return out, nil
}

// PutAsset stores data under key, replacing any earlier content.
func (s *Store) PutAsset(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.sqlDB == nil {
		return "", fmt.Errorf("storage is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("asset key is required")
	}
	if len(data) == 0 {
		return "", &storage.UploadError{Key: key, Status: http.StatusBadRequest, Cause: errors.New("empty asset")}
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO assets (asset_key, content, size_bytes, content_type, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(asset_key) DO UPDATE SET
		   content = excluded.content,
		   size_bytes = excluded.size_bytes,
		   content_type = excluded.content_type,
		   updated_at = excluded.updated_at`,
		key,
		data,
		len(data),
		http.DetectContentType(data),
		toMillis(s.now()),
	)
	if err != nil {
		return "", fmt.Errorf("put asset: %w", err)
	}
	return ReferencePrefix + key, nil
}

// GetAsset returns one stored asset.
func (s *Store) GetAsset(ctx context.Context, key string) (StoredAsset, error) {
	if err := ctx.Err(); err != nil {
		return StoredAsset{}, err
	}
	if s == nil || s.sqlDB == nil {
		return StoredAsset{}, fmt.Errorf("storage is not configured")
	}
	key = strings.TrimPrefix(strings.TrimSpace(key), ReferencePrefix)

	var (
		out       StoredAsset
		updatedAt int64
	)
	err := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT asset_key, content, content_type, updated_at FROM assets WHERE asset_key = ?`,
		key,
	).Scan(&out.Key, &out.Content, &out.ContentType, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredAsset{}, storage.ErrNotFound
		}
		return StoredAsset{}, fmt.Errorf("get asset: %w", err)
	}
	out.UpdatedAt = fromMillis(updatedAt)
	return out, nil
}
