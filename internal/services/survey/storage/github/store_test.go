package github

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/tidwall/gjson"

	apperrors "github.com/abhipsabasu/Image-geoprofiling/internal/platform/errors"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/storage"
)

type fakeContents struct {
	mu       sync.Mutex
	files    map[string]string // path -> sha
	putBody  []byte
	putAuth  string
	putCount int
	failPut  int
}

func (f *fakeContents) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	const prefix = "/repos/acme/images/contents/"
	if len(r.URL.Path) <= len(prefix) || r.URL.Path[:len(prefix)] != prefix {
		http.NotFound(w, r)
		return
	}
	path := r.URL.Path[len(prefix):]
	switch r.Method {
	case http.MethodGet:
		sha, ok := f.files[path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"sha":"` + sha + `","path":"` + path + `"}`))
	case http.MethodPut:
		f.putCount++
		f.putAuth = r.Header.Get("Authorization")
		f.putBody, _ = io.ReadAll(r.Body)
		if f.failPut != 0 {
			w.WriteHeader(f.failPut)
			_, _ = w.Write([]byte(`{"message":"Invalid request.\n\n\"sha\" wasn't supplied."}`))
			return
		}
		status := http.StatusCreated
		if _, ok := f.files[path]; ok {
			status = http.StatusOK
		}
		f.files[path] = "sha-" + path
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"content":{"path":"` + path + `","download_url":"https://raw.example/acme/images/main/` + path + `"}}`))
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestStore(t *testing.T, fake *fakeContents) *Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	store, err := New(Config{Token: "tok", Repo: "acme/images", BaseURL: srv.URL, Client: srv.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestPutAssetCreatesFile(t *testing.T) {
	fake := &fakeContents{files: map[string]string{}}
	store := newTestStore(t, fake)

	ref, err := store.PutAsset(context.Background(), "India_images/p_0.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("PutAsset: %v", err)
	}
	if ref != "https://raw.example/acme/images/main/India_images/p_0.png" {
		t.Fatalf("reference = %q", ref)
	}
	if fake.putAuth != "Bearer tok" {
		t.Fatalf("authorization = %q", fake.putAuth)
	}
	content, _ := base64.StdEncoding.DecodeString(gjson.GetBytes(fake.putBody, "content").String())
	if string(content) != "png-bytes" {
		t.Fatalf("content = %q", content)
	}
	if got := gjson.GetBytes(fake.putBody, "branch").String(); got != "main" {
		t.Fatalf("branch = %q, want main", got)
	}
	if gjson.GetBytes(fake.putBody, "sha").Exists() {
		t.Fatal("sha sent for a new file")
	}
}

func TestPutAssetOverwritesWithSHA(t *testing.T) {
	fake := &fakeContents{files: map[string]string{"India_images/p_0.png": "abc123"}}
	store := newTestStore(t, fake)

	if _, err := store.PutAsset(context.Background(), "India_images/p_0.png", []byte("v2")); err != nil {
		t.Fatalf("PutAsset: %v", err)
	}
	if got := gjson.GetBytes(fake.putBody, "sha").String(); got != "abc123" {
		t.Fatalf("sha = %q, want abc123", got)
	}
}

func TestPutAssetFailureStatus(t *testing.T) {
	fake := &fakeContents{files: map[string]string{}, failPut: http.StatusUnprocessableEntity}
	store := newTestStore(t, fake)

	_, err := store.PutAsset(context.Background(), "India_images/p_1.png", []byte("x"))
	var uploadErr *storage.UploadError
	if !errors.As(err, &uploadErr) {
		t.Fatalf("error = %v, want UploadError", err)
	}
	if uploadErr.Status != http.StatusUnprocessableEntity || uploadErr.Key != "India_images/p_1.png" {
		t.Fatalf("upload error = %+v", uploadErr)
	}
	if apperrors.CodeOf(err) != apperrors.CodeUploadFailed {
		t.Fatalf("code = %s", apperrors.CodeOf(err))
	}
}

func TestNewValidatesConfig(t *testing.T) {
	tests := []Config{
		{Token: "t", Repo: "acme"},
		{Token: "t", Repo: "acme/images/extra"},
		{Token: "", Repo: "acme/images"},
	}
	for _, cfg := range tests {
		if _, err := New(cfg); err == nil {
			t.Fatalf("New(%+v) succeeded", cfg)
		}
	}
}
