// Package app composes the survey runtime from configuration: the survey
// definition, its worklist source, the submission sink, the asset store, the
// geocoder and the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/abhipsabasu/Image-geoprofiling/internal/platform/id"
	"github.com/abhipsabasu/Image-geoprofiling/internal/platform/timeouts"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/questionnaire"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/domain/worklist"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/geocode"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/storage"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/storage/firestore"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/storage/github"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/storage/sqlite"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/web"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/web/sessioncookie"
)

// Backend names accepted by RuntimeConfig.
const (
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
	BackendGitHub    = "github"
	BackendNominatim = "nominatim"
	BackendGazetteer = "gazetteer"
	BackendNone      = "none"
)

// RuntimeConfig is the resolved process configuration.
type RuntimeConfig struct {
	HTTPAddr        string
	Variant         string
	DefinitionsPath string

	CatalogURL   string
	ImageBaseURL string

	Sink                 string
	DBPath               string
	FirestoreProject     string
	FirestoreDatabase    string
	FirestoreCredentials string

	Assets       string
	GitHubToken  string
	GitHubRepo   string
	GitHubBranch string

	Geocoder     string
	NominatimURL string
	UserAgent    string

	SessionSecret string
	SessionTTL    time.Duration
}

// Runtime is a composed survey process.
type Runtime struct {
	Definition questionnaire.Definition
	Registry   *web.Registry
	Server     *web.Server

	closers []func() error
}

// Close releases storage handles.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			log.Printf("close runtime resource: %v", err)
		}
	}
	rt.closers = nil
}

// Run composes the runtime and serves until ctx is cancelled.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	rt, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	go rt.Registry.Run(ctx, 0)
	log.Printf("survey ready variant=%s mode=%s collection=%s", rt.Definition.ID, rt.Definition.Mode, rt.Definition.Collection)
	return rt.Server.ListenAndServe(ctx)
}

// New composes every collaborator named by cfg without serving.
func New(ctx context.Context, cfg RuntimeConfig) (*Runtime, error) {
	def, err := LoadDefinition(cfg.Variant, cfg.DefinitionsPath)
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Definition: def}
	ok := false
	defer func() {
		if !ok {
			rt.Close()
		}
	}()

	source, err := buildSource(def, cfg)
	if err != nil {
		return nil, err
	}
	stores := &storeSet{}
	rt.closers = append(rt.closers, stores.close)
	sink, err := stores.sink(ctx, cfg)
	if err != nil {
		return nil, err
	}
	assets, err := stores.assets(ctx, def, cfg)
	if err != nil {
		return nil, err
	}

	geocoder, err := buildGeocoder(def, cfg)
	if err != nil {
		return nil, err
	}
	secret, err := sessionSecret(cfg.SessionSecret)
	if err != nil {
		return nil, err
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = web.DefaultSessionTTL
	}
	cookies, err := sessioncookie.NewCodec(secret, ttl, nil)
	if err != nil {
		return nil, fmt.Errorf("session cookie: %w", err)
	}

	rt.Registry = web.NewRegistry(def, worklist.NewProvider(source), ttl, nil)
	handler, err := web.NewHandler(web.Config{
		Definition: def,
		Registry:   rt.Registry,
		Cookies:    cookies,
		Sink:       sink,
		Assets:     assets,
		Geocoder:   geocoder,
	})
	if err != nil {
		return nil, fmt.Errorf("compose survey handler: %w", err)
	}
	rt.Server, err = web.NewServer(cfg.HTTPAddr, handler)
	if err != nil {
		return nil, err
	}
	ok = true
	return rt, nil
}

// LoadDefinition returns the named variant from path, or from the built-in
// set when path is empty.
func LoadDefinition(variant, path string) (questionnaire.Definition, error) {
	variant = strings.TrimSpace(variant)
	if variant == "" {
		return questionnaire.Definition{}, errors.New("survey variant is required")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		def, err := questionnaire.Builtin(variant)
		if err != nil {
			return questionnaire.Definition{}, fmt.Errorf("load built-in survey: %w", err)
		}
		return def, nil
	}
	defs, err := questionnaire.LoadFile(path)
	if err != nil {
		return questionnaire.Definition{}, fmt.Errorf("load survey definitions: %w", err)
	}
	for _, def := range defs {
		if def.ID == variant {
			return def, nil
		}
	}
	return questionnaire.Definition{}, fmt.Errorf("survey %q not found in %s", variant, path)
}

func buildSource(def questionnaire.Definition, cfg RuntimeConfig) (worklist.Source, error) {
	switch def.Mode {
	case questionnaire.ModeProcurement:
		return worklist.SlotSource{Count: def.Slots, Country: def.Country}, nil
	default:
		catalogURL := strings.TrimSpace(cfg.CatalogURL)
		if catalogURL == "" {
			return nil, errors.New("catalog url is required for rating surveys")
		}
		return &worklist.CatalogSource{
			URL:      catalogURL,
			BaseURL:  strings.TrimSpace(cfg.ImageBaseURL),
			MaxItems: def.MaxItems,
			Timeout:  timeouts.CatalogFetch,
		}, nil
	}
}

// storeSet shares one SQLite handle between the sink and the asset store.
type storeSet struct {
	sqlite *sqlite.Store
}

func (s *storeSet) close() error {
	if s.sqlite == nil {
		return nil
	}
	err := s.sqlite.Close()
	s.sqlite = nil
	return err
}

func (s *storeSet) openSQLite(ctx context.Context, path string) (*sqlite.Store, error) {
	if s.sqlite != nil {
		return s.sqlite, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open survey store: %w", err)
	}
	s.sqlite = store
	return store, nil
}

func (s *storeSet) sink(ctx context.Context, cfg RuntimeConfig) (storage.SubmissionSink, error) {
	switch backend(cfg.Sink, BackendSQLite) {
	case BackendSQLite:
		store, err := s.openSQLite(ctx, cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendFirestore:
		fsCfg := firestore.Config{
			ProjectID: strings.TrimSpace(cfg.FirestoreProject),
			Database:  strings.TrimSpace(cfg.FirestoreDatabase),
		}
		if path := strings.TrimSpace(cfg.FirestoreCredentials); path != "" {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read firestore credentials: %w", err)
			}
			fsCfg.CredentialsJSON = data
		}
		sink, err := firestore.New(ctx, fsCfg)
		if err != nil {
			return nil, fmt.Errorf("init firestore sink: %w", err)
		}
		return sink, nil
	default:
		return nil, fmt.Errorf("unknown submission sink %q", cfg.Sink)
	}
}

func (s *storeSet) assets(ctx context.Context, def questionnaire.Definition, cfg RuntimeConfig) (storage.AssetStore, error) {
	name := backend(cfg.Assets, BackendSQLite)
	if !hasFileField(def) {
		name = BackendNone
	}
	switch name {
	case BackendNone:
		return nil, nil
	case BackendSQLite:
		store, err := s.openSQLite(ctx, cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case BackendGitHub:
		store, err := github.New(github.Config{
			Token:  strings.TrimSpace(cfg.GitHubToken),
			Repo:   strings.TrimSpace(cfg.GitHubRepo),
			Branch: strings.TrimSpace(cfg.GitHubBranch),
		})
		if err != nil {
			return nil, fmt.Errorf("init github asset store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown asset store %q", cfg.Assets)
	}
}

func buildGeocoder(def questionnaire.Definition, cfg RuntimeConfig) (geocode.Resolver, error) {
	gazetteer := geocode.IndiaGazetteer()
	switch backend(cfg.Geocoder, BackendNominatim) {
	case BackendNone:
		return nil, nil
	case BackendGazetteer:
		return gazetteer, nil
	case BackendNominatim:
		return geocode.Chain{
			&geocode.Nominatim{
				BaseURL:   strings.TrimSpace(cfg.NominatimURL),
				Country:   def.Country,
				UserAgent: strings.TrimSpace(cfg.UserAgent),
				Timeout:   timeouts.Geocode,
			},
			gazetteer,
		}, nil
	default:
		return nil, fmt.Errorf("unknown geocoder %q", cfg.Geocoder)
	}
}

// sessionSecret returns the configured secret or a random one. A random
// secret only invalidates cookies on restart, which the in-memory registry
// does anyway.
func sessionSecret(configured string) (string, error) {
	if secret := strings.TrimSpace(configured); secret != "" {
		return secret, nil
	}
	first, err := id.NewID()
	if err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	second, err := id.NewID()
	if err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	log.Printf("session secret not configured; using an ephemeral secret")
	return first + second, nil
}

func backend(value, fallback string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return fallback
	}
	return value
}

func hasFileField(def questionnaire.Definition) bool {
	for _, field := range def.Fields {
		if field.Kind == questionnaire.KindFile {
			return true
		}
	}
	return false
}
