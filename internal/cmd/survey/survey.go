// Package survey parses survey command flags and launches the survey runtime.
package survey

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/abhipsabasu/Image-geoprofiling/internal/platform/cmd"
	"github.com/abhipsabasu/Image-geoprofiling/internal/services/survey/app"
)

// Config holds survey command configuration. Every variable is read with the
// SURVEY_ prefix.
type Config struct {
	HTTPAddr        string `env:"HTTP_ADDR" envDefault:":8080"`
	Variant         string `env:"VARIANT" envDefault:"geolocalization"`
	DefinitionsPath string `env:"DEFINITIONS_PATH"`

	CatalogURL   string `env:"CATALOG_URL" envDefault:"https://raw.githubusercontent.com/abhipsabasu/Image_geoprofiling/main/wikimedia_geo_images_hs.csv"`
	ImageBaseURL string `env:"IMAGE_BASE_URL" envDefault:"https://raw.githubusercontent.com/abhipsabasu/Image_geoprofiling/main/"`

	Sink                 string `env:"SINK" envDefault:"sqlite"`
	DBPath               string `env:"DB_PATH" envDefault:"data/survey.db"`
	FirestoreProject     string `env:"FIRESTORE_PROJECT"`
	FirestoreDatabase    string `env:"FIRESTORE_DATABASE" envDefault:"(default)"`
	FirestoreCredentials string `env:"FIRESTORE_CREDENTIALS"`

	Assets       string `env:"ASSETS" envDefault:"sqlite"`
	GitHubToken  string `env:"GITHUB_TOKEN"`
	GitHubRepo   string `env:"GITHUB_REPO"`
	GitHubBranch string `env:"GITHUB_BRANCH" envDefault:"main"`

	Geocoder     string `env:"GEOCODER" envDefault:"nominatim"`
	NominatimURL string `env:"NOMINATIM_URL"`
	UserAgent    string `env:"USER_AGENT" envDefault:"image-geoprofiling-survey"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"2h"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	err := entrypoint.ParseConfigFromArgs(&cfg, fs, args, func(fs *flag.FlagSet, cfg *Config) {
		fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
		fs.StringVar(&cfg.Variant, "variant", cfg.Variant, "Survey definition id")
		fs.StringVar(&cfg.DefinitionsPath, "definitions", cfg.DefinitionsPath, "YAML file with survey definitions; built-ins when empty")
		fs.StringVar(&cfg.CatalogURL, "catalog-url", cfg.CatalogURL, "CSV catalog of images for rating surveys")
		fs.StringVar(&cfg.Sink, "sink", cfg.Sink, "Submission sink: sqlite or firestore")
		fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The survey SQLite database path")
		fs.StringVar(&cfg.Assets, "assets", cfg.Assets, "Asset store: sqlite or github")
		fs.StringVar(&cfg.Geocoder, "geocoder", cfg.Geocoder, "Geocoder: nominatim, gazetteer or none")
		fs.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "Idle session lifetime")
	})
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the survey runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceSurvey, func(ctx context.Context) error {
		return app.Run(ctx, app.RuntimeConfig{
			HTTPAddr:             cfg.HTTPAddr,
			Variant:              cfg.Variant,
			DefinitionsPath:      cfg.DefinitionsPath,
			CatalogURL:           cfg.CatalogURL,
			ImageBaseURL:         cfg.ImageBaseURL,
			Sink:                 cfg.Sink,
			DBPath:               cfg.DBPath,
			FirestoreProject:     cfg.FirestoreProject,
			FirestoreDatabase:    cfg.FirestoreDatabase,
			FirestoreCredentials: cfg.FirestoreCredentials,
			Assets:               cfg.Assets,
			GitHubToken:          cfg.GitHubToken,
			GitHubRepo:           cfg.GitHubRepo,
			GitHubBranch:         cfg.GitHubBranch,
			Geocoder:             cfg.Geocoder,
			NominatimURL:         cfg.NominatimURL,
			UserAgent:            cfg.UserAgent,
			SessionSecret:        cfg.SessionSecret,
			SessionTTL:           cfg.SessionTTL,
		})
	})
}
