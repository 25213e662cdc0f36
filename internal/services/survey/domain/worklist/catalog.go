package worklist

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/abhipsabasu/Image-geoprofiling/internal/platform/random"
	"github.com/abhipsabasu/Image-geoprofiling/internal/platform/timeouts"
)

// CatalogSource samples rating items from a remote CSV catalog with
// file_path and country columns and an optional frequency column.
type CatalogSource struct {
	// URL of the CSV file.
	URL string
	// BaseURL is prefixed to relative file paths.
	BaseURL string
	// MaxItems caps the sample size. Zero keeps every eligible row.
	MaxItems int

	Client  *http.Client
	Timeout time.Duration
	// Seed overrides random.NewSeed, mainly for tests.
	Seed func() (uint64, error)
}

type catalogRow struct {
	path      string
	country   string
	frequency int
	weighted  bool
}

// Load fetches the catalog and draws a weighted sample without replacement.
// The order of the sample is itself random and fixed for the returned slice.
func (s *CatalogSource) Load(ctx context.Context) ([]WorkItem, error) {
	rows, err := s.fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	seedFn := s.Seed
	if seedFn == nil {
		seedFn = random.NewSeed
	}
	seed, err := seedFn()
	if err != nil {
		return nil, fmt.Errorf("%w: seed sample: %w", ErrDataUnavailable, err)
	}

	sampled := sample(rows, s.MaxItems, seed)
	if len(sampled) == 0 {
		return nil, fmt.Errorf("%w: catalog %s has no eligible rows", ErrDataUnavailable, s.URL)
	}

	items := make([]WorkItem, len(sampled))
	for i, row := range sampled {
		items[i] = WorkItem{
			Index:           i,
			Reference:       s.reference(row.path),
			ExpectedCountry: row.country,
			Frequency:       row.frequency,
		}
	}
	return items, nil
}

func (s *CatalogSource) fetch(ctx context.Context) ([]catalogRow, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = timeouts.CatalogFetch
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch catalog: status %d", resp.StatusCode)
	}
	return parseCatalog(resp.Body)
}

func parseCatalog(r io.Reader) ([]catalogRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read catalog header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	pathCol, ok := col["file_path"]
	if !ok {
		return nil, fmt.Errorf("catalog is missing the file_path column")
	}
	countryCol, ok := col["country"]
	if !ok {
		return nil, fmt.Errorf("catalog is missing the country column")
	}
	freqCol, weighted := col["frequency"]

	var rows []catalogRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog line %d: %w", line, err)
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		row := catalogRow{
			path:     field(record, pathCol),
			country:  field(record, countryCol),
			weighted: weighted,
		}
		if row.path == "" {
			return nil, fmt.Errorf("catalog line %d: empty file_path", line)
		}
		if weighted {
			raw := field(record, freqCol)
			freq, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("catalog line %d: frequency %q: %w", line, raw, err)
			}
			if freq <= 0 {
				continue
			}
			row.frequency = int(freq)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// sample draws up to limit rows without replacement using
// Efraimidis-Spirakis keys log(u)/w. Sorting by key yields a random order in
// which heavier rows tend to come first.
func sample(rows []catalogRow, limit int, seed uint64) []catalogRow {
	rng := random.New(seed)
	type keyed struct {
		row catalogRow
		key float64
	}
	keys := make([]keyed, len(rows))
	for i, row := range rows {
		weight := 1.0
		if row.weighted {
			weight = float64(row.frequency)
			if weight < 1 {
				weight = 1
			}
		}
		u := rng.Float64()
		for u == 0 {
			u = rng.Float64()
		}
		keys[i] = keyed{row: row, key: math.Log(u) / weight}
	}
	slices.SortStableFunc(keys, func(a, b keyed) int {
		switch {
		case a.key > b.key:
			return -1
		case a.key < b.key:
			return 1
		default:
			return 0
		}
	})
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	out := make([]catalogRow, len(keys))
	for i, k := range keys {
		out[i] = k.row
	}
	return out
}

func (s *CatalogSource) reference(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") || s.BaseURL == "" {
		return path
	}
	return strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
