package geocode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/abhipsabasu/Image-geoprofiling/internal/platform/timeouts"
)

// DefaultNominatimURL is the public OpenStreetMap search endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim resolves places through the OpenStreetMap search API. Country is
// appended to every query to bias results.
type Nominatim struct {
	BaseURL   string
	Country   string
	UserAgent string
	Timeout   time.Duration
	Client    *http.Client
}

func (n *Nominatim) Resolve(ctx context.Context, text string) (Place, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Place{}, ErrNotFound
	}
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = timeouts.Geocode
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	query := text
	if n.Country != "" {
		query = text + ", " + n.Country
	}
	base := strings.TrimRight(n.BaseURL, "/")
	if base == "" {
		base = DefaultNominatimURL
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/search?"+params.Encode(), nil)
	if err != nil {
		return Place{}, fmt.Errorf("build geocode request: %w", err)
	}
	agent := n.UserAgent
	if agent == "" {
		agent = "image-geoprofiling-survey"
	}
	req.Header.Set("User-Agent", agent)
	req.Header.Set("Accept", "application/json")

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Place{}, fmt.Errorf("%w: timed out", ErrUnavailable)
		}
		return Place{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Place{}, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Place{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	result := gjson.ParseBytes(body)
	if !result.IsArray() {
		return Place{}, fmt.Errorf("%w: unexpected response", ErrUnavailable)
	}
	first := result.Get("0")
	if !first.Exists() {
		return Place{}, ErrNotFound
	}
	return Place{
		Lat:  first.Get("lat").Float(),
		Lng:  first.Get("lon").Float(),
		Name: first.Get("display_name").String(),
	}, nil
}
