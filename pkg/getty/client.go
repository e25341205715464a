// Package getty scrapes place candidates from the Getty Thesaurus of
// Geographic Names web interface, which offers no machine API. The
// scrape is tightly coupled to the upstream page layout; all layout
// knowledge lives in parse.go so an upstream change stays contained.
package getty

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the TGN servlet root.
	DefaultBaseURL = "https://www.getty.edu/vow"

	maxPages          = 6
	maxMatches        = 50
	minAltNameMatches = 25

	// Secondary coordinate fetches stop once this much of the run has
	// elapsed, even if items remain.
	defaultRetrievalBudget = 40 * time.Second
)

// ErrServerError is returned when TGN reports an internal failure.
var ErrServerError = eris.New("getty: server error")

// Result is the outcome of a full two-phase search.
type Result struct {
	Places       []Place
	FailedSyntax bool
	TooMany      bool
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient substitutes the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL points the client at a different endpoint.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(base, "/") }
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// WithRetrievalBudget caps the secondary per-item fetch phase.
func WithRetrievalBudget(d time.Duration) Option {
	return func(c *Client) { c.retrievalBudget = d }
}

// Client scrapes the Getty TGN.
type Client struct {
	httpClient      *http.Client
	limiter         *rate.Limiter
	baseURL         string
	retrievalBudget time.Duration
}

// NewClient creates a TGN client. The overall deadline belongs to the
// caller's context; the client's own HTTP timeout only bounds single
// requests.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		limiter:         rate.NewLimiter(2, 1),
		baseURL:         DefaultBaseURL,
		retrievalBudget: defaultRetrievalBudget,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs the preliminary paged listing scrape, then fetches
// coordinates for each candidate until the retrieval budget runs out.
// Alternate-name hits only count when the primary listing is thin.
func (c *Client) Search(ctx context.Context, name string) (*Result, error) {
	result := &Result{}
	var primary, alternates []Place

	for page := 1; page <= maxPages; page++ {
		html, err := c.fetchListing(ctx, name, page)
		if err != nil {
			return nil, err
		}

		parsed := parsePage(html)
		switch {
		case parsed.ServerError:
			return nil, ErrServerError
		case parsed.FailedSyntax:
			result.FailedSyntax = true
			return result, nil
		case parsed.NoResults:
			return result, nil
		case parsed.TooMany:
			result.TooMany = true
			return result, nil
		}

		for _, place := range parsed.Places {
			if place.AltOf != "" {
				alternates = append(alternates, place)
			} else {
				primary = append(primary, place)
			}
		}

		if !parsed.HasMore || len(primary)+len(alternates) >= maxMatches {
			break
		}
		// A sparse page means the tail of the listing; not worth paging on.
		if len(parsed.Places) < 12*page {
			break
		}
	}

	if len(primary) < minAltNameMatches {
		primary = append(primary, alternates...)
	}
	if len(primary) > maxMatches {
		primary = primary[:maxMatches]
	}

	// The budget covers only this loop; however long the preliminary
	// paging took, the coordinate fetches get their full allowance.
	started := time.Now()
	for i := range primary {
		if time.Since(started) > c.retrievalBudget {
			zap.L().Debug("getty retrieval budget exhausted",
				zap.Int("fetched", i), zap.Int("total", len(primary)))
			break
		}
		if err := c.fetchCoordinates(ctx, &primary[i]); err != nil {
			// A single bad record is not worth losing the rest over.
			zap.L().Warn("getty record fetch failed",
				zap.String("id", primary[i].ID), zap.Error(err))
		}
	}

	result.Places = primary
	return result, nil
}

func (c *Client) fetchListing(ctx context.Context, name string, page int) (string, error) {
	params := url.Values{
		"english": {"Y"},
		"find":    {name},
		"place":   {""},
		"nation":  {""},
		"page":    {strconv.Itoa(page)},
	}
	return c.get(ctx, "/TGNServlet", params)
}

// fetchCoordinates pulls the full record for one place and extracts the
// decimal latitude and longitude.
func (c *Client) fetchCoordinates(ctx context.Context, place *Place) error {
	params := url.Values{
		"english":   {"Y"},
		"subjectid": {place.ID},
	}
	html, err := c.get(ctx, "/TGNFullDisplay", params)
	if err != nil {
		return err
	}

	latM := latRe.FindStringSubmatch(html)
	lngM := lngRe.FindStringSubmatch(html)
	if latM == nil || lngM == nil {
		return nil
	}

	lat, err := strconv.ParseFloat(latM[1], 64)
	if err != nil {
		return eris.Wrap(err, "getty: bad latitude")
	}
	lng, err := strconv.ParseFloat(lngM[1], 64)
	if err != nil {
		return eris.Wrap(err, "getty: bad longitude")
	}

	place.Latitude = lat
	place.Longitude = lng
	place.HasCoords = true
	return nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "getty: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return "", eris.Wrap(err, "getty: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "getty: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("getty: returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "getty: read body")
	}
	return string(body), nil
}
