// Package geonames is a client for the GeoNames search and postal-code
// JSON web services.
package geonames

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the free GeoNames endpoint (plain HTTP upstream).
	DefaultBaseURL = "http://api.geonames.org"

	// DefaultUsername identifies this service to GeoNames.
	DefaultUsername = "skyview"

	defaultMaxRows = 100
)

// featureCodes is the allow-list sent with every search: populated
// places and the handful of terrain features worth showing.
var featureCodes = []string{
	"PPL", "PPLA", "PPLA2", "PPLA3", "PPLA4", "PPLC", "PPLG", "PPLL",
	"PPLS", "PPLX", "LK", "ATOL", "ISL", "ISLS", "MT", "MTS", "PK",
	"CAPE", "MILB", "NVB", "OBS",
}

// Place is one candidate from GeoNames, lightly typed but otherwise
// uninterpreted; canonicalization happens upstream.
type Place struct {
	Name        string
	CountryCode string // ISO-3166 alpha-2
	Continent   string // two-letter continent code
	AdminName1  string
	AdminName2  string
	Latitude    float64
	Longitude   float64
	Elevation   int
	Population  int64
	PlaceType   string // "P.PPL"-style feature tag
	GeonameID   int64
	PostalCode  string
	Rank        int
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

// WithUsername sets the GeoNames account name.
func WithUsername(name string) Option {
	return func(c *Client) { c.username = name }
}

// WithRateLimit sets the requests-per-second limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// Client calls the GeoNames web services.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	username   string
}

// NewClient creates a GeoNames client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		limiter:    rate.NewLimiter(4, 1),
		baseURL:    DefaultBaseURL,
		username:   DefaultUsername,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var mtPrefixRe = regexp.MustCompile(`(?i)^mt\b\.?`)

// Search queries searchJSON by name prefix. A leading "Mt" is spelled
// out because GeoNames indexes these names unabbreviated.
func (c *Client) Search(ctx context.Context, city string) ([]Place, error) {
	city = mtPrefixRe.ReplaceAllString(strings.TrimSpace(city), "mount")

	params := url.Values{
		"name_startsWith": {city},
		"maxRows":         {strconv.Itoa(defaultMaxRows)},
		"style":           {"FULL"},
		"username":        {c.username},
	}
	for _, fc := range featureCodes {
		params.Add("featureCode", fc)
	}

	var payload searchResponse
	if err := c.get(ctx, "/searchJSON", params, &payload); err != nil {
		return nil, err
	}
	if payload.Status != nil {
		return nil, eris.Errorf("geonames: service error %d: %s",
			payload.Status.Value, payload.Status.Message)
	}

	places := make([]Place, 0, len(payload.Geonames))
	for _, item := range payload.Geonames {
		place, err := item.toPlace()
		if err != nil {
			return nil, err
		}
		places = append(places, place)
	}
	return places, nil
}

// PostalSearch queries postalCodeSearchJSON for an exact postal code.
func (c *Client) PostalSearch(ctx context.Context, postalCode string) ([]Place, error) {
	params := url.Values{
		"postalcode": {postalCode},
		"maxRows":    {strconv.Itoa(defaultMaxRows)},
		"username":   {c.username},
	}

	var payload postalResponse
	if err := c.get(ctx, "/postalCodeSearchJSON", params, &payload); err != nil {
		return nil, err
	}
	if payload.Status != nil {
		return nil, eris.Errorf("geonames: service error %d: %s",
			payload.Status.Value, payload.Status.Message)
	}

	places := make([]Place, 0, len(payload.PostalCodes))
	for _, item := range payload.PostalCodes {
		places = append(places, Place{
			Name:        item.PlaceName,
			CountryCode: item.CountryCode,
			AdminName1:  item.AdminName1,
			AdminName2:  item.AdminName2,
			Latitude:    item.Lat,
			Longitude:   item.Lng,
			PlaceType:   "P.PPL",
			PostalCode:  item.PostalCode,
		})
	}
	return places, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "geonames: rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return eris.Wrap(err, "geonames: build request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "geonames: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("geonames: returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "geonames: read body")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "geonames: parse response")
	}
	return nil
}

type statusBlock struct {
	Message string `json:"message"`
	Value   int    `json:"value"`
}

type searchResponse struct {
	Status   *statusBlock `json:"status"`
	Geonames []searchItem `json:"geonames"`
}

// searchJSON serializes lat/lng as strings.
type searchItem struct {
	Name        string `json:"name"`
	CountryCode string `json:"countryCode"`
	Continent   string `json:"continentCode"`
	AdminName1  string `json:"adminName1"`
	AdminName2  string `json:"adminName2"`
	Lat         string `json:"lat"`
	Lng         string `json:"lng"`
	Elevation   int    `json:"elevation"`
	Population  int64  `json:"population"`
	Fcl         string `json:"fcl"`
	Fcode       string `json:"fcode"`
	GeonameID   int64  `json:"geonameId"`
}

func (it searchItem) toPlace() (Place, error) {
	lat, err := strconv.ParseFloat(it.Lat, 64)
	if err != nil {
		return Place{}, eris.Wrapf(err, "geonames: bad latitude %q", it.Lat)
	}
	lng, err := strconv.ParseFloat(it.Lng, 64)
	if err != nil {
		return Place{}, eris.Wrapf(err, "geonames: bad longitude %q", it.Lng)
	}

	placeType := it.Fcl + "." + it.Fcode
	return Place{
		Name:        it.Name,
		CountryCode: it.CountryCode,
		Continent:   it.Continent,
		AdminName1:  it.AdminName1,
		AdminName2:  it.AdminName2,
		Latitude:    lat,
		Longitude:   lng,
		Elevation:   it.Elevation,
		Population:  it.Population,
		PlaceType:   placeType,
		GeonameID:   it.GeonameID,
		Rank:        rankFor(placeType, it.Fcode, it.Population),
	}, nil
}

type postalResponse struct {
	Status      *statusBlock `json:"status"`
	PostalCodes []postalItem `json:"postalCodes"`
}

// postalCodeSearchJSON serializes lat/lng as numbers, unlike searchJSON.
type postalItem struct {
	PostalCode  string  `json:"postalCode"`
	PlaceName   string  `json:"placeName"`
	CountryCode string  `json:"countryCode"`
	AdminName1  string  `json:"adminName1"`
	AdminName2  string  `json:"adminName2"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// rankFor scores a place 0..4: populated places start above terrain,
// with bonuses for being a capital and for recorded population.
func rankFor(placeType, fcode string, population int64) int {
	rank := 0
	if strings.HasPrefix(placeType, "P.") || strings.HasPrefix(placeType, "A.") {
		rank = 1
	}
	if fcode == "PPLC" {
		rank++
	}
	if population >= 1 {
		rank++
	}
	if population >= 1_000_000 {
		rank++
	}
	if rank > 4 {
		rank = 4
	}
	return rank
}
