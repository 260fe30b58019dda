// Package maps wraps the geocoding and routing collaborators: Nominatim for
// address lookup and OSRM for driving distance.
package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/raftaar/raftaar-backend/internal/apperr"
	"github.com/raftaar/raftaar-backend/internal/geo"
)

const (
	DefaultNominatimURL = "https://nominatim.openstreetmap.org"
	DefaultOSRMURL      = "https://router.project-osrm.org"
	DefaultTimeout      = 15 * time.Second
	suggestionLimit     = 5
)

var (
	ErrAddressNotFound = apperr.New(apperr.NotFound, "Unable to fetch coordinates for the address")
	ErrPointNotFound   = apperr.New(apperr.NotFound, "Unable to fetch address for the given coordinates")
	ErrRouteNotFound   = apperr.New(apperr.NotFound, "Unable to fetch distance and time")
	ErrInputRequired   = apperr.New(apperr.Validation, "Input is required")
	ErrEndsRequired    = apperr.New(apperr.Validation, "Origin and destination are required")
	ErrInvalidPoint    = &apperr.Error{Kind: apperr.Validation, Message: "coordinates out of range", Field: "location"}
)

var coordinatePattern = regexp.MustCompile(`^-?\d+(\.\d+)?,-?\d+(\.\d+)?$`)

type Place struct {
	Ltd              float64 `json:"ltd"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formatted_address"`
}

func (p Place) Point() geo.Point { return geo.Point{Lat: p.Ltd, Lng: p.Lng} }

type Route struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
}

type Config struct {
	NominatimURL string
	OSRMURL      string
	Timeout      time.Duration
	UserAgent    string
}

type Client struct {
	httpClient   *http.Client
	nominatimURL string
	osrmURL      string
	userAgent    string
}

func NewClient(cfg Config) *Client {
	if cfg.NominatimURL == "" {
		cfg.NominatimURL = DefaultNominatimURL
	}
	if cfg.OSRMURL == "" {
		cfg.OSRMURL = DefaultOSRMURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "raftaar-backend/1.0"
	}
	return &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		nominatimURL: strings.TrimRight(cfg.NominatimURL, "/"),
		osrmURL:      strings.TrimRight(cfg.OSRMURL, "/"),
		userAgent:    cfg.UserAgent,
	}
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
	} `json:"routes"`
}

// ResolveAddress geocodes free text to its best match.
func (c *Client) ResolveAddress(ctx context.Context, address string) (*Place, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrInputRequired
	}

	q := url.Values{"format": {"json"}, "q": {address}}
	var results []nominatimPlace
	if err := c.getJSON(ctx, c.nominatimURL+"/search?"+q.Encode(), &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrAddressNotFound
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lng, errLng := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLng != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "geocoder returned malformed coordinates", errors.Join(errLat, errLng))
	}
	return &Place{Ltd: lat, Lng: lng, FormattedAddress: results[0].DisplayName}, nil
}

// ResolvePoint reverse geocodes a coordinate.
func (c *Client) ResolvePoint(ctx context.Context, p geo.Point) (*Place, error) {
	if !p.Valid() {
		return nil, ErrInvalidPoint
	}

	q := url.Values{
		"format": {"json"},
		"lat":    {strconv.FormatFloat(p.Lat, 'f', -1, 64)},
		"lon":    {strconv.FormatFloat(p.Lng, 'f', -1, 64)},
	}
	var result nominatimPlace
	if err := c.getJSON(ctx, c.nominatimURL+"/reverse?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	if result.DisplayName == "" {
		return nil, ErrPointNotFound
	}
	return &Place{Ltd: p.Lat, Lng: p.Lng, FormattedAddress: result.DisplayName}, nil
}

// RouteDistanceDuration returns driving distance in meters and duration in
// seconds.
func (c *Client) RouteDistanceDuration(ctx context.Context, origin, destination geo.Point) (*Route, error) {
	if !origin.Valid() || !destination.Valid() {
		return nil, ErrInvalidPoint
	}

	endpoint := fmt.Sprintf("%s/route/v1/driving/%s,%s;%s,%s?overview=false",
		c.osrmURL,
		strconv.FormatFloat(origin.Lng, 'f', -1, 64), strconv.FormatFloat(origin.Lat, 'f', -1, 64),
		strconv.FormatFloat(destination.Lng, 'f', -1, 64), strconv.FormatFloat(destination.Lat, 'f', -1, 64),
	)
	var resp osrmResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		return nil, ErrRouteNotFound
	}
	return &Route{Distance: resp.Routes[0].Distance, Duration: resp.Routes[0].Duration}, nil
}

// Suggestions returns up to five display names matching input.
func (c *Client) Suggestions(ctx context.Context, input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrInputRequired
	}

	q := url.Values{"format": {"json"}, "limit": {strconv.Itoa(suggestionLimit)}, "q": {input}}
	var results []nominatimPlace
	if err := c.getJSON(ctx, c.nominatimURL+"/search?"+q.Encode(), &results); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.DisplayName)
	}
	return out, nil
}

// Coordinates accepts either "lat,lng" (reverse geocoded) or an address.
func (c *Client) Coordinates(ctx context.Context, input string) (*Place, error) {
	if p, ok := ParsePoint(input); ok {
		return c.ResolvePoint(ctx, p)
	}
	return c.ResolveAddress(ctx, input)
}

// DistanceTime routes between two inputs, each either "lat,lng" or an
// address.
func (c *Client) DistanceTime(ctx context.Context, origin, destination string) (*Route, error) {
	if strings.TrimSpace(origin) == "" || strings.TrimSpace(destination) == "" {
		return nil, ErrEndsRequired
	}
	from, err := c.locate(ctx, origin)
	if err != nil {
		return nil, err
	}
	to, err := c.locate(ctx, destination)
	if err != nil {
		return nil, err
	}
	return c.RouteDistanceDuration(ctx, from, to)
}

func (c *Client) locate(ctx context.Context, input string) (geo.Point, error) {
	if p, ok := ParsePoint(input); ok {
		return p, nil
	}
	place, err := c.ResolveAddress(ctx, input)
	if err != nil {
		return geo.Point{}, err
	}
	return place.Point(), nil
}

// ParsePoint recognizes "lat,lng" with optional signs and decimals.
func ParsePoint(input string) (geo.Point, bool) {
	input = strings.TrimSpace(input)
	if !coordinatePattern.MatchString(input) {
		return geo.Point{}, false
	}
	parts := strings.SplitN(input, ",", 2)
	lat, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return geo.Point{}, false
	}
	lng, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return geo.Point{}, false
	}
	return geo.Point{Lat: lat, Lng: lng}, true
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return apperr.Wrap(apperr.UpstreamTimeout, "geocoding service timed out", err)
		}
		return apperr.Wrap(apperr.UpstreamUnavailable, "geocoding service unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apperr.Wrap(apperr.UpstreamUnavailable, "geocoding service unavailable",
			fmt.Errorf("%s returned status %d", req.URL.Host, resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return apperr.Wrap(apperr.UpstreamTimeout, "geocoding service timed out", err)
		}
		return apperr.Wrap(apperr.UpstreamUnavailable, "geocoding service returned malformed data", err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
