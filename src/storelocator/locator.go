// Package storelocator finds shops near the delivery site using the
// OpenStreetMap Overpass API.
package storelocator

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

const (
	DefaultOverpassURL = "http://overpass-api.de/api/interpreter"
	DefaultRadius      = 1000 // meters

	DefaultLat = 48.12364444691372
	DefaultLon = 11.600215507421492

	earthRadiusMeters = 6371008.8
)

// DefaultShopKinds are the OSM shop tag values queried when none are configured.
var DefaultShopKinds = []string{"supermarket", "convenience", "hardware", "doityourself"}

// ErrNoStores is returned by Nearest when nothing is within the radius.
var ErrNoStores = errors.New("no stores found within radius")

// Config holds configuration for the locator.
type Config struct {
	OverpassURL string
	Lat         float64
	Lon         float64
	Radius      int
	ShopKinds   []string
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// Store is a shop near the site.
type Store struct {
	ID       int64
	Name     string
	Kind     string
	Phone    string
	Address  string
	Lat      float64
	Lon      float64
	Distance float64 // meters from the site
}

// URL links the node on openstreetmap.org.
func (s Store) URL() string {
	return fmt.Sprintf("https://www.openstreetmap.org/node/%d", s.ID)
}

// Locator queries Overpass.
type Locator struct {
	config Config
	logger *slog.Logger
}

// New creates a Locator, filling unset fields with defaults.
func New(config Config) *Locator {
	if config.OverpassURL == "" {
		config.OverpassURL = DefaultOverpassURL
	}
	if config.Lat == 0 && config.Lon == 0 {
		config.Lat, config.Lon = DefaultLat, DefaultLon
	}
	if config.Radius <= 0 {
		config.Radius = DefaultRadius
	}
	if len(config.ShopKinds) == 0 {
		config.ShopKinds = DefaultShopKinds
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Locator{config: config, logger: config.Logger.With("component", "storelocator")}
}

// Query builds the Overpass QL query for the configured site.
func (l *Locator) Query() string {
	var b strings.Builder
	b.WriteString("[out:json];(")
	for _, kind := range l.config.ShopKinds {
		fmt.Fprintf(&b, `node["shop"=%q](around:%d,%s,%s);`, kind, l.config.Radius,
			formatCoord(l.config.Lat), formatCoord(l.config.Lon))
	}
	b.WriteString(");out body;")
	return b.String()
}

func formatCoord(v float64) string {
	return fmt.Sprintf("%.7f", v)
}

type overpassResponse struct {
	Elements []struct {
		Type string            `json:"type"`
		ID   int64             `json:"id"`
		Lat  float64           `json:"lat"`
		Lon  float64           `json:"lon"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// Find returns stores around the site sorted nearest first.
func (l *Locator) Find(ctx context.Context) ([]Store, error) {
	u := l.config.OverpassURL + "?data=" + url.QueryEscape(l.Query())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.config.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("overpass error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode overpass response: %w", err)
	}

	stores := make([]Store, 0, len(out.Elements))
	for _, el := range out.Elements {
		if el.Type != "" && el.Type != "node" {
			continue
		}
		name := el.Tags["name"]
		if name == "" {
			name = "Unnamed Store"
		}
		phone := el.Tags["phone"]
		if phone == "" {
			phone = el.Tags["contact:phone"]
		}
		stores = append(stores, Store{
			ID:       el.ID,
			Name:     name,
			Kind:     el.Tags["shop"],
			Phone:    phone,
			Address:  address(el.Tags),
			Lat:      el.Lat,
			Lon:      el.Lon,
			Distance: Distance(l.config.Lat, l.config.Lon, el.Lat, el.Lon),
		})
	}
	slices.SortStableFunc(stores, func(a, b Store) int { return cmp.Compare(a.Distance, b.Distance) })

	l.logger.Debug("stores located", "count", len(stores), "radius", l.config.Radius)
	return stores, nil
}

// Nearest returns the closest store, or ErrNoStores.
func (l *Locator) Nearest(ctx context.Context) (*Store, error) {
	stores, err := l.Find(ctx)
	if err != nil {
		return nil, err
	}
	if len(stores) == 0 {
		return nil, fmt.Errorf("%w (%d m)", ErrNoStores, l.config.Radius)
	}
	return &stores[0], nil
}

func address(tags map[string]string) string {
	street := strings.TrimSpace(tags["addr:street"] + " " + tags["addr:housenumber"])
	city := strings.TrimSpace(tags["addr:postcode"] + " " + tags["addr:city"])
	switch {
	case street != "" && city != "":
		return street + ", " + city
	case street != "":
		return street
	default:
		return city
	}
}

// Distance is the great-circle distance in meters between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLon := rad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}
