package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"realty_crm_backend/internal/geo"
	"realty_crm_backend/platform/config"
	"realty_crm_backend/platform/logger"

	"golang.org/x/time/rate"
)

const userAgent = "RealtyCRMMatching/1.0"

// ErrNoResult is returned by Geocode when Nominatim finds nothing usable.
var ErrNoResult = errors.New("address not found")

// Service queries a Nominatim instance. Requests are throttled to one per
// second, the public instance's usage limit.
type Service struct {
	baseURL      string
	countryCodes string
	client       *http.Client
	limiter      *rate.Limiter
	log          *logger.Logger
}

func NewService(cfg config.GeocodingConfig, log *logger.Logger) *Service {
	return &Service{
		baseURL:      strings.TrimRight(cfg.GetNominatimURL(), "/"),
		countryCodes: cfg.GetGeocodeCountryCodes(),
		client:       &http.Client{Timeout: 5 * time.Second},
		limiter:      rate.NewLimiter(rate.Every(time.Second), 1),
		log:          log,
	}
}

func (s *Service) SearchAddress(ctx context.Context, query string) ([]AddressSuggestion, error) {
	raw, err := s.search(ctx, query, 5)
	if err != nil {
		return nil, err
	}

	suggestions := make([]AddressSuggestion, 0, len(raw))
	for _, r := range raw {
		suggestion, ok := buildSuggestion(r)
		if !ok {
			continue
		}

		suggestions = append(suggestions, suggestion)
	}

	return suggestions, nil
}

// Geocode resolves a free-form address to a point. City is appended to the
// query when the address does not already mention it.
func (s *Service) Geocode(ctx context.Context, address, city string) (geo.Point, error) {
	query := strings.TrimSpace(address)
	if c := strings.TrimSpace(city); c != "" && !strings.Contains(strings.ToLower(query), strings.ToLower(c)) {
		if query != "" {
			query += ", "
		}
		query += c
	}
	if query == "" {
		return geo.Point{}, ErrNoResult
	}

	raw, err := s.search(ctx, query, 1)
	if err != nil {
		return geo.Point{}, err
	}
	for _, r := range raw {
		if p, ok := parsePoint(r.Lat, r.Lon); ok {
			return p, nil
		}
	}
	return geo.Point{}, ErrNoResult
}

func (s *Service) search(ctx context.Context, query string, limit int) ([]nominatimResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Add("q", query)
	params.Add("format", "json")
	params.Add("addressdetails", "1")
	params.Add("limit", strconv.Itoa(limit))
	if s.countryCodes != "" {
		params.Add("countrycodes", s.countryCodes)
	}

	reqURL := fmt.Sprintf("%s/search?%s", s.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "pt-BR")

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Error("nominatim request failed", "error", err)
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		s.log.Error("nominatim upstream error", "status", resp.StatusCode)
		return nil, fmt.Errorf("upstream api error: %d", resp.StatusCode)
	}

	var rawResults []nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&rawResults); err != nil {
		s.log.Error("failed to decode nominatim payload", "error", err)
		return nil, err
	}
	return rawResults, nil
}

func parsePoint(lat, lon string) (geo.Point, bool) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return geo.Point{}, false
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return geo.Point{}, false
	}
	p := geo.Point{Lat: la, Lng: lo}
	return p, p.Valid()
}

func buildSuggestion(raw nominatimResponse) (AddressSuggestion, bool) {
	if raw.Address.Road == "" {
		return AddressSuggestion{}, false
	}

	city := pickCity(raw.Address)
	if city == "" {
		return AddressSuggestion{}, false
	}

	p, ok := parsePoint(raw.Lat, raw.Lon)
	if !ok {
		return AddressSuggestion{}, false
	}

	suggestion := AddressSuggestion{
		Street:       raw.Address.Road,
		HouseNumber:  raw.Address.HouseNumber,
		Neighborhood: pickNeighborhood(raw.Address),
		ZipCode:      raw.Address.Postcode,
		City:         city,
		State:        raw.Address.State,
		Lat:          p.Lat,
		Lon:          p.Lng,
	}

	suggestion.Label = buildLabel(suggestion)

	return suggestion, true
}

func pickCity(address nominatimAddress) string {
	if address.City != "" {
		return address.City
	}
	if address.Town != "" {
		return address.Town
	}
	if address.Village != "" {
		return address.Village
	}
	if address.Municipality != "" {
		return address.Municipality
	}
	return address.Hamlet
}

func pickNeighborhood(address nominatimAddress) string {
	if address.Suburb != "" {
		return address.Suburb
	}
	if address.Neighbourhood != "" {
		return address.Neighbourhood
	}
	return address.CityDistrict
}

// buildLabel formats "Rua X, 123 - Bairro, Cidade".
func buildLabel(s AddressSuggestion) string {
	label := s.Street
	if s.HouseNumber != "" {
		label += ", " + s.HouseNumber
	}
	if s.Neighborhood != "" {
		label += " - " + s.Neighborhood
	}
	return label + ", " + s.City
}
