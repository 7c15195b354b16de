package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"realty_crm_backend/internal/events"
	"realty_crm_backend/internal/geo"
	"realty_crm_backend/internal/matching/domain"
	"realty_crm_backend/internal/matching/engine"
	"realty_crm_backend/internal/matching/repository"
	"realty_crm_backend/internal/matching/scoring"
	"realty_crm_backend/internal/matching/transport"
	"realty_crm_backend/platform/apperr"
	"realty_crm_backend/platform/logger"

	"github.com/google/uuid"
)

const testClient = "acme"

func ptr[T any](v T) *T { return &v }

type fakeStore struct {
	mu         sync.Mutex
	cfg        *domain.ClientConfig
	properties []domain.Property
	leads      []domain.Lead
	upserted   []domain.MatchRecord
	upsertErr  error
	stored     []repository.StoredMatch
	stats      repository.Stats

	lastQuery  repository.PropertyQuery
	lastStages []string
	leadLoads  int
}

func (f *fakeStore) ListActiveProperties(_ context.Context, clientID string, q repository.PropertyQuery) ([]domain.Property, error) {
	f.lastQuery = q
	var out []domain.Property
	for _, p := range f.properties {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) GetProperty(_ context.Context, clientID string, id uuid.UUID) (domain.Property, error) {
	for _, p := range f.properties {
		if p.ID == id && p.ClientID == clientID {
			return p, nil
		}
	}
	return domain.Property{}, repository.ErrNotFound
}

func (f *fakeStore) ListEligibleLeads(_ context.Context, _ string, stages []string) ([]domain.Lead, error) {
	f.mu.Lock()
	f.leadLoads++
	f.mu.Unlock()
	f.lastStages = stages
	return f.leads, nil
}

func (f *fakeStore) ListLeadsInterestedIn(_ context.Context, _ string, op domain.OperationType) ([]domain.Lead, error) {
	var out []domain.Lead
	for _, l := range f.leads {
		if l.Interested(op) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) LeadClientID(_ context.Context, leadID uuid.UUID) (string, error) {
	for _, l := range f.leads {
		if l.ID == leadID {
			return l.ClientID, nil
		}
	}
	return "", repository.ErrNotFound
}

func (f *fakeStore) GetClientConfig(ctx context.Context, _ string) (*domain.ClientConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.cfg, nil
}

func (f *fakeStore) UpsertMatch(_ context.Context, m domain.MatchRecord) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserted = append(f.upserted, m)
	return nil
}

func (f *fakeStore) ListLeadMatches(context.Context, uuid.UUID) ([]repository.StoredMatch, error) {
	return f.stored, nil
}

func (f *fakeStore) ClientStats(_ context.Context, _ string, stages []string) (repository.Stats, error) {
	f.lastStages = stages
	return f.stats, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type fakeArchive struct {
	body []byte
	err  error
}

func (a *fakeArchive) Archive(_ context.Context, clientID string, startedAt time.Time, body []byte) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	a.body = body
	return clientID + "/" + startedAt.UTC().Format("20060102T150405Z") + ".json", nil
}

type locatingArchive struct {
	fakeArchive
	latest string
}

func (a *locatingArchive) LatestKey(context.Context, string) (string, error) {
	return a.latest, nil
}

func (a *locatingArchive) DownloadURL(_ context.Context, key string) (string, time.Time, error) {
	return "https://minio.local/match-reports/" + key, time.Date(2026, 3, 2, 8, 15, 0, 0, time.UTC), nil
}

func enabledConfig() *domain.ClientConfig {
	return &domain.ClientConfig{
		ClientID:            testClient,
		Name:                "Acme Imoveis",
		SaleEnabled:         true,
		RentalEnabled:       true,
		DefaultRadiusKm:     3,
		AutoMatchingEnabled: true,
		WhatsAppEnabled:     true,
	}
}

func buyer() domain.Lead {
	return domain.Lead{
		ID:            uuid.New(),
		ClientID:      testClient,
		Name:          "Ana",
		Phone:         "+5511999990000",
		WantsSale:     true,
		Center:        &geo.Point{Lat: -23.5505, Lng: -46.6333},
		RadiusKm:      ptr(3.0),
		PropertyType:  domain.TypeApartment,
		BedroomsMin:   2,
		SaleBudgetMin: ptr(300000.0),
		SaleBudgetMax: ptr(500000.0),
		Stage:         domain.StageVisitScheduled,
	}
}

func apartment(lat, lng, price float64) domain.Property {
	return domain.Property{
		ID:           uuid.New(),
		ClientID:     testClient,
		Code:         "AP-1",
		Neighborhood: "Se",
		Operation:    domain.OperationSale,
		Type:         domain.TypeApartment,
		Location:     &geo.Point{Lat: lat, Lng: lng},
		Bedrooms:     3,
		SalePrice:    &price,
		Active:       true,
	}
}

func newService(store *fakeStore, bus *recordingBus, opts ...Option) *Service {
	s := New(store, engine.New(scoring.Default()), bus, logger.Nop(), opts...)
	s.now = func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) }
	return s
}

func TestRunClientWithoutConfigDoesNothing(t *testing.T) {
	store := &fakeStore{leads: []domain.Lead{buyer()}}
	bus := &recordingBus{}

	resp, err := newService(store, bus).RunClient(context.Background(), testClient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != string(engine.StatusClientNotFound) {
		t.Fatalf("expected client_not_found, got %s", resp.Status)
	}
	if store.leadLoads != 0 {
		t.Fatalf("expected no lead loads, got %d", store.leadLoads)
	}
	if len(bus.events) != 0 {
		t.Fatalf("expected no events, got %d", len(bus.events))
	}
}

func TestRunClientDisabled(t *testing.T) {
	cfg := enabledConfig()
	cfg.AutoMatchingEnabled = false
	store := &fakeStore{cfg: cfg, leads: []domain.Lead{buyer()}}

	resp, err := newService(store, &recordingBus{}).RunClient(context.Background(), testClient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != string(engine.StatusDisabled) {
		t.Fatalf("expected disabled, got %s", resp.Status)
	}
}

func TestRunClientSavesMatchesAndPublishes(t *testing.T) {
	lead := buyer()
	near := apartment(-23.5520, -46.6330, 450000)
	far := apartment(-23.7000, -46.6330, 450000)
	store := &fakeStore{cfg: enabledConfig(), leads: []domain.Lead{lead}, properties: []domain.Property{near, far}}
	bus := &recordingBus{}
	archive := &fakeArchive{}

	resp, err := newService(store, bus, WithReportArchive(archive)).RunClient(context.Background(), testClient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != string(engine.StatusCompleted) {
		t.Fatalf("expected completed, got %s", resp.Status)
	}
	if resp.MatchesFound != 1 || resp.MatchesSaved != 1 {
		t.Fatalf("expected 1 match found and saved, got %d/%d", resp.MatchesFound, resp.MatchesSaved)
	}
	if len(store.upserted) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(store.upserted))
	}
	rec := store.upserted[0]
	if rec.LeadID != lead.ID || rec.PropertyID != near.ID || rec.Trigger != domain.TriggerBatch {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Score != 97.9 {
		t.Fatalf("expected score 97.9, got %.1f", rec.Score)
	}
	if len(store.lastStages) != len(domain.DefaultEligibleStages) {
		t.Fatalf("expected default stages, got %v", store.lastStages)
	}

	if resp.ReportKey != "acme/20260302T080000Z.json" {
		t.Fatalf("unexpected report key %q", resp.ReportKey)
	}
	var archived transport.RunResponse
	if err := json.Unmarshal(archive.body, &archived); err != nil {
		t.Fatalf("archived body is not JSON: %v", err)
	}
	if len(archived.Results) != 1 || archived.Results[0].LeadID != lead.ID {
		t.Fatalf("unexpected archived results %+v", archived.Results)
	}

	if len(bus.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(bus.events))
	}
	done, ok := bus.events[0].(events.MatchingCompleted)
	if !ok {
		t.Fatalf("expected MatchingCompleted, got %T", bus.events[0])
	}
	if done.ClientName != "Acme Imoveis" || done.ReportKey != resp.ReportKey {
		t.Fatalf("unexpected event %+v", done)
	}
	if len(done.TopMatches) != 1 || done.TopMatches[0].LeadName != "Ana" {
		t.Fatalf("unexpected top matches %+v", done.TopMatches)
	}
}

func TestRunClientKeepsGoingWhenUpsertFails(t *testing.T) {
	store := &fakeStore{
		cfg:        enabledConfig(),
		leads:      []domain.Lead{buyer()},
		properties: []domain.Property{apartment(-23.5520, -46.6330, 450000)},
		upsertErr:  errors.New("connection reset"),
	}
	archive := &fakeArchive{err: errors.New("bucket missing")}

	resp, err := newService(store, &recordingBus{}, WithReportArchive(archive)).RunClient(context.Background(), testClient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.MatchesFound != 1 || resp.MatchesSaved != 0 {
		t.Fatalf("expected 1 found and 0 saved, got %d/%d", resp.MatchesFound, resp.MatchesSaved)
	}
	if resp.ReportKey != "" {
		t.Fatalf("expected no report key, got %q", resp.ReportKey)
	}
}

func TestRunClientUsesConfiguredStages(t *testing.T) {
	store := &fakeStore{cfg: enabledConfig()}
	stages := []string{"hot"}

	if _, err := newService(store, &recordingBus{}, WithEligibleStages(stages)).RunClient(context.Background(), testClient); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.lastStages) != 1 || store.lastStages[0] != "hot" {
		t.Fatalf("expected configured stages, got %v", store.lastStages)
	}
}

func TestLeadsForPropertyDoesNotStore(t *testing.T) {
	lead := buyer()
	prop := apartment(-23.5520, -46.6330, 450000)
	store := &fakeStore{cfg: enabledConfig(), leads: []domain.Lead{lead}, properties: []domain.Property{prop}}
	bus := &recordingBus{}

	resp, err := newService(store, bus).LeadsForProperty(context.Background(), testClient, prop.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Leads) != 1 || resp.Leads[0].Reason != domain.ReasonNewProperty {
		t.Fatalf("unexpected leads %+v", resp.Leads)
	}
	if len(store.upserted) != 0 || len(bus.events) != 0 {
		t.Fatalf("expected a read-only lookup")
	}
}

func TestHandleNewPropertyStoresAndAnnounces(t *testing.T) {
	lead := buyer()
	prop := apartment(-23.5520, -46.6330, 450000)
	store := &fakeStore{cfg: enabledConfig(), leads: []domain.Lead{lead}, properties: []domain.Property{prop}}
	bus := &recordingBus{}

	resp, err := newService(store, bus).HandleNewProperty(context.Background(), testClient, prop.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Leads) != 1 {
		t.Fatalf("expected 1 lead, got %d", len(resp.Leads))
	}
	if len(store.upserted) != 1 || store.upserted[0].Trigger != domain.TriggerNewProperty {
		t.Fatalf("unexpected upserts %+v", store.upserted)
	}
	if len(bus.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(bus.events))
	}
	e, ok := bus.events[0].(events.NewPropertyMatched)
	if !ok {
		t.Fatalf("expected NewPropertyMatched, got %T", bus.events[0])
	}
	if !e.WhatsAppEnabled || len(e.Leads) != 1 || e.Leads[0].Phone != lead.Phone {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestHandleNewPropertyWithoutCoordinates(t *testing.T) {
	prop := apartment(0, 0, 450000)
	prop.Location = nil
	store := &fakeStore{cfg: enabledConfig(), leads: []domain.Lead{buyer()}, properties: []domain.Property{prop}}
	bus := &recordingBus{}

	resp, err := newService(store, bus).HandleNewProperty(context.Background(), testClient, prop.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Geolocated || len(resp.Leads) != 0 || len(bus.events) != 0 {
		t.Fatalf("expected an empty result, got %+v", resp)
	}
}

func TestLeadsForUnknownProperty(t *testing.T) {
	store := &fakeStore{cfg: enabledConfig()}

	_, err := newService(store, &recordingBus{}).LeadsForProperty(context.Background(), testClient, uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSearchNearbyFiltersAndOrders(t *testing.T) {
	closest := apartment(-23.5510, -46.6333, 400000)
	second := apartment(-23.5600, -46.6333, 420000)
	outside := apartment(-23.6000, -46.6333, 420000)
	rental := apartment(-23.5506, -46.6333, 0)
	rental.Operation = domain.OperationRental
	rental.SalePrice = nil
	rental.MonthlyTotal = ptr(3000.0)
	store := &fakeStore{properties: []domain.Property{outside, second, rental, closest}}

	req := transport.NearbyRequest{
		Latitude:  ptr(-23.5505),
		Longitude: ptr(-46.6333),
		Operation: "venda",
		PriceMax:  450000,
	}
	resp, err := newService(store, &recordingBus{}).SearchNearby(context.Background(), testClient, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.RadiusKm != 3 {
		t.Fatalf("expected default radius 3, got %v", resp.RadiusKm)
	}
	if resp.Total != 2 {
		t.Fatalf("expected 2 properties, got %d", resp.Total)
	}
	if resp.Properties[0].PropertyID != closest.ID || resp.Properties[1].PropertyID != second.ID {
		t.Fatalf("unexpected order %+v", resp.Properties)
	}
	if store.lastQuery.Box == nil {
		t.Fatalf("expected a coverage box prefilter")
	}
	if store.lastQuery.Operation == nil || *store.lastQuery.Operation != domain.OperationSale {
		t.Fatalf("expected sale prefilter, got %v", store.lastQuery.Operation)
	}
}

func TestSearchNearbyUsesClientRadius(t *testing.T) {
	near := apartment(-23.5510, -46.6333, 400000)
	fourKm := apartment(-23.5865, -46.6333, 400000)
	cfg := enabledConfig()
	cfg.DefaultRadiusKm = 5
	store := &fakeStore{cfg: cfg, properties: []domain.Property{near, fourKm}}
	svc := newService(store, &recordingBus{})

	req := transport.NearbyRequest{Latitude: ptr(-23.5505), Longitude: ptr(-46.6333)}
	resp, err := svc.SearchNearby(context.Background(), testClient, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.RadiusKm != 5 || resp.Total != 2 {
		t.Fatalf("expected both listings within the client radius of 5 km, got radius=%v total=%d", resp.RadiusKm, resp.Total)
	}

	req.RadiusKm = 1
	resp, err = svc.SearchNearby(context.Background(), testClient, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.RadiusKm != 1 || resp.Total != 1 {
		t.Fatalf("expected the requested radius to win, got radius=%v total=%d", resp.RadiusKm, resp.Total)
	}
}

func TestRunClientSurvivesCallerCancellation(t *testing.T) {
	store := &fakeStore{cfg: enabledConfig(), leads: []domain.Lead{buyer()}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := newService(store, &recordingBus{}).RunClient(ctx, testClient)
	if err != nil {
		t.Fatalf("expected the run to ignore the caller's cancellation, got %v", err)
	}
	if resp.Status != "completed" {
		t.Fatalf("expected completed, got %s", resp.Status)
	}
}

func TestSearchNearbyRejectsUnknownOperation(t *testing.T) {
	req := transport.NearbyRequest{Latitude: ptr(-23.5), Longitude: ptr(-46.6), Operation: "lease"}

	_, err := newService(&fakeStore{}, &recordingBus{}).SearchNearby(context.Background(), testClient, req)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStats(t *testing.T) {
	store := &fakeStore{
		cfg: enabledConfig(),
		stats: repository.Stats{
			Properties: map[domain.OperationType]repository.PropertyStats{
				domain.OperationSale: {Total: 3, Geolocated: 2},
			},
			Leads:   repository.LeadStats{SaleOnly: 4, Eligible: 2},
			Matches: 7,
		},
	}

	resp, err := newService(store, &recordingBus{}).Stats(context.Background(), testClient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Properties["sale"].GeolocatedPct != 66.7 {
		t.Fatalf("expected 66.7%%, got %v", resp.Properties["sale"].GeolocatedPct)
	}
	if resp.Properties["rental"].Total != 0 {
		t.Fatalf("expected empty rental stats, got %+v", resp.Properties["rental"])
	}
	if resp.Policy.BatchThreshold != 50 || resp.Policy.ReverseThreshold != 60 || resp.Policy.MaxPerLead != 10 {
		t.Fatalf("unexpected policy %+v", resp.Policy)
	}
	if resp.Policy.Weights.Inapplicable != "renormalize" {
		t.Fatalf("unexpected policy weights %+v", resp.Policy.Weights)
	}
}

func TestStatsUnknownClient(t *testing.T) {
	_, err := newService(&fakeStore{}, &recordingBus{}).Stats(context.Background(), testClient)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListLeadMatchesIsScopedToClient(t *testing.T) {
	lead := buyer()
	store := &fakeStore{
		leads: []domain.Lead{lead},
		stored: []repository.StoredMatch{{
			MatchRecord:  domain.MatchRecord{LeadID: lead.ID, PropertyID: uuid.New(), Score: 81.5, Trigger: domain.TriggerBatch},
			PropertyCode: "AP-9",
		}},
	}
	svc := newService(store, &recordingBus{})

	if _, err := svc.ListLeadMatches(context.Background(), lead.ID, "other"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for another client, got %v", err)
	}

	resp, err := svc.ListLeadMatches(context.Background(), lead.ID, testClient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Matches) != 1 || resp.Matches[0].Code != "AP-9" || resp.Matches[0].Reasons == nil {
		t.Fatalf("unexpected matches %+v", resp.Matches)
	}
}

func TestLatestReport(t *testing.T) {
	archive := &locatingArchive{latest: "acme/20260302T080000Z.json"}
	svc := newService(&fakeStore{}, &recordingBus{}, WithReportArchive(archive))

	resp, err := svc.LatestReport(context.Background(), testClient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.URL != "https://minio.local/match-reports/acme/20260302T080000Z.json" {
		t.Fatalf("unexpected url %q", resp.URL)
	}

	archive.latest = ""
	if _, err := svc.LatestReport(context.Background(), testClient); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found without reports, got %v", err)
	}
}

func TestLatestReportWithoutLocator(t *testing.T) {
	svc := newService(&fakeStore{}, &recordingBus{}, WithReportArchive(&fakeArchive{}))

	if _, err := svc.LatestReport(context.Background(), testClient); !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}
