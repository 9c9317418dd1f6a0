package registry

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seatrail/backend-cargo/internal/cache"
	"github.com/seatrail/backend-cargo/internal/events"
	"github.com/seatrail/backend-cargo/internal/tracking"
)

// ErrInvalidInput is returned when a request carries unusable fields.
var ErrInvalidInput = errors.New("registry: invalid input")

// ShipmentStore is the persistence surface the service depends on.
type ShipmentStore interface {
	Create(ctx context.Context, sh *Shipment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Shipment, error)
	GetByTrackingNumber(ctx context.Context, trackingNumber string) (*Shipment, error)
	List(ctx context.Context, f ListFilter) ([]Shipment, int64, error)
	Update(ctx context.Context, sh *Shipment) error
	Delete(ctx context.Context, id uuid.UUID) error
	LinkProduct(ctx context.Context, id uuid.UUID, productID *uuid.UUID, productName string) error
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Shipment, error)
	QueryStats(ctx context.Context) (Stats, error)
}

// Tracker resolves an identifier into a normalized lookup.
type Tracker interface {
	Track(ctx context.Context, q tracking.Query) tracking.Lookup
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, topic string, shipmentID uuid.UUID, payload any) error
}

// StatsCache is the subset of the Redis cache used for stats snapshots.
type StatsCache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSONTTL(ctx context.Context, key string, v any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Service coordinates the shipment registry: persistence, live lookups and
// domain event fan-out.
type Service struct {
	Store    ShipmentStore
	Tracker  Tracker
	Bus      Publisher
	Stats    StatsCache
	StatsTTL time.Duration
	Logger   zerolog.Logger
}

// CreateInput describes a new registration.
type CreateInput struct {
	TrackingNumber string
	Type           tracking.Type
	ProductID      *uuid.UUID
	ProductName    string
	Notes          string
}

// Create registers a shipment, performing an initial lookup to seed the
// registry row. Lookup failures still register the shipment with mock data.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Shipment, error) {
	trackingNumber := strings.ToUpper(strings.TrimSpace(in.TrackingNumber))
	if trackingNumber == "" {
		return nil, ErrInvalidInput
	}

	lookup := s.Tracker.Track(ctx, tracking.Query{
		Identifier: trackingNumber,
		Type:       in.Type,
	})

	sh := &Shipment{
		ID:             uuid.New(),
		TrackingNumber: trackingNumber,
		ProductID:      in.ProductID,
		ProductName:    strings.TrimSpace(in.ProductName),
		Notes:          strings.TrimSpace(in.Notes),
	}
	s.applyLookup(sh, lookup)

	if err := s.Store.Create(ctx, sh); err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)
	s.publish(ctx, events.TopicShipmentCreated, sh.ID, sh)
	return sh, nil
}

// Get loads a shipment by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Shipment, error) {
	return s.Store.GetByID(ctx, id)
}

// List returns a page of shipments.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Shipment, int64, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	return s.Store.List(ctx, f)
}

// Refresh re-runs the lookup for a shipment and persists the outcome. Mock
// fallbacks never overwrite previously live data.
func (s *Service) Refresh(ctx context.Context, id uuid.UUID, force bool) (*Shipment, error) {
	sh, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	lookup := s.Tracker.Track(ctx, tracking.Query{
		Identifier:   sh.TrackingNumber,
		Type:         sh.TrackingType,
		ForceRefresh: force,
		RequestID:    sh.RequestID,
	})
	if lookup.Fallback() && sh.Source == tracking.SourceLive {
		s.Logger.Debug().
			Str("shipment_id", sh.ID.String()).
			Msg("refresh fell back to mock, keeping live data")
		return sh, nil
	}

	previous := sh.Status
	s.applyLookup(sh, lookup)
	if err := s.Store.Update(ctx, sh); err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)

	s.publish(ctx, events.TopicShipmentRefreshed, sh.ID, map[string]any{
		"status": sh.Status,
		"source": lookup.Source,
	})
	if sh.Status != previous {
		s.publishStatusChange(ctx, sh, previous)
	}
	return sh, nil
}

// Delete removes a shipment.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateStats(ctx)
	return nil
}

// LinkProduct associates a shipment with a catalog product.
func (s *Service) LinkProduct(ctx context.Context, id uuid.UUID, productID *uuid.UUID, productName string) (*Shipment, error) {
	if err := s.Store.LinkProduct(ctx, id, productID, strings.TrimSpace(productName)); err != nil {
		return nil, err
	}
	return s.Store.GetByID(ctx, id)
}

// QueryStats returns registry counters, served from cache when fresh.
func (s *Service) QueryStats(ctx context.Context) (Stats, error) {
	var cached Stats
	if s.Stats != nil {
		if found, err := s.Stats.GetJSON(ctx, cache.KeyShipmentStats(), &cached); err == nil && found {
			return cached, nil
		}
	}
	stats, err := s.Store.QueryStats(ctx)
	if err != nil {
		return Stats{}, err
	}
	if s.Stats != nil {
		ttl := s.StatsTTL
		if ttl <= 0 {
			ttl = time.Minute
		}
		if err := s.Stats.SetJSONTTL(ctx, cache.KeyShipmentStats(), stats, ttl); err != nil {
			s.Logger.Warn().Err(err).Msg("stats cache write failed")
		}
	}
	return stats, nil
}

// ApplyWebhook ingests a vendor push payload for an already registered
// shipment. Unknown tracking numbers are ignored without error.
func (s *Service) ApplyWebhook(ctx context.Context, payload map[string]any, kind tracking.Type) (*Shipment, error) {
	result := tracking.Normalize(payload, kind, "")
	if strings.TrimSpace(result.TrackingNumber) == "" || result.TrackingNumber == "-" {
		return nil, ErrNotFound
	}
	sh, err := s.Store.GetByTrackingNumber(ctx, result.TrackingNumber)
	if err != nil {
		return nil, err
	}

	previous := sh.Status
	s.applyLookup(sh, tracking.Lookup{Result: result, Source: tracking.SourceLive})
	if err := s.Store.Update(ctx, sh); err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)
	if sh.Status != previous {
		s.publishStatusChange(ctx, sh, previous)
	}
	return sh, nil
}

func (s *Service) applyLookup(sh *Shipment, lookup tracking.Lookup) {
	res := lookup.Result
	sh.TrackingType = res.Type
	sh.Status = res.Status
	sh.CarrierCode = res.Carrier.Code
	sh.CarrierName = res.Carrier.Name
	sh.OriginPort = res.Route.Origin.Port
	sh.OriginCountry = res.Route.Origin.Country
	sh.OriginDate = res.Route.Origin.Date
	sh.DestPort = res.Route.Destination.Port
	sh.DestCountry = res.Route.Destination.Country
	sh.ETA = res.Route.Destination.ETA
	if res.Vessel != nil {
		sh.VesselName = res.Vessel.Name
		sh.VesselIMO = res.Vessel.IMO
		sh.Voyage = res.Vessel.Voyage
	}
	if res.Flight != nil {
		sh.FlightNumber = res.Flight.Number
		sh.Airline = res.Flight.Airline
	}
	if requestID := requestIDFrom(res); requestID != "" {
		sh.RequestID = requestID
	}
	sh.Source = lookup.Source
	sh.Events = res.Events
	now := time.Now().UTC()
	sh.LastRefreshed = &now
}

func (s *Service) publishStatusChange(ctx context.Context, sh *Shipment, previous tracking.Status) {
	payload := map[string]any{
		"trackingNumber": sh.TrackingNumber,
		"from":           previous,
		"to":             sh.Status,
	}
	s.publish(ctx, events.TopicShipmentStatusChanged, sh.ID, payload)
	switch sh.Status {
	case tracking.StatusDelivered:
		s.publish(ctx, events.TopicShipmentDelivered, sh.ID, payload)
	case tracking.StatusException:
		s.publish(ctx, events.TopicShipmentException, sh.ID, payload)
	}
}

func (s *Service) publish(ctx context.Context, topic string, id uuid.UUID, payload any) {
	if s.Bus == nil {
		return
	}
	if err := s.Bus.Publish(ctx, topic, id, payload); err != nil {
		s.Logger.Warn().Err(err).Str("topic", topic).Msg("event publish failed")
	}
}

func (s *Service) invalidateStats(ctx context.Context) {
	if s.Stats == nil {
		return
	}
	if err := s.Stats.Delete(ctx, cache.KeyShipmentStats()); err != nil {
		s.Logger.Warn().Err(err).Msg("stats cache invalidation failed")
	}
}

func requestIDFrom(res tracking.Result) string {
	for _, key := range []string{"requestId", "RequestId", "request_id"} {
		raw, ok := res.Raw[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case float64:
			return strconv.FormatInt(int64(v), 10)
		}
	}
	return ""
}
