package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/seatrail/backend-cargo/internal/events"
	"github.com/seatrail/backend-cargo/internal/tracking"
)

// ErrNotFound is returned when no shipment matches the lookup.
var ErrNotFound = errors.New("registry: shipment not found")

// ErrDuplicate is returned when a tracking number is already registered.
var ErrDuplicate = errors.New("registry: tracking number already registered")

const shipmentColumns = `id, tracking_number, tracking_type, status, carrier_code, carrier_name,
	origin_port, origin_country, origin_date, dest_port, dest_country, eta,
	vessel_name, vessel_imo, voyage, flight_number, airline,
	request_id, source, product_id, product_name, notes,
	last_refreshed_at, created_at, updated_at`

// Store persists shipments, their event timelines and domain events in
// Postgres. It also implements events.Store.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts a shipment and its events in one transaction.
func (s *Store) Create(ctx context.Context, sh *Shipment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO shipments (
			id, tracking_number, tracking_type, status, carrier_code, carrier_name,
			origin_port, origin_country, origin_date, dest_port, dest_country, eta,
			vessel_name, vessel_imo, voyage, flight_number, airline,
			request_id, source, product_id, product_name, notes, last_refreshed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
		sh.ID, sh.TrackingNumber, sh.TrackingType, sh.Status, sh.CarrierCode, sh.CarrierName,
		sh.OriginPort, sh.OriginCountry, sh.OriginDate, sh.DestPort, sh.DestCountry, sh.ETA,
		sh.VesselName, sh.VesselIMO, sh.Voyage, sh.FlightNumber, sh.Airline,
		sh.RequestID, sh.Source, sh.ProductID, sh.ProductName, sh.Notes, sh.LastRefreshed,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	if err := replaceEventsTx(ctx, tx, sh.ID, sh.Events); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	return s.hydrateTimestamps(ctx, sh)
}

// GetByID loads one shipment with its event timeline.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Shipment, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, id)
	sh, err := scanShipment(row)
	if err != nil {
		return nil, err
	}
	sh.Events, err = s.loadEvents(ctx, sh.ID)
	return sh, err
}

// GetByTrackingNumber loads one shipment by its vendor identifier.
func (s *Store) GetByTrackingNumber(ctx context.Context, trackingNumber string) (*Shipment, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+shipmentColumns+` FROM shipments WHERE tracking_number = $1`,
		strings.ToUpper(strings.TrimSpace(trackingNumber)))
	sh, err := scanShipment(row)
	if err != nil {
		return nil, err
	}
	sh.Events, err = s.loadEvents(ctx, sh.ID)
	return sh, err
}

// List returns a filtered page of shipments without event timelines.
func (s *Store) List(ctx context.Context, f ListFilter) ([]Shipment, int64, error) {
	where := []string{"TRUE"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if strings.TrimSpace(f.Search) != "" {
		p := arg("%" + strings.TrimSpace(f.Search) + "%")
		where = append(where, fmt.Sprintf(
			"(tracking_number ILIKE %s OR carrier_name ILIKE %s OR product_name ILIKE %s)", p, p, p))
	}
	if f.Status != "" {
		where = append(where, "status = "+arg(string(f.Status)))
	}
	if f.Type != "" && f.Type != tracking.TypeAuto {
		where = append(where, "tracking_type = "+arg(string(f.Type)))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM shipments WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := arg(f.PageSize)
	offset := arg((f.Page - 1) * f.PageSize)
	rows, err := s.pool.Query(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE `+cond+
		` ORDER BY created_at DESC LIMIT `+limit+` OFFSET `+offset, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := []Shipment{}
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *sh)
	}
	return out, total, rows.Err()
}

// Update persists refreshed tracking fields and replaces the event timeline.
func (s *Store) Update(ctx context.Context, sh *Shipment) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE shipments SET
			status = $2, carrier_code = $3, carrier_name = $4,
			origin_port = $5, origin_country = $6, origin_date = $7,
			dest_port = $8, dest_country = $9, eta = $10,
			vessel_name = $11, vessel_imo = $12, voyage = $13,
			flight_number = $14, airline = $15,
			request_id = $16, source = $17, notes = $18,
			last_refreshed_at = $19, updated_at = now()
		WHERE id = $1`,
		sh.ID, sh.Status, sh.CarrierCode, sh.CarrierName,
		sh.OriginPort, sh.OriginCountry, sh.OriginDate,
		sh.DestPort, sh.DestCountry, sh.ETA,
		sh.VesselName, sh.VesselIMO, sh.Voyage,
		sh.FlightNumber, sh.Airline,
		sh.RequestID, sh.Source, sh.Notes, sh.LastRefreshed,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if err := replaceEventsTx(ctx, tx, sh.ID, sh.Events); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	return s.hydrateTimestamps(ctx, sh)
}

// Delete removes a shipment and its timeline.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM shipments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LinkProduct associates a shipment with a catalog product.
func (s *Store) LinkProduct(ctx context.Context, id uuid.UUID, productID *uuid.UUID, productName string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE shipments SET product_id = $2, product_name = $3, updated_at = now() WHERE id = $1`,
		id, productID, productName)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStale returns active shipments whose last refresh is older than cutoff.
// Terminal shipments are skipped.
func (s *Store) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Shipment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+shipmentColumns+` FROM shipments
		WHERE status NOT IN ('delivered', 'exception')
		  AND (last_refreshed_at IS NULL OR last_refreshed_at < $1)
		ORDER BY last_refreshed_at ASC NULLS FIRST
		LIMIT $2`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Shipment{}
	for rows.Next() {
		sh, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sh)
	}
	return out, rows.Err()
}

// QueryStats aggregates registry counters.
func (s *Store) QueryStats(ctx context.Context) (Stats, error) {
	stats := Stats{ByStatus: map[string]int64{}, ByType: map[string]int64{}}

	rows, err := s.pool.Query(ctx, `SELECT status, tracking_type, count(*) FROM shipments GROUP BY status, tracking_type`)
	if err != nil {
		return stats, err
	}
	defer rows.Close()

	for rows.Next() {
		var status, trackingType string
		var count int64
		if err := rows.Scan(&status, &trackingType, &count); err != nil {
			return stats, err
		}
		stats.Total += count
		stats.ByStatus[status] += count
		stats.ByType[trackingType] += count
	}
	if err := rows.Err(); err != nil {
		return stats, err
	}
	stats.Delivered = stats.ByStatus[string(tracking.StatusDelivered)]
	stats.InTransit = stats.ByStatus[string(tracking.StatusInTransit)]
	stats.Exceptions = stats.ByStatus[string(tracking.StatusException)]
	return stats, nil
}

// InsertEvent implements events.Store.
func (s *Store) InsertEvent(ctx context.Context, ev events.Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO domain_events (id, topic, shipment_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`,
		ev.ID, ev.Topic, ev.ShipmentID, ev.Payload, ev.OccurredAt)
	return err
}

func (s *Store) loadEvents(ctx context.Context, shipmentID uuid.UUID) ([]tracking.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT event_date, event_type, status, location, description
		FROM shipment_events WHERE shipment_id = $1 ORDER BY position ASC`, shipmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []tracking.Event{}
	for rows.Next() {
		var ev tracking.Event
		if err := rows.Scan(&ev.Date, &ev.Type, &ev.Status, &ev.Location, &ev.Description); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func replaceEventsTx(ctx context.Context, tx pgx.Tx, shipmentID uuid.UUID, evs []tracking.Event) error {
	if _, err := tx.Exec(ctx, `DELETE FROM shipment_events WHERE shipment_id = $1`, shipmentID); err != nil {
		return err
	}
	for i, ev := range evs {
		_, err := tx.Exec(ctx, `
			INSERT INTO shipment_events (shipment_id, position, event_date, event_type, status, location, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			shipmentID, i, ev.Date, ev.Type, ev.Status, ev.Location, ev.Description)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) hydrateTimestamps(ctx context.Context, sh *Shipment) error {
	return s.pool.QueryRow(ctx,
		`SELECT created_at, updated_at FROM shipments WHERE id = $1`, sh.ID).
		Scan(&sh.CreatedAt, &sh.UpdatedAt)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShipment(row rowScanner) (*Shipment, error) {
	var sh Shipment
	err := row.Scan(
		&sh.ID, &sh.TrackingNumber, &sh.TrackingType, &sh.Status, &sh.CarrierCode, &sh.CarrierName,
		&sh.OriginPort, &sh.OriginCountry, &sh.OriginDate, &sh.DestPort, &sh.DestCountry, &sh.ETA,
		&sh.VesselName, &sh.VesselIMO, &sh.Voyage, &sh.FlightNumber, &sh.Airline,
		&sh.RequestID, &sh.Source, &sh.ProductID, &sh.ProductName, &sh.Notes,
		&sh.LastRefreshed, &sh.CreatedAt, &sh.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sh, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
