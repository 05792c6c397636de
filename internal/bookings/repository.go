package bookings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ListFilter selects a page of bookings. Empty fields do not filter.
type ListFilter struct {
	Search     string
	Status     Status
	CustomerID string
	Limit      int
	Offset     int
}

// CustomerFilter narrows a customer's bookings for spending analytics.
type CustomerFilter struct {
	Status Status
	From   *time.Time
	To     *time.Time
}

type Repository interface {
	List(ctx context.Context, f ListFilter) ([]Booking, int64, error)
	// Get* return nil, nil when nothing matches.
	GetByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	GetByReference(ctx context.Context, reference string) (*Booking, error)
	GetByCheckoutRequestID(ctx context.Context, checkoutID string) (*Booking, error)
	Create(ctx context.Context, b *Booking) error
	Update(ctx context.Context, b *Booking) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)

	// CompletePast marks CONFIRMED, CHECKED_IN and ACTIVE bookings that ended
	// before the given instant as COMPLETED.
	CompletePast(ctx context.Context, before time.Time) (int64, error)
	Summary(ctx context.Context) ([]StatusSummary, error)
	ListByCustomer(ctx context.Context, customerID string, f CustomerFilter) ([]Booking, error)
	// ListByProperty returns date-holding bookings that end on or after from.
	ListByProperty(ctx context.Context, propertyID int64, from time.Time) ([]Booking, error)
	// FindOverlap returns the first date-holding booking intersecting [start, end].
	FindOverlap(ctx context.Context, propertyID int64, start, end time.Time) (*Booking, error)

	GetDispute(ctx context.Context, bookingID uuid.UUID) (*Dispute, error)
	CreateDispute(ctx context.Context, d *Dispute) error
	UpdateDispute(ctx context.Context, d *Dispute) error
	ListDisputeMessages(ctx context.Context, disputeID uuid.UUID) ([]DisputeMessage, error)
	AddDisputeMessage(ctx context.Context, m *DisputeMessage) error
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// Schema creates the booking tables.
const Schema = `
CREATE TABLE IF NOT EXISTS bookings (
	id UUID PRIMARY KEY,
	reference VARCHAR(32) NOT NULL UNIQUE,
	property_id BIGINT NOT NULL,
	property_name TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	manager_id TEXT NOT NULL DEFAULT '',
	customer_id TEXT NOT NULL,
	customer_name TEXT NOT NULL DEFAULT '',
	customer_email TEXT NOT NULL DEFAULT '',
	customer_phone TEXT NOT NULL DEFAULT '',
	start_date TIMESTAMPTZ NOT NULL,
	end_date TIMESTAMPTZ NOT NULL,
	nights INT NOT NULL DEFAULT 0,
	guests INT NOT NULL DEFAULT 1,
	subtotal NUMERIC(12,2) NOT NULL DEFAULT 0,
	service_fee NUMERIC(12,2) NOT NULL DEFAULT 0,
	taxes NUMERIC(12,2) NOT NULL DEFAULT 0,
	total_amount NUMERIC(12,2) NOT NULL DEFAULT 0,
	currency VARCHAR(3) NOT NULL DEFAULT 'USD',
	status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
	payment_status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
	payment_method TEXT,
	checkout_request_id TEXT,
	payment_receipt TEXT,
	confirmed_at TIMESTAMPTZ,
	confirmed_by TEXT,
	rejected_at TIMESTAMPTZ,
	rejected_by TEXT,
	rejection_reason TEXT,
	cancelled_at TIMESTAMPTZ,
	cancellation_reason TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_bookings_property_dates ON bookings (property_id, start_date, end_date);
CREATE INDEX IF NOT EXISTS idx_bookings_customer ON bookings (customer_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_bookings_checkout ON bookings (checkout_request_id);

CREATE TABLE IF NOT EXISTS booking_disputes (
	id UUID PRIMARY KEY,
	booking_id UUID NOT NULL UNIQUE REFERENCES bookings(id) ON DELETE CASCADE,
	status VARCHAR(20) NOT NULL DEFAULT 'OPEN',
	category TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	reported_by TEXT NOT NULL DEFAULT '',
	reported_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	resolution_type VARCHAR(20),
	resolution_amount NUMERIC(12,2),
	resolution_details TEXT,
	resolved_at TIMESTAMPTZ,
	resolved_by TEXT,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS booking_dispute_messages (
	id UUID PRIMARY KEY,
	dispute_id UUID NOT NULL REFERENCES booking_disputes(id) ON DELETE CASCADE,
	sender VARCHAR(10) NOT NULL,
	sender_name TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// EnsureSchema creates missing tables.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create booking tables: %w", err)
	}
	return nil
}

// holdingStatuses is the SQL list of statuses that occupy dates.
const holdingStatuses = `'PENDING','CONFIRMED','CHECKED_IN','ACTIVE','COMPLETED'`

func (f ListFilter) where() (string, []interface{}) {
	clauses := []string{"1=1"}
	var args []interface{}
	argCount := 1

	if f.Search != "" {
		clauses = append(clauses, fmt.Sprintf(
			"(id::text ILIKE $%[1]d OR reference ILIKE $%[1]d OR customer_name ILIKE $%[1]d OR customer_email ILIKE $%[1]d OR property_name ILIKE $%[1]d)",
			argCount))
		args = append(args, "%"+f.Search+"%")
		argCount++
	}
	if f.Status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", argCount))
		args = append(args, f.Status)
		argCount++
	}
	if f.CustomerID != "" {
		clauses = append(clauses, fmt.Sprintf("customer_id = $%d", argCount))
		args = append(args, f.CustomerID)
	}
	return strings.Join(clauses, " AND "), args
}

func (r *postgresRepository) List(ctx context.Context, f ListFilter) ([]Booking, int64, error) {
	where, args := f.where()

	var total int64
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM bookings WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	query := fmt.Sprintf("SELECT * FROM bookings WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, len(args)+1, len(args)+2)
	var bookings []Booking
	if err := r.db.SelectContext(ctx, &bookings, query, append(args, f.Limit, f.Offset)...); err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, total, nil
}

func (r *postgresRepository) getOne(ctx context.Context, column string, value interface{}) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, "SELECT * FROM bookings WHERE "+column+" = $1", value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &b, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	return r.getOne(ctx, "id", id)
}

func (r *postgresRepository) GetByReference(ctx context.Context, reference string) (*Booking, error) {
	return r.getOne(ctx, "reference", reference)
}

func (r *postgresRepository) GetByCheckoutRequestID(ctx context.Context, checkoutID string) (*Booking, error) {
	return r.getOne(ctx, "checkout_request_id", checkoutID)
}

func (r *postgresRepository) Create(ctx context.Context, b *Booking) error {
	query := `
		INSERT INTO bookings (
			id, reference, property_id, property_name, location, manager_id,
			customer_id, customer_name, customer_email, customer_phone,
			start_date, end_date, nights, guests, subtotal, service_fee, taxes, total_amount, currency,
			status, payment_status, created_at, updated_at
		) VALUES (
			:id, :reference, :property_id, :property_name, :location, :manager_id,
			:customer_id, :customer_name, :customer_email, :customer_phone,
			:start_date, :end_date, :nights, :guests, :subtotal, :service_fee, :taxes, :total_amount, :currency,
			:status, :payment_status, :created_at, :updated_at
		)`
	if _, err := r.db.NamedExecContext(ctx, query, b); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *postgresRepository) Update(ctx context.Context, b *Booking) error {
	query := `
		UPDATE bookings SET
			start_date = :start_date,
			end_date = :end_date,
			nights = :nights,
			guests = :guests,
			subtotal = :subtotal,
			service_fee = :service_fee,
			taxes = :taxes,
			total_amount = :total_amount,
			status = :status,
			payment_status = :payment_status,
			payment_method = :payment_method,
			checkout_request_id = :checkout_request_id,
			payment_receipt = :payment_receipt,
			confirmed_at = :confirmed_at,
			confirmed_by = :confirmed_by,
			rejected_at = :rejected_at,
			rejected_by = :rejected_by,
			rejection_reason = :rejection_reason,
			cancelled_at = :cancelled_at,
			cancellation_reason = :cancellation_reason,
			updated_at = :updated_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, b); err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}
	return nil
}

func (r *postgresRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM bookings WHERE id = $1", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete booking: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete booking: %w", err)
	}
	return n > 0, nil
}

func (r *postgresRepository) CompletePast(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE bookings SET status = 'COMPLETED', updated_at = NOW()
		WHERE end_date < $1 AND status IN ('CONFIRMED','CHECKED_IN','ACTIVE')`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to complete past bookings: %w", err)
	}
	return res.RowsAffected()
}

func (r *postgresRepository) Summary(ctx context.Context) ([]StatusSummary, error) {
	var rows []StatusSummary
	err := r.db.SelectContext(ctx, &rows,
		"SELECT status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS amount FROM bookings GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to summarise bookings: %w", err)
	}
	return rows, nil
}

func (r *postgresRepository) ListByCustomer(ctx context.Context, customerID string, f CustomerFilter) ([]Booking, error) {
	query := "SELECT * FROM bookings WHERE customer_id = $1"
	args := []interface{}{customerID}
	argCount := 2

	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, f.Status)
		argCount++
	}
	if f.From != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argCount)
		args = append(args, *f.From)
		argCount++
	}
	if f.To != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argCount)
		args = append(args, *f.To)
	}
	query += " ORDER BY created_at DESC"

	var bookings []Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list customer bookings: %w", err)
	}
	return bookings, nil
}

func (r *postgresRepository) ListByProperty(ctx context.Context, propertyID int64, from time.Time) ([]Booking, error) {
	var bookings []Booking
	err := r.db.SelectContext(ctx, &bookings,
		"SELECT * FROM bookings WHERE property_id = $1 AND end_date >= $2 AND status IN ("+holdingStatuses+") ORDER BY start_date",
		propertyID, from)
	if err != nil {
		return nil, fmt.Errorf("failed to list property bookings: %w", err)
	}
	return bookings, nil
}

func (r *postgresRepository) FindOverlap(ctx context.Context, propertyID int64, start, end time.Time) (*Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b,
		"SELECT * FROM bookings WHERE property_id = $1 AND start_date <= $3 AND end_date >= $2 AND status IN ("+holdingStatuses+") ORDER BY start_date LIMIT 1",
		propertyID, start, end)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check booking overlap: %w", err)
	}
	return &b, nil
}

func (r *postgresRepository) GetDispute(ctx context.Context, bookingID uuid.UUID) (*Dispute, error) {
	var d Dispute
	err := r.db.GetContext(ctx, &d, "SELECT * FROM booking_disputes WHERE booking_id = $1", bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get dispute: %w", err)
	}
	return &d, nil
}

func (r *postgresRepository) CreateDispute(ctx context.Context, d *Dispute) error {
	query := `
		INSERT INTO booking_disputes (id, booking_id, status, category, description, reported_by, reported_at, updated_at)
		VALUES (:id, :booking_id, :status, :category, :description, :reported_by, :reported_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("failed to create dispute: %w", err)
	}
	return nil
}

func (r *postgresRepository) UpdateDispute(ctx context.Context, d *Dispute) error {
	query := `
		UPDATE booking_disputes SET
			status = :status,
			resolution_type = :resolution_type,
			resolution_amount = :resolution_amount,
			resolution_details = :resolution_details,
			resolved_at = :resolved_at,
			resolved_by = :resolved_by,
			updated_at = :updated_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, d); err != nil {
		return fmt.Errorf("failed to update dispute: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListDisputeMessages(ctx context.Context, disputeID uuid.UUID) ([]DisputeMessage, error) {
	var msgs []DisputeMessage
	err := r.db.SelectContext(ctx, &msgs,
		"SELECT * FROM booking_dispute_messages WHERE dispute_id = $1 ORDER BY created_at", disputeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispute messages: %w", err)
	}
	return msgs, nil
}

func (r *postgresRepository) AddDisputeMessage(ctx context.Context, m *DisputeMessage) error {
	query := `
		INSERT INTO booking_dispute_messages (id, dispute_id, sender, sender_name, content, created_at)
		VALUES (:id, :dispute_id, :sender, :sender_name, :content, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("failed to add dispute message: %w", err)
	}
	return nil
}
