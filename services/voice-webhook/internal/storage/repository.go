package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dropflyai/voicefly/libs/db"
	"github.com/dropflyai/voicefly/services/voice-webhook/internal/model"
)

// Repository is the single data-access layer over the externally owned
// relational schema (businesses, phone_business_mapping, services, staff,
// business_hours, customers, appointments). Every statement is a single
// atomic insert/update/select; the webhook runs no multi-statement
// transactions of its own.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func (r *Repository) GetBusiness(ctx context.Context, businessID string) (model.Business, error) {
	var b model.Business
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, name, COALESCE(phone, ''), COALESCE(email, ''),
			COALESCE(address, ''), COALESCE(city, ''), COALESCE(state, ''), COALESCE(postal_code, ''),
			COALESCE(subscription_tier, ''), COALESCE(timezone, ''), created_at
		FROM businesses
		WHERE id = $1
	`, businessID).Scan(
		&b.ID,
		&b.Name,
		&b.Phone,
		&b.Email,
		&b.AddressLine,
		&b.City,
		&b.State,
		&b.PostalCode,
		&b.SubscriptionTier,
		&b.Timezone,
		&b.CreatedAt,
	)
	return b, err
}

func (r *Repository) ListActiveServices(ctx context.Context, businessID string) ([]model.Service, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, name, duration_minutes, base_price::text,
			COALESCE(category, ''), is_active, COALESCE(display_order, 0)
		FROM services
		WHERE business_id = $1 AND is_active = true
		ORDER BY display_order ASC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMins, &s.BasePrice, &s.Category, &s.IsActive, &s.DisplayOrder); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) ListActiveStaff(ctx context.Context, businessID string) ([]model.Staff, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, business_id::text, first_name, COALESCE(last_name, ''),
			COALESCE(role, ''), COALESCE(specialties, '{}'), is_active
		FROM staff
		WHERE business_id = $1 AND is_active = true
		ORDER BY first_name ASC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Staff
	for rows.Next() {
		var s model.Staff
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.FirstName, &s.LastName, &s.Role, &s.Specialties, &s.IsActive); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) ListBusinessHours(ctx context.Context, businessID string) ([]model.BusinessHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT business_id::text, day_of_week, COALESCE(open_time::text, ''), COALESCE(close_time::text, ''), is_closed
		FROM business_hours
		WHERE business_id = $1
		ORDER BY day_of_week ASC
	`, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BusinessHours
	for rows.Next() {
		var h model.BusinessHours
		if err := rows.Scan(&h.BusinessID, &h.DayOfWeek, &h.OpenTime, &h.CloseTime, &h.IsClosed); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// FindActiveMapping returns the business id for an active phone mapping.
// The schema is assumed to hold at most one active row per number.
func (r *Repository) FindActiveMapping(ctx context.Context, phoneNumber string) (string, error) {
	var businessID string
	err := r.pool.QueryRow(ctx, `
		SELECT business_id::text
		FROM phone_business_mapping
		WHERE phone_number = $1 AND is_active = true
	`, phoneNumber).Scan(&businessID)
	return businessID, err
}

func (r *Repository) MostRecentBusinessID(ctx context.Context) (string, error) {
	var businessID string
	err := r.pool.QueryRow(ctx, `
		SELECT id::text
		FROM businesses
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&businessID)
	return businessID, err
}

func (r *Repository) FindCustomerByPhone(ctx context.Context, businessID, phone string) (model.Customer, error) {
	var c model.Customer
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, business_id::text, first_name, COALESCE(last_name, ''),
			COALESCE(phone, ''), COALESCE(email, ''), created_at
		FROM customers
		WHERE business_id = $1 AND phone = $2
	`, businessID, phone).Scan(
		&c.ID,
		&c.BusinessID,
		&c.FirstName,
		&c.LastName,
		&c.Phone,
		&c.Email,
		&c.CreatedAt,
	)
	return c, err
}

func (r *Repository) CreateCustomer(ctx context.Context, c *model.Customer) (string, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO customers (id, business_id, first_name, last_name, phone, email)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, c.BusinessID, c.FirstName, c.LastName, c.Phone, c.Email)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *Repository) CreateAppointment(ctx context.Context, a *model.Appointment) (string, error) {
	id := uuid.NewString()
	var serviceID any
	if a.ServiceID != "" {
		serviceID = a.ServiceID
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments
			(id, business_id, customer_id, service_id, appointment_date, start_time, end_time, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, id, a.BusinessID, a.CustomerID, serviceID, a.Date, a.StartTime, a.EndTime, a.Status, a.Notes)
	if err != nil {
		return "", err
	}
	return id, nil
}

const appointmentDetailSelect = `
	SELECT a.id::text, a.business_id::text, a.customer_id::text, COALESCE(a.service_id::text, ''),
		a.appointment_date::text, a.start_time::text, a.end_time::text, a.status, COALESCE(a.notes, ''), a.created_at,
		COALESCE(s.name, ''), COALESCE(s.base_price::text, ''),
		COALESCE(st.first_name || ' ' || st.last_name, '')
	FROM appointments a
	LEFT JOIN services s ON s.id = a.service_id
	LEFT JOIN staff st ON st.id = a.staff_id
`

func scanAppointmentDetail(row pgx.Row) (model.AppointmentDetail, error) {
	var d model.AppointmentDetail
	err := row.Scan(
		&d.ID,
		&d.BusinessID,
		&d.CustomerID,
		&d.ServiceID,
		&d.Date,
		&d.StartTime,
		&d.EndTime,
		&d.Status,
		&d.Notes,
		&d.CreatedAt,
		&d.ServiceName,
		&d.ServicePrice,
		&d.StaffName,
	)
	return d, err
}

// ListUpcomingAppointments returns a customer's non-cancelled appointments
// from fromDate (inclusive, YYYY-MM-DD) onward, ordered by date then time.
func (r *Repository) ListUpcomingAppointments(ctx context.Context, businessID, customerID, fromDate string) ([]model.AppointmentDetail, error) {
	rows, err := r.pool.Query(ctx, appointmentDetailSelect+`
		WHERE a.business_id = $1
			AND a.customer_id = $2
			AND a.appointment_date >= $3
			AND a.status <> 'cancelled'
		ORDER BY a.appointment_date ASC, a.start_time ASC
	`, businessID, customerID, fromDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AppointmentDetail
	for rows.Next() {
		d, err := scanAppointmentDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *Repository) GetAppointmentForCustomer(ctx context.Context, businessID, customerID, appointmentID string) (model.AppointmentDetail, error) {
	row := r.pool.QueryRow(ctx, appointmentDetailSelect+`
		WHERE a.id = $1 AND a.business_id = $2 AND a.customer_id = $3
	`, appointmentID, businessID, customerID)
	return scanAppointmentDetail(row)
}

// NextPendingAppointment returns the customer's earliest pending appointment.
func (r *Repository) NextPendingAppointment(ctx context.Context, businessID, customerID string) (model.AppointmentDetail, error) {
	row := r.pool.QueryRow(ctx, appointmentDetailSelect+`
		WHERE a.business_id = $1
			AND a.customer_id = $2
			AND a.status = 'pending'
			AND a.appointment_date >= CURRENT_DATE
		ORDER BY a.appointment_date ASC, a.start_time ASC
		LIMIT 1
	`, businessID, customerID)
	return scanAppointmentDetail(row)
}

func (r *Repository) CancelAppointment(ctx context.Context, businessID, appointmentID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
			updated_at = now()
		WHERE id = $1 AND business_id = $2
	`, appointmentID, businessID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) RescheduleAppointment(ctx context.Context, businessID, appointmentID, date, startTime, endTime string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET appointment_date = $3,
			start_time = $4,
			end_time = $5,
			updated_at = now()
		WHERE id = $1 AND business_id = $2
	`, appointmentID, businessID, date, startTime, endTime)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
