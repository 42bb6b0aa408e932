package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository handles notification and device token persistence
type Repository struct {
	db *pgxpool.Pool
}

var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new notifications repository
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const recipientColumns = `id, full_name, email, COALESCE(phone_number, ''), department, role`

func scanRecipient(row pgx.Row) (*Recipient, error) {
	r := &Recipient{}
	if err := row.Scan(&r.ID, &r.FullName, &r.Email, &r.PhoneNumber, &r.Department, &r.Role); err != nil {
		return nil, err
	}
	return r, nil
}

// GetRecipient returns an employee by ID
func (r *Repository) GetRecipient(ctx context.Context, id uuid.UUID) (*Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM employees WHERE id = $1`

	recipient, err := scanRecipient(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("employee %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return recipient, nil
}

// ListActiveManagers returns active managers and admins; an empty
// department means every department
func (r *Repository) ListActiveManagers(ctx context.Context, department string) ([]*Recipient, error) {
	query := `
		SELECT ` + recipientColumns + `
		FROM employees
		WHERE is_active AND role IN ('manager', 'admin')
		  AND ($1 = '' OR department = $1)
		ORDER BY full_name
	`

	rows, err := r.db.Query(ctx, query, department)
	if err != nil {
		return nil, fmt.Errorf("failed to list managers: %w", err)
	}
	defer rows.Close()

	var managers []*Recipient
	for rows.Next() {
		m, err := scanRecipient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan manager: %w", err)
		}
		managers = append(managers, m)
	}
	return managers, rows.Err()
}

// GetDeviceTokens returns the push tokens registered for a user
func (r *Repository) GetDeviceTokens(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT token FROM device_tokens WHERE employee_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get device tokens: %w", err)
	}
	defer rows.Close()

	tokens, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan device tokens: %w", err)
	}
	return tokens, nil
}

// SaveDeviceToken registers a push token, refreshing it if already known
func (r *Repository) SaveDeviceToken(ctx context.Context, userID uuid.UUID, token, platform string) error {
	query := `
		INSERT INTO device_tokens (employee_id, token, platform, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (employee_id, token) DO UPDATE SET platform = EXCLUDED.platform, created_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, userID, token, platform); err != nil {
		return fmt.Errorf("failed to save device token: %w", err)
	}
	return nil
}

// DeleteDeviceTokens forgets tokens the push provider rejected
func (r *Repository) DeleteDeviceTokens(ctx context.Context, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM device_tokens WHERE token = ANY($1)`, tokens); err != nil {
		return fmt.Errorf("failed to delete device tokens: %w", err)
	}
	return nil
}

// CreateNotification stores a new notification
func (r *Repository) CreateNotification(ctx context.Context, n *Notification) error {
	data, err := encodeData(n.Data)
	if err != nil {
		return err
	}

	methods := make([]string, len(n.DeliveryMethods))
	for i, m := range n.DeliveryMethods {
		methods[i] = string(m)
	}

	query := `
		INSERT INTO notifications (
			id, user_id, type, priority, title, body, data, delivery_methods, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.db.Exec(ctx, query,
		n.ID, n.UserID, n.Type, string(n.Priority), n.Title, n.Body, data, methods, string(n.Status), n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// UpdateNotificationStatus records the delivery outcome
func (r *Repository) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, status Status, errorMessage string) error {
	query := `
		UPDATE notifications
		SET status = $2,
		    error_message = NULLIF($3, ''),
		    sent_at = CASE WHEN $2 IN ('sent', 'partial') THEN NOW() ELSE sent_at END
		WHERE id = $1 AND status <> 'read'
	`
	if _, err := r.db.Exec(ctx, query, id, string(status), errorMessage); err != nil {
		return fmt.Errorf("failed to update notification status: %w", err)
	}
	return nil
}

// ListNotifications returns a page of the user's notifications, newest first
func (r *Repository) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int) ([]*Notification, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND (NOT $2 OR read_at IS NULL)`
	if err := r.db.QueryRow(ctx, countQuery, userID, unreadOnly).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `
		SELECT id, user_id, type, priority, title, body, data, delivery_methods,
		       status, COALESCE(error_message, ''), created_at, sent_at, read_at
		FROM notifications
		WHERE user_id = $1 AND (NOT $2 OR read_at IS NULL)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`

	rows, err := r.db.Query(ctx, query, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		n := &Notification{}
		var priority, status string
		var data []byte
		var methods []string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &priority, &n.Title, &n.Body, &data, &methods,
			&status, &n.ErrorMessage, &n.CreatedAt, &n.SentAt, &n.ReadAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Priority = Priority(priority)
		n.Status = Status(status)
		for _, m := range methods {
			n.DeliveryMethods = append(n.DeliveryMethods, Channel(m))
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &n.Data); err != nil {
				return nil, 0, fmt.Errorf("failed to decode notification data: %w", err)
			}
		}
		out = append(out, n)
	}

	return out, total, rows.Err()
}

// MarkAsRead marks a notification read; it must belong to userID
func (r *Repository) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	query := `
		UPDATE notifications
		SET read_at = COALESCE(read_at, NOW()), status = 'read'
		WHERE id = $1 AND user_id = $2
	`
	tag, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// CountUnread returns how many of the user's notifications are unread
func (r *Repository) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read_at IS NULL`, userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// DeleteReadBefore removes notifications read before the cutoff
func (r *Repository) DeleteReadBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM notifications WHERE read_at IS NOT NULL AND read_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	return tag.RowsAffected(), nil
}

func encodeData(data map[string]interface{}) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification data: %w", err)
	}
	return b, nil
}
