package ticketing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/HerbHall/watchdesk/pkg/models"
)

// Sentinel errors returned by the repository.
var ErrNotFound = errors.New("not found")

// TicketFilter controls which tickets are returned by List.
type TicketFilter struct {
	Status     string // Filter by TicketStatus value.
	Priority   string // Filter by TicketPriority value.
	Type       string // Filter by TicketType value.
	AssignedTo string // Filter by assignee.
	DeviceID   string // Filter by originating device.
}

// ListOptions controls pagination for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// ListResult wraps a paginated result set with a total count.
type ListResult struct {
	Items []models.Ticket `json:"items"`
	Total int             `json:"total"`
}

// TicketRepository persists tickets.
type TicketRepository interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	Get(ctx context.Context, id string) (*models.Ticket, error)
	List(ctx context.Context, filter TicketFilter, opts ListOptions) (*ListResult, error)
	Update(ctx context.Context, ticket *models.Ticket) error
	FindOpenIncident(ctx context.Context, deviceID string, since time.Time) (*models.Ticket, error)
}

var _ TicketRepository = (*SQLiteTicketRepository)(nil)

// SQLiteTicketRepository implements TicketRepository over the
// ticketing_tickets table.
type SQLiteTicketRepository struct {
	db *sql.DB

	mu  sync.Mutex
	seq int
}

// NewSQLiteTicketRepository creates a TicketRepository. The ticketing_tickets
// table must already exist.
func NewSQLiteTicketRepository(db *sql.DB) *SQLiteTicketRepository {
	return &SQLiteTicketRepository{db: db}
}

const ticketColumns = `id, number, title, description, type, priority, status,
	category, requester, assigned_to, source_device_id, created_at, updated_at`

// nextNumber produces a human-readable ticket number. The millisecond stamp
// plus an in-process sequence keeps numbers unique even within one
// millisecond.
func (r *SQLiteTicketRepository) nextNumber(now time.Time) string {
	r.mu.Lock()
	r.seq = (r.seq + 1) % 10000
	seq := r.seq
	r.mu.Unlock()
	return fmt.Sprintf("TKT-%d-%04d", now.UnixMilli(), seq)
}

func (r *SQLiteTicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	now := time.Now().UTC()
	if ticket.ID == "" {
		ticket.ID = uuid.New().String()
	}
	if ticket.Number == "" {
		ticket.Number = r.nextNumber(now)
	}
	if ticket.Type == "" {
		ticket.Type = models.TicketTypeIncident
	}
	if ticket.Priority == "" {
		ticket.Priority = models.TicketPriorityMedium
	}
	if ticket.Status == "" {
		ticket.Status = models.TicketStatusNew
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = now
	}
	ticket.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ticketing_tickets (
			id, number, title, description, type, priority, status,
			category, requester, assigned_to, source_device_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ticket.ID, ticket.Number, ticket.Title, ticket.Description,
		string(ticket.Type), string(ticket.Priority), string(ticket.Status),
		ticket.Category, ticket.Requester, ticket.AssignedTo, ticket.SourceDeviceID,
		ticket.CreatedAt, ticket.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

func (r *SQLiteTicketRepository) Get(ctx context.Context, id string) (*models.Ticket, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM ticketing_tickets WHERE id = ?`, id)
	tk, err := scanTicket(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get ticket %q: %w", id, err)
	}
	return tk, nil
}

func (r *SQLiteTicketRepository) List(ctx context.Context, filter TicketFilter, opts ListOptions) (*ListResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}
	if opts.Limit > 1000 {
		opts.Limit = 1000
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	where := "1=1"
	var args []any
	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Priority != "" {
		where += " AND priority = ?"
		args = append(args, filter.Priority)
	}
	if filter.Type != "" {
		where += " AND type = ?"
		args = append(args, filter.Type)
	}
	if filter.AssignedTo != "" {
		where += " AND assigned_to = ?"
		args = append(args, filter.AssignedTo)
	}
	if filter.DeviceID != "" {
		where += " AND source_device_id = ?"
		args = append(args, filter.DeviceID)
	}

	var total int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ticketing_tickets WHERE "+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count tickets: %w", err)
	}

	queryArgs := append(append([]any{}, args...), opts.Limit, opts.Offset)
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+ticketColumns+" FROM ticketing_tickets WHERE "+where+
			" ORDER BY created_at DESC LIMIT ? OFFSET ?", queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	tickets := []models.Ticket{}
	for rows.Next() {
		tk, err := scanTicket(rows.Scan)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *tk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickets: %w", err)
	}
	return &ListResult{Items: tickets, Total: total}, nil
}

func (r *SQLiteTicketRepository) Update(ctx context.Context, ticket *models.Ticket) error {
	ticket.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE ticketing_tickets SET
			title = ?, description = ?, type = ?, priority = ?, status = ?,
			category = ?, assigned_to = ?, updated_at = ?
		WHERE id = ?`,
		ticket.Title, ticket.Description, string(ticket.Type), string(ticket.Priority),
		string(ticket.Status), ticket.Category, ticket.AssignedTo, ticket.UpdatedAt,
		ticket.ID,
	)
	if err != nil {
		return fmt.Errorf("update ticket: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteTicketRepository) FindOpenIncident(ctx context.Context, deviceID string, since time.Time) (*models.Ticket, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+ticketColumns+` FROM ticketing_tickets
		WHERE source_device_id = ?
		  AND type = ?
		  AND status NOT IN (?, ?)
		  AND created_at >= ?
		ORDER BY created_at DESC
		LIMIT 1`,
		deviceID, string(models.TicketTypeIncident),
		string(models.TicketStatusResolved), string(models.TicketStatusClosed),
		since.UTC(),
	)
	tk, err := scanTicket(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find open incident for %q: %w", deviceID, err)
	}
	return tk, nil
}

func scanTicket(scan func(dest ...any) error) (*models.Ticket, error) {
	var tk models.Ticket
	var typ, prio, status string
	err := scan(
		&tk.ID, &tk.Number, &tk.Title, &tk.Description, &typ, &prio, &status,
		&tk.Category, &tk.Requester, &tk.AssignedTo, &tk.SourceDeviceID,
		&tk.CreatedAt, &tk.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	tk.Type = models.TicketType(typ)
	tk.Priority = models.TicketPriority(prio)
	tk.Status = models.TicketStatus(status)
	return &tk, nil
}
