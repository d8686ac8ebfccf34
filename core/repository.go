package core

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
)

// UserRecord is a users row including the credential columns.
type UserRecord struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u UserRecord) principal(role Role) Principal {
	return Principal{
		ID:        u.ID,
		Email:     u.Email,
		Phone:     u.Phone,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UserListItem is a projection for admin user listing (no password hash).
type UserListItem struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone_number,omitempty"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserFilter narrows the admin listing. Zero values mean "no filter".
type UserFilter struct {
	Search  string
	Role    Role
	Active  *bool
	Page    int
	PerPage int
}

// NewUser carries the columns written by Create. PasswordHash must already be hashed.
type NewUser struct {
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	PasswordHash string
	Role         Role
	IsActive     bool
}

type UserStats struct {
	Total  int          `json:"total"`
	Active int          `json:"active"`
	ByRole map[Role]int `json:"by_role"`
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// FindByIdentifier returns ErrUserNotFound when nothing matches and
	// ErrAmbiguousIdentifier when more than one row does.
	FindByIdentifier(ctx context.Context, id Identifier) (*UserRecord, error)
	Create(ctx context.Context, u NewUser) (UserRecord, error)
	HasAdmin(ctx context.Context) (bool, error)
	List(ctx context.Context, f UserFilter) ([]UserListItem, int, error)
	Stats(ctx context.Context) (UserStats, error)
	SetActive(ctx context.Context, id string, active bool) (UserListItem, error)
}

// PgUserRepository implements UserRepository using pgxpool.
type PgUserRepository struct {
	db *pgxpool.Pool
}

func NewPgUserRepository(db *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{db: db}
}

const userColumns = `id::text, first_name, last_name, email, COALESCE(phone_number, ''), password_hash, role, is_active, created_at, updated_at`

func (r *PgUserRepository) FindByIdentifier(ctx context.Context, id Identifier) (*UserRecord, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE phone_number = $1 LIMIT 2`
	if id.Kind == IdentifierEmail {
		q = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) LIMIT 2`
	}
	rows, err := r.db.Query(ctx, q, id.Value)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var found []UserRecord
	for rows.Next() {
		var u UserRecord
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		found = append(found, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(found) {
	case 0:
		return nil, ErrUserNotFound
	case 1:
		return &found[0], nil
	default:
		return nil, ErrAmbiguousIdentifier
	}
}

func (r *PgUserRepository) Create(ctx context.Context, u NewUser) (UserRecord, error) {
	const q = `
INSERT INTO users (id, first_name, last_name, email, phone_number, password_hash, role, is_active)
VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8)
RETURNING ` + userColumns
	var rec UserRecord
	err := r.db.QueryRow(ctx, q,
		uuid.NewString(), u.FirstName, u.LastName, u.Email, u.Phone, u.PasswordHash, u.Role.storageName(), u.IsActive,
	).Scan(&rec.ID, &rec.FirstName, &rec.LastName, &rec.Email, &rec.Phone, &rec.PasswordHash, &rec.Role, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return UserRecord{}, ErrDuplicateUser
		}
		return UserRecord{}, err
	}
	return rec, nil
}

func (r *PgUserRepository) HasAdmin(ctx context.Context) (bool, error) {
	const q = `SELECT 1 FROM users WHERE lower(role)='admin' LIMIT 1`
	var one int
	if err := r.db.QueryRow(ctx, q).Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns paginated users without password hash, newest first.
func (r *PgUserRepository) List(ctx context.Context, f UserFilter) ([]UserListItem, int, error) {
	if f.Page <= 0 || f.PerPage <= 0 {
		return nil, 0, errors.New("invalid pagination")
	}
	where, args := buildUserFilter(f)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	q := fmt.Sprintf(`SELECT id::text, first_name, last_name, email, COALESCE(phone_number, ''), role, is_active, created_at
FROM users%s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, where, n+1, n+2)
	args = append(args, f.PerPage, (f.Page-1)*f.PerPage)
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := make([]UserListItem, 0, f.PerPage)
	for rows.Next() {
		var (
			u    UserListItem
			role string
		)
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &role, &u.IsActive, &u.CreatedAt); err != nil {
			return nil, 0, err
		}
		u.Role = displayRole(role)
		items = append(items, u)
	}
	return items, total, rows.Err()
}

func (r *PgUserRepository) Stats(ctx context.Context) (UserStats, error) {
	rows, err := r.db.Query(ctx, `SELECT lower(role), COUNT(*), COUNT(*) FILTER (WHERE is_active) FROM users GROUP BY lower(role)`)
	if err != nil {
		return UserStats{}, err
	}
	defer rows.Close()
	st := UserStats{ByRole: map[Role]int{}}
	for rows.Next() {
		var (
			role          string
			total, active int
		)
		if err := rows.Scan(&role, &total, &active); err != nil {
			return UserStats{}, err
		}
		st.Total += total
		st.Active += active
		st.ByRole[displayRole(role)] += total
	}
	return st, rows.Err()
}

func (r *PgUserRepository) SetActive(ctx context.Context, id string, active bool) (UserListItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return UserListItem{}, ErrUserNotFound
	}
	const q = `
UPDATE users SET is_active = $2, updated_at = now() WHERE id = $1
RETURNING id::text, first_name, last_name, email, COALESCE(phone_number, ''), role, is_active, created_at`
	var (
		u    UserListItem
		role string
	)
	err := r.db.QueryRow(ctx, q, id, active).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &role, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserListItem{}, ErrUserNotFound
		}
		return UserListItem{}, err
	}
	u.Role = displayRole(role)
	return u, nil
}

// buildUserFilter renders the WHERE clause shared by the count and page queries.
func buildUserFilter(f UserFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if s := strings.TrimSpace(f.Search); s != "" {
		args = append(args, "%"+escapeLike(strings.ToLower(s))+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(lower(first_name) LIKE $%[1]d OR lower(last_name) LIKE $%[1]d OR lower(email) LIKE $%[1]d OR COALESCE(phone_number, '') LIKE $%[1]d)", n))
	}
	if f.Role != "" {
		args = append(args, f.Role.storageName())
		conds = append(conds, fmt.Sprintf("lower(role) = $%d", len(args)))
	}
	if f.Active != nil {
		args = append(args, *f.Active)
		conds = append(conds, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// displayRole maps a stored role to the upper-case form; unknown values are
// kept verbatim so an admin can spot them.
func displayRole(stored string) Role {
	if r, ok := ParseRole(stored); ok {
		return r
	}
	return Role(stored)
}
