package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/civicline/civicline-api/internal/data/database"
	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
	"github.com/civicline/civicline-api/internal/domain/model"
	apperrors "github.com/civicline/civicline-api/internal/errors"
)

var userColumns = []string{
	"id", "full_name", "email", "password_hash", "role", "department_id", "status", "created_at", "updated_at",
}

const (
	userSelect = `SELECT id, full_name, email, password_hash, role, department_id, status, created_at, updated_at FROM users`

	userFindByEmailQuery = userSelect + ` WHERE lower(email) = lower($1)`
	userFindByIDQuery    = userSelect + ` WHERE id = $1`

	userInsertQuery = `
		INSERT INTO users (full_name, email, password_hash, role, department_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	userUpdatePasswordQuery = `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`

	// NULL parameters keep the current column value.
	userUpdateAccountQuery = `
		UPDATE users SET
			role          = COALESCE($2::text, role),
			status        = COALESCE($3::text, status),
			department_id = COALESCE($4::bigint, department_id),
			updated_at    = now()
		WHERE id = $1`
)

// UserRepo is the Postgres credential store. It holds no logic beyond data
// access; emails are matched case-insensitively.
type UserRepo struct {
	DB *sql.DB
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domainauth.Account, error) {
	var (
		a    domainauth.Account
		dept sql.NullInt64
	)
	if err := row.Scan(
		&a.ID, &a.FullName, &a.Email, &a.PasswordHash, &a.Role, &dept, &a.Status, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if dept.Valid {
		a.DepartmentID = &dept.Int64
	}
	return &a, nil
}

// FindByEmail returns nil, nil when no account matches.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*domainauth.Account, error) {
	acc, err := scanAccount(r.DB.QueryRowContext(ctx, userFindByEmailQuery, domainauth.NormalizeEmail(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil //nolint:nilnil // absence is not an error for credential lookups
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", apperrors.MapDBError(err))
	}
	return acc, nil
}

// FindByID retrieves an account by ID.
func (r *UserRepo) FindByID(ctx context.Context, id int64) (*domainauth.Account, error) {
	acc, err := scanAccount(r.DB.QueryRowContext(ctx, userFindByIDQuery, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", apperrors.MapDBError(err))
	}
	return acc, nil
}

// Insert creates an account and returns its ID. Duplicate emails map to a
// Conflict error.
func (r *UserRepo) Insert(ctx context.Context, acc domainauth.NewAccount) (int64, error) {
	role := acc.Role
	if role == "" {
		role = domainauth.RoleCitizen
	}
	var id int64
	err := r.DB.QueryRowContext(ctx, userInsertQuery,
		acc.FullName, domainauth.NormalizeEmail(acc.Email), acc.PasswordHash, string(role), acc.DepartmentID,
	).Scan(&id)
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	return id, nil
}

// List returns accounts ordered by ID.
func (r *UserRepo) List(ctx context.Context, opts model.UserListOptions) ([]*domainauth.Account, error) {
	opts.Normalize()
	qopts := []database.ListQueryOption{
		database.WithColumns(userColumns...),
		database.WithOrderBy("ASC", "id"),
		database.WithLimit(opts.Limit),
		database.WithOffset(opts.Offset),
	}
	if opts.Role != nil {
		qopts = append(qopts, database.WithCondition(database.WhereCond("role", database.Equal, string(*opts.Role))))
	}
	if opts.Status != nil {
		qopts = append(qopts, database.WithCondition(database.WhereCond("status", database.Equal, string(*opts.Status))))
	}
	query, args := database.BuildListQuery(database.NewListQueryOptions("users", qopts...))

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	var out []*domainauth.Account
	for rows.Next() {
		acc, scanErr := scanAccount(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan user: %w", scanErr)
		}
		out = append(out, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", apperrors.MapDBError(err))
	}
	return out, nil
}

// UpdatePasswordHash replaces the stored hash.
func (r *UserRepo) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	return r.execUpdate(ctx, userUpdatePasswordQuery, id, hash)
}

// UpdateAccount writes role, status and department in a single statement.
func (r *UserRepo) UpdateAccount(ctx context.Context, id int64, upd domainauth.AccountUpdate) error {
	var role, status *string
	if upd.Role != nil {
		role = new(string)
		*role = string(*upd.Role)
	}
	if upd.Status != nil {
		status = new(string)
		*status = string(*upd.Status)
	}
	return r.execUpdate(ctx, userUpdateAccountQuery, id, role, status, upd.DepartmentID)
}

func (r *UserRepo) execUpdate(ctx context.Context, query string, id int64, values ...any) error {
	res, err := r.DB.ExecContext(ctx, query, append([]any{id}, values...)...)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return apperrors.NotFoundf("user %d not found", id)
	}
	return nil
}
