package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	"time-nest/backend/internal/logging"
	"time-nest/backend/internal/models"
)

// mysqlDuplicateEntry はMySQLの重複エントリーエラーコードです。
const mysqlDuplicateEntry = 1062

// MySQLUserRepository はMySQLのusersテーブルを操作します。
type MySQLUserRepository struct {
	DB *sql.DB
}

// NewMySQLUserRepository は新しいMySQLUserRepositoryインスタンスを作成します。
func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{DB: db}
}

const userColumns = "id, email, name, auth_provider, created_at, updated_at"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var (
		u  models.User
		id int64
	)
	if err := row.Scan(&id, &u.Email, &u.Name, &u.AuthProvider, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.ID = strconv.FormatInt(id, 10)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

// Create は新しいユーザーをデータベースに挿入します。
func (r *MySQLUserRepository) Create(ctx context.Context, u *models.User) error {
	query := "INSERT INTO users (email, name, auth_provider, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"
	result, err := r.DB.ExecContext(ctx, query, u.Email, u.Name, u.AuthProvider, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
			return ErrDuplicateEmail
		}
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to insert user")
		return fmt.Errorf("could not insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("could not get last insert ID: %w", err)
	}
	u.ID = strconv.FormatInt(id, 10)
	return nil
}

// FindByEmail はメールアドレスでユーザーを検索します。
func (r *MySQLUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = ?"
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("could not query user: %w", err)
	}
	return u, nil
}

// FindByID はIDでユーザーを検索します。
func (r *MySQLUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, ErrUserNotFound
	}
	query := "SELECT " + userColumns + " FROM users WHERE id = ?"
	u, err := scanUser(r.DB.QueryRowContext(ctx, query, n))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("could not query user: %w", err)
	}
	return u, nil
}

// UpdateLogin はログイン時の名前・認証プロバイダ・更新日時を更新します。
func (r *MySQLUserRepository) UpdateLogin(ctx context.Context, id, name, provider string, at time.Time) (*models.User, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, ErrUserNotFound
	}
	_, err = r.DB.ExecContext(ctx,
		"UPDATE users SET name = ?, auth_provider = ?, updated_at = ? WHERE id = ?",
		name, provider, at, n,
	)
	if err != nil {
		return nil, fmt.Errorf("could not update user: %w", err)
	}
	return r.FindByID(ctx, id)
}
