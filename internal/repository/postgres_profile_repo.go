package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/employeeinfo/internal/model"
)

// PostgresProfileRepo はPostgreSQLを使用した従業員情報リポジトリ。
// profiles.owner_idの一意制約により所有者ごとに高々1件を保証する。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByOwner は所有者のレコードを取得する。見つからない場合はnilを返す。
// 同一所有者の件数をウィンドウ関数で同時に取得し、2件以上なら整合性エラーとする。
func (r *PostgresProfileRepo) FindByOwner(ctx context.Context, ownerID string) (*model.Profile, error) {
	var (
		p         model.Profile
		birthDate time.Time
		total     int
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, owner_id, name, employee_code, birth_date, email, phone_number,
		        created_at, updated_at, count(*) OVER ()
		 FROM profiles
		 WHERE owner_id = $1
		 ORDER BY created_at
		 LIMIT 1`,
		ownerID,
	).Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.EmployeeCode, &birthDate, &p.Email, &p.PhoneNumber,
		&p.CreatedAt, &p.UpdatedAt, &total,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile by owner: %w", err)
	}
	if total > 1 {
		return nil, model.NewProfileIntegrityError(total)
	}

	p.BirthDate = birthDate.Format(model.BirthDateLayout)
	return &p, nil
}

// Create は所有者のレコードを作成する。IDはリポジトリ側で採番し、
// created_at/updated_atはデータベースの時刻を使用する。
func (r *PostgresProfileRepo) Create(ctx context.Context, ownerID string, fields model.ProfileFields) (*model.Profile, error) {
	p := &model.Profile{
		ID:            uuid.New().String(),
		OwnerID:       ownerID,
		ProfileFields: fields,
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO profiles (id, owner_id, name, employee_code, birth_date, email, phone_number)
		 VALUES ($1, $2, $3, $4, $5::date, $6, $7)
		 RETURNING created_at, updated_at`,
		p.ID, ownerID, fields.Name, fields.EmployeeCode, fields.BirthDate, fields.Email, fields.PhoneNumber,
	).Scan(&p.CreatedAt, &p.UpdatedAt)

	if isUniqueViolation(err, constraintProfilesOwner) {
		return nil, model.NewProfileExistsError()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert profile: %w", err)
	}

	return p, nil
}

// Replace はIDと所有者が一致するレコードの全フィールドを置き換える。
// 所有者が一致しない場合は他人のレコードを更新せず、未検出として扱う。
func (r *PostgresProfileRepo) Replace(ctx context.Context, id, ownerID string, fields model.ProfileFields) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles
		 SET name = $3, employee_code = $4, birth_date = $5::date, email = $6, phone_number = $7,
		     updated_at = now()
		 WHERE id = $1 AND owner_id = $2`,
		id, ownerID, fields.Name, fields.EmployeeCode, fields.BirthDate, fields.Email, fields.PhoneNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to replace profile: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewProfileNotFoundError()
	}
	return nil
}

// compile-time interface check
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
