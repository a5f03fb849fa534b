package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/campuseats/campuseats/internal/model"
	"github.com/campuseats/campuseats/internal/utils"
)

// User mirrors the 'users' table. OnboardingFields holds the raw JSON
// blob the wizard saves step by step; it is merged, never replaced.
type User struct {
	ID                  uint64
	Name                string
	Email               string
	Phone               sql.NullString
	PasswordHash        sql.NullString
	Role                string
	CollegeID           sql.NullInt64
	OnboardingStep      int
	OnboardingCompleted bool
	AdminVerified       bool
	OnboardingFields    []byte
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrEmailExists = errors.New("email already exists")

const userCols = `id,name,email,phone,password_hash,role,college_id,
	onboarding_step,onboarding_completed,admin_verified,onboarding_fields,
	created_at,updated_at`

// Create inserts a user and returns its ID. password may be empty for
// OTP-only accounts.
func (r *UserRepo) Create(ctx context.Context, name, email, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var hash sql.NullString
	if password != "" {
		h, err := utils.HashPassword(password, cost)
		if err != nil {
			return 0, err
		}
		hash = sql.NullString{String: h, Valid: true}
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)",
		name, email, hash, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.getWhere(ctx, "email=?", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (User, error) {
	return r.getWhere(ctx, "id=?", id)
}

func (r *UserRepo) getWhere(ctx context.Context, cond string, arg any) (User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE "+cond+" LIMIT 1", arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &u.CollegeID,
		&u.OnboardingStep, &u.OnboardingCompleted, &u.AdminVerified, &u.OnboardingFields,
		&u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// SaveOnboardingStep merges the step's field values into the stored
// blob and advances the recorded step. GREATEST keeps the step
// monotonic: revisiting an earlier step never loses progress.
func (r *UserRepo) SaveOnboardingStep(ctx context.Context, userID uint64, step int, fields map[string]any) error {
	u, err := r.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	merged := map[string]any{}
	if len(u.OnboardingFields) > 0 {
		// Corrupt blobs start over rather than block the wizard.
		_ = json.Unmarshal(u.OnboardingFields, &merged)
	}
	for k, v := range fields {
		merged[k] = v
	}
	blob, err := json.Marshal(merged)
	if err != nil {
		return err
	}

	// Promote well-known fields into their own columns.
	phone, _ := merged["phone"].(string)
	var collegeID sql.NullInt64
	if v, ok := merged["college_id"].(float64); ok && v > 0 {
		collegeID = sql.NullInt64{Int64: int64(v), Valid: true}
	}

	_, err = r.DB.ExecContext(ctx,
		`UPDATE users SET onboarding_fields=?, onboarding_step=GREATEST(onboarding_step, ?),
		 phone=COALESCE(NULLIF(?, ''), phone), college_id=COALESCE(?, college_id)
		 WHERE id=?`,
		blob, step, phone, collegeID, userID)
	return err
}

// CompleteOnboarding flips the one-way completion flag. Already
// completed users pass through unchanged.
func (r *UserRepo) CompleteOnboarding(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET onboarding_completed=1 WHERE id=?", userID)
	return err
}

// SetAdminVerified is the admin approval switch for canteen owners.
func (r *UserRepo) SetAdminVerified(ctx context.Context, userID uint64, verified bool) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET admin_verified=? WHERE id=?", verified, userID)
	return err
}

// ListUnverifiedOwners returns canteen owners awaiting admin approval.
func (r *UserRepo) ListUnverifiedOwners(ctx context.Context) ([]User, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userCols+" FROM users WHERE role=? AND onboarding_completed=1 AND admin_verified=0 ORDER BY created_at",
		string(model.RoleCanteenOwner))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]User, 0)
	for rows.Next() {
		var u User
		if err := rows.Scan(
			&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role, &u.CollegeID,
			&u.OnboardingStep, &u.OnboardingCompleted, &u.AdminVerified, &u.OnboardingFields,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Identity converts a row into the wire identity. canteenID is looked
// up separately for owners; pass nil for everyone else.
func (u User) Identity(canteenID *uint64) model.Identity {
	id := model.Identity{
		ID:                  u.ID,
		Name:                u.Name,
		Email:               u.Email,
		Role:                model.Role(u.Role),
		OnboardingStep:      u.OnboardingStep,
		OnboardingCompleted: u.OnboardingCompleted,
		AdminVerified:       u.AdminVerified,
		CanteenID:           canteenID,
	}
	if u.Phone.Valid {
		id.Phone = u.Phone.String
	}
	if u.CollegeID.Valid {
		cid := uint64(u.CollegeID.Int64)
		id.CollegeID = &cid
	}
	return id
}
