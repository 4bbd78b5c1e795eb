package repository

import (
	"context"
	"errors"
	"strings"

	domainUser "github.com/mahalbangetid-beep/scb-sub003/domains/user"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserGormRepository struct {
	db *gorm.DB
}

var _ domainUser.IUserRepository = (*UserGormRepository)(nil)

func NewUserGormRepository(db *gorm.DB) *UserGormRepository {
	return &UserGormRepository{db: db}
}

func (r *UserGormRepository) Create(ctx context.Context, u *domainUser.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := utcNow()
	u.CreatedAt, u.UpdatedAt = now, now
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	m := toUserModel(*u)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return domainUser.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *UserGormRepository) GetByID(ctx context.Context, id string) (*domainUser.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *UserGormRepository) GetByEmail(ctx context.Context, email string) (*domainUser.User, error) {
	return r.first(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserGormRepository) first(ctx context.Context, query string, args ...any) (*domainUser.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domainUser.ErrUserNotFound
		}
		return nil, err
	}
	u := fromUserModel(m)
	return &u, nil
}

func (r *UserGormRepository) Update(ctx context.Context, u *domainUser.User) error {
	u.UpdatedAt = utcNow()
	m := toUserModel(*u)
	res := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", u.ID).Updates(map[string]any{
		"name":          m.Name,
		"email":         m.Email,
		"password_hash": m.PasswordHash,
		"role":          m.Role,
		"is_active":     m.IsActive,
		"updated_at":    m.UpdatedAt,
	})
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return domainUser.ErrEmailTaken
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainUser.ErrUserNotFound
	}
	return nil
}

func toUserModel(u domainUser.User) userModel {
	return userModel{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func fromUserModel(m userModel) domainUser.User {
	return domainUser.User{
		ID:           m.ID,
		Name:         m.Name,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		Role:         domainUser.Role(m.Role),
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
