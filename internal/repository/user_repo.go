package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/amoradev/amora/internal/db"
)

// UserRepository provides data access methods for the User model.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
// Pass a transaction handle to scope all methods to that transaction.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

func (r *UserRepository) Create(ctx context.Context, user *db.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByNickname(ctx context.Context, nickname string) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).Where("nickname = ?", nickname).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Exists reports whether a user row with the given id is present.
func (r *UserRepository) Exists(ctx context.Context, id uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id uint64, hash string) error {
	return r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).
		Update("password_hash", hash).Error
}

// Activate flips the account active flag after a successful activation link.
func (r *UserRepository) Activate(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).
		Update("active", true).Error
}

// Deactivate soft-disables the account; rows owned by the user survive.
func (r *UserRepository) Deactivate(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).
		Update("active", false).Error
}

// FindPublicByIDs loads id+nickname pairs for the given user ids.
// Used to annotate match listings with the other party's profile.
func (r *UserRepository) FindPublicByIDs(ctx context.Context, ids []uint64) (map[uint64]db.User, error) {
	if len(ids) == 0 {
		return map[uint64]db.User{}, nil
	}
	var users []db.User
	if err := r.db.WithContext(ctx).
		Select("id", "nickname", "active").
		Where("id IN ?", ids).
		Find(&users).Error; err != nil {
		return nil, err
	}
	out := make(map[uint64]db.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// DeleteWithOwned hard-deletes a user together with every row the user
// owns: sessions, likes and matches on either side, preferences,
// location, reset and activation links. Runs in one transaction.
func (r *UserRepository) DeleteWithOwned(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteOwnedRows(tx, id)
	})
}

// deleteOwnedRows removes the user row and all rows referencing it.
// Must run inside a transaction supplied by the caller.
func deleteOwnedRows(tx *gorm.DB, id uint64) error {
	if err := tx.Where("user_id = ?", id).Delete(&db.Session{}).Error; err != nil {
		return err
	}
	if err := tx.Where("liker_id = ? OR likee_id = ?", id, id).Delete(&db.UserLike{}).Error; err != nil {
		return err
	}
	if err := tx.Where("user1_id = ? OR user2_id = ?", id, id).Delete(&db.UserMatch{}).Error; err != nil {
		return err
	}
	if err := tx.Where("user_id = ?", id).Delete(&db.UserMatchPreference{}).Error; err != nil {
		return err
	}
	if err := tx.Where("user_id = ?", id).Delete(&db.UserLocation{}).Error; err != nil {
		return err
	}
	if err := tx.Where("user_id = ?", id).Delete(&db.PasswordResetLink{}).Error; err != nil {
		return err
	}
	if err := tx.Where("user_id = ?", id).Delete(&db.ActivationLink{}).Error; err != nil {
		return err
	}
	return tx.Delete(&db.User{}, id).Error
}
