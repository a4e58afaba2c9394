package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
	"github.com/vnkhanh/code-review-backend/storage"
	"github.com/vnkhanh/code-review-backend/utils"
)

type ProfileInput struct {
	Name *string
	Bio  *string
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     models.UserRole
	CohortID *uuid.UUID
}

type UserService struct {
	store       repository.Store
	objects     storage.ObjectStorage
	mailer      Mailer
	logger      *slog.Logger
	frontendURL string
	maxBytes    int64
}

func NewUserService(store repository.Store, objects storage.ObjectStorage, mailer Mailer, logger *slog.Logger, frontendURL string, maxBytes int64) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &UserService{
		store:       store,
		objects:     objects,
		mailer:      mailer,
		logger:      logger,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		maxBytes:    maxBytes,
	}
}

func (s *UserService) load(ctx context.Context, store repository.Store, id uuid.UUID) (*models.User, error) {
	u, err := store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("user not found")
		}
		return nil, Internal("failed to load user", err)
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, actor Actor, f repository.UserFilter, page repository.Page) ([]models.User, int64, error) {
	if !actor.IsAdmin() {
		return nil, 0, Forbidden("only admins can list users")
	}
	list, total, err := s.store.ListUsers(ctx, f, page)
	if err != nil {
		return nil, 0, Internal("failed to list users", err)
	}
	return list, total, nil
}

// Get: bản thân, admin hoặc reviewer được xem hồ sơ.
func (s *UserService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*models.User, error) {
	if !actor.Is(id) && !actor.IsAdmin() && actor.Role != models.RoleReviewer {
		return nil, Forbidden("you do not have access to this user")
	}
	return s.load(ctx, s.store, id)
}

func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, in ProfileInput) (*models.User, error) {
	u, err := s.load(ctx, s.store, actor.UserID)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, BadRequest("name is required")
		}
		u.Name = name
	}
	if in.Bio != nil {
		u.Bio = strings.TrimSpace(*in.Bio)
	}
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, Internal("failed to update profile", err)
	}
	return u, nil
}

func (s *UserService) ChangePassword(ctx context.Context, actor Actor, oldPassword, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return BadRequest(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	u, err := s.load(ctx, s.store, actor.UserID)
	if err != nil {
		return err
	}
	if !checkPassword(u.Password, oldPassword) {
		return Unauthorized("current password is incorrect")
	}
	hashed, err := hashPassword(newPassword)
	if err != nil {
		return Internal("failed to hash password", err)
	}
	u.Password = hashed
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return Internal("failed to update password", err)
	}
	return nil
}

func (s *UserService) UpdatePreferences(ctx context.Context, actor Actor, prefs models.NotificationPreferences) (*models.User, error) {
	u, err := s.load(ctx, s.store, actor.UserID)
	if err != nil {
		return nil, err
	}
	u.Preferences = prefs
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, Internal("failed to update preferences", err)
	}
	return u, nil
}

func (s *UserService) UploadAvatar(ctx context.Context, actor Actor, in UploadInput) (*models.User, error) {
	if s.objects == nil {
		return nil, Unavailable("file storage is not configured")
	}
	if !utils.IsImage(in.ContentType) {
		return nil, BadRequest("profile picture must be an image")
	}
	if in.Size > s.maxBytes {
		return nil, TooLarge(fmt.Sprintf("file exceeds the %d MB limit", s.maxBytes>>20))
	}
	data, err := readLimited(in.Body, s.maxBytes)
	if err != nil {
		return nil, err
	}
	u, err := s.load(ctx, s.store, actor.UserID)
	if err != nil {
		return nil, err
	}
	key := objectKey("avatars", u.ID, in.Filename)
	url, err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), in.ContentType)
	if err != nil {
		return nil, Internal("failed to store profile picture", err)
	}
	u.ProfilePicture = url
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, Internal("failed to update profile picture", err)
	}
	return u, nil
}

// Create: admin tạo tài khoản đã xác minh; chỉ superadmin được tạo admin.
func (s *UserService) Create(ctx context.Context, actor Actor, in CreateUserInput) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("only admins can create users")
	}
	if err := checkRoleGrant(actor, in.Role); err != nil {
		return nil, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, BadRequest("name is required")
	}
	if len(in.Password) < minPasswordLen {
		return nil, BadRequest(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	if in.Role == models.RoleStudent && in.CohortID == nil {
		return nil, BadRequest("cohort_id is required for students")
	}
	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, Internal("failed to hash password", err)
	}

	u := &models.User{
		Name:        name,
		Email:       email,
		Password:    hashed,
		Role:        in.Role,
		IsActive:    true,
		IsVerified:  true,
		Preferences: models.DefaultNotificationPreferences(),
	}
	if in.Role == models.RoleStudent {
		u.CohortID = in.CohortID
	}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if u.CohortID != nil {
			if _, err := tx.GetCohort(ctx, *u.CohortID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return BadRequest("cohort does not exist")
				}
				return Internal("failed to load cohort", err)
			}
		}
		if err := tx.CreateUser(ctx, u); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return Conflict("email is already registered")
			}
			return Internal("failed to create user", err)
		}
		if u.CohortID != nil {
			if err := tx.AddCohortStudent(ctx, *u.CohortID, u.ID); err != nil {
				return Internal("failed to join cohort", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Gửi email thông báo, lỗi chỉ log
	if s.mailer != nil {
		if err := s.mailer.SendTemplate(ctx, u.Email, "Your account has been created", "welcome", map[string]interface{}{
			"Name":  u.Name,
			"Role":  string(u.Role),
			"Email": u.Email,
			"Link":  s.frontendURL + "/login",
		}); err != nil {
			s.logger.Warn("welcome email failed", slog.String("to", u.Email), slog.String("error", err.Error()))
		}
	}
	return u, nil
}

func checkRoleGrant(actor Actor, role models.UserRole) error {
	if !role.Valid() || role == models.RoleSuperAdmin {
		return BadRequest("invalid role")
	}
	if role == models.RoleAdmin && actor.Role != models.RoleSuperAdmin {
		return Forbidden("only the superadmin can grant the admin role")
	}
	return nil
}

// SetRole đổi role. Rời reviewer/admin thì tắt mọi assignment active của user;
// rời student thì bỏ khỏi cohort. cohortID bắt buộc khi chuyển sang student mà chưa có cohort.
func (s *UserService) SetRole(ctx context.Context, actor Actor, id uuid.UUID, role models.UserRole, cohortID *uuid.UUID) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("only admins can change roles")
	}
	if err := checkRoleGrant(actor, role); err != nil {
		return nil, err
	}

	var updated *models.User
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		u, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if u.Role == models.RoleSuperAdmin {
			return Forbidden("the superadmin role cannot be changed")
		}
		if u.Role == models.RoleAdmin && actor.Role != models.RoleSuperAdmin {
			return Forbidden("only the superadmin can change an admin's role")
		}

		if role == models.RoleStudent {
			target := u.CohortID
			if cohortID != nil {
				target = cohortID
			}
			if target == nil {
				return BadRequest("students must belong to a cohort")
			}
			if _, err := tx.GetCohort(ctx, *target); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return BadRequest("cohort does not exist")
				}
				return Internal("failed to load cohort", err)
			}
			if u.CohortID != nil && *u.CohortID != *target {
				if err := tx.RemoveCohortStudent(ctx, *u.CohortID, u.ID); err != nil {
					return Internal("failed to update cohort students", err)
				}
			}
			if err := tx.AddCohortStudent(ctx, *target, u.ID); err != nil {
				return Internal("failed to update cohort students", err)
			}
			u.CohortID = target
			if u.Role != models.RoleStudent {
				if err := deactivateReviewerAssignments(ctx, tx, u.ID); err != nil {
					return Internal("failed to revoke assignments", err)
				}
			}
		} else if u.Role == models.RoleStudent && u.CohortID != nil {
			if err := tx.RemoveCohortStudent(ctx, *u.CohortID, u.ID); err != nil {
				return Internal("failed to update cohort students", err)
			}
			u.CohortID = nil
		}

		u.Role = role
		if err := tx.UpdateUser(ctx, u); err != nil {
			return Internal("failed to update role", err)
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *UserService) SetActive(ctx context.Context, actor Actor, id uuid.UUID, active bool) (*models.User, error) {
	if !actor.IsAdmin() {
		return nil, Forbidden("only admins can change account status")
	}
	if actor.Is(id) {
		return nil, BadRequest("you cannot change your own account status")
	}
	u, err := s.load(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if u.Role.IsAdmin() && actor.Role != models.RoleSuperAdmin {
		return nil, Forbidden("only the superadmin can change an admin's status")
	}
	u.IsActive = active
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, Internal("failed to update account status", err)
	}
	return u, nil
}
