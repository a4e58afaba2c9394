package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"cloud.google.com/go/auth/credentials/idtoken"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vnkhanh/code-review-backend/metrics"
	"github.com/vnkhanh/code-review-backend/models"
	"github.com/vnkhanh/code-review-backend/repository"
	"github.com/vnkhanh/code-review-backend/utils"
)

const (
	verificationTTL = 24 * time.Hour
	resetTTL        = time.Hour
	minPasswordLen  = 6
)

// passwordCost được hạ xuống trong test cho nhanh.
var passwordCost = bcrypt.DefaultCost

func hashPassword(pw string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(pw), passwordCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func checkPassword(hash, pw string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", BadRequest("invalid email address")
	}
	return email, nil
}

// IDTokenVerifier xác minh ID token của nhà cung cấp đăng nhập, trả về email.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, token string) (string, error)
}

type GoogleVerifier struct {
	ClientID string
}

func (v GoogleVerifier) VerifyIDToken(ctx context.Context, token string) (string, error) {
	payload, err := idtoken.Validate(ctx, token, v.ClientID)
	if err != nil {
		return "", err
	}
	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return "", errors.New("google token has no email claim")
	}
	return email, nil
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     models.UserRole
	CohortID *uuid.UUID
}

type AuthService struct {
	store       repository.Store
	tokens      *utils.TokenManager
	mailer      Mailer
	google      IDTokenVerifier
	logger      *slog.Logger
	frontendURL string
	now         func() time.Time
}

func NewAuthService(store repository.Store, tokens *utils.TokenManager, mailer Mailer, google IDTokenVerifier, logger *slog.Logger, frontendURL string) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		store:       store,
		tokens:      tokens,
		mailer:      mailer,
		google:      google,
		logger:      logger,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         time.Now,
	}
}

// sendMail gửi email theo template; lỗi chỉ log, không làm hỏng thao tác chính.
func (s *AuthService) sendMail(ctx context.Context, to, subject, name string, data any) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.SendTemplate(ctx, to, subject, name, data); err != nil {
		metrics.EmailsTotal.WithLabelValues(name, "failed").Inc()
		s.logger.Warn("email failed", slog.String("template", name), slog.String("to", to), slog.String("error", err.Error()))
		return
	}
	metrics.EmailsTotal.WithLabelValues(name, "sent").Inc()
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
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
	role := in.Role
	if role == "" {
		role = models.RoleStudent
	}
	if role != models.RoleStudent && role != models.RoleReviewer {
		return nil, BadRequest("role must be student or reviewer")
	}
	if role == models.RoleStudent && in.CohortID == nil {
		return nil, BadRequest("cohort_id is required for students")
	}

	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, Internal("failed to hash password", err)
	}
	raw, hash, err := utils.NewOpaqueToken()
	if err != nil {
		return nil, Internal("failed to create verification token", err)
	}
	expires := s.now().Add(verificationTTL)

	u := &models.User{
		Name:                  name,
		Email:                 email,
		Password:              hashed,
		Role:                  role,
		IsActive:              true,
		VerificationTokenHash: hash,
		VerificationExpiresAt: &expires,
		Preferences:           models.DefaultNotificationPreferences(),
	}
	if role == models.RoleStudent {
		u.CohortID = in.CohortID
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if _, err := tx.GetUserByEmail(ctx, email); err == nil {
			return Conflict("email is already registered")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return Internal("failed to check email", err)
		}
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

	s.sendMail(ctx, u.Email, "Verify your email", "verify_email", map[string]interface{}{
		"Name":      u.Name,
		"Link":      s.frontendURL + "/verify-email?token=" + raw,
		"ExpiresIn": "24 hours",
	})
	return u, nil
}

// issue tạo JWT và cập nhật last login.
func (s *AuthService) issue(ctx context.Context, u *models.User) (string, error) {
	token, err := s.tokens.GenerateToken(u.ID.String(), string(u.Role))
	if err != nil {
		return "", Internal("failed to create token", err)
	}
	now := s.now()
	u.LastLogin = &now
	if err := s.store.UpdateUser(ctx, u); err != nil {
		s.logger.Warn("update last login failed", slog.String("user_id", u.ID.String()), slog.String("error", err.Error()))
	}
	return token, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", Unauthorized("invalid email or password")
		}
		return nil, "", Internal("failed to load user", err)
	}
	if !checkPassword(u.Password, password) {
		return nil, "", Unauthorized("invalid email or password")
	}
	if !u.IsVerified {
		return nil, "", Forbidden("please verify your email before logging in")
	}
	if !u.IsActive {
		return nil, "", Forbidden("account is deactivated")
	}
	token, err := s.issue(ctx, u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// GoogleLogin chỉ đăng nhập tài khoản đã tồn tại; email Google coi như đã xác minh.
func (s *AuthService) GoogleLogin(ctx context.Context, idToken string) (*models.User, string, error) {
	if s.google == nil {
		return nil, "", Unavailable("google login is not configured")
	}
	email, err := s.google.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, "", Unauthorized("invalid google token")
	}
	u, err := s.store.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", Unauthorized("no account is registered with this google email")
		}
		return nil, "", Internal("failed to load user", err)
	}
	if !u.IsActive {
		return nil, "", Forbidden("account is deactivated")
	}
	if !u.IsVerified {
		u.IsVerified = true
		u.VerificationTokenHash = ""
		u.VerificationExpiresAt = nil
	}
	token, err := s.issue(ctx, u)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, BadRequest("token is required")
	}
	u, err := s.store.GetUserByVerificationToken(ctx, utils.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, BadRequest("invalid or already used verification token")
		}
		return nil, Internal("failed to load user", err)
	}
	if u.VerificationExpiresAt == nil || s.now().After(*u.VerificationExpiresAt) {
		return nil, BadRequest("verification token has expired")
	}
	u.IsVerified = true
	u.VerificationTokenHash = ""
	u.VerificationExpiresAt = nil
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return nil, Internal("failed to verify user", err)
	}
	return u, nil
}

// ResendVerification không tiết lộ email có tồn tại hay không.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	u, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil || u.IsVerified {
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("resend verification lookup failed", slog.String("error", err.Error()))
		}
		return nil
	}
	raw, hash, err := utils.NewOpaqueToken()
	if err != nil {
		return Internal("failed to create verification token", err)
	}
	expires := s.now().Add(verificationTTL)
	u.VerificationTokenHash = hash
	u.VerificationExpiresAt = &expires
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return Internal("failed to save verification token", err)
	}
	s.sendMail(ctx, u.Email, "Verify your email", "verify_email", map[string]interface{}{
		"Name":      u.Name,
		"Link":      s.frontendURL + "/verify-email?token=" + raw,
		"ExpiresIn": "24 hours",
	})
	return nil
}

func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("forgot password lookup failed", slog.String("error", err.Error()))
		}
		return nil
	}
	raw, hash, err := utils.NewOpaqueToken()
	if err != nil {
		return Internal("failed to create reset token", err)
	}
	expires := s.now().Add(resetTTL)
	u.ResetTokenHash = hash
	u.ResetExpiresAt = &expires
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return Internal("failed to save reset token", err)
	}
	s.sendMail(ctx, u.Email, "Reset your password", "reset_password", map[string]interface{}{
		"Name":      u.Name,
		"Link":      s.frontendURL + "/reset-password?token=" + raw,
		"ExpiresIn": "1 hour",
	})
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < minPasswordLen {
		return BadRequest(fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	u, err := s.store.GetUserByResetToken(ctx, utils.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return BadRequest("invalid or already used reset token")
		}
		return Internal("failed to load user", err)
	}
	if u.ResetExpiresAt == nil || s.now().After(*u.ResetExpiresAt) {
		return BadRequest("reset token has expired")
	}
	hashed, err := hashPassword(password)
	if err != nil {
		return Internal("failed to hash password", err)
	}
	u.Password = hashed
	u.ResetTokenHash = ""
	u.ResetExpiresAt = nil
	if err := s.store.UpdateUser(ctx, u); err != nil {
		return Internal("failed to reset password", err)
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, actor Actor) (*models.User, error) {
	u, err := s.store.GetUser(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound("user not found")
		}
		return nil, Internal("failed to load user", err)
	}
	return u, nil
}

// Authenticate xác minh JWT, nạp user và trả về Actor; dùng cho middleware và websocket.
func (s *AuthService) Authenticate(ctx context.Context, token string) (Actor, *models.User, error) {
	claims, err := s.tokens.VerifyToken(token)
	if err != nil {
		return Actor{}, nil, Unauthorized("invalid or expired token")
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return Actor{}, nil, Unauthorized("invalid or expired token")
	}
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Actor{}, nil, Unauthorized("user no longer exists")
		}
		return Actor{}, nil, Internal("failed to load user", err)
	}
	if !u.IsActive {
		return Actor{}, nil, Forbidden("account is deactivated")
	}
	return Actor{UserID: u.ID, Role: u.Role}, u, nil
}

func (s *AuthService) TokenExpiry() time.Duration {
	return s.tokens.Expiry()
}
