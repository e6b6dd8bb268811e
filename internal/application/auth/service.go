package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-verify-api/internal/application/verification"
	"github.com/go-verify-api/internal/domain"
	"github.com/go-verify-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

var errSignerUnavailable = fmt.Errorf("token signing unavailable: %w", domain.ErrStoreFailure)

// AuthResult is returned by flows that end in a signed-in user.
type AuthResult struct {
	Token string
	User  *domain.User
}

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, req domain.LoginRequest) (*AuthResult, error)
	VerifyEmail(ctx context.Context, req domain.VerifyEmailRequest) (*AuthResult, error)
	VerifyEmailLink(ctx context.Context, email, token string) (*AuthResult, error)
	ResendVerification(ctx context.Context, email string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error
	CooldownStatus(ctx context.Context, purpose, identifier string) (domain.CooldownStatus, error)
	ClearCooldown(ctx context.Context, purpose, identifier string) error
}

type userStore interface {
	Put(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type cooldownGuard interface {
	Check(ctx context.Context, p domain.Purpose, identifier string) domain.CooldownStatus
	Set(ctx context.Context, p domain.Purpose, identifier string)
	Clear(ctx context.Context, p domain.Purpose, identifier string)
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type jwtSigner interface {
	Sign(userID, email, role string) (string, error)
}

type ServiceDeps struct {
	Users        userStore
	Verification verification.Service
	Cooldowns    cooldownGuard
	Mailer       mailer
	SMSSender    smsSender // nil disables SMS
	JWTProvider  jwtSigner
	BaseURL      string
	SMSEnabled   bool
	Now          func() time.Time
}

type service struct {
	users      userStore
	verifier   verification.Service
	cooldowns  cooldownGuard
	mailer     mailer
	sms        smsSender
	jwt        jwtSigner
	baseURL    string
	smsEnabled bool
	now        func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		users:      deps.Users,
		verifier:   deps.Verification,
		cooldowns:  deps.Cooldowns,
		mailer:     deps.Mailer,
		sms:        deps.SMSSender,
		jwt:        deps.JWTProvider,
		baseURL:    deps.BaseURL,
		smsEnabled: deps.SMSEnabled && deps.SMSSender != nil,
		now:        deps.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	email := domain.NormalizeIdentifier(req.Email)
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, storeErr("lookup user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := &domain.User{
		UserID:       id.NewAt(now),
		Email:        email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Enable:       1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Put(ctx, u); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, storeErr("create user", err)
	}

	// The account exists either way; a failed send is recoverable through resend.
	if err := s.sendCode(ctx, domain.PurposeEmailVerification, u); err != nil {
		slog.Warn("verification email not sent after registration", "user_id", u.UserID, "err", err)
	}
	return u, nil
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*AuthResult, error) {
	if s.jwt == nil {
		return nil, errSignerUnavailable
	}
	u, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err != nil {
		return nil, storeErr("lookup user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if u.Enable == 0 {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrForbidden)
	}
	if !u.EmailConfirmed {
		err := s.sendCode(ctx, domain.PurposeEmailVerification, u)
		var cd *domain.CooldownError
		if err != nil && !errors.As(err, &cd) {
			slog.Warn("verification email not sent on login", "user_id", u.UserID, "err", err)
		}
		return nil, fmt.Errorf("email not verified: %w", domain.ErrForbidden)
	}
	return s.signIn(u)
}

// VerifyEmail and VerifyEmailLink refuse to run without a signer: a consumed
// code cannot be handed back.
func (s *service) VerifyEmail(ctx context.Context, req domain.VerifyEmailRequest) (*AuthResult, error) {
	if s.jwt == nil {
		return nil, errSignerUnavailable
	}
	out, err := s.verifier.VerifyAndConsume(ctx, domain.PurposeEmailVerification, req.Email, req.Code)
	if err != nil {
		return nil, err
	}
	if out != domain.OutcomeMatched {
		return nil, out.Err()
	}
	return s.confirmEmail(ctx, req.Email)
}

func (s *service) VerifyEmailLink(ctx context.Context, email, token string) (*AuthResult, error) {
	if s.jwt == nil {
		return nil, errSignerUnavailable
	}
	if email == "" || token == "" {
		return nil, fmt.Errorf("email and token are required: %w", domain.ErrBadRequest)
	}
	out, err := s.verifier.VerifyLink(ctx, domain.PurposeEmailVerification, email, token)
	if err != nil {
		return nil, err
	}
	if out != domain.OutcomeMatched {
		return nil, out.Err()
	}
	return s.confirmEmail(ctx, email)
}

// ResendVerification answers the same way for unknown and already-verified emails.
func (s *service) ResendVerification(ctx context.Context, email string) error {
	if err := s.checkCooldown(ctx, domain.PurposeResendVerification, email); err != nil {
		return err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return storeErr("lookup user", err)
	}
	if u.EmailConfirmed {
		return nil
	}
	return s.sendCode(ctx, domain.PurposeResendVerification, u)
}

// ForgotPassword never reveals whether the email has an account.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	if err := s.checkCooldown(ctx, domain.PurposePasswordReset, email); err != nil {
		return err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return storeErr("lookup user", err)
	}
	return s.sendCode(ctx, domain.PurposePasswordReset, u)
}

func (s *service) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	out, err := s.verifier.VerifyAndConsume(ctx, domain.PurposePasswordReset, req.Email, req.Code)
	if err != nil {
		return err
	}
	if out != domain.OutcomeMatched {
		return out.Err()
	}
	u, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		return storeErr("lookup user", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.users.Update(ctx, u.UserID, map[string]interface{}{"password_hash": string(hash)}); err != nil {
		return storeErr("update password", err)
	}
	return nil
}

func (s *service) CooldownStatus(ctx context.Context, purpose, identifier string) (domain.CooldownStatus, error) {
	p, err := domain.ParsePurpose(purpose)
	if err != nil {
		return domain.CooldownStatus{}, err
	}
	if identifier == "" {
		return domain.CooldownStatus{}, fmt.Errorf("identifier is required: %w", domain.ErrBadRequest)
	}
	return s.cooldowns.Check(ctx, p, identifier), nil
}

func (s *service) ClearCooldown(ctx context.Context, purpose, identifier string) error {
	p, err := domain.ParsePurpose(purpose)
	if err != nil {
		return err
	}
	s.cooldowns.Clear(ctx, p, identifier)
	slog.Info("cooldown cleared", "purpose", p, "identifier", domain.NormalizeIdentifier(identifier))
	return nil
}

func (s *service) checkCooldown(ctx context.Context, p domain.Purpose, identifier string) error {
	st := s.cooldowns.Check(ctx, p, identifier)
	if st.InCooldown {
		return &domain.CooldownError{Remaining: time.Duration(st.RemainingSeconds) * time.Second}
	}
	return nil
}

// sendCode runs cooldown check, issue, dispatch and cooldown set, in that order.
// The cooldown only starts once the code actually went out.
func (s *service) sendCode(ctx context.Context, p domain.Purpose, u *domain.User) error {
	if err := s.checkCooldown(ctx, p, u.Email); err != nil {
		return err
	}
	issued, err := s.verifier.IssueForUser(ctx, p, u.UserID, u.Email)
	if err != nil {
		return err
	}
	if err := s.dispatch(ctx, u, issued); err != nil {
		return err
	}
	s.cooldowns.Set(ctx, p, u.Email)
	slog.Info("verification code sent",
		"purpose", p, "user_id", u.UserID, "degraded", issued.Degraded)
	return nil
}

func (s *service) dispatch(ctx context.Context, u *domain.User, issued *domain.IssuedCode) error {
	msg := composeMessage(s.baseURL, issued)
	if err := s.mailer.SendEmail(u.Email, msg.Subject, msg.Body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if issued.Purpose == domain.PurposePasswordReset && s.smsEnabled && u.Phone != nil && *u.Phone != "" {
		if err := s.sms.SendSMS(ctx, *u.Phone, msg.SMS); err != nil {
			slog.Warn("password reset sms not sent", "user_id", u.UserID, "err", err)
		}
	}
	return nil
}

func (s *service) confirmEmail(ctx context.Context, email string) (*AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, storeErr("lookup user", err)
	}
	if !u.EmailConfirmed {
		if err := s.users.Update(ctx, u.UserID, map[string]interface{}{"email_confirmed": true}); err != nil {
			return nil, storeErr("confirm email", err)
		}
		u.EmailConfirmed = true
	}
	return s.signIn(u)
}

func (s *service) signIn(u *domain.User) (*AuthResult, error) {
	if s.jwt == nil {
		return nil, errSignerUnavailable
	}
	token, err := s.jwt.Sign(u.UserID, u.Email, u.Role)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{Token: token, User: u}, nil
}

func storeErr(op string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	slog.Error("user store failure", "op", op, "err", err)
	return fmt.Errorf("%s: %w", op, domain.ErrStoreFailure)
}
