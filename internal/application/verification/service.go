package verification

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-verify-api/internal/domain"
	pkgtoken "github.com/go-verify-api/internal/pkg/token"
)

// DefaultCodeTTL is how long an issued code stays valid.
const DefaultCodeTTL = 600 * time.Second

// Service issues and verifies codes. Codes normally live in the cache tier;
// when it is unreachable they are written to the user's durable record and
// verification finds them there without the caller knowing which tier was used.
type Service interface {
	Issue(ctx context.Context, p domain.Purpose, identifier string) (*domain.IssuedCode, error)
	IssueForUser(ctx context.Context, p domain.Purpose, userID, identifier string) (*domain.IssuedCode, error)
	VerifyAndConsume(ctx context.Context, p domain.Purpose, identifier, code string) (domain.Outcome, error)
	VerifyLink(ctx context.Context, p domain.Purpose, identifier, longToken string) (domain.Outcome, error)
}

type codeStore interface {
	Set(ctx context.Context, p domain.Purpose, identifier, code string) domain.CacheResult
	VerifyAndConsume(ctx context.Context, p domain.Purpose, identifier, supplied string) domain.ConsumeResult
}

type recordStore interface {
	GetVerification(ctx context.Context, email string, p domain.Purpose) (domain.VerificationRecord, error)
	SaveVerification(ctx context.Context, userID string, p domain.Purpose, rec domain.VerificationRecord) error
	ClearVerification(ctx context.Context, userID string, p domain.Purpose) error
	ConsumeVerification(ctx context.Context, userID string, p domain.Purpose, code string) error
}

type ServiceDeps struct {
	Codes   codeStore
	Records recordStore
	CodeTTL time.Duration
	Now     func() time.Time
}

type service struct {
	codes   codeStore
	records recordStore
	ttl     time.Duration
	now     func() time.Time
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		codes:   deps.Codes,
		records: deps.Records,
		ttl:     deps.CodeTTL,
		now:     deps.Now,
	}
	if s.ttl <= 0 {
		s.ttl = DefaultCodeTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Issue resolves the identifier to its account and issues a code for it.
func (s *service) Issue(ctx context.Context, p domain.Purpose, identifier string) (*domain.IssuedCode, error) {
	identifier = domain.NormalizeIdentifier(identifier)
	current, err := s.records.GetVerification(ctx, identifier, p)
	if err != nil {
		return nil, s.storeErr("read verification record", p, identifier, err)
	}
	return s.issue(ctx, p, current.UserID, identifier)
}

// IssueForUser issues a code for an account the caller already holds. It skips
// the identifier lookup, so it works for a user written moments ago.
func (s *service) IssueForUser(ctx context.Context, p domain.Purpose, userID, identifier string) (*domain.IssuedCode, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required: %w", domain.ErrBadRequest)
	}
	return s.issue(ctx, p, userID, domain.NormalizeIdentifier(identifier))
}

func (s *service) issue(ctx context.Context, p domain.Purpose, userID, identifier string) (*domain.IssuedCode, error) {
	longToken, code, err := pkgtoken.NewVerificationToken()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	issued := &domain.IssuedCode{
		Purpose:    p,
		Identifier: identifier,
		LongToken:  longToken,
		ShortCode:  code,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.ttl),
	}

	// A primary-path write stores no fallback code, which also clears any stale one.
	next := domain.VerificationRecord{UserID: userID, TokenHash: pkgtoken.Hash(longToken)}
	if res := s.codes.Set(ctx, p, identifier, code); res.Status != domain.CacheOK {
		slog.Warn("code cache unavailable, issuing to durable record",
			"purpose", p, "identifier", identifier, "err", res.Err)
		next.Code = code
		next.ExpiresAt = issued.ExpiresAt
		issued.Degraded = true
	}

	if err := s.records.SaveVerification(ctx, userID, p, next); err != nil {
		return nil, s.storeErr("save verification record", p, identifier, err)
	}
	return issued, nil
}

func (s *service) VerifyAndConsume(ctx context.Context, p domain.Purpose, identifier, code string) (domain.Outcome, error) {
	identifier = domain.NormalizeIdentifier(identifier)
	supplied := strings.ToUpper(strings.TrimSpace(code))

	res := s.codes.VerifyAndConsume(ctx, p, identifier, supplied)
	switch res.Status {
	case domain.ConsumeMatched:
		s.clearAfterMatch(ctx, p, identifier, "")
		return domain.OutcomeMatched, nil
	case domain.ConsumeMismatch:
		return domain.OutcomeMismatch, nil
	case domain.ConsumeUnavailable:
		slog.Warn("code cache unavailable, verifying against durable record",
			"purpose", p, "identifier", identifier, "err", res.Err)
	}

	// Absent in the cache may still mean "issued while the cache was down".
	rec, err := s.records.GetVerification(ctx, identifier, p)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.OutcomeExpiredOrAbsent, nil
	}
	if err != nil {
		return "", s.storeErr("read verification record", p, identifier, err)
	}
	return s.consumeFallback(ctx, p, identifier, rec, supplied)
}

// VerifyLink accepts the long token from a verification link. The token must
// hash to the stored value and its derived code must still be outstanding.
func (s *service) VerifyLink(ctx context.Context, p domain.Purpose, identifier, longToken string) (domain.Outcome, error) {
	identifier = domain.NormalizeIdentifier(identifier)
	longToken = strings.TrimSpace(longToken)

	rec, err := s.records.GetVerification(ctx, identifier, p)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.OutcomeExpiredOrAbsent, nil
	}
	if err != nil {
		return "", s.storeErr("read verification record", p, identifier, err)
	}
	if rec.TokenHash == "" {
		return domain.OutcomeExpiredOrAbsent, nil
	}
	if !pkgtoken.HashEqual(longToken, rec.TokenHash) {
		return domain.OutcomeMismatch, nil
	}

	code := pkgtoken.ShortCode(longToken)
	res := s.codes.VerifyAndConsume(ctx, p, identifier, code)
	switch res.Status {
	case domain.ConsumeMatched:
		s.clearAfterMatch(ctx, p, identifier, rec.UserID)
		return domain.OutcomeMatched, nil
	case domain.ConsumeMismatch:
		// The cache holds a newer code than the link; the link is stale.
		return domain.OutcomeExpiredOrAbsent, nil
	case domain.ConsumeUnavailable:
		slog.Warn("code cache unavailable, verifying link against durable record",
			"purpose", p, "identifier", identifier, "err", res.Err)
	}
	return s.consumeFallback(ctx, p, identifier, rec, code)
}

// consumeFallback runs the durable-record half of verification.
func (s *service) consumeFallback(ctx context.Context, p domain.Purpose, identifier string, rec domain.VerificationRecord, supplied string) (domain.Outcome, error) {
	if !rec.HasCode() {
		return domain.OutcomeExpiredOrAbsent, nil
	}
	if rec.Expired(s.now()) {
		// No background sweep exists; expired fields are cleared when found.
		if err := s.records.ClearVerification(ctx, rec.UserID, p); err != nil {
			slog.Warn("failed to clear expired verification record", "purpose", p, "identifier", identifier, "err", err)
		}
		return domain.OutcomeExpiredOrAbsent, nil
	}
	if subtle.ConstantTimeCompare([]byte(strings.ToUpper(rec.Code)), []byte(supplied)) != 1 {
		return domain.OutcomeMismatch, nil
	}

	err := s.records.ConsumeVerification(ctx, rec.UserID, p, rec.Code)
	if errors.Is(err, domain.ErrConflict) {
		return domain.OutcomeExpiredOrAbsent, nil
	}
	if err != nil {
		return "", s.storeErr("consume verification record", p, identifier, err)
	}
	return domain.OutcomeMatched, nil
}

// clearAfterMatch resolves the durable fields once the cache copy was consumed.
// The match already happened, so failures are only logged.
func (s *service) clearAfterMatch(ctx context.Context, p domain.Purpose, identifier, userID string) {
	if userID == "" {
		rec, err := s.records.GetVerification(ctx, identifier, p)
		if err != nil {
			slog.Warn("failed to load verification record after match", "purpose", p, "identifier", identifier, "err", err)
			return
		}
		userID = rec.UserID
	}
	if err := s.records.ClearVerification(ctx, userID, p); err != nil {
		slog.Warn("failed to clear verification record after match", "purpose", p, "identifier", identifier, "err", err)
	}
}

// storeErr hides durable-store details from callers. Unknown identifiers stay ErrNotFound.
func (s *service) storeErr(op string, p domain.Purpose, identifier string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("no account for identifier: %w", domain.ErrNotFound)
	}
	slog.Error("durable store failure", "op", op, "purpose", p, "identifier", identifier, "err", err)
	return fmt.Errorf("%s: %w", op, domain.ErrStoreFailure)
}
