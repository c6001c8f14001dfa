package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/techstore/storefront/application/port/inbound"
	"github.com/techstore/storefront/application/port/outbound"
	"github.com/techstore/storefront/domain/entity"
	domainerror "github.com/techstore/storefront/domain/error"
	"github.com/techstore/storefront/domain/valueobject"
	"github.com/techstore/storefront/infrastructure/service/logger"
	"github.com/techstore/storefront/pkg/validator"
)

// RateLimits are the fixed-window budgets for login and registration.
type RateLimits struct {
	IPAttempts    int
	IPWindow      time.Duration
	UserAttempts  int
	UserWindow    time.Duration
	BlockDuration time.Duration
}

// limitKey is one counter the rate limiter is consulted on.
type limitKey struct {
	key    string
	limit  int
	window time.Duration
}

type AuthUseCase struct {
	principals  outbound.PrincipalRepository
	store       outbound.RefreshStore
	tokens      outbound.TokenService
	passwords   outbound.PasswordService
	verifier    *CredentialVerifier
	coordinator *RefreshCoordinator
	human       inbound.HumanVerifier
	limiter     inbound.RateLimitService
	limits      RateLimits
	logger      logger.Logger
}

func NewAuthUseCase(
	principals outbound.PrincipalRepository,
	store outbound.RefreshStore,
	tokens outbound.TokenService,
	passwords outbound.PasswordService,
	human inbound.HumanVerifier,
	limiter inbound.RateLimitService,
	limits RateLimits,
	log logger.Logger,
) *AuthUseCase {
	return &AuthUseCase{
		principals:  principals,
		store:       store,
		tokens:      tokens,
		passwords:   passwords,
		verifier:    NewCredentialVerifier(principals, passwords, log),
		coordinator: NewRefreshCoordinator(principals, store, tokens, log),
		human:       human,
		limiter:     limiter,
		limits:      limits,
		logger:      log,
	}
}

var _ inbound.AuthUseCase = (*AuthUseCase)(nil)

// Login: parse credentials, rate limit, human check, verify, start session.
func (uc *AuthUseCase) Login(ctx context.Context, req inbound.LoginRequest) (*inbound.AuthResult, error) {
	ip := clientIP(req.ClientIP)

	credentials, err := valueobject.NewCredentials(req.Identifier, req.Password)
	if err != nil {
		logger.LogAuthEvent(ctx, uc.logger, "login_validation_failed", "", ip, false, nil)
		return nil, domainerror.ErrInvalidInput(err.Error())
	}

	keys := uc.loginKeys(ip, credentials.Identifier())
	if err := uc.admit(ctx, keys); err != nil {
		return nil, err
	}

	if err := uc.verifyHuman(ctx, req.ChallengeID, req.ChallengeResponse); err != nil {
		return nil, err
	}

	principal, err := uc.verifier.Verify(ctx, credentials)
	if err != nil {
		if domainerror.HasCode(err, domainerror.ErrCodeInvalidCredentials) {
			uc.countAttempt(ctx, keys)
			logger.LogAuthEvent(ctx, uc.logger, "login_failed", "", ip, false, nil)
		}
		return nil, err
	}
	ctx = logger.ContextWithPrincipalID(ctx, principal.ID)
	uc.resetFailures(ctx, keys[1:])

	result, err := uc.startSession(ctx, principal)
	if err != nil {
		return nil, err
	}

	logger.LogAuthEvent(ctx, uc.logger, "login_successful", principal.ID, ip, true, map[string]interface{}{
		"role": principal.Role.String(),
	})
	return result, nil
}

// Register: validate input, rate limit, human check, conflict check, hash,
// create, start session.
func (uc *AuthUseCase) Register(ctx context.Context, req inbound.RegisterRequest) (*inbound.AuthResult, error) {
	ip := clientIP(req.ClientIP)

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.FullName = strings.TrimSpace(req.FullName)
	if err := validateRegistration(req); err != nil {
		logger.LogAuthEvent(ctx, uc.logger, "register_validation_failed", "", ip, false, nil)
		return nil, err
	}

	keys := []limitKey{{key: "register:ip:" + ip, limit: uc.limits.IPAttempts, window: uc.limits.IPWindow}}
	if err := uc.admit(ctx, keys); err != nil {
		return nil, err
	}
	uc.countAttempt(ctx, keys)

	if err := uc.verifyHuman(ctx, req.ChallengeID, req.ChallengeResponse); err != nil {
		return nil, err
	}

	if err := uc.ensureAvailable(ctx, req.Username, req.Email); err != nil {
		return nil, err
	}

	hash, err := uc.passwords.HashPassword(req.Password)
	if err != nil {
		uc.logger.Error(ctx, "Failed to hash password", err, nil)
		return nil, domainerror.ErrInternal("hash_password", err)
	}

	principal := entity.NewPrincipal(uuid.NewString(), req.Username, req.Email, hash, req.FullName, valueobject.RoleCustomer)
	principal.Address = strings.TrimSpace(req.Address)
	principal.Phone = strings.TrimSpace(req.Phone)

	if err := uc.principals.Create(ctx, principal); err != nil {
		if errors.Is(err, outbound.ErrPrincipalAlreadyExists) {
			return nil, domainerror.ErrIdentifierConflict()
		}
		uc.logger.Error(ctx, "Failed to create principal", err, nil)
		return nil, domainerror.ErrUpstreamUnavailable("create_principal", err)
	}
	ctx = logger.ContextWithPrincipalID(ctx, principal.ID)

	result, err := uc.startSession(ctx, principal)
	if err != nil {
		return nil, err
	}

	logger.LogAuthEvent(ctx, uc.logger, "register_successful", principal.ID, ip, true, nil)
	return result, nil
}

func (uc *AuthUseCase) Refresh(ctx context.Context, req inbound.RefreshRequest) (*inbound.AuthResult, error) {
	result, err := uc.coordinator.Rotate(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}

	logger.LogAuthEvent(ctx, uc.logger, "token_refresh_successful", result.Principal.ID, "", true, nil)
	return result, nil
}

// Logout clears the refresh pointer of whoever the presented tokens prove to
// be. Nothing here can fail the request.
func (uc *AuthUseCase) Logout(ctx context.Context, req inbound.LogoutRequest) {
	principalID := uc.logoutPrincipal(ctx, req)
	if principalID == "" {
		logger.LogAuthEvent(ctx, uc.logger, "logout_anonymous", "", "", true, nil)
		return
	}

	ctx = logger.ContextWithPrincipalID(ctx, principalID)
	if err := uc.store.ClearRefreshPointer(ctx, principalID); err != nil {
		uc.logger.Error(ctx, "Failed to clear refresh pointer on logout", err, nil)
		return
	}
	logger.LogAuthEvent(ctx, uc.logger, "logout_successful", principalID, "", true, nil)
}

func (uc *AuthUseCase) Validate(ctx context.Context, principalID string) (*inbound.PrincipalSummary, error) {
	principal, err := uc.loadPrincipal(ctx, principalID)
	if err != nil {
		return nil, err
	}
	summary := inbound.NewPrincipalSummary(principal)
	return &summary, nil
}

func (uc *AuthUseCase) Me(ctx context.Context, principalID string) (*inbound.ProfileResponse, error) {
	principal, err := uc.loadPrincipal(ctx, principalID)
	if err != nil {
		return nil, err
	}
	return inbound.NewProfileResponse(principal), nil
}

// UpdateProfile changes contact fields and, when asked and the current secret
// is presented, the secret itself.
func (uc *AuthUseCase) UpdateProfile(ctx context.Context, principalID string, req inbound.UpdateProfileRequest) (*inbound.ProfileResponse, error) {
	changes := entity.ProfileChanges{
		FullName: trimmed(req.FullName),
		Address:  trimmed(req.Address),
		Phone:    trimmed(req.Phone),
	}
	if changes.IsEmpty() && req.NewPassword == "" {
		return nil, domainerror.ErrInvalidInput("No fields to update")
	}
	if changes.FullName != nil && *changes.FullName == "" {
		return nil, domainerror.ErrInvalidInput("full_name cannot be empty")
	}
	if req.NewPassword != "" {
		if req.CurrentPassword == "" {
			return nil, domainerror.ErrInvalidInput("current_password is required to change the password")
		}
		if !validator.ValidatePassword(req.NewPassword) {
			return nil, domainerror.ErrInvalidInput(fmt.Sprintf("password must be at least %d characters", validator.MinPasswordLength))
		}
	}

	principal, err := uc.loadPrincipal(ctx, principalID)
	if err != nil {
		return nil, err
	}
	ctx = logger.ContextWithPrincipalID(ctx, principal.ID)

	if req.NewPassword != "" {
		ok, err := uc.passwords.VerifyPassword(req.CurrentPassword, principal.PasswordHash)
		if err != nil || !ok {
			logger.LogSecurityEvent(ctx, uc.logger, "password_change_rejected", "MEDIUM", nil)
			return nil, domainerror.ErrInvalidCredentials()
		}
		hash, err := uc.passwords.HashPassword(req.NewPassword)
		if err != nil {
			return nil, domainerror.ErrInternal("hash_password", err)
		}
		principal.ChangePasswordHash(hash)
	}
	if !changes.IsEmpty() {
		principal.UpdateProfile(changes)
	}

	if err := uc.principals.Update(ctx, principal); err != nil {
		uc.logger.Error(ctx, "Failed to update principal", err, nil)
		return nil, domainerror.ErrUpstreamUnavailable("update_principal", err)
	}

	logger.LogAuthEvent(ctx, uc.logger, "profile_updated", principal.ID, "", true, map[string]interface{}{
		"password_changed": req.NewPassword != "",
	})
	return inbound.NewProfileResponse(principal), nil
}

// startSession mints a pair and overwrites any prior refresh pointer, which
// signs out every other device of the principal.
func (uc *AuthUseCase) startSession(ctx context.Context, principal *entity.Principal) (*inbound.AuthResult, error) {
	return uc.coordinator.issue(ctx, principal)
}

func (uc *AuthUseCase) loadPrincipal(ctx context.Context, principalID string) (*entity.Principal, error) {
	if principalID == "" {
		return nil, domainerror.ErrAuthRequired()
	}
	principal, err := uc.principals.FindByID(ctx, principalID)
	if err != nil {
		if errors.Is(err, outbound.ErrPrincipalNotFound) {
			return nil, domainerror.ErrAuthRequired()
		}
		uc.logger.Error(ctx, "Failed to find principal", err, map[string]interface{}{
			"principal_id": principalID,
		})
		return nil, domainerror.ErrUpstreamUnavailable("find_principal", err)
	}
	return principal, nil
}

func (uc *AuthUseCase) logoutPrincipal(ctx context.Context, req inbound.LogoutRequest) string {
	if claims, err := uc.tokens.ValidateAccess(req.AccessToken); err == nil {
		return claims.PrincipalID
	}

	claims, err := uc.tokens.ValidateRefresh(req.RefreshToken)
	if err != nil {
		return ""
	}
	record, err := uc.store.FindRefreshPointer(ctx, claims.PrincipalID)
	if err != nil {
		if !errors.Is(err, outbound.ErrRefreshRecordNotFound) {
			uc.logger.Error(ctx, "Failed to read refresh pointer on logout", err, nil)
		}
		return ""
	}
	// A stale refresh token must not be able to end the current session.
	if !record.Matches(claims.TokenID) {
		return ""
	}
	return claims.PrincipalID
}

func (uc *AuthUseCase) ensureAvailable(ctx context.Context, identifiers ...string) error {
	for _, identifier := range identifiers {
		_, err := uc.principals.FindByIdentifier(ctx, identifier)
		if err == nil {
			logger.LogAuthEvent(ctx, uc.logger, "register_conflict", "", "", false, nil)
			return domainerror.ErrIdentifierConflict()
		}
		if !errors.Is(err, outbound.ErrPrincipalNotFound) {
			uc.logger.Error(ctx, "Failed to check identifier availability", err, nil)
			return domainerror.ErrUpstreamUnavailable("find_principal", err)
		}
	}
	return nil
}

func (uc *AuthUseCase) verifyHuman(ctx context.Context, challengeID, response string) error {
	if uc.human == nil || !uc.human.IsEnabled() {
		return nil
	}

	start := time.Now()
	ok, err := uc.human.IsHuman(ctx, challengeID, response)
	logger.LogPerformance(ctx, uc.logger, "human_verification", time.Since(start), nil)

	if err != nil {
		uc.logger.Error(ctx, "Human verification unavailable", err, nil)
		return domainerror.ErrUpstreamUnavailable("human_verification", err)
	}
	if !ok {
		logger.LogSecurityEvent(ctx, uc.logger, "human_verification_failed", "MEDIUM", nil)
		return domainerror.ErrHumanVerificationFailed()
	}
	return nil
}

func (uc *AuthUseCase) loginKeys(ip, identifier string) []limitKey {
	return []limitKey{
		{key: "login:ip:" + ip, limit: uc.limits.IPAttempts, window: uc.limits.IPWindow},
		{key: "login:user:" + strings.ToLower(identifier), limit: uc.limits.UserAttempts, window: uc.limits.UserWindow},
	}
}

// admit refuses when any key is blocked or over its budget. Limiter faults
// are logged and let the request through.
func (uc *AuthUseCase) admit(ctx context.Context, keys []limitKey) error {
	if uc.limiter == nil {
		return nil
	}
	for _, k := range keys {
		if k.limit <= 0 {
			continue
		}
		blocked, err := uc.limiter.IsBlocked(ctx, k.key)
		if err != nil {
			uc.logger.Error(ctx, "Failed to check block status", err, map[string]interface{}{"key": k.key})
			continue
		}
		if blocked {
			logger.LogSecurityEvent(ctx, uc.logger, "blocked_key_attempt", "MEDIUM", map[string]interface{}{"key": k.key})
			return domainerror.ErrRateLimited()
		}

		allowed, err := uc.limiter.CheckLimit(ctx, k.key, k.limit, k.window)
		if err != nil {
			uc.logger.Error(ctx, "Failed to check rate limit", err, map[string]interface{}{"key": k.key})
			continue
		}
		if !allowed {
			if uc.limits.BlockDuration > 0 {
				if err := uc.limiter.Block(ctx, k.key, uc.limits.BlockDuration, "Rate limit exceeded"); err != nil {
					uc.logger.Error(ctx, "Failed to block key", err, map[string]interface{}{"key": k.key})
				}
			}
			logger.LogSecurityEvent(ctx, uc.logger, "rate_limit_exceeded", "HIGH", map[string]interface{}{"key": k.key})
			return domainerror.ErrRateLimited()
		}
	}
	return nil
}

func (uc *AuthUseCase) countAttempt(ctx context.Context, keys []limitKey) {
	if uc.limiter == nil {
		return
	}
	for _, k := range keys {
		if err := uc.limiter.Increment(ctx, k.key, k.window); err != nil {
			uc.logger.Error(ctx, "Failed to increment rate limit", err, map[string]interface{}{"key": k.key})
		}
	}
}

func (uc *AuthUseCase) resetFailures(ctx context.Context, keys []limitKey) {
	if uc.limiter == nil {
		return
	}
	for _, k := range keys {
		if err := uc.limiter.Reset(ctx, k.key); err != nil {
			uc.logger.Error(ctx, "Failed to reset rate limit", err, map[string]interface{}{"key": k.key})
		}
	}
}

func validateRegistration(req inbound.RegisterRequest) error {
	var problems []string
	if !validator.ValidateUsername(req.Username) {
		problems = append(problems, fmt.Sprintf("username must be %d-%d characters of letters, digits, '_', '.' or '-'", validator.MinUsernameLength, validator.MaxUsernameLength))
	}
	if !validator.ValidateEmail(req.Email) {
		problems = append(problems, "email is invalid")
	}
	if !validator.ValidatePassword(req.Password) {
		problems = append(problems, fmt.Sprintf("password must be at least %d characters", validator.MinPasswordLength))
	}
	if !validator.ValidateRequired(req.FullName) {
		problems = append(problems, "full_name is required")
	}
	if len(problems) > 0 {
		return domainerror.ErrInvalidInput(strings.Join(problems, "; "))
	}
	return nil
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	return &v
}

func clientIP(ip string) string {
	if ip == "" {
		return "unknown"
	}
	return ip
}
