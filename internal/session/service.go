// internal/session/service.go
package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	stderrors "errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"agritour-certification/internal/common/config"
	"agritour-certification/internal/common/database"
	"agritour-certification/internal/common/errors"
	"agritour-certification/internal/common/logger"
	"agritour-certification/internal/common/validation"
	"agritour-certification/internal/models"
)

const (
	// DevOTP is accepted for any identity when the development bypass is on.
	DevOTP = "123456"

	devSecret = "agritour-development-secret"
)

// userNamespace derives stable user ids from login identities.
var userNamespace = uuid.MustParse("6f1c2a8e-4b7d-5e9f-8a3c-1d2e3f4a5b6c")

// CodeSender delivers a one-time code to the identity it was issued for.
type CodeSender interface {
	SendCode(ctx context.Context, identity, code string) error
}

type Claims struct {
	SessionID string      `json:"sid"`
	Role      models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Challenge is returned by SendOTP; the code itself never leaves the service.
type Challenge struct {
	Identity  string    `json:"identity"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Service struct {
	rdb    redis.Cmdable
	cfg    config.AuthConfig
	secret []byte
	sender CodeSender
	admins map[string]bool
	logger logger.Logger
	now    func() time.Time
}

func NewService(rdb redis.Cmdable, cfg config.AuthConfig, sender CodeSender, log logger.Logger) *Service {
	secret := cfg.JWTSecret
	if secret == "" {
		secret = devSecret
	}
	admins := make(map[string]bool, len(cfg.AdminIdentities))
	for _, id := range cfg.AdminIdentities {
		admins[NormalizeIdentity(id)] = true
	}
	return &Service{
		rdb:    rdb,
		cfg:    cfg,
		secret: []byte(secret),
		sender: sender,
		admins: admins,
		logger: log.WithFields(map[string]interface{}{"component": "session"}),
		now:    time.Now,
	}
}

// NormalizeIdentity lower-cases emails and strips phone punctuation.
func NormalizeIdentity(identity string) string {
	identity = strings.TrimSpace(identity)
	if strings.Contains(identity, "@") {
		return strings.ToLower(identity)
	}
	return validation.NormalizePhone(identity)
}

func otpKey(identity string) string { return "otp:" + identity }

func sessionKey(userID, sessionID string) string {
	return fmt.Sprintf("session:%s:%s", userID, sessionID)
}

// SendOTP issues a code for identity and hands it to the sender.
func (s *Service) SendOTP(ctx context.Context, identity string) (*Challenge, error) {
	identity = NormalizeIdentity(identity)
	if !validation.IsEmail(identity) && !validation.IsTaiwanPhone(identity) {
		return nil, errors.NewAssessmentValidationError("identity must be an email address or a Taiwan phone number")
	}

	code, err := s.generateCode()
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	ttl := time.Duration(s.cfg.OTPTTL) * time.Second
	if err := s.rdb.Set(ctx, otpKey(identity), code, ttl).Err(); err != nil {
		return nil, errors.NewExternalServiceError("redis", err)
	}

	if s.sender != nil {
		if err := s.sender.SendCode(ctx, identity, code); err != nil {
			s.logger.Error("Failed to deliver login code", map[string]interface{}{"error": err.Error()})
			return nil, errors.NewNotificationSendFailedError("otp", err)
		}
	}

	s.logger.Info("Login code issued", map[string]interface{}{"identity": identity})
	return &Challenge{Identity: identity, ExpiresAt: s.now().Add(ttl)}, nil
}

// VerifyOTP consumes the code and opens a session.
func (s *Service) VerifyOTP(ctx context.Context, identity, code string) (string, *models.Session, error) {
	identity = NormalizeIdentity(identity)
	if !validation.IsNumericCode(code, s.codeLength()) {
		return "", nil, errors.NewOTPInvalidError("malformed code")
	}

	if !(s.cfg.DevOTPBypass && code == DevOTP) {
		stored, err := s.rdb.GetDel(ctx, otpKey(identity)).Result()
		if stderrors.Is(err, redis.Nil) {
			return "", nil, errors.NewOTPInvalidError("no pending code")
		}
		if err != nil {
			return "", nil, errors.NewExternalServiceError("redis", err)
		}
		if subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
			return "", nil, errors.NewOTPInvalidError("code mismatch")
		}
	}

	now := s.now().UTC()
	user := models.User{
		ID:       uuid.NewSHA1(userNamespace, []byte(identity)).String(),
		Identity: identity,
		Role:     models.RoleApplicant,
	}
	if s.admins[identity] {
		user.Role = models.RoleAdmin
	}

	sess := &models.Session{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		User:         user,
		CreatedAt:    now,
		ExpiresAt:    now.Add(time.Duration(s.cfg.TokenTTL) * time.Minute),
		LastActivity: now,
	}

	if err := database.SetJSON(ctx, s.rdb, sessionKey(user.ID, sess.ID), sess, sess.ExpiresAt.Sub(now)); err != nil {
		return "", nil, errors.NewExternalServiceError("redis", err)
	}

	token, err := s.sign(sess)
	if err != nil {
		return "", nil, errors.NewInternalError(err)
	}

	s.logger.Info("Session opened", map[string]interface{}{"userId": user.ID, "role": user.Role})
	return token, sess, nil
}

// Authenticate validates token and returns the live session behind it.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.Session, error) {
	claims, err := s.parse(token)
	if err != nil {
		return nil, errors.NewSessionInvalidError(err.Error())
	}

	var sess models.Session
	found, err := database.GetJSON(ctx, s.rdb, sessionKey(claims.Subject, claims.SessionID), &sess)
	if err != nil {
		return nil, errors.NewExternalServiceError("redis", err)
	}
	if !found || sess.IsExpired(s.now()) {
		return nil, errors.NewSessionInvalidError("session revoked or expired")
	}
	return &sess, nil
}

// Revoke deletes the session behind token. Revoking twice is harmless.
func (s *Service) Revoke(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return errors.NewSessionInvalidError(err.Error())
	}
	if err := s.rdb.Del(ctx, sessionKey(claims.Subject, claims.SessionID)).Err(); err != nil {
		return errors.NewExternalServiceError("redis", err)
	}
	return nil
}

func (s *Service) sign(sess *models.Session) (string, error) {
	claims := Claims{
		SessionID: sess.ID,
		Role:      sess.User.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.SessionID == "" {
		return nil, fmt.Errorf("token is missing subject or session")
	}
	return claims, nil
}

func (s *Service) codeLength() int {
	if s.cfg.OTPLength <= 0 {
		return len(DevOTP)
	}
	return s.cfg.OTPLength
}

func (s *Service) generateCode() (string, error) {
	length := s.codeLength()
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
