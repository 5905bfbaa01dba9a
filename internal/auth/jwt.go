package auth

import (
	"fmt"
	"time"

	"github.com/flexprice/tenantcore/internal/config"
	ierr "github.com/flexprice/tenantcore/internal/errors"
	"github.com/flexprice/tenantcore/internal/types"
	"github.com/golang-jwt/jwt/v4"
)

// claim names carried in the signed credential
const (
	ClaimUserID   = "user_id"
	ClaimTenantID = "tenant_id"
	ClaimRole     = "role"
)

// Claims are the verified contents of a credential. TenantID is empty for
// platform operators and for credentials that carry no tenant claim.
type Claims struct {
	UserID     string
	TenantID   string
	Capability types.Capability
}

// Provider signs and verifies HS256 credentials
type Provider struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewProvider(cfg *config.Configuration) *Provider {
	return &Provider{
		secret: []byte(cfg.Auth.Secret),
		ttl:    cfg.Auth.TokenTTL,
		now:    time.Now,
	}
}

func (p *Provider) ValidateToken(token string) (*Claims, error) {
	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ierr.NewError("unexpected signing method").
				WithHint(fmt.Sprintf("unexpected signing method: %v", token.Header["alg"])).
				Mark(ierr.ErrUnauthenticated)
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid or expired credentials").
			Mark(ierr.ErrUnauthenticated)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, ierr.NewError("invalid token claims").
			WithHint("Invalid token claims").
			Mark(ierr.ErrUnauthenticated)
	}

	userID, _ := claims[ClaimUserID].(string)
	if userID == "" {
		return nil, ierr.NewError("token missing user ID").
			WithHint("Token missing user ID").
			Mark(ierr.ErrUnauthenticated)
	}

	role, _ := claims[ClaimRole].(string)
	capability, err := types.ParseCapability(role)
	if err != nil {
		return nil, err
	}

	tenantID, _ := claims[ClaimTenantID].(string)
	if capability == types.CapabilityPlatformOperator {
		tenantID = ""
	}

	return &Claims{UserID: userID, TenantID: tenantID, Capability: capability}, nil
}

// GenerateToken mints a credential. The server never issues credentials on
// its own; this serves operator tooling and tests.
func (p *Provider) GenerateToken(userID, tenantID, role string) (string, error) {
	now := p.now()
	claims := jwt.MapClaims{
		ClaimUserID: userID,
		ClaimRole:   role,
		"iat":       now.Unix(),
		"exp":       now.Add(p.ttl).Unix(),
	}
	if tenantID != "" {
		claims[ClaimTenantID] = tenantID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to generate token").
			Mark(ierr.ErrSystem)
	}
	return signed, nil
}
