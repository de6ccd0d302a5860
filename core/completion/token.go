package completion

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mwalimu/darasa/core"
)

// TokenPurpose discriminates completion tokens from any other signed token
// the system might issue.
const TokenPurpose = "class_completion"

// Path is the completion handler path completion URLs point at.
const Path = "/complete-classes"

var (
	nowFunc = time.Now // mockable

	// errors
	ErrTokenMalformed = errors.New("malformed token")
	ErrWrongPurpose   = errors.New("wrong token purpose")
	ErrTokenExpired   = errors.New("token expired")
)

type (
	// Claims is the completion token payload.
	Claims struct {
		jwt.RegisteredClaims
		Purpose  string `json:"purpose"`
		ClassIDs []int  `json:"class_ids"`
	}

	// TokenInfo is the validated view of a completion token.
	TokenInfo struct {
		ClassIDs  []int
		IssuedAt  time.Time
		ExpiresAt time.Time
	}

	// TokenService issues and validates the signed, time-limited tokens that
	// authorize completion of a set of classes. Stateless: a token only ever
	// exists as the string embedded in a completion URL.
	TokenService struct {
		issuer       string
		secretKey    []byte
		defaultDelta time.Duration
	}
)

func NewTokenService(conf *core.Config) *TokenService {
	return &TokenService{
		issuer:       conf.AppName,
		secretKey:    conf.SecretKey,
		defaultDelta: conf.CompletionTokenDelta,
	}
}

// Issue signs a completion token for the given class IDs. The ID list is
// kept as provided: no deduplication or ordering. expirationHours <= 0 falls
// back to the configured default; bounds checking is the caller's concern.
func (svc *TokenService) Issue(classIDs []int, expirationHours int) (string, error) {
	delta := svc.defaultDelta
	if expirationHours > 0 {
		delta = time.Duration(expirationHours) * time.Hour
	}

	now := nowFunc()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    svc.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(delta)),
		},
		Purpose:  TokenPurpose,
		ClassIDs: classIDs,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.secretKey)
}

// Validate parses and checks a completion token. It returns
// ErrTokenMalformed when the signature or payload shape is bad,
// ErrWrongPurpose when a validly signed token carries another purpose
// (callers treat it like a malformed one) and ErrTokenExpired once the
// expiry is reached (the boundary instant counts as expired).
func (svc *TokenService) Validate(token string) (*TokenInfo, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return nowFunc() }),
	)

	claims := new(Claims)
	if _, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return svc.secretKey, nil
	}); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}

	if claims.Purpose != TokenPurpose {
		return nil, ErrWrongPurpose
	}
	if claims.ClassIDs == nil || claims.IssuedAt == nil {
		return nil, ErrTokenMalformed
	}

	return &TokenInfo{
		ClassIDs:  claims.ClassIDs,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// BuildURL issues a token and embeds it in a completion URL under baseURL.
func (svc *TokenService) BuildURL(classIDs []int, baseURL string, expirationHours int) (string, error) {
	token, err := svc.Issue(classIDs, expirationHours)
	if err != nil {
		return "", err
	}
	q := make(url.Values)
	q.Set("token", token)
	return strings.TrimRight(baseURL, "/") + Path + "?" + q.Encode(), nil
}
