package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/KhanMaytok/pixl-interview/internal/config"
)

var ErrInvalidToken = errors.New("invalid token")

// Validator checks bearer tokens issued by the external auth service and
// extracts the authenticated user id. Token issuance lives elsewhere; this
// side only verifies.
type Validator struct {
	method string
	pub    *rsa.PublicKey
	secret []byte
}

func NewValidator(cfg config.JWT) (*Validator, error) {
	switch strings.ToUpper(cfg.Alg) {
	case "RS256":
		pub, err := loadPublicKey(cfg.PublicKeyPath)
		if err != nil {
			return nil, err
		}
		return &Validator{method: "RS256", pub: pub}, nil
	case "HS256":
		if cfg.HSSecret == "" {
			return nil, errors.New("jwt secret missing")
		}
		return &Validator{method: "HS256", secret: []byte(cfg.HSSecret)}, nil
	default:
		return nil, errors.New("unsupported jwt alg")
	}
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(b)
	if block == nil {
		return nil, errors.New("failed to decode public key")
	}
	pubIfc, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	pub, ok := pubIfc.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("not rsa public key")
	}
	return pub, nil
}

// Validate returns the user id carried by the token. The id is read from
// the "sub" claim, falling back to "user_id".
func (v *Validator) Validate(tokenStr string) (int64, error) {
	tok, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if v.method == "RS256" {
			return v.pub, nil
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{v.method}))
	if err != nil {
		return 0, err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return 0, ErrInvalidToken
	}
	if id, ok := userID(claims["sub"]); ok {
		return id, nil
	}
	if id, ok := userID(claims["user_id"]); ok {
		return id, nil
	}
	return 0, ErrInvalidToken
}

func userID(claim any) (int64, bool) {
	switch c := claim.(type) {
	case float64:
		return int64(c), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(c), 10, 64)
		if err != nil || n <= 0 {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
