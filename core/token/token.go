package token

import (
	"crypto/sha256"
	"time"

	"github.com/RaiseHigh-Tech/topgrade-api/random"
)

// Token scopes. A token is only valid for the purpose it was issued for.
const (
	ScopeActivation = "activation"
	ScopeRecovery   = "recovery"
)

// Mailer delivers token emails. The email package provides the production
// implementation.
type Mailer interface {
	SendActivationToken(token string, to string) error
	SendRecoveryToken(token string, to string) error
}

// Token is the stored form of an emailed token: only its sha256 digest is
// kept at rest.
type Token struct {
	Hash   []byte    `db:"token_hash"`
	UserID string    `db:"user_id"`
	Scope  string    `db:"scope"`
	Expiry time.Time `db:"expiry"`
}

type TokenNew struct {
	Email string `json:"email" validate:"required,email"`
	Scope string `json:"scope" validate:"required,oneof=activation recovery"`
}

type TokenActivate struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required,len=26"`
}

type TokenRecover struct {
	Email           string `json:"email" validate:"required,email"`
	Token           string `json:"token" validate:"required,len=26"`
	Password        string `json:"password" validate:"required,gte=8,lte=50"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// generate mints a fresh plaintext token and its stored counterpart.
func generate(userID string, scope string, ttl time.Duration) (string, Token, error) {
	plain, err := random.StringSecure(26)
	if err != nil {
		return "", Token{}, err
	}

	return plain, Token{
		Hash:   hash(plain),
		UserID: userID,
		Scope:  scope,
		Expiry: time.Now().UTC().Add(ttl),
	}, nil
}

func hash(plain string) []byte {
	sum := sha256.Sum256([]byte(plain))
	return sum[:]
}
