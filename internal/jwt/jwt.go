// Package jwt signs and validates the bearer tokens that identify an
// account to the HTTP layer
package jwt

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	jwtgo "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer issues the JWT
const Issuer = "cardroom-server"

// Audience is the intended JWT audience
const Audience = "cardroom"

var publicKey *rsa.PublicKey
var privateKey *rsa.PrivateKey

// LoadKeys will load the public and private keys from the provided paths.
// This method should only be called once, at startup.
func LoadKeys(publicKeyPath, privateKeyPath string) error {
	pub, err := loadPublicKey(publicKeyPath)
	if err != nil {
		return err
	}

	priv, err := loadPrivateKey(privateKeyPath)
	if err != nil {
		return err
	}

	publicKey, privateKey = pub, priv
	return nil
}

// Sign will sign a JWT for the account
func Sign(accountID string) (string, error) {
	if privateKey == nil {
		panic("LoadKeys() not called")
	}

	token := jwtgo.NewWithClaims(jwtgo.SigningMethodRS256, jwtgo.RegisteredClaims{
		Audience: jwtgo.ClaimStrings{Audience},
		ID:       uuid.New().String(),
		IssuedAt: jwtgo.NewNumericDate(time.Now()),
		Issuer:   Issuer,
		Subject:  accountID,
	})

	return token.SignedString(privateKey)
}

// ValidAccountID will validate a signed JWT and return its account ID
func ValidAccountID(signedString string) (string, error) {
	if publicKey == nil {
		panic("LoadKeys() not called")
	}

	token, err := jwtgo.ParseWithClaims(signedString, &jwtgo.RegisteredClaims{}, func(token *jwtgo.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwtgo.SigningMethodRSA); !ok {
			return nil, errors.New("expected RS256 signing method")
		}

		return publicKey, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*jwtgo.RegisteredClaims)
	if !ok {
		return "", fmt.Errorf("expected jwt.RegisteredClaims, got %T", token.Claims)
	}

	if !containsAudience(claims.Audience, Audience) {
		return "", errors.New("invalid audience")
	}

	if claims.Issuer != Issuer {
		return "", errors.New("invalid issuer")
	}

	if claims.Subject == "" {
		return "", errors.New("missing subject")
	}

	return claims.Subject, nil
}

func loadPublicKey(path string) (*rsa.PublicKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return jwtgo.ParseRSAPublicKeyFromPEM(b)
}

func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return jwtgo.ParseRSAPrivateKeyFromPEM(b)
}

func containsAudience(audience jwtgo.ClaimStrings, want string) bool {
	for _, aud := range audience {
		if aud == want {
			return true
		}
	}

	return false
}
