package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"fmt"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	jwk "github.com/lestrrat-go/jwx/v2/jwk"
)

// Set holds the tool's RSA signing key and the derived public JWKS.
// It is constructed once at startup and passed to whoever signs or
// publishes keys; there is no package-level singleton.
type Set struct {
	kid  string
	key  *rsa.PrivateKey
	jwks jwk.Set
}

// Load builds a Set from the given key material. kid may be empty, in which
// case a random UUID is used. pemStr takes precedence over b64 (a base64
// encoded PEM block). When neither is set, a 2048-bit dev key is generated
// and export instructions are printed so the operator can persist it.
func Load(kid, pemStr, b64 string) (*Set, error) {
	if kid == "" {
		kid = uuid.NewString()
	}

	var key *rsa.PrivateKey
	if pemStr != "" {
		key = parsePEM([]byte(pemStr))
	}
	if key == nil && b64 != "" {
		if der, err := base64.StdEncoding.DecodeString(b64); err == nil {
			key = parsePEM(der)
		}
	}
	if key == nil {
		gen, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			return nil, err
		}
		key = gen
		block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(gen)}
		pemBytes := pem.EncodeToMemory(block)
		fmt.Println("[keys] Generated ephemeral RSA key (dev mode). To persist, set one of:")
		fmt.Printf("export TOOL_PRIVATE_KEY_PEM='%s'\n", string(pemBytes))
		fmt.Printf("export TOOL_PRIVATE_KEY_B64='%s'\n", base64.StdEncoding.EncodeToString(pemBytes))
		fmt.Printf("export TOOL_KID='%s'\n", kid)
	}

	jwkKey, err := jwk.FromRaw(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	_ = jwkKey.Set(jwk.KeyIDKey, kid)
	_ = jwkKey.Set(jwk.AlgorithmKey, jwa.RS256)
	_ = jwkKey.Set(jwk.KeyUsageKey, "sig")

	set := jwk.NewSet()
	if err := set.AddKey(jwkKey); err != nil {
		return nil, err
	}
	return &Set{kid: kid, key: key, jwks: set}, nil
}

func parsePEM(data []byte) *rsa.PrivateKey {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil
	}
	if k, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return k
	}
	if pk, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		if rk, ok := pk.(*rsa.PrivateKey); ok {
			return rk
		}
	}
	return nil
}

// JWKSJSON returns the public JWKS as JSON bytes.
func (s *Set) JWKSJSON() ([]byte, error) {
	return json.Marshal(s.jwks)
}

// PrivateKey returns the signing key.
func (s *Set) PrivateKey() *rsa.PrivateKey { return s.key }

// Kid returns the current key id.
func (s *Set) Kid() string { return s.kid }
