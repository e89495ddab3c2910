package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pemKey(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	block := &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)}
	return string(pem.EncodeToMemory(block)), key
}

func TestLoadFromPEM(t *testing.T) {
	pemStr, key := pemKey(t)
	set, err := Load("kid-1", pemStr, "")
	require.NoError(t, err)

	assert.Equal(t, "kid-1", set.Kid())
	assert.True(t, key.Equal(set.PrivateKey()))
}

func TestLoadFromBase64(t *testing.T) {
	pemStr, key := pemKey(t)
	b64 := base64.StdEncoding.EncodeToString([]byte(pemStr))
	set, err := Load("kid-2", "", b64)
	require.NoError(t, err)
	assert.True(t, key.Equal(set.PrivateKey()))
}

func TestLoadGeneratesDevKey(t *testing.T) {
	set, err := Load("", "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, set.Kid(), "a kid is assigned when none is given")
	assert.NotNil(t, set.PrivateKey())
}

func TestJWKSJSONPublishesOnlyPublicMaterial(t *testing.T) {
	pemStr, _ := pemKey(t)
	set, err := Load("kid-3", pemStr, "")
	require.NoError(t, err)

	raw, err := set.JWKSJSON()
	require.NoError(t, err)

	var body struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	require.Len(t, body.Keys, 1)
	k := body.Keys[0]
	assert.Equal(t, "kid-3", k["kid"])
	assert.Equal(t, "RS256", k["alg"])
	assert.Equal(t, "sig", k["use"])
	assert.NotContains(t, k, "d")
	assert.NotContains(t, k, "p")
	assert.NotContains(t, k, "q")
}
