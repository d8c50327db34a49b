package jwks

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-jose/go-jose/v4"
	"github.com/stretchr/testify/require"
)

type keyServer struct {
	*httptest.Server
	hits   atomic.Int32
	status atomic.Int32
	gate   chan struct{}
	keys   []jose.JSONWebKey
}

func newRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

// newKeyServer serves the public halves of keys. When gate is non-nil each
// request blocks until the gate is closed.
func newKeyServer(t *testing.T, gate chan struct{}, keys map[string]*rsa.PrivateKey) *keyServer {
	t.Helper()

	ks := &keyServer{gate: gate}
	for kid, key := range keys {
		ks.keys = append(ks.keys, jose.JSONWebKey{Key: &key.PublicKey, KeyID: kid, Algorithm: "RS256", Use: "sig"})
	}
	ks.status.Store(http.StatusOK)

	ks.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ks.hits.Add(1)
		if ks.gate != nil {
			<-ks.gate
		}
		if status := int(ks.status.Load()); status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(jose.JSONWebKeySet{Keys: ks.keys})
	}))
	t.Cleanup(ks.Close)
	return ks
}
