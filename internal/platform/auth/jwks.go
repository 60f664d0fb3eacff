package auth

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	jwksTTL        = 5 * time.Minute
	jwksMinRefetch = 30 * time.Second
)

// jwk is one entry of a JWKS document. Only RSA signing keys are used.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// keySet holds the identity provider's RSA signing keys by kid. The JWKS
// location is configured or discovered from the issuer on first use. Keys
// are refreshed after jwksTTL; an unknown kid triggers at most one refetch
// per jwksMinRefetch. A key already known keeps verifying while the
// provider is unreachable.
type keySet struct {
	jwksURL string
	issuer  string
	client  *http.Client
	now     func() time.Time

	fetchMu sync.Mutex

	mu          sync.RWMutex
	keys        map[string]*rsa.PublicKey
	fetchedAt   time.Time
	attemptedAt time.Time
}

func newKeySet(jwksURL, issuer string) *keySet {
	return &keySet{
		jwksURL: jwksURL,
		issuer:  issuer,
		client:  &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
		keys:    make(map[string]*rsa.PublicKey),
	}
}

func (s *keySet) keyFunc(token *jwt.Token) (interface{}, error) {
	kid, _ := token.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("token has no kid header")
	}
	return s.key(kid)
}

func (s *keySet) key(kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	key, ok := s.keys[kid]
	fresh := !s.fetchedAt.IsZero() && s.now().Sub(s.fetchedAt) < jwksTTL
	s.mu.RUnlock()
	if ok && fresh {
		return key, nil
	}

	if err := s.refresh(); err != nil && !ok {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if key, ok = s.keys[kid]; !ok {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}
	return key, nil
}

func (s *keySet) refresh() error {
	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	s.mu.Lock()
	if !s.attemptedAt.IsZero() && s.now().Sub(s.attemptedAt) < jwksMinRefetch {
		s.mu.Unlock()
		return nil
	}
	s.attemptedAt = s.now()
	s.mu.Unlock()

	if s.jwksURL == "" {
		if s.issuer == "" {
			return errors.New("neither a JWKS URL nor an issuer is configured")
		}
		provider, err := NewOIDCProvider(s.issuer)
		if err != nil {
			return err
		}
		s.jwksURL = provider.JWKSURI
	}

	keys, err := s.fetch()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.keys = keys
	s.fetchedAt = s.now()
	s.mu.Unlock()
	return nil
}

func (s *keySet) fetch() (map[string]*rsa.PublicKey, error) {
	resp, err := s.client.Get(s.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", s.jwksURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}

	var doc struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding JWKS response: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") || k.Kid == "" {
			continue
		}
		pub, err := parseRSAPublicKey(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		return nil, errors.New("JWKS has no usable RSA signing keys")
	}
	return keys, nil
}

func parseRSAPublicKey(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil || len(nBytes) == 0 {
		return nil, fmt.Errorf("invalid modulus for key %q", k.Kid)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("invalid exponent for key %q", k.Kid)
	}
	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() < 3 || e.Int64() > math.MaxInt32 {
		return nil, fmt.Errorf("exponent out of range for key %q", k.Kid)
	}

	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: int(e.Int64())}, nil
}
