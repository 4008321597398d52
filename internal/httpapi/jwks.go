package httpapi

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lightsaway/event-gateway/internal/logger"
)

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

// JWKSProvider periodically fetches a JSON Web Key Set and resolves
// key ids to public keys for jwt.Parse's Keyfunc callback.
type JWKSProvider struct {
	url      string
	interval time.Duration
	client   *http.Client

	mu   sync.RWMutex
	keys map[string]*rsa.PublicKey

	stop chan struct{}
}

func NewJWKSProvider(url string, refreshInterval time.Duration) *JWKSProvider {
	if refreshInterval <= 0 {
		refreshInterval = 300 * time.Second
	}
	p := &JWKSProvider{
		url:      url,
		interval: refreshInterval,
		client:   &http.Client{Timeout: 10 * time.Second},
		keys:     make(map[string]*rsa.PublicKey),
		stop:     make(chan struct{}),
	}
	return p
}

// Start performs an initial synchronous fetch, then refreshes on a timer
// until Stop is called.
func (p *JWKSProvider) Start() error {
	if err := p.refresh(); err != nil {
		return err
	}
	go p.loop()
	return nil
}

func (p *JWKSProvider) loop() {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := p.refresh(); err != nil {
				logger.GetLogger().WithError(err).Warn("jwks: refresh failed, keeping previous key set")
			}
		case <-p.stop:
			return
		}
	}
}

func (p *JWKSProvider) Stop() {
	close(p.stop)
}

func (p *JWKSProvider) refresh() error {
	resp, err := p.client.Get(p.url)
	if err != nil {
		return fmt.Errorf("jwks: fetch %s: %w", p.url, err)
	}
	defer resp.Body.Close()

	var doc jwksDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("jwks: decode: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" {
			continue
		}
		pub, err := rsaPublicKeyFromJWK(k)
		if err != nil {
			logger.GetLogger().WithError(err).WithField("kid", k.Kid).Warn("jwks: skipping malformed key")
			continue
		}
		keys[k.Kid] = pub
	}

	p.mu.Lock()
	p.keys = keys
	p.mu.Unlock()
	return nil
}

func rsaPublicKeyFromJWK(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}

	eBuf := make([]byte, 8)
	copy(eBuf[8-len(eBytes):], eBytes)

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(binary.BigEndian.Uint64(eBuf)),
	}, nil
}

// Keyfunc resolves the key id in the token header to a public key.
func (p *JWKSProvider) Keyfunc(token *jwt.Token) (interface{}, error) {
	kid, ok := token.Header["kid"].(string)
	if !ok {
		return nil, fmt.Errorf("jwks: token missing kid header")
	}
	p.mu.RLock()
	key, ok := p.keys[kid]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("jwks: unknown key id %q", kid)
	}
	return key, nil
}
