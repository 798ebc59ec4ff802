// Package reputation implements the reputation sources consulted during
// scoring: the internal IP/e-mail reputation database and external HTTP
// providers.
package reputation

import (
	"context"
	"crypto/md5" //nolint:gosec // lookup key, not a security boundary
	"encoding/hex"
	"strings"
	"sync"
)

// IPReputation is what is known about an IP address.
type IPReputation struct {
	RiskScore float64 `json:"risk_score"`
	IsProxy   bool    `json:"is_proxy"`
	IsVPN     bool    `json:"is_vpn"`
}

// EmailReputation is what is known about an e-mail address.
type EmailReputation struct {
	RiskScore    float64 `json:"risk_score"`
	IsDisposable bool    `json:"is_disposable"`
}

// Store holds reputation data. Lookups report found=false for unknown keys.
type Store interface {
	IP(ctx context.Context, ip string) (IPReputation, bool, error)
	Email(ctx context.Context, emailHash string) (EmailReputation, bool, error)
	PutIP(ctx context.Context, ip string, rep IPReputation) error
	PutEmail(ctx context.Context, email string, rep EmailReputation) error
}

// EmailHash is the lookup key of an e-mail address: md5 of its lowercase form.
func EmailHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email)))) //nolint:gosec // lookup key
	return hex.EncodeToString(sum[:])
}

// MemoryStore keeps reputation data in process.
type MemoryStore struct {
	mu     sync.RWMutex
	ips    map[string]IPReputation
	emails map[string]EmailReputation
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ips: make(map[string]IPReputation), emails: make(map[string]EmailReputation)}
}

// IP looks up the reputation of an address.
func (m *MemoryStore) IP(_ context.Context, ip string) (IPReputation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rep, ok := m.ips[ip]
	return rep, ok, nil
}

// Email looks up the reputation of a hashed address.
func (m *MemoryStore) Email(_ context.Context, emailHash string) (EmailReputation, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rep, ok := m.emails[emailHash]
	return rep, ok, nil
}

// PutIP replaces the reputation of ip.
func (m *MemoryStore) PutIP(_ context.Context, ip string, rep IPReputation) error {
	m.mu.Lock()
	m.ips[ip] = rep
	m.mu.Unlock()
	return nil
}

// PutEmail hashes email and replaces its reputation.
func (m *MemoryStore) PutEmail(_ context.Context, email string, rep EmailReputation) error {
	m.mu.Lock()
	m.emails[EmailHash(email)] = rep
	m.mu.Unlock()
	return nil
}
