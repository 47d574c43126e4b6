package db

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/telana99/vehicle-record-ledger/internal/models"
)

// Commit log operation kinds. One entry is appended per committed state
// transition; the log is strictly append-only.
const (
	OpAddCenter    = "add_center"
	OpRemoveCenter = "remove_center"
	OpAddRecord    = "add_record"
)

// Entry is one durably ordered state transition. Seq is assigned by the
// ledger and is strictly increasing within one instance.
type Entry struct {
	Seq    int64                 `bson:"seq" json:"seq"`
	Op     string                `bson:"op" json:"op"`
	Center models.Principal      `bson:"center,omitempty" json:"center,omitempty"`
	Name   string                `bson:"name,omitempty" json:"name,omitempty"`
	Record *models.ServiceRecord `bson:"record,omitempty" json:"record,omitempty"`
	At     time.Time             `bson:"at" json:"at"`
}

// CommitLog is the durable, append-only substrate the ledger writes through.
// There is deliberately no update or delete operation.
type CommitLog interface {
	Append(ctx context.Context, entry Entry) error
	Load(ctx context.Context) ([]Entry, error)
}

// CredentialCollection defines the interface for principal credential
// operations.
type CredentialCollection interface {
	InsertCredential(ctx context.Context, cred models.Credential) error
	FindCredentialByPrincipal(ctx context.Context, principal models.Principal) (*models.Credential, error)
}

// MemoryCommitLog is an in-process CommitLog for tests and single-node demo
// deployments.
type MemoryCommitLog struct {
	mu      sync.Mutex
	entries []Entry
}

// NewMemoryCommitLog creates an empty in-memory commit log.
func NewMemoryCommitLog() *MemoryCommitLog {
	return &MemoryCommitLog{}
}

// Append stores the entry in order.
func (l *MemoryCommitLog) Append(ctx context.Context, entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

// Load returns a copy of all entries in append order.
func (l *MemoryCommitLog) Load(ctx context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out, nil
}

// MemoryCredentialCollection is an in-process CredentialCollection for tests
// and single-node demo deployments.
type MemoryCredentialCollection struct {
	mu    sync.Mutex
	creds map[models.Principal]models.Credential
}

// NewMemoryCredentialCollection creates an empty in-memory credential store.
func NewMemoryCredentialCollection() *MemoryCredentialCollection {
	return &MemoryCredentialCollection{creds: make(map[models.Principal]models.Credential)}
}

// InsertCredential stores a credential keyed by principal.
func (c *MemoryCredentialCollection) InsertCredential(ctx context.Context, cred models.Credential) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds[cred.Principal] = cred
	return nil
}

// FindCredentialByPrincipal looks a credential up by principal handle.
func (c *MemoryCredentialCollection) FindCredentialByPrincipal(ctx context.Context, principal models.Principal) (*models.Credential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cred, ok := c.creds[principal]
	if !ok {
		return nil, errors.New("credential not found")
	}
	return &cred, nil
}
