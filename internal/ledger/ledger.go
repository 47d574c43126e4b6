package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/telana99/vehicle-record-ledger/internal/db"
	"github.com/telana99/vehicle-record-ledger/internal/models"
)

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrAlreadyExists   = errors.New("already exists")
	ErrNotFound        = errors.New("not found")
	ErrOutOfBounds     = errors.New("out of bounds")
)

// Listener receives ledger events after the state transition has committed.
// Listeners are called synchronously and must not block; delivery is
// observational only.
type Listener func(models.Event)

// registration is the per-principal registry entry. The name is stored only
// while the center is active; deactivation clears it.
type registration struct {
	active bool
	name   string
}

// Ledger is the append-only vehicle service-record store. The owner is fixed
// at construction and holds the only registry-administration rights. Every
// state-mutating operation is validated, written through to the commit log,
// and only then applied, so a failure leaves no partial state behind.
type Ledger struct {
	mu            sync.RWMutex
	address       string
	owner         models.Principal
	registrations map[models.Principal]registration
	histories     map[string][]models.ServiceRecord
	listeners     []Listener
	log           db.CommitLog
	now           func() time.Time
	seq           int64
}

// New creates a ledger owned by the initializing principal. A nil commit log
// keeps state in memory only.
func New(owner models.Principal, log db.CommitLog) (*Ledger, error) {
	if !owner.Valid() {
		return nil, fmt.Errorf("owner principal is required: %w", ErrInvalidArgument)
	}
	return &Ledger{
		address:       primitive.NewObjectID().Hex(),
		owner:         owner,
		registrations: make(map[models.Principal]registration),
		histories:     make(map[string][]models.ServiceRecord),
		log:           log,
		now:           time.Now,
	}, nil
}

// Owner returns the principal fixed at creation time.
func (l *Ledger) Owner() models.Principal {
	return l.owner
}

// Address returns the opaque instance identifier external tooling records
// after deployment and supplies to subsequent client connections.
func (l *Ledger) Address() string {
	return l.address
}

// Subscribe registers an event listener.
func (l *Ledger) Subscribe(listener Listener) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, listener)
}

// AddServiceCenter authorizes a center to append service records. Owner only.
func (l *Ledger) AddServiceCenter(ctx context.Context, caller, center models.Principal, name string) error {
	l.mu.Lock()
	if caller != l.owner {
		l.mu.Unlock()
		return fmt.Errorf("caller %q is not the ledger owner: %w", caller, ErrUnauthorized)
	}
	if !center.Valid() {
		l.mu.Unlock()
		return fmt.Errorf("center principal is required: %w", ErrInvalidArgument)
	}
	if name == "" {
		l.mu.Unlock()
		return fmt.Errorf("center name is required: %w", ErrInvalidArgument)
	}
	if l.registrations[center].active {
		l.mu.Unlock()
		return fmt.Errorf("center %q is already authorized: %w", center, ErrAlreadyExists)
	}
	if err := l.commit(ctx, db.Entry{Op: db.OpAddCenter, Center: center, Name: name}); err != nil {
		l.mu.Unlock()
		return err
	}
	l.registrations[center] = registration{active: true, name: name}
	l.mu.Unlock()

	l.notify(models.Event{Type: models.EventServiceCenterAdded, Center: center, Name: name})
	return nil
}

// RemoveServiceCenter deactivates a center and clears its stored name. Owner
// only. Records already attributed to the center are unaffected.
func (l *Ledger) RemoveServiceCenter(ctx context.Context, caller, center models.Principal) error {
	l.mu.Lock()
	if caller != l.owner {
		l.mu.Unlock()
		return fmt.Errorf("caller %q is not the ledger owner: %w", caller, ErrUnauthorized)
	}
	if !l.registrations[center].active {
		l.mu.Unlock()
		return fmt.Errorf("center %q is not an active service center: %w", center, ErrNotFound)
	}
	if err := l.commit(ctx, db.Entry{Op: db.OpRemoveCenter, Center: center}); err != nil {
		l.mu.Unlock()
		return err
	}
	l.registrations[center] = registration{}
	l.mu.Unlock()

	l.notify(models.Event{Type: models.EventServiceCenterRemoved, Center: center})
	return nil
}

// AddServiceRecord appends a record to the vehicle's history. The caller must
// be an active service center; the timestamp and attribution are assigned by
// the ledger, never by the caller. This is the sole mutation path for
// records.
func (l *Ledger) AddServiceRecord(ctx context.Context, caller models.Principal, vehicleID, serviceType string, mileage int64, description string) (models.ServiceRecord, error) {
	l.mu.Lock()
	if !l.registrations[caller].active {
		l.mu.Unlock()
		return models.ServiceRecord{}, fmt.Errorf("caller %q is not an active service center: %w", caller, ErrUnauthorized)
	}
	record := models.ServiceRecord{
		Timestamp:     l.now().Unix(),
		VehicleID:     vehicleID,
		ServiceType:   serviceType,
		Mileage:       mileage,
		Description:   description,
		ServiceCenter: caller,
	}
	if err := record.Validate(); err != nil {
		l.mu.Unlock()
		return models.ServiceRecord{}, fmt.Errorf("%v: %w", err, ErrInvalidArgument)
	}
	if err := l.commit(ctx, db.Entry{Op: db.OpAddRecord, Center: caller, Record: &record}); err != nil {
		l.mu.Unlock()
		return models.ServiceRecord{}, err
	}
	l.histories[vehicleID] = append(l.histories[vehicleID], record)
	l.mu.Unlock()

	l.notify(models.Event{
		Type:        models.EventServiceRecordAdded,
		Center:      caller,
		VehicleID:   vehicleID,
		ServiceType: serviceType,
		Timestamp:   record.Timestamp,
	})
	return record, nil
}

// GetServiceHistory returns the full insertion-ordered history for a vehicle.
// A vehicle with no records yields an empty slice, never an error. Publicly
// readable.
func (l *Ledger) GetServiceHistory(vehicleID string) []models.ServiceRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()
	history := l.histories[vehicleID]
	out := make([]models.ServiceRecord, len(history))
	copy(out, history)
	return out
}

// GetRecordCount returns the number of records for a vehicle, 0 if absent.
func (l *Ledger) GetRecordCount(vehicleID string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.histories[vehicleID])
}

// GetServiceRecordByIndex returns one record by insertion index.
func (l *Ledger) GetServiceRecordByIndex(vehicleID string, index int) (models.ServiceRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	history := l.histories[vehicleID]
	if index < 0 || index >= len(history) {
		return models.ServiceRecord{}, fmt.Errorf("index %d exceeds record count %d for vehicle %q: %w",
			index, len(history), vehicleID, ErrOutOfBounds)
	}
	return history[index], nil
}

// IsAuthorizedCenter reports whether the principal is currently an active
// service center. Unknown principals are simply not authorized.
func (l *Ledger) IsAuthorizedCenter(center models.Principal) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registrations[center].active
}

// GetServiceCenterName returns the stored display name for an active center,
// or the empty string for unknown or deactivated principals.
func (l *Ledger) GetServiceCenterName(center models.Principal) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registrations[center].name
}

// GetServiceCenter returns the query-side view of a center registration.
func (l *Ledger) GetServiceCenter(center models.Principal) models.ServiceCenter {
	l.mu.RLock()
	defer l.mu.RUnlock()
	reg := l.registrations[center]
	return models.ServiceCenter{Principal: center, Name: reg.name, Active: reg.active}
}

// Replay rebuilds in-memory state from previously committed entries. Guard
// checks are skipped: they held when each entry was first committed.
func (l *Ledger) Replay(entries []db.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range entries {
		switch e.Op {
		case db.OpAddCenter:
			l.registrations[e.Center] = registration{active: true, name: e.Name}
		case db.OpRemoveCenter:
			l.registrations[e.Center] = registration{}
		case db.OpAddRecord:
			if e.Record == nil {
				return fmt.Errorf("commit entry %d has op %q but no record", e.Seq, e.Op)
			}
			record := *e.Record
			l.histories[record.VehicleID] = append(l.histories[record.VehicleID], record)
		default:
			return fmt.Errorf("commit entry %d has unknown op %q", e.Seq, e.Op)
		}
		if e.Seq > l.seq {
			l.seq = e.Seq
		}
	}
	return nil
}

// commit writes the entry through to the durable log before the in-memory
// state is touched. Must be called with the write lock held.
func (l *Ledger) commit(ctx context.Context, entry db.Entry) error {
	entry.Seq = l.seq + 1
	entry.At = l.now()
	if l.log != nil {
		if err := l.log.Append(ctx, entry); err != nil {
			return fmt.Errorf("commit log append failed: %w", err)
		}
	}
	l.seq = entry.Seq
	return nil
}

// notify fans the event out to all listeners. Called without the write lock
// so listeners may query the ledger.
func (l *Ledger) notify(event models.Event) {
	l.mu.RLock()
	listeners := make([]Listener, len(l.listeners))
	copy(listeners, l.listeners)
	l.mu.RUnlock()
	for _, listener := range listeners {
		listener(event)
	}
}
