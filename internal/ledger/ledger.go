// Package ledger maintains the tamper-evident delivery audit chain. Every
// delivery attempt appends one record carrying a SHA-256 hash over its own
// fields plus the hash of the previous record, so any retroactive edit or
// deletion breaks verification from that point forward.
//
// Appends must stay serialized: the queue processor handles jobs one at a
// time, which keeps the read-prev-hash/compute/insert sequence single-writer
// without extra locking.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/velorek/notiq/internal/domain"
	"github.com/velorek/notiq/internal/repository"
	"go.uber.org/zap"
)

// Entry is the caller-facing shape of one delivery attempt.
type Entry struct {
	EventType  string
	ActorEmail string
	Recipients []string
	Delivery   domain.Channel
	Provider   domain.ProviderTag
	Success    bool
	Error      *string
}

// chainPayload is the canonical serialization hashed into each record.
// Field order is fixed; changing it invalidates every existing chain.
type chainPayload struct {
	EventType  string  `json:"eventType"`
	ActorEmail string  `json:"actorEmail"`
	Recipients string  `json:"recipients"`
	Delivery   string  `json:"delivery"`
	Provider   string  `json:"provider"`
	Success    bool    `json:"success"`
	Error      *string `json:"error"`
	PrevHash   *string `json:"prevHash"`
}

// VerifyResult reports chain verification outcome. BrokenAtID is set to the
// first record whose linkage or content hash fails.
type VerifyResult struct {
	Valid      bool   `json:"valid"`
	BrokenAtID *int64 `json:"brokenAtId,omitempty"`
}

type Ledger struct {
	records repository.AuditRepository
	logger  *zap.Logger
}

func NewLedger(records repository.AuditRepository, logger *zap.Logger) (*Ledger, error) {
	if records == nil {
		return nil, fmt.Errorf("audit repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Ledger{
		records: records,
		logger:  logger,
	}, nil
}

// Append links a new record to the end of the chain. Callers treat a
// returned error as logged-and-ignored; audit availability never decides a
// delivery outcome.
func (l *Ledger) Append(ctx context.Context, entry Entry) error {
	record, err := l.buildRecord(ctx, entry)
	if err != nil {
		return err
	}

	if err := l.records.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}

	return nil
}

func (l *Ledger) buildRecord(ctx context.Context, entry Entry) (*domain.AuditRecord, error) {
	var prevHash *string
	last, err := l.records.Last(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to read chain head: %w", err)
	}
	if last != nil {
		hash := last.Hash
		prevHash = &hash
	}

	recipients, err := serializeRecipients(entry.Recipients)
	if err != nil {
		return nil, err
	}

	record := &domain.AuditRecord{
		EventType:  entry.EventType,
		ActorEmail: entry.ActorEmail,
		Recipients: recipients,
		Delivery:   entry.Delivery,
		Provider:   entry.Provider,
		Success:    entry.Success,
		Error:      entry.Error,
		PrevHash:   prevHash,
	}
	if err := record.Validate(); err != nil {
		return nil, err
	}

	hash, err := computeHash(record)
	if err != nil {
		return nil, err
	}
	record.Hash = hash

	return record, nil
}

// VerifyChain walks every record in insertion order and checks both linkage
// (prevHash matches the predecessor's hash) and content (the stored hash
// matches a recomputation). Read-only; it repairs nothing.
func (l *Ledger) VerifyChain(ctx context.Context) (*VerifyResult, error) {
	records, err := l.records.ListOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}

	for i := range records {
		record := &records[i]

		if i == 0 {
			if record.PrevHash != nil {
				return brokenAt(record.ID), nil
			}
		} else {
			prev := &records[i-1]
			if record.PrevHash == nil || *record.PrevHash != prev.Hash {
				return brokenAt(record.ID), nil
			}
		}

		expected, err := computeHash(record)
		if err != nil {
			return nil, err
		}
		if expected != record.Hash {
			return brokenAt(record.ID), nil
		}
	}

	return &VerifyResult{Valid: true}, nil
}

func brokenAt(id int64) *VerifyResult {
	return &VerifyResult{Valid: false, BrokenAtID: &id}
}

func computeHash(record *domain.AuditRecord) (string, error) {
	payload := chainPayload{
		EventType:  record.EventType,
		ActorEmail: record.ActorEmail,
		Recipients: record.Recipients,
		Delivery:   record.Delivery.String(),
		Provider:   record.Provider.String(),
		Success:    record.Success,
		Error:      record.Error,
		PrevHash:   record.PrevHash,
	}

	canonical, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to serialize audit payload: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func serializeRecipients(recipients []string) (string, error) {
	if recipients == nil {
		recipients = []string{}
	}
	raw, err := json.Marshal(recipients)
	if err != nil {
		return "", fmt.Errorf("failed to serialize recipients: %w", err)
	}
	return string(raw), nil
}
