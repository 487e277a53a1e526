package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ZacharyEspiritu/tee-assertion-generator/interfaces"
	"github.com/ZacharyEspiritu/tee-assertion-generator/metrics"
)

// MultiStore implements interfaces.EnvelopeStore over multiple stores.
// Saves replicate to every available store; loads fall back through the
// stores in order until one has the envelope.
type MultiStore struct {
	stores []interfaces.EnvelopeStore
	log    *slog.Logger
}

// NewMultiStore creates a replicating multi-store.
func NewMultiStore(stores []interfaces.EnvelopeStore, logger *slog.Logger) *MultiStore {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiStore{
		stores: stores,
		log:    logger,
	}
}

// Save writes the envelope to every available store. It succeeds if at
// least one store accepted the envelope; partial replication is logged,
// not fatal, since any one surviving copy can be unsealed.
func (m *MultiStore) Save(ctx context.Context, slot string, envelope []byte) error {
	start := time.Now()
	var success bool
	var errs []error

	for _, store := range m.stores {
		if !store.Available(ctx) {
			m.log.Debug("Envelope store unavailable", slog.String("store", store.Name()))
			continue
		}

		err := store.Save(ctx, slot, envelope)
		metrics.EnvelopeStoreOperations.WithLabelValues(store.Name(), "save", metrics.Outcome(err)).Inc()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
			m.log.Warn("Failed to save envelope to store",
				slog.String("store", store.Name()),
				slog.String("slot", slot),
				"err", err)
			continue
		}

		success = true
		m.log.Debug("Saved envelope to store",
			slog.String("store", store.Name()),
			slog.String("slot", slot))
	}

	if !success {
		m.log.Error("All envelope stores failed to save",
			slog.String("slot", slot),
			slog.Int("failed_stores", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return fmt.Errorf("all envelope stores failed to save slot %s: %v", slot, errs)
	}

	if len(errs) > 0 {
		m.log.Warn("Envelope saved with partial replication",
			slog.String("slot", slot),
			slog.Int("failed_stores", len(errs)))
	}

	return nil
}

// Load reads the envelope from the first store that has it. Returns
// ErrEnvelopeNotFound only if every reachable store reports the slot
// empty.
func (m *MultiStore) Load(ctx context.Context, slot string) ([]byte, error) {
	start := time.Now()
	var errs []error
	allNotFound := true

	for _, store := range m.stores {
		if !store.Available(ctx) {
			allNotFound = false
			m.log.Debug("Envelope store unavailable",
				slog.String("store", store.Name()),
				slog.String("slot", slot))
			continue
		}

		data, err := store.Load(ctx, slot)
		metrics.EnvelopeStoreOperations.WithLabelValues(store.Name(), "load", metrics.Outcome(err)).Inc()
		if err == nil {
			m.log.Debug("Loaded envelope from store",
				slog.String("store", store.Name()),
				slog.String("slot", slot),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		if !errors.Is(err, interfaces.ErrEnvelopeNotFound) {
			allNotFound = false
		}
		errs = append(errs, fmt.Errorf("%s: %w", store.Name(), err))
		m.log.Debug("Failed to load envelope from store",
			slog.String("store", store.Name()),
			slog.String("slot", slot),
			"err", err)
	}

	if allNotFound && len(errs) > 0 {
		return nil, interfaces.ErrEnvelopeNotFound
	}

	m.log.Error("All envelope stores failed to load",
		slog.String("slot", slot),
		slog.Int("failed_stores", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil, fmt.Errorf("all envelope stores failed to load slot %s: %v", slot, errs)
}

// Available checks if any store is available.
func (m *MultiStore) Available(ctx context.Context) bool {
	for _, store := range m.stores {
		if store.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this store.
func (m *MultiStore) Name() string {
	return "multi-store"
}

// LocationURI returns the combined URI of all underlying stores.
func (m *MultiStore) LocationURI() string {
	var locations []string
	for _, store := range m.stores {
		locations = append(locations, store.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}
