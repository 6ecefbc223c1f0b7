// Package stash is the container service: it owns loading and caching
// storage instances from the repository, serializes access per
// container, persists after every committed mutation and publishes the
// resulting domain events.
package stash

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/osse101/stockpile/internal/concurrency"
	"github.com/osse101/stockpile/internal/domain"
	"github.com/osse101/stockpile/internal/event"
	"github.com/osse101/stockpile/internal/logger"
	"github.com/osse101/stockpile/internal/metrics"
	"github.com/osse101/stockpile/internal/repository"
	"github.com/osse101/stockpile/internal/storage"
	"github.com/osse101/stockpile/internal/tag"
)

// Cache defaults
const (
	defaultCacheSize = 256
	defaultCacheTTL  = 5 * time.Minute
)

// Service defines the interface for container operations.
type Service interface {
	// CreateContainer provisions an empty container and returns its ID.
	CreateContainer(ctx context.Context, name string, slotCount int) (string, error)

	// Deposit pours a stack into the slot window [start, start+length).
	// It returns whatever did not fit; a full refusal is reported as
	// domain.ErrStorageRefused.
	Deposit(ctx context.Context, containerID string, user any, start, length int, operand domain.Item) (domain.Item, error)

	// Withdraw extracts up to amount items from the slot. RemoveAll
	// takes everything the slot holds.
	Withdraw(ctx context.Context, containerID string, user any, slot, amount int) (domain.Item, error)

	// Exchange swaps the candidate stack with the slot's current
	// contents and returns what was displaced.
	Exchange(ctx context.Context, containerID string, user any, slot int, candidate domain.Item) (domain.Item, error)

	// Move transfers up to amount items from one slot to another within
	// the same container, returning the quantity actually moved.
	Move(ctx context.Context, containerID string, user any, from, to, amount int) (int, error)

	// Consume adjusts a slot's quantity in place by delta.
	Consume(ctx context.Context, containerID string, user any, slot, delta int) error

	// Snapshot returns an isolated copy of the container's storage.
	Snapshot(ctx context.Context, containerID string) (*storage.Storage, error)

	// DeleteContainer removes a container and drops it from the cache.
	DeleteContainer(ctx context.Context, containerID string) error

	// Invalidate drops a container from the cache, forcing the next
	// operation to reload it from the repository.
	Invalidate(containerID string)
}

// Option configures the service.
type Option func(*service)

// WithPolicy sets the policy installed on every storage the service
// creates or loads.
func WithPolicy(p storage.Policy) Option {
	return func(s *service) { s.policy = p }
}

// WithStorageEvents installs pre-commit observers on every storage the
// service creates or loads.
func WithStorageEvents(e storage.Events) Option {
	return func(s *service) { s.storageEvents = &e }
}

// WithCache overrides the container cache size and TTL.
func WithCache(size int, ttl time.Duration) Option {
	return func(s *service) {
		s.cacheSize = size
		s.cacheTTL = ttl
	}
}

type service struct {
	repo          repository.Container
	codec         storage.RecordCodec
	bus           event.Bus
	locks         *concurrency.LockManager
	cache         *expirable.LRU[string, *storage.Storage]
	policy        storage.Policy
	storageEvents *storage.Events
	cacheSize     int
	cacheTTL      time.Duration
}

// NewService creates a new container service.
func NewService(repo repository.Container, codec storage.RecordCodec, bus event.Bus, opts ...Option) Service {
	s := &service{
		repo:      repo,
		codec:     codec,
		bus:       bus,
		locks:     concurrency.NewLockManager(),
		cacheSize: defaultCacheSize,
		cacheTTL:  defaultCacheTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cache = expirable.NewLRU[string, *storage.Storage](s.cacheSize, nil, s.cacheTTL)
	return s
}

func (s *service) storageOptions() []storage.Option {
	opts := []storage.Option{storage.WithEvents(instrumentedEvents(s.storageEvents))}
	if s.policy != nil {
		opts = append(opts, storage.WithPolicy(s.policy))
	}
	return opts
}

// instrumentedEvents counts quantity flowing through the engine, then
// chains to the caller's observers. Engine observers only fire on
// committed mutations, so the counters never see refused quantity.
func instrumentedEvents(chained *storage.Events) storage.Events {
	var next storage.Events
	if chained != nil {
		next = *chained
	}
	return storage.Events{
		BeforeInsert: func(slot int, incoming domain.Item) {
			metrics.QuantityMoved.WithLabelValues(metrics.DirectionIn).Add(float64(incoming.Quantity))
			if next.BeforeInsert != nil {
				next.BeforeInsert(slot, incoming)
			}
		},
		BeforeRemove: func(slot int, taken domain.Item) {
			metrics.QuantityMoved.WithLabelValues(metrics.DirectionOut).Add(float64(taken.Quantity))
			if next.BeforeRemove != nil {
				next.BeforeRemove(slot, taken)
			}
		},
		BeforeSwap: func(slot int, outgoing, incoming domain.Item) {
			if !outgoing.IsAir() {
				metrics.QuantityMoved.WithLabelValues(metrics.DirectionOut).Add(float64(outgoing.Quantity))
			}
			if !incoming.IsAir() {
				metrics.QuantityMoved.WithLabelValues(metrics.DirectionIn).Add(float64(incoming.Quantity))
			}
			if next.BeforeSwap != nil {
				next.BeforeSwap(slot, outgoing, incoming)
			}
		},
		BeforeModify: func(slot, delta int) {
			if delta > 0 {
				metrics.QuantityMoved.WithLabelValues(metrics.DirectionIn).Add(float64(delta))
			} else {
				metrics.QuantityMoved.WithLabelValues(metrics.DirectionOut).Add(float64(-delta))
			}
			if next.BeforeModify != nil {
				next.BeforeModify(slot, delta)
			}
		},
	}
}

// observeEngine records one engine call's outcome.
func observeEngine(op string, accepted bool, err error) {
	outcome := metrics.Outcome(accepted)
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.EngineOperations.WithLabelValues(op, outcome).Inc()
}

func (s *service) CreateContainer(ctx context.Context, name string, slotCount int) (string, error) {
	log := logger.FromContext(ctx)
	timer := s.startTimer(OpCreateContainer)
	defer timer()

	if slotCount < 0 {
		metrics.ServiceOperations.WithLabelValues(OpCreateContainer, metrics.OutcomeRefused).Inc()
		return "", fmt.Errorf("%w: %d", domain.ErrInvalidSlotCount, slotCount)
	}

	st := storage.New(slotCount, s.storageOptions()...)
	contents, err := serialize(st, s.codec)
	if err != nil {
		return "", fmt.Errorf("%s: %w", ErrMsgFailedToSerialize, err)
	}

	id, err := s.repo.Create(ctx, name, slotCount, contents)
	if err != nil {
		return "", fmt.Errorf("%s: %w", ErrMsgFailedToCreate, err)
	}
	s.cache.Add(id, st)

	metrics.ServiceOperations.WithLabelValues(OpCreateContainer, metrics.OutcomeAccepted).Inc()
	s.publish(ctx, event.NewContainerCreatedEvent(id, name, slotCount))
	log.Info(LogMsgContainerCreated, "container_id", id, "name", name, "slot_count", slotCount)
	return id, nil
}

func (s *service) Deposit(ctx context.Context, containerID string, user any, start, length int, operand domain.Item) (domain.Item, error) {
	log := logger.FromContext(logger.WithContainerID(ctx, containerID))
	timer := s.startTimer(OpDeposit)
	defer timer()

	var remainder domain.Item
	err := s.locks.WithLock(containerID, func() error {
		st, err := s.loadStorage(ctx, containerID)
		if err != nil {
			return err
		}

		accepted, rem, err := st.InsertRange(user, start, length, operand)
		observeEngine(engineOpInsertRange, accepted, err)
		if err != nil {
			metrics.ServiceOperations.WithLabelValues(OpDeposit, metrics.OutcomeRefused).Inc()
			return err
		}
		if !accepted {
			metrics.ServiceOperations.WithLabelValues(OpDeposit, metrics.OutcomeRefused).Inc()
			remainder = rem
			return domain.ErrStorageRefused
		}
		if err := s.persist(ctx, containerID, st); err != nil {
			return err
		}
		remainder = rem
		return nil
	})
	if err != nil {
		return remainder, err
	}

	moved := operand.Quantity - remainder.Quantity
	metrics.ServiceOperations.WithLabelValues(OpDeposit, metrics.OutcomeAccepted).Inc()
	s.publish(ctx, event.NewStackMovedEvent(event.DepositCompleted, containerID, start, operand.TypeID, moved, remainder.Quantity))
	log.Info(LogMsgDepositDone, "type_id", operand.TypeID, "moved", moved, "remainder", remainder.Quantity)
	return remainder, nil
}

func (s *service) Withdraw(ctx context.Context, containerID string, user any, slot, amount int) (domain.Item, error) {
	log := logger.FromContext(logger.WithContainerID(ctx, containerID))
	timer := s.startTimer(OpWithdraw)
	defer timer()

	var taken domain.Item
	err := s.locks.WithLock(containerID, func() error {
		st, err := s.loadStorage(ctx, containerID)
		if err != nil {
			return err
		}

		accepted, extracted, err := st.Remove(user, slot, amount)
		observeEngine(engineOpRemove, accepted, err)
		if err != nil {
			metrics.ServiceOperations.WithLabelValues(OpWithdraw, metrics.OutcomeRefused).Inc()
			return err
		}
		if !accepted {
			metrics.ServiceOperations.WithLabelValues(OpWithdraw, metrics.OutcomeRefused).Inc()
			return domain.ErrStorageRefused
		}
		if extracted.IsAir() {
			// Nothing to persist or announce for an empty slot.
			taken = domain.Air()
			return nil
		}
		if err := s.persist(ctx, containerID, st); err != nil {
			return err
		}
		taken = extracted
		return nil
	})
	if err != nil {
		return domain.Air(), err
	}

	metrics.ServiceOperations.WithLabelValues(OpWithdraw, metrics.OutcomeAccepted).Inc()
	if !taken.IsAir() {
		s.publish(ctx, event.NewStackMovedEvent(event.WithdrawCompleted, containerID, slot, taken.TypeID, taken.Quantity, 0))
	}
	log.Info(LogMsgWithdrawDone, "slot", slot, "type_id", taken.TypeID, "quantity", taken.Quantity)
	return taken, nil
}

func (s *service) Exchange(ctx context.Context, containerID string, user any, slot int, candidate domain.Item) (domain.Item, error) {
	log := logger.FromContext(logger.WithContainerID(ctx, containerID))
	timer := s.startTimer(OpExchange)
	defer timer()

	var displaced domain.Item
	err := s.locks.WithLock(containerID, func() error {
		st, err := s.loadStorage(ctx, containerID)
		if err != nil {
			return err
		}

		accepted, previous, err := st.Swap(user, slot, candidate)
		observeEngine(engineOpSwap, accepted, err)
		if err != nil {
			metrics.ServiceOperations.WithLabelValues(OpExchange, metrics.OutcomeRefused).Inc()
			return err
		}
		if !accepted {
			metrics.ServiceOperations.WithLabelValues(OpExchange, metrics.OutcomeRefused).Inc()
			return domain.ErrStorageRefused
		}
		if err := s.persist(ctx, containerID, st); err != nil {
			return err
		}
		displaced = previous
		return nil
	})
	if err != nil {
		return domain.Air(), err
	}

	metrics.ServiceOperations.WithLabelValues(OpExchange, metrics.OutcomeAccepted).Inc()
	s.publish(ctx, event.NewStackMovedEvent(event.ExchangeCompleted, containerID, slot, candidate.TypeID, candidate.Quantity, 0))
	log.Info(LogMsgExchangeDone, "slot", slot, "placed", candidate.TypeID, "displaced", displaced.TypeID)
	return displaced, nil
}

func (s *service) Move(ctx context.Context, containerID string, user any, from, to, amount int) (int, error) {
	log := logger.FromContext(logger.WithContainerID(ctx, containerID))
	timer := s.startTimer(OpMove)
	defer timer()

	if from == to {
		metrics.ServiceOperations.WithLabelValues(OpMove, metrics.OutcomeRefused).Inc()
		return 0, fmt.Errorf("%s: %w", ErrMsgMoveSameSlot, domain.ErrInvalidInput)
	}

	var moved int
	var movedType int
	err := s.locks.WithLock(containerID, func() error {
		st, err := s.loadStorage(ctx, containerID)
		if err != nil {
			return err
		}

		// Stage both halves on a copy so a refused insert leaves the
		// container untouched.
		work := st.Clone()
		accepted, taken, err := work.Remove(user, from, amount)
		observeEngine(engineOpRemove, accepted, err)
		if err != nil {
			metrics.ServiceOperations.WithLabelValues(OpMove, metrics.OutcomeRefused).Inc()
			return err
		}
		if !accepted {
			metrics.ServiceOperations.WithLabelValues(OpMove, metrics.OutcomeRefused).Inc()
			return domain.ErrStorageRefused
		}
		if taken.IsAir() {
			moved = 0
			return nil
		}

		accepted, remainder, err := work.Insert(user, to, taken)
		observeEngine(engineOpInsert, accepted, err)
		if err != nil {
			metrics.ServiceOperations.WithLabelValues(OpMove, metrics.OutcomeRefused).Inc()
			return err
		}
		if !accepted {
			metrics.ServiceOperations.WithLabelValues(OpMove, metrics.OutcomeRefused).Inc()
			return domain.ErrStorageRefused
		}
		if !remainder.IsAir() {
			// Return what did not fit to the source slot.
			putBack, rest, err := work.Insert(user, from, remainder)
			observeEngine(engineOpInsert, putBack, err)
			if err != nil || !putBack || !rest.IsAir() {
				metrics.ServiceOperations.WithLabelValues(OpMove, metrics.OutcomeRefused).Inc()
				return domain.ErrStorageRefused
			}
		}

		if err := s.persist(ctx, containerID, work); err != nil {
			return err
		}
		s.cache.Add(containerID, work)
		moved = taken.Quantity - remainder.Quantity
		movedType = taken.TypeID
		return nil
	})
	if err != nil {
		return 0, err
	}

	metrics.ServiceOperations.WithLabelValues(OpMove, metrics.OutcomeAccepted).Inc()
	if moved > 0 {
		s.publish(ctx, event.NewStackMovedEvent(event.MoveCompleted, containerID, to, movedType, moved, 0))
	}
	log.Info(LogMsgMoveDone, "from", from, "to", to, "moved", moved)
	return moved, nil
}

func (s *service) Consume(ctx context.Context, containerID string, user any, slot, delta int) error {
	log := logger.FromContext(logger.WithContainerID(ctx, containerID))
	timer := s.startTimer(OpConsume)
	defer timer()

	var typeID int
	err := s.locks.WithLock(containerID, func() error {
		st, err := s.loadStorage(ctx, containerID)
		if err != nil {
			return err
		}

		if it, err := st.At(slot); err == nil {
			typeID = it.TypeID
		}

		accepted, err := st.ModifyStackSize(user, slot, delta)
		observeEngine(engineOpModify, accepted, err)
		if err != nil {
			metrics.ServiceOperations.WithLabelValues(OpConsume, metrics.OutcomeRefused).Inc()
			return err
		}
		if !accepted {
			metrics.ServiceOperations.WithLabelValues(OpConsume, metrics.OutcomeRefused).Inc()
			return domain.ErrStorageRefused
		}
		return s.persist(ctx, containerID, st)
	})
	if err != nil {
		return err
	}

	metrics.ServiceOperations.WithLabelValues(OpConsume, metrics.OutcomeAccepted).Inc()
	s.publish(ctx, event.NewStackMovedEvent(event.ConsumeCompleted, containerID, slot, typeID, delta, 0))
	log.Info(LogMsgConsumeDone, "slot", slot, "delta", delta)
	return nil
}

func (s *service) Snapshot(ctx context.Context, containerID string) (*storage.Storage, error) {
	timer := s.startTimer(OpSnapshot)
	defer timer()

	var snapshot *storage.Storage
	err := s.locks.WithLock(containerID, func() error {
		st, err := s.loadStorage(ctx, containerID)
		if err != nil {
			return err
		}
		snapshot = st.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.ServiceOperations.WithLabelValues(OpSnapshot, metrics.OutcomeAccepted).Inc()
	return snapshot, nil
}

func (s *service) DeleteContainer(ctx context.Context, containerID string) error {
	return s.locks.WithLock(containerID, func() error {
		if err := s.repo.Delete(ctx, containerID); err != nil {
			return err
		}
		s.cache.Remove(containerID)
		return nil
	})
}

func (s *service) Invalidate(containerID string) {
	s.cache.Remove(containerID)
}

// loadStorage returns the cached storage for the container, loading it
// from the repository on a miss. Callers must hold the container lock.
func (s *service) loadStorage(ctx context.Context, containerID string) (*storage.Storage, error) {
	if st, ok := s.cache.Get(containerID); ok {
		metrics.ContainerCacheHits.Inc()
		return st, nil
	}
	metrics.ContainerCacheMisses.Inc()

	_, contents, err := s.repo.Get(ctx, containerID)
	if err != nil {
		logger.FromContext(ctx).Error(ErrMsgContainerLoadFailed, "container_id", containerID, "error", err)
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToLoad, err)
	}

	st := storage.New(0, s.storageOptions()...)
	if err := st.Load(contents, s.codec); err != nil {
		return nil, fmt.Errorf("%s: %w", ErrMsgFailedToLoad, err)
	}
	s.cache.Add(containerID, st)
	return st, nil
}

// persist writes the storage back to the repository. On failure the
// cache entry is dropped so the next load starts from durable state.
func (s *service) persist(ctx context.Context, containerID string, st *storage.Storage) error {
	contents, err := serialize(st, s.codec)
	if err != nil {
		return fmt.Errorf("%s: %w", ErrMsgFailedToSerialize, err)
	}
	if err := s.repo.Save(ctx, containerID, contents); err != nil {
		s.cache.Remove(containerID)
		return fmt.Errorf("%s: %w", ErrMsgFailedToPersist, err)
	}
	return nil
}

func (s *service) publish(ctx context.Context, evt event.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, evt); err != nil {
		logger.FromContext(ctx).Error(ErrMsgFailedToPublish, "type", evt.Type, "error", err)
	}
}

func (s *service) startTimer(op string) func() {
	start := time.Now()
	return func() {
		metrics.ServiceDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func serialize(st *storage.Storage, codec storage.RecordCodec) (*tag.Compound, error) {
	c := tag.NewCompound()
	if err := st.Save(c, codec); err != nil {
		return nil, err
	}
	return c, nil
}
