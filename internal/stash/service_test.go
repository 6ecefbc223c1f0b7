package stash

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/stockpile/internal/domain"
	"github.com/osse101/stockpile/internal/event"
	"github.com/osse101/stockpile/internal/item"
	"github.com/osse101/stockpile/internal/metrics"
	"github.com/osse101/stockpile/internal/repository"
	"github.com/osse101/stockpile/internal/storage"
	"github.com/osse101/stockpile/internal/tag"
)

type fakeRow struct {
	name      string
	slotCount int
	data      []byte
	created   time.Time
	updated   time.Time
}

// fakeRepository keeps containers in memory, storing the encoded bytes
// so loads always round-trip through the codec like the real store.
type fakeRepository struct {
	mu       sync.Mutex
	seq      int
	rows     map[string]*fakeRow
	failSave bool
	saves    int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{rows: make(map[string]*fakeRow)}
}

func (f *fakeRepository) Create(_ context.Context, name string, slotCount int, contents *tag.Compound) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := tag.Encode(contents)
	if err != nil {
		return "", err
	}
	f.seq++
	id := fmt.Sprintf("container-%d", f.seq)
	now := time.Now()
	f.rows[id] = &fakeRow{name: name, slotCount: slotCount, data: data, created: now, updated: now}
	return id, nil
}

func (f *fakeRepository) Get(_ context.Context, id string) (*repository.ContainerRecord, *tag.Compound, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	row, ok := f.rows[id]
	if !ok {
		return nil, nil, domain.ErrContainerNotFound
	}
	contents, err := tag.Decode(row.data)
	if err != nil {
		return nil, nil, err
	}
	rec := &repository.ContainerRecord{
		ID:        id,
		Name:      row.name,
		SlotCount: row.slotCount,
		CreatedAt: row.created,
		UpdatedAt: row.updated,
	}
	return rec, contents, nil
}

func (f *fakeRepository) Save(_ context.Context, id string, contents *tag.Compound) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failSave {
		return errors.New("save failed")
	}
	row, ok := f.rows[id]
	if !ok {
		return domain.ErrContainerNotFound
	}
	data, err := tag.Encode(contents)
	if err != nil {
		return err
	}
	row.data = data
	row.updated = time.Now()
	f.saves++
	return nil
}

func (f *fakeRepository) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.rows[id]; !ok {
		return domain.ErrContainerNotFound
	}
	delete(f.rows, id)
	return nil
}

func (f *fakeRepository) List(_ context.Context) ([]repository.ContainerRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	records := make([]repository.ContainerRecord, 0, len(f.rows))
	for id, row := range f.rows {
		records = append(records, repository.ContainerRecord{
			ID:        id,
			Name:      row.name,
			SlotCount: row.slotCount,
			CreatedAt: row.created,
			UpdatedAt: row.updated,
		})
	}
	return records, nil
}

type denyInsert struct {
	storage.Permissive
}

func (denyInsert) CanInsert(int, domain.Item) bool { return false }

func newTestService(t *testing.T, opts ...Option) (Service, *fakeRepository) {
	t.Helper()
	repo := newFakeRepository()
	return NewService(repo, item.Codec{}, event.NewMemoryBus(), opts...), repo
}

func TestCreateContainer(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	id, err := svc.CreateContainer(ctx, "vault", 4)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, "vault", repo.rows[id].name)
	assert.Equal(t, 4, repo.rows[id].slotCount)

	snap, err := svc.Snapshot(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Size())
	for _, it := range snap.Items() {
		assert.True(t, it.IsAir())
	}

	_, err = svc.CreateContainer(ctx, "bad", -1)
	assert.ErrorIs(t, err, domain.ErrInvalidSlotCount)
}

func TestDepositAndWithdraw(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	id, err := svc.CreateContainer(ctx, "chest", 3)
	require.NoError(t, err)

	// 100 units over three 64-capacity slots: 64 + 36.
	remainder, err := svc.Deposit(ctx, id, nil, 0, 3, domain.Item{TypeID: 1, Quantity: 100, MaxStack: 64})
	require.NoError(t, err)
	assert.True(t, remainder.IsAir())

	snap, err := svc.Snapshot(ctx, id)
	require.NoError(t, err)
	first, err := snap.At(0)
	require.NoError(t, err)
	second, err := snap.At(1)
	require.NoError(t, err)
	assert.Equal(t, 64, first.Quantity)
	assert.Equal(t, 36, second.Quantity)

	taken, err := svc.Withdraw(ctx, id, nil, 0, storage.RemoveAll)
	require.NoError(t, err)
	assert.Equal(t, 64, taken.Quantity)
	assert.Equal(t, 1, taken.TypeID)

	snap, err = svc.Snapshot(ctx, id)
	require.NoError(t, err)
	first, err = snap.At(0)
	require.NoError(t, err)
	assert.True(t, first.IsAir())
}

func TestDepositOverflowReturnsRemainder(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	id, err := svc.CreateContainer(ctx, "small", 1)
	require.NoError(t, err)

	remainder, err := svc.Deposit(ctx, id, nil, 0, 1, domain.Item{TypeID: 2, Quantity: 80, MaxStack: 64})
	require.NoError(t, err)
	assert.Equal(t, 16, remainder.Quantity)
	assert.Equal(t, 2, remainder.TypeID)
}

func TestDepositRefusedByPolicy(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, WithPolicy(denyInsert{}))

	id, err := svc.CreateContainer(ctx, "sealed", 2)
	require.NoError(t, err)

	operand := domain.Item{TypeID: 3, Quantity: 10, MaxStack: 64}
	remainder, err := svc.Deposit(ctx, id, nil, 0, 2, operand)
	assert.ErrorIs(t, err, domain.ErrStorageRefused)
	assert.Equal(t, operand.Quantity, remainder.Quantity)

	snap, err := svc.Snapshot(ctx, id)
	require.NoError(t, err)
	for _, it := range snap.Items() {
		assert.True(t, it.IsAir())
	}
}

func TestExchange(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	id, err := svc.CreateContainer(ctx, "swap", 1)
	require.NoError(t, err)

	displaced, err := svc.Exchange(ctx, id, nil, 0, domain.Item{TypeID: 5, Quantity: 8, MaxStack: 16})
	require.NoError(t, err)
	assert.True(t, displaced.IsAir())

	displaced, err = svc.Exchange(ctx, id, nil, 0, domain.Item{TypeID: 6, Quantity: 3, MaxStack: 16})
	require.NoError(t, err)
	assert.Equal(t, 5, displaced.TypeID)
	assert.Equal(t, 8, displaced.Quantity)
}

func TestMove(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	id, err := svc.CreateContainer(ctx, "shelf", 3)
	require.NoError(t, err)

	_, err = svc.Deposit(ctx, id, nil, 0, 1, domain.Item{TypeID: 7, Quantity: 40, MaxStack: 64})
	require.NoError(t, err)

	moved, err := svc.Move(ctx, id, nil, 0, 2, 15)
	require.NoError(t, err)
	assert.Equal(t, 15, moved)

	snap, err := svc.Snapshot(ctx, id)
	require.NoError(t, err)
	source, err := snap.At(0)
	require.NoError(t, err)
	dest, err := snap.At(2)
	require.NoError(t, err)
	assert.Equal(t, 25, source.Quantity)
	assert.Equal(t, 15, dest.Quantity)

	_, err = svc.Move(ctx, id, nil, 1, 1, 5)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestMovePutsOverflowBack(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	id, err := svc.CreateContainer(ctx, "shelf", 2)
	require.NoError(t, err)

	_, err = svc.Deposit(ctx, id, nil, 0, 1, domain.Item{TypeID: 7, Quantity: 60, MaxStack: 64})
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, id, nil, 1, 1, domain.Item{TypeID: 7, Quantity: 50, MaxStack: 64})
	require.NoError(t, err)

	// Destination only has room for 14; the rest returns to the source.
	moved, err := svc.Move(ctx, id, nil, 0, 1, 60)
	require.NoError(t, err)
	assert.Equal(t, 14, moved)

	snap, err := svc.Snapshot(ctx, id)
	require.NoError(t, err)
	source, err := snap.At(0)
	require.NoError(t, err)
	dest, err := snap.At(1)
	require.NoError(t, err)
	assert.Equal(t, 46, source.Quantity)
	assert.Equal(t, 64, dest.Quantity)
}

func TestConsume(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	id, err := svc.CreateContainer(ctx, "pantry", 1)
	require.NoError(t, err)

	_, err = svc.Deposit(ctx, id, nil, 0, 1, domain.Item{TypeID: 9, Quantity: 10, MaxStack: 64})
	require.NoError(t, err)

	require.NoError(t, svc.Consume(ctx, id, nil, 0, -4))

	snap, err := svc.Snapshot(ctx, id)
	require.NoError(t, err)
	slot, err := snap.At(0)
	require.NoError(t, err)
	assert.Equal(t, 6, slot.Quantity)

	// Overdraw refuses and leaves the slot alone.
	err = svc.Consume(ctx, id, nil, 0, -100)
	assert.ErrorIs(t, err, domain.ErrStorageRefused)

	snap, err = svc.Snapshot(ctx, id)
	require.NoError(t, err)
	slot, err = snap.At(0)
	require.NoError(t, err)
	assert.Equal(t, 6, slot.Quantity)
}

func TestContainerNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	_, err := svc.Snapshot(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrContainerNotFound)

	_, err = svc.Withdraw(ctx, "missing", nil, 0, 1)
	assert.ErrorIs(t, err, domain.ErrContainerNotFound)
}

func TestSlotOutOfRangeSurfaces(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	id, err := svc.CreateContainer(ctx, "tiny", 1)
	require.NoError(t, err)

	_, err = svc.Withdraw(ctx, id, nil, 5, 1)
	assert.ErrorIs(t, err, domain.ErrSlotOutOfRange)

	_, err = svc.Exchange(ctx, id, nil, -1, domain.Item{TypeID: 1, Quantity: 1, MaxStack: 4})
	assert.ErrorIs(t, err, domain.ErrSlotOutOfRange)
}

func TestSaveFailureDropsCacheEntry(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	svc := NewService(repo, item.Codec{}, event.NewMemoryBus())

	id, err := svc.CreateContainer(ctx, "flaky", 2)
	require.NoError(t, err)

	_, err = svc.Deposit(ctx, id, nil, 0, 2, domain.Item{TypeID: 1, Quantity: 20, MaxStack: 64})
	require.NoError(t, err)

	repo.failSave = true
	_, err = svc.Deposit(ctx, id, nil, 0, 2, domain.Item{TypeID: 1, Quantity: 20, MaxStack: 64})
	require.Error(t, err)

	// The failed write was discarded; the next load reflects durable
	// state only.
	repo.failSave = false
	snap, err := svc.Snapshot(ctx, id)
	require.NoError(t, err)
	slot, err := snap.At(0)
	require.NoError(t, err)
	assert.Equal(t, 20, slot.Quantity)
}

func TestEventsPublished(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()
	bus := event.NewMemoryBus()
	svc := NewService(repo, item.Codec{}, bus)

	var mu sync.Mutex
	var types []event.Type
	record := func(_ context.Context, evt event.Event) error {
		mu.Lock()
		defer mu.Unlock()
		types = append(types, evt.Type)
		return nil
	}
	bus.Subscribe(event.ContainerCreated, record)
	bus.Subscribe(event.DepositCompleted, record)
	bus.Subscribe(event.WithdrawCompleted, record)

	id, err := svc.CreateContainer(ctx, "noisy", 1)
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, id, nil, 0, 1, domain.Item{TypeID: 1, Quantity: 5, MaxStack: 64})
	require.NoError(t, err)
	_, err = svc.Withdraw(ctx, id, nil, 0, storage.RemoveAll)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []event.Type{event.ContainerCreated, event.DepositCompleted, event.WithdrawCompleted}, types)
}

func TestEngineMetricsRecorded(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	id, err := svc.CreateContainer(ctx, "metered", 2)
	require.NoError(t, err)

	movedIn := testutil.ToFloat64(metrics.QuantityMoved.WithLabelValues(metrics.DirectionIn))
	movedOut := testutil.ToFloat64(metrics.QuantityMoved.WithLabelValues(metrics.DirectionOut))
	inserts := testutil.ToFloat64(metrics.EngineOperations.WithLabelValues(engineOpInsertRange, metrics.OutcomeAccepted))
	removes := testutil.ToFloat64(metrics.EngineOperations.WithLabelValues(engineOpRemove, metrics.OutcomeAccepted))

	_, err = svc.Deposit(ctx, id, nil, 0, 2, domain.Item{TypeID: 1, Quantity: 25, MaxStack: 64})
	require.NoError(t, err)
	_, err = svc.Withdraw(ctx, id, nil, 0, 10)
	require.NoError(t, err)

	assert.InDelta(t, 25,
		testutil.ToFloat64(metrics.QuantityMoved.WithLabelValues(metrics.DirectionIn))-movedIn, 0.001)
	assert.InDelta(t, 10,
		testutil.ToFloat64(metrics.QuantityMoved.WithLabelValues(metrics.DirectionOut))-movedOut, 0.001)
	assert.InDelta(t, 1,
		testutil.ToFloat64(metrics.EngineOperations.WithLabelValues(engineOpInsertRange, metrics.OutcomeAccepted))-inserts, 0.001)
	assert.InDelta(t, 1,
		testutil.ToFloat64(metrics.EngineOperations.WithLabelValues(engineOpRemove, metrics.OutcomeAccepted))-removes, 0.001)
}

func TestRefusedEngineCallsCounted(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, WithPolicy(denyInsert{}))

	id, err := svc.CreateContainer(ctx, "sealed", 1)
	require.NoError(t, err)

	movedIn := testutil.ToFloat64(metrics.QuantityMoved.WithLabelValues(metrics.DirectionIn))
	refused := testutil.ToFloat64(metrics.EngineOperations.WithLabelValues(engineOpInsertRange, metrics.OutcomeRefused))

	_, err = svc.Deposit(ctx, id, nil, 0, 1, domain.Item{TypeID: 1, Quantity: 5, MaxStack: 64})
	require.ErrorIs(t, err, domain.ErrStorageRefused)

	// Refusals count as an outcome but move no quantity.
	assert.InDelta(t, 1,
		testutil.ToFloat64(metrics.EngineOperations.WithLabelValues(engineOpInsertRange, metrics.OutcomeRefused))-refused, 0.001)
	assert.InDelta(t, 0,
		testutil.ToFloat64(metrics.QuantityMoved.WithLabelValues(metrics.DirectionIn))-movedIn, 0.001)
}

func TestStorageObserversStillChain(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepository()

	var mu sync.Mutex
	var observed []int
	events := storage.Events{
		BeforeInsert: func(_ int, incoming domain.Item) {
			mu.Lock()
			defer mu.Unlock()
			observed = append(observed, incoming.Quantity)
		},
	}
	svc := NewService(repo, item.Codec{}, event.NewMemoryBus(), WithStorageEvents(events))

	id, err := svc.CreateContainer(ctx, "watched", 1)
	require.NoError(t, err)
	_, err = svc.Deposit(ctx, id, nil, 0, 1, domain.Item{TypeID: 1, Quantity: 7, MaxStack: 64})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{7}, observed)
}

func TestDeleteContainer(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestService(t)

	id, err := svc.CreateContainer(ctx, "doomed", 1)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteContainer(ctx, id))
	assert.Empty(t, repo.rows)

	_, err = svc.Snapshot(ctx, id)
	assert.ErrorIs(t, err, domain.ErrContainerNotFound)
}
