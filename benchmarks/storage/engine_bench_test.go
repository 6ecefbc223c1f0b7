package storage_bench

import (
	"bytes"
	"context"
	"testing"

	"github.com/osse101/stockpile/internal/domain"
	"github.com/osse101/stockpile/internal/event"
	"github.com/osse101/stockpile/internal/item"
	"github.com/osse101/stockpile/internal/repository"
	"github.com/osse101/stockpile/internal/stash"
	"github.com/osse101/stockpile/internal/storage"
	"github.com/osse101/stockpile/internal/tag"
)

const benchSlots = 54

func seededStorage() *storage.Storage {
	items := make([]domain.Item, benchSlots)
	for i := range items {
		if i%3 == 0 {
			continue // leave every third slot empty
		}
		items[i] = domain.Item{TypeID: i % 5, Quantity: 32, MaxStack: 64}
	}
	return storage.NewFromItems(items)
}

func BenchmarkInsertRange(b *testing.B) {
	operand := domain.Item{TypeID: 1, Quantity: 64, MaxStack: 64}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		st := seededStorage()
		b.StartTimer()
		_, _, _ = st.InsertRange(nil, 0, benchSlots, operand)
	}
}

func BenchmarkSimulateFit(b *testing.B) {
	st := seededStorage()
	operand := domain.Item{TypeID: 1, Quantity: 10, MaxStack: 64}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = st.SimulateFit(i%benchSlots, operand)
	}
}

func BenchmarkRemoveInsertCycle(b *testing.B) {
	st := seededStorage()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		slot := (i*7 + 1) % benchSlots
		_, taken, _ := st.Remove(nil, slot, 8)
		if !taken.IsAir() {
			_, _, _ = st.Insert(nil, slot, taken)
		}
	}
}

func BenchmarkStructuredRoundTrip(b *testing.B) {
	st := seededStorage()
	codec := item.Codec{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c := tag.NewCompound()
		if err := st.Save(c, codec); err != nil {
			b.Fatal(err)
		}
		data, err := tag.Encode(c)
		if err != nil {
			b.Fatal(err)
		}
		decoded, err := tag.Decode(data)
		if err != nil {
			b.Fatal(err)
		}
		if err := st.Load(decoded, codec); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkBinaryRoundTrip(b *testing.B) {
	st := seededStorage()
	codec := item.Codec{}
	var buf bytes.Buffer

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf.Reset()
		if err := st.WriteTo(&buf, codec); err != nil {
			b.Fatal(err)
		}
		if err := st.ReadFrom(&buf, codec); err != nil {
			b.Fatal(err)
		}
	}
}

// --- Stubs (Zero-overhead mocks for benchmarking) ---

type StubRepository struct {
	data []byte
}

func (s *StubRepository) Create(_ context.Context, _ string, _ int, contents *tag.Compound) (string, error) {
	data, err := tag.Encode(contents)
	if err != nil {
		return "", err
	}
	s.data = data
	return "bench-container", nil
}

func (s *StubRepository) Get(_ context.Context, id string) (*repository.ContainerRecord, *tag.Compound, error) {
	contents, err := tag.Decode(s.data)
	if err != nil {
		return nil, nil, err
	}
	return &repository.ContainerRecord{ID: id, SlotCount: benchSlots}, contents, nil
}

func (s *StubRepository) Save(_ context.Context, _ string, contents *tag.Compound) error {
	data, err := tag.Encode(contents)
	if err != nil {
		return err
	}
	s.data = data
	return nil
}

func (s *StubRepository) Delete(context.Context, string) error { return nil }

func (s *StubRepository) List(context.Context) ([]repository.ContainerRecord, error) {
	return nil, nil
}

func BenchmarkServiceDeposit(b *testing.B) {
	ctx := context.Background()
	svc := stash.NewService(&StubRepository{}, item.Codec{}, event.NewMemoryBus())

	id, err := svc.CreateContainer(ctx, "bench", benchSlots)
	if err != nil {
		b.Fatal(err)
	}

	operand := domain.Item{TypeID: 1, Quantity: 1, MaxStack: 64}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := svc.Deposit(ctx, id, nil, 0, benchSlots, operand); err != nil {
			b.Fatal(err)
		}
		if _, err := svc.Withdraw(ctx, id, nil, 0, 1); err != nil {
			b.Fatal(err)
		}
	}
}
