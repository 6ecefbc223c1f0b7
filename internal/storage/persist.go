package storage

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/osse101/stockpile/internal/domain"
	"github.com/osse101/stockpile/internal/tag"
)

// BinaryCodec is the compact per-item wire codec supplied by the item
// catalog. It must carry full per-item fidelity (quantity, kind,
// metadata) sufficient for exact reconstruction, including air.
type BinaryCodec interface {
	Encode(w io.Writer, it domain.Item) error
	Decode(r io.Reader) (domain.Item, error)
}

// RecordCodec converts items to and from tagged-value records for the
// structured persistence form. Air must map to a well-formed empty
// record, not be omitted.
type RecordCodec interface {
	EncodeRecord(it domain.Item) *tag.Compound
	DecodeRecord(c *tag.Compound) (domain.Item, error)
}

// Save writes the slot sequence as an ordered list under the "Items"
// field, one record per slot. Capacity and policy hooks are code, not
// data: the owner reconstructs them.
func (s *Storage) Save(c *tag.Compound, codec RecordCodec) error {
	if codec == nil {
		return domain.ErrNilCodec
	}
	list := make(tag.List, 0, len(s.items))
	for _, it := range s.items {
		list = append(list, codec.EncodeRecord(it))
	}
	c.SetList(ItemsFieldName, list)
	return nil
}

// Load rebuilds the slot sequence from the "Items" field, fully
// replacing prior contents with a storage of exactly the persisted
// length. Policy, events and predicate are retained.
func (s *Storage) Load(c *tag.Compound, codec RecordCodec) error {
	if codec == nil {
		return domain.ErrNilCodec
	}
	list, ok := c.ListField(ItemsFieldName)
	if !ok {
		return fmt.Errorf("%w: missing %q field", domain.ErrMalformedRecord, ItemsFieldName)
	}
	items := make([]domain.Item, 0, len(list))
	for i, entry := range list {
		rec, ok := entry.(*tag.Compound)
		if !ok {
			return fmt.Errorf("%w: slot %d is not a record", domain.ErrMalformedRecord, i)
		}
		it, err := codec.DecodeRecord(rec)
		if err != nil {
			return fmt.Errorf("decode slot %d: %w", i, err)
		}
		items = append(items, sanitize(it))
	}
	s.items = items
	return nil
}

// WriteTo writes the binary form: count as a fixed-width int32 followed
// by count item records. No versioning or checksum is added here; that
// is the owning subsystem's responsibility.
func (s *Storage) WriteTo(w io.Writer, codec BinaryCodec) error {
	if codec == nil {
		return domain.ErrNilCodec
	}
	if err := binary.Write(w, binary.BigEndian, int32(len(s.items))); err != nil {
		return fmt.Errorf("write slot count: %w", err)
	}
	for i, it := range s.items {
		if err := codec.Encode(w, it); err != nil {
			return fmt.Errorf("encode slot %d: %w", i, err)
		}
	}
	return nil
}

// ReadFrom rebuilds the slot sequence from the binary form, fully
// replacing prior contents.
func (s *Storage) ReadFrom(r io.Reader, codec BinaryCodec) error {
	if codec == nil {
		return domain.ErrNilCodec
	}
	var count int32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return fmt.Errorf("read slot count: %w", err)
	}
	if count < 0 {
		return fmt.Errorf("%w: negative slot count %d", domain.ErrMalformedRecord, count)
	}
	items := make([]domain.Item, 0, count)
	for i := int32(0); i < count; i++ {
		it, err := codec.Decode(r)
		if err != nil {
			return fmt.Errorf("decode slot %d: %w", i, err)
		}
		items = append(items, sanitize(it))
	}
	s.items = items
	return nil
}
