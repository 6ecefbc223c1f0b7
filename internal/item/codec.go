package item

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/osse101/stockpile/internal/domain"
	"github.com/osse101/stockpile/internal/tag"
)

// Codec implements both persistence surfaces the storage engine
// consumes: the compact binary item record and the tagged-value item
// record. One codec instance is stateless and safe to share.
//
// Binary layout per item, big endian:
//
//	int32 type id | int32 quantity | int32 max stack | uint8 len | quality bytes
//
// Air is written as all-zero fields so slot positions survive exactly.
type Codec struct{}

// NewCodec creates a new Codec.
func NewCodec() Codec {
	return Codec{}
}

// Encode writes one item record to w.
func (Codec) Encode(w io.Writer, it domain.Item) error {
	if it.IsAir() {
		it = domain.Air()
	}
	for _, field := range []int32{int32(it.TypeID), int32(it.Quantity), int32(it.MaxStack)} {
		if err := binary.Write(w, binary.BigEndian, field); err != nil {
			return fmt.Errorf("write item field: %w", err)
		}
	}
	quality := []byte(it.Quality)
	if len(quality) > MaxQualityLength {
		return fmt.Errorf("%w: quality %d bytes", domain.ErrMalformedRecord, len(quality))
	}
	if err := binary.Write(w, binary.BigEndian, uint8(len(quality))); err != nil {
		return fmt.Errorf("write quality length: %w", err)
	}
	if _, err := w.Write(quality); err != nil {
		return fmt.Errorf("write quality: %w", err)
	}
	return nil
}

// Decode reads one item record from r.
func (Codec) Decode(r io.Reader) (domain.Item, error) {
	var fields [3]int32
	for i := range fields {
		if err := binary.Read(r, binary.BigEndian, &fields[i]); err != nil {
			return domain.Air(), fmt.Errorf("read item field: %w", err)
		}
	}
	var qualityLen uint8
	if err := binary.Read(r, binary.BigEndian, &qualityLen); err != nil {
		return domain.Air(), fmt.Errorf("read quality length: %w", err)
	}
	quality := make([]byte, qualityLen)
	if _, err := io.ReadFull(r, quality); err != nil {
		return domain.Air(), fmt.Errorf("read quality: %w", err)
	}

	it := domain.Item{
		TypeID:   int(fields[0]),
		Quantity: int(fields[1]),
		MaxStack: int(fields[2]),
		Quality:  domain.QualityLevel(quality),
	}
	if it.IsAir() {
		return domain.Air(), nil
	}
	return it, nil
}

// EncodeRecord converts an item to its tagged-value record. Air becomes
// a well-formed empty record, never omitted.
func (Codec) EncodeRecord(it domain.Item) *tag.Compound {
	c := tag.NewCompound()
	if it.IsAir() {
		return c
	}
	c.SetInt(FieldID, it.TypeID)
	c.SetInt(FieldQuantity, it.Quantity)
	c.SetInt(FieldMaxStack, it.MaxStack)
	if it.Quality != "" {
		c.Set(FieldQuality, string(it.Quality))
	}
	return c
}

// DecodeRecord converts a tagged-value record back to an item. An empty
// record is air.
func (Codec) DecodeRecord(c *tag.Compound) (domain.Item, error) {
	if c == nil {
		return domain.Air(), fmt.Errorf("%w: nil record", domain.ErrMalformedRecord)
	}
	if c.Len() == 0 {
		return domain.Air(), nil
	}
	typeID, ok := c.Int(FieldID)
	if !ok {
		return domain.Air(), fmt.Errorf("%w: missing %q", domain.ErrMalformedRecord, FieldID)
	}
	quantity, ok := c.Int(FieldQuantity)
	if !ok {
		return domain.Air(), fmt.Errorf("%w: missing %q", domain.ErrMalformedRecord, FieldQuantity)
	}
	maxStack, _ := c.Int(FieldMaxStack)
	quality, _ := c.String(FieldQuality)

	it := domain.Item{
		TypeID:   typeID,
		Quantity: quantity,
		MaxStack: maxStack,
		Quality:  domain.QualityLevel(quality),
	}
	if it.IsAir() {
		return domain.Air(), nil
	}
	return it, nil
}
