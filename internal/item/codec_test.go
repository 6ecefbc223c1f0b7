package item

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osse101/stockpile/internal/domain"
)

// TestBinaryCodec verifies full-fidelity reconstruction including air
func TestBinaryCodec(t *testing.T) {
	codec := NewCodec()

	t.Run("item survives with metadata", func(t *testing.T) {
		original := domain.Item{TypeID: 42, Quantity: 7, MaxStack: 64, Quality: domain.QualityEpic}
		var buf bytes.Buffer
		require.NoError(t, codec.Encode(&buf, original))

		got, err := codec.Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, original, got)
	})

	t.Run("air round-trips as canonical air", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, codec.Encode(&buf, domain.Air()))

		got, err := codec.Decode(&buf)
		require.NoError(t, err)
		assert.Equal(t, domain.Air(), got)
	})

	t.Run("malformed item encodes as air", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, codec.Encode(&buf, domain.Item{TypeID: 9, Quantity: -3, MaxStack: 64}))

		got, err := codec.Decode(&buf)
		require.NoError(t, err)
		assert.True(t, got.IsAir())
	})

	t.Run("truncated stream fails", func(t *testing.T) {
		original := domain.Item{TypeID: 42, Quantity: 7, MaxStack: 64, Quality: domain.QualityEpic}
		var buf bytes.Buffer
		require.NoError(t, codec.Encode(&buf, original))

		truncated := buf.Bytes()[:buf.Len()-3]
		_, err := codec.Decode(bytes.NewReader(truncated))
		assert.Error(t, err)
	})
}

// TestRecordCodec verifies the tagged-value item form
func TestRecordCodec(t *testing.T) {
	codec := NewCodec()

	t.Run("item record carries all fields", func(t *testing.T) {
		original := domain.Item{TypeID: 3, Quantity: 20, MaxStack: 50, Quality: domain.QualityRare}
		rec := codec.EncodeRecord(original)

		got, err := codec.DecodeRecord(rec)
		require.NoError(t, err)
		assert.Equal(t, original, got)
	})

	t.Run("air is a well-formed empty record", func(t *testing.T) {
		rec := codec.EncodeRecord(domain.Air())
		require.NotNil(t, rec)
		assert.Equal(t, 0, rec.Len())

		got, err := codec.DecodeRecord(rec)
		require.NoError(t, err)
		assert.Equal(t, domain.Air(), got)
	})

	t.Run("record missing quantity is malformed", func(t *testing.T) {
		rec := codec.EncodeRecord(domain.Item{TypeID: 3, Quantity: 20, MaxStack: 50})
		broken := codec.EncodeRecord(domain.Air())
		id, _ := rec.Int(FieldID)
		broken.SetInt(FieldID, id)

		_, err := codec.DecodeRecord(broken)
		assert.ErrorIs(t, err, domain.ErrMalformedRecord)
	})

	t.Run("nil record is malformed", func(t *testing.T) {
		_, err := codec.DecodeRecord(nil)
		assert.ErrorIs(t, err, domain.ErrMalformedRecord)
	})
}
