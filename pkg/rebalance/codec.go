package rebalance

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"
	"github.com/pierrec/lz4/v4"
)

// CodecID names the wire codec a DemandMessage/SupplyMessage pair agreed on
// for Entry.Value framing. The object-serialization format of the value
// itself remains out of scope (spec §1 Non-goals); this only governs the
// bytes-on-the-wire compression of the entry batch, the one piece of "wire
// framing" the spec leaves unaddressed that a real supplier/demander pair
// must still agree on.
type CodecID uint8

const (
	CodecNone CodecID = iota
	CodecSnappy
	CodecLZ4
	CodecDeflate
)

func (c CodecID) String() string {
	switch c {
	case CodecSnappy:
		return "snappy"
	case CodecLZ4:
		return "lz4"
	case CodecDeflate:
		return "deflate"
	default:
		return "none"
	}
}

// SupplyCodec compresses and decompresses the Value bytes of each Entry
// carried in a SupplyMessage; every entry's Value is decoded on its own. The
// Demander never inspects entry contents beyond this framing step; the
// decoded bytes are handed to Partition.InitialValue as-is.
type SupplyCodec interface {
	ID() CodecID
	Encode(plain []byte) ([]byte, error)
	Decode(coded []byte) ([]byte, error)
}

// NewSupplyCodec returns the codec implementation for id.
func NewSupplyCodec(id CodecID) (SupplyCodec, error) {
	switch id {
	case CodecNone:
		return noneCodec{}, nil
	case CodecSnappy:
		return snappyCodec{}, nil
	case CodecLZ4:
		return lz4Codec{}, nil
	case CodecDeflate:
		return deflateCodec{}, nil
	default:
		return nil, fmt.Errorf("rebalance: unknown supply codec %d", id)
	}
}

type noneCodec struct{}

func (noneCodec) ID() CodecID                     { return CodecNone }
func (noneCodec) Encode(p []byte) ([]byte, error) { return p, nil }
func (noneCodec) Decode(c []byte) ([]byte, error) { return c, nil }

type snappyCodec struct{}

func (snappyCodec) ID() CodecID { return CodecSnappy }

func (snappyCodec) Encode(plain []byte) ([]byte, error) {
	return snappy.Encode(nil, plain), nil
}

func (snappyCodec) Decode(coded []byte) ([]byte, error) {
	return snappy.Decode(nil, coded)
}

type lz4Codec struct{}

func (lz4Codec) ID() CodecID { return CodecLZ4 }

func (lz4Codec) Encode(plain []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(plain); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (lz4Codec) Decode(coded []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(coded))
	return io.ReadAll(r)
}

type deflateCodec struct{}

func (deflateCodec) ID() CodecID { return CodecDeflate }

func (deflateCodec) Encode(plain []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(plain); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (deflateCodec) Decode(coded []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(coded))
	defer r.Close()
	return io.ReadAll(r)
}
