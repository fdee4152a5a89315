package slab

import (
	"encoding/binary"
	"fmt"

	"bookwatch/internal/domain"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// BookSide is one decoded half of the order book. It owns all nodes by value
// in a fixed array; indices into Nodes must be below BumpIndex. RootNode is
// only meaningful when LeafCount > 0.
type BookSide struct {
	Side         domain.Side
	Version      uint8
	BumpIndex    uint64
	FreeListLen  uint64
	FreeListHead uint32
	RootNode     uint32
	LeafCount    uint64
	Nodes        []Node

	scaling domain.MarketScaling
}

// ParseBookSide decodes a raw book side account. The buffer length must be
// exactly SlabSize; on mismatch a DecodeSizeError is returned and no partial
// value is produced. Beyond the size check the wire bytes are taken as-is;
// structural problems surface during traversal as CorruptTreeError.
func ParseBookSide(data []byte, scaling domain.MarketScaling) (*BookSide, error) {
	if len(data) != SlabSize {
		return nil, &domain.DecodeSizeError{Actual: len(data), Expected: SlabSize}
	}

	dec := bin.NewBinDecoder(data)

	kind, err := dec.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read account kind: %w", err)
	}
	version, err := dec.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if err := dec.SkipBytes(6); err != nil {
		return nil, fmt.Errorf("skip header padding: %w", err)
	}

	s := &BookSide{
		Version: version,
		Nodes:   make([]Node, Capacity),
		scaling: scaling,
	}
	// Anything that is not the bids discriminant is read as asks; the two
	// book accounts of a market only ever carry these two kinds.
	if kind == accountKindBids {
		s.Side = domain.SideBids
	} else {
		s.Side = domain.SideAsks
	}

	if s.BumpIndex, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("read bump index: %w", err)
	}
	if s.FreeListLen, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("read free list length: %w", err)
	}
	if s.FreeListHead, err = dec.ReadUint32(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("read free list head: %w", err)
	}
	if s.RootNode, err = dec.ReadUint32(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("read root node: %w", err)
	}
	if s.LeafCount, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("read leaf count: %w", err)
	}

	for i := 0; i < Capacity; i++ {
		if err := decodeNode(dec, &s.Nodes[i]); err != nil {
			return nil, fmt.Errorf("decode node %d: %w", i, err)
		}
	}

	return s, nil
}

// decodeNode reads one NodeSize slot. The body after the variant payload is
// padding and is always consumed so every node starts at a fixed offset.
func decodeNode(dec *bin.Decoder, n *Node) error {
	tag, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return err
	}
	n.Tag = NodeTag(tag)

	const bodySize = NodeSize - 4

	switch n.Tag {
	case NodeTagInner:
		if n.Inner.Children[0], err = dec.ReadUint32(binary.LittleEndian); err != nil {
			return err
		}
		if n.Inner.Children[1], err = dec.ReadUint32(binary.LittleEndian); err != nil {
			return err
		}
		return dec.SkipBytes(bodySize - 8)

	case NodeTagLeaf:
		if n.Leaf.OrderType, err = dec.ReadByte(); err != nil {
			return err
		}
		if err = dec.SkipBytes(3); err != nil {
			return err
		}
		if n.Leaf.Key, err = dec.ReadUint128(binary.LittleEndian); err != nil {
			return err
		}
		ownerBytes, err := dec.ReadNBytes(32)
		if err != nil {
			return err
		}
		n.Leaf.Owner = solana.PublicKeyFromBytes(ownerBytes)
		if n.Leaf.Quantity, err = dec.ReadUint64(binary.LittleEndian); err != nil {
			return err
		}
		if n.Leaf.ClientOrderID, err = dec.ReadUint64(binary.LittleEndian); err != nil {
			return err
		}
		return dec.SkipBytes(bodySize - 4 - 16 - 32 - 8 - 8)

	case NodeTagFree, NodeTagLastFree:
		if n.Free.Next, err = dec.ReadUint32(binary.LittleEndian); err != nil {
			return err
		}
		return dec.SkipBytes(bodySize - 4)

	default:
		// Uninitialized and unknown tags carry no payload. Unknown tags are
		// not rejected here; they only matter if the tree reaches them.
		return dec.SkipBytes(bodySize)
	}
}

// Scaling returns the market scaling this side was decoded with.
func (s *BookSide) Scaling() domain.MarketScaling {
	return s.scaling
}
