package slab

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// NodeTag is the leading discriminant of every node slot.
type NodeTag uint32

const (
	NodeTagUninitialized NodeTag = iota // Slot never allocated
	NodeTagInner                        // Branch with two children
	NodeTagLeaf                         // One resting order
	NodeTagFree                         // Recycled slot on the free list
	NodeTagLastFree                     // Free list terminator
)

func (t NodeTag) String() string {
	switch t {
	case NodeTagUninitialized:
		return "uninitialized"
	case NodeTagInner:
		return "inner"
	case NodeTagLeaf:
		return "leaf"
	case NodeTagFree:
		return "free"
	case NodeTagLastFree:
		return "lastFree"
	default:
		return "unknown"
	}
}

// InnerNode branches to two subtrees. The program keeps Children[0] as the
// lesser-keyed subtree.
type InnerNode struct {
	Children [2]uint32
}

// LeafNode is one resting order. Key packs the native price into the high
// 64 bits and an allocation sequence number into the low 64 bits; the full
// 128-bit key doubles as the order id.
type LeafNode struct {
	OrderType     uint8
	Key           bin.Uint128
	Owner         solana.PublicKey
	Quantity      uint64
	ClientOrderID uint64
}

// Price returns the native price component of the key.
func (l *LeafNode) Price() uint64 {
	return l.Key.Hi
}

// SeqNum returns the secondary ordering component of the key.
func (l *LeafNode) SeqNum() uint64 {
	return l.Key.Lo
}

// FreeNode chains recycled slots. Never reachable from the root.
type FreeNode struct {
	Next uint32
}

// Node is one slot of the node array: a closed tagged union. Exactly one of
// the variant fields is meaningful, selected by Tag (Free covers both
// NodeTagFree and NodeTagLastFree).
type Node struct {
	Tag   NodeTag
	Inner InnerNode
	Leaf  LeafNode
	Free  FreeNode
}
