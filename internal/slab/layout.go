// Package slab decodes the venue's on-ledger order book side accounts.
//
// A book side is a fixed-size "slab": a small header plus a fixed-capacity
// array of tagged nodes forming a balanced binary tree. Node order in the
// array is arbitrary; price order only exists through the tree structure.
package slab

// Binary layout of a book side account. All integers are little-endian.
//
//	offset  0: account kind (u8), version (u8), 6 bytes padding
//	offset  8: bump_index (u64)
//	offset 16: free_list_len (u64)
//	offset 24: free_list_head (u32)
//	offset 28: root_node (u32)
//	offset 32: leaf_count (u64)
//	offset 40: nodes, Capacity entries of NodeSize bytes each
const (
	HeaderSize = 40

	// Capacity is the node array size fixed by the on-chain program.
	Capacity = 1024

	// NodeSize is tag (u32) plus an 84-byte body shared by all variants.
	NodeSize = 88

	// SlabSize is the exact account data length; anything else is a
	// decode failure.
	SlabSize = HeaderSize + Capacity*NodeSize
)

// Account kind discriminants as written by the on-chain program.
const (
	accountKindBids uint8 = 5
	accountKindAsks uint8 = 6
)
