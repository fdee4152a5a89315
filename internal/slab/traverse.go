package slab

import (
	"iter"

	"bookwatch/internal/domain"
)

// Orders walks the tree and yields one Order per live leaf, prices
// descending for bids and ascending for asks. The sequence is lazy, finite
// and restartable: it is a pure function of the decoded side, so iterating
// twice yields the same orders.
//
// The walk is an explicit-stack depth-first traversal. At an inner node the
// children are pushed so that the side's preferred child pops first; since
// the program keeps Children[0] as the lesser-keyed subtree, no sorting is
// needed. Equal prices fall back to the key's sequence component, which the
// traversal preserves as-is.
//
// A structurally broken slab (child index out of range, a reachable free or
// uninitialized slot, or a cycle) terminates the sequence with a
// CorruptTreeError instead of misbehaving.
func (s *BookSide) Orders() iter.Seq2[domain.Order, error] {
	return func(yield func(domain.Order, error) bool) {
		if s.LeafCount == 0 {
			return
		}

		// BumpIndex comes straight off the wire; the visit bound must not
		// trust it beyond the node array size, or a forged huge value would
		// let a cycle run away.
		visitLimit := s.BumpIndex
		if visitLimit > Capacity {
			visitLimit = Capacity
		}

		stack := make([]uint32, 0, 64)
		stack = append(stack, s.RootNode)
		visited := uint64(0)

		for len(stack) > 0 {
			index := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			if uint64(index) >= s.BumpIndex || index >= uint32(len(s.Nodes)) {
				yield(domain.Order{}, &domain.CorruptTreeError{Index: index, Reason: "child index out of range"})
				return
			}

			// A well-formed tree has at most visitLimit reachable nodes, each
			// visited once; exceeding that means the walk is looping.
			visited++
			if visited > visitLimit {
				yield(domain.Order{}, &domain.CorruptTreeError{Index: index, Reason: "cycle detected"})
				return
			}

			node := &s.Nodes[index]
			switch node.Tag {
			case NodeTagInner:
				if s.Side == domain.SideBids {
					stack = append(stack, node.Inner.Children[0], node.Inner.Children[1])
				} else {
					stack = append(stack, node.Inner.Children[1], node.Inner.Children[0])
				}

			case NodeTagLeaf:
				if !yield(s.leafOrder(&node.Leaf), nil) {
					return
				}

			default:
				yield(domain.Order{}, &domain.CorruptTreeError{Index: index, Reason: "reachable " + node.Tag.String() + " node"})
				return
			}
		}
	}
}

// AllOrders collects the full traversal into a slice.
func (s *BookSide) AllOrders() ([]domain.Order, error) {
	orders := make([]domain.Order, 0, s.LeafCount)
	for order, err := range s.Orders() {
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func (s *BookSide) leafOrder(leaf *LeafNode) domain.Order {
	orderType := domain.OrderType(leaf.OrderType)
	switch orderType {
	case domain.OrderTypeLimit, domain.OrderTypeIOC, domain.OrderTypePostOnly:
	default:
		orderType = domain.OrderTypeUnknown
	}

	return domain.Order{
		ID:            leaf.Key,
		ClientOrderID: leaf.ClientOrderID,
		Owner:         leaf.Owner,
		Side:          s.Side,
		Price:         s.scaling.UIPrice(leaf.Price()),
		Quantity:      s.scaling.UIQuantity(leaf.Quantity),
		Type:          orderType,
	}
}
