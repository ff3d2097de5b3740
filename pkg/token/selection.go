package token

import "twap-adapter/pkg/types"

// Selection is the pair of tokens currently chosen for an order.
// Src and Dst never share an address.
type Selection struct {
	Src *types.TokenInfo
	Dst *types.TokenInfo
}

// SwitchTokens swaps source and destination
func SwitchTokens(src, dst *types.TokenInfo) (*types.TokenInfo, *types.TokenInfo) {
	return dst, src
}

// Select assigns t to one side. Picking the token already on the other side
// switches the pair instead of putting the same token on both sides.
func (s Selection) Select(isSrc bool, t types.TokenInfo) Selection {
	current, other := s.Src, s.Dst
	if !isSrc {
		current, other = s.Dst, s.Src
	}

	if other != nil && other.SameAddress(t) {
		src, dst := SwitchTokens(s.Src, s.Dst)
		return Selection{Src: src, Dst: dst}
	}
	if current != nil && current.SameAddress(t) {
		return s
	}

	picked := t
	if isSrc {
		return Selection{Src: &picked, Dst: s.Dst}
	}
	return Selection{Src: s.Src, Dst: &picked}
}

// Switch returns the selection with sides swapped
func (s Selection) Switch() Selection {
	src, dst := SwitchTokens(s.Src, s.Dst)
	return Selection{Src: src, Dst: dst}
}

// SelectionFromAddresses resolves the host dapp's selected addresses against
// the canonical list. Unknown addresses leave that side empty; when both
// addresses name the same token only the source keeps it.
func SelectionFromAddresses(list []types.TokenInfo, srcAddress, dstAddress string) Selection {
	var sel Selection
	if t, ok := FindToken(list, srcAddress); ok {
		sel.Src = &t
	}
	if t, ok := FindToken(list, dstAddress); ok {
		if sel.Src == nil || !sel.Src.SameAddress(t) {
			sel.Dst = &t
		}
	}
	return sel
}
