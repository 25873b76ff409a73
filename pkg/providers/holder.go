package providers

import "sync/atomic"

// Holder publishes the current Upstream to concurrent readers.
//
// Credential rotation builds a new Upstream and swaps it in; turns that
// already called Current keep the value they got.
type Holder struct {
	current atomic.Pointer[holderEntry]
}

type holderEntry struct {
	upstream Upstream
}

// NewHolder creates a holder publishing upstream.
func NewHolder(upstream Upstream) *Holder {
	h := &Holder{}
	h.Swap(upstream)
	return h
}

// Current returns the published Upstream.
func (h *Holder) Current() Upstream {
	entry := h.current.Load()
	if entry == nil {
		return nil
	}
	return entry.upstream
}

// Swap publishes upstream and returns the previous value, which the caller
// should Close once in-flight turns no longer need its connection pool.
func (h *Holder) Swap(upstream Upstream) Upstream {
	prev := h.current.Swap(&holderEntry{upstream: upstream})
	if prev == nil {
		return nil
	}
	return prev.upstream
}
