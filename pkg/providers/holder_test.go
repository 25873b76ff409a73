package providers

import (
	"context"
	"sync"
	"testing"
)

// namedUpstream is an Upstream that only carries an identity.
type namedUpstream struct {
	*HTTPProvider
}

func (namedUpstream) OpenStream(ctx context.Context, messages []Message) (DeltaStream, error) {
	return nil, nil
}

func TestHolder(t *testing.T) {
	var first Upstream = namedUpstream{NewHTTPProvider(ProviderConfig{Name: "first", APIKey: "a"})}
	var second Upstream = namedUpstream{NewHTTPProvider(ProviderConfig{Name: "second", APIKey: "b"})}

	holder := NewHolder(first)
	if holder.Current() != first {
		t.Fatal("expected initial upstream")
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if holder.Current() == nil {
				t.Error("Current() returned nil during swap")
			}
		}()
	}

	prev := holder.Swap(second)
	wg.Wait()

	if prev != first {
		t.Error("Swap must return the previous upstream")
	}
	if holder.Current() != second {
		t.Error("expected swapped upstream")
	}

	var empty Holder
	if empty.Current() != nil {
		t.Error("zero Holder must return nil")
	}
}
