package registry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	id     string
	closed atomic.Int32
	mu     sync.Mutex
	sent   [][]byte
}

func newFake(id string) *fakeChannel { return &fakeChannel{id: id} }

func (f *fakeChannel) ID() string { return f.id }

func (f *fakeChannel) Send(data []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, data)
	return true
}

func (f *fakeChannel) Close() { f.closed.Add(1) }

func TestRegisterReplacesAndClosesPrevious(t *testing.T) {
	r := New()
	c1, c2 := newFake("c1"), newFake("c2")

	r.Register("u", c1)
	r.Register("u", c2)

	got, ok := r.Lookup("u")
	require.True(t, ok)
	assert.Same(t, c2, got)
	assert.Equal(t, int32(1), c1.closed.Load())
	assert.Zero(t, c2.closed.Load())

	// stale disconnect of c1 must not evict c2
	assert.False(t, r.Unregister("u", c1))
	got, ok = r.Lookup("u")
	require.True(t, ok)
	assert.Same(t, c2, got)

	assert.True(t, r.Unregister("u", c2))
	_, ok = r.Lookup("u")
	assert.False(t, ok)
}

func TestRegisterSameChannelTwice(t *testing.T) {
	r := New()
	c := newFake("c")
	r.Register("u", c)
	r.Register("u", c)
	assert.Zero(t, c.closed.Load())
	assert.Equal(t, 1, r.Len())
}

func TestUnregisterUnknownIsNoop(t *testing.T) {
	r := New()
	assert.False(t, r.Unregister("nobody", newFake("x")))
}

func TestShutdown(t *testing.T) {
	r := New()
	a, b := newFake("a"), newFake("b")
	r.Register("a", a)
	r.Register("b", b)

	r.Shutdown()
	assert.Equal(t, int32(1), a.closed.Load())
	assert.Equal(t, int32(1), b.closed.Load())
	assert.Zero(t, r.Len())

	late := newFake("late")
	r.Register("c", late)
	assert.Equal(t, int32(1), late.closed.Load())
	_, ok := r.Lookup("c")
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := fmt.Sprintf("u%d", i%5)
			ch := newFake(fmt.Sprintf("c%d", i))
			r.Register(user, ch)
			if cur, ok := r.Lookup(user); ok {
				cur.Send([]byte("ping"))
			}
			r.Unregister(user, ch)
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, r.Len(), 5)
}
