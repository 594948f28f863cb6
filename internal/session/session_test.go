package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecret struct {
	mu        sync.Mutex
	destroyed bool
}

func (f *fakeSecret) Destroy() {
	f.mu.Lock()
	f.destroyed = true
	f.mu.Unlock()
}

func (f *fakeSecret) isDestroyed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.destroyed
}

func TestProvisioningGuard(t *testing.T) {
	s := New("s1", "u1")

	require.True(t, s.BeginProvisioning())
	assert.False(t, s.BeginProvisioning(), "re-entry must be rejected")

	s.FailProvisioning(assert.AnError)
	assert.False(t, s.BeginProvisioning(), "failure keeps the guard until logout")
	state, msg := s.State()
	assert.Equal(t, StateFailed, state)
	assert.Equal(t, assert.AnError.Error(), msg)

	s.Close()
	assert.False(t, s.BeginProvisioning(), "closed session never provisions")
}

func TestProvisioningGuardConcurrent(t *testing.T) {
	s := New("s1", "u1")

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.BeginProvisioning() {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestCompleteProvisioning(t *testing.T) {
	s := New("s1", "u1")
	require.True(t, s.BeginProvisioning())
	s.CompleteProvisioning(StateAwaitingConfirmation)

	assert.True(t, s.HasWallet())
	assert.False(t, s.BeginProvisioning())
}

func TestSetPendingOnClosedSessionDestroys(t *testing.T) {
	s := New("s1", "u1")
	s.Close()

	secret := &fakeSecret{}
	assert.False(t, s.SetPending(secret))
	assert.True(t, secret.isDestroyed())
	assert.Nil(t, s.Pending())
}

func TestStoreLogoutDestroysPending(t *testing.T) {
	st := NewStore(time.Minute)
	sess, err := st.GetOrCreate("s1", "u1")
	require.NoError(t, err)

	secret := &fakeSecret{}
	require.True(t, sess.SetPending(secret))

	st.Logout("s1")
	assert.True(t, secret.isDestroyed())
	assert.True(t, sess.Closed())

	_, ok := st.Get("s1")
	assert.False(t, ok)
}

func TestStoreIdleEvictionDestroysPending(t *testing.T) {
	st := NewStore(50 * time.Millisecond)
	sess, err := st.GetOrCreate("s1", "u1")
	require.NoError(t, err)

	secret := &fakeSecret{}
	sess.SetPending(secret)

	assert.Eventually(t, secret.isDestroyed, 2*time.Second, 10*time.Millisecond)
}

func TestStoreUserMismatch(t *testing.T) {
	st := NewStore(time.Minute)
	_, err := st.GetOrCreate("s1", "u1")
	require.NoError(t, err)

	_, err = st.GetOrCreate("s1", "u2")
	assert.ErrorIs(t, err, ErrUserMismatch)

	again, err := st.GetOrCreate("s1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", again.UserID)
	assert.Equal(t, 1, st.Count())
}

func TestStoreClosedSessionTreatedAsMissing(t *testing.T) {
	st := NewStore(time.Minute)
	stale, err := st.GetOrCreate("s1", "u1")
	require.NoError(t, err)

	// 清理协程关闭会话后，条目被并发刷新写回
	stale.Close()
	st.c.Set("s1", stale, time.Minute)

	_, ok := st.Get("s1")
	assert.False(t, ok)

	fresh, err := st.GetOrCreate("s1", "u1")
	require.NoError(t, err)
	assert.NotSame(t, stale, fresh)
	assert.False(t, fresh.Closed())
	assert.True(t, fresh.BeginProvisioning())

	again, ok := st.Get("s1")
	require.True(t, ok)
	assert.Same(t, fresh, again)
}

func TestStoreGetDoesNotResurrectEvicted(t *testing.T) {
	st := NewStore(time.Minute)
	sess, err := st.GetOrCreate("s1", "u1")
	require.NoError(t, err)

	st.Logout("s1")
	_, ok := st.Get("s1")
	assert.False(t, ok)
	assert.Equal(t, 0, st.Count())
	assert.True(t, sess.Closed())
}
