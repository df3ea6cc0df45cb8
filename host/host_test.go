package host

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"
)

func newTestHost(t *testing.T) (*Host, storage.Store) {
	st := storage.NewMemoryStore()
	return New(st, zaptest.NewLogger(t)), st
}

func TestHost_Invoke(t *testing.T) {
	program := hash.Hash160([]byte("program"))
	key := []byte{0x42}

	t.Run("commit", func(t *testing.T) {
		h, st := newTestHost(t)

		exec, err := h.Invoke(context.Background(), Invocation{Program: program}, func(ic *Context) error {
			ic.Store.Put(key, []byte{1})
			ic.Notify(program, "Put", stackitem.NewByteArray(key))
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, program, exec.Program)
		require.Len(t, exec.Events, 1)
		require.Equal(t, "Put", exec.Events[0].Name)
		require.Equal(t, program, exec.Events[0].ScriptHash)

		v, err := st.Get(key)
		require.NoError(t, err)
		require.Equal(t, []byte{1}, v)
	})

	t.Run("rollback", func(t *testing.T) {
		h, st := newTestHost(t)
		errFault := errors.New("fault")

		_, err := h.Invoke(context.Background(), Invocation{Program: program}, func(ic *Context) error {
			ic.Store.Put(key, []byte{1})
			return errFault
		})
		require.ErrorIs(t, err, errFault)

		_, err = st.Get(key)
		require.ErrorIs(t, err, storage.ErrKeyNotFound)
	})

	t.Run("view", func(t *testing.T) {
		h, st := newTestHost(t)

		err := h.View(context.Background(), Invocation{Program: program}, func(ic *Context) error {
			ic.Store.Put(key, []byte{1})
			return nil
		})
		require.NoError(t, err)

		_, err = st.Get(key)
		require.ErrorIs(t, err, storage.ErrKeyNotFound)
	})
}

func TestHost_Witnesses(t *testing.T) {
	h, _ := newTestHost(t)
	program := hash.Hash160([]byte("program"))
	payload := []byte("payload")

	k1, err := keys.NewPrivateKey()
	require.NoError(t, err)
	k2, err := keys.NewPrivateKey()
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		exec, err := h.Invoke(context.Background(), Invocation{
			Program:   program,
			Payload:   payload,
			Witnesses: []Witness{Sign(k1, payload), Sign(k2, payload), Sign(k1, payload)},
		}, func(ic *Context) error {
			caller, ok := ic.Caller()
			require.True(t, ok)
			require.Equal(t, k1.GetScriptHash(), caller)
			require.True(t, ic.CheckWitness(k2.GetScriptHash()))
			return nil
		})
		require.NoError(t, err)
		require.Len(t, exec.Signers, 2)
	})

	t.Run("replay", func(t *testing.T) {
		_, err := h.Invoke(context.Background(), Invocation{
			Program:   program,
			Payload:   payload,
			Witnesses: []Witness{Sign(k2, payload)},
		}, func(*Context) error {
			t.Fatal("must not be called")
			return nil
		})
		require.ErrorIs(t, err, ErrReplayedInvocation)

		err = h.View(context.Background(), Invocation{
			Program:   program,
			Payload:   payload,
			Witnesses: []Witness{Sign(k1, payload)},
		}, func(*Context) error { return nil })
		require.ErrorIs(t, err, ErrReplayedInvocation)
	})

	t.Run("failed invocation is not recorded", func(t *testing.T) {
		other := []byte("other payload")
		errFault := errors.New("fault")

		_, err := h.Invoke(context.Background(), Invocation{
			Program:   program,
			Payload:   other,
			Witnesses: []Witness{Sign(k1, other)},
		}, func(*Context) error { return errFault })
		require.ErrorIs(t, err, errFault)

		_, err = h.Invoke(context.Background(), Invocation{
			Program:   program,
			Payload:   other,
			Witnesses: []Witness{Sign(k1, other)},
		}, func(*Context) error { return nil })
		require.NoError(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		p := []byte("expired payload")

		_, err := h.Invoke(context.Background(), Invocation{
			Program:    program,
			Payload:    p,
			Witnesses:  []Witness{Sign(k1, p)},
			ValidUntil: time.Now().Add(-time.Minute).Unix(),
		}, func(*Context) error {
			t.Fatal("must not be called")
			return nil
		})
		require.ErrorIs(t, err, ErrExpiredInvocation)
	})

	t.Run("no signers", func(t *testing.T) {
		_, err := h.Invoke(context.Background(), Invocation{Program: program}, func(ic *Context) error {
			_, ok := ic.Caller()
			require.False(t, ok)
			require.False(t, ic.CheckWitness(k1.GetScriptHash()))
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("foreign payload", func(t *testing.T) {
		_, err := h.Invoke(context.Background(), Invocation{
			Program:   program,
			Payload:   payload,
			Witnesses: []Witness{Sign(k1, []byte("other"))},
		}, func(*Context) error {
			t.Fatal("must not be called")
			return nil
		})
		require.ErrorIs(t, err, ErrInvalidWitness)
	})

	t.Run("forged key", func(t *testing.T) {
		w := Sign(k1, payload)
		w.PublicKey = k2.PublicKey()

		_, err := h.Invoke(context.Background(), Invocation{
			Program:   program,
			Payload:   payload,
			Witnesses: []Witness{w},
		}, func(*Context) error { return nil })
		require.ErrorIs(t, err, ErrInvalidWitness)
	})

	t.Run("no payload", func(t *testing.T) {
		_, err := h.Invoke(context.Background(), Invocation{
			Program:   program,
			Witnesses: []Witness{Sign(k1, payload)},
		}, func(*Context) error { return nil })
		require.ErrorIs(t, err, ErrNoPayload)
	})
}

func TestHost_ConcurrentReplay(t *testing.T) {
	h, st := newTestHost(t)
	program := hash.Hash160([]byte("program"))
	payload := []byte("transfer once")
	key := []byte{0x10}

	k, err := keys.NewPrivateKey()
	require.NoError(t, err)
	w := Sign(k, payload)

	const n = 8

	var (
		g        errgroup.Group
		replayed atomic.Int32
	)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := h.Invoke(context.Background(), Invocation{
				Program:   program,
				Payload:   payload,
				Witnesses: []Witness{w},
			}, func(ic *Context) error {
				var cur byte
				v, err := ic.Store.Get(key)
				if err == nil {
					cur = v[0]
				}
				ic.Store.Put(key, []byte{cur + 1})
				return nil
			})
			if errors.Is(err, ErrReplayedInvocation) {
				replayed.Add(1)
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	require.EqualValues(t, n-1, replayed.Load())

	v, err := st.Get(key)
	require.NoError(t, err)
	require.EqualValues(t, 1, v[0])
}

func TestHost_Prune(t *testing.T) {
	h, st := newTestHost(t)
	program := hash.Hash160([]byte("program"))
	now := time.Unix(1_700_000_000, 0)
	h.now = func() time.Time { return now }

	k, err := keys.NewPrivateKey()
	require.NoError(t, err)

	invoke := func(payload string, validUntil int64) error {
		_, err := h.Invoke(context.Background(), Invocation{
			Program:    program,
			Payload:    []byte(payload),
			Witnesses:  []Witness{Sign(k, []byte(payload))},
			ValidUntil: validUntil,
		}, func(*Context) error { return nil })
		return err
	}

	require.NoError(t, invoke("short", now.Unix()+10))
	require.NoError(t, invoke("long", now.Unix()+1000))
	require.NoError(t, invoke("forever", 0))

	n, err := h.Prune(context.Background())
	require.NoError(t, err)
	require.Zero(t, n)

	now = now.Add(100 * time.Second)

	n, err = h.Prune(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = st.Get(replayKey([]byte("short")))
	require.ErrorIs(t, err, storage.ErrKeyNotFound)
	_, err = st.Get(replayKey([]byte("long")))
	require.NoError(t, err)

	// pruned payload stays rejected by its expiration
	require.ErrorIs(t, invoke("short", now.Unix()-90), ErrExpiredInvocation)
	require.ErrorIs(t, invoke("long", now.Unix()+900), ErrReplayedInvocation)
	require.ErrorIs(t, invoke("forever", 0), ErrReplayedInvocation)
	require.Zero(t, h.locks.size())
}

func TestHost_Locks(t *testing.T) {
	h, _ := newTestHost(t)
	program := hash.Hash160([]byte("program"))

	var (
		started = make(chan struct{})
		hold    = make(chan struct{})
		g       errgroup.Group
	)

	g.Go(func() error {
		_, err := h.Invoke(context.Background(), Invocation{
			Program: program,
			Keys:    [][]byte{{1}, {2}},
		}, func(*Context) error {
			close(started)
			<-hold
			return nil
		})
		return err
	})

	<-started

	t.Run("busy key", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := h.Invoke(ctx, Invocation{
			Program: program,
			Keys:    [][]byte{{3}, {2}},
		}, func(*Context) error {
			t.Fatal("must not be called")
			return nil
		})
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("free key", func(t *testing.T) {
		_, err := h.Invoke(context.Background(), Invocation{
			Program: program,
			Keys:    [][]byte{{3}, {3}},
		}, func(*Context) error { return nil })
		require.NoError(t, err)
	})

	close(hold)
	require.NoError(t, g.Wait())
	require.Zero(t, h.locks.size())
}

func TestHost_Serialization(t *testing.T) {
	h, st := newTestHost(t)
	program := hash.Hash160([]byte("program"))
	key := []byte{0x10}

	const n = 32

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := h.Invoke(context.Background(), Invocation{
				Program: program,
				Keys:    [][]byte{key},
			}, func(ic *Context) error {
				var cur byte
				v, err := ic.Store.Get(key)
				if err == nil {
					cur = v[0]
				}
				ic.Store.Put(key, []byte{cur + 1})
				return nil
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	v, err := st.Get(key)
	require.NoError(t, err)
	require.EqualValues(t, n, v[0])
}
