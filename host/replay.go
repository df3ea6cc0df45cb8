package host

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"go.uber.org/zap"
)

var (
	// ErrReplayedInvocation is returned when the witnessed payload has
	// already been executed.
	ErrReplayedInvocation = errors.New("invocation already executed")
	// ErrExpiredInvocation is returned when the invocation comes after its
	// ValidUntil.
	ErrExpiredInvocation = errors.New("invocation expired")
)

// Executed witnessed payloads are stored as 0xF0|sha256(payload) with the
// ValidUntil of the invocation.
const replayPrefix = 0xF0

func replayKey(payload []byte) []byte {
	return append([]byte{replayPrefix}, hash.Sha256(payload).BytesBE()...)
}

func encodeReplayRecord(validUntil int64) []byte {
	w := io.NewBufBinWriter()
	w.WriteU64LE(uint64(validUntil))
	return w.Bytes()
}

// Prune drops records of executed invocations which have expired. Expired
// payloads are rejected before the record is checked, so they can't be
// replayed after that. Records of invocations without ValidUntil are kept
// forever. Prune returns the number of dropped records.
func (h *Host) Prune(ctx context.Context) (int, error) {
	now := h.now().Unix()

	var expired [][]byte

	h.store.Seek(storage.SeekRange{Prefix: []byte{replayPrefix}}, func(k, v []byte) bool {
		r := io.NewBinReaderFromBuf(v)
		until := int64(r.ReadU64LE())
		if r.Err == nil && until != 0 && until < now {
			expired = append(expired, bytes.Clone(k))
		}
		return true
	})

	if len(expired) == 0 {
		return 0, nil
	}

	release, err := h.locks.acquire(ctx, expired)
	if err != nil {
		return 0, fmt.Errorf("lock expired records: %w", err)
	}
	defer release()

	cache := storage.NewMemCachedStore(h.store)
	for i := range expired {
		cache.Delete(expired[i])
	}

	_, err = cache.PersistSync()
	if err != nil {
		return 0, fmt.Errorf("persist pruned records: %w", err)
	}

	h.log.Debug("expired invocation records pruned", zap.Int("count", len(expired)))

	return len(expired), nil
}
