package failsafe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func denyPolicy(seen *[]error) Policy[string] {
	return Policy[string]{
		Fallback: func(err error) string { return "deny: " + err.Error() },
		OnFailure: func(_ context.Context, err error) {
			*seen = append(*seen, err)
		},
	}
}

func TestDo_SuccessPassesThrough(t *testing.T) {
	var seen []error
	got := denyPolicy(&seen).Do(context.Background(), func(context.Context) (string, error) {
		return "allow", nil
	})

	assert.Equal(t, "allow", got)
	assert.Empty(t, seen)
}

func TestDo_ErrorUsesFallback(t *testing.T) {
	var seen []error
	got := denyPolicy(&seen).Do(context.Background(), func(context.Context) (string, error) {
		return "allow", errors.New("connection refused")
	})

	assert.Equal(t, "deny: connection refused", got)
	require.Len(t, seen, 1)
}

func TestDo_PanicUsesFallback(t *testing.T) {
	var seen []error
	got := denyPolicy(&seen).Do(context.Background(), func(context.Context) (string, error) {
		panic("nil map")
	})

	assert.Contains(t, got, "nil map")
	require.Len(t, seen, 1)
	assert.ErrorIs(t, seen[0], ErrPanic)
}

func TestDo_TimeoutBoundsCall(t *testing.T) {
	var seen []error
	p := denyPolicy(&seen)
	p.Timeout = 20 * time.Millisecond

	start := time.Now()
	got := p.Do(context.Background(), func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, "deny: "+context.DeadlineExceeded.Error(), got)
	require.Len(t, seen, 1)
	assert.ErrorIs(t, seen[0], context.DeadlineExceeded)
}

func TestDo_NilOnFailureIsAllowed(t *testing.T) {
	p := Policy[int]{Fallback: func(error) int { return -1 }}
	assert.Equal(t, -1, p.Do(context.Background(), func(context.Context) (int, error) {
		return 0, errors.New("boom")
	}))
}
