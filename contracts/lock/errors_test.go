package lock

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/tokenlock/contracts/bank"
	"go.dedis.ch/tokenlock/testing/fake"
	"golang.org/x/xerrors"
)

func TestKindOf(t *testing.T) {
	require.Equal(t, KindNone, KindOf(nil))
	require.Equal(t, KindValidation, KindOf(ErrInvalidAmount))
	require.Equal(t, KindValidation, KindOf(xerrors.Errorf("index 5: %w", ErrInvalidIndex)))
	require.Equal(t, KindValidation, KindOf(xerrors.Errorf("a: %w", xerrors.Errorf("b: %w", ErrMalformed))))
	require.Equal(t, KindState, KindOf(ErrNoLedger))
	require.Equal(t, KindState, KindOf(ErrAlreadyExists))
	require.Equal(t, KindState, KindOf(ErrAddressCollision))
	require.Equal(t, KindAuthorization, KindOf(ErrUnauthorized))
	require.Equal(t, KindResource, KindOf(ErrCapacityExceeded))
	require.Equal(t, KindResource, KindOf(ErrInsufficientLocked))
	require.Equal(t, KindResource, KindOf(xerrors.Errorf("x: %w", bank.ErrInsufficientBalance)))
	require.Equal(t, KindResource, KindOf(bank.ErrOverflow))
	require.Equal(t, KindInternal, KindOf(fake.GetError()))
}

func TestKind_String(t *testing.T) {
	require.Equal(t, "none", KindNone.String())
	require.Equal(t, "validation", KindValidation.String())
	require.Equal(t, "state", KindState.String())
	require.Equal(t, "authorization", KindAuthorization.String())
	require.Equal(t, "resource", KindResource.String())
	require.Equal(t, "internal", KindInternal.String())
	require.Equal(t, "internal", Kind(42).String())
}
