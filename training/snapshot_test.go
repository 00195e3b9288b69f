package training

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyhwong/tao-classifier/model"
	"github.com/wyhwong/tao-classifier/tensor"
)

func newTestLinear(t *testing.T) *model.Linear {
	t.Helper()
	l, err := model.NewLinear(2, 3, true, rand.New(rand.NewSource(1)), tensor.CPU)
	require.NoError(t, err)
	return l
}

func TestTakeSnapshotCapturesAllNamedParams(t *testing.T) {
	l := newTestLinear(t)

	snap, err := TakeSnapshot(l)
	require.NoError(t, err)
	assert.Equal(t, []string{"weight", "bias"}, snap.Names())
	assert.NotNil(t, snap.Get("weight"))
	assert.NotNil(t, snap.Get("bias"))
	assert.Nil(t, snap.Get("absent"))
}

func TestSnapshotIsIndependentOfLiveWeights(t *testing.T) {
	l := newTestLinear(t)

	snap, err := TakeSnapshot(l)
	require.NoError(t, err)
	before, err := snap.Get("weight").GetFloat32Data()
	require.NoError(t, err)
	original := before[0]

	live, err := l.NamedParameters()[0].Param.GetFloat32Data()
	require.NoError(t, err)
	live[0] = original + 100

	after, err := snap.Get("weight").GetFloat32Data()
	require.NoError(t, err)
	assert.Equal(t, original, after[0])
}

func TestSnapshotRestore(t *testing.T) {
	l := newTestLinear(t)
	snap, err := TakeSnapshot(l)
	require.NoError(t, err)

	live, err := l.NamedParameters()[0].Param.GetFloat32Data()
	require.NoError(t, err)
	saved := snap.Get("weight").Data.([]float32)[0]
	live[0] = saved + 42

	require.NoError(t, snap.Restore(l))
	restored, err := l.NamedParameters()[0].Param.GetFloat32Data()
	require.NoError(t, err)
	assert.Equal(t, saved, restored[0])
}

func TestSnapshotEqual(t *testing.T) {
	l := newTestLinear(t)

	a, err := TakeSnapshot(l)
	require.NoError(t, err)
	b, err := TakeSnapshot(l)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))

	live, err := l.NamedParameters()[0].Param.GetFloat32Data()
	require.NoError(t, err)
	live[0] += 1

	c, err := TakeSnapshot(l)
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
}
