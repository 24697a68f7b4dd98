package ident

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequenceOf(n int) *SequenceSource {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("00000000-0000-4000-8000-%012d", i+1)
	}
	return NewSequence(ids...)
}

func TestAllocateDrawsEveryIdentifierOnce(t *testing.T) {
	src := sequenceOf(9 + 2*3)
	a, err := Allocate(src, 3)
	require.NoError(t, err)

	assert.Equal(t, "00000000-0000-4000-8000-000000000001", a.AssetMap.String())
	assert.Equal(t, "00000000-0000-4000-8000-000000000002", a.CPL.String())
	assert.Equal(t, "00000000-0000-4000-8000-000000000003", a.OPL.String())
	assert.Equal(t, "00000000-0000-4000-8000-000000000004", a.PKL.String())
	require.Len(t, a.Assets, 3)
	require.Len(t, a.Resources, 3)
	assert.Equal(t, "00000000-0000-4000-8000-000000000010", a.Assets[0].String())
	assert.Equal(t, "00000000-0000-4000-8000-000000000011", a.Resources[0].String())
	_, err = src.NewID()
	assert.ErrorIs(t, err, ErrExhausted, "allocation draws exactly the identifiers it needs")
}

func TestAllocateRandomIsDistinct(t *testing.T) {
	a, err := Allocate(RandomSource{}, 4)
	require.NoError(t, err)

	all := append([]uuid.UUID{a.AssetMap, a.CPL, a.OPL, a.PKL, a.Segment,
		a.ImageSequence, a.ImageTrack, a.AudioSequence, a.AudioTrack}, a.Assets...)
	all = append(all, a.Resources...)
	seen := map[uuid.UUID]bool{}
	for _, id := range all {
		assert.False(t, seen[id], "duplicate %s", id)
		assert.Equal(t, uuid.Version(4), id.Version())
		seen[id] = true
	}
}

func TestAllocateRejectsDuplicates(t *testing.T) {
	src := NewSequence(
		"00000000-0000-4000-8000-000000000001",
		"00000000-0000-4000-8000-000000000001",
	)
	_, err := Allocate(src, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestAllocateExhaustedSource(t *testing.T) {
	_, err := Allocate(sequenceOf(9), 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExhausted))
}

func TestSeededSourceIsReproducible(t *testing.T) {
	a1, err := Allocate(NewSeeded("EP01"), 2)
	require.NoError(t, err)
	a2, err := Allocate(NewSeeded("EP01"), 2)
	require.NoError(t, err)
	a3, err := Allocate(NewSeeded("EP02"), 2)
	require.NoError(t, err)

	assert.Equal(t, a1, a2)
	assert.NotEqual(t, a1.CPL, a3.CPL)
	assert.Equal(t, uuid.Version(4), a1.CPL.Version())
}

func TestURNRoundTrip(t *testing.T) {
	id := uuid.MustParse("3f2a7c1e-0000-4000-8000-00000000abcd")
	urn := URN(id)
	assert.Equal(t, "urn:uuid:3f2a7c1e-0000-4000-8000-00000000abcd", urn)

	back, err := ParseURN("URN:UUID:3f2a7c1e-0000-4000-8000-00000000abcd")
	require.NoError(t, err)
	assert.Equal(t, id, back)

	_, err = ParseURN("3f2a7c1e-0000-4000-8000-00000000abcd")
	assert.Error(t, err)
}
