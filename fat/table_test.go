package fat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twelvebit/fat12/fat"
	"github.com/twelvebit/fat12/image"
	"github.com/xaionaro-go/bytesextra"
)

func newTestTableWithImage(t *testing.T, totalClusters uint32, copies uint8) (*fat.Table, *image.Image, uint16) {
	t.Helper()
	sectorsPerFAT := uint16(1)
	bytesPerSector := uint(512)
	totalSectors := uint(copies)*uint(sectorsPerFAT) + 4
	backing := make([]byte, totalSectors*bytesPerSector)
	img := image.New(bytesextra.NewReadWriteSeeker(backing), bytesPerSector, totalSectors)

	table := fat.NewBlank(img, 0, sectorsPerFAT, copies, totalClusters, 0xF0)
	for c := uint32(0); c < totalClusters+fat.FirstDataCluster; c++ {
		require.NoError(t, table.Set(c, table.Get(c)))
	}
	return table, img, sectorsPerFAT
}

func newTestTable(t *testing.T, totalClusters uint32, copies uint8) *fat.Table {
	t.Helper()
	table, _, _ := newTestTableWithImage(t, totalClusters, copies)
	return table
}

func TestPackedEntryEvenOddIndependence(t *testing.T) {
	table := newTestTable(t, 10, 1)

	require.NoError(t, table.Set(4, 0x123))
	require.NoError(t, table.Set(5, 0x456))

	assert.EqualValues(t, 0x123, table.Get(4))
	assert.EqualValues(t, 0x456, table.Get(5))

	require.NoError(t, table.Set(4, 0xABC))
	assert.EqualValues(t, 0x456, table.Get(5), "writing entry 4 must not perturb entry 5")

	require.NoError(t, table.Set(5, 0xDEF))
	assert.EqualValues(t, 0xABC, table.Get(4), "writing entry 5 must not perturb entry 4")
}

func TestAllocateAndChain(t *testing.T) {
	table := newTestTable(t, 10, 1)

	chain, err := table.Allocate(3)
	require.NoError(t, err)
	require.Len(t, chain, 3)

	walked, err := table.Chain(chain[0])
	require.NoError(t, err)
	assert.Equal(t, chain, walked)

	last := chain[len(chain)-1]
	assert.True(t, fat.IsEndOfChain(table.Get(last)))
}

func TestFreeReturnsClustersToPool(t *testing.T) {
	table := newTestTable(t, 4, 1)

	chain, err := table.Allocate(4)
	require.NoError(t, err)

	_, err = table.Allocate(1)
	assert.Error(t, err, "expected NoFreeClusters once all clusters are used")

	require.NoError(t, table.Free(chain[0]))

	again, err := table.Allocate(4)
	require.NoError(t, err)
	assert.ElementsMatch(t, chain, again)
}

func TestMirroringWritesAllFATCopies(t *testing.T) {
	copies := uint8(3)
	table, img, sectorsPerFAT := newTestTableWithImage(t, 10, copies)

	require.NoError(t, table.Set(2, 0x0FF))

	fatSize := int64(sectorsPerFAT) * int64(img.BytesPerSector)
	first, err := firstNBytes(img, 0, fatSize)
	require.NoError(t, err)

	for c := uint8(1); c < copies; c++ {
		other, err := firstNBytes(img, int64(c)*fatSize, fatSize)
		require.NoError(t, err)
		assert.Equal(t, first, other, "FAT copy %d diverged from copy 1", c+1)
	}
}

func firstNBytes(img *image.Image, offset, n int64) ([]byte, error) {
	buf := make([]byte, n)
	if err := img.ReadAt(offset, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
