package image_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twelvebit/fat12/image"
	"github.com/xaionaro-go/bytesextra"
)

func newTestImage(t *testing.T, totalSectors uint) *image.Image {
	t.Helper()
	backing := make([]byte, totalSectors*512)
	stream := bytesextra.NewReadWriteSeeker(backing)
	return image.New(stream, 512, totalSectors)
}

func TestReadWriteSectorRoundTrip(t *testing.T) {
	img := newTestImage(t, 4)

	sector := make([]byte, 512)
	for i := range sector {
		sector[i] = byte(i % 256)
	}
	require.NoError(t, img.WriteSector(2, sector))

	got, err := img.ReadSector(2)
	require.NoError(t, err)
	assert.Equal(t, sector, got)
}

func TestReadSectorsMultiple(t *testing.T) {
	img := newTestImage(t, 4)
	require.NoError(t, img.WriteSector(0, append([]byte{0xAA}, make([]byte, 511)...)))
	require.NoError(t, img.WriteSector(1, append([]byte{0xBB}, make([]byte, 511)...)))

	got, err := img.ReadSectors(0, 2)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAA), got[0])
	assert.Equal(t, byte(0xBB), got[512])
}

func TestOutOfBoundsSectorFails(t *testing.T) {
	img := newTestImage(t, 2)
	_, err := img.ReadSector(5)
	assert.Error(t, err)
}

func TestWriteSectorWrongSizeFails(t *testing.T) {
	img := newTestImage(t, 2)
	err := img.WriteSector(0, make([]byte, 10))
	assert.Error(t, err)
}

func TestZeroFill(t *testing.T) {
	img := newTestImage(t, 2)
	require.NoError(t, img.WriteSector(0, append([]byte{1, 2, 3}, make([]byte, 509)...)))
	require.NoError(t, img.ZeroFill())

	got, err := img.ReadSector(0)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 512), got)
}
