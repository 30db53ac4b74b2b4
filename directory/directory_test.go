package directory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twelvebit/fat12/directory"
	"github.com/twelvebit/fat12/fat"
	"github.com/twelvebit/fat12/image"
	"github.com/xaionaro-go/bytesextra"
)

func newRootDirectory(t *testing.T, entries uint16) (*directory.Directory, *image.Image) {
	t.Helper()
	bytesPerSector := uint(512)
	rootBytes := uint(entries) * directory.EntrySize
	rootSectors := (rootBytes + bytesPerSector - 1) / bytesPerSector
	totalSectors := rootSectors + 4
	backing := make([]byte, totalSectors*bytesPerSector)
	img := image.New(bytesextra.NewReadWriteSeeker(backing), bytesPerSector, totalSectors)

	table := fat.NewBlank(img, 0, 1, 1, 8, 0xF0)
	dir := directory.NewRoot(img, table, 0, entries)
	return dir, img
}

func TestScanEmptyDirectoryIsEmpty(t *testing.T) {
	dir, _ := newRootDirectory(t, 16)
	listing, err := dir.Scan()
	require.NoError(t, err)
	assert.Empty(t, listing.Entries())
}

func TestNewEntryShortNameRoundTrip(t *testing.T) {
	dir, _ := newRootDirectory(t, 16)
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.Local)

	_, err := dir.NewEntry(directory.NewEntryParams{
		Name:       "HELLO.TXT",
		Attributes: directory.AttrArchive,
		Cluster:    2,
		Size:       4,
		Created:    now,
		Modified:   now,
	})
	require.NoError(t, err)

	listing, err := dir.Scan()
	require.NoError(t, err)
	require.Len(t, listing.Entries(), 1)

	entry, ok := listing.Get("HELLO.TXT")
	require.True(t, ok)
	assert.Equal(t, "HELLO.TXT", entry.ShortName)
	assert.EqualValues(t, 4, entry.Size)
	assert.Empty(t, entry.LFNSlots)
}

func TestNewEntryLongNameAttachesLFN(t *testing.T) {
	dir, _ := newRootDirectory(t, 16)
	now := time.Now()

	_, err := dir.NewEntry(directory.NewEntryParams{
		Name:       "LongFileName.TextFile",
		Attributes: directory.AttrArchive,
		Cluster:    2,
		Size:       8200,
		Created:    now,
		Modified:   now,
	})
	require.NoError(t, err)

	listing, err := dir.Scan()
	require.NoError(t, err)
	require.Len(t, listing.Entries(), 1)

	entry, ok := listing.Get("LongFileName.TextFile")
	require.True(t, ok)
	assert.NotEmpty(t, entry.LFNSlots)
	assert.Equal(t, "LONGNAME.TEX", entry.ShortName)
}

func TestRemoveEntryFreesSlots(t *testing.T) {
	dir, _ := newRootDirectory(t, 16)
	now := time.Now()

	entry, err := dir.NewEntry(directory.NewEntryParams{
		Name: "A.TXT", Attributes: directory.AttrArchive, Cluster: 2, Size: 1, Created: now, Modified: now,
	})
	require.NoError(t, err)

	require.NoError(t, dir.RemoveEntry(entry))

	listing, err := dir.Scan()
	require.NoError(t, err)
	assert.Empty(t, listing.Entries())
}

func TestFindFreeRejectsNonContiguousRun(t *testing.T) {
	dir, _ := newRootDirectory(t, 4)
	now := time.Now()

	var entries []directory.Entry
	for i := 0; i < 4; i++ {
		e, err := dir.NewEntry(directory.NewEntryParams{
			Name: string(rune('A'+i)) + ".TXT", Attributes: directory.AttrArchive, Cluster: 2, Size: 1, Created: now, Modified: now,
		})
		require.NoError(t, err)
		entries = append(entries, e)
	}

	// Free slots 0 and 2, leaving two free entries that are not adjacent.
	require.NoError(t, dir.RemoveEntry(entries[0]))
	require.NoError(t, dir.RemoveEntry(entries[2]))

	_, err := dir.FindFree(2)
	assert.Error(t, err, "two free slots exist but are not contiguous")

	run, err := dir.FindFree(1)
	require.NoError(t, err)
	assert.Len(t, run, 1)
}

func TestExistsIsScopedToCurrentDirectory(t *testing.T) {
	dir, _ := newRootDirectory(t, 16)
	now := time.Now()

	ok, err := dir.Exists("MISSING.TXT")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = dir.NewEntry(directory.NewEntryParams{
		Name: "PRESENT.TXT", Attributes: directory.AttrArchive, Cluster: 2, Size: 1, Created: now, Modified: now,
	})
	require.NoError(t, err)

	ok, err = dir.Exists("PRESENT.TXT")
	require.NoError(t, err)
	assert.True(t, ok)
}
