package fat12_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twelvebit/fat12"
	"github.com/twelvebit/fat12/directory"
	"github.com/xaionaro-go/bytesextra"
)

const floppy144Bytes = 1474560

func mountBlank(t *testing.T, size int64) *fat12.Volume {
	t.Helper()
	backing := make([]byte, size)
	v, err := fat12.Mount(bytesextra.NewReadWriteSeeker(backing), size)
	require.NoError(t, err)
	return v
}

// TestScenarioA_FormatAndListEmpty: mount(blank 1.44MB), format, list_dir = ∅.
func TestScenarioA_FormatAndListEmpty(t *testing.T) {
	v := mountBlank(t, floppy144Bytes)
	require.NoError(t, v.Format("IBM PC 3.5IN 1.44MB"))

	listing, err := v.ListDir()
	require.NoError(t, err)
	assert.Empty(t, listing.Entries())
}

// TestScenarioB_WriteReadShortName: write/read round-trips a short name and
// the listing reports the right size.
func TestScenarioB_WriteReadShortName(t *testing.T) {
	v := mountBlank(t, floppy144Bytes)
	require.NoError(t, v.Format("IBM PC 3.5IN 1.44MB"))

	content := []byte("Hi!\n")
	require.NoError(t, v.WriteFile("HELLO.TXT", content))

	got, err := v.ReadFile("HELLO.TXT")
	require.NoError(t, err)
	assert.Equal(t, content, got)

	listing, err := v.ListDir()
	require.NoError(t, err)
	require.Len(t, listing.Entries(), 1)
	entry, ok := listing.Get("HELLO.TXT")
	require.True(t, ok)
	assert.EqualValues(t, 4, entry.Size)
}

// TestScenarioC_LongNameRoundTrip: a long name round-trips through its
// derived short name and its full content survives a read.
func TestScenarioC_LongNameRoundTrip(t *testing.T) {
	v := mountBlank(t, floppy144Bytes)
	require.NoError(t, v.Format("IBM PC 3.5IN 1.44MB"))

	content := bytes.Repeat([]byte{'Z'}, 8200)
	require.NoError(t, v.WriteFile("LongFileName.TextFile", content))

	listing, err := v.ListDir()
	require.NoError(t, err)
	entry, ok := listing.Get("LongFileName.TextFile")
	require.True(t, ok)
	assert.Equal(t, "LongFileName.TextFile", entry.Name)
	assert.Equal(t, "LONGNAME.TEX", entry.ShortName)

	got, err := v.ReadFile("LongFileName.TextFile")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

// TestScenarioD_DeleteFreesClusters: after deleting a large file, writing a
// same-size file again succeeds and reuses the freed clusters.
func TestScenarioD_DeleteFreesClusters(t *testing.T) {
	v := mountBlank(t, floppy144Bytes)
	require.NoError(t, v.Format("IBM PC 3.5IN 1.44MB"))

	content := bytes.Repeat([]byte{'Z'}, 8200)
	require.NoError(t, v.WriteFile("LongFileName.TextFile", content))
	original, ok := mustGet(t, v, "LongFileName.TextFile")
	require.True(t, ok)
	require.NoError(t, v.DeleteFile("LongFileName.TextFile"))

	replacement := bytes.Repeat([]byte{'Q'}, 8200)
	require.NoError(t, v.WriteFile("LongFileName.TextFile", replacement))

	rewritten, ok := mustGet(t, v, "LongFileName.TextFile")
	require.True(t, ok)
	assert.Equal(t, original.Cluster, rewritten.Cluster)

	got, err := v.ReadFile("LongFileName.TextFile")
	require.NoError(t, err)
	assert.Equal(t, replacement, got)
}

// TestScenarioE_RenameCollision: renaming onto an existing name fails with
// ErrFileExists and leaves both files untouched.
func TestScenarioE_RenameCollision(t *testing.T) {
	v := mountBlank(t, floppy144Bytes)
	require.NoError(t, v.Format("IBM PC 3.5IN 1.44MB"))

	require.NoError(t, v.WriteFile("A.TXT", []byte("aaa")))
	require.NoError(t, v.WriteFile("B.TXT", []byte("bbb")))

	err := v.RenameFile("A.TXT", "B.TXT")
	require.Error(t, err)
	var fsErr *fat12.FSError
	require.ErrorAs(t, err, &fsErr)
	assert.Equal(t, fat12.ErrFileExists, fsErr.Code)

	a, err := v.ReadFile("A.TXT")
	require.NoError(t, err)
	assert.Equal(t, []byte("aaa"), a)

	b, err := v.ReadFile("B.TXT")
	require.NoError(t, err)
	assert.Equal(t, []byte("bbb"), b)
}

// TestScenarioF_BoundaryFillAndReclaim: fill root directory entries until
// NoFreeEntries fires, then delete one file and confirm a same-size write
// succeeds again.
func TestScenarioF_BoundaryFillAndReclaim(t *testing.T) {
	v := mountBlank(t, floppy144Bytes)
	// 160KB has only 64 root directory entries, making the boundary cheap
	// to reach without also exhausting clusters first.
	require.NoError(t, v.Format("IBM PC 5.25IN 160KB"))

	written := 0
	for i := 0; i < 200; i++ {
		name := shortNameFor(i)
		err := v.WriteFile(name, []byte("x"))
		if err != nil {
			var fsErr *fat12.FSError
			require.ErrorAs(t, err, &fsErr)
			assert.Contains(t, []fat12.ErrorCode{fat12.ErrNoFreeEntries, fat12.ErrNoFreeClusters}, fsErr.Code)
			break
		}
		written++
	}
	require.Greater(t, written, 0)

	victim := shortNameFor(0)
	require.NoError(t, v.DeleteFile(victim))
	require.NoError(t, v.WriteFile(victim, []byte("x")))
}

// TestRenameIsIdempotent: RenameFile(A,B) followed by RenameFile(B,A)
// restores the entry's identity-bearing fields (cluster, size, both names)
// exactly, per spec.md §8 invariant 5 ("rename is its own inverse").
func TestRenameIsIdempotent(t *testing.T) {
	v := mountBlank(t, floppy144Bytes)
	require.NoError(t, v.Format("IBM PC 3.5IN 1.44MB"))

	content := bytes.Repeat([]byte{'Z'}, 8200)
	require.NoError(t, v.WriteFile("LongFileName.TextFile", content))

	before, ok := mustGet(t, v, "LongFileName.TextFile")
	require.True(t, ok)

	require.NoError(t, v.RenameFile("LongFileName.TextFile", "OtherFileName.TextFile"))
	require.NoError(t, v.RenameFile("OtherFileName.TextFile", "LongFileName.TextFile"))

	after, ok := mustGet(t, v, "LongFileName.TextFile")
	require.True(t, ok)

	assert.Equal(t, before.Name, after.Name)
	assert.Equal(t, before.ShortName, after.ShortName)
	assert.Equal(t, before.ShortRaw, after.ShortRaw)
	assert.Equal(t, before.Cluster, after.Cluster)
	assert.Equal(t, before.Size, after.Size)
	assert.Equal(t, before.Created, after.Created)

	got, err := v.ReadFile("LongFileName.TextFile")
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func mustGet(t *testing.T, v *fat12.Volume, name string) (directory.Entry, bool) {
	t.Helper()
	listing, err := v.ListDir()
	require.NoError(t, err)
	return listing.Get(name)
}

func shortNameFor(i int) string {
	return "F" + itoa3(i) + ".TXT"
}

func itoa3(i int) string {
	digits := "000"
	out := []byte(digits)
	for p := 2; p >= 0 && i > 0; p-- {
		out[p] = byte('0' + i%10)
		i /= 10
	}
	return string(out)
}
