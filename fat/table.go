// Package fat implements the FAT12 File Allocation Table: packed 12-bit
// entry access, cluster chain walking, allocation, and freeing.
//
// The packed-entry arithmetic is the helper type spec.md §9 calls for: a
// wrapper around the backing buffer exposing get(n)/set(n, v) so callers
// never see raw byte offsets. Chain walking and allocation generalize the
// teacher's drivers/fat/driverbase.go (listClusters) and
// drivers/common/allocatormap.go (Allocator, first-fit contiguous run scan)
// from block/cluster-agnostic storage to FAT12's specific packed encoding
// and mirrored multi-copy layout (spec.md §9, "FAT mirroring").
package fat

import (
	"fmt"

	bitmap "github.com/boljen/go-bitmap"
	"github.com/twelvebit/fat12/image"
)

// Reserved cluster numbers and entry value ranges, per spec.md §3.
const (
	FirstDataCluster = 2

	EntryFree        = 0x000
	EntryReservedLow = 0xFF0
	EntryBad         = 0xFF7
	EntryEOCLow      = 0xFF8
	EntryEOCHigh     = 0xFFF
)

// IsEndOfChain reports whether a FAT entry value terminates a cluster chain
// (reserved values count as terminal too, mirroring the original Slither
// getChain's "stop reading" condition on anything >= 0xFF0).
func IsEndOfChain(entry uint16) bool {
	return entry >= EntryReservedLow
}

// Table is the in-memory view of a FAT12 file allocation table, read from
// one or more on-disk copies and written through to all of them.
type Table struct {
	img           *image.Image
	baseByte      int64
	sectorsPerFAT uint16
	copies        uint8
	totalClusters uint32

	entries []uint16 // entries[n] is the decoded 12-bit value of cluster n
	free    bitmap.Bitmap
}

// Load reads FAT copy #1 (the only copy the spec treats as authoritative
// for reads, per spec.md §9) and builds the in-memory Table, including the
// free-cluster bitmap cache that generalizes the teacher's
// drivers/common.Allocator to FAT12 cluster bookkeeping.
func Load(img *image.Image, baseByte int64, sectorsPerFAT uint16, copies uint8, totalClusters uint32) (*Table, error) {
	if copies == 0 {
		return nil, fmt.Errorf("fat: copies must be >= 1")
	}
	fatSize := int64(sectorsPerFAT) * int64(img.BytesPerSector)
	raw := make([]byte, fatSize)
	if err := img.ReadAt(baseByte, raw); err != nil {
		return nil, fmt.Errorf("fat: reading FAT copy 1: %w", err)
	}

	// Total addressable entries include clusters 0 and 1 (reserved) plus
	// every data cluster, so the packed buffer must hold totalClusters+2
	// entries; exactly that many are decoded.
	entryCount := totalClusters + FirstDataCluster
	entries := make([]uint16, entryCount)
	for n := uint32(0); n < entryCount; n++ {
		entries[n] = decodeEntry(raw, n)
	}

	free := bitmap.New(int(totalClusters))
	for n := uint32(FirstDataCluster); n < entryCount; n++ {
		if entries[n] != EntryFree {
			free.Set(int(n-FirstDataCluster), true)
		}
	}

	return &Table{
		img:           img,
		baseByte:      baseByte,
		sectorsPerFAT: sectorsPerFAT,
		copies:        copies,
		totalClusters: totalClusters,
		entries:       entries,
		free:          free,
	}, nil
}

// NewBlank builds an all-free Table for a freshly formatted image; clusters
// 0 and 1 are marked with the reserved end-of-chain values a real FAT12
// table always carries (spec.md §4.3's "F0 FF FF" marker, decoded).
func NewBlank(img *image.Image, baseByte int64, sectorsPerFAT uint16, copies uint8, totalClusters uint32, mediaID uint8) *Table {
	entryCount := totalClusters + FirstDataCluster
	entries := make([]uint16, entryCount)
	entries[0] = 0xF00 | uint16(mediaID)
	if entryCount > 1 {
		entries[1] = 0xFFF
	}
	return &Table{
		img:           img,
		baseByte:      baseByte,
		sectorsPerFAT: sectorsPerFAT,
		copies:        copies,
		totalClusters: totalClusters,
		entries:       entries,
		free:          bitmap.New(int(totalClusters)),
	}
}

// decodeEntry reads 12-bit entry n out of a packed buffer, per spec.md §3:
// entry n starts at byte floor(n*1.5); even n takes the low 12 bits of the
// little-endian word there, odd n takes the high 12 bits.
func decodeEntry(buf []byte, n uint32) uint16 {
	offset := (n * 3) / 2
	if int(offset)+1 >= len(buf) {
		return 0
	}
	word := uint16(buf[offset]) | uint16(buf[offset+1])<<8
	if n%2 == 0 {
		return word & 0x0FFF
	}
	return word >> 4
}

// encodeEntry writes 12-bit value v into entry n of a packed buffer,
// preserving the neighbouring nibble-pair sharing the 16-bit word.
func encodeEntry(buf []byte, n uint32, v uint16) {
	offset := (n * 3) / 2
	word := uint16(buf[offset]) | uint16(buf[offset+1])<<8
	if n%2 == 0 {
		word = (word & 0xF000) | (v & 0x0FFF)
	} else {
		word = (word & 0x000F) | (v << 4)
	}
	buf[offset] = byte(word)
	buf[offset+1] = byte(word >> 8)
}

// Get returns the decoded value of FAT entry n.
func (t *Table) Get(n uint32) uint16 {
	if n >= uint32(len(t.entries)) {
		return EntryEOCHigh
	}
	return t.entries[n]
}

// Set writes entry n in memory and mirrors the write to every on-disk FAT
// copy, per spec.md §9's resolution of the FAT-mirroring open question.
func (t *Table) Set(n uint32, v uint16) error {
	if n >= uint32(len(t.entries)) {
		return fmt.Errorf("fat: cluster %d out of range", n)
	}
	t.entries[n] = v

	if n >= FirstDataCluster {
		idx := int(n - FirstDataCluster)
		if idx < t.free.Len() {
			t.free.Set(idx, v != EntryFree)
		}
	}

	fatSize := int64(t.sectorsPerFAT) * int64(t.img.BytesPerSector)
	raw := make([]byte, fatSize)
	if err := t.img.ReadAt(t.baseByte, raw); err != nil {
		return fmt.Errorf("fat: re-reading FAT copy 1 before write: %w", err)
	}
	encodeEntry(raw, n, v)

	for copyIdx := uint8(0); copyIdx < t.copies; copyIdx++ {
		offset := t.baseByte + int64(copyIdx)*fatSize
		if err := t.img.WriteAt(offset, raw); err != nil {
			return fmt.Errorf("fat: writing FAT copy %d: %w", copyIdx+1, err)
		}
	}
	return nil
}

// Chain returns the cluster numbers reachable from start, in order,
// stopping at (but not including) the first end-of-chain/reserved marker.
// A 0 (free) entry encountered mid-chain signals corruption; Chain stops
// and returns what it has along with an error, matching the original
// Slither getChain's behaviour of yielding what it read so far.
func (t *Table) Chain(start uint32) ([]uint32, error) {
	if start < FirstDataCluster {
		return nil, nil
	}
	var chain []uint32
	seen := make(map[uint32]bool)
	cluster := start
	for {
		if seen[cluster] {
			return chain, fmt.Errorf("fat: cluster chain loops back to cluster %d", cluster)
		}
		seen[cluster] = true
		chain = append(chain, cluster)

		next := t.Get(cluster)
		if IsEndOfChain(next) {
			return chain, nil
		}
		if next == EntryFree {
			return chain, fmt.Errorf("fat: chain broken at cluster %d: next entry is free", cluster)
		}
		cluster = uint32(next)
	}
}

// Allocate finds count free clusters by linear first-fit scan over the free
// bitmap, links them into a chain terminated by the end-of-chain marker,
// writes the links through Set (and therefore to every FAT copy), and
// returns the chain in order. Mirrors the original Slither addFile's
// free-cluster scan and generalizes drivers/common.Allocator's findRun (scan
// AllocationBitmap.Get(i) directly, never the decoded block table) from
// contiguous block runs to FAT12's linked (not necessarily contiguous)
// cluster chains: clusters need not be physically adjacent, only chained via
// their FAT entries.
func (t *Table) Allocate(count int) ([]uint32, error) {
	if count <= 0 {
		return nil, nil
	}

	chain := make([]uint32, 0, count)
	for i := 0; i < t.free.Len() && len(chain) < count; i++ {
		if !t.free.Get(i) {
			chain = append(chain, uint32(i)+FirstDataCluster)
		}
	}
	if len(chain) < count {
		return nil, fmt.Errorf("fat: only %d free clusters, need %d", len(chain), count)
	}

	for i, cluster := range chain {
		var value uint16
		if i == len(chain)-1 {
			value = EntryEOCHigh
		} else {
			value = uint16(chain[i+1])
		}
		if err := t.Set(cluster, value); err != nil {
			return nil, err
		}
	}
	return chain, nil
}

// Free walks the chain rooted at start and writes 0 into every entry,
// returning them to the free-cluster bitmap.
func (t *Table) Free(start uint32) error {
	if start < FirstDataCluster {
		return nil
	}
	chain, err := t.Chain(start)
	if err != nil && len(chain) == 0 {
		return err
	}
	for _, cluster := range chain {
		if err := t.Set(cluster, EntryFree); err != nil {
			return err
		}
	}
	return nil
}

// FreeClusterCount returns the number of clusters currently unallocated,
// read from the bitmap cache rather than rescanning entries.
func (t *Table) FreeClusterCount() int {
	count := 0
	for i := 0; i < t.free.Len(); i++ {
		if !t.free.Get(i) {
			count++
		}
	}
	return count
}

// TotalClusters returns the number of addressable data clusters (2..N+1).
func (t *Table) TotalClusters() uint32 {
	return t.totalClusters
}
