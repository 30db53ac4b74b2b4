package directory

import (
	"fmt"

	"github.com/twelvebit/fat12/fat"
	"github.com/twelvebit/fat12/image"
)

// locationKind tags which storage shape a Directory uses, per spec.md §9's
// design note: "Model as a tagged variant DirStorage = Root | Chained
// (first_cluster) with a single scan iterator that dispatches once on the
// tag."
type locationKind int

const (
	locationRoot locationKind = iota
	locationChained
)

// Directory is either the fixed root region or a subdirectory rooted at a
// cluster chain. Both are scanned, searched, and mutated through the same
// operations; only slotAddresses dispatches on the tag.
type Directory struct {
	img   *image.Image
	table *fat.Table

	kind locationKind

	// Root fields.
	rootBaseByte   int64
	rootDirEntries uint16

	// Chained fields.
	firstCluster    uint32
	firstDataByte   int64
	bytesPerCluster uint
}

// NewRoot builds a Directory over the fixed root region.
func NewRoot(img *image.Image, table *fat.Table, rootBaseByte int64, rootDirEntries uint16) *Directory {
	return &Directory{
		img:            img,
		table:          table,
		kind:           locationRoot,
		rootBaseByte:   rootBaseByte,
		rootDirEntries: rootDirEntries,
	}
}

// NewChained builds a Directory over a subdirectory's cluster chain.
func NewChained(img *image.Image, table *fat.Table, firstCluster uint32, firstDataByte int64, bytesPerCluster uint) *Directory {
	return &Directory{
		img:             img,
		table:           table,
		kind:            locationChained,
		firstCluster:    firstCluster,
		firstDataByte:   firstDataByte,
		bytesPerCluster: bytesPerCluster,
	}
}

// IsRoot reports whether this Directory is the fixed root region.
func (d *Directory) IsRoot() bool {
	return d.kind == locationRoot
}

// slotAddresses returns the absolute byte offset of every 32-byte slot in
// this directory, in disk order. This is the single dispatch point spec.md
// §9 calls for: everything downstream (Scan, FindFree, NewEntry) works off
// this list without caring which storage shape produced it.
func (d *Directory) slotAddresses() ([]int64, error) {
	switch d.kind {
	case locationRoot:
		slots := make([]int64, d.rootDirEntries)
		for i := range slots {
			slots[i] = d.rootBaseByte + int64(i)*EntrySize
		}
		return slots, nil

	case locationChained:
		chain, err := d.table.Chain(d.firstCluster)
		if err != nil && len(chain) == 0 {
			return nil, fmt.Errorf("directory: walking subdirectory chain: %w", err)
		}
		slotsPerCluster := int(d.bytesPerCluster) / EntrySize
		slots := make([]int64, 0, len(chain)*slotsPerCluster)
		for _, cluster := range chain {
			clusterBase := d.firstDataByte + int64(cluster-fat.FirstDataCluster)*int64(d.bytesPerCluster)
			for i := 0; i < slotsPerCluster; i++ {
				slots = append(slots, clusterBase+int64(i)*EntrySize)
			}
		}
		return slots, nil

	default:
		return nil, fmt.Errorf("directory: unknown location kind %d", d.kind)
	}
}

func (d *Directory) readSlot(addr int64) ([]byte, error) {
	buf := make([]byte, EntrySize)
	if err := d.img.ReadAt(addr, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (d *Directory) writeSlot(addr int64, data []byte) error {
	return d.img.WriteAt(addr, data)
}
