package directory

import (
	"fmt"
	"time"

	"github.com/twelvebit/fat12/name"
)

// FindFree returns a contiguous run of n slot addresses whose first byte is
// 0x00 or 0xE5, per spec.md §4.6. Non-contiguous runs are rejected so an
// LFN chain and its SFN always land adjacent on disk.
func (d *Directory) FindFree(n int) ([]int64, error) {
	addrs, err := d.slotAddresses()
	if err != nil {
		return nil, err
	}

	runStart := -1
	runLen := 0
	for i, addr := range addrs {
		slot, err := d.readSlot(addr)
		if err != nil {
			return nil, err
		}
		free := slot[0] == SentinelNeverUsed || slot[0] == SentinelFree
		if !free {
			runStart = -1
			runLen = 0
			continue
		}
		if runLen == 0 {
			runStart = i
		}
		runLen++
		if runLen == n {
			return addrs[runStart : runStart+n], nil
		}
	}
	return nil, fmt.Errorf("directory: no run of %d contiguous free entries", n)
}

// NewEntryParams describes a new file or subdirectory entry to create.
type NewEntryParams struct {
	Name       string
	Attributes uint8
	Cluster    uint32
	Size       uint32
	Created    time.Time
	Modified   time.Time
}

// Exists reports whether name is already present in this directory's
// listing. This is deliberately scoped to the current Directory only,
// fixing the "exists-sentinel bug" spec.md §9 calls out: the original
// Slither source's _seek_file scanned whichever directory it was last
// pointed at rather than strictly the caller's current one.
func (d *Directory) Exists(entryName string) (bool, error) {
	listing, err := d.Scan()
	if err != nil {
		return false, err
	}
	_, ok := listing.Get(entryName)
	return ok, nil
}

// NewEntry writes a new directory entry for params.Name, generating an SFN
// (and LFN chain, if params.Name isn't already a legal 8.3 name) per
// spec.md §4.5, and reserving adjacent slots for the whole run via
// FindFree. LFN entries are written in descending ordinal order, followed
// by the SFN, matching on-disk scan order.
func (d *Directory) NewEntry(params NewEntryParams) (Entry, error) {
	listing, err := d.Scan()
	if err != nil {
		return Entry{}, err
	}

	var shortRaw [11]byte
	if name.IsValidSFN(params.Name) {
		shortRaw = name.EncodeSFN(params.Name)
	} else {
		shortRaw, err = name.DeriveSFNFromLFN(params.Name, func(candidate [11]byte) bool {
			for _, e := range listing.Entries() {
				if e.ShortRaw == candidate {
					return true
				}
			}
			return false
		})
		if err != nil {
			return Entry{}, err
		}
	}

	needsLFN := !name.IsValidSFN(params.Name) || name.DecodeSFN(shortRaw) != params.Name
	var segments []name.LFNSegment
	if needsLFN {
		segments = name.EncodeLFN(params.Name, name.Checksum(shortRaw))
	}

	slotsNeeded := len(segments) + 1
	addrs, err := d.FindFree(slotsNeeded)
	if err != nil {
		return Entry{}, err
	}

	for i, seg := range segments {
		if err := d.writeSlot(addrs[i], encodeLFNSlot(seg)); err != nil {
			return Entry{}, err
		}
	}

	sfnAddr := addrs[len(addrs)-1]
	raw := rawSFN{
		Attributes:   params.Attributes,
		CreationDate: EncodeDate(params.Created),
		CreationTime: EncodeTime(params.Created),
		AccessedDate: EncodeDate(params.Created),
		ModifiedDate: EncodeDate(params.Modified),
		ModifiedTime: EncodeTime(params.Modified),
		ClusterHigh:  uint16(params.Cluster >> 16),
		ClusterLow:   uint16(params.Cluster & 0xFFFF),
		Size:         params.Size,
	}
	copy(raw.ShortName[:], shortRaw[0:8])
	copy(raw.ShortExt[:], shortRaw[8:11])
	if err := d.writeSlot(sfnAddr, encodeRawSFN(raw)); err != nil {
		return Entry{}, err
	}

	return Entry{
		Name:       params.Name,
		ShortName:  name.DecodeSFN(shortRaw),
		ShortRaw:   shortRaw,
		Attributes: params.Attributes,
		Cluster:    params.Cluster,
		Size:       params.Size,
		Created:    params.Created,
		Modified:   params.Modified,
		Accessed:   params.Created,
		SFNSlot:    sfnAddr,
		LFNSlots:   addrs[:len(addrs)-1],
	}, nil
}

// RemoveEntry overwrites the first byte of every slot backing e (its SFN
// and all attached LFN slots) with 0xE5 and zeroes the remainder, per
// spec.md §4.6. It does not free the entry's cluster chain; callers compose
// this with fat.Table.Free.
func (d *Directory) RemoveEntry(e Entry) error {
	blank := make([]byte, EntrySize)
	blank[0] = SentinelFree
	for _, addr := range e.AllSlots() {
		if err := d.writeSlot(addr, blank); err != nil {
			return err
		}
	}
	return nil
}

// EditEntry applies changes to an existing entry. Renaming removes the old
// slot run and creates a new one (the LFN slot count may change with name
// length); other metadata changes are rewritten in place, per spec.md
// §4.6.
func (d *Directory) EditEntry(e Entry, newName string, newSize uint32, newCluster uint32, modified time.Time) (Entry, error) {
	if newName != "" && newName != e.Name {
		if err := d.RemoveEntry(e); err != nil {
			return Entry{}, err
		}
		return d.NewEntry(NewEntryParams{
			Name:       newName,
			Attributes: e.Attributes,
			Cluster:    e.Cluster,
			Size:       e.Size,
			Created:    e.Created,
			Modified:   modified,
		})
	}

	slot, err := d.readSlot(e.SFNSlot)
	if err != nil {
		return Entry{}, fmt.Errorf("directory: re-reading slot at %d: %w", e.SFNSlot, err)
	}
	raw := decodeRawSFN(slot)
	raw.Size = newSize
	raw.ClusterHigh = uint16(newCluster >> 16)
	raw.ClusterLow = uint16(newCluster & 0xFFFF)
	raw.ModifiedDate = EncodeDate(modified)
	raw.ModifiedTime = EncodeTime(modified)
	if err := d.writeSlot(e.SFNSlot, encodeRawSFN(raw)); err != nil {
		return Entry{}, err
	}

	e.Size = newSize
	e.Cluster = newCluster
	e.Modified = modified
	return e, nil
}
