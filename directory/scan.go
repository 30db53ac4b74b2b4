package directory

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/exp/slices"

	"github.com/twelvebit/fat12/name"
)

// scanState is the explicit enum spec.md §9 calls for, rather than relying
// on ad-hoc control flow: "encode the SEEK_NEXT / IN_LFN_RUN / EMIT_SFN
// machine as an explicit enum."
type scanState int

const (
	stateSeekNext scanState = iota
	stateInLFNRun
	stateEmitSFN
)

// Listing is the ordered collection list(dir) returns, per spec.md §4.6:
// disk order is preserved (a Go map has none), and name lookup is O(1) via
// a parallel index rather than a linear scan.
type Listing struct {
	entries []Entry
	index   map[string]int
}

func newListing() *Listing {
	return &Listing{index: map[string]int{}}
}

func (l *Listing) add(e Entry) {
	l.index[e.Name] = len(l.entries)
	l.entries = append(l.entries, e)
}

// Entries returns every entry in disk order.
func (l *Listing) Entries() []Entry {
	return l.entries
}

// Get looks up an entry by its display name (case-sensitive; callers that
// want DOS-style case-insensitive lookup should fold before calling).
func (l *Listing) Get(name string) (Entry, bool) {
	idx, ok := l.index[name]
	if !ok {
		return Entry{}, false
	}
	return l.entries[idx], true
}

// Names returns every entry name in lexical order, using
// golang.org/x/exp/slices.Sort, matching the teacher's use of
// golang.org/x/exp/slices in drivers/common/basedriver for directory-name
// bookkeeping.
func (l *Listing) Names() []string {
	names := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		names = append(names, e.Name)
	}
	slices.Sort(names)
	return names
}

func decodeLFNSlot(slot []byte) name.LFNSegment {
	var seg name.LFNSegment
	seg.Ordinal = slot[0]
	for i := 0; i < 5; i++ {
		seg.Codeunits[i] = binary.LittleEndian.Uint16(slot[1+i*2 : 3+i*2])
	}
	seg.Checksum = slot[13]
	for i := 0; i < 6; i++ {
		seg.Codeunits[5+i] = binary.LittleEndian.Uint16(slot[14+i*2 : 16+i*2])
	}
	for i := 0; i < 2; i++ {
		seg.Codeunits[11+i] = binary.LittleEndian.Uint16(slot[28+i*2 : 30+i*2])
	}
	return seg
}

func encodeLFNSlot(seg name.LFNSegment) []byte {
	slot := make([]byte, EntrySize)
	slot[0] = seg.Ordinal
	for i := 0; i < 5; i++ {
		binary.LittleEndian.PutUint16(slot[1+i*2:3+i*2], seg.Codeunits[i])
	}
	slot[11] = AttrLFN
	slot[12] = 0
	slot[13] = seg.Checksum
	for i := 0; i < 6; i++ {
		binary.LittleEndian.PutUint16(slot[14+i*2:16+i*2], seg.Codeunits[5+i])
	}
	slot[26] = 0
	slot[27] = 0
	for i := 0; i < 2; i++ {
		binary.LittleEndian.PutUint16(slot[28+i*2:30+i*2], seg.Codeunits[11+i])
	}
	return slot
}

// Scan walks every slot in the directory per spec.md §4.6's state machine,
// accumulating contiguous LFN runs and attaching them to the following SFN
// iff their checksum matches its raw 11-byte name. VOLUME_ID entries are
// rejected from the listing. Scanning stops at the first never-used
// (0x00) slot.
func (d *Directory) Scan() (*Listing, error) {
	addrs, err := d.slotAddresses()
	if err != nil {
		return nil, err
	}

	listing := newListing()
	state := stateSeekNext
	var pendingLFN []name.LFNSegment // descending-ordinal order as read
	var pendingAddrs []int64

	resetPending := func() {
		pendingLFN = nil
		pendingAddrs = nil
		state = stateSeekNext
	}

	for _, addr := range addrs {
		slot, err := d.readSlot(addr)
		if err != nil {
			return nil, fmt.Errorf("directory: reading slot at %d: %w", addr, err)
		}

		switch slot[0] {
		case SentinelNeverUsed:
			return listing, nil
		case SentinelFree:
			resetPending()
			continue
		}

		attrs := slot[11]
		if attrs == AttrLFN {
			state = stateInLFNRun
			seg := decodeLFNSlot(slot)
			pendingLFN = append(pendingLFN, seg)
			pendingAddrs = append(pendingAddrs, addr)
			continue
		}

		inLFNRun := state == stateInLFNRun
		state = stateEmitSFN
		raw := decodeRawSFN(slot)
		if raw.Attributes&AttrVolumeID != 0 {
			resetPending()
			continue
		}

		var shortRaw [11]byte
		copy(shortRaw[:8], raw.ShortName[:])
		copy(shortRaw[8:], raw.ShortExt[:])

		shortName := name.DecodeSFN(shortRaw)
		displayName := shortName
		if inLFNRun && len(pendingLFN) > 0 {
			checksum := name.Checksum(shortRaw)
			if pendingLFN[0].Checksum == checksum {
				if decoded, err := name.DecodeLFN(pendingLFN); err == nil {
					displayName = decoded
				}
			}
		}

		entry := Entry{
			Name:       displayName,
			ShortName:  shortName,
			ShortRaw:   shortRaw,
			Attributes: raw.Attributes,
			Cluster:    (uint32(raw.ClusterHigh) << 16) | uint32(raw.ClusterLow),
			Size:       raw.Size,
			Created:    DecodeDateTime(raw.CreationDate, raw.CreationTime),
			Modified:   DecodeDateTime(raw.ModifiedDate, raw.ModifiedTime),
			Accessed:   DecodeDateTime(raw.AccessedDate, 0),
			SFNSlot:    addr,
			LFNSlots:   append([]int64(nil), pendingAddrs...),
		}
		listing.add(entry)
		resetPending()
	}

	return listing, nil
}
