package name

import (
	"fmt"
	"unicode/utf16"
)

// LFNSegmentRunes is the number of UCS-2 codeunits packed into a single VFAT
// long-name directory entry (5 + 6 + 2), per spec.md §3.
const LFNSegmentRunes = 13

// LFNSegment is one 32-byte VFAT entry's worth of decoded long-name data:
// its ordinal (with the 0x40 "last" bit already applied by EncodeLFN) and
// its 13 UCS-2 codeunits, still including any 0x0000 terminator or 0xFFFF
// padding.
type LFNSegment struct {
	Ordinal   uint8
	Codeunits [LFNSegmentRunes]uint16
	Checksum  byte
}

// lastOrdinalBit marks the entry written for the highest ordinal in a run;
// per spec.md §3 it's the "last-physically-written / logically-first" entry
// on disk, since LFN entries precede their SFN in descending ordinal order.
const lastOrdinalBit = 0x40

// EncodeLFN splits longName into one LFNSegment per 13 UCS-2 codeunits,
// terminated by a single 0x0000 and padded to a multiple of 13 with 0xFFFF,
// per spec.md §4.5. Segments are returned in descending ordinal order
// (highest ordinal first), matching on-disk write order; the highest
// ordinal carries the 0x40 bit.
func EncodeLFN(longName string, checksum byte) []LFNSegment {
	units := utf16.Encode([]rune(longName))
	units = append(units, 0x0000)
	for len(units)%LFNSegmentRunes != 0 {
		units = append(units, 0xFFFF)
	}

	segmentCount := len(units) / LFNSegmentRunes
	segments := make([]LFNSegment, segmentCount)
	for i := 0; i < segmentCount; i++ {
		var seg LFNSegment
		seg.Ordinal = uint8(i + 1)
		seg.Checksum = checksum
		copy(seg.Codeunits[:], units[i*LFNSegmentRunes:(i+1)*LFNSegmentRunes])
		segments[i] = seg
	}
	segments[segmentCount-1].Ordinal |= lastOrdinalBit

	// Reverse into descending-ordinal (on-disk) order.
	reversed := make([]LFNSegment, segmentCount)
	for i, seg := range segments {
		reversed[segmentCount-1-i] = seg
	}
	return reversed
}

// DecodeLFN reassembles the long name from a run of segments in on-disk
// order (descending ordinal: highest first, ordinal 1 last), stopping at
// the first 0x0000 terminator codeunit. It does not validate checksums;
// callers compare Segment.Checksum against name.Checksum(sfnRaw) themselves,
// per the directory engine's "attach iff checksum matches" rule.
func DecodeLFN(segmentsDescending []LFNSegment) (string, error) {
	if len(segmentsDescending) == 0 {
		return "", fmt.Errorf("name: no LFN segments to decode")
	}

	// Ascending ordinal order reconstructs the name left to right.
	ascending := make([]LFNSegment, len(segmentsDescending))
	for i, seg := range segmentsDescending {
		ascending[len(segmentsDescending)-1-i] = seg
	}

	var units []uint16
	for _, seg := range ascending {
		units = append(units, seg.Codeunits[:]...)
	}

	terminator := len(units)
	for i, u := range units {
		if u == 0x0000 {
			terminator = i
			break
		}
	}
	return string(utf16.Decode(units[:terminator])), nil
}

// OrdinalIndex strips the 0x40 "last" bit, returning the plain 1..20
// sequence number of a segment within its run.
func OrdinalIndex(ordinal uint8) int {
	return int(ordinal &^ lastOrdinalBit)
}

// IsLastOrdinal reports whether the 0x40 bit is set.
func IsLastOrdinal(ordinal uint8) bool {
	return ordinal&lastOrdinalBit != 0
}
