// Package directory implements the FAT12 directory engine: enumerating,
// locating, creating, and removing 32-byte directory entries across both
// the fixed root region and cluster-chained subdirectories.
//
// Grounded on the teacher's drivers/fat/dirent.go (RawDirent/Dirent,
// DateFromInt/TimestampFromParts) and drivers/fat/driverbase.go's
// ReadDirFromDirent, generalized per spec.md §9's design note to a tagged
// location variant (locationKind: Root vs Chained) so one scan iterator covers both
// storage shapes instead of only the chained case the teacher's reader
// handles. The 0xE5/0x05 deleted-file sentinel escaping the teacher's
// dirent.go performs on read only is implemented on both the encode and
// decode side in the name package (EncodeSFN/DecodeSFN), not here: Scan
// below reads the escaped byte straight off disk and never needs to know
// about the escape itself.
package directory

import (
	"encoding/binary"
	"time"
)

// EntrySize is the fixed size of one on-disk directory entry, SFN or LFN.
const EntrySize = 32

// Attribute bits, per spec.md §3. AttrLFN is the composite value VFAT
// entries use to masquerade as an otherwise-illegal combination of flags.
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeID  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20
	AttrLFN       = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID
)

// First-byte sentinels, per spec.md §3.
const (
	SentinelNeverUsed = 0x00
	SentinelFree      = 0xE5
)

// rawSFN is the on-disk layout of a short-name directory entry.
type rawSFN struct {
	ShortName     [8]byte
	ShortExt      [3]byte
	Attributes    uint8
	NTReserved    uint8
	CreationTenth uint8
	CreationTime  uint16
	CreationDate  uint16
	AccessedDate  uint16
	ClusterHigh   uint16
	ModifiedTime  uint16
	ModifiedDate  uint16
	ClusterLow    uint16
	Size          uint32
}

func decodeRawSFN(slot []byte) rawSFN {
	var r rawSFN
	copy(r.ShortName[:], slot[0:8])
	copy(r.ShortExt[:], slot[8:11])
	r.Attributes = slot[11]
	r.NTReserved = slot[12]
	r.CreationTenth = slot[13]
	r.CreationTime = binary.LittleEndian.Uint16(slot[14:16])
	r.CreationDate = binary.LittleEndian.Uint16(slot[16:18])
	r.AccessedDate = binary.LittleEndian.Uint16(slot[18:20])
	r.ClusterHigh = binary.LittleEndian.Uint16(slot[20:22])
	r.ModifiedTime = binary.LittleEndian.Uint16(slot[22:24])
	r.ModifiedDate = binary.LittleEndian.Uint16(slot[24:26])
	r.ClusterLow = binary.LittleEndian.Uint16(slot[26:28])
	r.Size = binary.LittleEndian.Uint32(slot[28:32])
	return r
}

func encodeRawSFN(r rawSFN) []byte {
	slot := make([]byte, EntrySize)
	copy(slot[0:8], r.ShortName[:])
	copy(slot[8:11], r.ShortExt[:])
	slot[11] = r.Attributes
	slot[12] = r.NTReserved
	slot[13] = r.CreationTenth
	binary.LittleEndian.PutUint16(slot[14:16], r.CreationTime)
	binary.LittleEndian.PutUint16(slot[16:18], r.CreationDate)
	binary.LittleEndian.PutUint16(slot[18:20], r.AccessedDate)
	binary.LittleEndian.PutUint16(slot[20:22], r.ClusterHigh)
	binary.LittleEndian.PutUint16(slot[22:24], r.ModifiedTime)
	binary.LittleEndian.PutUint16(slot[24:26], r.ModifiedDate)
	binary.LittleEndian.PutUint16(slot[26:28], r.ClusterLow)
	binary.LittleEndian.PutUint32(slot[28:32], r.Size)
	return slot
}

// EncodeDate packs a date the way spec.md §3 specifies:
// (year-1980)<<9 | month<<5 | day.
func EncodeDate(t time.Time) uint16 {
	return uint16((t.Year()-1980)<<9) | uint16(t.Month())<<5 | uint16(t.Day())
}

// EncodeTime packs a time of day: hour<<11 | minute<<5 | (second/2).
func EncodeTime(t time.Time) uint16 {
	return uint16(t.Hour())<<11 | uint16(t.Minute())<<5 | uint16(t.Second()/2)
}

// DecodeDateTime reconstructs a local time.Time from packed date and time
// fields, matching the teacher's DateFromInt/TimestampFromParts.
func DecodeDateTime(date, clock uint16) time.Time {
	day := int(date & 0x1F)
	month := time.Month((date >> 5) & 0x0F)
	year := 1980 + int(date>>9)

	second := int(clock&0x1F) * 2
	minute := int((clock >> 5) & 0x3F)
	hour := int(clock >> 11)

	return time.Date(year, month, day, hour, minute, second, 0, time.Local)
}

// Entry is the user-facing representation of a listed file or subdirectory:
// its combined display name (LFN if one was attached, short name
// otherwise), metadata, and the on-disk slot addresses backing it so a
// caller can ask the Volume to mutate it without rescanning, per spec.md
// §9's "Ownership" design note.
type Entry struct {
	Name       string
	ShortName  string
	ShortRaw   [11]byte
	Attributes uint8
	Cluster    uint32
	Size       uint32
	Created    time.Time
	Modified   time.Time
	Accessed   time.Time

	SFNSlot  int64   // absolute byte offset of the SFN slot
	LFNSlots []int64 // absolute byte offsets of LFN slots, descending-ordinal (on-disk) order
}

// IsDirectory reports whether the entry represents a subdirectory.
func (e Entry) IsDirectory() bool {
	return e.Attributes&AttrDirectory != 0
}

// IsFile reports whether the entry is an ordinary file, per spec.md §4.6:
// is_file = ¬(VOLUME_ID ∨ DIRECTORY).
func (e Entry) IsFile() bool {
	return e.Attributes&(AttrVolumeID|AttrDirectory) == 0
}

// AllSlots returns every slot address backing this entry (LFN run followed
// by the SFN), in on-disk order — the exact run remove_entry/edit_entry
// must overwrite.
func (e Entry) AllSlots() []int64 {
	slots := make([]int64, 0, len(e.LFNSlots)+1)
	slots = append(slots, e.LFNSlots...)
	slots = append(slots, e.SFNSlot)
	return slots
}
