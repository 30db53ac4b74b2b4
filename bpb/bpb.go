// Package bpb reads and writes the FAT12 BIOS Parameter Block / Extended BPB
// that occupies the first reserved sector of a floppy image, and derives the
// layout offsets (FAT start, root directory start, first data sector) every
// other package needs.
//
// It generalizes the teacher's drivers/fat.NewFATBootSectorFromStream (which
// reads a generic FAT12/16/32 header via binary.Read and derives
// RootDirSectors/TotalClusters/FirstDataSector) down to the FAT12-only case
// spec.md §3 describes, and adds the write half the teacher's reader-only
// code never needed: EncodeBootSector emits a fresh BPB the way
// file_systems/unixv1.Format emits its superblock, via bytewriter.New over a
// preallocated sector-sized slice.
package bpb

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/noxer/bytewriter"
	"github.com/twelvebit/fat12/geometry"
)

// jumpInstruction is the three-byte x86 jump + NOP every FAT boot sector
// opens with, per spec.md §4.3.
var jumpInstruction = [3]byte{0xEB, 0x3C, 0x90}

// rawBPB is the on-disk layout read in fixed order starting at byte 3, per
// spec.md §3. Field order and widths must match exactly; this struct is
// read with encoding/binary (EncodeBootSector writes the same fields one by
// one), not referenced in memory layout.
type rawBPB struct {
	OEMLabel          [8]byte
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	FATCount          uint8
	RootDirEntries    uint16
	LogicalSectors16  uint16
	MediaID           uint8
	SectorsPerFAT     uint16
	SectorsPerTrack   uint16
	Sides             uint16
	HiddenSectors     uint32
	LBASectors        uint32
	DriveNumber       uint8
	NTFlag            uint8
	Signature         uint8
	VolumeID          uint32
	VolumeLabel       [11]byte
	FSIdentifier      [8]byte
}

// BootParameterBlock is the decoded BPB/EBPB plus the derived layout fields
// spec.md §3 lists: root_dir_sectors, first_data_sector, fat_base_byte, and
// root_base_byte.
type BootParameterBlock struct {
	OEMLabel          string
	BytesPerSector    uint16
	SectorsPerCluster uint8
	ReservedSectors   uint16
	FATCount          uint8
	RootDirEntries    uint16
	LogicalSectors    uint32
	MediaID           uint8
	SectorsPerFAT     uint16
	SectorsPerTrack   uint16
	Sides             uint16
	HiddenSectors     uint32
	LBASectors        uint32
	DriveNumber       uint8
	NTFlag            uint8
	Signature         uint8
	VolumeID          uint32
	VolumeLabel       string
	FSIdentifier      string

	RootDirSectors  uint32
	FirstDataSector uint32
	FATBaseByte     int64
	RootBaseByte    int64
	TotalClusters   uint32
}

func trimASCII(raw []byte) string {
	return strings.TrimRight(string(raw), " \x00")
}

func padASCII(s string, width int) []byte {
	out := make([]byte, width)
	for i := range out {
		out[i] = ' '
	}
	copy(out, []byte(strings.ToUpper(s)))
	return out
}

// Read parses the boot sector starting at the beginning of reader, which
// must be positioned at byte 0 of the image (the jump instruction is read
// and discarded). It validates the fields spec.md §9 calls "corruption
// detected" in the teacher's reader and returns ErrCorruptFilesystem-shaped
// errors via the caller; bpb itself returns plain errors, leaving FSError
// wrapping to the fat12 package that calls it.
func Read(reader io.Reader) (*BootParameterBlock, error) {
	var jump [3]byte
	if _, err := io.ReadFull(reader, jump[:]); err != nil {
		return nil, fmt.Errorf("bpb: reading jump instruction: %w", err)
	}

	var raw rawBPB
	if err := binary.Read(reader, binary.LittleEndian, &raw); err != nil {
		return nil, fmt.Errorf("bpb: reading BPB/EBPB: %w", err)
	}

	// Every header field is checked before giving up, rather than bailing out
	// on the first bad one: a foreign or garbage image is just as likely to
	// fail several of these at once, and a caller deciding whether to give up
	// or offer to reformat wants the whole picture in one error.
	var problems *multierror.Error
	if raw.BytesPerSector == 0 {
		problems = multierror.Append(problems, fmt.Errorf("BytesPerSector is 0"))
	}
	switch raw.SectorsPerCluster {
	case 1, 2, 4, 8, 16, 32, 64, 128:
	default:
		problems = multierror.Append(problems, fmt.Errorf(
			"SectorsPerCluster must be a power of 2 in 1-128, got %d", raw.SectorsPerCluster))
	}
	if raw.FATCount == 0 {
		problems = multierror.Append(problems, fmt.Errorf("FATCount is 0"))
	}
	if err := problems.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("bpb: %w", err)
	}

	logicalSectors := uint32(raw.LogicalSectors16)
	if logicalSectors == 0 {
		logicalSectors = raw.LBASectors
	}

	rootDirSectors := uint32((uint32(raw.RootDirEntries)*32 + uint32(raw.BytesPerSector) - 1) / uint32(raw.BytesPerSector))
	firstDataSector := uint32(raw.ReservedSectors) + uint32(raw.FATCount)*uint32(raw.SectorsPerFAT) + rootDirSectors
	dataSectors := logicalSectors - firstDataSector
	totalClusters := dataSectors / uint32(raw.SectorsPerCluster)

	if totalClusters >= 4085 {
		return nil, fmt.Errorf(
			"bpb: %d clusters is out of FAT12 range (max 4084)", totalClusters)
	}

	parsed := &BootParameterBlock{
		OEMLabel:          trimASCII(raw.OEMLabel[:]),
		BytesPerSector:    raw.BytesPerSector,
		SectorsPerCluster: raw.SectorsPerCluster,
		ReservedSectors:   raw.ReservedSectors,
		FATCount:          raw.FATCount,
		RootDirEntries:    raw.RootDirEntries,
		LogicalSectors:    logicalSectors,
		MediaID:           raw.MediaID,
		SectorsPerFAT:     raw.SectorsPerFAT,
		SectorsPerTrack:   raw.SectorsPerTrack,
		Sides:             raw.Sides,
		HiddenSectors:     raw.HiddenSectors,
		LBASectors:        raw.LBASectors,
		DriveNumber:       raw.DriveNumber,
		NTFlag:            raw.NTFlag,
		Signature:         raw.Signature,
		VolumeID:          raw.VolumeID,
		VolumeLabel:       trimASCII(raw.VolumeLabel[:]),
		FSIdentifier:      trimASCII(raw.FSIdentifier[:]),
		RootDirSectors:    rootDirSectors,
		FirstDataSector:   firstDataSector,
		FATBaseByte:       int64(raw.ReservedSectors) * int64(raw.BytesPerSector),
		RootBaseByte:      int64(uint32(raw.ReservedSectors)+uint32(raw.FATCount)*uint32(raw.SectorsPerFAT)) * int64(raw.BytesPerSector),
		TotalClusters:     totalClusters,
	}
	return parsed, nil
}

// FromGeometry builds a BootParameterBlock from a named registry geometry,
// computing the derived layout fields the same way Read does.
func FromGeometry(g geometry.Geometry) *BootParameterBlock {
	rootDirSectors := uint32((uint32(g.RootDirEntries)*32 + uint32(g.BytesPerSector) - 1) / uint32(g.BytesPerSector))
	firstDataSector := uint32(g.ReservedSectors) + uint32(g.FATCount)*uint32(g.SectorsPerFAT) + rootDirSectors
	dataSectors := uint32(g.LogicalSectors) - firstDataSector
	totalClusters := dataSectors / uint32(g.SectorsPerCluster)

	return &BootParameterBlock{
		OEMLabel:          g.OEMLabel,
		BytesPerSector:    g.BytesPerSector,
		SectorsPerCluster: g.SectorsPerCluster,
		ReservedSectors:   g.ReservedSectors,
		FATCount:          g.FATCount,
		RootDirEntries:    g.RootDirEntries,
		LogicalSectors:    uint32(g.LogicalSectors),
		MediaID:           g.MediaID,
		SectorsPerFAT:     g.SectorsPerFAT,
		SectorsPerTrack:   g.SectorsPerTrack,
		Sides:             g.Sides,
		HiddenSectors:     g.HiddenSectors,
		LBASectors:        g.LBASectors,
		DriveNumber:       g.DriveNumber,
		NTFlag:            g.NTFlag,
		Signature:         g.Signature,
		VolumeID:          g.VolumeID,
		VolumeLabel:       g.VolumeLabel,
		FSIdentifier:      g.FSIdentifier,
		RootDirSectors:    rootDirSectors,
		FirstDataSector:   firstDataSector,
		FATBaseByte:       int64(g.ReservedSectors) * int64(g.BytesPerSector),
		RootBaseByte:      int64(uint32(g.ReservedSectors)+uint32(g.FATCount)*uint32(g.SectorsPerFAT)) * int64(g.BytesPerSector),
		TotalClusters:     totalClusters,
	}
}

// EncodeBootSector renders the jump instruction and BPB/EBPB into sector,
// which must already be BytesPerSector bytes long (normally a sector sliced
// out of a freshly zeroed image). Grounded directly on the teacher's
// bytewriter.New(outputSlice) idiom (file_systems/unixv1/format.go): a
// sequence of binary.Write calls against a writer backed by the destination
// slice itself, rather than building up a separate buffer to copy from.
func (b *BootParameterBlock) EncodeBootSector(sector []byte) error {
	if len(sector) != int(b.BytesPerSector) {
		return fmt.Errorf(
			"bpb: sector buffer must be %d bytes, got %d", b.BytesPerSector, len(sector))
	}
	writer := bytewriter.New(sector)
	if _, err := writer.Write(jumpInstruction[:]); err != nil {
		return err
	}

	fields := []any{
		padASCII8(b.OEMLabel),
		b.BytesPerSector,
		b.SectorsPerCluster,
		b.ReservedSectors,
		b.FATCount,
		b.RootDirEntries,
		uint16FitOrZero(b.LogicalSectors),
		b.MediaID,
		b.SectorsPerFAT,
		b.SectorsPerTrack,
		b.Sides,
		b.HiddenSectors,
		b.LBASectors,
		b.DriveNumber,
		b.NTFlag,
		b.Signature,
		b.VolumeID,
		padASCII11(b.VolumeLabel),
		padASCII8(b.FSIdentifier),
	}
	for _, f := range fields {
		if err := binary.Write(writer, binary.LittleEndian, f); err != nil {
			return fmt.Errorf("bpb: writing field %T: %w", f, err)
		}
	}
	return nil
}

func uint16FitOrZero(v uint32) uint16 {
	if v > 0xFFFF {
		return 0
	}
	return uint16(v)
}

func padASCII8(s string) [8]byte {
	var out [8]byte
	copy(out[:], padASCII(s, 8))
	return out
}

func padASCII11(s string) [11]byte {
	var out [11]byte
	copy(out[:], padASCII(s, 11))
	return out
}
