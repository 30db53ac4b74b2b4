// Package geometry is the named-format registry from spec.md §4.2: a
// read-only, load-once mapping from a human-readable floppy format name
// ("IBM PC 3.5IN 1.44MB") to the complete set of BPB/EBPB field values that
// format uses.
//
// It generalizes the teacher's disks.DiskGeometry / GetPredefinedDiskGeometry
// mechanism (a keyed table of named presets, parsed once at init from an
// embedded data file via gocsv) from physical-media metadata to the BPB
// field set spec.md §3 defines. Each CSV row plays the role of one INI
// section: the row's Name is the section name, every other column a BPB key.
package geometry

import (
	"fmt"
	"io"
	"strings"

	_ "embed"

	"github.com/gocarina/gocsv"
)

//go:embed geometries.csv
var rawGeometriesCSV string

// Geometry holds every field of the BPB/EBPB needed to format a FAT12 image,
// keyed by a human-readable name. String fields are read verbatim from the
// registry; every other field is base-10 integer, per spec.md §6.
type Geometry struct {
	Name              string `csv:"name"`
	OEMLabel          string `csv:"oem_label"`
	BytesPerSector    uint16 `csv:"bytes_per_sector"`
	SectorsPerCluster uint8  `csv:"sectors_per_cluster"`
	ReservedSectors   uint16 `csv:"reserved_sectors"`
	FATCount          uint8  `csv:"fat_count"`
	RootDirEntries    uint16 `csv:"root_dir_entries"`
	LogicalSectors    uint16 `csv:"logical_sectors"`
	MediaID           uint8  `csv:"media_id"`
	SectorsPerFAT     uint16 `csv:"sectors_per_fat"`
	SectorsPerTrack   uint16 `csv:"sectors_per_track"`
	Sides             uint16 `csv:"sides"`
	HiddenSectors     uint32 `csv:"hidden_sectors"`
	LBASectors        uint32 `csv:"lba_sectors"`
	DriveNumber       uint8  `csv:"drive_number"`
	NTFlag            uint8  `csv:"nt_flag"`
	Signature         uint8  `csv:"signature"`
	VolumeID          uint32 `csv:"volume_id"`
	VolumeLabel       string `csv:"volume_label"`
	FSIdentifier      string `csv:"fs_identifier"`
}

// TotalSizeBytes gives the minimum size of an image file using this geometry.
func (g Geometry) TotalSizeBytes() int64 {
	return int64(g.LogicalSectors) * int64(g.BytesPerSector)
}

var registry = map[string]Geometry{}

func init() {
	reader := strings.NewReader(rawGeometriesCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Geometry) error {
		if _, exists := registry[row.Name]; exists {
			return fmt.Errorf("duplicate geometry definition for %q", row.Name)
		}
		registry[row.Name] = row
		return nil
	})
	if err != nil && err != io.EOF {
		panic(fmt.Sprintf("geometry: failed to parse built-in registry: %s", err))
	}
}

// Get returns the named geometry, or false if no such geometry is
// registered.
func Get(name string) (Geometry, bool) {
	g, ok := registry[name]
	return g, ok
}

// Names returns every registered geometry name, in registry (file) order.
func Names() []string {
	reader := strings.NewReader(rawGeometriesCSV)
	names, err := gocsv.CSVToMaps(reader)
	if err != nil {
		// The embedded file is fixed at compile time and was already parsed
		// successfully in init(), so this can't realistically fail.
		panic(err)
	}
	result := make([]string, 0, len(names))
	for _, row := range names {
		result = append(result, row["name"])
	}
	return result
}
