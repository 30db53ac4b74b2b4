// Volume operations: mount, unmount, format, install boot sector, and
// directory traversal, grounded on the original Slither source's mount/
// formatDisk/addBootloader and the teacher's drivers/fat8/formattingdriver.go
// (Format: zero-fill, write FAT/reserved markers, compute layout).
package fat12

import (
	"io"
	"time"

	"github.com/twelvebit/fat12/bpb"
	"github.com/twelvebit/fat12/directory"
	"github.com/twelvebit/fat12/fat"
	"github.com/twelvebit/fat12/geometry"
	"github.com/twelvebit/fat12/image"
)

// defaultSectorSize is assumed for a blank, not-yet-formatted image: every
// geometry in the registry uses 512-byte sectors, and a freshly created
// image file has no BPB yet to read one from.
const defaultSectorSize = 512

// Volume is a mounted FAT12 image: its image I/O handle, decoded BPB, FAT
// table, and current-directory traversal state. Per spec.md §9's
// "Ownership" design note, a Volume exclusively owns its image handle and
// buffered BPB; no package-level state is kept anywhere in this module.
type Volume struct {
	img   *image.Image
	bpb   *bpb.BootParameterBlock
	table *fat.Table
	ready bool // true once a valid BPB/FAT has been parsed or written

	// currentCluster is 0 for the root directory (the root sentinel, per
	// spec.md §4.9), or the first cluster of the current subdirectory.
	currentCluster uint32
	path           []string
}

// Mount opens stream for reading and writing and attempts to parse its
// BPB/EBPB, per spec.md §4.8. sizeBytes is the caller-known size of the
// backing image (a freshly created, not-yet-formatted image has no BPB to
// derive its own size from, so the caller — a CLI doing os.Stat, or a test
// sizing its in-memory buffer — supplies it). If the image doesn't parse as
// a valid FAT12 filesystem yet, Mount still succeeds (mirroring the
// original Slither mount(), which never validated the header) but the
// Volume is not "ready": every operation except Format and
// InstallBootloader fails with ErrCorruptFilesystem until Format runs.
func Mount(stream io.ReadWriteSeeker, sizeBytes int64) (*Volume, error) {
	if sizeBytes <= 0 {
		return nil, newError(ErrImageIO, "image size must be positive")
	}

	provisionalSectors := uint(sizeBytes) / defaultSectorSize
	img := image.New(stream, defaultSectorSize, provisionalSectors)

	v := &Volume{img: img}

	sector0, err := img.ReadSector(0)
	if err == nil {
		if parsed, err := bpb.Read(byteReader(sector0)); err == nil {
			realImg := image.New(stream, uint(parsed.BytesPerSector), uint(parsed.LogicalSectors))
			table, err := fat.Load(realImg, parsed.FATBaseByte, parsed.SectorsPerFAT, parsed.FATCount, parsed.TotalClusters)
			if err == nil {
				v.img = realImg
				v.bpb = parsed
				v.table = table
				v.ready = true
			}
		}
	}

	return v, nil
}

// byteReader adapts a byte slice to io.Reader without pulling in bytes.Reader
// at every call site; it's a one-line indirection kept here because bpb.Read
// only needs sequential reads, never seeking.
func byteReader(b []byte) io.Reader {
	return &sliceReader{data: b}
}

type sliceReader struct {
	data []byte
	pos  int
}

func (r *sliceReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

// Unmount clears the Volume's in-memory state. There is nothing to flush
// explicitly: every write already goes straight through to the backing
// stream (spec.md §4.1, "no implicit buffering").
func (v *Volume) Unmount() error {
	v.img = nil
	v.bpb = nil
	v.table = nil
	v.ready = false
	v.currentCluster = 0
	v.path = nil
	return nil
}

func (v *Volume) requireReady() error {
	if v.img == nil {
		return newError(ErrNotMounted, "no image is mounted")
	}
	if !v.ready {
		return newError(ErrCorruptFilesystem, "image has no valid FAT12 filesystem; format it first")
	}
	return nil
}

// Geometries returns the names of every built-in geometry, per spec.md
// §6's Volume.geometries().
func Geometries() []string {
	return geometry.Names()
}

// Format requires the volume to be mounted (spec.md §4.8), looks up the
// named geometry, zero-fills the entire image, and writes the jump
// instruction, BPB/EBPB, and FAT-ID marker, per spec.md §4.3. All FAT
// copies are initialized identically from the start.
func (v *Volume) Format(geometryName string) error {
	if v.img == nil {
		return newError(ErrNotMounted, "no image is mounted")
	}
	g, ok := geometry.Get(geometryName)
	if !ok {
		return newErrorf(ErrFormatDoesNotExist, "no such geometry: %q", geometryName)
	}

	newImg := image.New(v.img.Stream(), uint(g.BytesPerSector), uint(g.LogicalSectors))
	if err := newImg.ZeroFill(); err != nil {
		return wrapError(ErrImageIO, "zeroing image before format", err)
	}

	parsed := bpb.FromGeometry(g)

	sector0, err := newImg.ReadSector(0)
	if err != nil {
		return wrapError(ErrImageIO, "reading sector 0 to render boot sector", err)
	}
	if err := parsed.EncodeBootSector(sector0); err != nil {
		return wrapError(ErrImageIO, "encoding boot sector", err)
	}
	if err := newImg.WriteSector(0, sector0); err != nil {
		return wrapError(ErrImageIO, "writing boot sector", err)
	}

	table := fat.NewBlank(newImg, parsed.FATBaseByte, parsed.SectorsPerFAT, parsed.FATCount, parsed.TotalClusters, parsed.MediaID)
	// NewBlank only initializes the in-memory view; push reserved entries
	// 0 and 1 through Set so every on-disk FAT copy gets the F0 FF FF-style
	// marker, mirrored per spec.md §9.
	if err := table.Set(0, table.Get(0)); err != nil {
		return wrapError(ErrImageIO, "writing FAT-ID marker", err)
	}
	if err := table.Set(1, table.Get(1)); err != nil {
		return wrapError(ErrImageIO, "writing reserved entry 1", err)
	}

	// Root directory region starts life zeroed (all entries 0x00, "never
	// used"), which ZeroFill already guaranteed.

	v.img = newImg
	v.bpb = parsed
	v.table = table
	v.ready = true
	v.currentCluster = 0
	v.path = nil
	return nil
}

// InstallBootloader pads data to a sector boundary with zeros and writes it
// from offset 0, per spec.md §4.8. There is no BPB re-injection: callers
// who care must pre-merge their bootloader with BPB bytes.
func (v *Volume) InstallBootloader(data []byte) error {
	if v.img == nil {
		return newError(ErrNotMounted, "no image is mounted")
	}
	padded := data
	if rem := len(data) % int(v.img.BytesPerSector); rem != 0 {
		padded = make([]byte, len(data)+int(v.img.BytesPerSector)-rem)
		copy(padded, data)
	}
	if err := v.img.WriteAt(0, padded); err != nil {
		return wrapError(ErrImageIO, "installing bootloader", err)
	}
	return nil
}

// currentDirectory builds a directory.Directory for wherever the Volume's
// traversal cursor currently points.
func (v *Volume) currentDirectory() *directory.Directory {
	if v.currentCluster == 0 {
		return directory.NewRoot(v.img, v.table, v.bpb.RootBaseByte, v.bpb.RootDirEntries)
	}
	firstDataByte := int64(v.bpb.FirstDataSector) * int64(v.bpb.BytesPerSector)
	bytesPerCluster := uint(v.bpb.SectorsPerCluster) * uint(v.bpb.BytesPerSector)
	return directory.NewChained(v.img, v.table, v.currentCluster, firstDataByte, bytesPerCluster)
}

// BytesPerCluster returns the size of one cluster for the mounted geometry.
func (v *Volume) BytesPerCluster() uint {
	return uint(v.bpb.SectorsPerCluster) * uint(v.bpb.BytesPerSector)
}

// ListDir returns the current directory's listing, per spec.md §6's
// Volume.list_dir().
func (v *Volume) ListDir() (*directory.Listing, error) {
	if err := v.requireReady(); err != nil {
		return nil, err
	}
	listing, err := v.currentDirectory().Scan()
	if err != nil {
		return nil, wrapError(ErrImageIO, "scanning directory", err)
	}
	return listing, nil
}

// ChangeDir implements spec.md §4.9: "." is a no-op, ".." pops the path
// (staying at root if already there), anything else must name a
// DIRECTORY-attribute entry in the current directory.
func (v *Volume) ChangeDir(name string) error {
	if err := v.requireReady(); err != nil {
		return err
	}
	switch name {
	case ".":
		return nil
	case "..":
		if len(v.path) == 0 {
			v.currentCluster = 0
			return nil
		}
		v.path = v.path[:len(v.path)-1]
		v.currentCluster = v.parentClusterOfPath()
		return nil
	}

	listing, err := v.currentDirectory().Scan()
	if err != nil {
		return wrapError(ErrImageIO, "scanning directory", err)
	}
	entry, ok := listing.Get(name)
	if !ok {
		return newErrorf(ErrFileDoesNotExist, "%s", name)
	}
	if !entry.IsDirectory() {
		return newErrorf(ErrNotFile, "%s is not a directory", name)
	}

	v.currentCluster = entry.Cluster
	v.path = append(v.path, name)
	return nil
}

// parentClusterOfPath walks from the root down v.path (minus its final
// element, which ChangeDir(".. ") has already popped) to find the cluster
// of the new current directory. The root has no ".." entry of its own in
// this implementation's minimal traversal model, so the walk always starts
// fresh from cluster 0.
func (v *Volume) parentClusterOfPath() uint32 {
	cluster := uint32(0)
	for _, segment := range v.path {
		dir := directory.NewRoot(v.img, v.table, v.bpb.RootBaseByte, v.bpb.RootDirEntries)
		if cluster != 0 {
			firstDataByte := int64(v.bpb.FirstDataSector) * int64(v.bpb.BytesPerSector)
			dir = directory.NewChained(v.img, v.table, cluster, firstDataByte, v.BytesPerCluster())
		}
		listing, err := dir.Scan()
		if err != nil {
			return 0
		}
		entry, ok := listing.Get(segment)
		if !ok {
			return 0
		}
		cluster = entry.Cluster
	}
	return cluster
}

// now is the local wall-clock used for creation/modification stamps, per
// spec.md §9: "no timezone metadata is preserved by FAT."
func now() time.Time {
	return time.Now()
}
