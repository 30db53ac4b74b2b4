// Package image provides a sector-granular view of a FAT12 disk image backed
// by any seekable byte stream.
//
// It generalizes the teacher's drivers/common.BlockStream (a block-oriented
// wrapper around io.ReadWriteSeeker) to the terms spec.md §4.1 uses: sectors
// instead of blocks, and absolute-byte helpers alongside sector-indexed ones
// so callers that already know a BPB-derived byte offset (fat_base_byte,
// root_base_byte, ...) don't have to round-trip through a sector number.
package image

import (
	"fmt"
	"io"
)

// Image is a byte-addressable, seekable view of a FAT12 floppy image. All
// offsets are absolute from the start of the image; there is no implicit
// buffering beyond whatever the backing stream provides.
type Image struct {
	BytesPerSector uint
	TotalSectors   uint
	stream         io.ReadWriteSeeker
}

// New wraps stream as an Image with the given sector geometry. stream is not
// read or validated here; callers typically follow with bpb.Read to learn
// the real geometry, then build a correctly-sized Image over the same
// stream (see Stream).
func New(stream io.ReadWriteSeeker, bytesPerSector, totalSectors uint) *Image {
	return &Image{
		BytesPerSector: bytesPerSector,
		TotalSectors:   totalSectors,
		stream:         stream,
	}
}

// Size returns the logical size of the image in bytes.
func (img *Image) Size() int64 {
	return int64(img.BytesPerSector) * int64(img.TotalSectors)
}

// Stream returns the backing io.ReadWriteSeeker, so callers (Volume.Format)
// can rebuild an Image with a different sector geometry over the same
// storage once the real BPB is known.
func (img *Image) Stream() io.ReadWriteSeeker {
	return img.stream
}

func (img *Image) checkBounds(offset int64, length int) error {
	if offset < 0 || length < 0 {
		return fmt.Errorf("negative offset or length: offset=%d length=%d", offset, length)
	}
	if offset+int64(length) > img.Size() {
		return fmt.Errorf(
			"read/write of %d bytes at offset %d extends past end of image (size %d)",
			length, offset, img.Size())
	}
	return nil
}

// ReadAt reads len(buffer) bytes starting at the given absolute byte offset.
func (img *Image) ReadAt(offset int64, buffer []byte) error {
	if err := img.checkBounds(offset, len(buffer)); err != nil {
		return err
	}
	if _, err := img.stream.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	n, err := io.ReadFull(img.stream, buffer)
	if err != nil {
		return err
	}
	if n != len(buffer) {
		return fmt.Errorf("short read at offset %d: wanted %d bytes, got %d", offset, len(buffer), n)
	}
	return nil
}

// WriteAt writes data at the given absolute byte offset.
func (img *Image) WriteAt(offset int64, data []byte) error {
	if err := img.checkBounds(offset, len(data)); err != nil {
		return err
	}
	if _, err := img.stream.Seek(offset, io.SeekStart); err != nil {
		return err
	}
	n, err := img.stream.Write(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("short write at offset %d: wanted %d bytes, wrote %d", offset, len(data), n)
	}
	return nil
}

// sectorToOffset converts a logical sector number to an absolute byte offset,
// bounds-checking it against TotalSectors.
func (img *Image) sectorToOffset(lba uint) (int64, error) {
	if lba >= img.TotalSectors {
		return 0, fmt.Errorf("invalid sector %d: not in range [0, %d)", lba, img.TotalSectors)
	}
	return int64(lba) * int64(img.BytesPerSector), nil
}

// ReadSector reads a single sector.
func (img *Image) ReadSector(lba uint) ([]byte, error) {
	return img.ReadSectors(lba, 1)
}

// ReadSectors reads count consecutive sectors starting at lba.
func (img *Image) ReadSectors(lba uint, count uint) ([]byte, error) {
	offset, err := img.sectorToOffset(lba)
	if err != nil {
		return nil, err
	}
	buffer := make([]byte, count*img.BytesPerSector)
	if err := img.ReadAt(offset, buffer); err != nil {
		return nil, err
	}
	return buffer, nil
}

// WriteSector writes exactly one sector's worth of data.
func (img *Image) WriteSector(lba uint, data []byte) error {
	if uint(len(data)) != img.BytesPerSector {
		return fmt.Errorf(
			"data must be exactly one sector (%d bytes), got %d", img.BytesPerSector, len(data))
	}
	offset, err := img.sectorToOffset(lba)
	if err != nil {
		return err
	}
	return img.WriteAt(offset, data)
}

// WriteSectors writes a whole number of consecutive sectors starting at lba.
func (img *Image) WriteSectors(lba uint, data []byte) error {
	if uint(len(data))%img.BytesPerSector != 0 {
		return fmt.Errorf(
			"data must be a multiple of the sector size (%d B), got %d",
			img.BytesPerSector, len(data))
	}
	offset, err := img.sectorToOffset(lba)
	if err != nil {
		return err
	}
	return img.WriteAt(offset, data)
}

// ZeroFill overwrites the entire image with null bytes, used by Format before
// writing a fresh BPB and FAT.
func (img *Image) ZeroFill() error {
	zeros := make([]byte, img.BytesPerSector)
	for lba := uint(0); lba < img.TotalSectors; lba++ {
		if err := img.WriteSector(lba, zeros); err != nil {
			return err
		}
	}
	return nil
}
