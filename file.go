// File operations: read, write (overwrite), rename, and delete, grounded on
// the original Slither source's readFile/addFile/renameFile/deleteFile.
package fat12

import (
	"github.com/twelvebit/fat12/directory"
)

func (v *Volume) lookup(name string) (directory.Entry, error) {
	listing, err := v.currentDirectory().Scan()
	if err != nil {
		return directory.Entry{}, wrapError(ErrImageIO, "scanning directory", err)
	}
	entry, ok := listing.Get(name)
	if !ok {
		return directory.Entry{}, newErrorf(ErrFileDoesNotExist, "%s", name)
	}
	return entry, nil
}

// ReadFile reads ceil(size/bytesPerCluster) clusters from the named file's
// chain and truncates the tail to exactly Size bytes, per spec.md §4.7.
func (v *Volume) ReadFile(name string) ([]byte, error) {
	if err := v.requireReady(); err != nil {
		return nil, err
	}
	entry, err := v.lookup(name)
	if err != nil {
		return nil, err
	}
	if !entry.IsFile() {
		return nil, newErrorf(ErrNotFile, "%s is not a regular file", name)
	}
	if entry.Size == 0 {
		return []byte{}, nil
	}

	chain, err := v.table.Chain(entry.Cluster)
	if err != nil && len(chain) == 0 {
		return nil, wrapError(ErrCorruptFilesystem, "walking cluster chain for "+name, err)
	}

	bytesPerCluster := v.BytesPerCluster()
	if needed := (int(entry.Size) + int(bytesPerCluster) - 1) / int(bytesPerCluster); len(chain) > needed {
		chain = chain[:needed]
	}
	firstDataByte := int64(v.bpb.FirstDataSector) * int64(v.bpb.BytesPerSector)

	buffer := make([]byte, 0, len(chain)*int(bytesPerCluster))
	for _, cluster := range chain {
		clusterBase := firstDataByte + int64(cluster-2)*int64(bytesPerCluster)
		data := make([]byte, bytesPerCluster)
		if err := v.img.ReadAt(clusterBase, data); err != nil {
			return nil, wrapError(ErrImageIO, "reading cluster for "+name, err)
		}
		buffer = append(buffer, data...)
	}

	if uint32(len(buffer)) < entry.Size {
		return nil, newErrorf(ErrCorruptFilesystem, "%s: chain holds %d bytes, entry claims %d", name, len(buffer), entry.Size)
	}
	return buffer[:entry.Size], nil
}

// WriteFile implements overwrite semantics, per spec.md §4.7: an existing
// entry with this name is deleted first, then fresh clusters are allocated
// and the content is written sector-aligned with the final sector
// zero-padded, and a new directory entry is created. FAT allocation is
// committed before the directory entry is written, per spec.md §5's
// ordering guarantee (a). If writing the content or creating the entry
// fails, the newly allocated chain is freed again.
func (v *Volume) WriteFile(name string, content []byte) error {
	if err := v.requireReady(); err != nil {
		return err
	}

	if _, err := v.lookup(name); err == nil {
		if err := v.DeleteFile(name); err != nil {
			return err
		}
	}

	bytesPerCluster := v.BytesPerCluster()
	clustersNeeded := 0
	if len(content) > 0 {
		clustersNeeded = (len(content) + int(bytesPerCluster) - 1) / int(bytesPerCluster)
	}

	var firstCluster uint32
	if clustersNeeded > 0 {
		chain, err := v.table.Allocate(clustersNeeded)
		if err != nil {
			return newErrorf(ErrNoFreeClusters, "%s: %s", name, err)
		}
		firstCluster = chain[0]

		firstDataByte := int64(v.bpb.FirstDataSector) * int64(v.bpb.BytesPerSector)
		for i, cluster := range chain {
			start := i * int(bytesPerCluster)
			end := start + int(bytesPerCluster)
			clusterData := make([]byte, bytesPerCluster)
			if start < len(content) {
				copy(clusterData, content[start:min(end, len(content))])
			}
			clusterBase := firstDataByte + int64(cluster-2)*int64(bytesPerCluster)
			if err := v.img.WriteAt(clusterBase, clusterData); err != nil {
				_ = v.table.Free(firstCluster)
				return wrapError(ErrImageIO, "writing cluster for "+name, err)
			}
		}
	}

	stamp := now()
	if _, err := v.currentDirectory().NewEntry(directory.NewEntryParams{
		Name:       name,
		Attributes: directory.AttrArchive,
		Cluster:    firstCluster,
		Size:       uint32(len(content)),
		Created:    stamp,
		Modified:   stamp,
	}); err != nil {
		if firstCluster != 0 {
			_ = v.table.Free(firstCluster)
		}
		return newErrorf(ErrNoFreeEntries, "%s: %s", name, err)
	}
	return nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// RenameFile fails with ErrFileExists if new already exists, ErrFileDoesNotExist
// if old does not, and otherwise renames it through Directory.EditEntry,
// which frees the old slot run and writes a new one, per spec.md §4.7.
func (v *Volume) RenameFile(oldName, newName string) error {
	if err := v.requireReady(); err != nil {
		return err
	}
	if _, err := v.lookup(newName); err == nil {
		return newErrorf(ErrFileExists, "%s", newName)
	}
	entry, err := v.lookup(oldName)
	if err != nil {
		return err
	}

	_, err = v.currentDirectory().EditEntry(entry, newName, entry.Size, entry.Cluster, now())
	if err != nil {
		return wrapError(ErrImageIO, "renaming "+oldName, err)
	}
	return nil
}

// DeleteFile fails with ErrFileDoesNotExist if absent; otherwise frees the
// cluster chain before marking the directory entry free, per spec.md §4.7's
// ordering: chain first, entry last, so an interruption between the two
// steps can leave an entry whose clusters are already free, but never an
// allocated chain with no owning entry.
func (v *Volume) DeleteFile(name string) error {
	if err := v.requireReady(); err != nil {
		return err
	}
	entry, err := v.lookup(name)
	if err != nil {
		return err
	}

	if entry.Cluster != 0 {
		if err := v.table.Free(entry.Cluster); err != nil {
			return wrapError(ErrCorruptFilesystem, "freeing chain for "+name, err)
		}
	}
	if err := v.currentDirectory().RemoveEntry(entry); err != nil {
		return wrapError(ErrImageIO, "removing entry for "+name, err)
	}
	return nil
}
