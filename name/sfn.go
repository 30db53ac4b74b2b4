// Package name implements the FAT12 name codec: 8.3 short-name validation
// and encoding, VFAT long-name packing/unpacking with its checksum, and
// short-name collision mangling for names that don't fit the 8.3 form.
//
// Grounded on the teacher's drivers/fat8/common.go (FilenameToBytes /
// BytesToFilename, the fmt.Sprintf("%-6s%-3s", ...) padding idiom) and
// drivers/fat/dirent.go's name-reconstruction logic, generalized from FAT8's
// 6.3 names to FAT12's 8.3 names plus the VFAT long-name extension the
// original Slither source (`_to_sfn`) and spec.md §4.5 describe.
package name

import (
	"fmt"
	"strings"
)

// legalSFNChars is the set of byte values spec.md §4.5 permits in an 8.3
// short name, expressed as a lookup table rather than repeated range
// checks.
var legalSFNChars = buildLegalSFNTable()

func buildLegalSFNTable() [256]bool {
	var table [256]bool
	mark := func(lo, hi int) {
		for c := lo; c <= hi; c++ {
			table[c] = true
		}
	}
	table[0x20] = true
	table[0x21] = true
	table[0x2D] = true
	mark(0x23, 0x29)
	mark(0x30, 0x39)
	table[0x40] = true
	mark(0x41, 0x5A)
	mark(0x5E, 0x60)
	table[0x7B] = true
	table[0x7D] = true
	table[0x7E] = true
	mark(0x80, 0xFF)
	return table
}

func isLegalSFNByte(b byte) bool {
	return legalSFNChars[b]
}

func splitBaseExt(s string) (base, ext string) {
	idx := strings.LastIndex(s, ".")
	if idx < 0 {
		return s, ""
	}
	return s[:idx], s[idx+1:]
}

// IsValidSFN reports whether name is already a legal 8.3 short name: base no
// longer than 8 characters, extension no longer than 3, every character
// drawn from the legal set spec.md §4.5 defines.
func IsValidSFN(s string) bool {
	base, ext := splitBaseExt(s)
	if len(base) == 0 || len(base) > 8 || len(ext) > 3 {
		return false
	}
	for i := 0; i < len(base); i++ {
		if !isLegalSFNByte(base[i]) {
			return false
		}
	}
	for i := 0; i < len(ext); i++ {
		if !isLegalSFNByte(ext[i]) {
			return false
		}
	}
	return true
}

// escapedE5 is the byte written in place of a literal leading 0xE5 in a raw
// short name, per spec.md §4.5 and the teacher's drivers/fat/dirent.go: byte
// 0 of a directory entry is the SentinelFree ("deleted") marker when it
// reads 0xE5, so a name that legitimately starts with 0xE5 (legal per the
// 0x80-0xFF range above) must never be written that way or it reads back as
// a deleted slot and silently vanishes from the listing.
const escapedE5 = 0x05

// EncodeSFN renders name as the 11 raw on-disk bytes of a short name: base
// left-aligned and padded with trailing spaces to 8 bytes, extension padded
// the same way to 3, ASCII letters in both uppercased (other bytes are kept
// as they are), illegal characters replaced with '~'. It does not require
// IsValidSFN(name); names that are too long are truncated by
// DeriveSFNFromLFN before reaching here.
func EncodeSFN(s string) [11]byte {
	base, ext := splitBaseExt(s)
	if len(base) > 8 {
		base = base[:8]
	}
	if len(ext) > 3 {
		ext = ext[:3]
	}

	var raw [11]byte
	for i := range raw {
		raw[i] = ' '
	}
	upperASCII := func(s string) string {
		b := []byte(s)
		for i, c := range b {
			if c >= 'a' && c <= 'z' {
				b[i] = c - ('a' - 'A')
			}
		}
		return string(b)
	}
	copy(raw[0:8], sanitize(upperASCII(base)))
	copy(raw[8:11], sanitize(upperASCII(ext)))
	if raw[0] == 0xE5 {
		raw[0] = escapedE5
	}
	return raw
}

func sanitize(s string) []byte {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		if isLegalSFNByte(s[i]) {
			out[i] = s[i]
		} else {
			out[i] = '~'
		}
	}
	return out
}

// DecodeSFN reconstructs a "BASE.EXT"-shaped display name from 11 raw short
// name bytes, trimming trailing space padding from each half and omitting
// the dot when the extension is empty. A leading escapedE5 byte is
// unescaped back to a literal 0xE5, undoing EncodeSFN's escape.
func DecodeSFN(raw [11]byte) string {
	if raw[0] == escapedE5 {
		raw[0] = 0xE5
	}
	base := strings.TrimRight(string(raw[0:8]), " ")
	ext := strings.TrimRight(string(raw[8:11]), " ")
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// DeriveSFNFromLFN produces a unique fake short name for a long name that
// isn't already a legal SFN, per spec.md §4.5: uppercase, replace illegal
// characters with '~', keep the first 4 and last 4 base characters if the
// sanitized base exceeds 8 characters, then disambiguate against exists by
// appending "~K" (K = 1..999), truncating the base as needed so the result
// never exceeds 8 characters. exists reports whether a candidate raw SFN
// (as rendered by EncodeSFN) is already taken in the target directory.
func DeriveSFNFromLFN(longName string, exists func(raw [11]byte) bool) ([11]byte, error) {
	base, ext := splitBaseExt(longName)
	base = string(sanitize(strings.ToUpper(base)))
	ext = string(sanitize(strings.ToUpper(ext)))
	if len(ext) > 3 {
		ext = ext[:3]
	}

	shortened := base
	if len(shortened) > 8 {
		shortened = shortened[:4] + shortened[len(shortened)-4:]
	}

	candidate := EncodeSFN(joinBaseExt(shortened, ext))
	if !exists(candidate) {
		return candidate, nil
	}

	for k := 1; k <= 999; k++ {
		suffix := fmt.Sprintf("~%d", k)
		truncTo := 8 - len(suffix)
		if truncTo < 0 {
			truncTo = 0
		}
		mangledBase := shortened
		if len(mangledBase) > truncTo {
			mangledBase = mangledBase[:truncTo]
		}
		candidate = EncodeSFN(joinBaseExt(mangledBase+suffix, ext))
		if !exists(candidate) {
			return candidate, nil
		}
	}

	return [11]byte{}, fmt.Errorf("name: exhausted ~1..~999 collision suffixes for %q", longName)
}

func joinBaseExt(base, ext string) string {
	if ext == "" {
		return base
	}
	return base + "." + ext
}

// Checksum computes the 8-bit LFN binding checksum over an 11-byte raw
// short name, per spec.md §3: s = ((s&1)<<7 | (s>>1)) + c, mod 256, folded
// over every byte of the raw name in order.
func Checksum(raw [11]byte) byte {
	var s byte
	for _, c := range raw {
		s = ((s & 1) << 7) | (s >> 1)
		s += c
	}
	return s
}
