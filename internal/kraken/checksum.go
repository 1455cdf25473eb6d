package kraken

import (
	"hash/crc32"
	"strings"
)

// normalize reduces a price or volume digit string to the form Kraken's
// book checksum hashes: strip the decimal point, then strip any leading
// zeros. A string of all zeros collapses to the empty string, matching
// the reference client's behavior (it indexes the first non-zero digit
// and falls back to the full length when none exists).
//
// Grounded on original_source/src/ws/types.rs BookEntry::format_str_for_hash.
func normalize(s string) string {
	s = strings.Replace(s, ".", "", -1)
	i := 0
	for i < len(s) && s[i] == '0' {
		i++
	}
	return s[i:]
}

// bookChecksum computes the CRC-32/IEEE checksum Kraken expects clients to
// verify after every book update: the ten best asks (ascending) followed by
// the ten best bids (descending), each contributing normalize(price) then
// normalize(volume), all concatenated into one byte string before hashing.
func bookChecksum(asks, bids []BookEntry) uint32 {
	var b strings.Builder

	n := len(asks)
	if n > 10 {
		n = 10
	}
	for i := 0; i < n; i++ {
		b.WriteString(normalize(asks[i].PriceStr))
		b.WriteString(normalize(asks[i].VolumeStr))
	}

	n = len(bids)
	if n > 10 {
		n = 10
	}
	for i := 0; i < n; i++ {
		b.WriteString(normalize(bids[i].PriceStr))
		b.WriteString(normalize(bids[i].VolumeStr))
	}

	return crc32.ChecksumIEEE([]byte(b.String()))
}

// verifyChecksum parses the decimal digit string Kraken sends alongside a
// book update and reports whether it matches the locally reconstructed
// book. A malformed checksum field is treated as a mismatch.
func verifyChecksum(asks, bids []BookEntry, wire string) bool {
	var want uint64
	for _, c := range wire {
		if c < '0' || c > '9' {
			return false
		}
		want = want*10 + uint64(c-'0')
	}
	return uint64(bookChecksum(asks, bids)) == want
}
