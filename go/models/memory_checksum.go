package models

// sampledPages is how much of each writable region the partial checksum
// covers. Dirty pages cluster at the start of a region; reading further
// makes fault injection much slower for little gain.
const sampledPages = 8

// ChecksumMutableMemory folds the first pages of every writable region into
// one CRC32C, reading a page at a time. Regions are visited in the order given.
func ChecksumMutableMemory(regions []MappedRegion, pageSize uint64, read func(addr uint64, p []byte) error) (uint32, error) {
	buf := make([]byte, pageSize)
	var crc uint32
	for _, r := range regions {
		if !r.Perms.Has(PermW) {
			continue
		}
		end := r.Limit - r.Start
		if end > sampledPages*pageSize {
			end = sampledPages * pageSize
		}
		for off := uint64(0); off+pageSize <= end; off += pageSize {
			if err := read(r.Start+off, buf); err != nil {
				return 0, err
			}
			crc = UpdateChecksum(crc, buf)
		}
	}
	return crc, nil
}
