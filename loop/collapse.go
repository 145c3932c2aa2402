package loop

import (
	"encoding/binary"

	"github.com/grailbio/base/log"
	"github.com/grailbio/chromloop/interval"
	"github.com/minio/highwayhash"
)

// hashKey identifies a loop record for duplicate detection.
type hashKey = [highwayhash.Size]byte

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendString(buf []byte, s string) []byte {
	buf = appendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func appendAnchor(buf []byte, iv interval.Interval) []byte {
	buf = appendString(buf, iv.RefName)
	buf = appendUint32(buf, uint32(iv.Start0))
	return appendUint32(buf, uint32(iv.End))
}

// CollapseDuplicates returns a Set with exact duplicate loop records
// removed, keeping the first occurrence of each and preserving order, plus
// the number of records dropped.  Two records are duplicates when both
// anchors and, if present, the status label match; the numeric columns are
// not compared, so the first record's values win for a collapsed group.
func CollapseDuplicates(s *Set) (*Set, int) {
	var zeroSeed = hashKey{}
	seen := make(map[hashKey]bool, s.NLoops())
	result := &Set{}
	var buf []byte
	dropped := 0
	for i := 0; i < s.NLoops(); i++ {
		buf = buf[:0]
		buf = appendAnchor(buf, s.Anchor1[i])
		buf = appendAnchor(buf, s.Anchor2[i])
		if s.Status != nil {
			buf = appendString(buf, s.Status[i])
		}
		key := highwayhash.Sum(buf, zeroSeed[:])
		if seen[key] {
			dropped++
			continue
		}
		seen[key] = true
		result.appendLoop(s, i)
	}
	if dropped > 0 {
		log.Printf("collapsed %d duplicate loop record(s)", dropped)
	}
	return result, dropped
}
