package interval

import (
	"bufio"
	"io"
	"sort"
	"strconv"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/sam"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Tokenize identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.  It is shared by this package's BED scanner and the
// loop package's BEDPE scanner.
//
// These simple loops are better than the standard library string-split
// functions when fewer than ~20 tokens are expected.  Unfortunately, the
// compiler currently does not inline any function with a loop no matter how
// trivial, so we can't justify making them 5-line functions of their own.
func Tokenize(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// FeatureSetOpts defines behavior of this package's feature-set
// constructors.
type FeatureSetOpts struct {
	// SequenceDict, if set, makes construction validate every interval
	// against the given sequence dictionary: a reference name absent from the
	// dictionary fails with ErrUnknownSequence, and an interval extending
	// past the end of its sequence fails with ErrInvalidInterval.
	SequenceDict *sam.Header
	// OneBasedInput interprets BED interval boundaries as one-based [start,
	// end] instead of the usual zero-based [start, end).
	OneBasedInput bool
}

// SeqLengths maps reference name to sequence length for dictionary
// validation.  A nil map disables validation, so callers can thread an
// optional dictionary through without branching.
type SeqLengths map[string]PosType

// NewSeqLengths extracts the reference lengths from a sequence dictionary.
// It returns nil when header is nil.
func NewSeqLengths(header *sam.Header) SeqLengths {
	if header == nil {
		return nil
	}
	lengths := make(SeqLengths)
	for _, ref := range header.Refs() {
		lengths[ref.Name()] = PosType(ref.Len())
	}
	return lengths
}

// Check validates one interval end against the dictionary: an unknown
// reference name fails with ErrUnknownSequence, an end past the sequence
// length with ErrInvalidInterval.
func (l SeqLengths) Check(refName string, end PosType) error {
	if l == nil {
		return nil
	}
	refLen, found := l[refName]
	if !found {
		return errors.Wrap(ErrUnknownSequence, refName)
	}
	if end > refLen {
		return errors.Wrapf(ErrInvalidInterval, "end %d exceeds %s length %d", end, refName, refLen)
	}
	return nil
}

// FeatureSet is an immutable union of reference-feature intervals, stored as
// a collection of length-2N sequences, where N is the number of merged
// intervals, the (0-based) start position of interval #k (numbering from
// zero) is in element [2k] and the end position is in element [2k+1], and
// the intervals are stored in increasing order.  Advantages of this
// representation over a length-N sequence of {start, end} structs include
// reuse of standard []int32 binary and similar search algorithms (which the
// compiler is more likely to optimize well).
//
// FeatureSet's query methods keep no mutable state, so a single value can be
// shared freely across goroutines once constructed.
type FeatureSet struct {
	// nameMap is a reference-name-keyed map with disjoint-interval-set
	// values.  Always initialized.
	nameMap map[string][]PosType
	// refNames lists the keys of nameMap in order of first appearance in the
	// input, for deterministic iteration.
	refNames []string
	// nIntervals is the number of merged intervals across all references.
	nIntervals int
	// coveredBases is the total number of positions covered.
	coveredBases int
}

func newFeatureSet() (fset FeatureSet) {
	fset.nameMap = make(map[string][]PosType)
	return
}

func scanFeatureSet(scanner *bufio.Scanner, opts FeatureSetOpts) (fset FeatureSet, err error) {
	fset = newFeatureSet()
	lengths := NewSeqLengths(opts.SequenceDict)

	var startSubtract int
	if opts.OneBasedInput {
		startSubtract++
	}

	// This could also be inside the for loop; minor tradeoff between extra
	// zero-reinitialization and positive side effects of better locality.
	var tokens [3][]byte

	lineIdx := 0
	prevRef := ""
	var prevStart, prevEnd PosType
	var refIntervals []PosType
	for scanner.Scan() {
		lineIdx++
		// scanner.Text() allocates and scanner.Bytes() does not, so favor the
		// latter, with limited-scope gunsafe.BytesToString instances at each
		// strconv call site.
		curLine := scanner.Bytes()
		if len(curLine) != 0 && curLine[0] == '#' {
			continue
		}
		nToken := Tokenize(tokens[:], curLine)
		if nToken != 3 {
			if nToken == 0 {
				continue
			}
			err = errors.Errorf("interval.scanFeatureSet: line %d has fewer tokens than expected", lineIdx)
			return
		}

		curRef := tokens[0]
		var parsedStart int
		if parsedStart, err = strconv.Atoi(gunsafe.BytesToString(tokens[1])); err != nil {
			return
		}
		parsedStart -= startSubtract
		if parsedStart < 0 {
			err = errors.Wrapf(ErrInvalidInterval, "line %d: negative start coordinate %s", lineIdx, tokens[1])
			return
		}
		start := PosType(parsedStart)

		var parsedEnd int
		if parsedEnd, err = strconv.Atoi(gunsafe.BytesToString(tokens[2])); err != nil {
			return
		}
		if parsedEnd < parsedStart || parsedEnd >= PosTypeMax {
			err = errors.Wrapf(ErrInvalidInterval, "line %d: coordinate pair [%s, %s)", lineIdx, tokens[1], tokens[2])
			return
		}
		end := PosType(parsedEnd)
		if err = lengths.Check(gunsafe.BytesToString(curRef), end); err != nil {
			err = errors.Wrapf(err, "line %d", lineIdx)
			return
		}
		if prevRef != gunsafe.BytesToString(curRef) {
			if prevRef != "" {
				// Save last interval, add to map.
				if prevEnd != -1 {
					refIntervals = append(refIntervals, prevStart, prevEnd)
					fset.nIntervals++
				}
				fset.nameMap[prevRef] = refIntervals
				fset.refNames = append(fset.refNames, prevRef)
			}
			// Must create a full heap copy of curRef contents, since it refers to
			// bytes on curLine that will be overwritten soon, and it needs to
			// persist as a map key.
			prevRef = string(curRef)
			if _, found := fset.nameMap[prevRef]; found {
				err = errors.Errorf("interval.scanFeatureSet: unsorted input (split reference %s)", prevRef)
				return
			}
			refIntervals = []PosType{}
			if end == start {
				// Distinguish between 'mentioned' references without any
				// overlapping bases and unmentioned references.
				prevStart = -1
				prevEnd = -1
			} else {
				prevStart = start
				prevEnd = end
			}
			fset.coveredBases += int(end - start)
			continue
		}
		if end == start {
			continue
		}
		if start > prevEnd {
			// New interval doesn't overlap previous one, so we can save the
			// previous one.
			if prevEnd != -1 {
				refIntervals = append(refIntervals, prevStart, prevEnd)
				fset.nIntervals++
			}
			prevStart = start
			prevEnd = end
			fset.coveredBases += int(end - start)
		} else {
			if start < prevStart {
				err = errors.Errorf("interval.scanFeatureSet: unsorted input at line %d", lineIdx)
				return
			}
			// Intervals overlap, merge them.
			if end > prevEnd {
				fset.coveredBases += int(end - prevEnd)
				prevEnd = end
			}
		}
	}
	if err = scanner.Err(); err != nil {
		return
	}
	if prevRef != "" {
		if prevEnd != -1 {
			refIntervals = append(refIntervals, prevStart, prevEnd)
			fset.nIntervals++
		}
		fset.nameMap[prevRef] = refIntervals
		fset.refNames = append(fset.refNames, prevRef)
	}
	log.Printf("feature set loaded: %d interval(s) covering %d base(s)", fset.nIntervals, fset.coveredBases)
	return
}

// NewFeatureSet loads the intervals from a sorted (by start coordinate)
// BED3+ stream, merging touching/overlapping intervals and eliminating empty
// ones in the process.  Lines that are blank or start with '#' are skipped;
// columns past the third are ignored.
func NewFeatureSet(reader io.Reader, opts FeatureSetOpts) (fset FeatureSet, err error) {
	// Note that Scanner does not handle very long lines unless we specify an
	// adequate buffer size in advance; it does not auto-resize.
	// Shouldn't matter for BED files, though.
	scanner := bufio.NewScanner(reader)
	return scanFeatureSet(scanner, opts)
}

// NewFeatureSetFromPath is a wrapper for NewFeatureSet that takes a path
// instead of an io.Reader.  Gzipped input is detected by filename extension.
func NewFeatureSetFromPath(path string, opts FeatureSetOpts) (fset FeatureSet, err error) {
	ctx := vcontext.Background()
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return NewFeatureSet(reader, opts)
}

// NewFeatureSetFromIntervals initializes a FeatureSet from an []Interval,
// which does not need to be sorted; a sorted copy is made internally.
// OneBasedInput is ignored, since Interval is defined to be zero-based.
func NewFeatureSetFromIntervals(ivs []Interval, opts FeatureSetOpts) (fset FeatureSet, err error) {
	lengths := NewSeqLengths(opts.SequenceDict)
	for i, iv := range ivs {
		if err = iv.Valid(); err != nil {
			err = errors.Wrapf(err, "interval %d", i)
			return
		}
		if err = lengths.Check(iv.RefName, iv.End); err != nil {
			err = errors.Wrapf(err, "interval %d", i)
			return
		}
	}
	sorted := make([]Interval, len(ivs))
	copy(sorted, ivs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].RefName != sorted[j].RefName {
			return sorted[i].RefName < sorted[j].RefName
		}
		if sorted[i].Start0 != sorted[j].Start0 {
			return sorted[i].Start0 < sorted[j].Start0
		}
		return sorted[i].End < sorted[j].End
	})
	fset = newFeatureSet()
	prevRef := ""
	var prevStart, prevEnd PosType
	var refIntervals []PosType
	for _, iv := range sorted {
		if prevRef != iv.RefName {
			if prevRef != "" {
				if prevEnd != -1 {
					refIntervals = append(refIntervals, prevStart, prevEnd)
					fset.nIntervals++
				}
				fset.nameMap[prevRef] = refIntervals
				fset.refNames = append(fset.refNames, prevRef)
			}
			prevRef = iv.RefName
			refIntervals = []PosType{}
			if iv.End == iv.Start0 {
				prevStart = -1
				prevEnd = -1
			} else {
				prevStart = iv.Start0
				prevEnd = iv.End
			}
			fset.coveredBases += int(iv.End - iv.Start0)
			continue
		}
		if iv.End == iv.Start0 {
			continue
		}
		if iv.Start0 > prevEnd {
			if prevEnd != -1 {
				refIntervals = append(refIntervals, prevStart, prevEnd)
				fset.nIntervals++
			}
			prevStart = iv.Start0
			prevEnd = iv.End
			fset.coveredBases += int(iv.End - iv.Start0)
		} else if iv.End > prevEnd {
			fset.coveredBases += int(iv.End - prevEnd)
			prevEnd = iv.End
		}
	}
	if prevRef != "" {
		if prevEnd != -1 {
			refIntervals = append(refIntervals, prevStart, prevEnd)
			fset.nIntervals++
		}
		fset.nameMap[prevRef] = refIntervals
		fset.refNames = append(fset.refNames, prevRef)
	}
	return
}

// OverlapsInterval checks whether iv overlaps (shares at least one position
// with) any interval in the set.
func (s *FeatureSet) OverlapsInterval(iv Interval) bool {
	refIntervals := s.nameMap[iv.RefName]
	if len(refIntervals) == 0 {
		return false
	}
	idx := NewEndpointIndex(iv.Start0, refIntervals)
	if idx.Contained() {
		return iv.End > iv.Start0
	}
	return !idx.Finished(refIntervals) && refIntervals[idx] < iv.End
}

// ContainsPos checks whether the single position [pos, pos+1) on refName is
// covered by the set.
func (s *FeatureSet) ContainsPos(refName string, pos PosType) bool {
	refIntervals := s.nameMap[refName]
	if len(refIntervals) == 0 {
		return false
	}
	return NewEndpointIndex(pos, refIntervals).Contained()
}

// AnnotateAll returns one boolean per query interval, reporting whether the
// query overlaps any interval in the set.  Queries are validated up front;
// an invalid query fails with its index in the error.
func (s *FeatureSet) AnnotateAll(ivs []Interval) ([]bool, error) {
	for i, iv := range ivs {
		if err := iv.Valid(); err != nil {
			return nil, errors.Wrapf(err, "interval %d", i)
		}
	}
	tags := make([]bool, len(ivs))
	if err := traverse.Each(len(ivs), func(i int) error {
		tags[i] = s.OverlapsInterval(ivs[i])
		return nil
	}); err != nil {
		return nil, err
	}
	return tags, nil
}

// Subtract returns a copy of s without the intervals that overlap any
// interval in other.  Removal is all-or-nothing: an overlapping interval is
// dropped whole, never trimmed.  Note that subtraction applies to the merged
// intervals of s, not to the records the set was constructed from.
func (s *FeatureSet) Subtract(other *FeatureSet) (result FeatureSet) {
	result = newFeatureSet()
	for _, refName := range s.refNames {
		refIntervals := s.nameMap[refName]
		otherIntervals := other.nameMap[refName]
		kept := []PosType{}
		var idx EndpointIndex
		for k := 0; k < len(refIntervals); k += 2 {
			start, end := refIntervals[k], refIntervals[k+1]
			overlaps := false
			if !idx.Finished(otherIntervals) {
				// Merged-interval starts are increasing, so the endpoint cursor
				// only moves forward.
				idx.Update(start, otherIntervals)
				if idx.Contained() {
					overlaps = true
				} else if !idx.Finished(otherIntervals) && otherIntervals[idx] < end {
					overlaps = true
				}
			}
			if !overlaps {
				kept = append(kept, start, end)
				result.nIntervals++
				result.coveredBases += int(end - start)
			}
		}
		result.nameMap[refName] = kept
		result.refNames = append(result.refNames, refName)
	}
	return
}

// NIntervals returns the number of merged intervals in the set.
func (s *FeatureSet) NIntervals() int { return s.nIntervals }

// CoveredBases returns the total number of positions covered by the set.
func (s *FeatureSet) CoveredBases() int { return s.coveredBases }

// RefNames returns the reference names mentioned by the set, in order of
// first appearance in the input.  The returned slice must not be modified.
func (s *FeatureSet) RefNames() []string { return s.refNames }

// Intervals returns the merged intervals of the set, grouped by reference in
// RefNames() order and sorted by start position within each reference.
func (s *FeatureSet) Intervals() []Interval {
	result := make([]Interval, 0, s.nIntervals)
	for _, refName := range s.refNames {
		refIntervals := s.nameMap[refName]
		for k := 0; k < len(refIntervals); k += 2 {
			result = append(result, Interval{RefName: refName, Start0: refIntervals[k], End: refIntervals[k+1]})
		}
	}
	return result
}
