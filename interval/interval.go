package interval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidInterval is the base error for structurally invalid intervals:
// empty reference name, negative start, start past end, or end too large for
// PosType arithmetic.  Errors returned by this package wrap it with record
// context; match with errors.Cause.
var ErrInvalidInterval = errors.New("invalid interval")

// ErrUnknownSequence is the base error for intervals whose reference name is
// absent from the sequence dictionary they were validated against.
var ErrUnknownSequence = errors.New("unknown reference sequence")

// Interval is a single genomic interval with 0-based half-open coordinates.
// It is a plain value; nothing in this package or its dependents modifies an
// Interval after construction.
type Interval struct {
	RefName string
	Start0  PosType
	End     PosType
}

// Valid returns nil iff iv is structurally valid: nonempty reference name,
// nonnegative start, start <= end, end representable.  start == end denotes
// an empty interval, which is valid but overlaps nothing.
func (iv Interval) Valid() error {
	if iv.RefName == "" {
		return errors.Wrap(ErrInvalidInterval, "empty reference name")
	}
	if iv.Start0 < 0 || iv.End < iv.Start0 || iv.End >= PosTypeMax {
		return errors.Wrapf(ErrInvalidInterval, "[%d, %d) on %s", iv.Start0, iv.End, iv.RefName)
	}
	return nil
}

// Len returns the number of positions iv covers.
func (iv Interval) Len() PosType {
	return iv.End - iv.Start0
}

// Overlaps checks whether iv and other share at least one position, i.e.
// whether they are on the same reference and their half-open ranges
// intersect.  Touching intervals such as [0, 5) and [5, 9) do not overlap,
// and an empty interval overlaps nothing.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.RefName == other.RefName && iv.Start0 < other.End && other.Start0 < iv.End
}

// String returns the usual 0-based half-open rendering, e.g. "chr1:100-200".
func (iv Interval) String() string {
	return fmt.Sprintf("%s:%d-%d", iv.RefName, iv.Start0, iv.End)
}

// ParseRegionString parses a region string of one of the forms
//   [reference name]:[1-based first pos]-[last pos]
//   [reference name]:[1-based pos]
//   [reference name]
// returning 0-based interval boundaries.  The interval [0, PosTypeMax - 1)
// is returned if there is no positional restriction.
func ParseRegionString(region string) (result Interval, err error) {
	if len(region) == 0 {
		err = errors.New("interval.ParseRegionString: empty region string")
		return
	}
	colonPos := strings.IndexByte(region, ':')
	if colonPos == -1 {
		result.RefName = region
		result.Start0 = 0
		result.End = PosTypeMax - 1
		return
	}
	if colonPos == 0 {
		err = errors.New("interval.ParseRegionString: empty reference name")
		return
	}
	result.RefName = region[0:colonPos]
	rangeStr := region[colonPos+1:]
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		var pos1 int64
		if pos1, err = strconv.ParseInt(rangeStr, 10, 32); err != nil {
			return
		}
		if pos1 <= 0 {
			err = errors.Errorf("interval.ParseRegionString: position %v in region string out of range", rangeStr)
			return
		}
		result.Start0 = PosType(pos1 - 1)
		result.End = PosType(pos1)
		return
	}
	start1Str := rangeStr[:dashPos]
	endStr := rangeStr[dashPos+1:]
	var start1 int
	if start1, err = strconv.Atoi(start1Str); err != nil {
		return
	}
	if start1 <= 0 {
		err = errors.Errorf("interval.ParseRegionString: position %v in region string out of range", start1Str)
		return
	}
	var end0 int
	if end0, err = strconv.Atoi(endStr); err != nil {
		return
	}
	// Prohibit end0 == PosTypeMax so that position+1 searches cannot overflow.
	// This means ParseInt(., 10, 32) doesn't quite do the right thing, so Atoi
	// is used above.
	if end0 <= start1 || end0 >= PosTypeMax {
		err = errors.Errorf("interval.ParseRegionString: invalid range string %v", rangeStr)
		return
	}
	result.Start0 = PosType(start1 - 1)
	result.End = PosType(end0)
	return
}
