package loop

import (
	"bufio"
	"io"
	"math"
	"strconv"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/chromloop/interval"
	"github.com/grailbio/hts/sam"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// ReadOpts defines behavior of the BEDPE loop loader.
type ReadOpts struct {
	// StatusCol, PValueCol and LogFCCol select optional metadata columns by
	// 1-based column number; zero leaves the column unset.  Columns 1-6 are
	// always the two anchor coordinate triples.
	StatusCol int
	PValueCol int
	LogFCCol  int
	// HasHeaderRow skips the first non-blank, non-comment line.
	HasHeaderRow bool
	// OneBasedInput interprets anchor boundaries as one-based [start, end]
	// instead of the usual zero-based [start, end).
	OneBasedInput bool
	// SequenceDict, if set, validates every anchor against the given
	// sequence dictionary the way interval.FeatureSetOpts.SequenceDict does.
	SequenceDict *sam.Header
}

// bedpeAnchorCols is the number of leading coordinate columns in a BEDPE
// record: reference/start/end for each of the two anchors.
const bedpeAnchorCols = 6

// missingNumber reports whether a numeric token denotes a missing value.
// "NA" and "." are the conventions of the R and UCSC toolchains
// respectively.
func missingNumber(tok []byte) bool {
	s := gunsafe.BytesToString(tok)
	return s == "NA" || s == "." || s == "NaN"
}

func parseNumber(tok []byte, lineIdx int) (float64, error) {
	if missingNumber(tok) {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(gunsafe.BytesToString(tok), 64)
	if err != nil {
		return 0, errors.Wrapf(err, "line %d", lineIdx)
	}
	return v, nil
}

func parseAnchor(refTok, startTok, endTok []byte, startSubtract int, lengths interval.SeqLengths, lineIdx int) (iv interval.Interval, err error) {
	var parsedStart int
	if parsedStart, err = strconv.Atoi(gunsafe.BytesToString(startTok)); err != nil {
		err = errors.Wrapf(err, "line %d", lineIdx)
		return
	}
	parsedStart -= startSubtract
	var parsedEnd int
	if parsedEnd, err = strconv.Atoi(gunsafe.BytesToString(endTok)); err != nil {
		err = errors.Wrapf(err, "line %d", lineIdx)
		return
	}
	if parsedStart < 0 || parsedEnd < parsedStart || parsedEnd >= interval.PosTypeMax {
		err = errors.Wrapf(interval.ErrInvalidInterval, "line %d: coordinate pair [%s, %s)", lineIdx, startTok, endTok)
		return
	}
	iv = interval.Interval{
		RefName: string(refTok),
		Start0:  interval.PosType(parsedStart),
		End:     interval.PosType(parsedEnd),
	}
	if err = lengths.Check(iv.RefName, iv.End); err != nil {
		err = errors.Wrapf(err, "line %d", lineIdx)
		return
	}
	return
}

func scanBEDPE(scanner *bufio.Scanner, opts ReadOpts) (result *Set, err error) {
	lengths := interval.NewSeqLengths(opts.SequenceDict)
	var startSubtract int
	if opts.OneBasedInput {
		startSubtract++
	}
	nCols := bedpeAnchorCols
	for _, col := range []int{opts.StatusCol, opts.PValueCol, opts.LogFCCol} {
		if col > nCols {
			nCols = col
		}
	}
	tokens := make([][]byte, nCols)
	result = &Set{}
	if opts.StatusCol > 0 {
		result.Status = []string{}
	}
	if opts.PValueCol > 0 {
		result.PValue = []float64{}
	}
	if opts.LogFCCol > 0 {
		result.LogFC = []float64{}
	}
	lineIdx := 0
	headerSkipped := false
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		if len(curLine) != 0 && curLine[0] == '#' {
			continue
		}
		nToken := interval.Tokenize(tokens, curLine)
		if nToken == 0 {
			continue
		}
		if opts.HasHeaderRow && !headerSkipped {
			headerSkipped = true
			continue
		}
		if nToken < nCols {
			err = errors.Errorf("loop.scanBEDPE: line %d has %d token(s), want at least %d", lineIdx, nToken, nCols)
			result = nil
			return
		}
		var anchor1, anchor2 interval.Interval
		if anchor1, err = parseAnchor(tokens[0], tokens[1], tokens[2], startSubtract, lengths, lineIdx); err != nil {
			result = nil
			return
		}
		if anchor2, err = parseAnchor(tokens[3], tokens[4], tokens[5], startSubtract, lengths, lineIdx); err != nil {
			result = nil
			return
		}
		result.Anchor1 = append(result.Anchor1, anchor1)
		result.Anchor2 = append(result.Anchor2, anchor2)
		if opts.StatusCol > 0 {
			// A full heap copy, since the token refers to bytes on curLine
			// that will be overwritten soon.
			result.Status = append(result.Status, string(tokens[opts.StatusCol-1]))
		}
		if opts.PValueCol > 0 {
			var v float64
			if v, err = parseNumber(tokens[opts.PValueCol-1], lineIdx); err != nil {
				result = nil
				return
			}
			result.PValue = append(result.PValue, v)
		}
		if opts.LogFCCol > 0 {
			var v float64
			if v, err = parseNumber(tokens[opts.LogFCCol-1], lineIdx); err != nil {
				result = nil
				return
			}
			result.LogFC = append(result.LogFC, v)
		}
	}
	if err = scanner.Err(); err != nil {
		result = nil
		return
	}
	log.Printf("loop set loaded: %d loop(s)", result.NLoops())
	return
}

// ReadBEDPE loads a loop set from a BEDPE-style stream: whitespace-delimited
// columns, the first six being reference/start/end of anchor1 then anchor2,
// with optional metadata columns selected by opts.  Lines that are blank or
// start with '#' are skipped.  Malformed records fail immediately with the
// 1-based line number; callers decide whether that aborts a larger run.
func ReadBEDPE(reader io.Reader, opts ReadOpts) (*Set, error) {
	scanner := bufio.NewScanner(reader)
	return scanBEDPE(scanner, opts)
}

// ReadBEDPEFromPath is a wrapper for ReadBEDPE that takes a path instead of
// an io.Reader.  Gzipped input is detected by filename extension.
func ReadBEDPEFromPath(path string, opts ReadOpts) (result *Set, err error) {
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
	return ReadBEDPE(reader, opts)
}
