package cmd

import (
	"io"
	"io/ioutil"
	"math"
	"os"
	"strconv"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/chromloop/interval"
	"github.com/grailbio/chromloop/loop"
	"github.com/grailbio/hts/sam"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"v.io/x/lib/cmdline"
)

// loopInputFlags are the flags shared by every subcommand that loads a
// BEDPE loop set.
type loopInputFlags struct {
	loops     string
	dict      string
	statusCol int
	pvalueCol int
	logfcCol  int
	headerRow bool
	oneBased  bool
	region    string
	collapse  bool
}

func registerLoopInputFlags(cmd *cmdline.Command, flags *loopInputFlags) {
	cmd.Flags.StringVar(&flags.loops, "loops", "", "Input BEDPE path with one loop per line (required)")
	cmd.Flags.StringVar(&flags.dict, "dict", "", "Optional sequence dictionary (SAM header or .dict file); anchors and features are validated against it")
	cmd.Flags.IntVar(&flags.statusCol, "status-col", 0, "1-based BEDPE column holding the per-loop status label; 0 = absent")
	cmd.Flags.IntVar(&flags.pvalueCol, "pvalue-col", 0, "1-based BEDPE column holding the per-loop p-value; 0 = absent")
	cmd.Flags.IntVar(&flags.logfcCol, "logfc-col", 0, "1-based BEDPE column holding the per-loop log fold change; 0 = absent")
	cmd.Flags.BoolVar(&flags.headerRow, "header-row", false, "Skip the first non-comment line of the BEDPE input")
	cmd.Flags.BoolVar(&flags.oneBased, "one-based", false, "Interpret all input coordinates as 1-based closed intervals instead of 0-based half-open")
	cmd.Flags.StringVar(&flags.region, "region", "", "Keep only loops with an anchor overlapping this region, e.g. chr1:100-2000 (1-based)")
	cmd.Flags.BoolVar(&flags.collapse, "collapse-dups", false, "Drop exact duplicate loop records, keeping the first of each")
}

// load reads the loop set plus the optional sequence dictionary, applying
// the region filter and duplicate collapse when requested.
func (flags *loopInputFlags) load() (*loop.Set, *sam.Header, error) {
	if flags.loops == "" {
		return nil, nil, errors.New("-loops is required")
	}
	var dict *sam.Header
	if flags.dict != "" {
		var err error
		if dict, err = loadDict(flags.dict); err != nil {
			return nil, nil, err
		}
	}
	s, err := loop.ReadBEDPEFromPath(flags.loops, loop.ReadOpts{
		StatusCol:     flags.statusCol,
		PValueCol:     flags.pvalueCol,
		LogFCCol:      flags.logfcCol,
		HasHeaderRow:  flags.headerRow,
		OneBasedInput: flags.oneBased,
		SequenceDict:  dict,
	})
	if err != nil {
		return nil, nil, err
	}
	if flags.region != "" {
		region, err := interval.ParseRegionString(flags.region)
		if err != nil {
			return nil, nil, err
		}
		s = s.FilterRegion(region)
		log.Printf("region %s: %d loop(s) retained", region.String(), s.NLoops())
	}
	if flags.collapse {
		var dropped int
		s, dropped = loop.CollapseDuplicates(s)
		log.Printf("collapsed %d duplicate loop(s), %d retained", dropped, s.NLoops())
	}
	return s, dict, nil
}

// loadDict reads a sequence dictionary: a SAM header or Picard .dict file.
func loadDict(path string) (header *sam.Header, err error) {
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
	var data []byte
	if data, err = ioutil.ReadAll(infile.Reader(ctx)); err != nil {
		return
	}
	if header, err = sam.NewHeader(data, nil); err != nil {
		err = errors.Wrapf(err, "%s: parsing sequence dictionary", path)
	}
	return
}

// loadFeatures reads a BED feature file into a FeatureSet; an empty path
// yields an empty set that annotates everything false.
func loadFeatures(path string, dict *sam.Header, oneBased bool) (*interval.FeatureSet, error) {
	opts := interval.FeatureSetOpts{SequenceDict: dict, OneBasedInput: oneBased}
	if path == "" {
		fset, err := interval.NewFeatureSetFromIntervals(nil, opts)
		if err != nil {
			return nil, err
		}
		return &fset, nil
	}
	fset, err := interval.NewFeatureSetFromPath(path, opts)
	if err != nil {
		return nil, err
	}
	return &fset, nil
}

// featureFlags are the flags shared by the subcommands that tag anchors
// against enhancer and promoter BED files.
type featureFlags struct {
	enhancers             string
	promoters             string
	keepPromoterEnhancers bool
}

func registerFeatureFlags(cmd *cmdline.Command, flags *featureFlags) {
	cmd.Flags.StringVar(&flags.enhancers, "enhancers", "", "BED path with enhancer intervals; empty means no enhancers")
	cmd.Flags.StringVar(&flags.promoters, "promoters", "", "BED path with promoter intervals; empty means no promoters")
	cmd.Flags.BoolVar(&flags.keepPromoterEnhancers, "keep-promoter-enhancers", false, "Keep enhancers that overlap a promoter instead of dropping them before tagging")
}

// annotations tags every anchor of s against the enhancer and promoter BED
// files.  Unless -keep-promoter-enhancers is set, enhancers overlapping a
// promoter are dropped first, so an interval acting as both counts only as
// a promoter.
func (flags *featureFlags) annotations(s *loop.Set, dict *sam.Header, oneBased bool) (enhancers, promoters loop.Annotation, err error) {
	enhancerSet, err := loadFeatures(flags.enhancers, dict, oneBased)
	if err != nil {
		err = errors.Wrap(err, "enhancers")
		return
	}
	promoterSet, err := loadFeatures(flags.promoters, dict, oneBased)
	if err != nil {
		err = errors.Wrap(err, "promoters")
		return
	}
	if !flags.keepPromoterEnhancers {
		pruned := enhancerSet.Subtract(promoterSet)
		enhancerSet = &pruned
	}
	if enhancers, err = loop.Annotate(s, enhancerSet); err != nil {
		err = errors.Wrap(err, "enhancers")
		return
	}
	if promoters, err = loop.Annotate(s, promoterSet); err != nil {
		err = errors.Wrap(err, "promoters")
	}
	return
}

// withInput opens path for reading, transparently decompressing gzip, and
// runs body on the stream.
func withInput(path string, body func(r io.Reader) error) (err error) {
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
	if fileio.DetermineType(path) == fileio.Gzip {
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return body(reader)
}

// withOutput runs body on a writer for path, or on standard output when
// path is empty.
func withOutput(path string, body func(w io.Writer) error) (err error) {
	if path == "" {
		return body(os.Stdout)
	}
	ctx := vcontext.Background()
	var out file.File
	if out, err = file.Create(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := out.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return body(out.Writer(ctx))
}

// formatFloat renders v for TSV output, with NaN as the missing marker.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func boolMark(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func writeAnchor(out *tsv.Writer, iv interval.Interval) {
	out.WriteString(iv.RefName)
	out.WriteUint32(uint32(iv.Start0))
	out.WriteUint32(uint32(iv.End))
}
