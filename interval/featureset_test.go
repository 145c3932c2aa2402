package interval

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/grailbio/hts/sam"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

var (
	chr1, _     = sam.NewReference("chr1", "", "", 1000, nil, nil)
	chr2, _     = sam.NewReference("chr2", "", "", 2000, nil, nil)
	testDict, _ = sam.NewHeader(nil, []*sam.Reference{chr1, chr2})
)

func TestTokenize(t *testing.T) {
	var tokens [3][]byte
	expect.EQ(t, Tokenize(tokens[:], []byte("chr1\t100\t200")), 3)
	expect.EQ(t, string(tokens[0]), "chr1")
	expect.EQ(t, string(tokens[1]), "100")
	expect.EQ(t, string(tokens[2]), "200")

	expect.EQ(t, Tokenize(tokens[:], []byte("  chr2   5 9   extra")), 3)
	expect.EQ(t, string(tokens[0]), "chr2")
	expect.EQ(t, string(tokens[1]), "5")
	expect.EQ(t, string(tokens[2]), "9")

	expect.EQ(t, Tokenize(tokens[:], []byte("chr1 100")), 2)
	expect.EQ(t, Tokenize(tokens[:], []byte("   ")), 0)
}

func TestLoadFeatureSet(t *testing.T) {
	tests := []struct {
		bed           string
		oneBasedInput bool
		want          []Interval
		nIntervals    int
		coveredBases  int
	}{
		{
			bed: "chr1\t100\t200\n" +
				"chr1\t150\t250\n" +
				"chr1\t250\t300\n" +
				"chr1\t400\t500\n" +
				"chr2\t10\t20\n",
			want: []Interval{
				{"chr1", 100, 300},
				{"chr1", 400, 500},
				{"chr2", 10, 20},
			},
			nIntervals:   3,
			coveredBases: 310,
		},
		{
			bed: "# promoters\n" +
				"chr1 5 10 nameA 960 +\n" +
				"\n" +
				"chr1 20 30 nameB 4 -\n",
			want: []Interval{
				{"chr1", 5, 10},
				{"chr1", 20, 30},
			},
			nIntervals:   2,
			coveredBases: 15,
		},
		{
			bed:           "chr1\t1\t10\n",
			oneBasedInput: true,
			want:          []Interval{{"chr1", 0, 10}},
			nIntervals:    1,
			coveredBases:  10,
		},
		{
			// A lone empty interval mentions the reference but covers nothing.
			bed:          "chr1\t5\t5\n",
			want:         []Interval{},
			nIntervals:   0,
			coveredBases: 0,
		},
	}
	for _, tt := range tests {
		fset, err := NewFeatureSet(strings.NewReader(tt.bed), FeatureSetOpts{OneBasedInput: tt.oneBasedInput})
		assert.NoError(t, err)
		expect.EQ(t, fset.Intervals(), tt.want)
		expect.EQ(t, fset.NIntervals(), tt.nIntervals)
		expect.EQ(t, fset.CoveredBases(), tt.coveredBases)
	}
}

func TestLoadFeatureSetErrors(t *testing.T) {
	tests := []struct {
		bed         string
		wantInvalid bool
	}{
		{"chr1\tx\t100\n", false},
		{"chr1\t-5\t100\n", true},
		{"chr1\t200\t100\n", true},
		{"chr1\t100\t200\nchr1\t50\t80\n", false},
		{"chr1\t1\t2\nchr2\t1\t2\nchr1\t5\t6\n", false},
		{"chr1\t100\n", false},
	}
	for _, tt := range tests {
		_, err := NewFeatureSet(strings.NewReader(tt.bed), FeatureSetOpts{})
		expect.NotNil(t, err)
		if tt.wantInvalid {
			expect.EQ(t, errors.Cause(err), ErrInvalidInterval)
		}
	}
}

func TestSequenceDict(t *testing.T) {
	opts := FeatureSetOpts{SequenceDict: testDict}
	_, err := NewFeatureSet(strings.NewReader("chr1\t0\t10\nchr2\t0\t1999\n"), opts)
	expect.NoError(t, err)

	_, err = NewFeatureSet(strings.NewReader("chr3\t0\t10\n"), opts)
	expect.NotNil(t, err)
	expect.EQ(t, errors.Cause(err), ErrUnknownSequence)

	_, err = NewFeatureSet(strings.NewReader("chr1\t0\t1500\n"), opts)
	expect.NotNil(t, err)
	expect.EQ(t, errors.Cause(err), ErrInvalidInterval)

	_, err = NewFeatureSetFromIntervals([]Interval{{"chrM", 0, 10}}, opts)
	expect.NotNil(t, err)
	expect.EQ(t, errors.Cause(err), ErrUnknownSequence)
}

func TestOverlapsInterval(t *testing.T) {
	fset, err := NewFeatureSet(strings.NewReader(
		"chr1\t100\t200\nchr1\t300\t400\nchr2\t50\t60\n"), FeatureSetOpts{})
	assert.NoError(t, err)

	tests := []struct {
		query Interval
		want  bool
	}{
		{Interval{"chr1", 150, 160}, true},
		{Interval{"chr1", 0, 100}, false},
		{Interval{"chr1", 200, 300}, false},
		{Interval{"chr1", 199, 201}, true},
		{Interval{"chr1", 250, 350}, true},
		{Interval{"chr1", 0, 1000}, true},
		{Interval{"chr1", 400, 500}, false},
		{Interval{"chr1", 150, 150}, false},
		{Interval{"chr2", 59, 80}, true},
		{Interval{"chr3", 0, 100}, false},
	}
	for _, tt := range tests {
		expect.EQ(t, fset.OverlapsInterval(tt.query), tt.want)
	}
}

func TestContainsPos(t *testing.T) {
	fset, err := NewFeatureSet(strings.NewReader(
		"chr1\t100\t200\nchr1\t300\t400\nchr2\t50\t60\n"), FeatureSetOpts{})
	assert.NoError(t, err)

	tests := []struct {
		refName string
		pos     PosType
		want    bool
	}{
		{"chr1", 100, true},
		{"chr1", 199, true},
		{"chr1", 200, false},
		{"chr1", 99, false},
		{"chr1", 299, false},
		{"chr1", 300, true},
		{"chr2", 50, true},
		{"chr2", 60, false},
		{"chr3", 50, false},
	}
	for _, tt := range tests {
		expect.EQ(t, fset.ContainsPos(tt.refName, tt.pos), tt.want)
	}
}

func TestAnnotateAll(t *testing.T) {
	fset, err := NewFeatureSet(strings.NewReader("chr1\t100\t200\nchr2\t50\t60\n"), FeatureSetOpts{})
	assert.NoError(t, err)

	tags, err := fset.AnnotateAll([]Interval{
		{"chr1", 150, 160},
		{"chr1", 300, 400},
		{"chr2", 55, 100},
		{"chr3", 1, 2},
	})
	assert.NoError(t, err)
	expect.EQ(t, tags, []bool{true, false, true, false})

	_, err = fset.AnnotateAll([]Interval{{"chr1", 1, 2}, {"chr1", 10, 5}})
	expect.NotNil(t, err)
	expect.EQ(t, errors.Cause(err), ErrInvalidInterval)
}

func TestSubtract(t *testing.T) {
	fset, err := NewFeatureSet(strings.NewReader(
		"chr1\t100\t200\nchr1\t300\t400\nchr1\t500\t600\nchr2\t10\t20\n"), FeatureSetOpts{})
	assert.NoError(t, err)

	other, err := NewFeatureSetFromIntervals([]Interval{
		{"chr1", 350, 360},
		{"chr1", 200, 300},
	}, FeatureSetOpts{})
	assert.NoError(t, err)

	result := fset.Subtract(&other)
	expect.EQ(t, result.Intervals(), []Interval{
		{"chr1", 100, 200},
		{"chr1", 500, 600},
		{"chr2", 10, 20},
	})
	expect.EQ(t, result.NIntervals(), 3)
	expect.EQ(t, result.CoveredBases(), 210)

	// Subtracting an empty set keeps everything.
	empty, err := NewFeatureSetFromIntervals(nil, FeatureSetOpts{})
	assert.NoError(t, err)
	result = fset.Subtract(&empty)
	expect.EQ(t, result.Intervals(), fset.Intervals())
}

func TestFromIntervalsMatchesScanner(t *testing.T) {
	fromBED, err := NewFeatureSet(strings.NewReader(
		"chr1\t100\t300\nchr1\t400\t500\nchr2\t10\t20\n"), FeatureSetOpts{})
	assert.NoError(t, err)

	// Same content, unsorted and unmerged.
	fromIvs, err := NewFeatureSetFromIntervals([]Interval{
		{"chr2", 10, 20},
		{"chr1", 250, 300},
		{"chr1", 400, 500},
		{"chr1", 100, 260},
	}, FeatureSetOpts{})
	assert.NoError(t, err)

	a := fromBED.Intervals()
	b := fromIvs.Intervals()
	sortIntervals(a)
	sortIntervals(b)
	expect.EQ(t, a, b)
	expect.EQ(t, fromBED.NIntervals(), fromIvs.NIntervals())
	expect.EQ(t, fromBED.CoveredBases(), fromIvs.CoveredBases())
}

func sortIntervals(ivs []Interval) {
	sort.Slice(ivs, func(i, j int) bool {
		if ivs[i].RefName != ivs[j].RefName {
			return ivs[i].RefName < ivs[j].RefName
		}
		return ivs[i].Start0 < ivs[j].Start0
	})
}

func TestFromPathGzip(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	bed := "chr1\t100\t200\nchr1\t300\t400\n"
	plainPath := filepath.Join(tempDir, "feat.bed")
	assert.NoError(t, ioutil.WriteFile(plainPath, []byte(bed), 0644))

	var gzBuf bytes.Buffer
	gzWriter := gzip.NewWriter(&gzBuf)
	_, err := gzWriter.Write([]byte(bed))
	assert.NoError(t, err)
	assert.NoError(t, gzWriter.Close())
	gzPath := filepath.Join(tempDir, "feat.bed.gz")
	assert.NoError(t, ioutil.WriteFile(gzPath, gzBuf.Bytes(), 0644))

	fromPlain, err := NewFeatureSetFromPath(plainPath, FeatureSetOpts{})
	assert.NoError(t, err)
	fromGz, err := NewFeatureSetFromPath(gzPath, FeatureSetOpts{})
	assert.NoError(t, err)
	expect.EQ(t, fromPlain.Intervals(), fromGz.Intervals())
	expect.EQ(t, fromPlain.Intervals(), []Interval{{"chr1", 100, 200}, {"chr1", 300, 400}})
}
