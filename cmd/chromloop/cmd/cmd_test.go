package cmd

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

func writeInput(t *testing.T, path, content string) {
	assert.NoError(t, ioutil.WriteFile(path, []byte(content), 0600))
}

func readLines(t *testing.T, path string) []string {
	data, err := ioutil.ReadFile(path)
	assert.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestCommunitiesEndToEnd(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	loopsPath := filepath.Join(tempDir, "loops.bedpe")
	writeInput(t, loopsPath,
		"chr1\t100\t200\tchr1\t1000\t1100\tstatic\n"+
			"chr1\t1050\t1150\tchr1\t2000\t2100\tstatic\n"+
			"chr1\t2050\t2150\tchr1\t3000\t3100\tgained\n"+
			"chr2\t100\t200\tchr2\t900\t1000\tstatic\n"+
			"chr2\t5000\t5100\tchr2\t5050\t5150\tlost\n")
	enhancersPath := filepath.Join(tempDir, "enhancers.bed")
	writeInput(t, enhancersPath,
		"chr1\t150\t210\nchr1\t1990\t2010\nchr2\t120\t140\nchr2\t5120\t5160\n")
	promotersPath := filepath.Join(tempDir, "promoters.bed")
	writeInput(t, promotersPath,
		"chr1\t1060\t1090\nchr1\t3050\t3060\nchr2\t950\t960\n")
	outPath := filepath.Join(tempDir, "communities.tsv")
	edgesPath := filepath.Join(tempDir, "edges.tsv")
	summaryPath := filepath.Join(tempDir, "summary.tsv")
	flags := &communitiesFlags{
		input:           loopInputFlags{loops: loopsPath, statusCol: 7},
		features:        featureFlags{enhancers: enhancersPath, promoters: promotersPath},
		includeIsolated: true,
		out:             outPath,
		edgesOut:        edgesPath,
		summaryOut:      summaryPath,
	}
	assert.NoError(t, communities(flags))

	v := func(x float64) string { return strconv.FormatFloat(x, 'g', -1, 64) }
	expect.EQ(t, readLines(t, outPath), []string{
		"#community\tsize\tn_distinguished\thas_distinguished\tenhancers\tpromoters\tep_ratio\tloops",
		"0\t3\t1\t1\t2\t3\t" + v(2.0/3.0) + "\t0,1,2",
		"1\t1\t0\t0\t1\t1\t1\t3",
		"2\t1\t0\t0\t1\t0\tNA\t4",
	})
	expect.EQ(t, readLines(t, edgesPath), []string{
		"#loop_i\tloop_j",
		"0\t1",
		"1\t2",
	})
	expect.EQ(t, readLines(t, summaryPath), []string{
		"#group\tn\tmean_size\tmedian_size\tmean_enhancers\tmean_promoters\tmean_ep_ratio\tn_ratio",
		"distinguished\t1\t3\t3\t2\t3\t" + v(2.0/3.0) + "\t1",
		"background\t2\t1\t1\t1\t0.5\t1\t1",
	})
}

func TestAnnotateEndToEnd(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	loopsPath := filepath.Join(tempDir, "loops.bedpe")
	writeInput(t, loopsPath,
		"chr1\t100\t200\tchr1\t900\t1000\n"+
			"chr1\t5000\t5100\tchr1\t9000\t9100\n")
	enhancersPath := filepath.Join(tempDir, "enhancers.bed")
	writeInput(t, enhancersPath, "chr1\t150\t160\n")
	promotersPath := filepath.Join(tempDir, "promoters.bed")
	writeInput(t, promotersPath, "chr1\t950\t960\n")
	outPath := filepath.Join(tempDir, "annotated.tsv")
	flags := &annotateFlags{
		input:    loopInputFlags{loops: loopsPath},
		features: featureFlags{enhancers: enhancersPath, promoters: promotersPath},
		out:      outPath,
	}
	assert.NoError(t, annotate(flags))
	expect.EQ(t, readLines(t, outPath), []string{
		"#chrom1\tstart1\tend1\tchrom2\tstart2\tend2\tstatus" +
			"\tanchor1_enhancer\tanchor1_promoter\tanchor2_enhancer\tanchor2_promoter",
		"chr1\t100\t200\tchr1\t900\t1000\t.\t1\t0\t0\t1",
		"chr1\t5000\t5100\tchr1\t9000\t9100\t.\t0\t0\t0\t0",
	})
}

func TestAnnotatePromoterEnhancerOverlap(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	loopsPath := filepath.Join(tempDir, "loops.bedpe")
	writeInput(t, loopsPath, "chr1\t100\t200\tchr1\t900\t1000\n")
	enhancersPath := filepath.Join(tempDir, "enhancers.bed")
	writeInput(t, enhancersPath, "chr1\t150\t160\n")
	promotersPath := filepath.Join(tempDir, "promoters.bed")
	writeInput(t, promotersPath, "chr1\t155\t165\n")
	outPath := filepath.Join(tempDir, "annotated.tsv")
	flags := &annotateFlags{
		input:    loopInputFlags{loops: loopsPath},
		features: featureFlags{enhancers: enhancersPath, promoters: promotersPath},
		out:      outPath,
	}
	// The enhancer overlaps a promoter, so it is dropped before tagging.
	assert.NoError(t, annotate(flags))
	expect.EQ(t, readLines(t, outPath)[1], "chr1\t100\t200\tchr1\t900\t1000\t.\t0\t1\t0\t0")

	flags.features.keepPromoterEnhancers = true
	assert.NoError(t, annotate(flags))
	expect.EQ(t, readLines(t, outPath)[1], "chr1\t100\t200\tchr1\t900\t1000\t.\t1\t1\t0\t0")
}

func TestAdjust(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	inPath := filepath.Join(tempDir, "pvalues.tsv")
	writeInput(t, inPath, "0.01\n0.04\n0.03\n0.005\n")
	outPath := filepath.Join(tempDir, "adjusted.tsv")
	assert.NoError(t, adjust(inPath, &adjustFlags{method: "bh", col: 1, out: outPath}))
	expect.EQ(t, readLines(t, outPath), []string{
		"#p\tp_adj",
		"0.01\t0.02",
		"0.04\t0.04",
		"0.03\t0.04",
		"0.005\t0.02",
	})
}

func TestQNormCmd(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	inPath := filepath.Join(tempDir, "matrix.txt")
	writeInput(t, inPath, "#a b c\n5 4 3\n2 1 4\n3 4 6\n4 2 8\n")
	outPath := filepath.Join(tempDir, "normalized.tsv")
	assert.NoError(t, runQNorm(inPath, &qnormFlags{out: outPath}))
	v := func(x float64) string { return strconv.FormatFloat(x, 'g', -1, 64) }
	expect.EQ(t, readLines(t, outPath), []string{
		v(17.0/3) + "\t" + v(31.0/6) + "\t2",
		"2\t2\t3",
		"3\t" + v(31.0/6) + "\t" + v(14.0/3),
		v(14.0/3) + "\t3\t" + v(17.0/3),
	})
}

func TestMain(m *testing.M) {
	shutdown := grail.Init()
	status := m.Run()
	shutdown()
	os.Exit(status)
}
