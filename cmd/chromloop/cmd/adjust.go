package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/chromloop/interval"
	"github.com/grailbio/chromloop/padjust"
	"github.com/pkg/errors"
	"v.io/x/lib/cmdline"
)

type adjustFlags struct {
	method    string
	col       int
	headerRow bool
	out       string
}

func newCmdAdjust() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "adjust",
		Short:    "Adjust a column of p-values for multiple testing",
		ArgsName: "path",
	}
	flags := &adjustFlags{}
	cmd.Flags.StringVar(&flags.method, "method", "bh", "Correction method: bonferroni, holm, bh or fdr")
	cmd.Flags.IntVar(&flags.col, "col", 1, "1-based column holding the p-values")
	cmd.Flags.BoolVar(&flags.headerRow, "header-row", false, "Skip the first non-comment line of the input")
	cmd.Flags.StringVar(&flags.out, "out", "", "Output TSV path. If empty, results are written to stdout")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("adjust takes one pathname argument, but got %v", argv)
		}
		return adjust(argv[0], flags)
	})
	return cmd
}

func adjust(path string, flags *adjustFlags) error {
	proc, err := padjust.ByName(flags.method)
	if err != nil {
		return err
	}
	if flags.col < 1 {
		return errors.Errorf("-col must be positive, got %d", flags.col)
	}
	var pvalues []float64
	if err := withInput(path, func(r io.Reader) error {
		return readColumn(r, flags.col, flags.headerRow, &pvalues)
	}); err != nil {
		return err
	}
	adjusted, err := proc(pvalues)
	if err != nil {
		return err
	}
	log.Printf("adjusted %d p-value(s) with %s", len(pvalues), flags.method)
	return withOutput(flags.out, func(w io.Writer) error {
		out := tsv.NewWriter(w)
		out.WriteString("#p\tp_adj")
		if err := out.EndLine(); err != nil {
			return err
		}
		for i, p := range pvalues {
			out.WriteString(strconv.FormatFloat(p, 'g', -1, 64))
			out.WriteString(strconv.FormatFloat(adjusted[i], 'g', -1, 64))
			if err := out.EndLine(); err != nil {
				return err
			}
		}
		return out.Flush()
	})
}

// readColumn collects the col'th whitespace-separated token of every data
// line as a float64.  Lines that are blank or start with '#' are skipped.
func readColumn(r io.Reader, col int, headerRow bool, values *[]float64) error {
	scanner := bufio.NewScanner(r)
	tokens := make([][]byte, col)
	lineNo := 0
	sawHeader := false
	for scanner.Scan() {
		lineNo++
		curLine := scanner.Bytes()
		if len(curLine) == 0 || curLine[0] == '#' {
			continue
		}
		if headerRow && !sawHeader {
			sawHeader = true
			continue
		}
		nToken := interval.Tokenize(tokens, curLine)
		if nToken < col {
			return errors.Errorf("line %d has %d token(s), want at least %d", lineNo, nToken, col)
		}
		v, err := strconv.ParseFloat(gunsafe.BytesToString(tokens[col-1]), 64)
		if err != nil {
			return errors.Wrapf(err, "line %d", lineNo)
		}
		*values = append(*values, v)
	}
	return scanner.Err()
}
