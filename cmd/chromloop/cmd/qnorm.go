package cmd

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/chromloop/qnorm"
	"github.com/pkg/errors"
	"v.io/x/lib/cmdline"
)

type qnormFlags struct {
	headerRow bool
	out       string
}

func newCmdQNorm() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "qnorm",
		Short:    "Quantile normalize the columns of a numeric matrix",
		ArgsName: "path",
	}
	flags := &qnormFlags{}
	cmd.Flags.BoolVar(&flags.headerRow, "header-row", false, "Treat the first non-comment line as a header and copy it through")
	cmd.Flags.StringVar(&flags.out, "out", "", "Output TSV path. If empty, results are written to stdout")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("qnorm takes one pathname argument, but got %v", argv)
		}
		return runQNorm(argv[0], flags)
	})
	return cmd
}

func runQNorm(path string, flags *qnormFlags) error {
	var header string
	var samples [][]float64
	if err := withInput(path, func(r io.Reader) error {
		return readMatrix(r, flags.headerRow, &header, &samples)
	}); err != nil {
		return err
	}
	if err := qnorm.Normalize(samples); err != nil {
		return err
	}
	nRows := 0
	if len(samples) > 0 {
		nRows = len(samples[0])
	}
	log.Printf("normalized %d column(s) x %d row(s)", len(samples), nRows)
	return withOutput(flags.out, func(w io.Writer) error {
		out := tsv.NewWriter(w)
		if header != "" {
			out.WriteString(header)
			if err := out.EndLine(); err != nil {
				return err
			}
		}
		for i := 0; i < nRows; i++ {
			for j := range samples {
				out.WriteString(strconv.FormatFloat(samples[j][i], 'g', -1, 64))
			}
			if err := out.EndLine(); err != nil {
				return err
			}
		}
		return out.Flush()
	})
}

// readMatrix reads a whitespace-separated numeric matrix, one column per
// sample.  The first data line fixes the column count.
func readMatrix(r io.Reader, headerRow bool, header *string, samples *[][]float64) error {
	scanner := bufio.NewScanner(r)
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
			*header = string(curLine)
			continue
		}
		fields := bytes.Fields(curLine)
		if len(fields) == 0 {
			continue
		}
		if *samples == nil {
			*samples = make([][]float64, len(fields))
		} else if len(fields) != len(*samples) {
			return errors.Errorf("line %d has %d column(s), want %d", lineNo, len(fields), len(*samples))
		}
		for j, field := range fields {
			v, err := strconv.ParseFloat(gunsafe.BytesToString(field), 64)
			if err != nil {
				return errors.Wrapf(err, "line %d column %d", lineNo, j+1)
			}
			(*samples)[j] = append((*samples)[j], v)
		}
	}
	return scanner.Err()
}
