package cmd

import (
	"fmt"
	"io"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/chromloop/loop"
	"v.io/x/lib/cmdline"
)

type annotateFlags struct {
	input    loopInputFlags
	features featureFlags
	out      string
}

func newCmdAnnotate() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "annotate",
		Short: "Tag loop anchors against enhancer and promoter intervals",
	}
	flags := &annotateFlags{}
	registerLoopInputFlags(cmd, &flags.input)
	registerFeatureFlags(cmd, &flags.features)
	cmd.Flags.StringVar(&flags.out, "out", "", "Output TSV path. If empty, results are written to stdout")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) > 0 {
			return fmt.Errorf("annotate takes no positional arguments, but got %v", argv)
		}
		return annotate(flags)
	})
	return cmd
}

func annotate(flags *annotateFlags) error {
	s, dict, err := flags.input.load()
	if err != nil {
		return err
	}
	enhancers, promoters, err := flags.features.annotations(s, dict, flags.input.oneBased)
	if err != nil {
		return err
	}
	return withOutput(flags.out, func(w io.Writer) error {
		return writeAnnotated(w, s, enhancers, promoters)
	})
}

// writeAnnotated emits one row per loop.  Coordinates are 0-based half-open,
// annotation marks are 1/0, and a missing status prints as ".".
func writeAnnotated(w io.Writer, s *loop.Set, enhancers, promoters loop.Annotation) error {
	out := tsv.NewWriter(w)
	out.WriteString("#chrom1\tstart1\tend1\tchrom2\tstart2\tend2\tstatus" +
		"\tanchor1_enhancer\tanchor1_promoter\tanchor2_enhancer\tanchor2_promoter")
	if err := out.EndLine(); err != nil {
		return err
	}
	for i := 0; i < s.NLoops(); i++ {
		writeAnchor(out, s.Anchor1[i])
		writeAnchor(out, s.Anchor2[i])
		status := "."
		if s.Status != nil && s.Status[i] != "" {
			status = s.Status[i]
		}
		out.WriteString(status)
		out.WriteUint32(boolMark(enhancers.Anchor1[i]))
		out.WriteUint32(boolMark(promoters.Anchor1[i]))
		out.WriteUint32(boolMark(enhancers.Anchor2[i]))
		out.WriteUint32(boolMark(promoters.Anchor2[i]))
		if err := out.EndLine(); err != nil {
			return err
		}
	}
	return out.Flush()
}
