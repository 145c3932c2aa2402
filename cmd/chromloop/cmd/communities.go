package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/chromloop/community"
	"github.com/grailbio/chromloop/loop"
	"github.com/grailbio/chromloop/padjust"
	"v.io/x/lib/cmdline"
)

type communitiesFlags struct {
	input           loopInputFlags
	features        featureFlags
	callStatus      bool
	method          string
	maxQ            float64
	distinguished   string
	includeIsolated bool
	uniqueAnchors   bool
	out             string
	edgesOut        string
	summaryOut      string
}

func newCmdCommunities() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "communities",
		Short: "Build the anchor overlap graph and summarize its communities",
	}
	flags := &communitiesFlags{}
	registerLoopInputFlags(cmd, &flags.input)
	registerFeatureFlags(cmd, &flags.features)
	cmd.Flags.BoolVar(&flags.callStatus, "call-status", false, "Recompute status labels from -pvalue-col and -logfc-col before grouping")
	cmd.Flags.StringVar(&flags.method, "method", "bh", "Multiple-testing correction for -call-status: bonferroni, holm, bh or fdr")
	cmd.Flags.Float64Var(&flags.maxQ, "max-q", loop.DefaultCallOpts.MaxQ, "Adjusted p-value cutoff for -call-status")
	cmd.Flags.StringVar(&flags.distinguished, "distinguished", community.DefaultDistinguished, "Status label that marks a community as distinguished")
	cmd.Flags.BoolVar(&flags.includeIsolated, "include-isolated", false, "Report loops without overlap partners as singleton communities")
	cmd.Flags.BoolVar(&flags.uniqueAnchors, "unique-anchors", false, "Count each distinct anchor interval once when tallying enhancers and promoters")
	cmd.Flags.StringVar(&flags.out, "out", "", "Community table output path. If empty, results are written to stdout")
	cmd.Flags.StringVar(&flags.edgesOut, "edges-out", "", "Optional output path for the overlap graph edge list")
	cmd.Flags.StringVar(&flags.summaryOut, "summary-out", "", "Optional output path for the distinguished vs. background group summary")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) > 0 {
			return fmt.Errorf("communities takes no positional arguments, but got %v", argv)
		}
		return communities(flags)
	})
	return cmd
}

func communities(flags *communitiesFlags) error {
	s, dict, err := flags.input.load()
	if err != nil {
		return err
	}
	if flags.callStatus {
		method, err := padjust.ByName(flags.method)
		if err != nil {
			return err
		}
		if s, err = loop.CallStatus(s, loop.CallOpts{Method: method, MaxQ: flags.maxQ}); err != nil {
			return err
		}
	}
	enhancers, promoters, err := flags.features.annotations(s, dict, flags.input.oneBased)
	if err != nil {
		return err
	}
	g, err := community.BuildGraph(s)
	if err != nil {
		return err
	}
	if len(g.Edges) == 0 {
		log.Printf("overlap graph is empty: %d loop(s), 0 edge(s)", g.NLoops)
	}
	comms, err := g.Components(community.ComponentsOpts{IncludeIsolated: flags.includeIsolated})
	if err != nil {
		return err
	}
	stats, err := community.Aggregate(s, comms, enhancers, promoters, community.AggregateOpts{
		Distinguished: flags.distinguished,
		UniqueAnchors: flags.uniqueAnchors,
	})
	if err != nil {
		return err
	}
	log.Printf("extracted %d communities from %d loop(s) and %d edge(s)",
		len(comms), g.NLoops, len(g.Edges))
	if err := withOutput(flags.out, func(w io.Writer) error {
		return writeCommunities(w, stats)
	}); err != nil {
		return err
	}
	if flags.edgesOut != "" {
		if err := withOutput(flags.edgesOut, func(w io.Writer) error {
			return writeEdges(w, g)
		}); err != nil {
			return err
		}
	}
	if flags.summaryOut != "" {
		c := community.Compare(stats)
		if err := withOutput(flags.summaryOut, func(w io.Writer) error {
			return writeSummary(w, c)
		}); err != nil {
			return err
		}
	}
	return nil
}

// writeCommunities emits one row per community, ordered by smallest member
// loop index.  An undefined enhancer/promoter ratio prints as "NA".
func writeCommunities(w io.Writer, stats []community.Stats) error {
	out := tsv.NewWriter(w)
	out.WriteString("#community\tsize\tn_distinguished\thas_distinguished\tenhancers\tpromoters\tep_ratio\tloops")
	if err := out.EndLine(); err != nil {
		return err
	}
	for i, st := range stats {
		out.WriteUint32(uint32(i))
		out.WriteUint32(uint32(st.Size))
		out.WriteUint32(uint32(st.Distinguished))
		out.WriteUint32(boolMark(st.HasDistinguished))
		out.WriteUint32(uint32(st.EnhancerCount))
		out.WriteUint32(uint32(st.PromoterCount))
		out.WriteString(formatFloat(st.Ratio))
		out.WriteString(formatLoopList(st.Loops))
		if err := out.EndLine(); err != nil {
			return err
		}
	}
	return out.Flush()
}

func formatLoopList(loops []int) string {
	var b strings.Builder
	for i, idx := range loops {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(idx))
	}
	return b.String()
}

func writeEdges(w io.Writer, g community.Graph) error {
	out := tsv.NewWriter(w)
	out.WriteString("#loop_i\tloop_j")
	if err := out.EndLine(); err != nil {
		return err
	}
	for _, e := range g.Edges {
		out.WriteUint32(uint32(e.I))
		out.WriteUint32(uint32(e.J))
		if err := out.EndLine(); err != nil {
			return err
		}
	}
	return out.Flush()
}

func writeSummary(w io.Writer, c community.Comparison) error {
	out := tsv.NewWriter(w)
	out.WriteString("#group\tn\tmean_size\tmedian_size\tmean_enhancers\tmean_promoters\tmean_ep_ratio\tn_ratio")
	if err := out.EndLine(); err != nil {
		return err
	}
	groups := []struct {
		name  string
		group community.GroupSummary
	}{
		{"distinguished", c.Distinguished},
		{"background", c.Background},
	}
	for _, g := range groups {
		out.WriteString(g.name)
		out.WriteUint32(uint32(g.group.N))
		out.WriteString(formatFloat(g.group.MeanSize))
		out.WriteString(formatFloat(g.group.MedianSize))
		out.WriteString(formatFloat(g.group.MeanEnhancers))
		out.WriteString(formatFloat(g.group.MeanPromoters))
		out.WriteString(formatFloat(g.group.MeanRatio))
		out.WriteUint32(uint32(g.group.NRatio))
		if err := out.EndLine(); err != nil {
			return err
		}
	}
	return out.Flush()
}
