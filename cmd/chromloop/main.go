/*
chromloop builds anchor-overlap graphs over chromatin loop sets and derives
connected communities with per-community statistics.

Sample usage:
chromloop communities \
    -loops loops.bedpe \
    -status-col 7 \
    -enhancers enhancers.bed \
    -promoters promoters.bed \
    -out communities.tsv \
    -summary-out summary.tsv
*/
package main

import "github.com/grailbio/chromloop/cmd/chromloop/cmd"

func main() {
	cmd.Run()
}
