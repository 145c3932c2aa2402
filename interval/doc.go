/*Package interval implements operations on sets of genomic intervals,
  optimized for coordinates represented by BED-family files.
  It provides two complementary facilities:

  - FeatureSet, an interval-union index supporting fast "does this interval
    overlap the set" queries.  (Note the 'union'.  Overlapping intervals are
    merged at construction, not tracked separately.)
  - OverlapPairs/SelfOverlapPairs, a sorted sweep reporting every overlapping
    pair between two interval slices, with the original indices preserved.

  It assumes every position fits in a PosType, which is currently defined as
  int32 since that's what BAM files are limited to.
*/
package interval
