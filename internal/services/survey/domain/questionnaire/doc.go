// Package questionnaire models the per-item question tree of a survey.
//
// A Definition is a declarative list of fields. Each field may carry a gate:
// an explicit set of values of an earlier choice field for which the field is
// shown and, when required, must be answered. Gates are set membership, not
// ranges, because deployed surveys gate on non-contiguous and overlapping
// bands (clues on {-1,2,3} while net rating is on {0,1,2}).
//
// The same interpreter (Active) drives both rendering and Validate, so what a
// respondent sees and what the validator requires cannot drift apart.
package questionnaire
