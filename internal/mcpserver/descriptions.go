package mcpserver

// Tool descriptions carry interpretation guidance for the calling model.

func describeCyclomatic() string {
	return `Measures cyclomatic complexity hierarchically: every file is a tree of spaces (unit, class, function, closure) and each space reports its own local complexity plus the sum, average, min and max over everything nested in it.

USE WHEN:
- Finding functions that are hard to test because they have many paths
- Comparing how complexity is spread across classes and their methods
- Checking a change against complexity thresholds before review

INTERPRETING RESULTS:
- complexity is the local value of one space: 1 plus its decision points, nested spaces excluded
- cyclomatic.sum counts the space and all nested spaces, cyclomatic.average divides by the number of spaces
- Local complexity > 10: many code paths, consider splitting
- Local complexity > 20: high risk, strong refactoring candidate
- A file average above 5 means complexity is spread widely, not concentrated in one function
- summary.functions p90/p95 show the tail of the codebase

METRICS RETURNED:
- Per-file: unit record {sum, average, min, max} and the function list with dotted names
- Optional per-file space tree (include_spaces)
- Summary: project record, function percentiles, threshold violations`
}
