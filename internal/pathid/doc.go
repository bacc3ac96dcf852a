// Package pathid defines the structured lineage addresses used to identify
// traversal paths. A path address records the fork history that produced the
// path: the root path is "0", its second forked child is "0.1", and so on.
// Addresses are deterministic for a deterministic run, which makes them
// stable keys in completion reports and tests.
package pathid
