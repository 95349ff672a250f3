// Package importer turns spreadsheet exports into procedures.
//
// ParseFile maps the header row of a CSV file onto procedure fields and
// returns one field map per usable row. Reconciler.Reconcile then creates a
// procedure for every row whose canonical content is not already present in
// the tenant, skipping duplicates, including duplicates within the same
// file. A failing row is recorded and the batch continues; all created rows
// commit together.
package importer
