// Package operations runs the sales analysis pipeline.
//
// A run is a fixed sequence of steps registered with a Registry and executed
// by a Manager:
//
//   - load: read the source file into a dataset table
//   - clean: drop duplicates, impute missing values, filter invalid rows
//   - derive: add profit, margin, unit price and calendar columns
//   - aggregate: run every aggregator over the enriched table
//   - export: persist reports, the cleaned table and the analysis log
//
// Steps share an OperationState. Each one reads what earlier steps produced
// and stores its own output there. A step that returns an error aborts the
// run; problems a step can work around are recorded in the analysis log as
// diagnostics instead.
//
// Example usage:
//
//	mgr := operations.NewPipeline(operations.ConfigFrom(cfg), logger)
//	result, err := mgr.Execute(ctx, operations.Request{Source: "sales.csv"})
package operations
