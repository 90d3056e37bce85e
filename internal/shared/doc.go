// Package shared holds helpers used by more than one Sales Insight package.
//
// The testutil subpackage provides the standard sales fixture (a 100-row
// dataset with known duplicates, blank Sales cells and zero quantities),
// CSV writers for ad hoc records and a slog capture handler for asserting
// on log output:
//
//	func TestSomething(t *testing.T) {
//	    logger, capture := testutil.NewTestLogger(t)
//	    path := testutil.WriteSalesFixture(t, t.TempDir())
//	    // run code under test with logger and path
//	    testutil.AssertLogContains(t, capture, slog.LevelInfo, "analysis completed")
//	}
//
// Nothing here carries business logic.
package shared
