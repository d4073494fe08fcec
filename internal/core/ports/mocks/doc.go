// Package mocks provides test doubles for ports interfaces.
//
// These mocks are simple, thread-safe, in-memory implementations suitable for
// unit testing. Each mock provides:
//
//   - Setters for the rows each loader returns
//   - Callback functions (xxxFn) for customizing behavior per test
//   - Error and delay injection for failure and concurrency tests
//
// # Usage Example
//
//	func TestRebuild(t *testing.T) {
//		src := mocks.NewSource()
//		src.SetOutputs(ports.OutputRow{ResearchID: "R1"})
//
//		engine := aggregate.New(src, nil)
//		// ... test engine behavior
//	}
//
// # Available Mocks
//
//   - Source: implements ports.Source
package mocks
