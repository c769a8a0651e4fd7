// Package performance holds benchmarks for worker sessions and the embedded
// broker. Run them with:
//
//	go test -bench=. -benchmem ./tests/performance/...
//
// or collect a report with benchmarks/run_benchmarks.go.
package performance
