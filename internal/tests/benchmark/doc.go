// Package benchmark provides performance benchmarks for the storage
// backends, the encryption layer and session issuance.
//
// Run benchmarks with:
//
//	go test -bench=. -benchmem ./internal/tests/benchmark/...
//
// Compare a backend across payload sizes:
//
//	go test -bench='BenchmarkStorageSave/badger' -benchmem ./internal/tests/benchmark/...
//
// Generate a report and compare runs:
//
//	go test -bench=. -benchmem -count=5 ./internal/tests/benchmark/... | tee new.txt
//	benchstat old.txt new.txt
package benchmark
