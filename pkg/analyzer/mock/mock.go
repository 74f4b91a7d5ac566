// Package mock provides an in-memory mock implementation of the
// [analyzer.Analyzer] interface for use in unit tests.
package mock

import (
	"context"
	"sync"

	"github.com/korralabs/recbooth/pkg/analyzer"
)

// Analyzer is a mock implementation of [analyzer.Analyzer].
// Set the exported Result fields before use; inspect the Call* fields after.
type Analyzer struct {
	mu sync.Mutex

	// AnalyzeResult is returned by [Analyzer.Analyze] when AnalyzeError is nil.
	AnalyzeResult analyzer.Report

	// AnalyzeError is returned by [Analyzer.Analyze].
	AnalyzeError error

	// CallCountAnalyze records how many times Analyze was called.
	CallCountAnalyze int

	// RecordedPayloads holds the WAV payloads passed to each Analyze call.
	RecordedPayloads [][]byte
}

// Analyze implements [analyzer.Analyzer].
func (a *Analyzer) Analyze(_ context.Context, wav []byte) (analyzer.Report, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.CallCountAnalyze++
	a.RecordedPayloads = append(a.RecordedPayloads, wav)
	if a.AnalyzeError != nil {
		return analyzer.Report{}, a.AnalyzeError
	}
	return a.AnalyzeResult, nil
}
