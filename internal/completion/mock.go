// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package completion

import (
	"context"
	"fmt"
)

// Mock is a scripted Client for tests and local debugging. Responses are
// consumed in order; Chunks controls how Stream slices each response.
type Mock struct {
	// Responses are returned in order by Complete/Stream. When exhausted,
	// further calls return an error.
	Responses []Result

	// Errs, when non-nil at the current call index, is returned instead of
	// the response at that index.
	Errs []error

	// ChunkSize slices streamed responses into pieces of this many bytes.
	// Zero streams each response as a single chunk.
	ChunkSize int

	// Calls records every (system, user) pair received, for assertions.
	Calls [][2]string

	next int
}

func (m *Mock) take(system, user string) (Result, error) {
	m.Calls = append(m.Calls, [2]string{system, user})
	i := m.next
	m.next++
	if i < len(m.Errs) && m.Errs[i] != nil {
		return Result{}, m.Errs[i]
	}
	if i >= len(m.Responses) {
		return Result{}, fmt.Errorf("mock completion: no response scripted for call %d", i)
	}
	return m.Responses[i], nil
}

// Complete returns the next scripted response.
func (m *Mock) Complete(_ context.Context, system, user string) (Result, error) {
	return m.take(system, user)
}

// Stream returns the next scripted response, delivered through fn in
// ChunkSize pieces.
func (m *Mock) Stream(ctx context.Context, system, user string, fn ChunkFunc) (Result, error) {
	res, err := m.take(system, user)
	if err != nil {
		return Result{}, err
	}
	size := m.ChunkSize
	if size <= 0 {
		size = len(res.Text)
	}
	for start := 0; start < len(res.Text); start += size {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		end := start + size
		if end > len(res.Text) {
			end = len(res.Text)
		}
		if err := fn(res.Text[start:end]); err != nil {
			return Result{}, err
		}
	}
	return res, nil
}
