package inference

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"alfredoptarigan/hiresense/internal/scoring"
)

var (
	envMu   sync.Mutex
	envRefs int
)

// acquireRuntime initializes the process-wide ONNX Runtime environment on
// first use. Every successful call must be paired with releaseRuntime.
func acquireRuntime(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs == 0 {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		if err := ort.InitializeEnvironment(); err != nil {
			return fmt.Errorf("%w: failed to initialize onnxruntime: %v", scoring.ErrModelUnavailable, err)
		}
	}
	envRefs++
	return nil
}

func releaseRuntime() error {
	envMu.Lock()
	defer envMu.Unlock()

	if envRefs == 0 {
		return nil
	}
	envRefs--
	if envRefs == 0 {
		return ort.DestroyEnvironment()
	}
	return nil
}

// flatten copies a rectangular batch into one row-major slice.
func flatten(rows [][]int64) []int64 {
	if len(rows) == 0 {
		return nil
	}
	out := make([]int64, 0, len(rows)*len(rows[0]))
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}
