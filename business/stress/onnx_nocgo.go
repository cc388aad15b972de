//go:build !cgo

package stress

// ONNXConfig names the model tensors and the runtime library.
type ONNXConfig struct {
	SharedLibraryPath string
	InputName         string
	OutputName        string
	Frames            int
}

// ONNXLoader always fails without cgo; the classifier stays on rules.
func ONNXLoader(cfg ONNXConfig) Loader {
	return func(path string) (Predictor, error) {
		return nil, ErrModelUnavailable
	}
}
