package model

import (
	"fmt"
	"log"
	"strconv"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

var runtimeMu sync.Mutex

// InitRuntime initializes the ONNX Runtime environment for the process. It
// is a no-op when the environment is already up.
func InitRuntime(libPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

func DestroyRuntime() {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if !ort.IsInitialized() {
		return
	}
	if err := ort.DestroyEnvironment(); err != nil {
		log.Printf("Failed to destroy ONNX environment: %v", err)
	}
}

// Options controls how sessions are created.
type Options struct {
	UseCUDA  bool
	DeviceID int
	Threads  int
}

// Session wraps a fixed-shape ONNX session with its pre-allocated input and
// output tensors.
type Session struct {
	session *ort.AdvancedSession
	float   map[string]*ort.Tensor[float32]
	int64s  map[string]*ort.Tensor[int64]
	outputs map[string]*ort.Tensor[float32]
	values  []ort.Value
}

func NewSession(modelPath string, graph Graph, opts Options) (*Session, error) {
	s := &Session{
		float:   make(map[string]*ort.Tensor[float32]),
		int64s:  make(map[string]*ort.Tensor[int64]),
		outputs: make(map[string]*ort.Tensor[float32]),
	}

	inputNames := make([]string, 0, len(graph.Inputs))
	inputs := make([]ort.Value, 0, len(graph.Inputs))
	for _, spec := range graph.Inputs {
		shape := ort.NewShape(spec.Shape...)
		switch spec.Type {
		case "", "float32":
			t, err := ort.NewEmptyTensor[float32](shape)
			if err != nil {
				s.Close()
				return nil, fmt.Errorf("failed to create input tensor %q: %w", spec.Name, err)
			}
			s.float[spec.Name] = t
			inputs = append(inputs, t)
		case "int64":
			t, err := ort.NewEmptyTensor[int64](shape)
			if err != nil {
				s.Close()
				return nil, fmt.Errorf("failed to create input tensor %q: %w", spec.Name, err)
			}
			s.int64s[spec.Name] = t
			inputs = append(inputs, t)
		default:
			s.Close()
			return nil, fmt.Errorf("%w: unsupported input type %q for %q", ErrMetadata, spec.Type, spec.Name)
		}
		s.values = append(s.values, inputs[len(inputs)-1])
		inputNames = append(inputNames, spec.Name)
	}

	outputNames := make([]string, 0, len(graph.Outputs))
	outputs := make([]ort.Value, 0, len(graph.Outputs))
	for _, spec := range graph.Outputs {
		t, err := ort.NewEmptyTensor[float32](ort.NewShape(spec.Shape...))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to create output tensor %q: %w", spec.Name, err)
		}
		s.outputs[spec.Name] = t
		s.values = append(s.values, t)
		outputs = append(outputs, t)
		outputNames = append(outputNames, spec.Name)
	}

	sessOpts, err := sessionOptions(opts)
	if err != nil {
		s.Close()
		return nil, err
	}
	defer sessOpts.Destroy()

	session, err := ort.NewAdvancedSession(modelPath, inputNames, outputNames, inputs, outputs, sessOpts)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	s.session = session

	return s, nil
}

func sessionOptions(opts Options) (*ort.SessionOptions, error) {
	sessOpts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}

	if opts.Threads > 0 {
		if err := sessOpts.SetIntraOpNumThreads(opts.Threads); err != nil {
			sessOpts.Destroy()
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	if opts.UseCUDA {
		// CPU is used when the CUDA provider is unavailable.
		cudaOpts, err := ort.NewCUDAProviderOptions()
		if err != nil {
			log.Printf("CUDA provider unavailable, using CPU: %v", err)
			return sessOpts, nil
		}
		defer cudaOpts.Destroy()

		if err := cudaOpts.Update(map[string]string{"device_id": strconv.Itoa(opts.DeviceID)}); err != nil {
			log.Printf("Failed to configure CUDA provider, using CPU: %v", err)
			return sessOpts, nil
		}
		if err := sessOpts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
			log.Printf("Failed to enable CUDA provider, using CPU: %v", err)
		}
	}

	return sessOpts, nil
}

func (s *Session) SetFloat32(name string, data []float32) error {
	t, ok := s.float[name]
	if !ok {
		return fmt.Errorf("%w: no float32 input %q", ErrShape, name)
	}
	dst := t.GetData()
	if len(dst) != len(data) {
		return fmt.Errorf("%w: input %q expects %d values, got %d", ErrShape, name, len(dst), len(data))
	}
	copy(dst, data)
	return nil
}

func (s *Session) SetInt64(name string, data []int64) error {
	t, ok := s.int64s[name]
	if !ok {
		return fmt.Errorf("%w: no int64 input %q", ErrShape, name)
	}
	dst := t.GetData()
	if len(dst) != len(data) {
		return fmt.Errorf("%w: input %q expects %d values, got %d", ErrShape, name, len(dst), len(data))
	}
	copy(dst, data)
	return nil
}

func (s *Session) Run() error {
	if s.session == nil {
		return ErrClosed
	}
	if err := s.session.Run(); err != nil {
		return fmt.Errorf("inference failed: %w", err)
	}
	return nil
}

// Output returns the data of the named output tensor. The slice is owned
// by the session and is overwritten by the next Run.
func (s *Session) Output(name string) ([]float32, error) {
	t, ok := s.outputs[name]
	if !ok {
		return nil, fmt.Errorf("%w: no output %q", ErrShape, name)
	}
	return t.GetData(), nil
}

func (s *Session) Close() {
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
	for _, v := range s.values {
		v.Destroy()
	}
	s.values = nil
}
