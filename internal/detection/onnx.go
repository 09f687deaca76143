package detection

import (
	"fmt"
	"image"
	"log/slog"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	xdraw "golang.org/x/image/draw"

	"github.com/zombor/recipify/internal/scanning"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton)
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. Only the first call has
// any effect.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		if libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// Config holds the settings for an ONNX detector
type Config struct {
	ModelPath           string
	LibraryPath         string
	Labels              []string
	InputSize           int
	ConfidenceThreshold float32
	IoUThreshold        float64
}

// ONNXDetector implements the Detector interface using a YOLO-style ONNX model
type ONNXDetector struct {
	mu         sync.Mutex
	session    *ort.DynamicAdvancedSession
	outputDims ort.Shape
	layout     outputLayout
	cfg        Config
}

// NewONNXDetector loads the model and validates its input and output shapes
func NewONNXDetector(cfg Config) (*ONNXDetector, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("onnx: model path is required")
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = 640
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.25
	}
	if cfg.IoUThreshold <= 0 {
		cfg.IoUThreshold = 0.45
	}

	if err := initORT(cfg.LibraryPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected 1 image input, got %d", len(inputs))
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}

	dims := outputs[0].Dimensions
	if len(dims) != 3 || dims[0] != 1 || dims[1] <= 0 || dims[2] <= 0 {
		return nil, fmt.Errorf("onnx: expected static [1, attrs, boxes] output, got %v", dims)
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	slog.Info("Loaded detection model", "path", cfg.ModelPath, "output", dims, "labels", len(cfg.Labels))

	return &ONNXDetector{
		session:    session,
		outputDims: dims,
		layout:     outputLayout{attrs: int(dims[1]), boxes: int(dims[2])},
		cfg:        cfg,
	}, nil
}

// Detect runs the model over the image and returns detections in source
// image pixels
func (d *ONNXDetector) Detect(imageData []byte, contentType string) ([]Detection, error) {
	img, err := scanning.DecodeImage(imageData, contentType)
	if err != nil {
		return nil, err
	}

	size := d.cfg.InputSize
	input, err := ort.NewTensor(ort.NewShape(1, 3, int64(size), int64(size)), toCHW(img, size))
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer input.Destroy()

	output, err := ort.NewEmptyTensor[float32](d.outputDims)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer output.Destroy()

	// Sessions are shared; runs are serialized
	d.mu.Lock()
	err = d.session.Run([]ort.Value{input}, []ort.Value{output})
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	b := img.Bounds()
	scaleX := float64(b.Dx()) / float64(size)
	scaleY := float64(b.Dy()) / float64(size)
	dets, err := decodeOutput(output.GetData(), d.layout, d.cfg.Labels, d.cfg.ConfidenceThreshold, scaleX, scaleY)
	if err != nil {
		return nil, fmt.Errorf("onnx: %w", err)
	}
	return nonMaxSuppression(dets, d.cfg.IoUThreshold), nil
}

// Close destroys the inference session
func (d *ONNXDetector) Close() error {
	return d.session.Destroy()
}

// toCHW resizes the image to size x size and lays it out as planar RGB
// floats in [0, 1]
func toCHW(img image.Image, size int) []float32 {
	rgba := image.NewRGBA(image.Rect(0, 0, size, size))
	xdraw.BiLinear.Scale(rgba, rgba.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	plane := size * size
	data := make([]float32, 3*plane)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			off := rgba.PixOffset(x, y)
			i := y*size + x
			data[i] = float32(rgba.Pix[off]) / 255
			data[plane+i] = float32(rgba.Pix[off+1]) / 255
			data[2*plane+i] = float32(rgba.Pix[off+2]) / 255
		}
	}
	return data
}
