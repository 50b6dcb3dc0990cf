package detection

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-facetrack/internal/log"
)

// YuNet output rows are x, y, w, h, five landmark pairs, then the score.
const (
	yunetCols  = 15
	yunetScore = 14
)

// YuNetDetector runs the YuNet ONNX face model through gocv.FaceDetectorYN.
// It is more robust to pose and lighting than the Haar cascade.
type YuNetDetector struct {
	mu     sync.Mutex
	net    gocv.FaceDetectorYN
	input  image.Point
	config Config
}

// NewYuNet loads the model at cfg.ModelPath
func NewYuNet(cfg Config) (*YuNetDetector, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, &ModelLoadError{Backend: BackendYuNet, Path: cfg.ModelPath, Err: err}
	}

	input := image.Pt(cfg.InputWidth, cfg.InputHeight)
	net := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath, "",
		input,
		float32(cfg.ConfidenceThresh),
		0.3,  // NMS
		5000, // top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	log.Debug("yunet loaded", "path", cfg.ModelPath, "confidence", cfg.ConfidenceThresh)

	return &YuNetDetector{net: net, input: input, config: cfg}, nil
}

// Detect returns face boxes clipped to the frame
func (d *YuNetDetector) Detect(frame gocv.Mat) ([]Box, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	size := image.Pt(frame.Cols(), frame.Rows())
	if size != d.input {
		d.net.SetInputSize(size)
		d.input = size
	}

	out := gocv.NewMat()
	defer out.Close()
	d.net.Detect(frame, &out)

	if out.Empty() || out.Cols() < yunetCols {
		return nil, nil
	}

	bounds := image.Rectangle{Max: size}
	boxes := make([]Box, 0, out.Rows())
	for row := 0; row < out.Rows(); row++ {
		if out.GetFloatAt(row, yunetScore) < float32(d.config.ConfidenceThresh) {
			continue
		}
		x, y := int(out.GetFloatAt(row, 0)), int(out.GetFloatAt(row, 1))
		w, h := int(out.GetFloatAt(row, 2)), int(out.GetFloatAt(row, 3))

		r := image.Rect(x, y, x+w, y+h).Intersect(bounds)
		if r.Empty() {
			continue
		}
		boxes = append(boxes, FromRect(r))
	}

	if len(boxes) > 0 {
		log.Debug("yunet found faces", "count", len(boxes))
	}
	return boxes, nil
}

// Close releases the network
func (d *YuNetDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.net.Close()
	return nil
}
