package printer

import (
	"context"
	"fmt"

	"github.com/thereceipt/label-designer/internal/renderer"
	"github.com/thereceipt/label-designer/pkg/labelformat"
	"go.uber.org/zap"
)

// Status strings returned by Queue.Process
const (
	StatusEmpty      = "Print queue is empty."
	StatusNoPrinter  = "No printer selected - auto-detect found no compatible printer."
	StatusFailed     = "Failed to print label"
	statusExceptionf = "Exception during sending to printer: %s"
)

// QueueConfig configures a Queue
type QueueConfig struct {
	Model     string
	Device    string
	LabelSize string
	Encoder   Encoder
	Pool      *Pool
	Journal   *Journal
}

type entry struct {
	label   renderer.Label
	cut     bool
	highRes bool
}

// Queue collects labels for one print request and sends them as a single batch.
// It is not safe for concurrent use.
type Queue struct {
	model   string
	device  Device
	size    labelformat.LabelSize
	encoder Encoder
	pool    *Pool
	journal *Journal
	entries []entry
	log     *zap.Logger
}

// NewQueue validates the descriptor and label size
func NewQueue(cfg QueueConfig, log *zap.Logger) (*Queue, error) {
	device, err := ParseDevice(cfg.Device)
	if err != nil {
		return nil, err
	}
	size, err := labelformat.LookupSize(cfg.LabelSize)
	if err != nil {
		return nil, err
	}
	if cfg.Encoder == nil {
		cfg.Encoder = ESCPOSEncoder{}
	}
	if cfg.Pool == nil {
		cfg.Pool = NewPool(nil, log)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Queue{
		model:   cfg.Model,
		device:  device,
		size:    size,
		encoder: cfg.Encoder,
		pool:    cfg.Pool,
		journal: cfg.Journal,
		log:     log.Named("queue"),
	}, nil
}

// Device returns the parsed target
func (q *Queue) Device() Device { return q.device }

// Len returns the number of queued labels
func (q *Queue) Len() int { return len(q.entries) }

// AddLabel appends a label
func (q *Queue) AddLabel(label renderer.Label, cut, highRes bool) {
	q.entries = append(q.entries, entry{label: label, cut: cut, highRes: highRes})
}

// rotation mirrors how the printer expects each media kind to be fed
func rotation(label renderer.Label) Rotation {
	if label.Type() != renderer.Endless {
		return RotateAuto
	}
	if label.Orientation() == renderer.Standard {
		return RotateNone
	}
	return Rotate90
}

// Process renders every queued label and sends the batch. The queue is
// emptied either way. Rendering problems are returned as errors; transport
// problems are reported through the status string, which is empty on success.
func (q *Queue) Process(ctx context.Context) (string, error) {
	if len(q.entries) == 0 {
		q.log.Warn("print queue is empty")
		return StatusEmpty, nil
	}
	entries := q.entries
	q.entries = nil

	rasters := make([]Raster, 0, len(entries))
	for _, e := range entries {
		img, err := e.label.Generate(false)
		if err != nil {
			return "", err
		}
		r, err := PrepareRaster(img, RasterOptions{
			Size:    q.size,
			Rotate:  rotation(e.label),
			Dither:  e.label.Content() != renderer.ImageBW,
			Cut:     e.cut,
			HighRes: e.highRes,
		})
		if err != nil {
			return "", err
		}
		rasters = append(rasters, r)
	}

	data, err := q.encoder.Encode(rasters)
	if err != nil {
		return "", fmt.Errorf("failed to encode labels: %w", err)
	}

	var jobID string
	if q.journal != nil {
		jobID = q.journal.start(q.device.Spec, q.model, q.size.Identifier, len(rasters), len(data))
	}
	status := q.send(ctx, data)
	if q.journal != nil {
		q.journal.finish(jobID, status)
	}
	return status, nil
}

func (q *Queue) send(ctx context.Context, data []byte) string {
	log := q.log.With(zap.String("device", q.device.Spec), zap.Int("bytes", len(data)))

	switch q.device.Kind {
	case KindSimulation:
		log.Info("simulated sending data to simulator printer")
		return ""
	case KindAuto:
		return StatusNoPrinter
	}

	log.Info("sending data to printer")
	n, err := q.pool.Send(ctx, q.device, spoolExt(q.encoder), data)
	if err != nil {
		log.Error("exception during sending to printer", zap.Error(err))
		return fmt.Sprintf(statusExceptionf, err)
	}
	if n < len(data) {
		log.Warn("failed to print label", zap.Int("written", n))
		return StatusFailed
	}
	if q.device.Kind == KindTCP {
		log.Info("network printer does not provide status information")
	} else {
		log.Info("label sent")
	}
	return ""
}

func spoolExt(e Encoder) string {
	if e.Name() == ProtocolPNG {
		return "png"
	}
	return "bin"
}
