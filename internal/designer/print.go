package designer

import (
	"context"

	"github.com/thereceipt/label-designer/internal/printer"
	"github.com/thereceipt/label-designer/pkg/labelformat"
)

// PrinterSettings are the service-wide printer defaults
type PrinterSettings struct {
	Device     string
	Model      string
	Simulation bool
	Encoder    printer.Encoder
	Pool       *printer.Pool
	Journal    *printer.Journal
}

// Target picks the device and model for a request. Auto-detect
// falls back to the simulator when simulation is enabled.
func (s PrinterSettings) Target(req *labelformat.Request) (device, model string) {
	device, model = req.Printer, req.Model
	if device == "" {
		device = s.Device
	}
	if model == "" {
		model = s.Model
	}
	if (device == "?" || device == "") && s.Simulation {
		device = "simulation"
	}
	return device, model
}

// BuildQueue creates an empty queue for a request
func (f *Factory) BuildQueue(req *labelformat.Request, settings PrinterSettings) (*printer.Queue, error) {
	device, model := settings.Target(req)
	return printer.NewQueue(printer.QueueConfig{
		Model:     model,
		Device:    device,
		LabelSize: req.LabelSize,
		Encoder:   settings.Encoder,
		Pool:      settings.Pool,
		Journal:   settings.Journal,
	}, f.log)
}

// Print renders print_count copies and sends them as one batch. With
// cut_once only the last copy is cut. The returned status is empty on success.
func (f *Factory) Print(ctx context.Context, req *labelformat.Request, upload *Upload, settings PrinterSettings) (string, error) {
	if err := labelformat.Validate(req); err != nil {
		return "", err
	}
	q, err := f.BuildQueue(req, settings)
	if err != nil {
		return "", err
	}
	for i := 0; i < req.PrintCount; i++ {
		label, err := f.BuildLabel(req, upload, i)
		if err != nil {
			return "", err
		}
		cut := !req.CutOnce || i == req.PrintCount-1
		q.AddLabel(label, cut, req.HighRes)
	}
	return q.Process(ctx)
}
