package designer

import (
	"bytes"
	"image"

	"github.com/thereceipt/label-designer/internal/renderer"
	"github.com/thereceipt/label-designer/pkg/labelformat"
	"go.uber.org/zap"
)

// image loads the upload, or the stored image a saved label refers to.
// A broken stored image is logged and skipped; a broken upload is an error.
func (f *Factory) image(req *labelformat.Request, upload *Upload) (image.Image, error) {
	if upload != nil && len(upload.Data) > 0 {
		img, err := renderer.DecodeImage(bytes.NewReader(upload.Data), upload.Filename)
		if err != nil {
			return nil, err
		}
		return renderer.ConvertImage(img, req.ImageMode, req.ImageBWThreshold)
	}

	if req.Image == "" || f.images == nil {
		return nil, nil
	}
	rc, err := f.images.OpenImage(req.Image)
	if err != nil {
		f.log.Warn("failed to load repository image", zap.String("image", req.Image), zap.Error(err))
		return nil, nil
	}
	defer rc.Close()

	img, err := renderer.DecodeImage(rc, req.Image)
	if err == nil {
		img, err = renderer.ConvertImage(img, req.ImageMode, req.ImageBWThreshold)
	}
	if err != nil {
		f.log.Warn("failed to load repository image", zap.String("image", req.Image), zap.Error(err))
		return nil, nil
	}
	return img, nil
}
