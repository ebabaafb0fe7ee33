package parking

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/frontandrew/parklane/internal/domain"
)

// Сентинелы протокола распознавания; за пределы этого файла не выходят
const (
	wirePlateUnknown   = "UNKNOWN"
	wirePlateDuplicate = "DUPLICATE"
)

// captureResponse - тело ответа /camera/{id}/capture
type captureResponse struct {
	Plate     string `json:"plate"`
	TypeCode  string `json:"type_code"`
	SpotLabel string `json:"spot_label"`
	Image     string `json:"image"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Capture отправляет кадр multipart-запросом и интерпретирует ответ
// в размеченный domain.Detection
func (c *httpClient) Capture(ctx context.Context, camera string, jpegFrame []byte) (*domain.Detection, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile("file", "capture.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(jpegFrame); err != nil {
		return nil, fmt.Errorf("failed to write frame: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	var resp captureResponse
	path := fmt.Sprintf("/camera/%s/capture", camera)
	if err := c.do(ctx, http.MethodPost, path, &buf, mw.FormDataContentType(), &resp); err != nil {
		return nil, err
	}

	return decodeDetection(&resp), nil
}

// decodeDetection переводит сентинелы протокола в DetectionKind
func decodeDetection(resp *captureResponse) *domain.Detection {
	d := &domain.Detection{
		ImagePreview: resp.Image,
		Message:      resp.Message,
		Timestamp:    time.Now(),
	}
	if ts, err := time.Parse(time.RFC3339Nano, resp.Timestamp); err == nil {
		d.Timestamp = ts
	}

	switch resp.Plate {
	case "", wirePlateUnknown:
		d.Kind = domain.DetectionNone
	case wirePlateDuplicate:
		d.Kind = domain.DetectionDuplicate
	default:
		d.Kind = domain.DetectionPlate
		d.Plate = resp.Plate
		d.TypeCode = resp.TypeCode
		d.SpotLabel = resp.SpotLabel
	}
	return d
}
