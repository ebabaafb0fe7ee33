package camera

import (
	"context"
	"fmt"

	"github.com/frontandrew/parklane/internal/pkg/logger"
)

// ResolveURLFunc возвращает адрес потока камеры, когда он не задан
// конфигурацией напрямую
type ResolveURLFunc func(ctx context.Context) (string, error)

// StreamOpener открывает MJPEG источник полосы. Адрес потока берётся
// из конфигурации; пустое значение разрешается через бэкенд при каждом
// открытии, чтобы подхватывать смену камеры администратором без рестарта.
type StreamOpener struct {
	url     string
	resolve ResolveURLFunc
	log     logger.Logger
}

// NewStreamOpener создает открыватель источника
func NewStreamOpener(url string, resolve ResolveURLFunc, log logger.Logger) *StreamOpener {
	return &StreamOpener{url: url, resolve: resolve, log: log}
}

// OpenSource подключается к потоку; ready закрывается на первом кадре
func (o *StreamOpener) OpenSource(ctx context.Context) (Source, <-chan struct{}, error) {
	url := o.url
	if url == "" {
		if o.resolve == nil {
			return nil, nil, fmt.Errorf("no camera stream url configured")
		}
		resolved, err := o.resolve(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve camera stream url: %w", err)
		}
		url = resolved
	}

	src := NewMJPEGSource(url)
	if err := src.Open(ctx); err != nil {
		return nil, nil, err
	}

	o.log.Info("camera stream opened", map[string]interface{}{"url": url})
	return src, src.Ready(), nil
}
