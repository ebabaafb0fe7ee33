package camera

import (
	"context"
	"time"

	"github.com/frontandrew/parklane/internal/domain"
)

// Frame - один кадр с камеры в виде JPEG
type Frame struct {
	Data   []byte
	Width  int
	Height int
	At     time.Time
}

// Source - источник видео. Владелец ровно один: активная сессия захвата;
// повторное открытие до Close - ошибка вызывающей стороны.
type Source interface {
	// Open подключается к устройству и начинает приём кадров
	Open(ctx context.Context) error

	// Grab возвращает последний принятый кадр
	Grab(ctx context.Context) (*Frame, error)

	// Size возвращает размеры потока; (0, 0) пока поток не готов
	Size() (width, height int)

	// Close останавливает приём и освобождает устройство; идемпотентен
	Close() error
}

// WaitReady ждёт готовности источника в два этапа: сначала штатный сигнал
// о первом кадре, а если он не пришёл за fallback - опрос размеров.
// Некоторые камеры не присылают заголовок потока вовремя, опрос это чинит.
func WaitReady(ctx context.Context, src Source, ready <-chan struct{}, fallback time.Duration) error {
	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(fallback):
	}

	// Резервный путь: опрашиваем размеры, пока не появится ненулевой кадр
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if w, h := src.Size(); w > 0 && h > 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return domain.ErrSourceNotReady
		case <-ticker.C:
		}
	}
}
