package camera

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"github.com/frontandrew/parklane/internal/domain"
)

// Обрыв потока не закрывает источник: читатель переподключается
// с нарастающей задержкой, пока камера не вернётся или не позовут Close
const (
	reconnectInitialDelay = time.Second
	reconnectMaxDelay     = 10 * time.Second
)

// MJPEGSource читает сетевую камеру, отдающую multipart/x-mixed-replace поток.
// Фоновый читатель держит только последний кадр: сэмплеру старые не нужны.
type MJPEGSource struct {
	url        string
	httpClient *http.Client

	mu     sync.Mutex
	frame  *Frame
	width  int
	height int
	closed bool

	cancel context.CancelFunc
	done   chan struct{}
	ready  chan struct{}
	once   sync.Once
}

// NewMJPEGSource создает источник для потока по заданному URL
func NewMJPEGSource(url string) *MJPEGSource {
	return &MJPEGSource{
		url: url,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    2,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		ready: make(chan struct{}),
	}
}

// Ready закрывается после приёма первого кадра
func (s *MJPEGSource) Ready() <-chan struct{} {
	return s.ready
}

// Open подключается к камере и запускает фоновый приём кадров.
// ctx ограничивает только установление соединения: открытый поток
// живёт на собственном контексте до Close, иначе отмена контекста
// открытия оборвала бы тело ответа и заморозила кадры.
func (s *MJPEGSource) Open(ctx context.Context) error {
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	dialDone := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-dialDone:
		}
	}()
	body, boundary, err := s.connect(streamCtx)
	close(dialDone)
	if err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.closed = false
	s.mu.Unlock()

	go s.run(streamCtx, done, body, boundary)
	return nil
}

// connect выполняет один HTTP-запрос к камере и валидирует ответ
func (s *MJPEGSource) connect(ctx context.Context) (io.ReadCloser, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create stream request: %w", err)
	}

	resp, err := s.httpClient.Do(req) //nolint:bodyclose // закрывается читателем
	if err != nil {
		return nil, "", fmt.Errorf("failed to connect to camera: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, "", fmt.Errorf("camera returned status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/x-mixed-replace" || params["boundary"] == "" {
		_ = resp.Body.Close()
		return nil, "", fmt.Errorf("unexpected camera content type %q", resp.Header.Get("Content-Type"))
	}
	return resp.Body, params["boundary"], nil
}

// run принимает кадры и переподключается после обрыва потока.
// Завершается только по Close (отмена streamCtx).
func (s *MJPEGSource) run(ctx context.Context, done chan struct{}, body io.ReadCloser, boundary string) {
	defer close(done)

	delay := reconnectInitialDelay
	for {
		s.readStream(body, boundary)
		_ = body.Close()
		if ctx.Err() != nil {
			return
		}

		// Камера оборвала поток: кадр сбрасываем, чтобы Grab сообщал
		// об отказе вместо бесконечной выдачи устаревшей картинки
		s.mu.Lock()
		s.frame = nil
		s.mu.Unlock()

		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			var err error
			body, boundary, err = s.connect(ctx)
			if err == nil {
				break
			}
			if ctx.Err() != nil {
				return
			}
			if delay *= 2; delay > reconnectMaxDelay {
				delay = reconnectMaxDelay
			}
		}
		delay = reconnectInitialDelay
	}
}

// readStream принимает кадры одного соединения до его обрыва
func (s *MJPEGSource) readStream(body io.Reader, boundary string) {
	reader := multipart.NewReader(body, boundary)
	for {
		part, err := reader.NextPart()
		if err != nil {
			return
		}

		data, err := io.ReadAll(part)
		_ = part.Close()
		if err != nil {
			return
		}

		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			// Битый кадр: пропускаем, поток продолжается
			continue
		}

		s.mu.Lock()
		s.frame = &Frame{Data: data, Width: cfg.Width, Height: cfg.Height, At: time.Now()}
		s.width, s.height = cfg.Width, cfg.Height
		s.mu.Unlock()

		s.once.Do(func() { close(s.ready) })
	}
}

// Grab возвращает последний принятый кадр
func (s *MJPEGSource) Grab(ctx context.Context) (*Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, domain.ErrSourceClosed
	}
	if s.frame == nil {
		return nil, domain.ErrSourceNotReady
	}
	return s.frame, nil
}

// Size возвращает размеры потока; (0, 0) до первого кадра
func (s *MJPEGSource) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// Close останавливает приём и освобождает камеру; идемпотентен
func (s *MJPEGSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.cancel
	done := s.done
	s.frame = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	return nil
}
