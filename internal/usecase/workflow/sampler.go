package workflow

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frontandrew/parklane/internal/domain"
	"github.com/frontandrew/parklane/internal/infrastructure/camera"
	"github.com/frontandrew/parklane/internal/infrastructure/parking"
	"github.com/frontandrew/parklane/internal/pkg/logger"
)

// SamplerConfig - параметры периодической отправки кадров
type SamplerConfig struct {
	CameraName     string
	Interval       time.Duration
	CaptureTimeout time.Duration
	MaxWidth       int
	MaxHeight      int
	JPEGQuality    int
}

// Sampler периодически снимает кадр с источника, ужимает его и отправляет
// на распознавание. Одновременно в полёте не больше одного автоматического
// запроса: пока ответ не пришёл, очередные тики пропускаются. Ручной захват
// этот ограничитель обходит.
//
// Каждому запросу присваивается монотонный номер; ответ, который пришёл
// позже ответа с большим номером, отбрасывается как устаревший.
type Sampler struct {
	source camera.Source
	client parking.Client
	cfg    SamplerConfig
	log    logger.Logger

	// sink получает результаты распознавания; вызывается из горутин
	// сэмплера, сериализацию обеспечивает получатель
	sink func(Input)

	seq       atomic.Uint64
	delivered atomic.Uint64
	inFlight  atomic.Int32

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSampler создаёт сэмплер поверх открытого источника
func NewSampler(source camera.Source, client parking.Client, cfg SamplerConfig, sink func(Input), log logger.Logger) *Sampler {
	return &Sampler{
		source: source,
		client: client,
		cfg:    cfg,
		sink:   sink,
		log:    log,
	}
}

// Start запускает цикл отправки; повторный вызов на работающем сэмплере
// ничего не делает
func (s *Sampler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
}

// Stop останавливает цикл и дожидается завершения текущего тика.
// Запрос, уже ушедший в сеть, довисит до своего таймаута в фоне.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

// Running сообщает, идёт ли периодическая отправка
func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sampler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Предыдущий запрос ещё в полёте: тик пропускается,
			// чтобы не накапливать очередь на медленном бэкенде
			if !s.inFlight.CompareAndSwap(0, 1) {
				s.log.Debug("sampler tick skipped, request in flight")
				continue
			}
			go func() {
				defer s.inFlight.Store(0)
				s.sample(ctx, false)
			}()
		}
	}
}

// CaptureNow выполняет немедленный захват по команде оператора,
// минуя ограничитель одновременных запросов
func (s *Sampler) CaptureNow(ctx context.Context) {
	s.sample(ctx, true)
}

func (s *Sampler) sample(ctx context.Context, manual bool) {
	frame, err := s.source.Grab(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("frame grab failed", map[string]interface{}{"error": err.Error()})
		}
		s.deliverError(err, manual)
		return
	}

	jpegData, err := camera.Downscale(frame, s.cfg.MaxWidth, s.cfg.MaxHeight, s.cfg.JPEGQuality)
	if err != nil {
		s.log.Warn("frame downscale failed", map[string]interface{}{"error": err.Error()})
		s.deliverError(err, manual)
		return
	}

	seq := s.seq.Add(1)

	captureCtx, cancel := context.WithTimeout(ctx, s.cfg.CaptureTimeout)
	defer cancel()

	det, err := s.client.Capture(captureCtx, s.cfg.CameraName, jpegData)
	if err != nil {
		if !s.claim(seq, manual) {
			return
		}
		s.deliverError(err, manual)
		return
	}

	if !s.claim(seq, manual) {
		s.log.Debug("stale capture result discarded", map[string]interface{}{"seq": seq})
		return
	}
	s.sink(InputDetection{Detection: det, Manual: manual})
}

// claim фиксирует номер запроса как доставленный. Ответ устарел, если
// результат с большим номером уже прошёл; ручной захват проходит всегда.
func (s *Sampler) claim(seq uint64, manual bool) bool {
	for {
		cur := s.delivered.Load()
		if seq <= cur {
			if !manual {
				return false
			}
			return true
		}
		if s.delivered.CompareAndSwap(cur, seq) {
			return true
		}
	}
}

func (s *Sampler) deliverError(err error, manual bool) {
	if err == nil {
		err = domain.ErrInternal
	}
	s.sink(InputDetectionError{Err: err, Manual: manual})
}
