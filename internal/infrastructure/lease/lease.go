package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/frontandrew/parklane/internal/domain"
	"github.com/frontandrew/parklane/internal/pkg/logger"
)

// Store - минимальный набор операций Redis, нужный аренде
type Store interface {
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error)
}

// Скрипты выполняются атомарно: продлить или отпустить можно только свою аренду
const (
	renewScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("pexpire", KEYS[1], ARGV[2])
else
  return 0
end`

	releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`
)

// CameraLease - эксклюзивное владение камерой между терминалами.
// Камера принадлежит ровно одной активной сессии захвата: второй терминал
// не получит аренду, пока жив держатель. Аренда продлевается фоном и
// истекает сама, если держатель умер, не освободив её.
type CameraLease struct {
	store  Store
	logger logger.Logger
	camera string
	holder string
	ttl    time.Duration

	cancel context.CancelFunc
	done   chan struct{}
}

// New создает аренду камеры camera для держателя holder
func New(store Store, log logger.Logger, camera, holder string, ttl time.Duration) *CameraLease {
	return &CameraLease{
		store:  store,
		logger: log,
		camera: camera,
		holder: holder,
		ttl:    ttl,
	}
}

func (l *CameraLease) key() string {
	return "parklane:camera-lease:" + l.camera
}

// Acquire захватывает аренду и запускает фоновое продление.
// Занятая камера - ErrCameraLeaseDenied.
func (l *CameraLease) Acquire(ctx context.Context) error {
	ok, err := l.store.SetNX(ctx, l.key(), l.holder, l.ttl)
	if err != nil {
		return fmt.Errorf("acquire camera lease: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrCameraLeaseDenied, l.camera)
	}

	renewCtx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.done = make(chan struct{})
	go l.renewLoop(renewCtx)

	l.logger.Info("Camera lease acquired", map[string]interface{}{
		"camera": l.camera,
		"holder": l.holder,
	})
	return nil
}

// renewLoop продлевает аренду каждые ttl/3 до освобождения
func (l *CameraLease) renewLoop(ctx context.Context) {
	defer close(l.done)

	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := l.store.Eval(ctx, renewScript, []string{l.key()}, l.holder, l.ttl.Milliseconds())
			if err != nil {
				l.logger.Warn("Camera lease renew failed", map[string]interface{}{
					"camera": l.camera,
					"error":  err.Error(),
				})
				continue
			}
			if n, ok := res.(int64); ok && n == 0 {
				// Аренду перехватили или она истекла: продлевать больше нечего
				l.logger.Error("Camera lease lost", map[string]interface{}{
					"camera": l.camera,
					"holder": l.holder,
				})
				return
			}
		}
	}
}

// Release останавливает продление и отпускает аренду; идемпотентен
func (l *CameraLease) Release(ctx context.Context) error {
	if l.cancel != nil {
		l.cancel()
		<-l.done
		l.cancel = nil
	}

	if _, err := l.store.Eval(ctx, releaseScript, []string{l.key()}, l.holder); err != nil {
		return fmt.Errorf("release camera lease: %w", err)
	}
	return nil
}
