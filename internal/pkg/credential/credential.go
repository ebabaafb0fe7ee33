package credential

import (
	"fmt"
	"sync"
	"time"

	"github.com/frontandrew/parklane/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Credential хранит bearer токен, выданный внешним сервисом аутентификации.
// Токен внедряется один раз при старте и передаётся явно в каждый сетевой
// вызов; терминал его не выпускает и не обновляет сам.
type Credential struct {
	mu    sync.RWMutex
	token string
}

// New создает credential с заданным токеном
func New(token string) *Credential {
	return &Credential{token: token}
}

// Token возвращает текущий bearer токен
func (c *Credential) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Replace подменяет токен (после повторного логина оператора)
func (c *Credential) Replace(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Check проверяет, что токен присутствует и не истёк.
// Подпись не проверяется - она забота бэкенда; здесь только
// локальная инспекция exp, чтобы не отправлять заведомо мёртвый запрос.
func (c *Credential) Check(now time.Time) error {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token == "" {
		return domain.ErrUnauthorized
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		// Непарсируемый токен отдаём бэкенду как есть: формат может быть непрозрачным
		return nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if now.After(exp.Time) {
		return fmt.Errorf("%w: expired at %s", domain.ErrTokenExpired, exp.Time.Format(time.RFC3339))
	}
	return nil
}
