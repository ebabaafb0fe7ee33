package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/frontandrew/parklane/internal/domain"
	"github.com/frontandrew/parklane/internal/infrastructure/camera"
	"github.com/frontandrew/parklane/internal/infrastructure/parking"
	"github.com/frontandrew/parklane/internal/pkg/logger"
)

// BookingResolver находит и проверяет бронирование по номеру
type BookingResolver interface {
	ResolveByPlate(ctx context.Context, plate string) (*domain.Booking, error)
}

// FeeResolver находит активную сессию выезда и расчёт платы
type FeeResolver interface {
	QuoteByPlate(ctx context.Context, plate string) (*domain.FeeQuote, error)
}

// ReceiptEmitter печатает квитанции; отказ печати не блокирует процесс
type ReceiptEmitter interface {
	EmitEntry(ctx context.Context, session *domain.EntrySession) error
	EmitExit(ctx context.Context, quote *domain.FeeQuote, settlement *domain.Settlement) error
}

// JournalRecorder пишет событие в локальный журнал; ошибки глотает
type JournalRecorder interface {
	Record(ctx context.Context, entry *domain.JournalEntry)
}

// SourceOpener открывает источник видео; ready закрывается на первом кадре
type SourceOpener interface {
	OpenSource(ctx context.Context) (src camera.Source, ready <-chan struct{}, err error)
}

// Lease - аренда камеры на время сессии захвата
type Lease interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

// TerminalConfig - параметры оркестратора полосы
type TerminalConfig struct {
	Direction      domain.GateID
	Operator       string
	BookingMode    bool
	Sampler        SamplerConfig
	ReadyFallback  time.Duration
	AutoCloseDelay time.Duration
	ResetDelay     time.Duration
	RequestTimeout time.Duration
}

// Terminal - оркестратор рабочего процесса полосы: владеет машиной
// состояний, исполняет её эффекты и сериализует все входы через один мьютекс.
// Асинхронные результаты (сеть, таймеры) возвращаются в машину теми же
// входами, устаревшие она отбрасывает сама.
type Terminal struct {
	cfg      TerminalConfig
	client   parking.Client
	bookings BookingResolver
	fees     FeeResolver
	receipts ReceiptEmitter
	journal  JournalRecorder
	opener   SourceOpener
	lease    Lease
	log      logger.Logger

	mu        sync.Mutex
	machine   *Machine
	source    camera.Source
	sampler   *Sampler
	sessionID uuid.UUID

	// openCancel прерывает незавершённое открытие источника при teardown
	openCancel context.CancelFunc
	resetTimer *time.Timer
}

// NewTerminal создаёт оркестратор; lease и journal могут быть nil
func NewTerminal(
	cfg TerminalConfig,
	client parking.Client,
	bookings BookingResolver,
	fees FeeResolver,
	receipts ReceiptEmitter,
	journal JournalRecorder,
	opener SourceOpener,
	lease Lease,
	log logger.Logger,
) *Terminal {
	return &Terminal{
		cfg:      cfg,
		client:   client,
		bookings: bookings,
		fees:     fees,
		receipts: receipts,
		journal:  journal,
		opener:   opener,
		lease:    lease,
		log:      log.With("direction", string(cfg.Direction)),
		machine:  NewMachine(cfg.Direction, cfg.BookingMode),
	}
}

// Snapshot - моментальный снимок состояния терминала для интерфейса оператора
type Snapshot struct {
	State       string            `json:"state"`
	Direction   domain.GateID     `json:"direction"`
	Operator    string            `json:"operator"`
	BookingMode bool              `json:"booking_mode"`
	Scanning    bool              `json:"scanning"`
	Draft       domain.EntryDraft `json:"draft"`
	Quote       *domain.FeeQuote  `json:"fee_quote,omitempty"`
	SessionID   string            `json:"capture_session_id,omitempty"`
}

// Status возвращает снимок текущего состояния
func (t *Terminal) Status() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		State:       t.machine.State().String(),
		Direction:   t.machine.Direction(),
		Operator:    t.cfg.Operator,
		BookingMode: t.machine.BookingMode(),
		Draft:       t.machine.Draft(),
		Quote:       t.machine.Quote(),
	}
	if t.sampler != nil {
		snap.Scanning = t.sampler.Running()
	}
	if t.sessionID != uuid.Nil {
		snap.SessionID = t.sessionID.String()
	}
	return snap
}

// StartDetection запускает сессию захвата
func (t *Terminal) StartDetection() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.machine.State() == StateIdle {
		t.sessionID = uuid.New()
	}
	return t.applyLocked(InputStart{})
}

// StopDetection останавливает сессию и освобождает камеру
func (t *Terminal) StopDetection() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.applyLocked(InputStop{})
}

// CaptureNow выполняет немедленный захват по кнопке оператора
func (t *Terminal) CaptureNow(ctx context.Context) error {
	t.mu.Lock()
	if t.machine.State() != StateScanning || t.sampler == nil {
		t.mu.Unlock()
		return domain.ErrInvalidTransition
	}
	sampler := t.sampler
	t.mu.Unlock()

	// Захват идёт без мьютекса: это сетевой вызов, результат вернётся
	// через sink как обычное событие
	sampler.CaptureNow(ctx)
	return nil
}

// EditDraft применяет правки оператора к черновику
func (t *Terminal) EditDraft(plate, typeCode, spotLabel string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.applyLocked(InputDraftEdited{Plate: plate, TypeCode: typeCode, SpotLabel: spotLabel})
}

// Submit отправляет черновик на создание сессии въезда
func (t *Terminal) Submit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.applyLocked(InputSubmit{})
}

// Clear очищает форму и возобновляет сканирование
func (t *Terminal) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.applyLocked(InputClear{})
}

// SetBookingMode переключает режим мобильных бронирований
func (t *Terminal) SetBookingMode(enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.applyLocked(InputSetBookingMode{Enabled: enabled})
}

// ApplyBooking подставляет проверенное бронирование в форму.
// Используется сценарием проверки QR кода оператором.
func (t *Terminal) ApplyBooking(booking *domain.Booking) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.machine.State() {
	case StateCandidatePending, StateFormReady, StateScanning:
	default:
		return domain.ErrInvalidTransition
	}
	// Сканирование при ручной подстановке брони из QR останавливается
	if t.machine.State() == StateScanning {
		if err := t.applyLocked(InputDetection{
			Detection: &domain.Detection{
				Kind:     domain.DetectionPlate,
				Plate:    domain.NormalizePlate(booking.PlateNumber),
				TypeCode: booking.VehicleType,
			},
		}); err != nil {
			return err
		}
	}
	return t.applyLocked(InputBookingMatched{Booking: booking})
}

// Settle фиксирует проведённую оплату выезда
func (t *Terminal) Settle(quote *domain.FeeQuote, settlement *domain.Settlement) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.machine.Quote() == nil {
		return domain.ErrNoFeeQuote
	}
	return t.applyLocked(InputSettled{Quote: quote, Settlement: settlement})
}

// CurrentQuote возвращает действующий расчёт платы
func (t *Terminal) CurrentQuote() *domain.FeeQuote {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.machine.Quote()
}

// SetQuote подставляет расчёт платы, найденный оператором вручную
func (t *Terminal) SetQuote(quote *domain.FeeQuote) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch t.machine.State() {
	case StateFormReady:
		return t.applyLocked(InputFeeQuoted{Quote: quote})
	case StateCandidatePending:
		return t.applyLocked(InputFeeQuoted{Quote: quote})
	case StateScanning:
		// Оператор нашёл сессию, не дожидаясь распознавания
		if err := t.applyLocked(InputDetection{
			Detection: &domain.Detection{Kind: domain.DetectionPlate, Plate: quote.Plate},
		}); err != nil {
			return err
		}
		return t.applyLocked(InputFeeQuoted{Quote: quote})
	default:
		return domain.ErrInvalidTransition
	}
}

// Teardown завершает рабочий процесс: снимает таймеры, останавливает
// сэмплер и освобождает камеру. Терминален и идемпотентен.
func (t *Terminal) Teardown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.resetTimer != nil {
		t.resetTimer.Stop()
		t.resetTimer = nil
	}
	_ = t.applyLocked(InputTeardown{})
}

// apply подаёт событие в машину из асинхронного контекста
func (t *Terminal) apply(input Input) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_ = t.applyLocked(input)
}

// applyLocked выполняет переход и исполняет эффекты; вызывается под t.mu
func (t *Terminal) applyLocked(input Input) error {
	effects, err := t.machine.Apply(input)
	if err != nil {
		return err
	}
	for _, effect := range effects {
		t.exec(effect)
	}
	return nil
}

// exec исполняет один эффект; вызывается под t.mu, сетевые операции
// уводит в горутины
func (t *Terminal) exec(effect Effect) {
	switch e := effect.(type) {
	case EffectOpenSource:
		t.execOpenSource()
	case EffectCloseSource:
		t.execCloseSource()
	case EffectStartSampling:
		if t.sampler != nil {
			t.sampler.Start()
		}
	case EffectStopSampling:
		if t.sampler != nil {
			t.sampler.Stop()
		}
	case EffectLookupBooking:
		go t.execLookupBooking(e)
	case EffectLookupExitSession:
		go t.execLookupExitSession(e)
	case EffectSubmitEntry:
		go t.execSubmitEntry(e)
	case EffectOpenGate:
		go t.execOpenGate(e.Gate, t.sessionID)
	case EffectScheduleGateClose:
		t.scheduleGateClose(e.Gate, t.sessionID)
	case EffectScheduleReset:
		t.scheduleReset()
	case EffectEmitEntryReceipt:
		go t.execEmitEntryReceipt(e)
	case EffectEmitExitReceipt:
		go t.execEmitExitReceipt(e)
	case EffectJournal:
		t.record(e)
	default:
		t.log.Error("unknown workflow effect", map[string]interface{}{"effect": effect})
	}
}

func (t *Terminal) execOpenSource() {
	ctx, cancel := context.WithCancel(context.Background())
	t.openCancel = cancel

	// Контекст покрывает только фазу открытия. Отменять его после передачи
	// источника нельзя: поток камеры привязан к запросу, и отмена оборвала
	// бы приём кадров. Время жизни открытого источника определяет Close.
	go func() {
		if t.lease != nil {
			if err := t.lease.Acquire(ctx); err != nil {
				cancel()
				t.log.Error("camera lease denied", map[string]interface{}{"error": err.Error()})
				t.apply(InputSourceError{Err: err})
				return
			}
		}

		src, ready, err := t.opener.OpenSource(ctx)
		if err != nil {
			cancel()
			t.releaseLease()
			t.apply(InputSourceError{Err: err})
			return
		}

		if err := camera.WaitReady(ctx, src, ready, t.cfg.ReadyFallback); err != nil {
			cancel()
			_ = src.Close()
			t.releaseLease()
			t.apply(InputSourceError{Err: err})
			return
		}

		t.mu.Lock()
		if t.machine.State() != StateInitializing {
			// Сессию успели остановить, пока источник открывался
			t.mu.Unlock()
			cancel()
			_ = src.Close()
			t.releaseLease()
			return
		}
		t.source = src
		t.sampler = NewSampler(src, t.client, t.cfg.Sampler, t.apply, t.log)
		t.openCancel = nil
		t.mu.Unlock()
		cancel()

		t.log.Info("video source ready")
		t.apply(InputSourceReady{})
	}()
}

func (t *Terminal) execCloseSource() {
	if t.openCancel != nil {
		t.openCancel()
		t.openCancel = nil
	}
	if t.source != nil {
		if err := t.source.Close(); err != nil {
			t.log.Warn("source close failed", map[string]interface{}{"error": err.Error()})
		}
		t.source = nil
	}
	t.sampler = nil
	go t.releaseLease()
}

func (t *Terminal) releaseLease() {
	if t.lease == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.RequestTimeout)
	defer cancel()
	if err := t.lease.Release(ctx); err != nil {
		t.log.Warn("camera lease release failed", map[string]interface{}{"error": err.Error()})
	}
}

func (t *Terminal) execLookupBooking(e EffectLookupBooking) {
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.RequestTimeout)
	defer cancel()

	booking, err := t.bookings.ResolveByPlate(ctx, e.Plate)
	if err != nil {
		t.apply(InputBookingMiss{Err: err, Fallback: e.Fallback})
		return
	}
	t.apply(InputBookingMatched{Booking: booking})
}

func (t *Terminal) execLookupExitSession(e EffectLookupExitSession) {
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.RequestTimeout)
	defer cancel()

	quote, err := t.fees.QuoteByPlate(ctx, e.Plate)
	if err != nil {
		t.apply(InputFeeLookupFailed{
			Err:      err,
			Fallback: &domain.Detection{Kind: domain.DetectionPlate, Plate: e.Plate},
		})
		return
	}
	t.apply(InputFeeQuoted{Quote: quote})
}

func (t *Terminal) execSubmitEntry(e EffectSubmitEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.RequestTimeout)
	defer cancel()

	session, err := t.client.CreateEntrySession(ctx, e.Draft.Plate, e.Draft.TypeCode, e.Draft.SpotLabel)
	if err != nil {
		t.log.Error("entry session create failed", map[string]interface{}{
			"plate": e.Draft.Plate,
			"error": err.Error(),
		})
		t.apply(InputSubmitRejected{Err: err})
		return
	}
	t.log.Info("entry session created", map[string]interface{}{
		"plate":      session.Plate,
		"session_id": session.SessionID,
	})
	t.apply(InputSubmitAccepted{Session: session})
}

func (t *Terminal) execOpenGate(gate domain.GateID, sessionID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.RequestTimeout)
	defer cancel()

	if err := t.client.OpenGate(ctx, gate); err != nil {
		t.log.Error("gate open failed", map[string]interface{}{
			"gate":  string(gate),
			"error": err.Error(),
		})
		return
	}
	t.recordAsync(sessionID, domain.JournalGateAction, "", "gate opened")
}

// scheduleGateClose взводит таймер автозакрытия. Команда уходит даже после
// teardown: шлагбаум не должен остаться открытым из-за останова терминала.
func (t *Terminal) scheduleGateClose(gate domain.GateID, sessionID uuid.UUID) {
	time.AfterFunc(t.cfg.AutoCloseDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.cfg.RequestTimeout)
		defer cancel()

		if err := t.client.CloseGate(ctx, gate); err != nil {
			t.log.Error("gate auto-close failed", map[string]interface{}{
				"gate":  string(gate),
				"error": err.Error(),
			})
			return
		}
		t.recordAsync(sessionID, domain.JournalGateAction, "", "gate auto-closed")
	})
}

func (t *Terminal) scheduleReset() {
	if t.resetTimer != nil {
		t.resetTimer.Stop()
	}
	t.resetTimer = time.AfterFunc(t.cfg.ResetDelay, func() {
		t.apply(InputResetTimer{})
	})
}

func (t *Terminal) execEmitEntryReceipt(e EffectEmitEntryReceipt) {
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.RequestTimeout)
	defer cancel()

	if err := t.receipts.EmitEntry(ctx, e.Session); err != nil {
		t.log.Warn("entry receipt emit failed", map[string]interface{}{"error": err.Error()})
	}
}

func (t *Terminal) execEmitExitReceipt(e EffectEmitExitReceipt) {
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.RequestTimeout)
	defer cancel()

	if err := t.receipts.EmitExit(ctx, e.Quote, e.Settlement); err != nil {
		t.log.Warn("exit receipt emit failed", map[string]interface{}{"error": err.Error()})
	}
}

func (t *Terminal) record(e EffectJournal) {
	t.recordAsync(t.sessionID, e.EventType, e.Plate, e.Detail)
}

func (t *Terminal) recordAsync(sessionID uuid.UUID, event domain.JournalEventType, plate, detail string) {
	if t.journal == nil {
		return
	}
	entry := &domain.JournalEntry{
		ID:        uuid.New(),
		SessionID: sessionID,
		Gate:      t.cfg.Direction,
		EventType: event,
		Plate:     plate,
		Detail:    detail,
		Timestamp: time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.cfg.RequestTimeout)
		defer cancel()
		t.journal.Record(ctx, entry)
	}()
}
