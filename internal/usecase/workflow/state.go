package workflow

import (
	"github.com/frontandrew/parklane/internal/domain"
)

// State - состояние рабочего процесса полосы
type State int

const (
	// StateIdle - процесс не запущен, камера свободна
	StateIdle State = iota

	// StateInitializing - источник видео открывается, ждём первый кадр
	StateInitializing

	// StateScanning - периодическая отправка кадров на распознавание
	StateScanning

	// StateCandidatePending - номер распознан, идёт сверка с бронированием
	StateCandidatePending

	// StateFormReady - черновик заполнен, ждём подтверждения оператора
	StateFormReady

	// StateSubmitting - транзакция отправлена бэкенду
	StateSubmitting

	// StateSettled - транзакция принята; пауза перед сбросом формы
	StateSettled

	// StateTornDown - терминальная точка: таймеры сняты, камера отпущена
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateScanning:
		return "scanning"
	case StateCandidatePending:
		return "candidate-pending"
	case StateFormReady:
		return "form-ready"
	case StateSubmitting:
		return "submitting"
	case StateSettled:
		return "settled"
	case StateTornDown:
		return "torn-down"
	default:
		return "unknown"
	}
}

// Input - событие, подаваемое на вход машины состояний:
// результат распознавания, действие оператора или ответ сети
type Input interface {
	isInput()
}

// InputStart - запуск детекции (монтирование страницы или кнопка оператора)
type InputStart struct{}

// InputSourceReady - источник подтвердил ненулевые размеры кадра
type InputSourceReady struct{}

// InputSourceError - источник не открылся
type InputSourceError struct{ Err error }

// InputDetection - результат обработки кадра; Manual - захват по кнопке
type InputDetection struct {
	Detection *domain.Detection
	Manual    bool
}

// InputDetectionError - мягкий отказ распознавания (таймаут, ошибка OCR)
type InputDetectionError struct {
	Err    error
	Manual bool
}

// InputBookingMatched - бронирование найдено и проверено
type InputBookingMatched struct{ Booking *domain.Booking }

// InputBookingMiss - бронирования нет; Fallback - данные OCR для отката
type InputBookingMiss struct {
	Err      error
	Fallback *domain.Detection
}

// InputFeeQuoted - для выезда найдена активная сессия и рассчитана плата
type InputFeeQuoted struct{ Quote *domain.FeeQuote }

// InputFeeLookupFailed - сессии по номеру нет или бэкенд недоступен
type InputFeeLookupFailed struct {
	Err      error
	Fallback *domain.Detection
}

// InputDraftEdited - оператор исправил поля формы
type InputDraftEdited struct {
	Plate     string
	TypeCode  string
	SpotLabel string
}

// InputSubmit - оператор подтвердил отправку формы
type InputSubmit struct{}

// InputSubmitAccepted - бэкенд принял транзакцию въезда
type InputSubmitAccepted struct{ Session *domain.EntrySession }

// InputSettled - оплата выезда проведена
type InputSettled struct {
	Quote      *domain.FeeQuote
	Settlement *domain.Settlement
}

// InputSubmitRejected - бэкенд отклонил транзакцию (валидация или конфликт)
type InputSubmitRejected struct{ Err error }

// InputResetTimer - истекла пауза после Settled: форму пора очистить
type InputResetTimer struct{}

// InputClear - оператор очистил форму
type InputClear struct{}

// InputStop - оператор остановил детекцию
type InputStop struct{}

// InputSetBookingMode - переключение режима мобильных бронирований
type InputSetBookingMode struct{ Enabled bool }

// InputTeardown - уход со страницы или останов процесса
type InputTeardown struct{}

func (InputStart) isInput()          {}
func (InputSourceReady) isInput()    {}
func (InputSourceError) isInput()    {}
func (InputDetection) isInput()      {}
func (InputDetectionError) isInput() {}
func (InputBookingMatched) isInput() {}
func (InputBookingMiss) isInput()    {}
func (InputFeeQuoted) isInput()      {}
func (InputFeeLookupFailed) isInput() {}
func (InputDraftEdited) isInput()    {}
func (InputSubmit) isInput()         {}
func (InputSubmitAccepted) isInput() {}
func (InputSettled) isInput()        {}
func (InputSubmitRejected) isInput() {}
func (InputResetTimer) isInput()     {}
func (InputClear) isInput()          {}
func (InputStop) isInput()           {}
func (InputSetBookingMode) isInput() {}
func (InputTeardown) isInput()       {}

// Effect - побочное действие, которое оркестратор обязан выполнить
// после перехода. Машина сама сеть не трогает.
type Effect interface {
	isEffect()
}

// EffectOpenSource - открыть источник видео и дождаться готовности
type EffectOpenSource struct{}

// EffectCloseSource - остановить источник и освободить камеру
type EffectCloseSource struct{}

// EffectStartSampling - включить периодическую отправку кадров
type EffectStartSampling struct{}

// EffectStopSampling - выключить периодическую отправку кадров
type EffectStopSampling struct{}

// EffectLookupBooking - найти бронирование по распознанному номеру
type EffectLookupBooking struct {
	Plate    string
	Fallback *domain.Detection
}

// EffectLookupExitSession - найти активную сессию и расчёт платы по номеру
type EffectLookupExitSession struct{ Plate string }

// EffectSubmitEntry - отправить черновик на создание сессии
type EffectSubmitEntry struct{ Draft domain.EntryDraft }

// EffectEmitEntryReceipt - напечатать квитанцию въезда
type EffectEmitEntryReceipt struct{ Session *domain.EntrySession }

// EffectEmitExitReceipt - напечатать квитанцию выезда
type EffectEmitExitReceipt struct {
	Quote      *domain.FeeQuote
	Settlement *domain.Settlement
}

// EffectOpenGate - открыть шлагбаум полосы
type EffectOpenGate struct{ Gate domain.GateID }

// EffectScheduleGateClose - взвести таймер автозакрытия шлагбаума
type EffectScheduleGateClose struct{ Gate domain.GateID }

// EffectScheduleReset - взвести таймер очистки формы после Settled
type EffectScheduleReset struct{}

// EffectJournal - записать событие в локальный журнал
type EffectJournal struct {
	EventType domain.JournalEventType
	Plate     string
	Detail    string
}

func (EffectOpenSource) isEffect()        {}
func (EffectCloseSource) isEffect()       {}
func (EffectStartSampling) isEffect()     {}
func (EffectStopSampling) isEffect()      {}
func (EffectLookupBooking) isEffect()     {}
func (EffectLookupExitSession) isEffect() {}
func (EffectSubmitEntry) isEffect()       {}
func (EffectEmitEntryReceipt) isEffect()  {}
func (EffectEmitExitReceipt) isEffect()   {}
func (EffectOpenGate) isEffect()          {}
func (EffectScheduleGateClose) isEffect() {}
func (EffectScheduleReset) isEffect()     {}
func (EffectJournal) isEffect()           {}
