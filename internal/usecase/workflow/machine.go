package workflow

import (
	"fmt"

	"github.com/frontandrew/parklane/internal/domain"
)

// Значения формы при ручном захвате без распознанного номера
const (
	fallbackPlate    = "UNKNOWN"
	fallbackTypeCode = "CAR"
)

// Machine - машина состояний полосы. Чистая: сама не ходит в сеть
// и не взводит таймеры, а возвращает эффекты для оркестратора.
// Потокобезопасность обеспечивает вызывающая сторона.
type Machine struct {
	state       State
	direction   domain.GateID
	bookingMode bool

	draft domain.EntryDraft
	quote *domain.FeeQuote
}

// NewMachine создаёт машину в состоянии Idle для заданного направления
func NewMachine(direction domain.GateID, bookingMode bool) *Machine {
	return &Machine{
		state:       StateIdle,
		direction:   direction,
		bookingMode: bookingMode,
	}
}

// State возвращает текущее состояние
func (m *Machine) State() State { return m.state }

// Direction возвращает направление полосы
func (m *Machine) Direction() domain.GateID { return m.direction }

// BookingMode сообщает, включён ли режим мобильных бронирований
func (m *Machine) BookingMode() bool { return m.bookingMode }

// Draft возвращает копию текущего черновика формы
func (m *Machine) Draft() domain.EntryDraft { return m.draft }

// Quote возвращает расчёт платы за выезд, если он получен
func (m *Machine) Quote() *domain.FeeQuote { return m.quote }

// Apply выполняет переход по входному событию и возвращает эффекты.
// Недопустимые действия оператора дают ErrInvalidTransition;
// запоздавшие асинхронные события молча отбрасываются.
func (m *Machine) Apply(input Input) ([]Effect, error) {
	if m.state == StateTornDown {
		return nil, nil
	}

	switch in := input.(type) {
	case InputTeardown:
		return m.teardown("shutdown"), nil
	case InputStop:
		return m.stop(), nil
	case InputSetBookingMode:
		m.bookingMode = in.Enabled
		return nil, nil
	case InputStart:
		return m.start()
	case InputSourceReady:
		return m.sourceReady(), nil
	case InputSourceError:
		return m.sourceError(in), nil
	case InputDetection:
		return m.detection(in), nil
	case InputDetectionError:
		return m.detectionError(in), nil
	case InputBookingMatched:
		return m.bookingMatched(in), nil
	case InputBookingMiss:
		return m.bookingMiss(in), nil
	case InputFeeQuoted:
		return m.feeQuoted(in), nil
	case InputFeeLookupFailed:
		return m.feeLookupFailed(in), nil
	case InputDraftEdited:
		return m.draftEdited(in)
	case InputSubmit:
		return m.submit()
	case InputSubmitAccepted:
		return m.submitAccepted(in), nil
	case InputSubmitRejected:
		return m.submitRejected(in), nil
	case InputSettled:
		return m.settled(in), nil
	case InputResetTimer:
		return m.resetTimer(), nil
	case InputClear:
		return m.clear()
	default:
		return nil, fmt.Errorf("workflow: unsupported input %T", input)
	}
}

func (m *Machine) start() ([]Effect, error) {
	if m.state != StateIdle {
		return nil, fmt.Errorf("start detection in state %s: %w", m.state, domain.ErrInvalidTransition)
	}
	m.state = StateInitializing
	return []Effect{EffectOpenSource{}}, nil
}

func (m *Machine) sourceReady() []Effect {
	if m.state != StateInitializing {
		return nil
	}
	m.state = StateScanning
	return []Effect{EffectStartSampling{}}
}

func (m *Machine) sourceError(in InputSourceError) []Effect {
	if m.state != StateInitializing {
		return nil
	}
	m.state = StateIdle
	return []Effect{
		EffectCloseSource{},
		EffectJournal{
			EventType: domain.JournalTeardown,
			Detail:    "source open failed: " + in.Err.Error(),
		},
	}
}

func (m *Machine) detection(in InputDetection) []Effect {
	// Результаты кадров принимаются только во время сканирования,
	// остальное - устаревшие ответы
	if m.state != StateScanning {
		return nil
	}
	det := in.Detection

	switch det.Kind {
	case domain.DetectionDuplicate:
		if !in.Manual {
			return []Effect{EffectJournal{
				EventType: domain.JournalDuplicateIgnored,
				Detail:    det.Message,
			}}
		}
		// Ручной захват: оператор видит предупреждение, но может
		// оформить транспорт сам
		m.state = StateFormReady
		m.draft = domain.EntryDraft{
			Plate:       det.Plate,
			TypeCode:    det.TypeCode,
			SpotLabel:   det.SpotLabel,
			SourceImage: det.ImagePreview,
			Provenance:  domain.ProvenanceManualOverride,
		}
		return []Effect{
			EffectStopSampling{},
			EffectJournal{
				EventType: domain.JournalDuplicateIgnored,
				Plate:     det.Plate,
				Detail:    "manual capture, operator override allowed",
			},
		}

	case domain.DetectionNone:
		if !in.Manual {
			return nil
		}
		// Номер не распознан: подставляем значения по умолчанию,
		// оператор заполнит форму вручную
		m.state = StateFormReady
		m.draft = domain.EntryDraft{
			Plate:       fallbackPlate,
			TypeCode:    fallbackTypeCode,
			SourceImage: det.ImagePreview,
			Provenance:  domain.ProvenanceManualOverride,
		}
		return []Effect{
			EffectStopSampling{},
			EffectJournal{
				EventType: domain.JournalDraftFilled,
				Plate:     fallbackPlate,
				Detail:    "manual capture without recognized plate",
			},
		}

	case domain.DetectionPlate:
		if m.direction == domain.GateExit {
			m.state = StateCandidatePending
			m.draft = draftFromDetection(det)
			return []Effect{
				EffectStopSampling{},
				EffectJournal{
					EventType: domain.JournalDetectionAccepted,
					Plate:     det.Plate,
					Detail:    "exit plate detected",
				},
				EffectLookupExitSession{Plate: det.Plate},
			}
		}
		if m.bookingMode {
			m.state = StateCandidatePending
			return []Effect{
				EffectStopSampling{},
				EffectJournal{
					EventType: domain.JournalDetectionAccepted,
					Plate:     det.Plate,
					Detail:    "entry plate detected, checking booking",
				},
				EffectLookupBooking{Plate: det.Plate, Fallback: det},
			}
		}
		m.state = StateFormReady
		m.draft = draftFromDetection(det)
		return []Effect{
			EffectStopSampling{},
			EffectJournal{
				EventType: domain.JournalDetectionAccepted,
				Plate:     det.Plate,
				Detail:    "entry plate detected",
			},
			EffectJournal{
				EventType: domain.JournalDraftFilled,
				Plate:     det.Plate,
			},
		}
	}
	return nil
}

func (m *Machine) detectionError(in InputDetectionError) []Effect {
	if m.state != StateScanning {
		return nil
	}
	// Автоматические отказы молча пропускаются: следующий кадр
	// отправится по расписанию. Ручной захват сообщает оператору.
	if !in.Manual {
		return nil
	}
	return []Effect{EffectJournal{
		EventType: domain.JournalDuplicateIgnored,
		Detail:    "manual capture failed: " + in.Err.Error(),
	}}
}

func (m *Machine) bookingMatched(in InputBookingMatched) []Effect {
	if m.state != StateCandidatePending {
		return nil
	}
	b := in.Booking
	m.state = StateFormReady
	m.draft = domain.EntryDraft{
		Plate:      b.PlateNumber,
		TypeCode:   b.VehicleType,
		SpotLabel:  b.SpotLabel,
		Provenance: domain.ProvenanceBookingMatched,
	}
	return []Effect{EffectJournal{
		EventType: domain.JournalBookingMatched,
		Plate:     b.PlateNumber,
		Detail:    "booking " + b.BookingID,
	}}
}

func (m *Machine) bookingMiss(in InputBookingMiss) []Effect {
	if m.state != StateCandidatePending {
		return nil
	}
	m.state = StateFormReady
	if in.Fallback != nil {
		m.draft = draftFromDetection(in.Fallback)
	}
	detail := "no booking found"
	if in.Err != nil {
		detail = in.Err.Error()
	}
	return []Effect{EffectJournal{
		EventType: domain.JournalDraftFilled,
		Plate:     m.draft.Plate,
		Detail:    detail,
	}}
}

func (m *Machine) feeQuoted(in InputFeeQuoted) []Effect {
	if m.state != StateCandidatePending {
		return nil
	}
	m.state = StateFormReady
	m.quote = in.Quote
	return []Effect{EffectJournal{
		EventType: domain.JournalDraftFilled,
		Plate:     in.Quote.Plate,
		Detail:    fmt.Sprintf("fee quoted: %.2f LKR", in.Quote.FeeLKR),
	}}
}

func (m *Machine) feeLookupFailed(in InputFeeLookupFailed) []Effect {
	if m.state != StateCandidatePending {
		return nil
	}
	// Сессии нет: оставляем распознанный номер в форме,
	// оператор уточнит его и повторит поиск
	m.state = StateFormReady
	if in.Fallback != nil {
		m.draft = draftFromDetection(in.Fallback)
	}
	return []Effect{EffectJournal{
		EventType: domain.JournalDraftFilled,
		Plate:     m.draft.Plate,
		Detail:    "fee lookup failed: " + in.Err.Error(),
	}}
}

func (m *Machine) draftEdited(in InputDraftEdited) ([]Effect, error) {
	if m.state != StateFormReady {
		return nil, fmt.Errorf("edit draft in state %s: %w", m.state, domain.ErrNotFormReady)
	}
	m.draft.Plate = in.Plate
	m.draft.TypeCode = in.TypeCode
	m.draft.SpotLabel = in.SpotLabel
	m.draft.Provenance = domain.ProvenanceManualOverride
	// Правка номера делает прежний расчёт платы недействительным
	if m.quote != nil && m.quote.Plate != in.Plate {
		m.quote = nil
	}
	return nil, nil
}

func (m *Machine) submit() ([]Effect, error) {
	if m.state != StateFormReady {
		return nil, fmt.Errorf("submit in state %s: %w", m.state, domain.ErrNotFormReady)
	}
	// Полоса выезда не создаёт сессий въезда: выезд закрывается только оплатой
	if m.direction == domain.GateExit {
		return nil, fmt.Errorf("submit on exit lane: %w", domain.ErrInvalidTransition)
	}
	if err := m.draft.Validate(); err != nil {
		return nil, err
	}
	m.state = StateSubmitting
	return []Effect{EffectSubmitEntry{Draft: m.draft}}, nil
}

func (m *Machine) submitAccepted(in InputSubmitAccepted) []Effect {
	if m.state != StateSubmitting {
		return nil
	}
	m.state = StateSettled
	effects := []Effect{
		EffectJournal{
			EventType: domain.JournalSessionCreated,
			Plate:     in.Session.Plate,
			Detail:    fmt.Sprintf("session %d", in.Session.SessionID),
		},
		EffectOpenGate{Gate: m.direction},
		EffectScheduleGateClose{Gate: m.direction},
		EffectEmitEntryReceipt{Session: in.Session},
	}
	// В режиме бронирований оператор перезапускает сканирование сам
	if !m.bookingMode {
		effects = append(effects, EffectScheduleReset{})
	}
	return effects
}

func (m *Machine) submitRejected(in InputSubmitRejected) []Effect {
	if m.state != StateSubmitting {
		return nil
	}
	m.state = StateFormReady
	return []Effect{EffectJournal{
		EventType: domain.JournalDraftFilled,
		Plate:     m.draft.Plate,
		Detail:    "submit rejected: " + in.Err.Error(),
	}}
}

func (m *Machine) settled(in InputSettled) []Effect {
	if m.state != StateFormReady {
		return nil
	}
	m.state = StateSettled
	m.quote = in.Quote
	effects := []Effect{
		EffectJournal{
			EventType: domain.JournalPaymentSettled,
			Plate:     in.Quote.Plate,
			Detail:    fmt.Sprintf("%s: %.2f LKR", in.Settlement.PaymentMethod, in.Quote.FeeLKR),
		},
		EffectOpenGate{Gate: m.direction},
		EffectScheduleGateClose{Gate: m.direction},
		EffectEmitExitReceipt{Quote: in.Quote, Settlement: in.Settlement},
	}
	if !m.bookingMode {
		effects = append(effects, EffectScheduleReset{})
	}
	return effects
}

func (m *Machine) resetTimer() []Effect {
	if m.state != StateSettled {
		return nil
	}
	m.state = StateScanning
	m.draft.Reset()
	m.quote = nil
	return []Effect{EffectStartSampling{}}
}

func (m *Machine) clear() ([]Effect, error) {
	switch m.state {
	case StateFormReady, StateSettled, StateCandidatePending:
		m.state = StateScanning
		m.draft.Reset()
		m.quote = nil
		return []Effect{EffectStartSampling{}}, nil
	case StateScanning:
		m.draft.Reset()
		m.quote = nil
		return nil, nil
	default:
		return nil, fmt.Errorf("clear in state %s: %w", m.state, domain.ErrInvalidTransition)
	}
}

func (m *Machine) stop() []Effect {
	if m.state == StateIdle {
		return nil
	}
	prev := m.state
	m.state = StateIdle
	m.draft.Reset()
	m.quote = nil
	return []Effect{
		EffectStopSampling{},
		EffectCloseSource{},
		EffectJournal{
			EventType: domain.JournalTeardown,
			Detail:    "detection stopped from " + prev.String(),
		},
	}
}

func (m *Machine) teardown(reason string) []Effect {
	prev := m.state
	m.state = StateTornDown
	if prev == StateIdle {
		return []Effect{EffectJournal{
			EventType: domain.JournalTeardown,
			Detail:    reason,
		}}
	}
	return []Effect{
		EffectStopSampling{},
		EffectCloseSource{},
		EffectJournal{
			EventType: domain.JournalTeardown,
			Detail:    reason + " from " + prev.String(),
		},
	}
}

func draftFromDetection(det *domain.Detection) domain.EntryDraft {
	return domain.EntryDraft{
		Plate:       det.Plate,
		TypeCode:    det.TypeCode,
		SpotLabel:   det.SpotLabel,
		SourceImage: det.ImagePreview,
		Provenance:  domain.ProvenanceAutoDetected,
	}
}
