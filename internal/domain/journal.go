package domain

import (
	"time"

	"github.com/google/uuid"
)

// JournalEventType - тип события рабочего процесса, попадающего в локальный журнал
type JournalEventType string

const (
	JournalDetectionAccepted JournalEventType = "detection_accepted"
	JournalDuplicateIgnored  JournalEventType = "duplicate_ignored"
	JournalDraftFilled       JournalEventType = "draft_filled"
	JournalBookingMatched    JournalEventType = "booking_matched"
	JournalSessionCreated    JournalEventType = "session_created"
	JournalPaymentSettled    JournalEventType = "payment_settled"
	JournalGateAction        JournalEventType = "gate_action"
	JournalTeardown          JournalEventType = "teardown"
)

// JournalEntry - запись терминального журнала для сменной отчётности.
// Журнал локальный и необязательный: ошибка записи никогда не блокирует процесс.
type JournalEntry struct {
	ID        uuid.UUID        `json:"id"`
	SessionID uuid.UUID        `json:"capture_session_id"`
	Gate      GateID           `json:"gate"`
	EventType JournalEventType `json:"event_type"`
	Plate     string           `json:"plate,omitempty"`
	Detail    string           `json:"detail,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}
