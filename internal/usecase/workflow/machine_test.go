package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontandrew/parklane/internal/domain"
)

func plateDetection(plate string) *domain.Detection {
	return &domain.Detection{
		Kind:      domain.DetectionPlate,
		Plate:     plate,
		TypeCode:  "CAR",
		SpotLabel: "A-12",
		Timestamp: time.Now(),
	}
}

func advanceToScanning(t *testing.T, m *Machine) {
	t.Helper()

	effects, err := m.Apply(InputStart{})
	require.NoError(t, err)
	require.Equal(t, []Effect{EffectOpenSource{}}, effects)
	require.Equal(t, StateInitializing, m.State())

	effects, err = m.Apply(InputSourceReady{})
	require.NoError(t, err)
	require.Equal(t, []Effect{EffectStartSampling{}}, effects)
	require.Equal(t, StateScanning, m.State())
}

func effectTypes(effects []Effect) []string {
	types := make([]string, 0, len(effects))
	for _, e := range effects {
		switch e.(type) {
		case EffectOpenSource:
			types = append(types, "open-source")
		case EffectCloseSource:
			types = append(types, "close-source")
		case EffectStartSampling:
			types = append(types, "start-sampling")
		case EffectStopSampling:
			types = append(types, "stop-sampling")
		case EffectLookupBooking:
			types = append(types, "lookup-booking")
		case EffectLookupExitSession:
			types = append(types, "lookup-exit-session")
		case EffectSubmitEntry:
			types = append(types, "submit-entry")
		case EffectEmitEntryReceipt:
			types = append(types, "emit-entry-receipt")
		case EffectEmitExitReceipt:
			types = append(types, "emit-exit-receipt")
		case EffectOpenGate:
			types = append(types, "open-gate")
		case EffectScheduleGateClose:
			types = append(types, "schedule-gate-close")
		case EffectScheduleReset:
			types = append(types, "schedule-reset")
		case EffectJournal:
			types = append(types, "journal")
		}
	}
	return types
}

func TestMachine_EntryHappyPath(t *testing.T) {
	m := NewMachine(domain.GateEntry, false)
	advanceToScanning(t, m)

	effects, err := m.Apply(InputDetection{Detection: plateDetection("CAV-8537")})
	require.NoError(t, err)
	assert.Equal(t, StateFormReady, m.State())
	assert.Contains(t, effectTypes(effects), "stop-sampling")

	draft := m.Draft()
	assert.Equal(t, "CAV-8537", draft.Plate)
	assert.Equal(t, "CAR", draft.TypeCode)
	assert.Equal(t, "A-12", draft.SpotLabel)
	assert.Equal(t, domain.ProvenanceAutoDetected, draft.Provenance)

	effects, err = m.Apply(InputSubmit{})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	submit, ok := effects[0].(EffectSubmitEntry)
	require.True(t, ok)
	assert.Equal(t, "CAV-8537", submit.Draft.Plate)
	assert.Equal(t, StateSubmitting, m.State())

	session := &domain.EntrySession{SessionID: 42, Plate: "CAV-8537"}
	effects, err = m.Apply(InputSubmitAccepted{Session: session})
	require.NoError(t, err)
	assert.Equal(t, StateSettled, m.State())

	types := effectTypes(effects)
	assert.Contains(t, types, "open-gate")
	assert.Contains(t, types, "schedule-gate-close")
	assert.Contains(t, types, "emit-entry-receipt")
	assert.Contains(t, types, "schedule-reset")

	// Пауза истекла: форма чистая, сканирование возобновлено
	effects, err = m.Apply(InputResetTimer{})
	require.NoError(t, err)
	assert.Equal(t, StateScanning, m.State())
	assert.Equal(t, []Effect{EffectStartSampling{}}, effects)
	assert.True(t, m.Draft().IsEmpty())
}

func TestMachine_DuplicateDetection(t *testing.T) {
	t.Run("automatic duplicate is ignored", func(t *testing.T) {
		m := NewMachine(domain.GateEntry, false)
		advanceToScanning(t, m)

		effects, err := m.Apply(InputDetection{
			Detection: &domain.Detection{Kind: domain.DetectionDuplicate, Message: "vehicle already inside"},
		})
		require.NoError(t, err)
		assert.Equal(t, StateScanning, m.State())
		assert.Equal(t, []string{"journal"}, effectTypes(effects))
		assert.True(t, m.Draft().IsEmpty())
	})

	t.Run("manual duplicate allows operator override", func(t *testing.T) {
		m := NewMachine(domain.GateEntry, false)
		advanceToScanning(t, m)

		effects, err := m.Apply(InputDetection{
			Detection: &domain.Detection{Kind: domain.DetectionDuplicate, Plate: "CAV-8537"},
			Manual:    true,
		})
		require.NoError(t, err)
		assert.Equal(t, StateFormReady, m.State())
		assert.Contains(t, effectTypes(effects), "stop-sampling")
		assert.Equal(t, domain.ProvenanceManualOverride, m.Draft().Provenance)
	})
}

func TestMachine_UnknownPlate(t *testing.T) {
	t.Run("automatic miss keeps scanning", func(t *testing.T) {
		m := NewMachine(domain.GateEntry, false)
		advanceToScanning(t, m)

		effects, err := m.Apply(InputDetection{
			Detection: &domain.Detection{Kind: domain.DetectionNone},
		})
		require.NoError(t, err)
		assert.Equal(t, StateScanning, m.State())
		assert.Empty(t, effects)
	})

	t.Run("manual miss fills defaults and stops scanning", func(t *testing.T) {
		m := NewMachine(domain.GateEntry, false)
		advanceToScanning(t, m)

		effects, err := m.Apply(InputDetection{
			Detection: &domain.Detection{Kind: domain.DetectionNone},
			Manual:    true,
		})
		require.NoError(t, err)
		assert.Equal(t, StateFormReady, m.State())
		assert.Contains(t, effectTypes(effects), "stop-sampling")

		draft := m.Draft()
		assert.Equal(t, "UNKNOWN", draft.Plate)
		assert.Equal(t, "CAR", draft.TypeCode)
		assert.Empty(t, draft.SpotLabel)
	})
}

func TestMachine_BookingMode(t *testing.T) {
	t.Run("detection triggers booking lookup", func(t *testing.T) {
		m := NewMachine(domain.GateEntry, true)
		advanceToScanning(t, m)

		effects, err := m.Apply(InputDetection{Detection: plateDetection("CAV-8537")})
		require.NoError(t, err)
		assert.Equal(t, StateCandidatePending, m.State())

		var lookup *EffectLookupBooking
		for _, e := range effects {
			if l, ok := e.(EffectLookupBooking); ok {
				lookup = &l
			}
		}
		require.NotNil(t, lookup)
		assert.Equal(t, "CAV-8537", lookup.Plate)
	})

	t.Run("matched booking fills draft", func(t *testing.T) {
		m := NewMachine(domain.GateEntry, true)
		advanceToScanning(t, m)
		_, err := m.Apply(InputDetection{Detection: plateDetection("CAV-8537")})
		require.NoError(t, err)

		_, err = m.Apply(InputBookingMatched{Booking: &domain.Booking{
			BookingID:   "bk-1",
			PlateNumber: "CAV-8537",
			VehicleType: "CAR",
			SpotLabel:   "B-03",
		}})
		require.NoError(t, err)
		assert.Equal(t, StateFormReady, m.State())

		draft := m.Draft()
		assert.Equal(t, "B-03", draft.SpotLabel)
		assert.Equal(t, domain.ProvenanceBookingMatched, draft.Provenance)
	})

	t.Run("booking miss falls back to recognized values", func(t *testing.T) {
		m := NewMachine(domain.GateEntry, true)
		advanceToScanning(t, m)
		det := plateDetection("CAV-8537")
		_, err := m.Apply(InputDetection{Detection: det})
		require.NoError(t, err)

		_, err = m.Apply(InputBookingMiss{Err: domain.ErrBookingNotFound, Fallback: det})
		require.NoError(t, err)
		assert.Equal(t, StateFormReady, m.State())
		assert.Equal(t, "CAV-8537", m.Draft().Plate)
		assert.Equal(t, domain.ProvenanceAutoDetected, m.Draft().Provenance)
	})

	t.Run("no automatic rescan after settle", func(t *testing.T) {
		m := NewMachine(domain.GateEntry, true)
		advanceToScanning(t, m)
		_, err := m.Apply(InputDetection{Detection: plateDetection("CAV-8537")})
		require.NoError(t, err)
		_, err = m.Apply(InputBookingMiss{Fallback: plateDetection("CAV-8537")})
		require.NoError(t, err)
		_, err = m.Apply(InputSubmit{})
		require.NoError(t, err)

		effects, err := m.Apply(InputSubmitAccepted{Session: &domain.EntrySession{SessionID: 7, Plate: "CAV-8537"}})
		require.NoError(t, err)
		assert.NotContains(t, effectTypes(effects), "schedule-reset")
	})
}

func TestMachine_ExitFlow(t *testing.T) {
	m := NewMachine(domain.GateExit, false)
	advanceToScanning(t, m)

	effects, err := m.Apply(InputDetection{Detection: plateDetection("CAV-8537")})
	require.NoError(t, err)
	assert.Equal(t, StateCandidatePending, m.State())
	assert.Contains(t, effectTypes(effects), "lookup-exit-session")

	quote := &domain.FeeQuote{SessionID: 42, Plate: "CAV-8537", FeeLKR: 150}
	_, err = m.Apply(InputFeeQuoted{Quote: quote})
	require.NoError(t, err)
	assert.Equal(t, StateFormReady, m.State())
	require.NotNil(t, m.Quote())
	assert.Equal(t, 150.0, m.Quote().FeeLKR)

	effects, err = m.Apply(InputSettled{
		Quote:      quote,
		Settlement: &domain.Settlement{PaymentMethod: domain.PaymentCash},
	})
	require.NoError(t, err)
	assert.Equal(t, StateSettled, m.State())

	types := effectTypes(effects)
	assert.Contains(t, types, "open-gate")
	assert.Contains(t, types, "schedule-gate-close")
	assert.Contains(t, types, "emit-exit-receipt")
	assert.Contains(t, types, "schedule-reset")
}

func TestMachine_ExitLaneRefusesEntrySubmit(t *testing.T) {
	m := NewMachine(domain.GateExit, false)
	advanceToScanning(t, m)
	_, err := m.Apply(InputDetection{Detection: plateDetection("CAV-8537")})
	require.NoError(t, err)
	_, err = m.Apply(InputFeeQuoted{Quote: &domain.FeeQuote{SessionID: 42, Plate: "CAV-8537", FeeLKR: 150}})
	require.NoError(t, err)
	require.Equal(t, StateFormReady, m.State())

	// Выезд не порождает сессий въезда даже с заполненной формой
	effects, err := m.Apply(InputSubmit{})
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Empty(t, effects)
	assert.Equal(t, StateFormReady, m.State())
	assert.Equal(t, "CAV-8537", m.Draft().Plate)
}

func TestMachine_DraftEditInvalidatesQuote(t *testing.T) {
	m := NewMachine(domain.GateExit, false)
	advanceToScanning(t, m)
	_, err := m.Apply(InputDetection{Detection: plateDetection("CAV-8537")})
	require.NoError(t, err)
	_, err = m.Apply(InputFeeQuoted{Quote: &domain.FeeQuote{SessionID: 42, Plate: "CAV-8537", FeeLKR: 150}})
	require.NoError(t, err)
	require.NotNil(t, m.Quote())

	_, err = m.Apply(InputDraftEdited{Plate: "CAW-1111", TypeCode: "CAR", SpotLabel: "A-12"})
	require.NoError(t, err)
	assert.Nil(t, m.Quote(), "quote must not survive a plate change")
	assert.Equal(t, domain.ProvenanceManualOverride, m.Draft().Provenance)
}

func TestMachine_StaleInputsDropped(t *testing.T) {
	m := NewMachine(domain.GateEntry, false)
	advanceToScanning(t, m)
	_, err := m.Apply(InputDetection{Detection: plateDetection("CAV-8537")})
	require.NoError(t, err)
	require.Equal(t, StateFormReady, m.State())

	// Запоздавший ответ распознавания не должен перетереть форму
	effects, err := m.Apply(InputDetection{Detection: plateDetection("CAW-9999")})
	require.NoError(t, err)
	assert.Empty(t, effects)
	assert.Equal(t, "CAV-8537", m.Draft().Plate)

	// Запоздавший таймер сброса вне Settled игнорируется
	effects, err = m.Apply(InputResetTimer{})
	require.NoError(t, err)
	assert.Empty(t, effects)
	assert.Equal(t, StateFormReady, m.State())
}

func TestMachine_InvalidOperatorActions(t *testing.T) {
	m := NewMachine(domain.GateEntry, false)

	_, err := m.Apply(InputSubmit{})
	assert.ErrorIs(t, err, domain.ErrNotFormReady)

	advanceToScanning(t, m)

	_, err = m.Apply(InputStart{})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = m.Apply(InputDraftEdited{Plate: "X"})
	assert.ErrorIs(t, err, domain.ErrNotFormReady)
}

func TestMachine_SubmitValidation(t *testing.T) {
	m := NewMachine(domain.GateEntry, false)
	advanceToScanning(t, m)
	_, err := m.Apply(InputDetection{Detection: &domain.Detection{Kind: domain.DetectionNone}, Manual: true})
	require.NoError(t, err)

	// Место не заполнено
	_, err = m.Apply(InputSubmit{})
	assert.ErrorIs(t, err, domain.ErrEmptySpotLabel)
	assert.Equal(t, StateFormReady, m.State())
}

func TestMachine_SubmitRejected(t *testing.T) {
	m := NewMachine(domain.GateEntry, false)
	advanceToScanning(t, m)
	_, err := m.Apply(InputDetection{Detection: plateDetection("CAV-8537")})
	require.NoError(t, err)
	_, err = m.Apply(InputSubmit{})
	require.NoError(t, err)

	effects, err := m.Apply(InputSubmitRejected{Err: errors.New("spot occupied")})
	require.NoError(t, err)
	assert.Equal(t, StateFormReady, m.State())
	assert.Equal(t, []string{"journal"}, effectTypes(effects))
	assert.Equal(t, "CAV-8537", m.Draft().Plate, "draft survives a rejected submit")
}

func TestMachine_Teardown(t *testing.T) {
	states := []struct {
		name    string
		prepare func(m *Machine)
	}{
		{"from idle", func(m *Machine) {}},
		{"from scanning", func(m *Machine) {
			advanceToScanning(t, m)
		}},
		{"from form ready", func(m *Machine) {
			advanceToScanning(t, m)
			_, err := m.Apply(InputDetection{Detection: plateDetection("CAV-8537")})
			require.NoError(t, err)
		}},
		{"from submitting", func(m *Machine) {
			advanceToScanning(t, m)
			_, err := m.Apply(InputDetection{Detection: plateDetection("CAV-8537")})
			require.NoError(t, err)
			_, err = m.Apply(InputSubmit{})
			require.NoError(t, err)
		}},
	}

	for _, tc := range states {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMachine(domain.GateEntry, false)
			tc.prepare(m)

			_, err := m.Apply(InputTeardown{})
			require.NoError(t, err)
			assert.Equal(t, StateTornDown, m.State())

			// После teardown машина мертва: любые входы игнорируются
			effects, err := m.Apply(InputStart{})
			require.NoError(t, err)
			assert.Empty(t, effects)
			assert.Equal(t, StateTornDown, m.State())
		})
	}
}

func TestMachine_StopReleasesEverything(t *testing.T) {
	m := NewMachine(domain.GateEntry, false)
	advanceToScanning(t, m)
	_, err := m.Apply(InputDetection{Detection: plateDetection("CAV-8537")})
	require.NoError(t, err)

	effects, err := m.Apply(InputStop{})
	require.NoError(t, err)
	assert.Equal(t, StateIdle, m.State())

	types := effectTypes(effects)
	assert.Contains(t, types, "stop-sampling")
	assert.Contains(t, types, "close-source")
	assert.True(t, m.Draft().IsEmpty())
}

func TestMachine_ClearResumesScanning(t *testing.T) {
	m := NewMachine(domain.GateEntry, false)
	advanceToScanning(t, m)
	_, err := m.Apply(InputDetection{Detection: plateDetection("CAV-8537")})
	require.NoError(t, err)

	effects, err := m.Apply(InputClear{})
	require.NoError(t, err)
	assert.Equal(t, StateScanning, m.State())
	assert.Equal(t, []Effect{EffectStartSampling{}}, effects)
	assert.True(t, m.Draft().IsEmpty())
}
