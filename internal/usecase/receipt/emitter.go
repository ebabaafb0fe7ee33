package receipt

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/frontandrew/parklane/internal/domain"
	"github.com/frontandrew/parklane/internal/pkg/logger"
)

// Printer принимает готовый документ квитанции. Реализация решает,
// куда он попадёт: в каталог спула, на принтер, в лог.
type Printer interface {
	Print(ctx context.Context, name string, data []byte) error
}

// Emitter собирает квитанции въезда и выезда. Квитанция въезда несёт
// QR код с токеном сессии: на выезде им можно найти сессию без номера.
// Отказ печати логируется и не прерывает транзакцию.
type Emitter struct {
	printer Printer
	qrSize  int
	log     logger.Logger
}

// NewEmitter создает сборщик квитанций; printer может быть nil,
// тогда квитанции только логируются
func NewEmitter(printer Printer, qrSize int, log logger.Logger) *Emitter {
	if qrSize <= 0 {
		qrSize = 200
	}
	return &Emitter{printer: printer, qrSize: qrSize, log: log}
}

var entryTemplate = template.Must(template.New("entry").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Parking Receipt</title></head>
<body style="font-family: monospace; width: 280px">
  <h3 style="text-align: center">PARKING RECEIPT</h3>
  <hr>
  <p>Session: {{.SessionID}}</p>
  <p>Plate: {{.Plate}}</p>
  <p>Type: {{.TypeCode}}</p>
  <p>Spot: {{.SpotLabel}}</p>
  <p>Entry: {{.EntryTime}}</p>
  {{if .QRImage}}<div style="text-align: center"><img src="data:image/png;base64,{{.QRImage}}" alt="exit qr"></div>{{end}}
  <hr>
  <p style="text-align: center">Keep this receipt for exit</p>
</body>
</html>
`))

type entryReceiptData struct {
	SessionID int64
	Plate     string
	TypeCode  string
	SpotLabel string
	EntryTime string
	QRImage   string
}

// EmitEntry печатает квитанцию въезда с QR кодом сессии
func (e *Emitter) EmitEntry(ctx context.Context, session *domain.EntrySession) error {
	data := entryReceiptData{
		SessionID: session.SessionID,
		Plate:     session.Plate,
		TypeCode:  session.TypeCode,
		SpotLabel: session.SpotLabel,
		EntryTime: session.EntryTime.Format("2006-01-02 15:04:05"),
	}

	// Квитанция без QR кода хуже, но полезнее, чем никакой
	if session.QRToken != "" {
		png, err := qrcode.Encode(session.QRToken, qrcode.Medium, e.qrSize)
		if err != nil {
			e.log.Warn("qr encode failed", map[string]interface{}{
				"session_id": session.SessionID,
				"error":      err.Error(),
			})
		} else {
			data.QRImage = base64.StdEncoding.EncodeToString(png)
		}
	}

	var buf bytes.Buffer
	if err := entryTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("render entry receipt: %w", err)
	}

	name := fmt.Sprintf("entry-%d-%s.html", session.SessionID, time.Now().Format("20060102-150405"))
	return e.print(ctx, name, buf.Bytes(), session.Plate)
}

// EmitExit печатает итог оплаты выезда
func (e *Emitter) EmitExit(ctx context.Context, quote *domain.FeeQuote, settlement *domain.Settlement) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "========== EXIT RECEIPT ==========")
	fmt.Fprintf(&buf, "Session:  %d\n", quote.SessionID)
	fmt.Fprintf(&buf, "Plate:    %s\n", quote.Plate)
	fmt.Fprintf(&buf, "Entry:    %s\n", quote.EntryTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&buf, "Exit:     %s\n", quote.ExitTime.Format("2006-01-02 15:04:05"))
	if quote.Duration != "" {
		fmt.Fprintf(&buf, "Duration: %s\n", quote.Duration)
	}
	fmt.Fprintf(&buf, "Fee:      %.2f LKR\n", settlement.FeeLKR)
	fmt.Fprintf(&buf, "Paid by:  %s\n", settlement.PaymentMethod)
	fmt.Fprintf(&buf, "Paid at:  %s\n", settlement.PaidAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(&buf, "==================================")

	name := fmt.Sprintf("exit-%d-%s.txt", quote.SessionID, time.Now().Format("20060102-150405"))
	return e.print(ctx, name, buf.Bytes(), quote.Plate)
}

func (e *Emitter) print(ctx context.Context, name string, data []byte, plate string) error {
	if e.printer == nil {
		e.log.Info("receipt rendered, no printer configured", map[string]interface{}{
			"receipt": name,
			"plate":   plate,
		})
		return nil
	}
	if err := e.printer.Print(ctx, name, data); err != nil {
		return fmt.Errorf("print receipt %s: %w", name, err)
	}
	e.log.Info("receipt printed", map[string]interface{}{
		"receipt": name,
		"plate":   plate,
	})
	return nil
}
