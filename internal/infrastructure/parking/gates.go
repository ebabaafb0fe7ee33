package parking

import (
	"context"
	"fmt"
	"net/http"

	"github.com/frontandrew/parklane/internal/domain"
)

// OpenGate посылает идемпотентную команду открытия шлагбаума
func (c *httpClient) OpenGate(ctx context.Context, gate domain.GateID) error {
	if !gate.Valid() {
		return fmt.Errorf("%w: unknown gate %q", domain.ErrBadRequest, gate)
	}
	path := fmt.Sprintf("/camera/gates/%s/open", gate)
	if err := c.postJSON(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("open gate %s: %w", gate, err)
	}
	return nil
}

// CloseGate посылает идемпотентную команду закрытия шлагбаума
func (c *httpClient) CloseGate(ctx context.Context, gate domain.GateID) error {
	if !gate.Valid() {
		return fmt.Errorf("%w: unknown gate %q", domain.ErrBadRequest, gate)
	}
	path := fmt.Sprintf("/camera/gates/%s/close", gate)
	if err := c.postJSON(ctx, path, nil, nil); err != nil {
		return fmt.Errorf("close gate %s: %w", gate, err)
	}
	return nil
}

type gateStatusResponse struct {
	EntryGate struct {
		Open bool `json:"open"`
	} `json:"entry_gate"`
	ExitGate struct {
		Open bool `json:"open"`
	} `json:"exit_gate"`
}

// GateStatus запрашивает фактическое состояние шлагбаумов
func (c *httpClient) GateStatus(ctx context.Context) (*domain.GateStatus, error) {
	var resp gateStatusResponse
	if err := c.do(ctx, http.MethodGet, "/camera/gates/status", nil, "", &resp); err != nil {
		return nil, fmt.Errorf("gate status: %w", err)
	}
	return &domain.GateStatus{
		EntryOpen: resp.EntryGate.Open,
		ExitOpen:  resp.ExitGate.Open,
	}, nil
}

// CameraSettings запрашивает адреса камер, заданные администратором
func (c *httpClient) CameraSettings(ctx context.Context) (*CameraSettings, error) {
	var resp CameraSettings
	if err := c.do(ctx, http.MethodGet, "/camera/settings", nil, "", &resp); err != nil {
		return nil, fmt.Errorf("camera settings: %w", err)
	}
	return &resp, nil
}
