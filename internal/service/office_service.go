// internal/service/office_service.go

package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"OfficeSLAMonitor/internal/logger"
	"OfficeSLAMonitor/internal/models"
)

var ErrInvalidOffice = errors.New("invalid office")

type OfficeService struct {
	offices OfficeStore
	log     *logger.Logger
}

func NewOfficeService(offices OfficeStore, log *logger.Logger) *OfficeService {
	return &OfficeService{
		offices: offices,
		log:     log,
	}
}

func (s *OfficeService) Upsert(ctx context.Context, req models.UpsertOfficeRequest) (int64, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validateOffice(req); err != nil {
		return 0, err
	}
	req.ApplyDefaults()

	id, err := s.offices.Upsert(ctx, req)
	if err != nil {
		s.log.Error("Failed to upsert office %s: %v", req.Name, err)
		return 0, err
	}

	s.log.Info("Office upserted: %s (id=%d)", req.Name, id)
	return id, nil
}

func (s *OfficeService) List(ctx context.Context) ([]models.Office, error) {
	return s.offices.List(ctx)
}

func (s *OfficeService) Get(ctx context.Context, name string) (*models.Office, error) {
	return s.offices.GetByName(ctx, strings.TrimSpace(name))
}

func validateOffice(req models.UpsertOfficeRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidOffice)
	}
	targets := map[string]string{
		"gateway_ip":      req.GatewayIP,
		"mx_ip":           req.MXIP,
		"tunnel_probe_ip": req.TunnelProbeIP,
	}
	for _, field := range []string{"gateway_ip", "mx_ip", "tunnel_probe_ip"} {
		if strings.TrimSpace(targets[field]) == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidOffice, field)
		}
		if net.ParseIP(targets[field]) == nil && !validHostname(targets[field]) {
			return fmt.Errorf("%w: %s %q is not an address", ErrInvalidOffice, field, targets[field])
		}
	}
	if req.RetriesDown < 0 || req.RetriesUp < 0 {
		return fmt.Errorf("%w: retries must not be negative", ErrInvalidOffice)
	}
	return nil
}

func validHostname(h string) bool {
	if len(h) > 253 {
		return false
	}
	for _, label := range strings.Split(h, ".") {
		if label == "" || len(label) > 63 {
			return false
		}
		for _, r := range label {
			if !(r == '-' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
				return false
			}
		}
	}
	return true
}
