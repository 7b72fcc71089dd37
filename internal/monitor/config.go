package monitor

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"OfficeSLAMonitor/internal/models"

	"gopkg.in/yaml.v3"
)

const (
	DefaultIntervalSeconds  = 5
	DefaultTimeoutMS        = 900
	DefaultBroadcastSeconds = 15
	DefaultPingConcurrency  = 20
)

// OfficesFile is the offices YAML document.
type OfficesFile struct {
	IntervalSeconds  int                          `yaml:"interval_seconds"`
	TimeoutMS        int                          `yaml:"timeout_ms"`
	BroadcastSeconds int                          `yaml:"broadcast_seconds"`
	Offices          []models.UpsertOfficeRequest `yaml:"offices"`
}

func LoadOffices(path string) (*OfficesFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open offices file: %w", err)
	}
	defer f.Close()

	cfg, err := ParseOffices(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseOffices decodes strictly, fills defaults and validates. An empty
// document yields defaults and no offices.
func ParseOffices(r io.Reader) (*OfficesFile, error) {
	cfg := &OfficesFile{}

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("can't decode offices: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *OfficesFile) applyDefaults() {
	if c.IntervalSeconds <= 0 {
		c.IntervalSeconds = DefaultIntervalSeconds
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = DefaultTimeoutMS
	}
	if c.BroadcastSeconds <= 0 {
		c.BroadcastSeconds = DefaultBroadcastSeconds
	}
	for i := range c.Offices {
		c.Offices[i].Name = strings.TrimSpace(c.Offices[i].Name)
		c.Offices[i].ApplyDefaults()
	}
}

func (c *OfficesFile) validate() error {
	seen := make(map[string]bool, len(c.Offices))
	var errs []error
	for i, o := range c.Offices {
		switch {
		case o.Name == "":
			errs = append(errs, fmt.Errorf("offices[%d]: name is required", i))
			continue
		case seen[o.Name]:
			errs = append(errs, fmt.Errorf("offices[%d]: duplicate office %q", i, o.Name))
		}
		seen[o.Name] = true
		if o.GatewayIP == "" || o.MXIP == "" || o.TunnelProbeIP == "" {
			errs = append(errs, fmt.Errorf("office %q: gateway_ip, mx_ip and tunnel_probe_ip are required", o.Name))
		}
	}
	return errors.Join(errs...)
}

// OfficeHash identifies the probe-relevant fields of an office so that
// Reconcile can detect edits.
func OfficeHash(o models.UpsertOfficeRequest) string {
	h := sha256.New()
	for _, v := range []string{
		o.Name,
		o.GatewayIP,
		o.MXIP,
		o.TunnelProbeIP,
		strconv.Itoa(o.RetriesDown),
		strconv.Itoa(o.RetriesUp),
	} {
		h.Write([]byte(v))
		h.Write([]byte("|"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Settings are the resolved timing knobs after CLI overrides.
type Settings struct {
	Interval        time.Duration
	Timeout         time.Duration
	Broadcast       time.Duration
	PingConcurrency int
}

// Overrides carries CLI values; zero means "not set".
type Overrides struct {
	IntervalSeconds int
	TimeoutMS       int
	PingConcurrency int
}

// Resolve merges the file values, the environment default for concurrency
// and the CLI overrides, CLI winning.
func Resolve(file *OfficesFile, envConcurrency int, o Overrides) Settings {
	s := Settings{
		Interval:        time.Duration(file.IntervalSeconds) * time.Second,
		Timeout:         time.Duration(file.TimeoutMS) * time.Millisecond,
		Broadcast:       time.Duration(file.BroadcastSeconds) * time.Second,
		PingConcurrency: envConcurrency,
	}
	if o.IntervalSeconds > 0 {
		s.Interval = time.Duration(o.IntervalSeconds) * time.Second
	}
	if o.TimeoutMS > 0 {
		s.Timeout = time.Duration(o.TimeoutMS) * time.Millisecond
	}
	if o.PingConcurrency > 0 {
		s.PingConcurrency = o.PingConcurrency
	}
	if s.PingConcurrency <= 0 {
		s.PingConcurrency = DefaultPingConcurrency
	}
	return s
}
