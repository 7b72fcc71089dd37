// internal/models/models.go

package models

import (
	"time"
)

type State string

const (
	StateUnknown  State = "unknown"
	StateUp       State = "up"
	StateDegraded State = "degraded"
	StateDown     State = "down"
)

// Known reports whether s is one of the three resolved states.
func (s State) Known() bool {
	return s == StateUp || s == StateDegraded || s == StateDown
}

// Incident reports whether s counts as an outage for recovery purposes.
func (s State) Incident() bool {
	return s == StateDown || s == StateDegraded
}

// Severity orders states so that the worst sorts first: down < degraded < up.
func (s State) Severity() int {
	switch s {
	case StateDown:
		return 0
	case StateDegraded:
		return 1
	case StateUp:
		return 2
	default:
		return 3
	}
}

type Office struct {
	ID            int64     `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	GatewayIP     string    `json:"gateway_ip" db:"gateway_ip"`
	MXIP          string    `json:"mx_ip" db:"mx_ip"`
	TunnelProbeIP string    `json:"tunnel_probe_ip" db:"tunnel_probe_ip"`
	RetriesDown   int       `json:"retries_down" db:"retries_down"`
	RetriesUp     int       `json:"retries_up" db:"retries_up"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

type UpsertOfficeRequest struct {
	Name          string `json:"name" yaml:"name"`
	GatewayIP     string `json:"gateway_ip" yaml:"gateway_ip"`
	MXIP          string `json:"mx_ip" yaml:"mx_ip"`
	TunnelProbeIP string `json:"tunnel_probe_ip" yaml:"tunnel_probe_ip"`
	RetriesDown   int    `json:"retries_down" yaml:"retries_down"`
	RetriesUp     int    `json:"retries_up" yaml:"retries_up"`
}

const (
	DefaultRetriesDown = 2
	DefaultRetriesUp   = 1
)

// ApplyDefaults fills retry thresholds left at zero.
func (r *UpsertOfficeRequest) ApplyDefaults() {
	if r.RetriesDown <= 0 {
		r.RetriesDown = DefaultRetriesDown
	}
	if r.RetriesUp <= 0 {
		r.RetriesUp = DefaultRetriesUp
	}
}

type UpsertOfficeResponse struct {
	OK       bool  `json:"ok"`
	OfficeID int64 `json:"office_id"`
}

// Sample is a single probe observation of an office's three targets.
type Sample struct {
	Gateway bool  `json:"gateway"`
	MX      bool  `json:"mx"`
	IPsec   bool  `json:"ipsec"`
	TS      int64 `json:"ts"`

	GatewayRTTMs *float64 `json:"gateway_rtt_ms,omitempty"`
	MXRTTMs      *float64 `json:"mx_rtt_ms,omitempty"`
	TunnelRTTMs  *float64 `json:"tunnel_rtt_ms,omitempty"`
}

type StateChangeEvent struct {
	Office string `json:"office"`
	State  State  `json:"state"`
	Sample Sample `json:"sample"`
	At     int64  `json:"at"`
}

type StateChangeResponse struct {
	OK       bool  `json:"ok"`
	Inserted int64 `json:"inserted"`
}

// StateChange is the stored form of a transition.
type StateChange struct {
	OfficeID      int64  `json:"office_id" db:"office_id"`
	Office        string `json:"office" db:"office"`
	AtTS          int64  `json:"at_ts" db:"at_ts"`
	FromState     State  `json:"from_state" db:"from_state"`
	ToState       State  `json:"to_state" db:"to_state"`
	SampleGateway bool   `json:"sample_gateway" db:"sample_gateway"`
	SampleMX      bool   `json:"sample_mx" db:"sample_mx"`
	SampleIPsec   bool   `json:"sample_ipsec" db:"sample_ipsec"`
}

type TickSample struct {
	Office string `json:"office"`
	State  State  `json:"state,omitempty"`
	Sample
}

type TickResponse struct {
	OK    bool `json:"ok"`
	Count int  `json:"count"`
}

// StoredSample is a sample row as read back for charts.
type StoredSample struct {
	Office string `json:"office"`
	Sample
}

type Window struct {
	TStart int64 `json:"t_start"`
	TEnd   int64 `json:"t_end"`
}

// Seconds returns the window length, never negative.
func (w Window) Seconds() int64 {
	if w.TEnd < w.TStart {
		return 0
	}
	return w.TEnd - w.TStart
}

type SlaRow struct {
	Office   string `json:"office"`
	SecUp    int64  `json:"sec_up"`
	SecDeg   int64  `json:"sec_deg"`
	SecDown  int64  `json:"sec_down"`
	SecTotal int64  `json:"sec_total"`

	UptimeStrict  float64 `json:"uptime_strict"`
	UptimeLenient float64 `json:"uptime_lenient"`

	CurrentState  *State `json:"current_state"`
	CurrentAt     *int64 `json:"current_at"`
	PreviousState *State `json:"previous_state"`

	LatestGateway  *bool  `json:"latest_gateway"`
	LatestMX       *bool  `json:"latest_mx"`
	LatestIPsec    *bool  `json:"latest_ipsec"`
	LatestSampleTS *int64 `json:"latest_sample_ts"`
}

type SlaResponse struct {
	Window Window   `json:"window"`
	SLA    []SlaRow `json:"sla"`
}

type SlaQuery struct {
	Office string
	Window Window
}

type SamplesResponse struct {
	Window  Window         `json:"window"`
	Office  string         `json:"office"`
	Samples []StoredSample `json:"samples"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Services  struct {
		Database bool `json:"database"`
		MQTT     bool `json:"mqtt"`
	} `json:"services"`
}

// Event is pushed to websocket subscribers when ingestion changes data.
type Event struct {
	Type      string      `json:"type"`
	Office    string      `json:"office,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

const (
	EventStateChange = "state_change"
	EventTick        = "tick"
)
