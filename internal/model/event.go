package model

import "time"

// StatusDischarged is the terminal status of a completed service.
const StatusDischarged = "Discharged"

// CollectionEvent is a single grease-trap service record from the source
// export. Events are immutable once loaded; pointer fields are nil when the
// source value was missing or unparseable.
type CollectionEvent struct {
	EntityID      string     `json:"entity_id"`
	TradeLicense  string     `json:"trade_license,omitempty"`
	Outlet        string     `json:"outlet,omitempty"`
	Category      string     `json:"category"`
	SubCategory   string     `json:"sub_category,omitempty"`
	Area          string     `json:"area"`
	Zone          string     `json:"zone,omitempty"`
	Provider      string     `json:"provider,omitempty"`
	Vehicle       string     `json:"vehicle,omitempty"`
	TrapType      string     `json:"trap_type,omitempty"`
	Status        string     `json:"status,omitempty"`
	ServiceReport string     `json:"service_report,omitempty"`
	CollectedAt   *time.Time `json:"collected_at,omitempty"`
	DischargedAt  *time.Time `json:"discharged_at,omitempty"`
	InitiatedAt   *time.Time `json:"initiated_at,omitempty"`
	Gallons       *float64   `json:"gallons,omitempty"`
	Traps         *float64   `json:"traps,omitempty"`
}

// HasCollectedAt reports whether the event carries a parseable collection
// timestamp. Events without one stay out of interval and risk computation but
// still count toward volume and category aggregates.
func (e CollectionEvent) HasCollectedAt() bool {
	return e.CollectedAt != nil && !e.CollectedAt.IsZero()
}

// TurnaroundDays returns the whole days between initiation and collection,
// or false when either timestamp is missing.
func (e CollectionEvent) TurnaroundDays() (int, bool) {
	if e.CollectedAt == nil || e.InitiatedAt == nil {
		return 0, false
	}
	return int(e.CollectedAt.Sub(*e.InitiatedAt) / (24 * time.Hour)), true
}
