package model

import "time"

// RiskLevel classifies how overdue an entity's next collection is.
type RiskLevel string

const (
	RiskNormal   RiskLevel = "normal"
	RiskUpcoming RiskLevel = "upcoming"
	RiskWarning  RiskLevel = "warning"
	RiskCritical RiskLevel = "critical"
)

// RiskLevels lists all tiers in ascending severity. This is the canonical
// iteration order for distributions and reports.
var RiskLevels = []RiskLevel{RiskNormal, RiskUpcoming, RiskWarning, RiskCritical}

var riskRank = map[RiskLevel]int{
	RiskNormal:   0,
	RiskUpcoming: 1,
	RiskWarning:  2,
	RiskCritical: 3,
}

// Severity returns the tier's position in the total severity order.
func (r RiskLevel) Severity() int { return riskRank[r] }

// EntityProfile is the derived per-entity view, rebuilt from scratch on every
// run. AvgIntervalDays is nil when the entity has no qualifying gap.
type EntityProfile struct {
	EntityID         string    `json:"entity_id"`
	TradeLicense     string    `json:"trade_license,omitempty"`
	OutletName       string    `json:"outlet_name,omitempty"`
	Category         string    `json:"category"`
	Area             string    `json:"area"`
	Zone             string    `json:"zone,omitempty"`
	Provider         string    `json:"provider,omitempty"`
	CollectionsCount int       `json:"collections_count"`
	AvgIntervalDays  *float64  `json:"avg_interval_days,omitempty"`
	AvgGallons       *float64  `json:"avg_gallons,omitempty"`
	LastCollectionAt time.Time `json:"last_collection_at"`
	DaysOverdue      int       `json:"days_overdue"`
	RiskLevel        RiskLevel `json:"risk_level"`
}

// VolumeStats summarizes gallons collected for a group of events.
// Std is the sample standard deviation; zero when fewer than two samples.
type VolumeStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
}

// GroupProfile rolls entity profiles up by category or area.
// AvgIntervalDays is the unweighted mean of member estimates, with the
// configured default substituted for members that have none.
type GroupProfile struct {
	Key              string            `json:"key"`
	EntityCount      int               `json:"entity_count"`
	Collections      int               `json:"collections"`
	AvgIntervalDays  float64           `json:"avg_interval_days"`
	RiskDistribution map[RiskLevel]int `json:"risk_distribution"`
	DominantCategory string            `json:"dominant_category,omitempty"`
	VolumeStats      VolumeStats       `json:"volume_stats"`
}

// ForecastDay is one day of the projected demand horizon.
type ForecastDay struct {
	Date                time.Time `json:"date"`
	ExpectedCollections int       `json:"expected_collections_count"`
}

// ProviderOutlook estimates near-term workload for one service provider.
type ProviderOutlook struct {
	Provider        string  `json:"provider"`
	Entities        int     `json:"entities"`
	Overdue         int     `json:"overdue"`
	DueWithinWeek   int     `json:"due_within_week"`
	AvgIntervalDays float64 `json:"avg_interval_days"`
}

// Overview holds dataset-level statistics over all ingested events.
type Overview struct {
	TotalRecords      int        `json:"total_records"`
	InvalidDates      int        `json:"invalid_dates"`
	DateRangeStart    *time.Time `json:"date_range_start,omitempty"`
	DateRangeEnd      *time.Time `json:"date_range_end,omitempty"`
	TotalGallons      float64    `json:"total_gallons"`
	AvgGallons        float64    `json:"average_gallons_per_collection"`
	UniqueEntities    int        `json:"unique_entities"`
	UniqueProviders   int        `json:"unique_service_providers"`
	UniqueVehicles    int        `json:"unique_vehicles"`
	UniqueAreas       int        `json:"unique_areas"`
	UniqueZones       int        `json:"unique_zones"`
	UniqueCategories  int        `json:"unique_categories"`
	CompletionRate    float64    `json:"completion_rate"`
	AvgTurnaroundDays *float64   `json:"avg_turnaround_days,omitempty"`
}

// AnalysisResult is the stable output schema consumed by the report and
// export layers. Downstream formatting never recomputes any of it.
type AnalysisResult struct {
	ReferenceDate      time.Time         `json:"reference_date"`
	Overview           Overview          `json:"overview"`
	Entities           []EntityProfile   `json:"entities"`
	GroupsByCategory   []GroupProfile    `json:"groups_by_category"`
	GroupsByArea       []GroupProfile    `json:"groups_by_area"`
	Forecast           []ForecastDay     `json:"forecast"`
	PeakDemandDays     []ForecastDay     `json:"peak_demand_days"`
	CriticalAlerts     []EntityProfile   `json:"critical_alerts"`
	HighRiskAreas      []string          `json:"high_risk_areas"`
	HighRiskCategories []string          `json:"high_risk_categories"`
	ProviderOutlook    []ProviderOutlook `json:"provider_outlook"`
	InsufficientData   int               `json:"insufficient_data_entities"`
}

// RiskSummary counts entities per tier across the whole result.
func (r *AnalysisResult) RiskSummary() map[RiskLevel]int {
	out := make(map[RiskLevel]int, len(RiskLevels))
	for _, lvl := range RiskLevels {
		out[lvl] = 0
	}
	for _, e := range r.Entities {
		out[e.RiskLevel]++
	}
	return out
}

// Snapshot is a persisted analysis run.
type Snapshot struct {
	ID            string          `json:"id"`
	ReferenceDate time.Time       `json:"reference_date"`
	Source        string          `json:"source"`
	EventsTotal   int             `json:"events_total"`
	EntitiesTotal int             `json:"entities_total"`
	Result        *AnalysisResult `json:"result,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
