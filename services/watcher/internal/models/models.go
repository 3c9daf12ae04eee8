package models

import "time"

// AlertRow is a normalized alert ready for upsert into hazard.alerts.
type AlertRow struct {
	ID            string
	Name          string
	Description   string
	Type          string
	OtherInfo     string
	SeverityIndex *float64
	Lat           float64
	Lon           float64
	ReportedAt    *time.Time
	Source        string
}

// StoredAlert is the stored state used to detect changed alerts.
type StoredAlert struct {
	Name          string
	Description   string
	Type          string
	OtherInfo     string
	SeverityIndex *float64
	Lat           float64
	Lon           float64
	ReportedAt    *time.Time
}
