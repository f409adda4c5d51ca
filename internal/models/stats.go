package models

import "time"

type DBStatus struct {
	Connection string    `json:"connection"`
	Status     string    `json:"status"`
	TotalUsers int       `json:"totalUsers"`
	Timestamp  time.Time `json:"timestamp"`
}
