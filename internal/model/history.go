package model

import "time"

type HistoryRecord struct {
	ID     string
	User   *UserRef
	Points int
	Date   *time.Time
}
