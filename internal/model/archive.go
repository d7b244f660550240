package model

import "time"

// ArchiveRecord is a confirmed archive suggestion kept in the local journal.
type ArchiveRecord struct {
	ThreadUID   string    `json:"thread_uid" yaml:"thread_uid"`
	Orders      []int     `json:"orders" yaml:"orders"`
	Text        string    `json:"text" yaml:"text"`
	ConfirmedAt time.Time `json:"confirmed_at" yaml:"confirmed_at"`
}
