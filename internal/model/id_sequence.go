package model

import "time"

// IDSequence 交接单号日序号，对应 handover_id_sequences
type IDSequence struct {
	Day       string    `gorm:"type:char(8);primaryKey" json:"day"` // YYYYMMDD
	LastSeq   int       `gorm:"not null"                json:"last_seq"`
	UpdatedAt time.Time `gorm:"not null"                json:"updated_at"`
}

// TableName 指定表名
func (IDSequence) TableName() string { return "handover_id_sequences" }
