package schema

import (
	"time"

	"gorm.io/datatypes"
)

// MetadataRecord represents the metadata_records table - content-addressed
// storage for fetched metadata documents. The fingerprint is a strong hash
// of the raw bytes, so byte-identical payloads fetched for different
// entities collapse to a single row. Rows are immutable once created.
type MetadataRecord struct {
	// Fingerprint is the keccak-256 content hash of Raw (lowercase hex), primary key
	Fingerprint string `gorm:"column:fingerprint;primaryKey;type:text"`
	// Raw is the document exactly as fetched
	Raw []byte `gorm:"column:raw;not null;type:bytea"`
	// Parsed is the document as JSON when it parsed cleanly (nil otherwise)
	Parsed datatypes.JSON `gorm:"column:parsed;type:jsonb"`
	// CreatedAt is the timestamp when this record was first stored
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the MetadataRecord model
func (MetadataRecord) TableName() string {
	return "metadata_records"
}
