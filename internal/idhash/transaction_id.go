package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeTransactionID computes a deterministic transaction id.
// Formula: base58(SHA256(tenant_id|data_source_id|external_id))
// The same source row always maps to the same id, which makes re-ingestion
// idempotent at the store level.
func ComputeTransactionID(tenantID, dataSourceID, externalID string) string {
	data := fmt.Sprintf("%s|%s|%s", tenantID, dataSourceID, externalID)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
