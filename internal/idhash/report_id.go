package idhash

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/mr-tron/base58"

	"aurix/internal/domain"
)

// ComputeReportID computes a deterministic report id.
// Formula: base58(SHA256(tenant_id|report_type|period_start|period_end))
func ComputeReportID(tenantID, reportType string, periodStart, periodEnd time.Time) string {
	data := fmt.Sprintf("%s|%s|%s|%s",
		tenantID,
		reportType,
		periodStart.UTC().Format(domain.DayFormat),
		periodEnd.UTC().Format(domain.DayFormat),
	)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
