package usage

import "time"

// Quota policy for the free tier. Paid plans override limit_amount per row.
const (
	defaultPlan      = "Starter"
	defaultScanLimit = 10
	quotaWindow      = 7 * 24 * time.Hour
)

func defaultUsage() Usage {
	return Usage{
		Plan:     defaultPlan,
		Limit:    defaultScanLimit,
		Used:     0,
		ResetsAt: time.Now().UTC().Add(quotaWindow),
	}
}
