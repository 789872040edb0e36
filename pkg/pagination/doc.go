// Package pagination collects every item of a paginated Bitrix24 list method.
//
// Bitrix24 list methods return at most 50 items per call together with a
// "next" cursor. The aggregator walks the cursor sequentially: the portal
// applies its rate limit per call, and "next" is only known after the
// previous page arrived.
//
// Example usage:
//
//	agg := pagination.NewAggregator(bitrixClient, pagination.DefaultConfig())
//	deals, err := agg.FetchAll(ctx, "POST", "crm.deal.list", map[string]any{
//		"filter": map[string]any{"STAGE_ID": "NEW"},
//	})
//
// The aggregator:
//   - Always makes at least one call, starting at cursor 0
//   - Merges {start: cursor} into a copy of the body for every page
//   - Appends array results in order and ignores non-array results
//   - Stops when a response carries no "next"
//   - On error returns nil items and a *PartialResultError holding what was
//     collected before the failing page
package pagination
