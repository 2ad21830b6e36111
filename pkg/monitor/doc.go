// Package monitor tracks token usage per user and adapts limits and
// preferences from the observed patterns.
//
// The Monitor keeps an exponential moving average of response length
// and satisfaction per user, a stepped truncation rate, and aggregate
// counters for system health. When a user's pattern crosses an
// optimization threshold and the per-user cooldown has elapsed, an
// automatic optimization pass adjusts their preferred prompt length
// and response style.
package monitor
