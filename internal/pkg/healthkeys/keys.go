// Package healthkeys names the Redis keys shared by the request counters, the
// audit error reporter and the health endpoints.
package healthkeys

const (
	ReqTotal   = "health:global:req_total"
	ReqErrors  = "health:global:req_errors"
	ReqLimited = "health:global:req_limited"
	ResTime    = "health:global:res_time_total"
	ResCount   = "health:global:res_count"
	StartTime  = "health:global:start_time"
	LastReq    = "health:global:last_request"
	ErrorLog   = "health:global:error_log"
)

// All lists every key cleared by a stats reset.
var All = []string{ReqTotal, ReqErrors, ReqLimited, ResTime, ResCount, StartTime, LastReq, ErrorLog}
