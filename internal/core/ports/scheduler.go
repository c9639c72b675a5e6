package ports

// SchedulerService runs one-shot tasks at a given unix time (seconds).
type SchedulerService interface {
	Start()
	Stop()
	AddNow(lifetime int64) int64
	AfterNow(expiry int64) bool
	ScheduleTaskOnce(at int64, task func()) error
}
