package enums

// OutboxEventType names a domain event stored in the outbox table.
type OutboxEventType string

const (
	OutboxEventAttendanceMarked OutboxEventType = "attendance.marked"
	OutboxEventAttendanceAbsent OutboxEventType = "attendance.absent"
	OutboxEventSessionClosed    OutboxEventType = "session.closed"
)

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	OutboxAggregateSession OutboxAggregateType = "class_session"
	OutboxAggregateStudent OutboxAggregateType = "student"
)
