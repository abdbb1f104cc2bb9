package order

type Status string

const (
	StatusPlaced    Status = "placed"
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPlaced, StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
