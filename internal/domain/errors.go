package domain

// Custom errors
var (
	ErrTaskNotFound       = NewDomainError("task not found")
	ErrTaskClosed         = NewDomainError("cannot assign a closed task")
	ErrInvalidTitle       = NewDomainError("title must be at least 3 characters")
	ErrInvalidStatus      = NewDomainError("invalid task status")
	ErrInvalidPriority    = NewDomainError("invalid task priority")
	ErrInvalidDeadline    = NewDomainError("deadline must be in the future")
	ErrUserNotFound       = NewDomainError("user not found")
	ErrEmailTaken         = NewDomainError("email already registered")
	ErrInvalidEmail       = NewDomainError("invalid email format")
	ErrWeakPassword       = NewDomainError("password must be at least 6 characters")
	ErrInvalidCredentials = NewDomainError("invalid email or password")
	ErrTooManyAttempts    = NewDomainError("too many failed login attempts, try again later")
	ErrInvalidRole        = NewDomainError("invalid role")
	ErrTeamNotFound       = NewDomainError("team not found")
	ErrInvalidTeamName    = NewDomainError("team name is required")
	ErrAlreadyMember      = NewDomainError("user is already a team member")
	ErrNotMember          = NewDomainError("user is not a team member")
	ErrCommentNotFound    = NewDomainError("comment not found")
	ErrEmptyComment       = NewDomainError("comment content is required")
	ErrForbidden          = NewDomainError("operation not allowed for this user")
	ErrInvalidAuditFilter = NewDomainError("invalid history filter")
)

// DomainError represents a domain-specific error
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(message string) *DomainError {
	return &DomainError{Message: message}
}
