package docrequest

// ApprovedEvent fires after an approval is committed.
type ApprovedEvent struct {
	Result DocumentRequest
}

// RejectedEvent fires after a rejection is committed.
type RejectedEvent struct {
	Result DocumentRequest
}
