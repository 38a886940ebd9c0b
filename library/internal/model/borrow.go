package model

import "time"

type RequestStatus string

const (
	StatusPending  RequestStatus = "PENDING"
	StatusApproved RequestStatus = "APPROVED"
	StatusRejected RequestStatus = "REJECTED"
)

func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s RequestStatus) Valid() bool {
	return s == StatusPending || s == StatusApproved || s == StatusRejected
}

type BorrowRequest struct {
	ID              string        `json:"id" db:"id"`
	UserID          string        `json:"userId" db:"user_id"`
	UserName        string        `json:"userName" db:"user_name"`
	UserEmail       string        `json:"userEmail" db:"user_email"`
	BookISBN        string        `json:"bookIsbn" db:"book_isbn"`
	BookTitle       string        `json:"bookTitle" db:"book_title"`
	Status          RequestStatus `json:"status" db:"status"`
	RequestDate     time.Time     `json:"requestDate" db:"requested_at"`
	RespondedByID   *string       `json:"respondedById,omitempty" db:"responded_by_id"`
	RespondedByName *string       `json:"respondedByName,omitempty" db:"responded_by_name"`
	ResponseDate    *time.Time    `json:"responseDate,omitempty" db:"responded_at"`
}

type SubmitRequest struct {
	// UserID defaults to the caller.
	UserID   string `json:"userId" validate:"omitempty,uuid"`
	BookISBN string `json:"bookIsbn" validate:"required,max=32"`
}

// Response records the staff decision on a pending request.
type Response struct {
	Status    RequestStatus
	StaffID   string
	StaffName string
	At        time.Time
}

// Apply moves r out of PENDING. Callers check the current status first.
func (resp Response) Apply(r *BorrowRequest) {
	staffID, staffName, at := resp.StaffID, resp.StaffName, resp.At
	r.Status = resp.Status
	r.RespondedByID = &staffID
	r.RespondedByName = &staffName
	r.ResponseDate = &at
}

type RequestFilter struct {
	UserID string
	Status RequestStatus
}

func (f RequestFilter) Match(r BorrowRequest) bool {
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	return true
}

type EventType string

const (
	EventSubmitted EventType = "borrow_request.submitted"
	EventApproved  EventType = "borrow_request.approved"
	EventRejected  EventType = "borrow_request.rejected"
)

type BorrowEvent struct {
	Type       EventType     `json:"type"`
	RequestID  string        `json:"requestId"`
	UserID     string        `json:"userId"`
	BookISBN   string        `json:"bookIsbn"`
	ActorID    string        `json:"actorId"`
	Status     RequestStatus `json:"status"`
	OccurredAt time.Time     `json:"occurredAt"`
}

func NewBorrowEvent(t EventType, r BorrowRequest, actorID string, at time.Time) BorrowEvent {
	return BorrowEvent{
		Type:       t,
		RequestID:  r.ID,
		UserID:     r.UserID,
		BookISBN:   r.BookISBN,
		ActorID:    actorID,
		Status:     r.Status,
		OccurredAt: at,
	}
}
