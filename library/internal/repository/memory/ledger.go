package memory

import (
	"context"
	"sort"

	"github.com/Astemirdum/libsys/library/internal/errs"
	"github.com/Astemirdum/libsys/library/internal/model"
)

// CreateRequest serialises submissions per (user, book) so at most one PENDING request exists for the pair.
func (r *Repository) CreateRequest(_ context.Context, req model.BorrowRequest) (model.BorrowRequest, error) {
	unlock := r.locks.Lock(pairKey(req.UserID, req.BookISBN))
	defer unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.requests {
		if existing.UserID == req.UserID && existing.BookISBN == req.BookISBN && existing.Status == model.StatusPending {
			return model.BorrowRequest{}, errs.ErrPendingExists
		}
	}
	if _, ok := r.requests[req.ID]; ok {
		return model.BorrowRequest{}, errs.Conflict("request %q already exists", req.ID)
	}
	r.requests[req.ID] = req
	return req, nil
}

func (r *Repository) GetRequest(_ context.Context, id string) (model.BorrowRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return model.BorrowRequest{}, errs.NotFound("request %q not found", id)
	}
	return req, nil
}

func (r *Repository) ListRequests(_ context.Context, filter model.RequestFilter) ([]model.BorrowRequest, error) {
	r.mu.RLock()
	reqs := make([]model.BorrowRequest, 0)
	for _, req := range r.requests {
		if filter.Match(req) {
			reqs = append(reqs, req)
		}
	}
	r.mu.RUnlock()

	sort.Slice(reqs, func(i, j int) bool {
		if !reqs[i].RequestDate.Equal(reqs[j].RequestDate) {
			return reqs[i].RequestDate.After(reqs[j].RequestDate)
		}
		return reqs[i].ID > reqs[j].ID
	})
	return reqs, nil
}

// Approve holds the request lock across the status check, the catalog decrement and the
// transition. Lock order is request, then book.
func (r *Repository) Approve(_ context.Context, id string, resp model.Response) (model.BorrowRequest, error) {
	unlock := r.locks.Lock(requestKey(id))
	defer unlock()

	req, err := r.pendingLocked(id)
	if err != nil {
		return model.BorrowRequest{}, err
	}

	unlockBook := r.locks.Lock(bookKey(req.BookISBN))
	defer unlockBook()
	if _, err := r.mutateBookLocked(req.BookISBN, takeCopy); err != nil {
		return model.BorrowRequest{}, err
	}

	resp.Apply(&req)
	r.mu.Lock()
	r.requests[id] = req
	r.mu.Unlock()
	return req, nil
}

func (r *Repository) Reject(_ context.Context, id string, resp model.Response) (model.BorrowRequest, error) {
	unlock := r.locks.Lock(requestKey(id))
	defer unlock()

	req, err := r.pendingLocked(id)
	if err != nil {
		return model.BorrowRequest{}, err
	}
	resp.Apply(&req)
	r.mu.Lock()
	r.requests[id] = req
	r.mu.Unlock()
	return req, nil
}

func (r *Repository) pendingLocked(id string) (model.BorrowRequest, error) {
	r.mu.RLock()
	req, ok := r.requests[id]
	r.mu.RUnlock()
	if !ok {
		return model.BorrowRequest{}, errs.NotFound("request %q not found", id)
	}
	if req.Status != model.StatusPending {
		return model.BorrowRequest{}, errs.ErrAlreadyProcessed
	}
	return req, nil
}
