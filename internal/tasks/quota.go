package tasks

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ayush/task-manager-api/internal/apperr"
)

// Counter is the part of the task store the quota needs.
type Counter interface {
	CountTasks(ctx context.Context, userID primitive.ObjectID) (int64, error)
	CountTasksSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (int64, error)
}

// Quota caps how many tasks a user may own in total and create per
// calendar day. Counts are read fresh on every check; a concurrent create
// for the same user can overshoot by the number of racing requests.
type Quota struct {
	Total int
	Daily int
	// Location decides where midnight falls for the daily window.
	Location *time.Location
	Now      func() time.Time
}

func DefaultQuota() Quota {
	return Quota{Total: 500, Daily: 10, Location: time.Local, Now: time.Now}
}

// StartOfDay returns midnight of the current day in q.Location.
func (q Quota) StartOfDay() time.Time {
	loc := q.Location
	if loc == nil {
		loc = time.Local
	}
	now := time.Now
	if q.Now != nil {
		now = q.Now
	}
	y, m, d := now().In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Check returns Forbidden once the total cap is reached, otherwise
// TooManyRequests once today's cap is reached.
func (q Quota) Check(ctx context.Context, c Counter, userID primitive.ObjectID) error {
	total, err := c.CountTasks(ctx, userID)
	if err != nil {
		return apperr.Wrap(err, "count tasks")
	}
	if total >= int64(q.Total) {
		return apperr.Forbidden(fmt.Sprintf("Task limit reached (%d total)", q.Total))
	}

	today, err := c.CountTasksSince(ctx, userID, q.StartOfDay())
	if err != nil {
		return apperr.Wrap(err, "count tasks today")
	}
	if today >= int64(q.Daily) {
		return apperr.TooManyRequests(fmt.Sprintf("Daily task limit reached (%d per day)", q.Daily))
	}
	return nil
}
