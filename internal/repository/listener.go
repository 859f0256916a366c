package repository

import (
	"context"
	"sync/atomic"

	"github.com/golang/glog"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"studyzone/internal/models"
)

// Subscription delivers collection snapshots to one callback until stopped. Once Stop returns no new
// delivery starts; Stop may be called from inside the callback.
type Subscription struct {
	onChange func([]*models.Course)
	stopped  atomic.Bool
	cancel   context.CancelFunc
}

func NewSubscription(onChange func([]*models.Course), cancel context.CancelFunc) *Subscription {
	return &Subscription{onChange: onChange, cancel: cancel}
}

// Deliver passes courses to the callback unless the subscription was stopped.
func (s *Subscription) Deliver(courses []*models.Course) {
	if s.stopped.Load() {
		return
	}
	s.onChange(courses)
}

func (s *Subscription) Stop() {
	if s.stopped.Swap(true) {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Subscription) Stopped() bool {
	return s.stopped.Load()
}

// SubscribeCourses starts a snapshot listener on the courses collection. The first snapshot carries the
// current contents of the collection.
func (fr *FirebaseRepository) SubscribeCourses(ctx context.Context, onChange func([]*models.Course)) (func(), error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := NewSubscription(onChange, cancel)

	it := fr.firestoreClient.Collection(models.FirestoreCoursesCollection).Snapshots(ctx)
	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if listenerStopped(err) {
				return
			}
			if err != nil {
				if !sub.Stopped() {
					glog.Warningf("courses listener stopped: %v\n", err)
				}
				return
			}
			if snap == nil {
				continue
			}

			docs, err := snap.Documents.GetAll()
			if err != nil {
				glog.Warningf("error reading courses snapshot: %v\n", err)
				continue
			}
			courses, err := decodeCourses(docs)
			if err != nil {
				glog.Warningf("error decoding courses snapshot: %v\n", err)
				continue
			}
			sub.Deliver(courses)
		}
	}()

	return sub.Stop, nil
}

// listenerStopped reports whether err is the normal end of a snapshot listener. DeadlineExceeded or Canceled
// will be returned when ctx is cancelled.
func listenerStopped(err error) bool {
	if err == iterator.Done {
		return true
	}
	code := status.Code(err)
	return code == codes.DeadlineExceeded || code == codes.Canceled
}
