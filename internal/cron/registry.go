package cron

import (
	"context"
	"fmt"
)

// Job is one unit of maintenance work run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in registration order. Names are unique.
type Registry struct {
	order []Job
	names map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{names: map[string]struct{}{}}
}

// Add registers jobs, skipping nils. It fails on a repeated name and leaves
// the jobs added before the duplicate in place.
func (r *Registry) Add(jobs ...Job) error {
	for _, job := range jobs {
		if job == nil {
			continue
		}
		if _, dup := r.names[job.Name()]; dup {
			return fmt.Errorf("cron job %q registered twice", job.Name())
		}
		r.names[job.Name()] = struct{}{}
		r.order = append(r.order, job)
	}
	return nil
}

func (r *Registry) Len() int { return len(r.order) }

func (r *Registry) each(fn func(Job)) {
	for _, job := range r.order {
		fn(job)
	}
}
