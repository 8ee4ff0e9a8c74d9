package snapshot

import "context"

// Strategy fills buf, whose length is the announced payload size, with the
// frame held by the device.
type Strategy interface {
	Name() string
	Retrieve(ctx context.Context, link Link, buf []byte, obs Observer) (Stats, error)
}

// Stats counts link requests spent on a retrieval.
type Stats struct {
	Requests int
	Retries  int
}

func (s Stats) add(o Stats) Stats {
	return Stats{Requests: s.Requests + o.Requests, Retries: s.Retries + o.Retries}
}
