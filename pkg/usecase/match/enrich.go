package match

import (
	"context"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/medmatch/medmatch/pkg/lookup"
	"github.com/medmatch/medmatch/pkg/utils/logging"
)

// enrich executes every proposed lookup independently on a bounded worker
// pool. Individual failures become error-tagged entries; nothing here can
// abort the pipeline.
func (p *Pipeline) enrich(ctx context.Context, s State) State {
	logger := logging.From(ctx)

	requests := dedupeRequests(s.Proposals)
	results := make(map[string]lookup.Result, len(requests))

	if len(requests) == 0 {
		s.LookupResults = results
		return s.advance(StageEnriched)
	}

	var mu sync.Mutex
	var wg sync.WaitGroup

	pool, poolErr := ants.NewPool(p.lookupWorkers)
	if poolErr == nil {
		defer pool.Release()
	}

	for _, req := range requests {
		req := req
		p.fillDefaults(req, s.Query.FreeText)

		run := func() {
			defer wg.Done()
			res := p.registry.Execute(ctx, req)

			mu.Lock()
			results[req.Name] = res
			mu.Unlock()

			if res.IsError() {
				logger.Warn("lookup failed", "name", req.Name, "reason", res.ErrorMessage())
			} else {
				logger.Info("lookup executed", "name", req.Name)
			}
		}

		wg.Add(1)
		if poolErr != nil || pool.Submit(run) != nil {
			run()
		}
	}
	wg.Wait()

	s.LookupResults = results
	return s.advance(StageEnriched)
}

// dedupeRequests keeps the last occurrence per lookup name so that duplicate
// proposals resolve last-write-wins even under concurrent execution
func dedupeRequests(proposals []*lookup.Request) []*lookup.Request {
	byName := make(map[string]*lookup.Request, len(proposals))
	var order []string
	for _, req := range proposals {
		if req == nil {
			continue
		}
		if _, seen := byName[req.Name]; !seen {
			order = append(order, req.Name)
		}
		byName[req.Name] = req
	}

	requests := make([]*lookup.Request, 0, len(order))
	for _, name := range order {
		requests = append(requests, byName[name])
	}
	return requests
}

// fillDefaults backfills missing text parameters with the query free text,
// so an under-specified proposal still searches something meaningful
func (p *Pipeline) fillDefaults(req *lookup.Request, freeText string) {
	if req.Params == nil {
		req.Params = lookup.Params{}
	}

	switch req.Name {
	case "search_pubmed":
		if req.Params.String("query", "") == "" {
			req.Params["query"] = freeText
		}
	case "search_mesh":
		if req.Params.String("term", "") == "" {
			req.Params["term"] = freeText
		}
	}
}
