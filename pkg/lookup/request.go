package lookup

import (
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
)

// Request is one LLM-proposed lookup call. On the wire it is a flat JSON
// object whose "api" member names the lookup and whose remaining members are
// the parameters, e.g. {"api": "search_pubmed", "query": "...", "num_results": 5}.
type Request struct {
	Name   string
	Params Params
}

func (r *Request) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return goerr.Wrap(err, "failed to parse lookup request")
	}

	name, _ := raw["api"].(string)
	delete(raw, "api")

	r.Name = name
	r.Params = Params(raw)
	return nil
}

func (r Request) MarshalJSON() ([]byte, error) {
	raw := make(map[string]any, len(r.Params)+1)
	for k, v := range r.Params {
		raw[k] = v
	}
	raw["api"] = r.Name
	return json.Marshal(raw)
}
