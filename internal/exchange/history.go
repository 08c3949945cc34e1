package exchange

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/signalsfoundry/switchboard-simulator/model"
)

// History is a bounded store of recently resolved calls, kept for the
// end-of-shift report and the gateway's history endpoint. Old entries are
// evicted least-recently-added first.
type History struct {
	cache *lru.Cache[string, model.CallRecord]
}

// NewHistory creates a history retaining up to capacity records.
func NewHistory(capacity int) (*History, error) {
	cache, err := lru.New[string, model.CallRecord](capacity)
	if err != nil {
		return nil, err
	}
	return &History{cache: cache}, nil
}

// Add records a resolved call.
func (h *History) Add(record model.CallRecord) {
	h.cache.Add(record.ID, record)
}

// Get looks up a record by call ID.
func (h *History) Get(id string) (model.CallRecord, bool) {
	return h.cache.Get(id)
}

// Recent returns the retained records, oldest first.
func (h *History) Recent() []model.CallRecord {
	keys := h.cache.Keys()
	out := make([]model.CallRecord, 0, len(keys))
	for _, k := range keys {
		if rec, ok := h.cache.Peek(k); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Len reports how many records are retained.
func (h *History) Len() int { return h.cache.Len() }
