package worklist

import (
	"context"
	"fmt"
)

// SlotSource synthesizes upload slots for procurement surveys. Every slot
// shares the survey's country.
type SlotSource struct {
	Count   int
	Country string
}

func (s SlotSource) Load(context.Context) ([]WorkItem, error) {
	if s.Count <= 0 {
		return nil, fmt.Errorf("%w: slot count %d", ErrDataUnavailable, s.Count)
	}
	items := make([]WorkItem, s.Count)
	for i := range items {
		items[i] = WorkItem{
			Index:           i,
			Reference:       PendingUpload,
			ExpectedCountry: s.Country,
		}
	}
	return items, nil
}
