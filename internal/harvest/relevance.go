package harvest

import (
	"context"
)

const (
	report_relevant_cards = "relevant-cards"
)

func (o *Orchestrator) updateRelevance(ctx context.Context, _ struct{}) error {
	relevant, err := o.store.UpdateRelevance(ctx, o.time.Now())
	if err != nil {
		return err
	}
	o.tel.ReportCount(report_relevant_cards, int64(relevant))
	return nil
}
