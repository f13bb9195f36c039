package alerting

import (
	"context"
	"sort"
	"time"

	"github.com/signalwatch/trendalert-go/internal/datastore/repository"
)

// AnalyticsSummary aggregates alert activity over a time window.
type AnalyticsSummary struct {
	Since time.Time `json:"since"`
	Until time.Time `json:"until"`
	Total int       `json:"total"`

	ByType     map[string]int `json:"byType"`
	ByPriority map[string]int `json:"byPriority"`
	ByStatus   map[string]int `json:"byStatus"`

	AckRate       float64 `json:"ackRate"`
	AvgConfidence float64 `json:"avgConfidence"`

	TopSymbols []SymbolCount `json:"topSymbols"`
}

// SymbolCount is one entry of the most-alerted symbols list.
type SymbolCount struct {
	Symbol string `json:"symbol"`
	Count  int    `json:"count"`
}

// Analytics summarizes alert activity between since and until.
func (e *Engine) Analytics(ctx context.Context, since, until time.Time) (*AnalyticsSummary, error) {
	alerts, _, err := e.alertRepo.ListAlerts(ctx, repository.TrendAlertFilter{
		Since: since,
		Until: until,
	})
	if err != nil {
		return nil, err
	}

	summary := &AnalyticsSummary{
		Since:      since,
		Until:      until,
		Total:      len(alerts),
		ByType:     make(map[string]int),
		ByPriority: make(map[string]int),
		ByStatus:   make(map[string]int),
	}

	symbols := make(map[string]int)
	var acked int
	var confidenceSum float64

	for i := range alerts {
		a := &alerts[i]
		summary.ByType[a.Type]++
		summary.ByPriority[a.Priority]++
		summary.ByStatus[a.Status]++
		symbols[a.Symbol]++
		confidenceSum += a.Confidence
		if a.Interaction.Acknowledged {
			acked++
		}
	}

	if len(alerts) > 0 {
		summary.AckRate = float64(acked) / float64(len(alerts))
		summary.AvgConfidence = confidenceSum / float64(len(alerts))
	}

	for symbol, count := range symbols {
		summary.TopSymbols = append(summary.TopSymbols, SymbolCount{Symbol: symbol, Count: count})
	}
	sort.Slice(summary.TopSymbols, func(i, j int) bool {
		if summary.TopSymbols[i].Count != summary.TopSymbols[j].Count {
			return summary.TopSymbols[i].Count > summary.TopSymbols[j].Count
		}
		return summary.TopSymbols[i].Symbol < summary.TopSymbols[j].Symbol
	})
	if len(summary.TopSymbols) > 10 {
		summary.TopSymbols = summary.TopSymbols[:10]
	}

	return summary, nil
}
