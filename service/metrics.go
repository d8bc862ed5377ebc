package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/BerniceZTT/followup_ledger/models"
)

var (
	ledgerEntriesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_entries_appended_total",
			Help: "Total number of ledger entries committed",
		},
		[]string{"type"},
	)

	ledgerCommitRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_commits_rejected_total",
			Help: "Total number of ledger commits rejected by the store",
		},
		[]string{"code"},
	)

	overdueNotifications = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "followup_overdue_notifications_total",
			Help: "Total number of overdue follow-up notifications published",
		},
	)
)

func recordAppended(entries []*models.Interaction) {
	for _, e := range entries {
		ledgerEntriesAppended.WithLabelValues(string(e.Type)).Inc()
	}
}

func recordRejected(err error) string {
	code := "INTERNAL"
	var conflict *ConflictError
	var notFound *NotFoundError
	switch {
	case errors.As(err, &conflict):
		code = conflict.Code
	case errors.As(err, &notFound):
		code = "RESOURCE_NOT_FOUND"
	}
	ledgerCommitRejected.WithLabelValues(code).Inc()
	return code
}
