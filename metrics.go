package negentropy

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nostrsync/negentropy/metrics"
)

const (
	// subsystem shared by all metrics exposed by this package.
	subsystem = "reconciler"
)

var (
	messagesProcessed = metrics.NewCounter(
		"messages_processed",
		subsystem,
		"total reconciliation messages processed",
		[]string{}).WithLabelValues()

	rangesProcessed = metrics.NewCounter(
		"ranges_processed",
		subsystem,
		"total ranges processed across all messages",
		[]string{"mode"})

	rangesSplit = metrics.NewCounter(
		"ranges_split",
		subsystem,
		"total mismatching ranges bisected into fingerprinted halves",
		[]string{}).WithLabelValues()

	diffIDs = metrics.NewCounter(
		"diff_ids",
		subsystem,
		"total ids accumulated into the session diff",
		[]string{"side"})

	haveIDs = diffIDs.WithLabelValues("have")
	needIDs = diffIDs.WithLabelValues("need")

	messageSize = metrics.NewHistogramWithBuckets(
		"message_size_bytes",
		subsystem,
		"encoded size of produced reconciliation messages",
		[]string{},
		prometheus.ExponentialBuckets(16, 4, 10),
	).WithLabelValues()
)
