package rag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	indexedDocuments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_indexed_documents_total",
		Help: "Documents successfully indexed, per store.",
	}, []string{"store"})

	indexedChunks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_indexed_chunks_total",
		Help: "Chunks embedded and upserted, per store.",
	}, []string{"store"})

	indexErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atelier_index_errors_total",
		Help: "Documents that failed to index, per store.",
	}, []string{"store"})
)
