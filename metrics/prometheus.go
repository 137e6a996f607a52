package metrics

import (
	"context"
	"net/http"

	"github.com/mirarav/convocatorias/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "convocatorias"

// Prometheus exports outcomes as Prometheus collectors on its own registry.
type Prometheus struct {
	registry *prometheus.Registry

	documents       *prometheus.CounterVec
	documentContent *prometheus.CounterVec
	chunks          prometheus.Counter
	chars           prometheus.Counter
	duration        prometheus.Histogram

	crawls         *prometheus.CounterVec
	crawlDocuments prometheus.Counter
	crawlPages     prometheus.Counter
}

// NewPrometheus creates the collectors and registers them, together with the
// Go runtime and process collectors, on a fresh registry.
func NewPrometheus() (*Prometheus, error) {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents processed, by result.",
		}, []string{"result"}),
		documentContent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "document_content_total",
			Help:      "Processed documents that yielded each kind of content.",
		}, []string{"kind"}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_stored_total",
			Help:      "Chunks stored with an embedding.",
		}),
		chars: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "characters_extracted_total",
			Help:      "Characters extracted from document pages.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "document_duration_seconds",
			Help:      "Wall time spent ingesting one document.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		crawls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawls_total",
			Help:      "Call pages crawled, by result.",
		}, []string{"result"}),
		crawlDocuments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawl_documents_total",
			Help:      "Documents ingested successfully during crawls.",
		}),
		crawlPages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "crawl_pdf_pages_total",
			Help:      "PDF pages in documents ingested during crawls.",
		}),
	}

	collectors := []prometheus.Collector{
		p.documents, p.documentContent, p.chunks, p.chars, p.duration,
		p.crawls, p.crawlDocuments, p.crawlPages,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	}
	for _, c := range collectors {
		if err := p.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Registry returns the registry the collectors live on.
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) RecordDocument(_ context.Context, _ core.ID, outcome core.DocumentOutcome) {
	p.documents.WithLabelValues(result(outcome.Success())).Inc()
	if outcome.HasText {
		p.documentContent.WithLabelValues("text").Inc()
	}
	if outcome.HasTables {
		p.documentContent.WithLabelValues("tables").Inc()
	}
	if outcome.HasMetadata {
		p.documentContent.WithLabelValues("metadata").Inc()
	}
	p.chunks.Add(float64(outcome.ChunkCount))
	p.chars.Add(float64(outcome.CharCount))
	p.duration.Observe(outcome.Elapsed.Seconds())
}

func (p *Prometheus) RecordCrawl(_ context.Context, _ string, outcome core.CrawlOutcome) {
	p.crawls.WithLabelValues(result(outcome.Success)).Inc()
	p.crawlDocuments.Add(float64(outcome.DocumentCount))
	p.crawlPages.Add(float64(outcome.PageCount))
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
