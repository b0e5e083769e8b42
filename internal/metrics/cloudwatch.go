// Package metrics publishes request and catalog telemetry to CloudWatch.
package metrics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"moviesvc/internal/config"
	"moviesvc/internal/external"
)

// Metric names and dimensions.
const (
	MetricRequestCount   = "RequestCount"
	MetricRequestLatency = "RequestLatency"
	MetricLookupCount    = "CatalogLookupCount"
	MetricLookupLatency  = "CatalogLookupLatency"

	DimMethod   = "Method"
	DimEndpoint = "Endpoint"
	DimStatus   = "Status"
	DimOutcome  = "Outcome"
)

const (
	// maxBatch is the PutMetricData per-call datum limit.
	maxBatch             = 1000
	defaultQueueSize     = 4096
	defaultFlushInterval = 10 * time.Second
	drainTimeout         = 5 * time.Second
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// NewCloudWatchClient builds a client from the default AWS credential chain.
// EndpointURL overrides the service endpoint (LocalStack).
func NewCloudWatchClient(ctx context.Context, cfg config.MetricsConfig) (*cloudwatch.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, err
	}
	return cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
	}), nil
}

// CloudWatchCollector buffers datums on a bounded queue and publishes them
// in batches from a single goroutine started with Run. Record calls never
// block; datums are dropped when the queue is full.
type CloudWatchCollector struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
	interval  time.Duration
	now       func() time.Time

	queue    chan cwtypes.MetricDatum
	stop     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
	dropped  atomic.Int64
}

// Option customizes a CloudWatchCollector.
type Option func(*CloudWatchCollector)

// WithFlushInterval sets how often queued datums are published.
func WithFlushInterval(d time.Duration) Option {
	return func(c *CloudWatchCollector) { c.interval = d }
}

// WithQueueSize sets the queue capacity.
func WithQueueSize(n int) Option {
	return func(c *CloudWatchCollector) { c.queue = make(chan cwtypes.MetricDatum, n) }
}

// NewCloudWatchCollector creates a collector publishing to namespace.
func NewCloudWatchCollector(client CloudWatchClient, namespace string, logger *slog.Logger, opts ...Option) *CloudWatchCollector {
	if logger == nil {
		logger = slog.Default()
	}
	c := &CloudWatchCollector{
		client:    client,
		namespace: namespace,
		logger:    logger,
		interval:  defaultFlushInterval,
		now:       time.Now,
		queue:     make(chan cwtypes.MetricDatum, defaultQueueSize),
		stop:      make(chan struct{}),
		finished:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecordRequest implements core.MetricsCollector.
func (c *CloudWatchCollector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	dims := []cwtypes.Dimension{
		dimension(DimMethod, method),
		dimension(DimEndpoint, endpoint),
		dimension(DimStatus, status),
	}
	c.enqueue(c.datum(MetricRequestCount, 1, cwtypes.StandardUnitCount, dims))
	c.enqueue(c.datum(MetricRequestLatency, milliseconds(duration), cwtypes.StandardUnitMilliseconds, dims))
}

// RecordLookup implements movies.LookupRecorder.
func (c *CloudWatchCollector) RecordLookup(outcome external.Outcome, duration time.Duration) {
	dims := []cwtypes.Dimension{dimension(DimOutcome, outcome.String())}
	c.enqueue(c.datum(MetricLookupCount, 1, cwtypes.StandardUnitCount, dims))
	c.enqueue(c.datum(MetricLookupLatency, milliseconds(duration), cwtypes.StandardUnitMilliseconds, dims))
}

// Dropped reports how many datums were discarded because the queue was full.
func (c *CloudWatchCollector) Dropped() int64 {
	return c.dropped.Load()
}

// Run publishes queued datums until ctx is cancelled or Close is called,
// then drains the queue. It must be called at most once.
func (c *CloudWatchCollector) Run(ctx context.Context) error {
	c.running.Store(true)
	defer close(c.finished)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	batch := make([]cwtypes.MetricDatum, 0, maxBatch)
	for {
		select {
		case d := <-c.queue:
			batch = append(batch, d)
			if len(batch) == maxBatch {
				c.publish(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			c.publish(ctx, batch)
			batch = batch[:0]
		case <-ctx.Done():
			c.drain(batch)
			return nil
		case <-c.stop:
			c.drain(batch)
			return nil
		}
	}
}

// Close stops Run and waits for the final drain. Without a running Run it
// drains synchronously.
func (c *CloudWatchCollector) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stop) })
	if !c.running.Load() {
		c.drain(nil)
		return nil
	}
	select {
	case <-c.finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CloudWatchCollector) enqueue(d cwtypes.MetricDatum) {
	select {
	case c.queue <- d:
	default:
		if c.dropped.Add(1) == 1 {
			c.logger.Warn("metrics queue full, dropping datums", "namespace", c.namespace)
		}
	}
}

func (c *CloudWatchCollector) drain(batch []cwtypes.MetricDatum) {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()

	for {
		select {
		case d := <-c.queue:
			batch = append(batch, d)
			if len(batch) == maxBatch {
				c.publish(ctx, batch)
				batch = batch[:0]
			}
		default:
			c.publish(ctx, batch)
			return
		}
	}
}

func (c *CloudWatchCollector) publish(ctx context.Context, batch []cwtypes.MetricDatum) {
	if len(batch) == 0 {
		return
	}
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(c.namespace),
		MetricData: append([]cwtypes.MetricDatum(nil), batch...),
	}
	if _, err := c.client.PutMetricData(ctx, input); err != nil {
		c.logger.Error("failed to publish metrics",
			"error", err.Error(),
			"datums", len(batch),
		)
	}
}

func (c *CloudWatchCollector) datum(name string, value float64, unit cwtypes.StandardUnit, dims []cwtypes.Dimension) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(c.now()),
		Dimensions: dims,
	}
}

func dimension(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
