package observability

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	dto "github.com/prometheus/client_model/go"
)

// maxDatumsPerPut is the PutMetricData batch limit
const maxDatumsPerPut = 1000

// MetricDataPutter is the part of the CloudWatch client the exporter calls
type MetricDataPutter interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchExporter pushes a Collector's samples to CloudWatch. A Lambda
// function is frozen between invocations and never scraped, so its handlers
// call Flush before returning. A nil *CloudWatchExporter flushes nothing.
type CloudWatchExporter struct {
	client    MetricDataPutter
	namespace string
	collector *Collector

	mu   sync.Mutex
	sent map[string]float64
}

// NewCloudWatchExporter creates an exporter publishing collector under namespace
func NewCloudWatchExporter(client MetricDataPutter, namespace string, collector *Collector) *CloudWatchExporter {
	return &CloudWatchExporter{
		client:    client,
		namespace: namespace,
		collector: collector,
		sent:      make(map[string]float64),
	}
}

// sample is one datum and the cumulative value it advances its series to
type sample struct {
	key   string
	total float64
	datum types.MetricDatum
}

// Flush sends what changed since the last successful flush. Counters and
// histogram counts and sums go out as deltas, gauges as their current value.
func (e *CloudWatchExporter) Flush(ctx context.Context) error {
	if e == nil || e.collector == nil {
		return nil
	}

	families, err := e.collector.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	samples := e.collect(families, time.Now())
	for start := 0; start < len(samples); start += maxDatumsPerPut {
		batch := samples[start:min(start+maxDatumsPerPut, len(samples))]
		data := make([]types.MetricDatum, len(batch))
		for i, s := range batch {
			data[i] = s.datum
		}

		_, err := e.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(e.namespace),
			MetricData: data,
		})
		if err != nil {
			return fmt.Errorf("put metric data: %w", err)
		}
		for _, s := range batch {
			e.sent[s.key] = s.total
		}
	}
	return nil
}

func (e *CloudWatchExporter) collect(families []*dto.MetricFamily, now time.Time) []sample {
	var samples []sample
	for _, family := range families {
		name := family.GetName()
		for _, metric := range family.GetMetric() {
			dims := dimensions(metric.GetLabel())
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				samples = e.appendDelta(samples, name, dims, metric.GetCounter().GetValue(), types.StandardUnitCount, now)
			case dto.MetricType_GAUGE:
				samples = append(samples, sample{
					key:   seriesKey(name, dims),
					total: metric.GetGauge().GetValue(),
					datum: datum(name, dims, metric.GetGauge().GetValue(), types.StandardUnitNone, now),
				})
			case dto.MetricType_HISTOGRAM:
				histogram := metric.GetHistogram()
				samples = e.appendDelta(samples, name+"_count", dims, float64(histogram.GetSampleCount()), types.StandardUnitCount, now)
				samples = e.appendDelta(samples, name+"_sum", dims, histogram.GetSampleSum(), types.StandardUnitSeconds, now)
			}
		}
	}
	return samples
}

// appendDelta adds the increase of a cumulative series, skipping series that
// did not move
func (e *CloudWatchExporter) appendDelta(samples []sample, name string, dims []types.Dimension, total float64, unit types.StandardUnit, now time.Time) []sample {
	key := seriesKey(name, dims)
	delta := total - e.sent[key]
	if delta <= 0 {
		return samples
	}
	return append(samples, sample{key: key, total: total, datum: datum(name, dims, delta, unit, now)})
}

func datum(name string, dims []types.Dimension, value float64, unit types.StandardUnit, now time.Time) types.MetricDatum {
	return types.MetricDatum{
		MetricName: aws.String(name),
		Dimensions: dims,
		Value:      aws.Float64(value),
		Unit:       unit,
		Timestamp:  aws.Time(now),
	}
}

func dimensions(labels []*dto.LabelPair) []types.Dimension {
	dims := make([]types.Dimension, 0, len(labels))
	for _, label := range labels {
		dims = append(dims, types.Dimension{
			Name:  aws.String(label.GetName()),
			Value: aws.String(label.GetValue()),
		})
	}
	return dims
}

// seriesKey identifies a series; Gather returns labels sorted by name
func seriesKey(name string, dims []types.Dimension) string {
	var b strings.Builder
	b.WriteString(name)
	for _, d := range dims {
		b.WriteByte('|')
		b.WriteString(aws.ToString(d.Name))
		b.WriteByte('=')
		b.WriteString(aws.ToString(d.Value))
	}
	return b.String()
}
