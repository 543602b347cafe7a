package kafkax

import (
	"strings"

	"github.com/segmentio/kafka-go"
)

// JobMeta is the metadata carried on every queued job message.
type JobMeta struct {
	JobID   string
	JobKind string
}

func ExtractJobMeta(msg kafka.Message) JobMeta {
	jobID := HeaderValue(msg.Headers, "job_id")
	jobKind := HeaderValue(msg.Headers, "job_kind")
	if jobID == "" {
		jobID = string(msg.Key)
	}
	if jobKind == "" {
		jobKind = msg.Topic
	}
	return JobMeta{JobID: jobID, JobKind: jobKind}
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
