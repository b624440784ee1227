package kafkafeed

import (
	"context"
	"errors"
	"fmt"

	"github.com/hugolhafner/go-changefeed/checkpoint"
	"github.com/hugolhafner/go-changefeed/logger"
	"github.com/hugolhafner/go-changefeed/observer"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
)

var (
	_ checkpoint.Checkpointer = (*Checkpointer)(nil)
	_ checkpoint.Loader       = (*Checkpointer)(nil)
)

type CheckpointerConfig struct {
	BootstrapServers []string
	ClientID         string
	Logger           logger.Logger
}

func defaultCheckpointerConfig() CheckpointerConfig {
	return CheckpointerConfig{
		BootstrapServers: []string{"localhost:9092"},
		ClientID:         "changefeed",
		Logger:           logger.NewNoopLogger(),
	}
}

// Checkpointer records continuation positions as committed consumer group
// offsets. It never joins the group, so its commits carry no member
// generation; keep the group dedicated to checkpointing rather than shared
// with live consumers.
type Checkpointer struct {
	group  string
	client *kgo.Client
	logger logger.Logger
}

func NewCheckpointer(group string, opts ...CheckpointerOption) (*Checkpointer, error) {
	if group == "" {
		return nil, errors.New("group must not be empty")
	}

	cfg := defaultCheckpointerConfig()
	for _, opt := range opts {
		opt.applyCheckpointer(&cfg)
	}

	if len(cfg.BootstrapServers) == 0 {
		return nil, errors.New("bootstrap servers must not be empty")
	}

	l := cfg.Logger.With("component", "kafkafeed", "group", group)

	cl, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.BootstrapServers...),
		kgo.ClientID(cfg.ClientID),
		kgo.WithLogger(newKgoLogger(l)),
	)
	if err != nil {
		return nil, fmt.Errorf("create kgo client: %w", err)
	}

	return &Checkpointer{group: group, client: cl, logger: l}, nil
}

// Checkpoint commits the token as the group's offset for the partition. The
// token is the next offset to consume, matching Kafka's commit convention.
func (c *Checkpointer) Checkpoint(ctx context.Context, oc observer.Context, token string) error {
	partition, err := parsePartition(oc.Partition)
	if err != nil {
		return err
	}
	offset, err := parseContinuation(token)
	if err != nil {
		return err
	}

	req := buildCommitRequest(c.group, oc.Collection, partition, offset)

	resp, err := req.RequestWith(ctx, c.client)
	if err != nil {
		return fmt.Errorf("commit offset for %s/%d: %w", oc.Collection, partition, err)
	}
	if err := commitResponseError(resp, oc.Collection, partition); err != nil {
		return err
	}

	c.logger.Debug("Offset committed", "topic", oc.Collection, "partition", oc.Partition, "offset", offset)
	return nil
}

// Load returns the continuation recorded for the partition, or "" when the
// group has no committed offset for it.
func (c *Checkpointer) Load(ctx context.Context, collection, partition string) (string, error) {
	id, err := parsePartition(partition)
	if err != nil {
		return "", err
	}

	req := buildOffsetFetchRequest(c.group, collection, id)

	resp, err := req.RequestWith(ctx, c.client)
	if err != nil {
		return "", fmt.Errorf("fetch offset for %s/%d: %w", collection, id, err)
	}

	offset, err := committedOffset(resp, collection, id)
	if err != nil {
		return "", err
	}
	if offset < 0 {
		return "", nil
	}
	return formatContinuation(offset), nil
}

func (c *Checkpointer) Close() {
	c.client.Close()
}

func buildCommitRequest(group, topic string, partition int32, offset int64) *kmsg.OffsetCommitRequest {
	reqPartition := kmsg.NewOffsetCommitRequestTopicPartition()
	reqPartition.Partition = partition
	reqPartition.Offset = offset

	reqTopic := kmsg.NewOffsetCommitRequestTopic()
	reqTopic.Topic = topic
	reqTopic.Partitions = append(reqTopic.Partitions, reqPartition)

	req := kmsg.NewPtrOffsetCommitRequest()
	req.Group = group
	req.Topics = append(req.Topics, reqTopic)
	return req
}

func commitResponseError(resp *kmsg.OffsetCommitResponse, topic string, partition int32) error {
	for _, t := range resp.Topics {
		if t.Topic != topic {
			continue
		}
		for _, p := range t.Partitions {
			if p.Partition != partition {
				continue
			}
			if err := kerr.ErrorForCode(p.ErrorCode); err != nil {
				return fmt.Errorf("commit offset for %s/%d: %w", topic, partition, err)
			}
			return nil
		}
	}
	return fmt.Errorf("commit offset for %s/%d: partition missing from response", topic, partition)
}

// buildOffsetFetchRequest fills both the flat pre-v8 fields and the v8+
// groups list; the negotiated protocol version decides which get sent.
func buildOffsetFetchRequest(group, topic string, partition int32) *kmsg.OffsetFetchRequest {
	req := kmsg.NewPtrOffsetFetchRequest()

	req.Group = group
	reqTopic := kmsg.NewOffsetFetchRequestTopic()
	reqTopic.Topic = topic
	reqTopic.Partitions = append(reqTopic.Partitions, partition)
	req.Topics = append(req.Topics, reqTopic)

	reqGroupTopic := kmsg.NewOffsetFetchRequestGroupTopic()
	reqGroupTopic.Topic = topic
	reqGroupTopic.Partitions = append(reqGroupTopic.Partitions, partition)

	reqGroup := kmsg.NewOffsetFetchRequestGroup()
	reqGroup.Group = group
	reqGroup.Topics = append(reqGroup.Topics, reqGroupTopic)
	req.Groups = append(req.Groups, reqGroup)

	return req
}

// committedOffset digs the partition's offset out of whichever response
// layout the broker used. A negative offset means no commit exists.
func committedOffset(resp *kmsg.OffsetFetchResponse, topic string, partition int32) (int64, error) {
	if err := kerr.ErrorForCode(resp.ErrorCode); err != nil {
		return 0, fmt.Errorf("fetch offset for %s/%d: %w", topic, partition, err)
	}

	for _, g := range resp.Groups {
		if err := kerr.ErrorForCode(g.ErrorCode); err != nil {
			return 0, fmt.Errorf("fetch offset for %s/%d: %w", topic, partition, err)
		}
		for _, t := range g.Topics {
			if t.Topic != topic {
				continue
			}
			for _, p := range t.Partitions {
				if p.Partition != partition {
					continue
				}
				if err := kerr.ErrorForCode(p.ErrorCode); err != nil {
					return 0, fmt.Errorf("fetch offset for %s/%d: %w", topic, partition, err)
				}
				return p.Offset, nil
			}
		}
	}

	for _, t := range resp.Topics {
		if t.Topic != topic {
			continue
		}
		for _, p := range t.Partitions {
			if p.Partition != partition {
				continue
			}
			if err := kerr.ErrorForCode(p.ErrorCode); err != nil {
				return 0, fmt.Errorf("fetch offset for %s/%d: %w", topic, partition, err)
			}
			return p.Offset, nil
		}
	}

	return -1, nil
}
