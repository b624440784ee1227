package kafkafeed

import (
	"fmt"
	"strconv"
)

func formatContinuation(offset int64) string {
	return strconv.FormatInt(offset, 10)
}

func parseContinuation(token string) (int64, error) {
	offset, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse continuation %q: %w", token, err)
	}
	if offset < 0 {
		return 0, fmt.Errorf("parse continuation %q: offset must not be negative", token)
	}
	return offset, nil
}

func parsePartition(partition string) (int32, error) {
	id, err := strconv.ParseInt(partition, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse partition %q: %w", partition, err)
	}
	if id < 0 {
		return 0, fmt.Errorf("parse partition %q: id must not be negative", partition)
	}
	return int32(id), nil
}
