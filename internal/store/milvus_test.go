package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestMilvusOptions_ApplyDefaults(t *testing.T) {
	opts := MilvusOptions{Address: "localhost:19530", Dimensions: 384}
	opts.applyDefaults()

	if opts.Collection != "kotae_chunks" {
		t.Errorf("Collection = %q, want kotae_chunks", opts.Collection)
	}
	if opts.BatchSize != 100 {
		t.Errorf("BatchSize = %d, want 100", opts.BatchSize)
	}
	if opts.BatchTimeout != 30*time.Second {
		t.Errorf("BatchTimeout = %v, want 30s", opts.BatchTimeout)
	}
	if opts.BatchDelay != 100*time.Millisecond {
		t.Errorf("BatchDelay = %v, want 100ms", opts.BatchDelay)
	}
	if opts.MaxSourceScan != 10000 {
		t.Errorf("MaxSourceScan = %d, want 10000", opts.MaxSourceScan)
	}
	if opts.ContentMaxLength != 65535 {
		t.Errorf("ContentMaxLength = %d, want 65535", opts.ContentMaxLength)
	}

	// Explicit values survive.
	opts = MilvusOptions{Address: "localhost:19530", Dimensions: 384, BatchSize: 7, Collection: "mine"}
	opts.applyDefaults()
	if opts.BatchSize != 7 || opts.Collection != "mine" {
		t.Errorf("explicit values overridden: BatchSize=%d Collection=%q", opts.BatchSize, opts.Collection)
	}
}

func TestIsUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", errors.New("dial tcp 127.0.0.1:19530: connect: connection refused"), true},
		{"reset", errors.New("read: connection reset by peer"), true},
		{"grpc unavailable", errors.New("rpc error: code = Unavailable desc = transport is closing"), true},
		{"dns", errors.New("dial tcp: lookup milvus: no such host"), true},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("insert: %w", context.DeadlineExceeded), true},
		{"server rejection", errors.New("rpc error: code = InvalidArgument desc = bad field"), false},
		{"plain", errors.New("something else"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isUnavailable(tt.err); got != tt.want {
				t.Errorf("isUnavailable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsNotLoaded(t *testing.T) {
	if !isNotLoaded(errors.New("collection not loaded into memory")) {
		t.Error("expected not-loaded error to be recognized")
	}
	if isNotLoaded(errors.New("collection missing")) {
		t.Error("unrelated error misclassified as not loaded")
	}
	if isNotLoaded(nil) {
		t.Error("nil misclassified as not loaded")
	}
}

func TestNewMilvus_Validation(t *testing.T) {
	ctx := context.Background()

	if _, err := NewMilvus(ctx, MilvusOptions{Dimensions: 4}, nil); err == nil {
		t.Error("expected error for missing address")
	}
	if _, err := NewMilvus(ctx, MilvusOptions{Address: "localhost:19530"}, nil); err == nil {
		t.Error("expected error for missing dimensions")
	}
}

func TestPartialInsertError(t *testing.T) {
	cause := errors.New("flush: boom")
	err := &PartialInsertError{Inserted: 200, Err: cause}

	if !errors.Is(err, cause) {
		t.Error("PartialInsertError does not unwrap to its cause")
	}

	var partial *PartialInsertError
	wrapped := fmt.Errorf("ingest: %w", err)
	if !errors.As(wrapped, &partial) || partial.Inserted != 200 {
		t.Errorf("errors.As on wrapped error = %+v, want Inserted 200", partial)
	}
}
