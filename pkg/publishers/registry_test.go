package publishers

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestDefaultRegistryTypes(t *testing.T) {
	got := DefaultRegistry().Types()
	want := []string{TypeHTTP, TypePubSub, TypeSNS, TypeSQS}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Types() = %v, want %v", got, want)
	}
}

func TestRegistryIgnoresBlankRegistrations(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register("  ", func(context.Context, PublisherConfig, Logger) (Publisher, error) { return nil, nil })
	reg.Register("http", nil)
	if got := reg.Types(); len(got) != 0 {
		t.Fatalf("expected no types, got %v", got)
	}
}

func TestRegistryMatchesTypeCaseInsensitively(t *testing.T) {
	reg := NewRegistry(map[string]Builder{
		" Webhook ": func(_ context.Context, cfg PublisherConfig, _ Logger) (Publisher, error) {
			return &stubPublisher{id: cfg.ID, typ: "webhook"}, nil
		},
	})
	pub, err := reg.PublisherFor(context.Background(), PublisherConfig{ID: "w", Type: "WEBHOOK"}, nil)
	if err != nil || pub.ID() != "w" {
		t.Fatalf("PublisherFor = %v, %v", pub, err)
	}
}

func TestRegistryUnknownTypeListsKnownTypes(t *testing.T) {
	_, err := DefaultRegistry().PublisherFor(context.Background(), PublisherConfig{ID: "x", Type: "kafka"}, nil)
	if err == nil || !strings.Contains(err.Error(), "known: http, pubsub, sns, sqs") {
		t.Fatalf("expected known types in error, got %v", err)
	}
	if _, err := DefaultRegistry().PublisherFor(context.Background(), PublisherConfig{ID: "x"}, nil); err == nil {
		t.Fatalf("expected error for missing type")
	}
}

func TestBuildAllClosesBuiltPublishersOnFailure(t *testing.T) {
	built := &stubPublisher{id: "first", typ: "closing"}
	reg := NewRegistry(map[string]Builder{
		"closing": func(context.Context, PublisherConfig, Logger) (Publisher, error) {
			return closingPublisher{built}, nil
		},
		"broken": func(context.Context, PublisherConfig, Logger) (Publisher, error) {
			return nil, errors.New("no credentials")
		},
	})

	_, err := BuildAll(context.Background(), reg, []PublisherConfig{
		{ID: "first", Type: "closing"},
		{ID: "second", Type: "broken"},
	}, nil)
	if err == nil || !strings.Contains(err.Error(), `"second"`) {
		t.Fatalf("expected build error naming second publisher, got %v", err)
	}
	if !built.closed {
		t.Fatalf("already built publisher was not closed")
	}
}
