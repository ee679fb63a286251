package metrics

import (
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("token", "abc"),
		attribute.String("user_id", "456"),
		attribute.String("outcome", "ok"),
		attribute.String("category", "mail_combo"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "outcome" && attrs[1].Key != "outcome" {
		t.Fatalf("expected outcome to be retained")
	}
	if attrs[0].Key != "category" && attrs[1].Key != "category" {
		t.Fatalf("expected category to be retained")
	}
}
