package s3

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/tendant/simple-features/pkg/blob"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		prefix, key, want string
	}{
		{"", "a/b.txt", "a/b.txt"},
		{"ns", "a/b.txt", "ns/a/b.txt"},
		{"ns", "/a/b.txt/", "ns/a/b.txt"},
		{"n1/n2", "x", "n1/n2/x"},
	}
	for _, tt := range tests {
		s := &Store{bucket: "b", prefix: tt.prefix}
		got, err := s.objectKey("get", tt.key)
		if err != nil {
			t.Fatalf("objectKey(%q, %q): %v", tt.prefix, tt.key, err)
		}
		if got != tt.want {
			t.Errorf("objectKey(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
		}
	}
}

func TestObjectKeyRejectsEscapeAndEmpty(t *testing.T) {
	s := &Store{bucket: "b", prefix: "ns"}

	if _, err := s.objectKey("get", "../x"); !errors.Is(err, blob.ErrKeyEscapesRoot) {
		t.Errorf("escape err = %v, want ErrKeyEscapesRoot", err)
	}
	if _, err := (&Store{bucket: "b"}).objectKey("get", "/"); err == nil {
		t.Error("expected error for empty key without prefix")
	}
}

func TestStripPrefix(t *testing.T) {
	tests := []struct {
		prefix, bucketKey, want string
	}{
		{"", "a/b.txt", "/a/b.txt"},
		{"ns", "ns/a/b.txt", "/a/b.txt"},
		{"n1/n2", "n1/n2/x", "/x"},
	}
	for _, tt := range tests {
		s := &Store{bucket: "b", prefix: tt.prefix}
		if got := s.stripPrefix(tt.bucketKey); got != tt.want {
			t.Errorf("stripPrefix(%q) with prefix %q = %q, want %q", tt.bucketKey, tt.prefix, got, tt.want)
		}
	}
}

func TestNamespaceConcatenatesPrefix(t *testing.T) {
	s := &Store{bucket: "b", prefix: "p1"}
	ns, err := s.Namespace(context.Background(), "p2/")
	if err != nil {
		t.Fatalf("Namespace: %v", err)
	}
	view := ns.(*Store)
	if view.prefix != "p1/p2" {
		t.Errorf("prefix = %q, want %q", view.prefix, "p1/p2")
	}
	if view.bucket != "b" {
		t.Errorf("bucket = %q, want %q", view.bucket, "b")
	}
}

func TestPutterCloseReportsPutterOp(t *testing.T) {
	// A client aimed at a closed local port makes the deferred upload fail
	// without touching the network.
	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String("http://127.0.0.1:1"),
		UsePathStyle: true,
		Credentials:  aws.AnonymousCredentials{},
		Retryer:      aws.NopRetryer{},
	})
	store := &Store{client: client, bucket: "b"}

	w, err := store.Putter(context.Background(), "x.txt")
	if err != nil {
		t.Fatalf("Putter: %v", err)
	}
	if _, err := w.Write([]byte("data")); err != nil {
		t.Fatal(err)
	}
	err = w.Close()
	if err == nil {
		t.Fatal("expected the deferred upload to fail")
	}
	var serr *blob.StorageError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want a StorageError", err)
	}
	if serr.Op != "putter" {
		t.Errorf("op = %q, want %q", serr.Op, "putter")
	}
	if serr.Key != "x.txt" {
		t.Errorf("key = %q, want %q", serr.Key, "x.txt")
	}
}

type fakeAPIError struct{ code string }

func (e *fakeAPIError) Error() string                 { return e.code }
func (e *fakeAPIError) ErrorCode() string             { return e.code }
func (e *fakeAPIError) ErrorMessage() string          { return e.code }
func (e *fakeAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

func TestIsNotFound(t *testing.T) {
	if !isNotFound(&types.NotFound{}) {
		t.Error("types.NotFound should report not-found")
	}
	if !isNotFound(&types.NoSuchKey{}) {
		t.Error("types.NoSuchKey should report not-found")
	}
	if !isNotFound(fmt.Errorf("wrapped: %w", &fakeAPIError{code: "NotFound"})) {
		t.Error("wrapped NotFound API error should report not-found")
	}
	if isNotFound(&fakeAPIError{code: "AccessDenied"}) {
		t.Error("AccessDenied should not report not-found")
	}
	if isNotFound(errors.New("plain")) {
		t.Error("plain error should not report not-found")
	}
}
