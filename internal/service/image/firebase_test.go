package image

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/storage"

	"github.com/janisto/engineer-profiles/internal/platform/firebase"
	"github.com/janisto/engineer-profiles/internal/testutil"
)

func TestFirebaseStoreEmulator(t *testing.T) {
	testutil.SkipIfAuthEmulatorUnavailable(t)
	testutil.SkipIfStorageEmulatorUnavailable(t)
	testutil.SetupEmulator(t)
	ctx := context.Background()

	clients, err := firebase.InitializeClients(ctx, firebase.Config{
		ProjectID:     testutil.ProjectID,
		StorageBucket: testutil.StorageBucket,
	})
	if err != nil {
		t.Fatalf("init firebase: %v", err)
	}
	bucket, err := clients.Storage.DefaultBucket()
	if err != nil {
		t.Fatalf("default bucket: %v", err)
	}
	store := NewFirebaseStore(bucket, testutil.StorageBucket, "")

	url, err := store.Upload(ctx, "profile-1", "image/gif", bytes.NewReader(gifData))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	name := objectName(DefaultPublicHost+"/"+testutil.StorageBucket, url)
	if name == "" {
		t.Fatalf("unexpected url %s", url)
	}
	attrs, err := bucket.Object(name).Attrs(ctx)
	if err != nil {
		t.Fatalf("attrs: %v", err)
	}
	if attrs.ContentType != "image/gif" {
		t.Fatalf("expected image/gif, got %s", attrs.ContentType)
	}

	if err := store.Delete(ctx, url); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := bucket.Object(name).Attrs(ctx); !errors.Is(err, storage.ErrObjectNotExist) {
		t.Fatalf("expected object gone, got %v", err)
	}
	if err := store.Delete(ctx, url); err != nil {
		t.Fatalf("deleting a missing object must be a no-op: %v", err)
	}
}
