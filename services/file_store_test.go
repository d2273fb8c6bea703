package services

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"edu-ai-assistant/internal/config"
)

// testMongoDatabase connects to the instance named by MONGO_TEST_URI, or
// skips the test when none is available.
func testMongoDatabase(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("mongo connect failed: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		t.Skipf("mongo ping failed: %v", err)
	}
	t.Cleanup(func() {
		client.Disconnect(context.Background())
	})
	return client.Database("edu_assistant_test")
}

func TestValidateChatID(t *testing.T) {
	tests := []struct {
		name    string
		chatID  string
		wantErr bool
	}{
		{"plain id", "chat42", false},
		{"uuid style", "550e8400-e29b-41d4-a716-446655440000", false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", 129), true},
		{"forward slash", "a/b", true},
		{"backslash", `a\b`, true},
		{"parent traversal", "..", true},
		{"embedded traversal", "a..b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateChatID(tt.chatID)
			if (err != nil) != tt.wantErr {
				t.Fatalf("validateChatID(%q) error = %v, wantErr %v", tt.chatID, err, tt.wantErr)
			}
		})
	}
}

func TestSaveOverwritesPreviousFile(t *testing.T) {
	db := testMongoDatabase(t)
	files := db.Collection("files")
	t.Cleanup(func() {
		files.Drop(context.Background())
	})

	cfg := &config.Config{FileStorageDir: t.TempDir()}
	store, err := NewFileStore(cfg, files)
	if err != nil {
		t.Fatalf("failed to create file store: %v", err)
	}

	ctx := context.Background()
	if _, err := store.Save(ctx, "chat1", "first.pdf", strings.NewReader("first upload")); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if _, err := store.Save(ctx, "chat1", "second.pdf", strings.NewReader("second upload")); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	// Last write wins: the binding and the bytes both belong to the second
	// upload, and there is still exactly one record for the chat id.
	file, err := store.Get(ctx, "chat1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if file.Filename != "second.pdf" {
		t.Errorf("bound filename = %q, want second.pdf", file.Filename)
	}

	data, err := os.ReadFile(file.Path)
	if err != nil {
		t.Fatalf("failed to read stored file: %v", err)
	}
	if string(data) != "second upload" {
		t.Errorf("stored bytes = %q, want %q", data, "second upload")
	}

	count, err := files.CountDocuments(ctx, bson.M{"chat_id": "chat1"})
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("file records for chat1 = %d, want 1", count)
	}
}
