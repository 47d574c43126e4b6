package db

import (
	"context"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/telana99/vehicle-record-ledger/internal/models"
)

func TestMemoryCommitLog_AppendLoad(t *testing.T) {
	ctx := context.Background()
	commitLog := NewMemoryCommitLog()

	record := &models.ServiceRecord{
		Timestamp:     1700000000,
		VehicleID:     "ABC123",
		ServiceType:   "Oil Change",
		Mileage:       50000,
		ServiceCenter: "quick-fix-auto",
	}
	entries := []Entry{
		{Seq: 1, Op: OpAddCenter, Center: "quick-fix-auto", Name: "Quick Fix Auto", At: time.Unix(1700000000, 0)},
		{Seq: 2, Op: OpAddRecord, Center: "quick-fix-auto", Record: record, At: time.Unix(1700000001, 0)},
	}
	for _, e := range entries {
		if err := commitLog.Append(ctx, e); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	loaded, err := commitLog.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(loaded))
	}
	if loaded[0].Op != OpAddCenter || loaded[1].Op != OpAddRecord {
		t.Errorf("entries out of order: %v", loaded)
	}
	if loaded[1].Record == nil || loaded[1].Record.VehicleID != "ABC123" {
		t.Errorf("record not preserved: %+v", loaded[1].Record)
	}
}

func TestMemoryCommitLog_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	commitLog := NewMemoryCommitLog()
	if err := commitLog.Append(ctx, Entry{Seq: 1, Op: OpAddCenter, Center: "a", Name: "A"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	loaded, _ := commitLog.Load(ctx)
	loaded[0].Name = "mutated"

	again, _ := commitLog.Load(ctx)
	if again[0].Name != "A" {
		t.Errorf("Load must return a copy, stored entry was mutated to %q", again[0].Name)
	}
}

func TestMemoryCredentialCollection(t *testing.T) {
	ctx := context.Background()
	creds := NewMemoryCredentialCollection()

	if _, err := creds.FindCredentialByPrincipal(ctx, "nobody"); err == nil {
		t.Error("expected error for unknown principal")
	}

	cred := models.Credential{Principal: "quick-fix-auto", SecretHash: "hash"}
	if err := creds.InsertCredential(ctx, cred); err != nil {
		t.Fatalf("InsertCredential failed: %v", err)
	}

	found, err := creds.FindCredentialByPrincipal(ctx, "quick-fix-auto")
	if err != nil {
		t.Fatalf("FindCredentialByPrincipal failed: %v", err)
	}
	if found.SecretHash != "hash" {
		t.Errorf("unexpected credential: %+v", found)
	}
}

func TestMongoCommitLog_NilCollection(t *testing.T) {
	commitLog := &MongoCommitLog{Collection: nil}
	if err := commitLog.Append(context.Background(), Entry{}); err == nil {
		t.Error("expected error when collection is nil")
	}
	if _, err := commitLog.Load(context.Background()); err == nil {
		t.Error("expected error when collection is nil")
	}
}

func TestMongoCredentialCollection_NilCollection(t *testing.T) {
	creds := &MongoCredentialCollection{Collection: nil}
	if err := creds.InsertCredential(context.Background(), models.Credential{}); err == nil {
		t.Error("expected error when collection is nil")
	}
	if _, err := creds.FindCredentialByPrincipal(context.Background(), "p"); err == nil {
		t.Error("expected error when collection is nil")
	}
}

// Integration test (requires running MongoDB)
func TestMongoCommitLog_Integration(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set, skipping integration test")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
		return
	}
	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "vehicleledger_test"
	}
	commitLog := &MongoCommitLog{Collection: client.Database(dbName).Collection("commit_log")}
	err = commitLog.Append(context.Background(), Entry{Seq: 1, Op: OpAddCenter, Center: "it-center", Name: "IT", At: time.Now()})
	if err != nil {
		t.Errorf("expected append to succeed, got error: %v", err)
	}
}
