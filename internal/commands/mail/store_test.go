package mail

import (
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "mail.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_AddAndGetMail(t *testing.T) {
	s := testStore(t)

	uid, err := s.AddMail("!11111111", "BASE", "!22222222", "hello", "first message")
	if err != nil {
		t.Fatalf("Failed to add mail: %v", err)
	}
	if uid == "" {
		t.Fatal("Expected a correlation id")
	}
	if _, err := s.AddMail("!11111111", "BASE", "!22222222", "again", "second message"); err != nil {
		t.Fatalf("Failed to add mail: %v", err)
	}

	messages, err := s.GetMail("!22222222")
	if err != nil {
		t.Fatalf("Failed to list mail: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	if messages[0].Subject != "hello" || messages[1].Subject != "again" {
		t.Errorf("Expected insertion order, got %v", messages)
	}
	if messages[0].SenderShortName != "BASE" {
		t.Errorf("Expected sender short name 'BASE', got '%s'", messages[0].SenderShortName)
	}

	// Another mailbox sees nothing.
	other, err := s.GetMail("!33333333")
	if err != nil {
		t.Fatalf("Failed to list mail: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Expected empty mailbox, got %d messages", len(other))
	}
}

func TestStore_GetMailContent_RecipientScoped(t *testing.T) {
	s := testStore(t)

	if _, err := s.AddMail("!11111111", "BASE", "!22222222", "hello", "the body"); err != nil {
		t.Fatalf("Failed to add mail: %v", err)
	}
	messages, _ := s.GetMail("!22222222")

	content, err := s.GetMailContent(messages[0].ID, "!22222222")
	if err != nil {
		t.Fatalf("Failed to read mail: %v", err)
	}
	if content == nil || content.Content != "the body" {
		t.Fatalf("Expected mail content, got %v", content)
	}

	// The same id under a different recipient reads as absent.
	stolen, err := s.GetMailContent(messages[0].ID, "!33333333")
	if err != nil {
		t.Fatalf("Expected no error for foreign read, got: %v", err)
	}
	if stolen != nil {
		t.Error("Expected foreign mailbox read to yield nothing")
	}
}

func TestStore_DeleteMail_RecipientMismatch(t *testing.T) {
	s := testStore(t)

	uid, err := s.AddMail("!11111111", "BASE", "!22222222", "hello", "body")
	if err != nil {
		t.Fatalf("Failed to add mail: %v", err)
	}

	// A forged recipient must not delete anything.
	if err := s.DeleteMail(uid, "!33333333"); err != nil {
		t.Fatalf("Expected mismatch to be silent, got: %v", err)
	}
	messages, _ := s.GetMail("!22222222")
	if len(messages) != 1 {
		t.Fatalf("Expected mail to survive forged delete, got %d", len(messages))
	}

	if err := s.DeleteMail(uid, "!22222222"); err != nil {
		t.Fatalf("Failed to delete mail: %v", err)
	}
	messages, _ = s.GetMail("!22222222")
	if len(messages) != 0 {
		t.Errorf("Expected mailbox empty after delete, got %d", len(messages))
	}

	// Deleting an unknown id is a no-op.
	if err := s.DeleteMail("no-such-id", "!22222222"); err != nil {
		t.Errorf("Expected unknown id delete to be silent, got: %v", err)
	}
}

func TestStore_Notifications(t *testing.T) {
	s := testStore(t)

	if _, err := s.AddMail("!11111111", "BASE", "!22222222", "a", "one"); err != nil {
		t.Fatalf("Failed to add mail: %v", err)
	}
	if _, err := s.AddMail("!11111111", "BASE", "!22222222", "b", "two"); err != nil {
		t.Fatalf("Failed to add mail: %v", err)
	}
	if _, err := s.AddMail("!11111111", "BASE", "!33333333", "c", "three"); err != nil {
		t.Fatalf("Failed to add mail: %v", err)
	}

	pending, err := s.PendingNotifications()
	if err != nil {
		t.Fatalf("Failed to query notifications: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected one notification per recipient, got %d", len(pending))
	}

	var maxID int64
	for _, n := range pending {
		if n.Recipient == "!22222222" {
			maxID = n.MailID
		}
	}
	if err := s.ClearNotify("!22222222", maxID); err != nil {
		t.Fatalf("Failed to clear notify: %v", err)
	}

	pending, _ = s.PendingNotifications()
	if len(pending) != 1 || pending[0].Recipient != "!33333333" {
		t.Errorf("Expected only the other recipient left pending, got %v", pending)
	}

	// Clearing again changes nothing.
	if err := s.ClearNotify("!22222222", maxID); err != nil {
		t.Errorf("Expected idempotent clear, got: %v", err)
	}
	pending, _ = s.PendingNotifications()
	if len(pending) != 1 {
		t.Errorf("Expected pending set unchanged, got %v", pending)
	}
}

func TestStore_Aliases(t *testing.T) {
	s := testStore(t)

	if err := s.AddAlias("!11111111", "!22222222"); err != nil {
		t.Fatalf("Failed to add alias: %v", err)
	}
	if err := s.AddAlias("!11111111", "!33333333"); err != nil {
		t.Fatalf("Failed to add alias: %v", err)
	}

	// Both the primary and an alias resolve to the primary.
	if primary, _ := s.GetPrimaryAlias("!11111111"); primary != "!11111111" {
		t.Errorf("Expected primary to resolve to itself, got '%s'", primary)
	}
	if primary, _ := s.GetPrimaryAlias("!22222222"); primary != "!11111111" {
		t.Errorf("Expected alias to resolve to its primary, got '%s'", primary)
	}
	if primary, _ := s.GetPrimaryAlias("!99999999"); primary != "" {
		t.Errorf("Expected unknown node to resolve to '', got '%s'", primary)
	}

	// Membership lists the primary first, queried from either side.
	aliases, err := s.GetAliases("!33333333")
	if err != nil {
		t.Fatalf("Failed to list aliases: %v", err)
	}
	if len(aliases) != 3 || aliases[0] != "!11111111" {
		t.Errorf("Expected primary-first membership, got %v", aliases)
	}

	// Unknown nodes are a mailbox of one.
	solo, _ := s.GetAliases("!99999999")
	if len(solo) != 1 || solo[0] != "!99999999" {
		t.Errorf("Expected singleton membership, got %v", solo)
	}
}

func TestStore_AddAlias_NonTransitive(t *testing.T) {
	s := testStore(t)

	if err := s.AddAlias("!11111111", "!22222222"); err != nil {
		t.Fatalf("Failed to add alias: %v", err)
	}

	// An existing alias cannot be aliased again.
	if err := s.AddAlias("!33333333", "!22222222"); err == nil {
		t.Error("Expected error re-aliasing an alias")
	}
	// A node with aliases of its own cannot become an alias.
	if err := s.AddAlias("!33333333", "!11111111"); err == nil {
		t.Error("Expected error aliasing a primary")
	}
	// An alias cannot act as a primary.
	if err := s.AddAlias("!22222222", "!33333333"); err == nil {
		t.Error("Expected error using an alias as primary")
	}
}

func TestStore_DeleteAliases(t *testing.T) {
	s := testStore(t)

	if err := s.AddAlias("!11111111", "!22222222"); err != nil {
		t.Fatalf("Failed to add alias: %v", err)
	}
	if err := s.DeleteAlias("!11111111", "!22222222"); err != nil {
		t.Fatalf("Failed to delete alias: %v", err)
	}
	if primary, _ := s.GetPrimaryAlias("!22222222"); primary != "" {
		t.Errorf("Expected alias gone, still resolves to '%s'", primary)
	}

	if err := s.AddAlias("!11111111", "!22222222"); err != nil {
		t.Fatalf("Failed to re-add alias: %v", err)
	}
	if err := s.AddAlias("!11111111", "!33333333"); err != nil {
		t.Fatalf("Failed to add alias: %v", err)
	}
	if err := s.DeleteAliases("!11111111"); err != nil {
		t.Fatalf("Failed to delete aliases: %v", err)
	}
	aliases, _ := s.GetAliases("!11111111")
	if len(aliases) != 1 {
		t.Errorf("Expected only the primary left, got %v", aliases)
	}
}

func TestStore_Peers(t *testing.T) {
	s := testStore(t)

	if err := s.AddPeer("!22222222"); err != nil {
		t.Fatalf("Failed to add peer: %v", err)
	}
	// Duplicate registration is ignored.
	if err := s.AddPeer("!22222222"); err != nil {
		t.Fatalf("Expected duplicate peer to be ignored, got: %v", err)
	}
	if err := s.AddPeer("!11111111"); err != nil {
		t.Fatalf("Failed to add peer: %v", err)
	}

	peers, err := s.ListPeers()
	if err != nil {
		t.Fatalf("Failed to list peers: %v", err)
	}
	if len(peers) != 2 || peers[0] != "!11111111" {
		t.Errorf("Expected two peers sorted by id, got %v", peers)
	}

	if err := s.DeletePeer("!22222222"); err != nil {
		t.Fatalf("Failed to delete peer: %v", err)
	}
	peers, _ = s.ListPeers()
	if len(peers) != 1 {
		t.Errorf("Expected one peer left, got %v", peers)
	}
}
