package mail

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Store persists mail items, alias (shared mailbox) relationships and
// sync peers. Per-node session state never touches the store; only
// mail, aliases, peers and the reserved xfr table survive restarts.
type Store struct {
	db *sql.DB
}

func OpenStore(file string) (*Store, error) {
	db, err := sql.Open("sqlite3", file)
	if err != nil {
		return nil, err
	}

	schemas := []string{
		`CREATE TABLE IF NOT EXISTS mail (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sender TEXT NOT NULL,
			sender_short_name TEXT NOT NULL,
			recipient TEXT NOT NULL,
			date TEXT NOT NULL,
			subject TEXT NOT NULL,
			content TEXT NOT NULL,
			unique_id TEXT NOT NULL,
			notify BOOLEAN DEFAULT 1
		);`,
		// Reserved for future inter-node mail synchronization
		`CREATE TABLE IF NOT EXISTS xfr (
			sequence INTEGER PRIMARY KEY AUTOINCREMENT,
			peer TEXT NOT NULL,
			data TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS peers (
			node_id TEXT NOT NULL PRIMARY KEY
		);`,
		`CREATE TABLE IF NOT EXISTS aliases (
			node_id TEXT NOT NULL,
			alias TEXT NOT NULL,
			PRIMARY KEY (node_id, alias)
		);`,
	}
	for _, schema := range schemas {
		if _, err := db.Exec(schema); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to create schema: %v", err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// MailSummary is one row of a mailbox listing.
type MailSummary struct {
	ID              int64
	SenderShortName string
	Subject         string
	Date            string
	UniqueID        string
}

// MailContent is a full mail item as shown to its recipient.
type MailContent struct {
	SenderShortName string
	Date            string
	Subject         string
	Content         string
	UniqueID        string
}

// Notification identifies a recipient with unread mail and the newest
// mail id flagged for notification.
type Notification struct {
	Recipient string
	MailID    int64
}

// AddMail inserts a new mail item with a fresh correlation id and the
// current local timestamp, flagged for delivery notification.
func (s *Store) AddMail(senderID, senderShortName, recipientID, subject, content string) (string, error) {
	uniqueID := uuid.NewString()
	date := time.Now().Format("2006-01-02 15:04")
	_, err := s.db.Exec(
		"INSERT INTO mail (sender, sender_short_name, recipient, date, subject, content, unique_id) VALUES (?, ?, ?, ?, ?, ?, ?)",
		senderID, senderShortName, recipientID, date, subject, content, uniqueID,
	)
	if err != nil {
		return "", fmt.Errorf("failed to add mail for %s: %v", recipientID, err)
	}
	return uniqueID, nil
}

// GetMail returns all mail addressed to a recipient in insertion order.
func (s *Store) GetMail(recipientID string) ([]MailSummary, error) {
	rows, err := s.db.Query(
		"SELECT id, sender_short_name, subject, date, unique_id FROM mail WHERE recipient = ? ORDER BY id",
		recipientID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []MailSummary
	for rows.Next() {
		var m MailSummary
		if err := rows.Scan(&m.ID, &m.SenderShortName, &m.Subject, &m.Date, &m.UniqueID); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// GetMailContent returns a mail item only if it is addressed to the
// given recipient. A mail belonging to another mailbox yields (nil,
// nil), indistinguishable from absence.
func (s *Store) GetMailContent(mailID int64, recipientID string) (*MailContent, error) {
	var m MailContent
	err := s.db.QueryRow(
		"SELECT sender_short_name, date, subject, content, unique_id FROM mail WHERE id = ? AND recipient = ?",
		mailID, recipientID,
	).Scan(&m.SenderShortName, &m.Date, &m.Subject, &m.Content, &m.UniqueID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// DeleteMail removes the mail item with the given correlation id, but
// only when its stored recipient matches the claimed recipient. A
// mismatch or missing row deletes nothing and is reported as not found.
func (s *Store) DeleteMail(uniqueID, recipientID string) error {
	var stored string
	err := s.db.QueryRow("SELECT recipient FROM mail WHERE unique_id = ?", uniqueID).Scan(&stored)
	if err == sql.ErrNoRows {
		log.Printf("No mail found with unique_id: %s", uniqueID)
		return nil
	}
	if err != nil {
		log.Printf("Error deleting mail with unique_id %s: %v", uniqueID, err)
		return err
	}
	if stored != recipientID {
		log.Printf("Refusing delete of %s: recipient mismatch (claimed %s)", uniqueID, recipientID)
		return nil
	}

	_, err = s.db.Exec("DELETE FROM mail WHERE unique_id = ? AND recipient = ?", uniqueID, stored)
	if err != nil {
		log.Printf("Error deleting mail with unique_id %s: %v", uniqueID, err)
		return err
	}
	return nil
}

// ClearNotify clears the delivery notification flag for all of the
// recipient's mail up to and including maxID. Idempotent.
func (s *Store) ClearNotify(recipientID string, maxID int64) error {
	_, err := s.db.Exec(
		"UPDATE mail SET notify = 0 WHERE recipient = ? AND id <= ? AND notify = 1",
		recipientID, maxID,
	)
	return err
}

// PendingNotifications returns, per recipient with unread mail, the
// newest mail id still flagged for notification.
func (s *Store) PendingNotifications() ([]Notification, error) {
	rows, err := s.db.Query(
		"SELECT recipient, MAX(id) FROM mail WHERE notify = 1 GROUP BY recipient",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.Recipient, &n.MailID); err != nil {
			return nil, err
		}
		pending = append(pending, n)
	}
	return pending, rows.Err()
}

// GetPrimaryAlias resolves a node to the primary node id of its
// mailbox: the node itself when it owns aliases, the primary it is
// registered under when it is an alias, or "" when the alias table
// does not know the node.
func (s *Store) GetPrimaryAlias(node string) (string, error) {
	var primary string
	err := s.db.QueryRow("SELECT node_id FROM aliases WHERE node_id = ?", node).Scan(&primary)
	if err == nil {
		return primary, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	err = s.db.QueryRow("SELECT node_id FROM aliases WHERE alias = ?", node).Scan(&primary)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return primary, nil
}

// GetAliases returns the mailbox membership for a node: the resolved
// primary first, then its aliases in insertion order.
func (s *Store) GetAliases(node string) ([]string, error) {
	primary, err := s.GetPrimaryAlias(node)
	if err != nil {
		return nil, err
	}
	if primary == "" {
		primary = node
	}

	rows, err := s.db.Query("SELECT alias FROM aliases WHERE node_id = ? ORDER BY rowid", primary)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	aliases := []string{primary}
	for rows.Next() {
		var alias string
		if err := rows.Scan(&alias); err != nil {
			return nil, err
		}
		aliases = append(aliases, alias)
	}
	return aliases, rows.Err()
}

// AddAlias authorizes alias to use primary's mailbox. Aliasing is kept
// non-transitive: a node that owns aliases cannot become an alias, an
// aliased node cannot be aliased twice, and an alias cannot act as a
// primary.
func (s *Store) AddAlias(primary, alias string) error {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM aliases WHERE node_id = ?", alias).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%s has aliases of its own", alias)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM aliases WHERE alias = ?", alias).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%s is already an alias", alias)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM aliases WHERE alias = ?", primary).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%s is itself an alias", primary)
	}

	_, err := s.db.Exec("INSERT INTO aliases (node_id, alias) VALUES (?, ?)", primary, alias)
	if err != nil {
		return fmt.Errorf("failed to add alias %s for %s: %v", alias, primary, err)
	}
	return nil
}

// DeleteAlias removes one alias of a primary.
func (s *Store) DeleteAlias(primary, alias string) error {
	_, err := s.db.Exec("DELETE FROM aliases WHERE node_id = ? AND alias = ?", primary, alias)
	return err
}

// DeleteAliases removes all aliases of a primary.
func (s *Store) DeleteAliases(primary string) error {
	_, err := s.db.Exec("DELETE FROM aliases WHERE node_id = ?", primary)
	return err
}

// AddPeer registers a node for future mailbox synchronization.
func (s *Store) AddPeer(node string) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO peers (node_id) VALUES (?)", node)
	return err
}

func (s *Store) DeletePeer(node string) error {
	_, err := s.db.Exec("DELETE FROM peers WHERE node_id = ?", node)
	return err
}

func (s *Store) ListPeers() ([]string, error) {
	rows, err := s.db.Query("SELECT node_id FROM peers ORDER BY node_id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var peers []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		peers = append(peers, p)
	}
	return peers, rows.Err()
}
