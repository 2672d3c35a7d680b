package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const messageColumns = `id, name, email, subject, message, date, is_read, is_replied, replied_date`

// CreateMessage inserts m as an unread, unreplied message. Date defaults to now.
func (s *Store) CreateMessage(ctx context.Context, m *Message) error {
	if m.Date.IsZero() {
		m.Date = s.now()
	}
	m.Read, m.Replied, m.RepliedDate = false, false, nil

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (name, email, subject, message, date)
		VALUES (?, ?, ?, ?, ?)`,
		m.Name, m.Email, m.Subject, m.Message, formatTime(m.Date))
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	m.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading message id: %w", err)
	}
	return nil
}

// ListMessages returns every message, newest first.
func (s *Store) ListMessages(ctx context.Context) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+messageColumns+` FROM messages ORDER BY date DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	messages := []Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

// GetMessage returns the message with the given id.
func (s *Store) GetMessage(ctx context.Context, id int64) (*Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

// MarkMessageRead flags a message as read.
func (s *Store) MarkMessageRead(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE messages SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking message %d read: %w", id, err)
	}
	return affectedOne(res)
}

// MarkMessageReplied flags a message as replied and stamps the reply time.
// A replied message is also read.
func (s *Store) MarkMessageReplied(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET is_replied = 1, is_read = 1, replied_date = ? WHERE id = ?`,
		formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("marking message %d replied: %w", id, err)
	}
	return affectedOne(res)
}

// DeleteMessage removes a message.
func (s *Store) DeleteMessage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting message %d: %w", id, err)
	}
	return affectedOne(res)
}

// MessageCounts returns the total and unread message counts.
func (s *Store) MessageCounts(ctx context.Context) (total, unread int64, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN is_read = 0 THEN 1 ELSE 0 END), 0) FROM messages`,
	).Scan(&total, &unread)
	if err != nil {
		return 0, 0, fmt.Errorf("counting messages: %w", err)
	}
	return total, unread, nil
}

// ImportMessage inserts a message keeping its id and flags, for migrating
// data from the old JSON files.
func (s *Store) ImportMessage(ctx context.Context, m Message) error {
	var replied sql.NullString
	if m.RepliedDate != nil {
		replied = sql.NullString{String: formatTime(*m.RepliedDate), Valid: true}
	}
	if m.Date.IsZero() {
		m.Date = s.now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO messages (`+messageColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Email, m.Subject, m.Message, formatTime(m.Date),
		boolToInt(m.Read), boolToInt(m.Replied), replied)
	if err != nil {
		return fmt.Errorf("importing message %d: %w", m.ID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(sc scanner) (*Message, error) {
	var (
		m             Message
		date          string
		read, replied int
		repliedDate   sql.NullString
	)
	if err := sc.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &date, &read, &replied, &repliedDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning message: %w", err)
	}

	var err error
	if m.Date, err = parseTime(date); err != nil {
		return nil, fmt.Errorf("parsing message date: %w", err)
	}
	m.Read = read != 0
	m.Replied = replied != 0
	if repliedDate.Valid {
		t, err := parseTime(repliedDate.String)
		if err != nil {
			return nil, fmt.Errorf("parsing replied date: %w", err)
		}
		m.RepliedDate = &t
	}
	return &m, nil
}
