package cache

import (
	"encoding/json"
	"errors"
	"time"
)

// Entry is one cached value with its expiry.
type Entry struct {
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// newEntry stamps data with the current time. A zero ttl never expires.
func newEntry(key string, data json.RawMessage, ttl time.Duration, now time.Time) *Entry {
	e := &Entry{Key: key, Data: data, CreatedAt: now}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl)
	}
	return e
}

// ExpiredAt reports whether the entry is stale at now.
func (e *Entry) ExpiredAt(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Age returns the time since the entry was written.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.CreatedAt)
}

// MarshalJSON writes times as RFC 3339 so cache files stay readable.
func (e *Entry) MarshalJSON() ([]byte, error) {
	type alias Entry
	aux := struct {
		*alias

		CreatedAt string `json:"created_at"`
		ExpiresAt string `json:"expires_at,omitempty"`
	}{alias: (*alias)(e), CreatedAt: e.CreatedAt.Format(time.RFC3339)}
	if !e.ExpiresAt.IsZero() {
		aux.ExpiresAt = e.ExpiresAt.Format(time.RFC3339)
	}
	return json.Marshal(&aux)
}

// UnmarshalJSON parses the RFC 3339 times written by MarshalJSON.
func (e *Entry) UnmarshalJSON(data []byte) error {
	if e == nil {
		return errors.New("cannot unmarshal into nil Entry")
	}
	type alias Entry
	aux := struct {
		*alias

		CreatedAt string `json:"created_at"`
		ExpiresAt string `json:"expires_at"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if e.CreatedAt, err = time.Parse(time.RFC3339, aux.CreatedAt); err != nil {
		return err
	}
	e.ExpiresAt = time.Time{}
	if aux.ExpiresAt != "" {
		if e.ExpiresAt, err = time.Parse(time.RFC3339, aux.ExpiresAt); err != nil {
			return err
		}
	}
	return nil
}
