// Package session holds per-conversation state: the identifier context
// harvested from query results and its persistence across a session's
// lifetime. Each session gets its own Context instance; nothing here is
// process-global.
package session

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/devicehealth/diagnostics-mcp/pkg/types"
)

// Canonical context keys, in presentation order.
var canonicalKeys = []string{
	"device_id",
	"account_id",
	"context_id",
	"tenant_id",
	"user_id",
	"scale_unit_name",
	"serial_number",
	"device_name",
	"azure_ad_device_id",
	"primary_user",
	"enrolled_by_user",
}

// columnMappings maps result column names to canonical context keys.
var columnMappings = map[string]string{
	"DeviceId":        "device_id",
	"AccountId":       "account_id",
	"ContextId":       "context_id",
	"TenantId":        "tenant_id",
	"UserId":          "user_id",
	"ScaleUnitName":   "scale_unit_name",
	"SerialNumber":    "serial_number",
	"DeviceName":      "device_name",
	"AzureAdDeviceId": "azure_ad_device_id",
	"PrimaryUser":     "primary_user",
	"EnrolledByUser":  "enrolled_by_user",
}

// knownPhrases are legacy free-text placeholder instructions still present in
// older instruction documents. Each maps to the canonical context key whose
// stored value replaces it.
var knownPhrases = []struct {
	Phrase string
	Key    string
}{
	{"<Fetch the accountId from Device Details and replace here>", "account_id"},
	{"<AccountId from Step 1>", "account_id"},
	{"<ContextId from Step 2>", "context_id"},
	{"<DeviceId>", "device_id"},
	{"<TenantId>", "tenant_id"},
	{"<UserId>", "user_id"},
}

// Context stores the most recently observed value for each canonical
// identifier within one conversation. Last write wins per key.
type Context struct {
	log         logrus.FieldLogger
	values      map[string]string
	lastUpdated time.Time
}

// NewContext creates an empty conversation context.
func NewContext(log logrus.FieldLogger) *Context {
	return &Context{
		log:    log.WithField("component", "conversation_context"),
		values: make(map[string]string),
	}
}

// UpdateFromResult harvests identifier values from a query result. For
// tabular results only the first row is inspected: the context models the
// single entity currently under discussion, not a list.
func (c *Context) UpdateFromResult(result *types.QueryResult) {
	if result == nil {
		return
	}

	c.lastUpdated = time.Now().UTC()

	if record := result.FirstRowRecord(); record != nil {
		c.applyRecord(record)

		if len(result.Rows) > 1 {
			c.log.WithField("dropped_rows", len(result.Rows)-1).
				Debug("Context harvested from first row only")
		}
	}

	if result.Record != nil {
		c.applyRecord(result.Record)
	}
}

func (c *Context) applyRecord(record map[string]string) {
	updated := make([]string, 0, len(columnMappings))

	for column, key := range columnMappings {
		value, ok := record[column]
		if !ok || isNullLike(value) {
			continue
		}

		c.values[key] = value
		updated = append(updated, key)
	}

	if len(updated) > 0 {
		c.log.WithField("keys", updated).Debug("Conversation context updated")
	}
}

// GetValue returns the stored value for a canonical key or any
// case/separator-insensitive alias of it ("DeviceId", "device id", ...).
func (c *Context) GetValue(key string) (string, bool) {
	canonical, ok := canonicalKey(key)
	if !ok {
		return "", false
	}

	value, ok := c.values[canonical]

	return value, ok
}

// Set stores a value under a canonical key or alias. Unknown keys are ignored.
func (c *Context) Set(key, value string) bool {
	canonical, ok := canonicalKey(key)
	if !ok || isNullLike(value) {
		return false
	}

	c.values[canonical] = value
	c.lastUpdated = time.Now().UTC()

	return true
}

// All returns every stored value keyed by canonical name, in canonical order.
func (c *Context) All() map[string]string {
	out := make(map[string]string, len(c.values))

	for _, key := range canonicalKeys {
		if v, ok := c.values[key]; ok {
			out[key] = v
		}
	}

	return out
}

// LastUpdated returns the time of the most recent context change.
func (c *Context) LastUpdated() time.Time {
	return c.lastUpdated
}

// Clear drops every stored value.
func (c *Context) Clear() {
	c.values = make(map[string]string)
	c.lastUpdated = time.Time{}
}

// SubstituteKnownPhrases replaces legacy free-text placeholder phrases with
// stored context values. Phrases without a stored value are logged and left
// in place; this never fails.
func (c *Context) SubstituteKnownPhrases(text string) string {
	for _, p := range knownPhrases {
		if !strings.Contains(text, p.Phrase) {
			continue
		}

		value, ok := c.values[p.Key]
		if !ok {
			c.log.WithFields(logrus.Fields{
				"phrase": p.Phrase,
				"key":    p.Key,
			}).Warn("No context value for known phrase")

			continue
		}

		text = strings.ReplaceAll(text, p.Phrase, value)
		c.log.WithFields(logrus.Fields{
			"phrase": p.Phrase,
			"key":    p.Key,
		}).Debug("Replaced known phrase from context")
	}

	return text
}

// Snapshot is the serializable form of a context, used by the persistence
// hook.
type Snapshot struct {
	Values      map[string]string `json:"values"`
	LastUpdated time.Time         `json:"last_updated"`
}

// Snapshot captures the current state for persistence.
func (c *Context) Snapshot() Snapshot {
	values := make(map[string]string, len(c.values))
	for k, v := range c.values {
		values[k] = v
	}

	return Snapshot{Values: values, LastUpdated: c.lastUpdated}
}

// Restore replaces the context state from a snapshot.
func (c *Context) Restore(snap Snapshot) {
	c.values = make(map[string]string, len(snap.Values))

	for k, v := range snap.Values {
		if canonical, ok := canonicalKey(k); ok && !isNullLike(v) {
			c.values[canonical] = v
		}
	}

	c.lastUpdated = snap.LastUpdated
}

// canonicalKey normalizes an alias ("DeviceId", "device id", "DEVICE_ID") to
// its canonical key, reporting whether the key is known.
func canonicalKey(key string) (string, bool) {
	normalized := normalizeAlias(key)

	for _, canonical := range canonicalKeys {
		if normalizeAlias(canonical) == normalized {
			return canonical, true
		}
	}

	return "", false
}

func normalizeAlias(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	key = strings.ReplaceAll(key, " ", "")
	key = strings.ReplaceAll(key, "-", "")
	key = strings.ReplaceAll(key, "_", "")

	return key
}

// isNullLike treats empty and textual null markers as absent values.
func isNullLike(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "null", "none", "nil", "n/a":
		return true
	default:
		return false
	}
}
